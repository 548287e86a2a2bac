// Package api is the HTTP transport layer for the deck-agent coordinator: it
// translates JSON requests into calls against package protocol and
// package session, following the teacher's chi-router/cors/middleware
// layout (api/api.go) generalized from the voting domain to the mental-poker
// domain.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/linqining/deck-agent/log"
	"github.com/linqining/deck-agent/session"
	"github.com/linqining/deck-agent/userdb"
)

const maxRequestBodyLog = 512

// Config is the configuration for the API HTTP server.
type Config struct {
	Host   string
	Port   int
	Users  userdb.Repository // account collaborator; if nil, an in-memory one is used
}

// API is the deck-agent coordinator's HTTP server.
type API struct {
	router    *chi.Mux
	sessions  *session.Store
	users     userdb.Repository
	parentCtx context.Context
}

// New creates and starts a new API server.
func New(ctx context.Context, conf *Config) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	users := conf.Users
	if users == nil {
		users = userdb.NewMemoryRepository()
	}

	a := &API{
		sessions:  session.NewStore(),
		users:     users,
		parentCtx: ctx,
	}
	a.initRouter()

	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router, for testing purposes.
func (a *API) Router() *chi.Mux {
	return a.router
}

func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(maxRequestBodyLog))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}

func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Infow("register handler", "endpoint", InitializeEndpoint, "method", "GET")
	a.router.Get(InitializeEndpoint, a.initialize)

	log.Infow("register handler", "endpoint", PlayersEndpoint, "method", "POST")
	a.router.Post(PlayersEndpoint, a.registerPlayer)

	log.Infow("register handler", "endpoint", AggregateKeyEndpoint, "method", "POST")
	a.router.Post(AggregateKeyEndpoint, a.aggregateKey)

	log.Infow("register handler", "endpoint", MaskEndpoint, "method", "POST")
	a.router.Post(MaskEndpoint, a.mask)

	log.Infow("register handler", "endpoint", ShuffleEndpoint, "method", "POST")
	a.router.Post(ShuffleEndpoint, a.shuffle)

	log.Infow("register handler", "endpoint", VerifyShuffleEndpoint, "method", "POST")
	a.router.Post(VerifyShuffleEndpoint, a.verifyShuffle)

	log.Infow("register handler", "endpoint", RevealTokenEndpoint, "method", "POST")
	a.router.Post(RevealTokenEndpoint, a.revealToken)

	log.Infow("register handler", "endpoint", RevealCardsEndpoint, "method", "POST")
	a.router.Post(RevealCardsEndpoint, a.revealCards)

	log.Infow("register handler", "endpoint", ReceiveAndRevealTokenEndpoint, "method", "POST")
	a.router.Post(ReceiveAndRevealTokenEndpoint, a.receiveAndRevealToken)

	log.Infow("register handler", "endpoint", PeekCardsEndpoint, "method", "POST")
	a.router.Post(PeekCardsEndpoint, a.peekCards)
}
