// Command deck-agent runs the mental-poker protocol coordinator: an HTTP
// server exposing session initialization, player registration, key
// aggregation, masking, shuffling and reveal-token endpoints over the
// Barnett-Smart protocol implemented in package protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/linqining/deck-agent/api"
	"github.com/linqining/deck-agent/log"
	"github.com/linqining/deck-agent/userdb"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting deck-agent", "version", Version)
	api.DisabledLogging = cfg.Log.DisableAPI

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	users, err := setupUserDB(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up user account store: %v", err)
	}

	log.Infow("starting API service", "host", cfg.API.Host, "port", cfg.API.Port)
	if _, err := api.New(ctx, &api.Config{Host: cfg.API.Host, Port: cfg.API.Port, Users: users}); err != nil {
		log.Fatalf("failed to start API service: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}

// setupUserDB selects the account collaborator backing userdb.Repository: a
// MongoDB-backed one when userdb.uri is set, otherwise an in-memory one.
func setupUserDB(ctx context.Context, cfg *Config) (userdb.Repository, error) {
	if cfg.UserDB.URI == "" {
		log.Info("no userdb.uri configured, using in-memory user account store")
		return userdb.NewMemoryRepository(), nil
	}
	log.Infow("connecting to user account store", "name", cfg.UserDB.Name)
	return userdb.NewMongoRepository(ctx, cfg.UserDB.URI, cfg.UserDB.Name)
}
