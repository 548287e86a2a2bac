package session

import (
	"fmt"
	"sync"

	"github.com/linqining/deck-agent/protocol"
)

// Store is the process-wide session registry: a single mutex guards the
// session_id -> *Session map, exactly as spec.md's concurrency model
// requires (the critical section never spans a cryptographic call — callers
// fetch the *Session and release the Store's lock before doing any crypto).
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns an empty session registry.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create allocates a new session with the given parameters and card mapping,
// registers it, and returns it.
func (s *Store) Create(params protocol.Parameters, mapping protocol.CardMapping) (*Session, error) {
	sess, err := newSession(params, mapping)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess, nil
}

// Get looks up a session by id.
func (s *Store) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session: %q not found", sessionID)
	}
	return sess, nil
}
