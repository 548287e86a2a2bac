// Package session holds the coordinator's in-process game state: a registry
// of Sessions, each tracking its Parameters, card mapping, joint key, current
// deck and players. None of it is persisted — per spec.md's concurrency
// model this is deliberately ephemeral, process-lifetime state, grounded on
// the teacher's db/inmemory.InMemoryDB (a single sync.RWMutex guarding a
// map) and on original_source's Mutex<HashMap<String, GameUser>>.
package session

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/linqining/deck-agent/cards"
	"github.com/linqining/deck-agent/curve"
	"github.com/linqining/deck-agent/protocol"
)

// Player is one participant registered in a Session. The coordinator keeps
// each player's secret key so it can compute reveal tokens on the player's
// behalf, mirroring original_source's GameUser{public_key, private_key}
// model of a thin-client coordinator.
type Player struct {
	Key       protocol.PlayerKey
	heldCards []cards.Card
}

// HeldCards returns the cards this player has received from peers via
// ReceiveAndRevealToken. It is informational metadata only — spec.md's
// design notes are explicit that no reveal path currently depends on it —
// restored from original_source's receive_and_reveal_token behavior.
func (p *Player) HeldCards() []cards.Card {
	out := make([]cards.Card, len(p.heldCards))
	copy(out, p.heldCards)
	return out
}

// Session is one running game: its cryptographic parameters, the current
// (possibly already-shuffled) deck, and its registered players.
type Session struct {
	mu sync.RWMutex

	ID      string
	Params  protocol.Parameters
	Mapping protocol.CardMapping
	Deck    [protocol.DeckSize]protocol.MaskedCard

	jointKey    curve.Point
	jointKeySet bool

	players map[string]*Player
}

// SetJointKey records the session's aggregate public key, once AggregateKey
// has verified every player's key-ownership proof.
func (s *Session) SetJointKey(key curve.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jointKey = key
	s.jointKeySet = true
}

// JointKey returns the session's aggregate public key, and false if
// AggregateKey has not yet been called for this session.
func (s *Session) JointKey() (curve.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jointKey, s.jointKeySet
}

// newSession allocates an empty session with a freshly generated id.
func newSession(params protocol.Parameters, mapping protocol.CardMapping) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:      id,
		Params:  params,
		Mapping: mapping,
		players: make(map[string]*Player),
	}, nil
}

func newSessionID() (string, error) {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return "", fmt.Errorf("session: generating id: %w", err)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, seed[:]).String(), nil
}

// AddPlayer registers a player in the session. It returns an error if the
// player_id is already registered.
func (s *Session) AddPlayer(key protocol.PlayerKey) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.players[key.PlayerID]; exists {
		return nil, fmt.Errorf("session: player %q already registered", key.PlayerID)
	}
	p := &Player{Key: key}
	s.players[key.PlayerID] = p
	return p, nil
}

// Player looks up a registered player by id.
func (s *Session) Player(playerID string) (*Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[playerID]
	return p, ok
}

// Players returns every registered player's key, in no particular order.
func (s *Session) Players() []protocol.PlayerKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.PlayerKey, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Key)
	}
	return out
}

// RecordHeldCards appends cards a player received from a peer to its
// held_cards bookkeeping.
func (s *Session) RecordHeldCards(playerID string, received []cards.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return fmt.Errorf("session: player %q not found", playerID)
	}
	p.heldCards = append(p.heldCards, received...)
	return nil
}

// SetDeck replaces the session's current deck, used after Mask and after
// each Shuffle.
func (s *Session) SetDeck(deck [protocol.DeckSize]protocol.MaskedCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deck = deck
}

// CurrentDeck returns a copy of the session's current deck.
func (s *Session) CurrentDeck() [protocol.DeckSize]protocol.MaskedCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Deck
}
