// Package protocol implements the Barnett-Smart discrete-log mental-poker
// card protocol: deterministic parameter generation, per-player key
// ownership proofs, an aggregate joint key, ElGamal-style masking and
// remasking under that joint key, a verifiable shuffle, and distributed
// reveal tokens that combine to unmask a card.
//
// Every operation here depends only on its inputs plus, for the operations
// that sample keys, masking factors or permutations, randomness drawn from
// crypto/rand: no package-level state, no other I/O. Session/player bookkeeping and HTTP transport live in the
// session and api packages respectively; this package is the cryptographic
// core spec.md calls out as the thing implementations must get bit-for-bit
// interoperable.
package protocol

import (
	"crypto/sha512"
	"fmt"

	"github.com/linqining/deck-agent/crypto/chaumpedersen"
	"github.com/linqining/deck-agent/crypto/schnorr"
	"github.com/linqining/deck-agent/curve"
)

// DeckSize is the number of cards in a standard deck. The Pedersen
// commitment grid used by the shuffle proof is laid out as GridRows x
// GridCols = DeckSize generators, following the m x n convention of the
// Barnett-Smart paper's card-table commitment.
const (
	DeckSize = 52
	GridRows = 2
	GridCols = 26
)

// Parameters is the public, deterministic parameter set every player and the
// coordinator agree on before a session starts: the group generator and a
// grid of independent Pedersen generators used by the shuffle proof's vector
// commitments.
type Parameters struct {
	G    curve.Point   // group generator, always curve.Generator()
	Grid [DeckSize]curve.Point
}

// PlayerKey is a player's discrete-log keypair plus the proof that it knows
// the secret key, bound to its player_id.
type PlayerKey struct {
	PlayerID string
	SK       curve.Scalar
	PK       curve.Point
	Proof    schnorr.Proof
}

// Plaintext is an unmasked card as a group element, prior to its lookup in a
// card_mapping.
type Plaintext = curve.Point

// MaskedCard is an ElGamal-style ciphertext of a card under a joint public
// key: C1 = r*G, C2 = M + r*jointKey.
type MaskedCard struct {
	C1 curve.Point
	C2 curve.Point
}

// MaskingProof proves that a MaskedCard (or a remasking of one) was formed
// honestly under the claimed joint key.
type MaskingProof = chaumpedersen.Proof

// RevealToken is one player's partial decryption share sk*C1 for a given
// masked card, plus the proof it was computed with the same key the player
// registered.
type RevealToken struct {
	PlayerID string
	Token    curve.Point // sk * maskedCard.C1
	Proof    chaumpedersen.Proof
}

// CardMapping is the canonical bijection between plaintext group elements
// and the 52 classic playing cards for a session.
type CardMapping struct {
	ToCard  map[string]int // string(Plaintext.Bytes()) -> card index [0, DeckSize)
	ToPoint [DeckSize]Plaintext
}

// lookupKey canonicalizes a plaintext point for use as a map key.
func lookupKey(p Plaintext) string {
	return string(p.Bytes())
}

// CardIndex returns the classic card index for a decrypted plaintext point,
// or false if it does not correspond to any card in the mapping (a tampered
// or bogus reveal token can produce exactly this case).
func (m CardMapping) CardIndex(p Plaintext) (int, bool) {
	idx, ok := m.ToCard[lookupKey(p)]
	return idx, ok
}

// Point returns the plaintext group element for a classic card index.
func (m CardMapping) Point(cardIndex int) (Plaintext, error) {
	if cardIndex < 0 || cardIndex >= DeckSize {
		return curve.Point{}, fmt.Errorf("protocol: card index %d out of range", cardIndex)
	}
	return m.ToPoint[cardIndex], nil
}

// gridGenerator derives the i-th Pedersen generator deterministically from
// the session seed, so that Setup is a pure function of its seed argument as
// spec.md requires.
func gridGenerator(seed [32]byte, i int) curve.Point {
	h := sha512.New()
	h.Write([]byte("deck-agent/v1/parameters/grid-generator"))
	h.Write(seed[:])
	h.Write([]byte{byte(i), byte(i >> 8)})
	digest := h.Sum(nil)
	s, err := curve.ScalarFromUniformBytes(digest)
	if err != nil {
		// digest is always 64 bytes; ScalarFromUniformBytes cannot fail here.
		panic(fmt.Sprintf("protocol: unreachable grid generator failure: %v", err))
	}
	return curve.MulGenerator(s)
}
