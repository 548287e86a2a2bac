// Package schnorr implements the proof of key ownership every player
// attaches to the public key they contribute to a session: a Schnorr
// signature-of-knowledge of the discrete log of pk, bound to the player's
// identity so one player's proof cannot be replayed under another player's
// name.
package schnorr

import (
	"fmt"

	"github.com/linqining/deck-agent/crypto/transcript"
	"github.com/linqining/deck-agent/curve"
)

const domain = "deck-agent/v1/schnorr-key-ownership"

// Proof is a non-interactive proof of knowledge of sk such that pk = sk*G,
// bound to a player_id via the Fiat-Shamir challenge.
type Proof struct {
	R curve.Point  // commitment r*G
	S curve.Scalar // response r + e*sk
}

// Prove builds a key-ownership proof for pk = sk*G, binding the proof to
// playerID so it cannot be replayed under a different identity.
func Prove(sk curve.Scalar, pk curve.Point, playerID string) (Proof, error) {
	r, err := curve.RandomScalar()
	if err != nil {
		return Proof{}, fmt.Errorf("schnorr: sampling nonce: %w", err)
	}
	R := curve.MulGenerator(r)

	e, err := challenge(pk, playerID, R)
	if err != nil {
		return Proof{}, err
	}

	s := r.Add(e.Mul(sk))
	return Proof{R: R, S: s}, nil
}

// Verify checks that proof is a valid key-ownership proof of pk bound to
// playerID.
func Verify(pk curve.Point, playerID string, proof Proof) (bool, error) {
	e, err := challenge(pk, playerID, proof.R)
	if err != nil {
		return false, err
	}
	// s*G =?= R + e*pk
	lhs := curve.MulGenerator(proof.S)
	rhs := proof.R.Add(pk.Mul(e))
	return lhs.Equal(rhs), nil
}

func challenge(pk curve.Point, playerID string, R curve.Point) (curve.Scalar, error) {
	tr := transcript.New(domain)
	tr.Append("pk", pk.Bytes())
	tr.Append("player_id", []byte(playerID))
	tr.Append("R", R.Bytes())
	return tr.ChallengeScalar("e")
}
