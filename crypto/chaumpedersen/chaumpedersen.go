// Package chaumpedersen implements the non-interactive Chaum-Pedersen
// DL-equality proof used throughout the protocol: it proves that the same
// scalar witness w was used both as an exponent of the group generator and
// as an exponent of an arbitrary second point, without revealing w. Masking,
// remasking and reveal-token generation are all instances of this one proof
// shape, mirroring the way elgamal.BuildDecryptionProof /
// VerifyDecryptionProof reuse a single Chaum-Pedersen construction for every
// ElGamal-style operation.
package chaumpedersen

import (
	"fmt"

	"github.com/linqining/deck-agent/crypto/transcript"
	"github.com/linqining/deck-agent/curve"
)

const domain = "deck-agent/v1/chaum-pedersen-eqdl"

// Proof witnesses that d = w*base2 and y = w*G for the same scalar w,
// without revealing w.
type Proof struct {
	A curve.Point  // w'*G
	B curve.Point  // w'*base2
	S curve.Scalar // w' + e*w
}

// Prove builds a proof that y = w*G and d = w*base2 share the witness w.
func Prove(base2 curve.Point, y curve.Point, d curve.Point, w curve.Scalar) (Proof, error) {
	wPrime, err := curve.RandomScalar()
	if err != nil {
		return Proof{}, fmt.Errorf("chaumpedersen: sampling nonce: %w", err)
	}
	a := curve.MulGenerator(wPrime)
	b := base2.Mul(wPrime)

	e, err := challenge(base2, y, d, a, b)
	if err != nil {
		return Proof{}, err
	}

	s := wPrime.Add(e.Mul(w))
	return Proof{A: a, B: b, S: s}, nil
}

// Verify checks proof against the public statement (base2, y, d).
func Verify(base2 curve.Point, y curve.Point, d curve.Point, proof Proof) (bool, error) {
	e, err := challenge(base2, y, d, proof.A, proof.B)
	if err != nil {
		return false, err
	}

	// s*G =?= A + e*y
	lhs1 := curve.MulGenerator(proof.S)
	rhs1 := proof.A.Add(y.Mul(e))
	if !lhs1.Equal(rhs1) {
		return false, nil
	}

	// s*base2 =?= B + e*d
	lhs2 := base2.Mul(proof.S)
	rhs2 := proof.B.Add(d.Mul(e))
	if !lhs2.Equal(rhs2) {
		return false, nil
	}
	return true, nil
}

func challenge(base2, y, d, a, b curve.Point) (curve.Scalar, error) {
	tr := transcript.New(domain)
	tr.Append("base2", base2.Bytes())
	tr.Append("y", y.Bytes())
	tr.Append("d", d.Bytes())
	tr.Append("a", a.Bytes())
	tr.Append("b", b.Bytes())
	return tr.ChallengeScalar("e")
}
