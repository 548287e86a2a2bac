package protocol

import (
	"crypto/sha512"
	"fmt"

	"github.com/linqining/deck-agent/crypto/chaumpedersen"
	"github.com/linqining/deck-agent/crypto/schnorr"
	"github.com/linqining/deck-agent/curve"
)

// Setup deterministically derives the session Parameters from a 32-byte
// seed: the same seed always yields the same generator grid, so any two
// coordinators (or a client replaying a session) agree on Parameters without
// exchanging them.
func Setup(seed [32]byte) Parameters {
	params := Parameters{G: curve.Generator()}
	for i := range DeckSize {
		params.Grid[i] = gridGenerator(seed, i)
	}
	return params
}

// Initialize produces a fresh, process-random card_mapping: a bijection
// between the 52 classic playing cards and 52 plaintext group elements. It
// is intentionally non-deterministic (unlike Setup) — see DESIGN.md's Open
// Question entry on initial_deck determinism.
func Initialize() (CardMapping, error) {
	var mapping CardMapping
	mapping.ToCard = make(map[string]int, DeckSize)
	for i := range DeckSize {
		s, err := curve.RandomScalar()
		if err != nil {
			return CardMapping{}, fmt.Errorf("protocol: initialize: drawing plaintext %d: %w", i, err)
		}
		p := curve.MulGenerator(s)
		mapping.ToPoint[i] = p
		mapping.ToCard[lookupKey(p)] = i
	}
	return mapping, nil
}

// GenerateKey draws a fresh keypair for playerID and attaches a proof that
// the caller knows the secret key behind the public key, bound to that
// player's identity.
func GenerateKey(playerID string) (PlayerKey, error) {
	sk, err := curve.RandomScalar()
	if err != nil {
		return PlayerKey{}, fmt.Errorf("protocol: generating key: %w", err)
	}
	pk := curve.MulGenerator(sk)
	proof, err := schnorr.Prove(sk, pk, playerID)
	if err != nil {
		return PlayerKey{}, fmt.Errorf("protocol: proving key ownership: %w", err)
	}
	return PlayerKey{PlayerID: playerID, SK: sk, PK: pk, Proof: proof}, nil
}

// VerifyKeyOwnership checks a standalone key-ownership proof, as used when a
// player submits only (player_id, public_key, proof) without its secret key.
func VerifyKeyOwnership(pk curve.Point, playerID string, proof schnorr.Proof) (bool, error) {
	return schnorr.Verify(pk, playerID, proof)
}

// AggregateKey folds a set of player public keys into the joint key used for
// every masking operation in the session, rejecting any player whose
// key-ownership proof does not verify.
func AggregateKey(players []PlayerKey) (curve.Point, error) {
	if len(players) == 0 {
		return curve.Point{}, fmt.Errorf("protocol: aggregate key: no players")
	}
	agg := curve.Identity()
	for _, p := range players {
		ok, err := VerifyKeyOwnership(p.PK, p.PlayerID, p.Proof)
		if err != nil {
			return curve.Point{}, fmt.Errorf("protocol: verifying key ownership for %s: %w", p.PlayerID, err)
		}
		if !ok {
			return curve.Point{}, fmt.Errorf("protocol: invalid key ownership proof for player %s", p.PlayerID)
		}
		agg = agg.Add(p.PK)
	}
	return agg, nil
}

// Mask encrypts a plaintext card under jointKey, returning the masked card
// and a proof that it was formed honestly (i.e. that C1=r*G and
// C2-plaintext=r*jointKey share the same witness r).
func Mask(jointKey curve.Point, plaintext Plaintext) (MaskedCard, MaskingProof, error) {
	r, err := curve.RandomScalar()
	if err != nil {
		return MaskedCard{}, MaskingProof{}, fmt.Errorf("protocol: mask: %w", err)
	}
	masked := maskWithFactor(jointKey, plaintext, r)
	proof, err := chaumpedersen.Prove(jointKey, masked.C1, masked.C2.Sub(plaintext), r)
	if err != nil {
		return MaskedCard{}, MaskingProof{}, fmt.Errorf("protocol: mask: proving: %w", err)
	}
	return masked, proof, nil
}

func maskWithFactor(jointKey curve.Point, plaintext Plaintext, r curve.Scalar) MaskedCard {
	return MaskedCard{
		C1: curve.MulGenerator(r),
		C2: plaintext.Add(jointKey.Mul(r)),
	}
}

// VerifyMasking checks that masked is a well-formed encryption of plaintext
// under jointKey.
func VerifyMasking(jointKey curve.Point, plaintext Plaintext, masked MaskedCard, proof MaskingProof) (bool, error) {
	return chaumpedersen.Verify(jointKey, masked.C1, masked.C2.Sub(plaintext), proof)
}

// Remask re-randomizes a masked card without changing the card it encrypts,
// returning the new ciphertext and a proof that the two ciphertexts encrypt
// the same plaintext under jointKey.
func Remask(jointKey curve.Point, masked MaskedCard) (MaskedCard, MaskingProof, error) {
	r, err := curve.RandomScalar()
	if err != nil {
		return MaskedCard{}, MaskingProof{}, fmt.Errorf("protocol: remask: %w", err)
	}
	newMasked := remaskWithFactor(jointKey, masked, r)
	proof, err := chaumpedersen.Prove(jointKey, newMasked.C1.Sub(masked.C1), newMasked.C2.Sub(masked.C2), r)
	if err != nil {
		return MaskedCard{}, MaskingProof{}, fmt.Errorf("protocol: remask: proving: %w", err)
	}
	return newMasked, proof, nil
}

func remaskWithFactor(jointKey curve.Point, masked MaskedCard, r curve.Scalar) MaskedCard {
	return MaskedCard{
		C1: masked.C1.Add(curve.MulGenerator(r)),
		C2: masked.C2.Add(jointKey.Mul(r)),
	}
}

// VerifyRemasking checks that newMasked is a remasking of oldMasked under
// jointKey (i.e. both encrypt the same plaintext).
func VerifyRemasking(jointKey curve.Point, oldMasked, newMasked MaskedCard, proof MaskingProof) (bool, error) {
	return chaumpedersen.Verify(jointKey, newMasked.C1.Sub(oldMasked.C1), newMasked.C2.Sub(oldMasked.C2), proof)
}

// ComputeRevealToken produces player sk's partial decryption share of
// masked, plus a proof that the share was computed with the same secret key
// behind pk = sk*G.
func ComputeRevealToken(playerID string, sk curve.Scalar, masked MaskedCard) (RevealToken, error) {
	pk := curve.MulGenerator(sk)
	share := masked.C1.Mul(sk)
	proof, err := chaumpedersen.Prove(masked.C1, pk, share, sk)
	if err != nil {
		return RevealToken{}, fmt.Errorf("protocol: reveal token: %w", err)
	}
	return RevealToken{PlayerID: playerID, Token: share, Proof: proof}, nil
}

// VerifyRevealToken checks that token is a valid partial decryption share of
// masked under the player's registered public key pk.
func VerifyRevealToken(pk curve.Point, masked MaskedCard, token RevealToken) (bool, error) {
	return chaumpedersen.Verify(masked.C1, pk, token.Token, token.Proof)
}

// CombineRevealTokens sums a set of per-player decryption shares into a
// single combined share suitable for Unmask. Callers must have already
// verified every token with VerifyRevealToken and must supply exactly one
// token per player whose key contributed to the joint key encrypting
// masked.
func CombineRevealTokens(tokens []RevealToken) curve.Point {
	combined := curve.Identity()
	for _, t := range tokens {
		combined = combined.Add(t.Token)
	}
	return combined
}

// Unmask recovers the plaintext point behind masked given the combined
// reveal-token share, then looks it up in mapping to return the classic card
// index. It returns an error if the recovered point is not in mapping — the
// signature for a bogus or mismatched reveal token.
func Unmask(masked MaskedCard, combinedShare curve.Point, mapping CardMapping) (int, error) {
	plaintext := masked.C2.Sub(combinedShare)
	idx, ok := mapping.CardIndex(plaintext)
	if !ok {
		return 0, fmt.Errorf("protocol: unmask: recovered plaintext does not match any card in the mapping")
	}
	return idx, nil
}

// hashToScalar derives a scalar deterministically from a domain separator
// and a sequence of byte strings. Used by the shuffle proof's Pedersen
// vector-commitment encoding.
func hashToScalar(domainSep string, parts ...[]byte) (curve.Scalar, error) {
	h := sha512.New()
	h.Write([]byte(domainSep))
	for _, p := range parts {
		h.Write(p)
	}
	return curve.ScalarFromUniformBytes(h.Sum(nil))
}
