// Package codec implements the canonical hex wire encoding for every
// cryptographic object in the protocol, following the pattern of the
// teacher repository's types.HexBytes: lower-case, unprefixed hex in and
// out, with strict rejection of malformed, wrong-length, or off-curve input.
// It is the sole place curve.Point/Scalar cross the HTTP boundary, grounded
// on original_source's serialize/serialize.rs function set.
package codec

import (
	"encoding/hex"
	"fmt"

	"github.com/linqining/deck-agent/crypto/chaumpedersen"
	"github.com/linqining/deck-agent/crypto/schnorr"
	"github.com/linqining/deck-agent/curve"
	"github.com/linqining/deck-agent/protocol"
)

// EncodeHex lower-case hex encodes b with no "0x" prefix, matching the
// teacher's HexBytes.Hex() convention minus the prefix — spec.md's codec is
// explicit that the wire format carries no prefix.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex decodes a canonical hex string, rejecting odd-length or
// non-hex-alphabet input.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("codec: invalid hex: %w", err)
	}
	return b, nil
}

// EncodePoint/DecodePoint handle curve.Point, rejecting non-canonical or
// off-curve encodings per spec.md's codec invariant.
func EncodePoint(p curve.Point) string {
	return EncodeHex(p.Bytes())
}

func DecodePoint(s string) (curve.Point, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return curve.Point{}, err
	}
	p, err := curve.PointFromBytes(b)
	if err != nil {
		return curve.Point{}, fmt.Errorf("codec: decoding point: %w", err)
	}
	return p, nil
}

func EncodeScalar(s curve.Scalar) string {
	return EncodeHex(s.Bytes())
}

func DecodeScalar(s string) (curve.Scalar, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return curve.Scalar{}, err
	}
	sc, err := curve.ScalarFromBytes(b)
	if err != nil {
		return curve.Scalar{}, fmt.Errorf("codec: decoding scalar: %w", err)
	}
	return sc, nil
}

// MaskedCardHex is the wire representation of a protocol.MaskedCard.
type MaskedCardHex struct {
	C1 string `json:"c1"`
	C2 string `json:"c2"`
}

func EncodeMaskedCard(m protocol.MaskedCard) MaskedCardHex {
	return MaskedCardHex{C1: EncodePoint(m.C1), C2: EncodePoint(m.C2)}
}

func DecodeMaskedCard(w MaskedCardHex) (protocol.MaskedCard, error) {
	c1, err := DecodePoint(w.C1)
	if err != nil {
		return protocol.MaskedCard{}, fmt.Errorf("codec: masked card c1: %w", err)
	}
	c2, err := DecodePoint(w.C2)
	if err != nil {
		return protocol.MaskedCard{}, fmt.Errorf("codec: masked card c2: %w", err)
	}
	return protocol.MaskedCard{C1: c1, C2: c2}, nil
}

// KeyOwnershipProofHex is the wire representation of a schnorr.Proof.
type KeyOwnershipProofHex struct {
	R string `json:"r"`
	S string `json:"s"`
}

func EncodeKeyOwnershipProof(p schnorr.Proof) KeyOwnershipProofHex {
	return KeyOwnershipProofHex{R: EncodePoint(p.R), S: EncodeScalar(p.S)}
}

func DecodeKeyOwnershipProof(w KeyOwnershipProofHex) (schnorr.Proof, error) {
	r, err := DecodePoint(w.R)
	if err != nil {
		return schnorr.Proof{}, fmt.Errorf("codec: key ownership proof r: %w", err)
	}
	s, err := DecodeScalar(w.S)
	if err != nil {
		return schnorr.Proof{}, fmt.Errorf("codec: key ownership proof s: %w", err)
	}
	return schnorr.Proof{R: r, S: s}, nil
}

// PedersenProofHex is the wire representation of a chaumpedersen.Proof,
// named (a, b, r) to match original_source's serialize/proof.rs
// PedersenProof field names.
type PedersenProofHex struct {
	A string `json:"a"`
	B string `json:"b"`
	R string `json:"r"`
}

func EncodeMaskingProof(p chaumpedersen.Proof) PedersenProofHex {
	return PedersenProofHex{A: EncodePoint(p.A), B: EncodePoint(p.B), R: EncodeScalar(p.S)}
}

func DecodeMaskingProof(w PedersenProofHex) (chaumpedersen.Proof, error) {
	a, err := DecodePoint(w.A)
	if err != nil {
		return chaumpedersen.Proof{}, fmt.Errorf("codec: masking proof a: %w", err)
	}
	b, err := DecodePoint(w.B)
	if err != nil {
		return chaumpedersen.Proof{}, fmt.Errorf("codec: masking proof b: %w", err)
	}
	r, err := DecodeScalar(w.R)
	if err != nil {
		return chaumpedersen.Proof{}, fmt.Errorf("codec: masking proof r: %w", err)
	}
	return chaumpedersen.Proof{A: a, B: b, S: r}, nil
}

// RevealTokenHex is the wire representation of a protocol.RevealToken.
type RevealTokenHex struct {
	PlayerID string           `json:"player_id"`
	Token    string           `json:"token"`
	Proof    PedersenProofHex `json:"proof"`
}

func EncodeRevealToken(t protocol.RevealToken) RevealTokenHex {
	return RevealTokenHex{
		PlayerID: t.PlayerID,
		Token:    EncodePoint(t.Token),
		Proof:    EncodeMaskingProof(t.Proof),
	}
}

func DecodeRevealToken(w RevealTokenHex) (protocol.RevealToken, error) {
	token, err := DecodePoint(w.Token)
	if err != nil {
		return protocol.RevealToken{}, fmt.Errorf("codec: reveal token: %w", err)
	}
	proof, err := DecodeMaskingProof(w.Proof)
	if err != nil {
		return protocol.RevealToken{}, fmt.Errorf("codec: reveal token proof: %w", err)
	}
	return protocol.RevealToken{PlayerID: w.PlayerID, Token: token, Proof: proof}, nil
}

// DecodeSeed decodes and strictly validates a 32-byte session seed,
// rejecting anything else with an error. No api handler accepts a seed from
// the caller, so no HTTP endpoint calls it.
func DecodeSeed(s string) ([32]byte, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return [32]byte{}, err
	}
	if len(b) != 32 {
		return [32]byte{}, fmt.Errorf("codec: seed must be 32 bytes, got %d", len(b))
	}
	var out [32]byte
	copy(out[:], b)
	return out, nil
}
