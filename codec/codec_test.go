package codec

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/linqining/deck-agent/crypto/schnorr"
	"github.com/linqining/deck-agent/curve"
	"github.com/linqining/deck-agent/protocol"
)

func TestPointRoundTrip(t *testing.T) {
	c := qt.New(t)
	s, err := curve.RandomScalar()
	c.Assert(err, qt.IsNil)
	p := curve.MulGenerator(s)

	encoded := EncodePoint(p)
	decoded, err := DecodePoint(encoded)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.Equal(p), qt.IsTrue)
}

func TestDecodePointRejectsBadHex(t *testing.T) {
	c := qt.New(t)
	_, err := DecodePoint("not-hex!!")
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestScalarRoundTrip(t *testing.T) {
	c := qt.New(t)
	s, err := curve.RandomScalar()
	c.Assert(err, qt.IsNil)

	encoded := EncodeScalar(s)
	decoded, err := DecodeScalar(encoded)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.Equal(s), qt.IsTrue)
}

func TestMaskedCardRoundTrip(t *testing.T) {
	c := qt.New(t)
	sk, err := curve.RandomScalar()
	c.Assert(err, qt.IsNil)
	jointKey := curve.MulGenerator(sk)

	mapping, err := protocol.Initialize()
	c.Assert(err, qt.IsNil)
	masked, _, err := protocol.Mask(jointKey, mapping.ToPoint[0])
	c.Assert(err, qt.IsNil)

	wire := EncodeMaskedCard(masked)
	decoded, err := DecodeMaskedCard(wire)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.C1.Equal(masked.C1), qt.IsTrue)
	c.Assert(decoded.C2.Equal(masked.C2), qt.IsTrue)
}

func TestKeyOwnershipProofRoundTrip(t *testing.T) {
	c := qt.New(t)
	key, err := protocol.GenerateKey("alice")
	c.Assert(err, qt.IsNil)

	wire := EncodeKeyOwnershipProof(key.Proof)
	decoded, err := DecodeKeyOwnershipProof(wire)
	c.Assert(err, qt.IsNil)

	ok, err := schnorr.Verify(key.PK, "alice", decoded)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}

func TestMaskingProofRoundTrip(t *testing.T) {
	c := qt.New(t)
	sk, err := curve.RandomScalar()
	c.Assert(err, qt.IsNil)
	jointKey := curve.MulGenerator(sk)

	mapping, err := protocol.Initialize()
	c.Assert(err, qt.IsNil)
	masked, proof, err := protocol.Mask(jointKey, mapping.ToPoint[1])
	c.Assert(err, qt.IsNil)

	wire := EncodeMaskingProof(proof)
	decoded, err := DecodeMaskingProof(wire)
	c.Assert(err, qt.IsNil)

	ok, err := protocol.VerifyMasking(jointKey, mapping.ToPoint[1], masked, decoded)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}

func TestRevealTokenRoundTrip(t *testing.T) {
	c := qt.New(t)
	key, err := protocol.GenerateKey("alice")
	c.Assert(err, qt.IsNil)
	jointKey := key.PK

	mapping, err := protocol.Initialize()
	c.Assert(err, qt.IsNil)
	masked, _, err := protocol.Mask(jointKey, mapping.ToPoint[2])
	c.Assert(err, qt.IsNil)

	token, err := protocol.ComputeRevealToken(key.PlayerID, key.SK, masked)
	c.Assert(err, qt.IsNil)

	wire := EncodeRevealToken(token)
	decoded, err := DecodeRevealToken(wire)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.PlayerID, qt.Equals, "alice")

	ok, err := protocol.VerifyRevealToken(key.PK, masked, decoded)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}

func TestDecodeSeedRejectsWrongLength(t *testing.T) {
	c := qt.New(t)
	// 31 bytes of zero hex-encoded.
	shortSeed := EncodeHex(make([]byte, 31))
	_, err := DecodeSeed(shortSeed)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestDecodeSeedAcceptsExactly32Bytes(t *testing.T) {
	c := qt.New(t)
	seedHex := EncodeHex(make([]byte, 32))
	seed, err := DecodeSeed(seedHex)
	c.Assert(err, qt.IsNil)
	c.Assert(seed, qt.Equals, [32]byte{})
}
