package protocol

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/linqining/deck-agent/curve"
)

func testSeed(b byte) [32]byte {
	var seed [32]byte
	for i := range seed {
		seed[i] = b
	}
	return seed
}

func TestSetupIsDeterministic(t *testing.T) {
	c := qt.New(t)

	seed := testSeed(7)
	p1 := Setup(seed)
	p2 := Setup(seed)

	c.Assert(p1.G.Equal(p2.G), qt.IsTrue)
	for i := range p1.Grid {
		c.Assert(p1.Grid[i].Equal(p2.Grid[i]), qt.IsTrue)
	}
}

func TestSetupDiffersAcrossSeeds(t *testing.T) {
	c := qt.New(t)

	p1 := Setup(testSeed(1))
	p2 := Setup(testSeed(2))

	c.Assert(p1.Grid[0].Equal(p2.Grid[0]), qt.IsFalse)
}

func TestInitializeProducesDistinctMapping(t *testing.T) {
	c := qt.New(t)

	mapping, err := Initialize()
	c.Assert(err, qt.IsNil)
	c.Assert(mapping.ToCard, qt.HasLen, DeckSize)

	for i := range DeckSize {
		idx, ok := mapping.CardIndex(mapping.ToPoint[i])
		c.Assert(ok, qt.IsTrue)
		c.Assert(idx, qt.Equals, i)
	}
}

func TestGenerateKeyAndVerifyKeyOwnership(t *testing.T) {
	c := qt.New(t)

	key, err := GenerateKey("alice")
	c.Assert(err, qt.IsNil)

	ok, err := VerifyKeyOwnership(key.PK, "alice", key.Proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	ok, err = VerifyKeyOwnership(key.PK, "bob", key.Proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

func TestAggregateKeyRejectsInvalidProof(t *testing.T) {
	c := qt.New(t)

	alice, err := GenerateKey("alice")
	c.Assert(err, qt.IsNil)
	bob, err := GenerateKey("bob")
	c.Assert(err, qt.IsNil)

	// Tamper with bob's proof by swapping in alice's.
	bob.Proof = alice.Proof

	_, err = AggregateKey([]PlayerKey{alice, bob})
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestAggregateKeySumsPublicKeys(t *testing.T) {
	c := qt.New(t)

	alice, err := GenerateKey("alice")
	c.Assert(err, qt.IsNil)
	bob, err := GenerateKey("bob")
	c.Assert(err, qt.IsNil)

	joint, err := AggregateKey([]PlayerKey{alice, bob})
	c.Assert(err, qt.IsNil)
	c.Assert(joint.Equal(alice.PK.Add(bob.PK)), qt.IsTrue)
}

func TestMaskVerifyAndUnmaskRoundTrip(t *testing.T) {
	c := qt.New(t)

	alice, err := GenerateKey("alice")
	c.Assert(err, qt.IsNil)
	jointKey := alice.PK

	mapping, err := Initialize()
	c.Assert(err, qt.IsNil)
	plaintext := mapping.ToPoint[5]

	masked, proof, err := Mask(jointKey, plaintext)
	c.Assert(err, qt.IsNil)

	ok, err := VerifyMasking(jointKey, plaintext, masked, proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	token, err := ComputeRevealToken(alice.PlayerID, alice.SK, masked)
	c.Assert(err, qt.IsNil)

	ok, err = VerifyRevealToken(alice.PK, masked, token)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	combined := CombineRevealTokens([]RevealToken{token})
	idx, err := Unmask(masked, combined, mapping)
	c.Assert(err, qt.IsNil)
	c.Assert(idx, qt.Equals, 5)
}

func TestUnmaskRejectsBogusRevealToken(t *testing.T) {
	c := qt.New(t)

	alice, err := GenerateKey("alice")
	c.Assert(err, qt.IsNil)
	jointKey := alice.PK

	mapping, err := Initialize()
	c.Assert(err, qt.IsNil)
	plaintext := mapping.ToPoint[5]

	masked, _, err := Mask(jointKey, plaintext)
	c.Assert(err, qt.IsNil)

	bogusShare, err := curve.RandomScalar()
	c.Assert(err, qt.IsNil)
	bogus := curve.MulGenerator(bogusShare)

	_, err = Unmask(masked, bogus, mapping)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestRemaskPreservesPlaintextUnderVerification(t *testing.T) {
	c := qt.New(t)

	alice, err := GenerateKey("alice")
	c.Assert(err, qt.IsNil)
	jointKey := alice.PK

	mapping, err := Initialize()
	c.Assert(err, qt.IsNil)
	plaintext := mapping.ToPoint[10]

	masked, _, err := Mask(jointKey, plaintext)
	c.Assert(err, qt.IsNil)

	remasked, proof, err := Remask(jointKey, masked)
	c.Assert(err, qt.IsNil)

	ok, err := VerifyRemasking(jointKey, masked, remasked, proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	token, err := ComputeRevealToken(alice.PlayerID, alice.SK, remasked)
	c.Assert(err, qt.IsNil)
	combined := CombineRevealTokens([]RevealToken{token})
	idx, err := Unmask(remasked, combined, mapping)
	c.Assert(err, qt.IsNil)
	c.Assert(idx, qt.Equals, 10)
}

func TestMultiPlayerJointKeyRevealRequiresAllShares(t *testing.T) {
	c := qt.New(t)

	alice, err := GenerateKey("alice")
	c.Assert(err, qt.IsNil)
	bob, err := GenerateKey("bob")
	c.Assert(err, qt.IsNil)

	jointKey, err := AggregateKey([]PlayerKey{alice, bob})
	c.Assert(err, qt.IsNil)

	mapping, err := Initialize()
	c.Assert(err, qt.IsNil)
	plaintext := mapping.ToPoint[20]

	masked, _, err := Mask(jointKey, plaintext)
	c.Assert(err, qt.IsNil)

	aliceToken, err := ComputeRevealToken(alice.PlayerID, alice.SK, masked)
	c.Assert(err, qt.IsNil)

	// Only alice's share: unmasking should not recover the right card.
	combined := CombineRevealTokens([]RevealToken{aliceToken})
	_, err = Unmask(masked, combined, mapping)
	c.Assert(err, qt.Not(qt.IsNil))

	bobToken, err := ComputeRevealToken(bob.PlayerID, bob.SK, masked)
	c.Assert(err, qt.IsNil)

	combined = CombineRevealTokens([]RevealToken{aliceToken, bobToken})
	idx, err := Unmask(masked, combined, mapping)
	c.Assert(err, qt.IsNil)
	c.Assert(idx, qt.Equals, 20)
}
