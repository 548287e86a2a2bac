// Package transcript implements the Fiat-Shamir transcript used by every
// non-interactive proof in the deck-agent protocol (Schnorr key-ownership,
// Chaum-Pedersen masking/reveal, and the cut-and-choose shuffle argument).
//
// The byte layout is pinned so that two independent implementations deriving
// a challenge from the same sequence of Append calls always agree:
// every appended message is length-prefixed and domain-separated, so no
// ambiguity can arise from concatenating variable-length fields.
package transcript

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/linqining/deck-agent/curve"
)

var transcriptPrefix = []byte("deck-agent/v1/transcript|")

// Transcript accumulates domain-separated messages and derives Fiat-Shamir
// challenge scalars from the accumulated byte string.
type Transcript struct {
	state []byte
}

// New starts a transcript under the given domain separator, e.g.
// "deck-agent/v1/schnorr-key-ownership".
func New(domainSep string) *Transcript {
	dst := []byte(domainSep)
	st := make([]byte, 0, len(transcriptPrefix)+4+len(dst))
	st = append(st, transcriptPrefix...)
	st = append(st, u32le(uint32(len(dst)))...)
	st = append(st, dst...)
	return &Transcript{state: st}
}

// Append binds a labeled message into the transcript.
func (t *Transcript) Append(label string, msg []byte) {
	lb := []byte(label)
	t.state = append(t.state, []byte("msg")...)
	t.state = append(t.state, u32le(uint32(len(lb)))...)
	t.state = append(t.state, lb...)
	t.state = append(t.state, u32le(uint32(len(msg)))...)
	t.state = append(t.state, msg...)
}

// ChallengeScalar derives a challenge scalar from the transcript so far and
// the label. It does not mutate the transcript's accumulated state, so
// callers may derive several independently-labeled challenges from the same
// prefix of appended messages.
func (t *Transcript) ChallengeScalar(label string) (curve.Scalar, error) {
	lb := []byte(label)
	h := sha512.New()
	h.Write(t.state)
	h.Write([]byte("challenge"))
	h.Write(u32le(uint32(len(lb))))
	h.Write(lb)
	digest := h.Sum(nil)
	s, err := curve.ScalarFromUniformBytes(digest)
	if err != nil {
		return curve.Scalar{}, fmt.Errorf("transcript: deriving challenge %q: %w", label, err)
	}
	return s, nil
}

// ChallengeBit derives a single Fiat-Shamir challenge bit, used by the
// cut-and-choose shuffle argument to pick which half of each round's
// commitment to open.
func (t *Transcript) ChallengeBit(label string) (byte, error) {
	s, err := t.ChallengeScalar(label)
	if err != nil {
		return 0, err
	}
	return s.Bytes()[0] & 1, nil
}

func u32le(x uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return b
}
