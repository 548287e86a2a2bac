// Package curve wraps the ristretto255 prime-order group used by every
// cryptographic primitive in the deck-agent protocol: parameter generation,
// key ownership proofs, masking/remasking, shuffling and reveal tokens all
// operate on curve.Point and curve.Scalar rather than on raw group-library
// types, so the rest of the codebase never imports ristretto255 directly.
package curve

import (
	"crypto/rand"
	"fmt"

	"github.com/gtank/ristretto255"
)

// PointSize and ScalarSize are the canonical wire sizes of every group
// element and scalar in this protocol.
const (
	PointSize  = 32
	ScalarSize = 32
)

// Point is a ristretto255 group element in its canonical encoding.
type Point struct {
	v ristretto255.Element
}

// Scalar is a ristretto255 scalar in its canonical little-endian encoding.
type Scalar struct {
	v ristretto255.Scalar
}

// Identity returns the group identity element.
func Identity() Point {
	var p Point
	p.v.Zero()
	return p
}

// Generator returns the fixed base point G of the group.
func Generator() Point {
	var p Point
	p.v.Base()
	return p
}

// PointFromBytes decodes a canonical 32-byte ristretto255 encoding. It
// rejects any bit pattern that does not correspond to a unique member of the
// prime-order group, which is exactly the "off-curve or non-canonical
// encoding" rejection spec.md's codec invariant requires.
func PointFromBytes(b []byte) (Point, error) {
	if len(b) != PointSize {
		return Point{}, fmt.Errorf("curve: point must be %d bytes, got %d", PointSize, len(b))
	}
	var p Point
	if _, err := p.v.SetCanonicalBytes(b); err != nil {
		return Point{}, fmt.Errorf("curve: non-canonical point encoding: %w", err)
	}
	return p, nil
}

// Bytes returns the canonical 32-byte encoding of p.
func (p Point) Bytes() []byte {
	return p.v.Bytes()
}

// Equal reports whether p and q encode the same group element.
func (p Point) Equal(q Point) bool {
	return p.v.Equal(&q.v) == 1
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	var out Point
	out.v.Add(&p.v, &q.v)
	return out
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	var out Point
	out.v.Subtract(&p.v, &q.v)
	return out
}

// Neg returns -p.
func (p Point) Neg() Point {
	var out Point
	out.v.Negate(&p.v)
	return out
}

// Mul returns k*p.
func (p Point) Mul(k Scalar) Point {
	var out Point
	out.v.ScalarMult(&k.v, &p.v)
	return out
}

// MulGenerator returns k*G, the base-point scalar multiplication.
func MulGenerator(k Scalar) Point {
	var out Point
	out.v.ScalarBaseMult(&k.v)
	return out
}

// ScalarZero returns the additive identity scalar.
func ScalarZero() Scalar {
	return Scalar{}
}

// ScalarFromBytes decodes a canonical 32-byte little-endian scalar.
func ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != ScalarSize {
		return Scalar{}, fmt.Errorf("curve: scalar must be %d bytes, got %d", ScalarSize, len(b))
	}
	var s Scalar
	if _, err := s.v.SetCanonicalBytes(b); err != nil {
		return Scalar{}, fmt.Errorf("curve: non-canonical scalar encoding: %w", err)
	}
	return s, nil
}

// ScalarFromUniformBytes reduces 64 bytes of uniform randomness (such as a
// hash digest) into a scalar. Used by Fiat-Shamir challenge derivation and by
// RandomScalar.
func ScalarFromUniformBytes(b []byte) (Scalar, error) {
	if len(b) != 64 {
		return Scalar{}, fmt.Errorf("curve: uniform bytes must be 64, got %d", len(b))
	}
	var s Scalar
	s.v.FromUniformBytes(b)
	return s, nil
}

// RandomScalar draws a cryptographically random, uniformly distributed
// scalar using crypto/rand.
func RandomScalar() (Scalar, error) {
	var buf [64]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Scalar{}, fmt.Errorf("curve: reading randomness: %w", err)
	}
	return ScalarFromUniformBytes(buf[:])
}

// Bytes returns the canonical 32-byte little-endian encoding of s.
func (s Scalar) Bytes() []byte {
	return s.v.Bytes()
}

// IsZero reports whether s is the additive identity.
func (s Scalar) IsZero() bool {
	var z ristretto255.Scalar
	return s.v.Equal(&z) == 1
}

// Equal reports whether s and t are the same scalar.
func (s Scalar) Equal(t Scalar) bool {
	return s.v.Equal(&t.v) == 1
}

// Add returns s+t.
func (s Scalar) Add(t Scalar) Scalar {
	var out Scalar
	out.v.Add(&s.v, &t.v)
	return out
}

// Sub returns s-t.
func (s Scalar) Sub(t Scalar) Scalar {
	var out Scalar
	out.v.Subtract(&s.v, &t.v)
	return out
}

// Mul returns s*t.
func (s Scalar) Mul(t Scalar) Scalar {
	var out Scalar
	out.v.Multiply(&s.v, &t.v)
	return out
}

// Neg returns -s.
func (s Scalar) Neg() Scalar {
	var out Scalar
	out.v.Negate(&s.v)
	return out
}

// Inv returns the multiplicative inverse of s. It errors on a zero scalar.
func (s Scalar) Inv() (Scalar, error) {
	if s.IsZero() {
		return Scalar{}, fmt.Errorf("curve: cannot invert zero scalar")
	}
	var out Scalar
	out.v.Invert(&s.v)
	return out, nil
}

// ScalarFromUint64 deterministically maps a small non-negative integer onto
// a scalar (x encoded little-endian).
func ScalarFromUint64(x uint64) Scalar {
	var b [32]byte
	for i := range 8 {
		b[i] = byte(x >> (8 * i))
	}
	var s Scalar
	if _, err := s.v.SetCanonicalBytes(b[:]); err != nil {
		// x < 2^64 is always < group order, so this cannot happen.
		panic(fmt.Sprintf("curve: unreachable scalar encoding failure: %v", err))
	}
	return s
}
