// Package potatocrypto implements the ristretto255-based group arithmetic,
// transcripts and signature scheme backing the channel handler. It is the
// from-scratch equivalent of a production channel handler's cryptographic
// core: the potato handler never reaches into it directly, only through
// internal/channelhandler.
package potatocrypto

import (
	"crypto/rand"
	"fmt"

	"github.com/gtank/ristretto255"
)

const ScalarBytes = 32

// Scalar is a ristretto255 scalar (canonical 32-byte little-endian encoding).
type Scalar struct {
	v ristretto255.Scalar
}

func ScalarZero() Scalar {
	return Scalar{}
}

func ScalarFromBytesCanonical(b []byte) (Scalar, error) {
	if len(b) != ScalarBytes {
		return Scalar{}, fmt.Errorf("scalar: expected %d bytes", ScalarBytes)
	}
	var s Scalar
	if _, err := s.v.SetCanonicalBytes(b); err != nil {
		return Scalar{}, fmt.Errorf("scalar: non-canonical: %w", err)
	}
	return s, nil
}

func ScalarFromUniformBytes(b []byte) (Scalar, error) {
	if len(b) != 64 {
		return Scalar{}, fmt.Errorf("scalar: expected 64 uniform bytes")
	}
	var s Scalar
	s.v.FromUniformBytes(b)
	return s, nil
}

// ScalarFromSeed derives a scalar deterministically from an arbitrary-length
// seed by stretching it through SHA-512 into the 64 uniform bytes the group
// needs, the same stretch-then-reduce idiom the reference crypto package
// uses for HashToScalar.
func ScalarFromSeed(domainSep string, seed []byte) (Scalar, error) {
	return HashToScalar(domainSep, seed)
}

// ScalarRandom draws a fresh scalar from the operating system CSPRNG, for
// peer identity generation outside of tests.
func ScalarRandom() (Scalar, error) {
	var uni [64]byte
	if _, err := rand.Read(uni[:]); err != nil {
		return Scalar{}, fmt.Errorf("scalar: rand: %w", err)
	}
	return ScalarFromUniformBytes(uni[:])
}

func (s Scalar) Bytes() []byte {
	return s.v.Bytes()
}

func (s Scalar) IsZero() bool {
	var z ristretto255.Scalar
	return s.v.Equal(&z) == 1
}

func (s Scalar) Equal(o Scalar) bool {
	return s.v.Equal(&o.v) == 1
}

func ScalarAdd(a, b Scalar) Scalar {
	var out Scalar
	out.v.Add(&a.v, &b.v)
	return out
}

func ScalarSub(a, b Scalar) Scalar {
	var out Scalar
	out.v.Subtract(&a.v, &b.v)
	return out
}

func ScalarMul(a, b Scalar) Scalar {
	var out Scalar
	out.v.Multiply(&a.v, &b.v)
	return out
}

func ScalarNeg(a Scalar) Scalar {
	var out Scalar
	out.v.Negate(&a.v)
	return out
}
