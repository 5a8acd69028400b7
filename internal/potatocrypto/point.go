package potatocrypto

import (
	"fmt"

	"github.com/gtank/ristretto255"
)

const PointBytes = 32

// Point is a ristretto255 group element, used for public keys and the
// commitment R of every Schnorr potato signature.
type Point struct {
	e *ristretto255.Element
}

func newPoint() Point {
	return Point{e: ristretto255.NewElement()}
}

// PointIdentity returns the group identity element.
func PointIdentity() Point {
	p := newPoint()
	p.e.Zero()
	return p
}

// MulBase returns s*G for the ristretto255 basepoint G.
func MulBase(s Scalar) Point {
	p := newPoint()
	p.e.ScalarBaseMult(&s.v)
	return p
}

// MulPoint returns s*P.
func MulPoint(p Point, s Scalar) Point {
	out := newPoint()
	out.e.ScalarMult(&s.v, p.e)
	return out
}

func PointAdd(a, b Point) Point {
	out := newPoint()
	out.e.Add(a.e, b.e)
	return out
}

func PointSub(a, b Point) Point {
	out := newPoint()
	out.e.Subtract(a.e, b.e)
	return out
}

func PointEq(a, b Point) bool {
	if a.e == nil || b.e == nil {
		return a.e == b.e
	}
	return a.e.Equal(b.e) == 1
}

func (p Point) Bytes() []byte {
	if p.e == nil {
		return make([]byte, PointBytes)
	}
	return p.e.Encode(nil)
}

func PointFromBytesCanonical(b []byte) (Point, error) {
	if len(b) != PointBytes {
		return Point{}, fmt.Errorf("point: expected %d bytes", PointBytes)
	}
	p := newPoint()
	if err := p.e.Decode(b); err != nil {
		return Point{}, fmt.Errorf("point: invalid encoding: %w", err)
	}
	return p, nil
}
