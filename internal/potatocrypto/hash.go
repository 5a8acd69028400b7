package potatocrypto

import (
	"crypto/sha512"
	"fmt"
	"hash"
)

var hashToScalarPrefix = []byte("potatochannel|hash_to_scalar|v1|")

func updateLenBytes(h hash.Hash, b []byte) {
	h.Write(u32le(uint32(len(b))))
	h.Write(b)
}

// HashToScalar derives a scalar deterministically from a domain separator
// and an arbitrary number of byte strings.
func HashToScalar(domainSep string, msgs ...[]byte) (Scalar, error) {
	h := sha512.New()
	h.Write(hashToScalarPrefix)
	updateLenBytes(h, []byte(domainSep))
	for _, m := range msgs {
		if m == nil {
			return Scalar{}, fmt.Errorf("hashToScalar: nil msg")
		}
		updateLenBytes(h, m)
	}
	digest := h.Sum(nil)
	return ScalarFromUniformBytes(digest)
}
