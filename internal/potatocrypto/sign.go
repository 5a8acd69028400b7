package potatocrypto

import "fmt"

const potatoSignDomain = "potatochannel/v1/potato-sign"

// PotatoSignature is a Schnorr signature over ristretto255, built from the
// same transcript/challenge-scalar idiom the reference crypto package uses
// for its Chaum-Pedersen proofs: R = k*G, s = k + e*x, e bound to the
// signer's public key and the message transcript.
type PotatoSignature struct {
	R Point
	S Scalar
}

// PotatoSignatures is the opaque pair of partial signatures spec section 3
// attaches to every state-advancing wire message: the sender's freshly
// produced signature over the new state, paired with the most recently
// received counterparty signature the channel handler is holding. Together
// the pair is what lets either side unroll the channel coin unilaterally.
type PotatoSignatures struct {
	Mine  PotatoSignature
	Their PotatoSignature
}

func (p PotatoSignature) IsZero() bool {
	return p.S.IsZero() && p.R.e == nil
}

// Sign produces a Schnorr signature binding priv's public key to a
// transcript built from tag and stateDigest, using k drawn from the
// session's deterministic nonce scalar (ephemeral randomness is derived,
// not reused, so replays of the same call are non-deterministic only in
// the k the caller supplies).
func Sign(priv Scalar, pub Point, k Scalar, tag string, stateDigest []byte) (PotatoSignature, error) {
	if k.IsZero() {
		return PotatoSignature{}, fmt.Errorf("potatocrypto: nonce must be non-zero")
	}
	r := MulBase(k)
	e, err := challengeScalar(pub, r, tag, stateDigest)
	if err != nil {
		return PotatoSignature{}, err
	}
	s := ScalarAdd(k, ScalarMul(e, priv))
	return PotatoSignature{R: r, S: s}, nil
}

// Verify checks sig against pub for the same (tag, stateDigest) transcript
// used in Sign. A zero signature (no prior counterparty signature exists
// yet, as for the very first Nil of a session) always verifies as absent
// rather than invalid; callers must check IsZero separately when a
// signature is actually required.
func Verify(pub Point, sig PotatoSignature, tag string, stateDigest []byte) (bool, error) {
	if sig.IsZero() {
		return false, nil
	}
	e, err := challengeScalar(pub, sig.R, tag, stateDigest)
	if err != nil {
		return false, err
	}
	lhs := MulBase(sig.S)
	rhs := PointAdd(sig.R, MulPoint(pub, e))
	return PointEq(lhs, rhs), nil
}

// DeriveNonce deterministically derives the ephemeral scalar k for Sign from
// the signer's private key, the transcript tag and digest, and a per-signer
// monotone counter, so tests are reproducible and no CSPRNG call sits inside
// the single-threaded dispatcher's call path.
func DeriveNonce(priv Scalar, tag string, stateDigest []byte, counter uint64) (Scalar, error) {
	ctr := u64le(counter)
	return HashToScalar("potatochannel/v1/nonce", priv.Bytes(), []byte(tag), stateDigest, ctr)
}

func challengeScalar(pub Point, r Point, tag string, stateDigest []byte) (Scalar, error) {
	tr := NewTranscript(potatoSignDomain)
	if err := tr.AppendMessage("pub", pub.Bytes()); err != nil {
		return Scalar{}, err
	}
	if err := tr.AppendMessage("r", r.Bytes()); err != nil {
		return Scalar{}, err
	}
	if err := tr.AppendMessage("tag", []byte(tag)); err != nil {
		return Scalar{}, err
	}
	if err := tr.AppendMessage("digest", stateDigest); err != nil {
		return Scalar{}, err
	}
	return tr.ChallengeScalar("e")
}
