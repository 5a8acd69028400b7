package potatocrypto

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := ScalarFromSeed("test/priv", []byte("alice-channel-key"))
	if err != nil {
		t.Fatalf("derive priv: %v", err)
	}
	pub := MulBase(priv)

	digest := []byte("some channel state digest")
	k, err := DeriveNonce(priv, "nil", digest, 0)
	if err != nil {
		t.Fatalf("derive nonce: %v", err)
	}

	sig, err := Sign(priv, pub, k, "nil", digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, err := Verify(pub, sig, "nil", digest)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedDigest(t *testing.T) {
	priv, _ := ScalarFromSeed("test/priv", []byte("bob-channel-key"))
	pub := MulBase(priv)
	digest := []byte("digest-one")
	k, _ := DeriveNonce(priv, "move", digest, 7)
	sig, err := Sign(priv, pub, k, "move", digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, err := Verify(pub, sig, "move", []byte("digest-two"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected signature over tampered digest to fail verification")
	}
}

func TestVerifyZeroSignatureIsAbsent(t *testing.T) {
	priv, _ := ScalarFromSeed("test/priv", []byte("carol-channel-key"))
	pub := MulBase(priv)
	ok, err := Verify(pub, PotatoSignature{}, "nil", []byte("digest"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("zero signature must not verify as present")
	}
}

func TestScalarFromSeedDeterministic(t *testing.T) {
	s1, err := ScalarFromSeed("test/seed", []byte("same-input"))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	s2, err := ScalarFromSeed("test/seed", []byte("same-input"))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !s1.Equal(s2) {
		t.Fatalf("expected deterministic derivation to be stable")
	}
}
