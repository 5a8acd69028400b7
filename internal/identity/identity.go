// Package identity derives a peer's three key pairs and reward puzzle hash
// from a single seed, grounded on the reference crypto package's
// key-generation helpers in internal/ocpcrypto/scalar.go.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"potatochannel/internal/potatocrypto"
)

// KeyPair is a 32-byte scalar and its derived group element, per spec
// section 3's "Peer identity" definition.
type KeyPair struct {
	Private potatocrypto.Scalar
	Public  potatocrypto.Point
}

// KeySet holds the three key pairs (channel, unroll, referee) and the
// reward puzzle hash naming where final winnings are paid.
type KeySet struct {
	Channel          KeyPair
	Unroll           KeyPair
	Referee          KeyPair
	RewardPuzzleHash [32]byte
}

// FromSeed deterministically derives a full key set from a 32-byte seed,
// using domain-separated HashToScalar derivations so the three key pairs
// are independent even though they share one seed. Used by tests and by
// the simulator CLI, which derives each peer from a fixed one-byte seed.
func FromSeed(seed [32]byte) (KeySet, error) {
	channelPriv, err := potatocrypto.ScalarFromSeed("potatochannel/v1/identity/channel", seed[:])
	if err != nil {
		return KeySet{}, fmt.Errorf("identity: derive channel key: %w", err)
	}
	unrollPriv, err := potatocrypto.ScalarFromSeed("potatochannel/v1/identity/unroll", seed[:])
	if err != nil {
		return KeySet{}, fmt.Errorf("identity: derive unroll key: %w", err)
	}
	refereePriv, err := potatocrypto.ScalarFromSeed("potatochannel/v1/identity/referee", seed[:])
	if err != nil {
		return KeySet{}, fmt.Errorf("identity: derive referee key: %w", err)
	}

	rewardInput := sha256.Sum256(append([]byte("potatochannel/v1/identity/reward-ph|"), seed[:]...))

	return KeySet{
		Channel:          KeyPair{Private: channelPriv, Public: potatocrypto.MulBase(channelPriv)},
		Unroll:           KeyPair{Private: unrollPriv, Public: potatocrypto.MulBase(unrollPriv)},
		Referee:          KeyPair{Private: refereePriv, Public: potatocrypto.MulBase(refereePriv)},
		RewardPuzzleHash: rewardInput,
	}, nil
}

// Random generates a fresh key set from a seed drawn from the operating
// system CSPRNG.
func Random() (KeySet, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return KeySet{}, fmt.Errorf("identity: rand seed: %w", err)
	}
	return FromSeed(seed)
}
