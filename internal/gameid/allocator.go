// Package gameid implements the deterministic monotone 32-byte game-id
// counter from spec section 4.5, grounded on the reference state package's
// DeterministicDeck hash-seeded sequence idiom (internal/state/state.go)
// applied to a carry-incremented counter instead of a Fisher-Yates shuffle.
package gameid

import (
	"crypto/sha256"

	"potatochannel/internal/potatoerr"
)

const Size = 32

// GameID is an opaque 32-byte game identifier.
type GameID [Size]byte

// Allocator produces a strictly monotone sequence of game ids, seeded once
// from the three private keys of a peer's identity. Calling Next before
// Seed is a caller bug, reported as AllocatorUnseeded rather than panicking,
// since the dispatcher must be able to turn it into a typed error.
type Allocator struct {
	seeded  bool
	current GameID
}

// Seed derives the initial counter value as H(channelPriv || unrollPriv ||
// refereePriv) and primes the allocator. Re-seeding is a no-op safeguard:
// the handshake only ever seeds once, at Step C/B completion, but Seed is
// idempotent so a defensive re-seed attempt does not reset the sequence.
func (a *Allocator) Seed(channelPriv, unrollPriv, refereePriv []byte) {
	if a.seeded {
		return
	}
	h := sha256.New()
	h.Write(channelPriv)
	h.Write(unrollPriv)
	h.Write(refereePriv)
	var id GameID
	copy(id[:], h.Sum(nil))
	a.current = id
	a.seeded = true
}

// Seeded reports whether Seed has been called.
func (a *Allocator) Seeded() bool {
	return a.seeded
}

// Next returns the current counter value and then increments it in
// little-endian byte order (carry propagates from byte 0 upward), per spec
// section 4.5. Wraparound at 2^256 is allowed and silently produces the
// all-zero id again; the protocol's lifetime never observes it in practice.
func (a *Allocator) Next() (GameID, error) {
	if !a.seeded {
		return GameID{}, potatoerr.New(potatoerr.KindAllocatorUnseeded, "next_game_id called before Step C/B seeded the allocator")
	}
	out := a.current
	for i := 0; i < Size; i++ {
		a.current[i]++
		if a.current[i] != 0 {
			break
		}
		// carry into the next byte
	}
	return out, nil
}
