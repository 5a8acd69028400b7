package dispatch

import (
	"crypto/sha256"

	"potatochannel/internal/channelhandler"
	"potatochannel/internal/gameid"
	"potatochannel/internal/handshake"
	"potatochannel/internal/identity"
	"potatochannel/internal/potato"
	"potatochannel/internal/potatoerr"
	"potatochannel/internal/wire"
)

// refereePuzzleHash derives the referee puzzle hash advertised in the
// handshake greetings from the referee public key, standing in for the real
// referee coin's puzzle currying (out of scope per section 1).
func refereePuzzleHash(keys identity.KeySet) [32]byte {
	return sha256.Sum256(keys.Referee.Public.Bytes())
}

// PotatoHandler is one peer's instance: the handshake state machine, the
// potato scheduler, and (once created) the channel handler, per spec
// section 3's "Potato-handler instance" attributes.
type PotatoHandler struct {
	identity          identity.KeySet
	myContribution    uint64
	theirContribution uint64

	hs        *handshake.State
	scheduler *potato.Scheduler
	channel   *channelhandler.Handler
	allocator gameid.Allocator

	knownGames map[gameid.GameID]struct{}
}

// New constructs an instance per spec section 3's lifecycle:
// (have_potato, private_keys, my_contribution, their_contribution,
// reward_puzzle_hash). have_potato fixes the role: true means alice.
func New(haveInitialPotato bool, keys identity.KeySet, myContribution, theirContribution uint64) *PotatoHandler {
	var hs *handshake.State
	if haveInitialPotato {
		hs = handshake.NewAlice()
	} else {
		hs = handshake.NewBob()
	}
	return &PotatoHandler{
		identity:          keys,
		myContribution:    myContribution,
		theirContribution: theirContribution,
		hs:                hs,
		scheduler:         potato.NewScheduler(haveInitialPotato),
		knownGames:        make(map[gameid.GameID]struct{}),
	}
}

// HandshakeFinished reports whether the instance has reached Finished.
func (p *PotatoHandler) HandshakeFinished() bool {
	return p.hs.HandshakeFinished()
}

// HavePotato reports current potato possession.
func (p *PotatoHandler) HavePotato() bool {
	return p.scheduler.HavePotato()
}

func (p *PotatoHandler) sendEnvelope(env PeerEnv, msg wire.Message) error {
	b, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if err := env.Transport.SendMessage(b); err != nil {
		return potatoerr.Wrap(potatoerr.KindWalletRejection, err, "send_message failed")
	}
	return nil
}

