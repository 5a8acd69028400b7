// Package handshake implements the nine-state handshake state machine from
// spec section 4.1. It holds the tagged-variant state and the legality
// checks for the transition table; internal/dispatch is what actually
// drives transitions by calling the wallet, channel handler and local UI
// collaborators. Grounded in spirit on the reference application's
// phase-gated lifecycle methods (InitChain/FinalizeBlock in app.go), though
// the concrete phases here are entirely the potato handshake's own.
package handshake

import "potatochannel/internal/wire"

type Phase int

const (
	StepA Phase = iota
	StepB
	StepC
	StepD
	StepE
	PostStepE
	StepF
	PostStepF
	Finished
)

func (p Phase) String() string {
	switch p {
	case StepA:
		return "StepA"
	case StepB:
		return "StepB"
	case StepC:
		return "StepC"
	case StepD:
		return "StepD"
	case StepE:
		return "StepE"
	case PostStepE:
		return "PostStepE"
	case StepF:
		return "StepF"
	case PostStepF:
		return "PostStepF"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// State is the tagged variant of spec section 3's "Handshake state": the
// Phase tag plus the union of payload fields a given phase may have
// populated. Spec section 9's design notes explicitly allow this inline
// shape (as opposed to heap-boxed per-variant payloads) as a target-language
// choice; the payload here is small enough that inlining is simplest.
type State struct {
	Phase Phase

	// Who initiated: true if this instance is alice (held the potato at
	// construction and therefore started with StepA).
	IsAlice bool

	ParentCoin *wire.CoinString

	MyHandshakeA    *wire.HandshakeA
	MyHandshakeB    *wire.HandshakeB
	TheirHandshakeA *wire.HandshakeA
	TheirHandshakeB *wire.HandshakeB

	// Idempotency tracking for try_complete_E: fires once both the Nil
	// round trip is done locally and the wallet's channel_offer bundle has
	// arrived, whichever order they occur in.
	NilRoundTripDone             bool
	ChannelInitiationTransaction *wire.SpendBundle

	// Idempotency tracking for try_complete_F.
	ChannelFinishedTransaction *wire.SpendBundle

	// LaunchingSpend is the bundle recorded once Finished; for alice it is
	// set when try_complete_E fires (her own HandshakeE payload); for bob it
	// is set when that HandshakeE arrives at StepF. try_complete_F, and
	// alice's receipt of HandshakeF, fill it only if it is still unset.
	LaunchingSpend *wire.SpendBundle
}

// NewAlice constructs the initial state for the potato-holding peer.
func NewAlice() *State {
	return &State{Phase: StepA, IsAlice: true}
}

// NewBob constructs the initial state for the non-holding peer.
func NewBob() *State {
	return &State{Phase: StepB, IsAlice: false}
}

// LegalIncoming reports whether receiving tag in the current phase is a
// legal transition per spec section 4.1's transition table. Any tag not
// listed for the current phase is fatal (ProtocolState).
func (s *State) LegalIncoming(tag wire.Tag) bool {
	switch s.Phase {
	case StepA:
		return false // StepA only advances via a local start(), never incoming wire traffic
	case StepB:
		return tag == wire.TagHandshakeA
	case StepC:
		return tag == wire.TagHandshakeB
	case StepD:
		return tag == wire.TagNil
	case StepE:
		return tag == wire.TagNil
	case PostStepE:
		return false // only advances via the wallet's channel_offer callback
	case StepF:
		return tag == wire.TagHandshakeE
	case PostStepF:
		return false // only advances via the wallet's channel_transaction_completion callback
	case Finished:
		switch tag {
		case wire.TagHandshakeF, wire.TagRequestPotato, wire.TagNil, wire.TagMove, wire.TagAccept, wire.TagShutdown, wire.TagStartGames:
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// HandshakeFinished reports whether this instance has completed the
// handshake (potato_handler.handshake_finished in the source).
func (s *State) HandshakeFinished() bool {
	return s.Phase == Finished
}
