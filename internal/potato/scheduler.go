// Package potato implements the exclusion token and the two intent FIFOs
// from spec section 4.2: the potato scheduler. It owns no wire or crypto
// knowledge; internal/dispatch drives it and turns its decisions into
// signed outbound messages. Grounded on the reference application's
// poker.go turn-holder bookkeeping (BetTo/IntervalID/needsToAct), the
// closest teacher analog of a single-holder exclusive-turn discipline,
// adapted from "whose turn in the betting round" to "who may speak next."
package potato

import (
	"potatochannel/internal/gameid"
	"potatochannel/internal/wire"
)

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionStartGames
	ActionMove
	ActionAccept
	ActionShutdown
)

type MoveIntent struct {
	GameID  gameid.GameID
	Payload []byte
}

type AcceptIntent struct {
	GameID gameid.GameID
}

// Action is the scheduler's decision for what to send now that the potato
// has just been acquired (or retained).
type Action struct {
	Kind              ActionKind
	StartGames        []wire.GameStart
	Move              MoveIntent
	Accept            AcceptIntent
	AlsoRequestPotato bool
}

// Scheduler tracks potato possession and the four queued-intent kinds, and
// implements the draining discipline of spec section 4.2.
type Scheduler struct {
	havePotato bool

	myStart [][]wire.GameStart
	moves   []MoveIntent
	accepts []AcceptIntent

	shutdownPending bool

	// their_start_queue: batches received from the counterparty, held here
	// only until the dispatcher delivers them to the local UI / game layer.
	theirStart [][]wire.GameStart

	potatoRequestPending bool
}

func NewScheduler(havePotato bool) *Scheduler {
	return &Scheduler{havePotato: havePotato}
}

func (s *Scheduler) HavePotato() bool { return s.havePotato }

// MarkSent clears the flag after a state-advancing message is sent.
func (s *Scheduler) MarkSent() { s.havePotato = false }

// MarkReceived sets the flag after a state-advancing message is received,
// and clears any outstanding RequestPotato suppression.
func (s *Scheduler) MarkReceived() {
	s.havePotato = true
	s.potatoRequestPending = false
}

// requestIfNeeded reports whether a RequestPotato must be sent because the
// scheduler does not hold the potato and no request is currently
// outstanding; it marks one as outstanding as a side effect.
func (s *Scheduler) requestIfNeeded() bool {
	if s.havePotato || s.potatoRequestPending {
		return false
	}
	s.potatoRequestPending = true
	return true
}

// EnqueueStartGames records a locally-initiated start-games batch, per
// spec's my_start_queue; returns true if a RequestPotato must be sent
// because the potato is not currently held.
func (s *Scheduler) EnqueueStartGames(batch []wire.GameStart) bool {
	s.myStart = append(s.myStart, batch)
	return s.requestIfNeeded()
}

func (s *Scheduler) EnqueueMove(m MoveIntent) bool {
	s.moves = append(s.moves, m)
	return s.requestIfNeeded()
}

func (s *Scheduler) EnqueueAccept(a AcceptIntent) bool {
	s.accepts = append(s.accepts, a)
	return s.requestIfNeeded()
}

func (s *Scheduler) EnqueueShutdown() bool {
	s.shutdownPending = true
	return s.requestIfNeeded()
}

// ReceiveStartGames records an inbound batch in their_start_queue. The
// dispatcher is expected to drain it immediately after recording it; the
// queue exists mainly so tests can assert on ordering the same way they
// assert on my_start_queue.
func (s *Scheduler) ReceiveStartGames(batch []wire.GameStart) {
	s.theirStart = append(s.theirStart, batch)
}

// DrainTheirStartGames pops and returns all buffered inbound batches in
// receipt order, clearing the queue.
func (s *Scheduler) DrainTheirStartGames() [][]wire.GameStart {
	out := s.theirStart
	s.theirStart = nil
	return out
}

// pending reports whether any queue or flag still holds a local intent; if
// so it also marks a RequestPotato as outstanding, mirroring
// requestIfNeeded, so a later Enqueue call doesn't fire a second redundant
// one before this one's request round-trips.
func (s *Scheduler) pending() bool {
	if len(s.myStart) == 0 && len(s.moves) == 0 && len(s.accepts) == 0 && !s.shutdownPending {
		return false
	}
	s.potatoRequestPending = true
	return true
}

// Drain implements the draining discipline: called once the potato is
// acquired (or retained), it returns the single highest-priority pending
// action, in the fixed order start-games, move, accept, shutdown. Whatever
// action is returned, AlsoRequestPotato is set if any other intent remains
// queued behind it, since the potato is about to be released to send this
// one and nothing else will otherwise ask for it back.
func (s *Scheduler) Drain() Action {
	if !s.havePotato {
		return Action{Kind: ActionNone}
	}
	if len(s.myStart) > 0 {
		batch := s.myStart[0]
		s.myStart = s.myStart[1:]
		return Action{Kind: ActionStartGames, StartGames: batch, AlsoRequestPotato: s.pending()}
	}
	if len(s.moves) > 0 {
		mv := s.moves[0]
		s.moves = s.moves[1:]
		return Action{Kind: ActionMove, Move: mv, AlsoRequestPotato: s.pending()}
	}
	if len(s.accepts) > 0 {
		ac := s.accepts[0]
		s.accepts = s.accepts[1:]
		return Action{Kind: ActionAccept, Accept: ac, AlsoRequestPotato: s.pending()}
	}
	if s.shutdownPending {
		s.shutdownPending = false
		return Action{Kind: ActionShutdown, AlsoRequestPotato: s.pending()}
	}
	return Action{Kind: ActionNone}
}

// Empty reports whether every queue and pending flag is empty, used by
// tests asserting a fully-drained scheduler at the end of a scenario.
func (s *Scheduler) Empty() bool {
	return len(s.myStart) == 0 && len(s.moves) == 0 && len(s.accepts) == 0 && !s.shutdownPending
}
