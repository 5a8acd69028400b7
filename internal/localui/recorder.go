// Package localui provides dispatch.ToLocalUI implementations: Recorder, an
// in-memory collector for tests and the simulator's scripted scenarios, and
// CLI, a logging front-end for cmd/potatosim's interactive runs.
package localui

import (
	"sync"

	"potatochannel/internal/gameid"
)

// MoveEvent records one OpponentMoved notification.
type MoveEvent struct {
	GameID gameid.GameID
	Move   []byte
}

// GameMessageEvent records one GameMessage notification.
type GameMessageEvent struct {
	GameID gameid.GameID
	Msg    []byte
}

// GameFinishedEvent records one GameFinished notification.
type GameFinishedEvent struct {
	GameID  gameid.GameID
	MyShare uint64
}

// Recorder implements dispatch.ToLocalUI by appending every notification to
// a slice under a mutex, for assertions in higher-level tests and the
// simulator's scripted scenarios.
type Recorder struct {
	mu sync.Mutex

	Moved      []MoveEvent
	Messages   []GameMessageEvent
	Finished   []GameFinishedEvent
	Cancelled  []gameid.GameID
	Shutdowns  [][32]byte
	OnChainHit int
}

func (r *Recorder) OpponentMoved(id gameid.GameID, move []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Moved = append(r.Moved, MoveEvent{GameID: id, Move: append([]byte{}, move...)})
}

func (r *Recorder) GameMessage(id gameid.GameID, msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, GameMessageEvent{GameID: id, Msg: append([]byte{}, msg...)})
}

func (r *Recorder) GameFinished(id gameid.GameID, myShare uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = append(r.Finished, GameFinishedEvent{GameID: id, MyShare: myShare})
}

func (r *Recorder) GameCancelled(id gameid.GameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cancelled = append(r.Cancelled, id)
}

func (r *Recorder) ShutdownComplete(rewardCoin [32]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Shutdowns = append(r.Shutdowns, rewardCoin)
}

func (r *Recorder) GoingOnChain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.OnChainHit++
}
