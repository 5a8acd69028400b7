package localui

import (
	"encoding/hex"

	"cosmossdk.io/log"

	"potatochannel/internal/gameid"
)

// CLI implements dispatch.ToLocalUI by logging each notification through
// the shared structured logger, for cmd/potatosim's interactive runs.
type CLI struct {
	Log log.Logger
}

func (c CLI) OpponentMoved(id gameid.GameID, move []byte) {
	c.Log.Info("opponent moved", "game", hex.EncodeToString(id[:]), "moveBytes", len(move))
}

func (c CLI) GameMessage(id gameid.GameID, msg []byte) {
	c.Log.Info("game message", "game", hex.EncodeToString(id[:]), "msgBytes", len(msg))
}

func (c CLI) GameFinished(id gameid.GameID, myShare uint64) {
	c.Log.Info("game finished", "game", hex.EncodeToString(id[:]), "myShare", myShare)
}

func (c CLI) GameCancelled(id gameid.GameID) {
	c.Log.Info("game cancelled", "game", hex.EncodeToString(id[:]))
}

func (c CLI) ShutdownComplete(rewardCoin [32]byte) {
	c.Log.Info("shutdown complete", "rewardCoin", hex.EncodeToString(rewardCoin[:]))
}

func (c CLI) GoingOnChain() {
	c.Log.Error("going on chain: counterparty unresponsive, falling back to unilateral close")
}
