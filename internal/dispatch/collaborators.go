// Package dispatch implements the core event dispatcher of spec section 2
// item 6 (~35% of the core): the top-level received_message, start,
// start_games, make_move, accept, shut_down entry points, routing by
// current handshake phase and potato possession. It wires together
// internal/handshake, internal/potato, internal/channelhandler,
// internal/gameid and internal/wire, grounded on the reference
// application's top-level tx-type dispatch (internal/app/app.go's
// deliverTx type switch) generalized from "one validator-signed
// transaction at a time" to "one collaborator-delivered event at a time."
package dispatch

import (
	"potatochannel/internal/gameid"
	"potatochannel/internal/wire"
)

// PacketSender is the wire-transport collaborator.
type PacketSender interface {
	SendMessage(envelope []byte) error
}

// WalletSpendInterface is the outbound wallet collaborator surface.
type WalletSpendInterface interface {
	SpendTransactionAndAddFee(spend wire.SpendBundle) error
	RegisterCoin(coinID [32]byte, timeoutSeconds uint64) error
}

// BootstrapTowardWallet is the set of callbacks the core consumes but the
// wallet implements.
type BootstrapTowardWallet interface {
	ChannelPuzzleHash(puzzleHash [32]byte)
	ReceivedChannelOffer(bundle wire.SpendBundle)
	ReceivedChannelTransactionCompletion(bundle wire.SpendBundle)
}

// ToLocalUI is the outbound local-UI notification collaborator.
type ToLocalUI interface {
	OpponentMoved(id gameid.GameID, move []byte)
	GameMessage(id gameid.GameID, msg []byte)
	GameFinished(id gameid.GameID, myShare uint64)
	GameCancelled(id gameid.GameID)
	ShutdownComplete(rewardCoin [32]byte)
	GoingOnChain()
}

// FromLocalUI is the capability set the core itself implements for an outer
// UI layer to drive: PotatoHandler's StartGames/MakeMove/Accept/ShutDown
// satisfy this shape (env threaded explicitly rather than folded into the
// interface, per this package's PeerEnv-per-call convention).
type FromLocalUI interface {
	StartGames(env PeerEnv, games []wire.GameStart) ([]gameid.GameID, error)
	MakeMove(env PeerEnv, id gameid.GameID, move []byte) error
	Accept(env PeerEnv, id gameid.GameID) error
	ShutDown(env PeerEnv) error
}

// SpendWalletReceiver is the capability set the core implements for the
// wallet to report coin lifecycle events on.
type SpendWalletReceiver interface {
	CoinCreated(coinID [32]byte)
	CoinSpent(coinID [32]byte)
	CoinTimeoutReached(env PeerEnv, coinID [32]byte) error
}

var (
	_ FromLocalUI         = (*PotatoHandler)(nil)
	_ SpendWalletReceiver = (*PotatoHandler)(nil)
)

// PeerEnv bundles the collaborators a single dispatcher call needs. Spec
// section 9's design notes call for exactly this: a single context object
// carrying what an operation needs, constructed fresh per call rather than
// stored on the handler, so collaborator lifetimes never outlive one
// dispatcher entry point and re-entrant callbacks have nothing stale to
// call back into.
type PeerEnv struct {
	Transport       PacketSender
	Wallet          WalletSpendInterface
	BootstrapWallet BootstrapTowardWallet
	UI              ToLocalUI
}
