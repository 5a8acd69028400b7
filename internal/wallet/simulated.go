// Package wallet implements a simulated in-memory UTXO ledger standing in
// for the real chain-aware wallet collaborator: dispatch.WalletSpendInterface
// plus the BootstrapTowardWallet wiring a running simulator needs, over a
// coin set keyed by 32-byte coin ID. Grounded on the reference application's
// internal/state.State bank ledger (Credit/Debit over a balance map) and
// bonds.go's "eject on depletion" event-emission idiom, generalized from
// named-account balances to anonymous coins; timeouts follow section 5's
// "timeouts are the wallet's responsibility" via time.Timer, the same
// idiom the reference application's poker action-deadline ticking uses,
// adapted from polled ticks to a fired channel event since this wallet has
// no surrounding consensus clock to poll against.
package wallet

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"potatochannel/internal/identity"
	"potatochannel/internal/potatocrypto"
	"potatochannel/internal/potatoerr"
	"potatochannel/internal/wire"
)

// Coin is one entry of the simulated UTXO set.
type Coin struct {
	ID         [32]byte
	PuzzleHash [32]byte
	Amount     uint64
	Spent      bool
}

// TimeoutEvent is delivered on Simulated.Timeouts() when a registered coin's
// watch window elapses without a corresponding CoinSpent/CoinCreated
// observation; the owning event loop turns it into a
// PotatoHandler.CoinTimeoutReached call.
type TimeoutEvent struct {
	CoinID [32]byte
}

// Simulated is a per-peer in-memory wallet.
type Simulated struct {
	mu sync.Mutex

	self  identity.KeySet
	coins map[[32]byte]Coin
	nonce uint64

	timers  map[[32]byte]*time.Timer
	timeout chan TimeoutEvent

	offers      chan wire.SpendBundle
	completions chan wire.SpendBundle
}

// NewSimulated constructs a wallet owned by the peer identified by self,
// pre-funded with one coin of the given amount to serve as the handshake's
// parent coin.
func NewSimulated(self identity.KeySet, initialAmount uint64) *Simulated {
	w := &Simulated{
		self:        self,
		coins:       map[[32]byte]Coin{},
		timers:      map[[32]byte]*time.Timer{},
		timeout:     make(chan TimeoutEvent, 16),
		offers:      make(chan wire.SpendBundle, 4),
		completions: make(chan wire.SpendBundle, 4),
	}
	parent := w.mintCoin(w.puzzleHash(initialAmount), initialAmount)
	w.coins[parent.ID] = parent
	return w
}

// ParentCoin returns the coin seeded at construction, for use as the
// handshake's start(parent_coin) argument.
func (w *Simulated) ParentCoin() wire.CoinString {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.coins {
		if !c.Spent {
			return wire.CoinString{CoinID: c.ID, PuzzleHash: c.PuzzleHash, Amount: c.Amount}
		}
	}
	return wire.CoinString{}
}

// Offers delivers channel_offer bundles produced by ChannelPuzzleHash, for
// the owning event loop to forward into PotatoHandler.ChannelOffer.
func (w *Simulated) Offers() <-chan wire.SpendBundle { return w.offers }

// Completions delivers channel_transaction_completion bundles produced by
// ReceivedChannelOffer, for the owning event loop to forward into
// PotatoHandler.ChannelTransactionCompletion.
func (w *Simulated) Completions() <-chan wire.SpendBundle { return w.completions }

// Timeouts delivers coin-watch expirations, for the owning event loop to
// forward into PotatoHandler.CoinTimeoutReached.
func (w *Simulated) Timeouts() <-chan TimeoutEvent { return w.timeout }

func (w *Simulated) puzzleHash(amount uint64) [32]byte {
	w.nonce++
	h := sha256.New()
	h.Write([]byte("potatochannel/v1/wallet/puzzle-hash"))
	h.Write(w.self.Channel.Public.Bytes())
	var amtB [8]byte
	binary.LittleEndian.PutUint64(amtB[:], amount)
	h.Write(amtB[:])
	var nonceB [8]byte
	binary.LittleEndian.PutUint64(nonceB[:], w.nonce)
	h.Write(nonceB[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (w *Simulated) mintCoin(puzzleHash [32]byte, amount uint64) Coin {
	h := sha256.New()
	h.Write([]byte("potatochannel/v1/wallet/coin-id"))
	h.Write(puzzleHash[:])
	var amtB [8]byte
	binary.LittleEndian.PutUint64(amtB[:], amount)
	h.Write(amtB[:])
	var id [32]byte
	copy(id[:], h.Sum(nil))
	return Coin{ID: id, PuzzleHash: puzzleHash, Amount: amount}
}

// sign produces a local signature over a spend digest, standing in for the
// "real ristretto255-based aggregate" of both peers' partial signatures; a
// faithful two-party aggregate would need the counterparty's channel
// private key material, which the wallet collaborator never holds, so this
// wallet aggregates only its own side's contribution.
func (w *Simulated) sign(digest []byte) ([]byte, error) {
	k, err := potatocrypto.DeriveNonce(w.self.Channel.Private, "wallet-spend", digest, w.nonce)
	if err != nil {
		return nil, potatoerr.Wrap(potatoerr.KindWalletRejection, err, "derive wallet spend nonce")
	}
	sig, err := potatocrypto.Sign(w.self.Channel.Private, w.self.Channel.Public, k, "wallet-spend", digest)
	if err != nil {
		return nil, potatoerr.Wrap(potatoerr.KindWalletRejection, err, "sign wallet spend")
	}
	return append(append([]byte{}, sig.R.Bytes()...), sig.S.Bytes()...), nil
}

// SpendTransactionAndAddFee implements dispatch.WalletSpendInterface: it
// marks every referenced coin spent and mints the bundle's resulting coins
// into the ledger.
func (w *Simulated) SpendTransactionAndAddFee(spend wire.SpendBundle) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, rec := range spend.Spends {
		if c, ok := w.coins[rec.Coin.CoinID]; ok {
			if c.Spent {
				return potatoerr.New(potatoerr.KindWalletRejection, "coin %x already spent", rec.Coin.CoinID)
			}
			c.Spent = true
			w.coins[rec.Coin.CoinID] = c
		}
		result := w.mintCoin(rec.Coin.PuzzleHash, rec.Coin.Amount)
		w.coins[result.ID] = result
	}
	return nil
}

// RegisterCoin implements dispatch.WalletSpendInterface: arms a timer that
// fires a TimeoutEvent if the coin is not otherwise resolved in time.
func (w *Simulated) RegisterCoin(coinID [32]byte, timeoutSeconds uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.timers[coinID]; ok {
		existing.Stop()
	}
	w.timers[coinID] = time.AfterFunc(time.Duration(timeoutSeconds)*time.Second, func() {
		select {
		case w.timeout <- TimeoutEvent{CoinID: coinID}:
		default:
		}
	})
	return nil
}

// CancelTimeout stops a previously registered coin's timer, used once
// CoinCreated/CoinSpent observes the coin resolved normally.
func (w *Simulated) CancelTimeout(coinID [32]byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[coinID]; ok {
		t.Stop()
		delete(w.timers, coinID)
	}
}

// ChannelPuzzleHash implements dispatch.BootstrapTowardWallet: alice's
// wallet resolves the requested puzzle hash into a partially-funded
// launcher bundle and publishes it as a channel_offer event.
func (w *Simulated) ChannelPuzzleHash(puzzleHash [32]byte) {
	w.mu.Lock()
	var parent Coin
	for _, c := range w.coins {
		if !c.Spent {
			parent = c
			break
		}
	}
	w.mu.Unlock()

	digest := sha256.Sum256(append(append([]byte{}, parent.ID[:]...), puzzleHash[:]...))
	sig, err := w.sign(digest[:])
	if err != nil {
		return
	}
	bundle := wire.SpendBundle{Spends: []wire.SpendRecord{{
		Coin:                wire.CoinString{CoinID: parent.ID, PuzzleHash: puzzleHash, Amount: parent.Amount},
		Puzzle:              []byte("launcher-puzzle"),
		Solution:            []byte("partial"),
		AggregatedSignature: sig,
	}}}
	w.offers <- bundle
}

// ReceivedChannelOffer implements dispatch.BootstrapTowardWallet: bob's
// wallet receives alice's partial bundle, adds his own signature, and
// publishes the finished bundle as a channel_transaction_completion event.
func (w *Simulated) ReceivedChannelOffer(bundle wire.SpendBundle) {
	if len(bundle.Spends) == 0 {
		return
	}
	rec := bundle.Spends[0]
	digest := sha256.Sum256(append(append([]byte{}, rec.Coin.CoinID[:]...), rec.AggregatedSignature...))
	sig, err := w.sign(digest[:])
	if err != nil {
		return
	}
	finished := wire.SpendBundle{Spends: []wire.SpendRecord{{
		Coin:                rec.Coin,
		Puzzle:              rec.Puzzle,
		Solution:            []byte("complete"),
		AggregatedSignature: append(append([]byte{}, rec.AggregatedSignature...), sig...),
	}}}
	w.completions <- finished
}

// ReceivedChannelTransactionCompletion implements dispatch.BootstrapTowardWallet:
// alice's wallet records the finished bundle and applies it to the ledger.
func (w *Simulated) ReceivedChannelTransactionCompletion(bundle wire.SpendBundle) {
	_ = w.SpendTransactionAndAddFee(bundle)
}

// Balance reports the unspent total this wallet's ledger holds, for test
// and simulator assertions about the final channel-close payout split.
func (w *Simulated) Balance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total uint64
	for _, c := range w.coins {
		if !c.Spent {
			total += c.Amount
		}
	}
	return total
}
