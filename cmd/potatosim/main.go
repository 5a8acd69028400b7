// Command potatosim drives two potato-channel peers through a scripted
// handshake-and-game scenario, either both in this process over a loopback
// transport or as a single peer dialing/listening over a websocket for a
// real two-process run. Flag shape and signal handling follow
// cmd/ocpd/main.go.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"potatochannel/internal/dispatch"
	"potatochannel/internal/identity"
	"potatochannel/internal/localui"
	"potatochannel/internal/potatolog"
	"potatochannel/internal/transport"
	"potatochannel/internal/wallet"
	"potatochannel/internal/wire"
)

func main() {
	var (
		mode         = flag.String("mode", "loopback", "run mode: loopback|dial|listen")
		addr         = flag.String("addr", "127.0.0.1:8901", "websocket listen/dial address (dial|listen modes)")
		contribution = flag.Uint64("contribution", 1_000_000, "each peer's channel contribution, in mojos")
	)
	flag.Parse()

	switch *mode {
	case "loopback":
		if err := runLoopback(*contribution); err != nil {
			fmt.Fprintf(os.Stderr, "loopback run: %v\n", err)
			os.Exit(1)
		}
	case "listen", "dial":
		if err := runNetworked(*mode, *addr, *contribution); err != nil {
			fmt.Fprintf(os.Stderr, "networked run: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown -mode %q (want loopback|dial|listen)\n", *mode)
		os.Exit(1)
	}
}

// peer bundles one side's collaborators, constructed identically for both
// roles; only haveInitialPotato and the transport differ.
type peer struct {
	name    string
	handler *dispatch.PotatoHandler
	env     dispatch.PeerEnv
	ui      *localui.Recorder
	wallet  *wallet.Simulated
}

func newPeer(name string, seed byte, haveInitialPotato bool, contribution uint64, sender dispatch.PacketSender) (*peer, error) {
	keys, err := identity.FromSeed([32]byte{seed})
	if err != nil {
		return nil, fmt.Errorf("derive %s identity: %w", name, err)
	}
	w := wallet.NewSimulated(keys, contribution)
	h := dispatch.New(haveInitialPotato, keys, contribution, contribution)
	ui := &localui.Recorder{}
	return &peer{
		name:    name,
		handler: h,
		ui:      ui,
		wallet:  w,
		env: dispatch.PeerEnv{
			Transport:       sender,
			Wallet:          w,
			BootstrapWallet: w,
			UI:              ui,
		},
	}, nil
}

// runLoopback wires alice and bob together over an in-process loopback pair
// and drives a full handshake plus one game through to shutdown, all on the
// calling goroutine: spec section 5's one-event-loop-goroutine-per-peer
// model collapses to one goroutine here since there is nothing concurrent
// to wait on within a single process's scripted run.
func runLoopback(contribution uint64) error {
	logger := potatolog.New(os.Stdout, "potatosim")
	aliceConn, bobConn := transport.NewLoopbackPair(16)

	alice, err := newPeer("alice", 1, true, contribution, aliceConn)
	if err != nil {
		return err
	}
	bob, err := newPeer("bob", 2, false, contribution, bobConn)
	if err != nil {
		return err
	}

	drainOnce := func(c *peer, inbox <-chan []byte) {
		select {
		case env := <-inbox:
			if err := c.handler.ReceivedMessage(c.env, env); err != nil {
				logger.Error("received message", "peer", c.name, "err", errors.Wrap(err, "dispatch"))
			}
		case <-time.After(time.Second):
		}
	}

	parentCoin := wire.CoinString{Amount: contribution * 2}
	if err := alice.handler.Start(alice.env, parentCoin); err != nil {
		return fmt.Errorf("start handshake: %w", err)
	}
	drainOnce(bob, bobConn.Inbox())     // HandshakeA
	drainOnce(alice, aliceConn.Inbox()) // HandshakeB
	drainOnce(bob, bobConn.Inbox())     // Nil #1
	drainOnce(alice, aliceConn.Inbox()) // Nil #2

	logger.Info("handshake progressing, waiting for wallet bootstrap to close it out")
	deadline := time.After(5 * time.Second)
	for !alice.handler.HandshakeFinished() || !bob.handler.HandshakeFinished() {
		select {
		case env := <-aliceConn.Inbox():
			_ = alice.handler.ReceivedMessage(alice.env, env)
		case env := <-bobConn.Inbox():
			_ = bob.handler.ReceivedMessage(bob.env, env)
		case bundle := <-alice.wallet.Offers():
			_ = alice.handler.ChannelOffer(alice.env, bundle)
		case bundle := <-bob.wallet.Completions():
			_ = bob.handler.ChannelTransactionCompletion(bob.env, bundle)
		case <-deadline:
			return fmt.Errorf("handshake did not finish in time")
		}
	}
	logger.Info("handshake finished", "aliceHasPotato", alice.handler.HavePotato())

	ids, err := alice.handler.StartGames(alice.env, []wire.GameStart{{GameType: []byte("calpoker"), MyTurn: true, Params: []byte("heads-up")}})
	if err != nil {
		return fmt.Errorf("start games: %w", err)
	}
	drainOnce(bob, bobConn.Inbox())
	logger.Info("game started", "id", fmt.Sprintf("%x", ids[0]))

	if len(bob.ui.Messages) == 0 {
		return fmt.Errorf("bob never observed the incoming StartGames batch")
	}
	bobGameID := bob.ui.Messages[0].GameID

	// Receiving alice's StartGames handed bob the potato, so this move is
	// sent straight away; the RequestPotato round trip is exercised in
	// dispatch's own test suite (TestRequestPotatoRoundTrip).
	if err := bob.handler.MakeMove(bob.env, bobGameID, []byte("check")); err != nil {
		return fmt.Errorf("bob move: %w", err)
	}
	drainOnce(alice, aliceConn.Inbox()) // Move
	drainOnce(bob, bobConn.Inbox())     // nothing pending; returns after the one-second wait

	if err := alice.handler.ShutDown(alice.env); err != nil {
		return fmt.Errorf("shut down: %w", err)
	}
	drainOnce(bob, bobConn.Inbox())
	logger.Info("shutdown sent", "shutdownsSeenByBob", len(bob.ui.Shutdowns))
	return nil
}

// runNetworked runs a single peer over a websocket, for two cooperating
// potatosim processes on different hosts.
func runNetworked(mode, addr string, contribution uint64) error {
	logger := potatolog.New(os.Stdout, "potatosim")

	var conn *transport.WebSocket
	switch mode {
	case "dial":
		c, err := transport.Dial("ws://" + addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		conn = c
	case "listen":
		accepted := make(chan *transport.WebSocket, 1)
		srv := &http.Server{Addr: addr, Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws, err := transport.Upgrade(w, r)
			if err != nil {
				logger.Error("upgrade failed", "err", err)
				return
			}
			accepted <- ws
		})}
		go func() { _ = srv.ListenAndServe() }()
		select {
		case conn = <-accepted:
		case <-time.After(30 * time.Second):
			return fmt.Errorf("no peer connected within 30s")
		}
	}

	haveInitialPotato := mode == "dial"
	p, err := newPeer(mode, 1, haveInitialPotato, contribution, conn)
	if err != nil {
		return err
	}

	if haveInitialPotato {
		if err := p.handler.Start(p.env, wire.CoinString{Amount: contribution * 2}); err != nil {
			return fmt.Errorf("start handshake: %w", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case env, ok := <-conn.Inbox():
			if !ok {
				return nil
			}
			if err := p.handler.ReceivedMessage(p.env, env); err != nil {
				logger.Error("received message", "err", errors.Wrap(err, "dispatch"))
			}
		case <-sigCh:
			return conn.Close()
		}
	}
}
