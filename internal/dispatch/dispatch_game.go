package dispatch

import (
	"potatochannel/internal/gameid"
	"potatochannel/internal/potato"
	"potatochannel/internal/potatoerr"
	"potatochannel/internal/wire"
)

// handleFinished routes a message received while in the Finished phase,
// covering the remaining rows of section 4.1's transition table.
func (p *PotatoHandler) handleFinished(env PeerEnv, msg wire.Message) error {
	switch msg.Type {
	case wire.TagHandshakeF:
		return p.handleHandshakeFFinished(env, msg.HandshakeF)
	case wire.TagRequestPotato:
		return p.handleRequestPotato(env)
	case wire.TagNil:
		return p.handleNilFinished(env, msg.Nil)
	case wire.TagMove:
		return p.handleMoveFinished(env, msg.Move)
	case wire.TagAccept:
		return p.handleAcceptFinished(env, msg.Accept)
	case wire.TagShutdown:
		return p.handleShutdownFinished(env, msg.Shutdown)
	case wire.TagStartGames:
		return p.handleStartGamesFinished(env, msg.StartGames)
	default:
		return potatoerr.New(potatoerr.KindProtocolState, "unexpected tag %s while Finished", msg.Type)
	}
}

// handleHandshakeFFinished is alice's receipt of bob's closing HandshakeF:
// it completes the F-side bundle delivery to her own wallet and hands the
// potato back to her, closing the loop "assume potato" opened at StepF.
func (p *PotatoHandler) handleHandshakeFFinished(env PeerEnv, payload *wire.HandshakeFPayload) error {
	bundle := payload.Bundle
	b := bundle
	p.hs.ChannelFinishedTransaction = &b
	if p.hs.LaunchingSpend == nil {
		p.hs.LaunchingSpend = &b
	}
	env.BootstrapWallet.ReceivedChannelTransactionCompletion(bundle)
	p.scheduler.MarkReceived()
	return nil
}

// handleRequestPotato implements Finished's RequestPotato row: assert
// possession, send Nil, release. Requesting it while not holding it is
// ProtocolState per scenario S9.
func (p *PotatoHandler) handleRequestPotato(env PeerEnv) error {
	if !p.scheduler.HavePotato() {
		return potatoerr.New(potatoerr.KindProtocolState, "RequestPotato received while not holding the potato")
	}
	sigs, err := p.channel.SendEmptyPotato()
	if err != nil {
		return err
	}
	if err := p.sendEnvelope(env, wire.Message{Type: wire.TagNil, Nil: &wire.NilPayload{Sigs: sigPairToWire(sigs)}}); err != nil {
		return err
	}
	p.scheduler.MarkSent()
	return nil
}

// handleNilFinished applies an incoming empty potato and then drains any
// locally queued intents now that the potato has arrived.
func (p *PotatoHandler) handleNilFinished(env PeerEnv, payload *wire.NilPayload) error {
	sigs, err := wireToSigPair(payload.Sigs)
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "decode Nil signatures")
	}
	if _, err := p.channel.ReceivedEmptyPotato(sigs); err != nil {
		return err
	}
	p.scheduler.MarkReceived()
	return p.drain(env)
}

func (p *PotatoHandler) handleMoveFinished(env PeerEnv, payload *wire.MovePayload) error {
	sigs, err := wireToSigPair(payload.Sigs)
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "decode Move signatures")
	}
	if err := p.channel.ReceivedPotatoMove(payload.GameID, payload.Move, sigs); err != nil {
		return err
	}
	p.scheduler.MarkReceived()
	env.UI.OpponentMoved(payload.GameID, payload.Move)
	return p.drain(env)
}

func (p *PotatoHandler) handleAcceptFinished(env PeerEnv, payload *wire.AcceptPayload) error {
	sigs, err := wireToSigPair(payload.Sigs)
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "decode Accept signatures")
	}
	if err := p.channel.ReceivedPotatoAccept(payload.GameID, sigs); err != nil {
		return err
	}
	p.scheduler.MarkReceived()
	// The core does not evaluate game outcomes (out of scope per section 1);
	// the payout share is the referee's to compute, not modeled here.
	env.UI.GameFinished(payload.GameID, 0)
	return p.drain(env)
}

func (p *PotatoHandler) handleShutdownFinished(env PeerEnv, payload *wire.ShutdownPayload) error {
	if err := p.channel.ReceivedPotatoCleanShutdown(payload.Aggsig); err != nil {
		return err
	}
	p.scheduler.MarkReceived()
	puzzleHash, _ := p.channel.StateChannelCoin()
	env.UI.ShutdownComplete(puzzleHash)
	return nil
}

// handleStartGamesFinished records an inbound batch and hands it to the
// local UI as opponent-initiated games, then drains any local backlog now
// released since receiving a state-advancing message sets have_potato.
//
// StartGames carries no PotatoSignatures on the wire (section 4.3's payload
// is the bare game list), so unlike Nil/Move/Accept it is not bound into
// the channel handler's signed sequence; its exclusivity is enforced solely
// by the potato invariant (only the holder may send it).
func (p *PotatoHandler) handleStartGamesFinished(env PeerEnv, payload *wire.StartGamesPayload) error {
	p.scheduler.ReceiveStartGames(payload.Games)
	for _, batch := range p.scheduler.DrainTheirStartGames() {
		for _, g := range batch {
			id, err := p.allocator.Next()
			if err != nil {
				return err
			}
			p.knownGames[id] = struct{}{}
			env.UI.GameMessage(id, g.GameType)
		}
	}
	p.scheduler.MarkReceived()
	return p.drain(env)
}

// drain pops and sends the highest-priority pending local intent, if any,
// now that the potato has just been acquired or retained.
func (p *PotatoHandler) drain(env PeerEnv) error {
	action := p.scheduler.Drain()
	switch action.Kind {
	case potato.ActionNone:
		return nil
	case potato.ActionStartGames:
		if err := p.sendEnvelope(env, wire.Message{Type: wire.TagStartGames, StartGames: &wire.StartGamesPayload{Games: action.StartGames}}); err != nil {
			return err
		}
		p.scheduler.MarkSent()
	case potato.ActionMove:
		sigs, err := p.channel.SendPotatoMove(action.Move.GameID, action.Move.Payload)
		if err != nil {
			return err
		}
		if err := p.sendEnvelope(env, wire.Message{Type: wire.TagMove, Move: &wire.MovePayload{
			GameID: action.Move.GameID,
			Move:   action.Move.Payload,
			Sigs:   sigPairToWire(sigs),
		}}); err != nil {
			return err
		}
		p.scheduler.MarkSent()
	case potato.ActionAccept:
		sigs, err := p.channel.SendPotatoAccept(action.Accept.GameID)
		if err != nil {
			return err
		}
		if err := p.sendEnvelope(env, wire.Message{Type: wire.TagAccept, Accept: &wire.AcceptPayload{
			GameID: action.Accept.GameID,
			Sigs:   sigPairToWire(sigs),
		}}); err != nil {
			return err
		}
		p.scheduler.MarkSent()
	case potato.ActionShutdown:
		aggsig, err := p.channel.SendPotatoCleanShutdown()
		if err != nil {
			return err
		}
		if err := p.sendEnvelope(env, wire.Message{Type: wire.TagShutdown, Shutdown: &wire.ShutdownPayload{Aggsig: aggsig}}); err != nil {
			return err
		}
		p.scheduler.MarkSent()
	default:
		return nil
	}
	if action.AlsoRequestPotato {
		if err := p.sendEnvelope(env, wire.Message{Type: wire.TagRequestPotato, RequestPotato: &wire.RequestPotatoPayload{}}); err != nil {
			return err
		}
	}
	return nil
}

// StartGames is the FromLocalUI start_games entry point: allocate a game id
// per entry, enqueue the batch, send RequestPotato if needed, and drain
// immediately if the potato is already held.
func (p *PotatoHandler) StartGames(env PeerEnv, games []wire.GameStart) ([]gameid.GameID, error) {
	if !p.hs.HandshakeFinished() {
		return nil, potatoerr.New(potatoerr.KindMissingPrecondition, "start_games called before handshake finished")
	}
	ids := make([]gameid.GameID, 0, len(games))
	for range games {
		id, err := p.allocator.Next()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		p.knownGames[id] = struct{}{}
	}
	needsRequest := p.scheduler.EnqueueStartGames(games)
	if needsRequest {
		if err := p.sendEnvelope(env, wire.Message{Type: wire.TagRequestPotato, RequestPotato: &wire.RequestPotatoPayload{}}); err != nil {
			return nil, err
		}
	}
	if p.scheduler.HavePotato() {
		if err := p.drain(env); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// MakeMove is the FromLocalUI make_move entry point.
func (p *PotatoHandler) MakeMove(env PeerEnv, id gameid.GameID, move []byte) error {
	if !p.hs.HandshakeFinished() {
		return potatoerr.New(potatoerr.KindMissingPrecondition, "make_move called before handshake finished")
	}
	needsRequest := p.scheduler.EnqueueMove(potato.MoveIntent{GameID: id, Payload: move})
	if needsRequest {
		if err := p.sendEnvelope(env, wire.Message{Type: wire.TagRequestPotato, RequestPotato: &wire.RequestPotatoPayload{}}); err != nil {
			return err
		}
	}
	if p.scheduler.HavePotato() {
		return p.drain(env)
	}
	return nil
}

// Accept is the FromLocalUI accept entry point.
func (p *PotatoHandler) Accept(env PeerEnv, id gameid.GameID) error {
	if !p.hs.HandshakeFinished() {
		return potatoerr.New(potatoerr.KindMissingPrecondition, "accept called before handshake finished")
	}
	needsRequest := p.scheduler.EnqueueAccept(potato.AcceptIntent{GameID: id})
	if needsRequest {
		if err := p.sendEnvelope(env, wire.Message{Type: wire.TagRequestPotato, RequestPotato: &wire.RequestPotatoPayload{}}); err != nil {
			return err
		}
	}
	if p.scheduler.HavePotato() {
		return p.drain(env)
	}
	return nil
}

// ShutDown is the FromLocalUI shut_down entry point.
func (p *PotatoHandler) ShutDown(env PeerEnv) error {
	if !p.hs.HandshakeFinished() {
		return potatoerr.New(potatoerr.KindMissingPrecondition, "shut_down called before handshake finished")
	}
	needsRequest := p.scheduler.EnqueueShutdown()
	if needsRequest {
		if err := p.sendEnvelope(env, wire.Message{Type: wire.TagRequestPotato, RequestPotato: &wire.RequestPotatoPayload{}}); err != nil {
			return err
		}
	}
	if p.scheduler.HavePotato() {
		return p.drain(env)
	}
	return nil
}

// CoinCreated is the SpendWalletReceiver coin_created(id) callback.
func (p *PotatoHandler) CoinCreated(coinID [32]byte) {}

// CoinSpent is the SpendWalletReceiver coin_spent(id) callback.
func (p *PotatoHandler) CoinSpent(coinID [32]byte) {}

// CoinTimeoutReached is the SpendWalletReceiver coin_timeout_reached(id)
// callback: the wallet's signal to fall back to on-chain settlement.
func (p *PotatoHandler) CoinTimeoutReached(env PeerEnv, coinID [32]byte) error {
	env.UI.GoingOnChain()
	return nil
}
