package dispatch

import (
	"potatochannel/internal/channelhandler"
	"potatochannel/internal/handshake"
	"potatochannel/internal/potatoerr"
	"potatochannel/internal/wire"
)

// Start drives the StepA -> StepC transition: the potato holder builds and
// sends HandshakeA, per spec section 4.1's local start(parent_coin) trigger.
func (p *PotatoHandler) Start(env PeerEnv, parentCoin wire.CoinString) error {
	if p.hs.Phase != handshake.StepA {
		return potatoerr.New(potatoerr.KindProtocolState, "start called outside StepA (phase=%s)", p.hs.Phase)
	}
	ha := &wire.HandshakeA{
		ParentCoin:        parentCoin,
		ChannelPublicKey:  bytes32(p.identity.Channel.Public.Bytes()),
		UnrollPublicKey:   bytes32(p.identity.Unroll.Public.Bytes()),
		RewardPuzzleHash:  p.identity.RewardPuzzleHash,
		RefereePuzzleHash: refereePuzzleHash(p.identity),
	}
	p.hs.ParentCoin = &parentCoin
	p.hs.MyHandshakeA = ha
	if err := p.sendEnvelope(env, wire.Message{Type: wire.TagHandshakeA, HandshakeA: ha}); err != nil {
		return err
	}
	p.hs.Phase = handshake.StepC
	return nil
}

// ReceivedMessage is the top-level received_message entry point: decode,
// check legality against the current handshake phase, then route.
func (p *PotatoHandler) ReceivedMessage(env PeerEnv, raw []byte) error {
	msg, err := wire.Decode(raw)
	if err != nil {
		return err
	}
	if !p.hs.LegalIncoming(msg.Type) {
		return potatoerr.New(potatoerr.KindProtocolState, "received %s in phase %s", msg.Type, p.hs.Phase)
	}
	switch p.hs.Phase {
	case handshake.StepB:
		return p.handleHandshakeA(env, msg.HandshakeA)
	case handshake.StepC:
		return p.handleHandshakeB(env, msg.HandshakeB)
	case handshake.StepD:
		return p.handleNilStepD(env, msg.Nil)
	case handshake.StepE:
		return p.handleNilStepE(env, msg.Nil)
	case handshake.StepF:
		return p.handleHandshakeEStepF(env, msg.HandshakeE)
	case handshake.Finished:
		return p.handleFinished(env, msg)
	default:
		return potatoerr.New(potatoerr.KindProtocolState, "received %s in phase %s", msg.Type, p.hs.Phase)
	}
}

// handleHandshakeA is bob's StepB: receive alice's greeting, create the
// channel handler as the potato holder's counterpart, reply HandshakeB.
func (p *PotatoHandler) handleHandshakeA(env PeerEnv, ha *wire.HandshakeA) error {
	theirChannelPub, err := pointFromArray(ha.ChannelPublicKey)
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindWireDecode, err, "decode HandshakeA channel public key")
	}
	theirUnrollPub, err := pointFromArray(ha.UnrollPublicKey)
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindWireDecode, err, "decode HandshakeA unroll public key")
	}
	ch, err := channelhandler.New(p.identity.Channel, p.identity.Unroll, channelhandler.InitData{
		LauncherCoinID:         ha.ParentCoin.CoinID,
		WeStartWithPotato:      true,
		TheirChannelPublicKey:  theirChannelPub,
		TheirUnrollPublicKey:   theirUnrollPub,
		TheirRefereePuzzleHash: ha.RefereePuzzleHash,
		MyContribution:         p.myContribution,
		TheirContribution:      p.theirContribution,
	})
	if err != nil {
		return err
	}
	p.channel = ch
	p.hs.TheirHandshakeA = ha
	parentCoin := ha.ParentCoin
	p.hs.ParentCoin = &parentCoin

	// Section 4.5 seeds the allocator "before Step C/B completes": both
	// roles need their own game-id sequence, not just the potato holder.
	p.allocator.Seed(p.identity.Channel.Private.Bytes(), p.identity.Unroll.Private.Bytes(), p.identity.Referee.Private.Bytes())

	hb := &wire.HandshakeB{
		ChannelPublicKey:  bytes32(p.identity.Channel.Public.Bytes()),
		UnrollPublicKey:   bytes32(p.identity.Unroll.Public.Bytes()),
		RewardPuzzleHash:  p.identity.RewardPuzzleHash,
		RefereePuzzleHash: refereePuzzleHash(p.identity),
	}
	p.hs.MyHandshakeB = hb
	if err := p.sendEnvelope(env, wire.Message{Type: wire.TagHandshakeB, HandshakeB: hb}); err != nil {
		return err
	}
	p.hs.Phase = handshake.StepD
	return nil
}

// handleHandshakeB is alice's StepC: receive bob's greeting, create the
// channel handler, ask the wallet to resolve the channel puzzle hash, seed
// the game-id allocator, and send the first Nil potato.
func (p *PotatoHandler) handleHandshakeB(env PeerEnv, hb *wire.HandshakeB) error {
	theirChannelPub, err := pointFromArray(hb.ChannelPublicKey)
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindWireDecode, err, "decode HandshakeB channel public key")
	}
	theirUnrollPub, err := pointFromArray(hb.UnrollPublicKey)
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindWireDecode, err, "decode HandshakeB unroll public key")
	}
	if p.hs.ParentCoin == nil {
		return potatoerr.New(potatoerr.KindMissingPrecondition, "HandshakeB received before local parent coin was recorded")
	}
	ch, err := channelhandler.New(p.identity.Channel, p.identity.Unroll, channelhandler.InitData{
		LauncherCoinID:         p.hs.ParentCoin.CoinID,
		WeStartWithPotato:      false,
		TheirChannelPublicKey:  theirChannelPub,
		TheirUnrollPublicKey:   theirUnrollPub,
		TheirRefereePuzzleHash: hb.RefereePuzzleHash,
		MyContribution:         p.myContribution,
		TheirContribution:      p.theirContribution,
	})
	if err != nil {
		return err
	}
	p.channel = ch
	p.hs.TheirHandshakeB = hb

	puzzleHash, _ := ch.StateChannelCoin()
	env.BootstrapWallet.ChannelPuzzleHash(puzzleHash)

	p.allocator.Seed(p.identity.Channel.Private.Bytes(), p.identity.Unroll.Private.Bytes(), p.identity.Referee.Private.Bytes())

	sigs, err := ch.SendEmptyPotato()
	if err != nil {
		return err
	}
	if err := p.sendEnvelope(env, wire.Message{Type: wire.TagNil, Nil: &wire.NilPayload{Sigs: sigPairToWire(sigs)}}); err != nil {
		return err
	}
	p.hs.Phase = handshake.StepE
	return nil
}

// handleNilStepD is bob's asymmetric second half of the Nil round trip:
// apply alice's Nil, then immediately reply with his own.
func (p *PotatoHandler) handleNilStepD(env PeerEnv, payload *wire.NilPayload) error {
	sigs, err := wireToSigPair(payload.Sigs)
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "decode Nil signatures")
	}
	if _, err := p.channel.ReceivedEmptyPotato(sigs); err != nil {
		return err
	}
	mine, err := p.channel.SendEmptyPotato()
	if err != nil {
		return err
	}
	if err := p.sendEnvelope(env, wire.Message{Type: wire.TagNil, Nil: &wire.NilPayload{Sigs: sigPairToWire(mine)}}); err != nil {
		return err
	}
	p.hs.Phase = handshake.StepF
	return nil
}

// handleNilStepE is alice's half: apply bob's reply Nil, then try to
// complete E (idempotent against the channel_offer callback ordering).
func (p *PotatoHandler) handleNilStepE(env PeerEnv, payload *wire.NilPayload) error {
	sigs, err := wireToSigPair(payload.Sigs)
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "decode Nil signatures")
	}
	if _, err := p.channel.ReceivedEmptyPotato(sigs); err != nil {
		return err
	}
	p.hs.NilRoundTripDone = true
	p.hs.Phase = handshake.PostStepE
	return p.tryCompleteE(env)
}

// ChannelOffer is the wallet's channel_offer(bundle) callback (alice side).
func (p *PotatoHandler) ChannelOffer(env PeerEnv, bundle wire.SpendBundle) error {
	if p.hs.Phase != handshake.PostStepE && p.hs.Phase != handshake.StepE {
		return potatoerr.New(potatoerr.KindProtocolState, "channel_offer callback outside Step E/PostStepE (phase=%s)", p.hs.Phase)
	}
	b := bundle
	p.hs.ChannelInitiationTransaction = &b
	return p.tryCompleteE(env)
}

// tryCompleteE fires the E->Finished transition once both the Nil round
// trip and the wallet's channel_offer bundle are available, whichever
// completes last. Safe to call from either path.
func (p *PotatoHandler) tryCompleteE(env PeerEnv) error {
	if p.hs.Phase != handshake.PostStepE {
		return nil
	}
	if !p.hs.NilRoundTripDone || p.hs.ChannelInitiationTransaction == nil {
		return nil
	}
	bundle := *p.hs.ChannelInitiationTransaction
	if err := p.sendEnvelope(env, wire.Message{Type: wire.TagHandshakeE, HandshakeE: &wire.HandshakeEPayload{Bundle: bundle}}); err != nil {
		return err
	}
	p.hs.LaunchingSpend = &bundle
	p.hs.Phase = handshake.Finished
	p.scheduler.MarkSent()
	return nil
}

// handleHandshakeEStepF is bob's StepF: deliver the bundle alice just sent
// to his wallet, then assume the potato since alice has nothing left to
// initiate until he replies.
func (p *PotatoHandler) handleHandshakeEStepF(env PeerEnv, payload *wire.HandshakeEPayload) error {
	bundle := payload.Bundle
	env.BootstrapWallet.ReceivedChannelOffer(bundle)
	p.hs.LaunchingSpend = &bundle
	p.scheduler.MarkReceived()
	p.hs.Phase = handshake.PostStepF
	return nil
}

// ChannelTransactionCompletion is the wallet's channel_transaction_completion
// callback (bob side, per the mechanical transition table; see DESIGN.md for
// why this implementation follows the table over the descriptive role label
// in section 6).
func (p *PotatoHandler) ChannelTransactionCompletion(env PeerEnv, bundle wire.SpendBundle) error {
	if p.hs.Phase != handshake.PostStepF {
		return potatoerr.New(potatoerr.KindProtocolState, "channel_transaction_completion callback outside PostStepF (phase=%s)", p.hs.Phase)
	}
	b := bundle
	p.hs.ChannelFinishedTransaction = &b
	return p.tryCompleteF(env)
}

// tryCompleteF fires the F->Finished transition once the finished bundle is
// available, sending HandshakeF and handing the potato back to alice.
func (p *PotatoHandler) tryCompleteF(env PeerEnv) error {
	if p.hs.Phase != handshake.PostStepF {
		return nil
	}
	if p.hs.ChannelFinishedTransaction == nil {
		return nil
	}
	bundle := *p.hs.ChannelFinishedTransaction
	if err := p.sendEnvelope(env, wire.Message{Type: wire.TagHandshakeF, HandshakeF: &wire.HandshakeFPayload{Bundle: bundle}}); err != nil {
		return err
	}
	if p.hs.LaunchingSpend == nil {
		p.hs.LaunchingSpend = &bundle
	}
	p.hs.Phase = handshake.Finished
	p.scheduler.MarkSent()
	return nil
}
