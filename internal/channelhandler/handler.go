// Package channelhandler implements the channel-level cryptographic
// handler the potato handler adapts to via internal/dispatch. Spec section
// 4.4 treats this as an external collaborator specified only by the
// operations invoked on it; this package is the from-scratch, in-process
// realization needed to make the module runnable end to end, grounded on
// the reference application's dealer.go "apply remote crypto contribution,
// return updated view" operation shape (dealerSubmitPubShare,
// dealerSubmitEncShare) and built from internal/potatocrypto's ristretto255
// primitives.
package channelhandler

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"potatochannel/internal/identity"
	"potatochannel/internal/potatocrypto"
	"potatochannel/internal/potatoerr"
)

// InitData carries everything the handler needs at construction, mirroring
// spec section 4.4's new(env, private_keys, init_data) operation.
type InitData struct {
	LauncherCoinID         [32]byte
	WeStartWithPotato      bool
	TheirChannelPublicKey  potatocrypto.Point
	TheirUnrollPublicKey   potatocrypto.Point
	TheirRefereePuzzleHash [32]byte
	MyContribution         uint64
	TheirContribution      uint64
}

// ChannelCoinSpendInfo is the updated local view of the channel coin
// returned after applying an incoming potato, per spec section 4.4's
// received_empty_potato -> ChannelCoinSpendInfo.
type ChannelCoinSpendInfo struct {
	Sequence    uint64
	StateDigest [32]byte
}

// SignaturePair is the in-memory, strongly-typed counterpart of
// wire.PotatoSignatures: a freshly produced signature paired with the most
// recently received counterparty signature.
type SignaturePair struct {
	Mine  potatocrypto.PotatoSignature
	Their potatocrypto.PotatoSignature
}

// Handler is one peer's exclusively-owned channel handler instance.
type Handler struct {
	channel identity.KeyPair
	unroll  identity.KeyPair

	theirChannelPub potatocrypto.Point
	theirUnrollPub  potatocrypto.Point

	launcherCoinID    [32]byte
	myContribution    uint64
	theirContribution uint64

	sequence  uint64
	lastTheir potatocrypto.PotatoSignature
	nonceCtr  uint64
}

// New constructs a channel handler, performed at StepB/StepC in the
// handshake state machine.
func New(channel, unroll identity.KeyPair, init InitData) (*Handler, error) {
	return &Handler{
		channel:           channel,
		unroll:            unroll,
		theirChannelPub:   init.TheirChannelPublicKey,
		theirUnrollPub:    init.TheirUnrollPublicKey,
		launcherCoinID:    init.LauncherCoinID,
		myContribution:    init.MyContribution,
		theirContribution: init.TheirContribution,
	}, nil
}

// writeSorted writes the two byte strings in lexicographic order, so that
// both peers in a pair hash an identical pair of keys regardless of which
// side is "local" and which is "remote".
func writeSorted(hs io.Writer, a, b []byte) {
	if bytes.Compare(a, b) <= 0 {
		hs.Write(a)
		hs.Write(b)
		return
	}
	hs.Write(b)
	hs.Write(a)
}

func (h *Handler) stateDigest(tag string, extra ...[]byte) [32]byte {
	hs := sha256.New()
	writeSorted(hs, h.channel.Public.Bytes(), h.theirChannelPub.Bytes())
	writeSorted(hs, h.unroll.Public.Bytes(), h.theirUnrollPub.Bytes())
	var seqB [8]byte
	binary.LittleEndian.PutUint64(seqB[:], h.sequence)
	hs.Write(seqB[:])
	hs.Write([]byte(tag))
	for _, e := range extra {
		hs.Write(e)
	}
	var out [32]byte
	copy(out[:], hs.Sum(nil))
	return out
}

func (h *Handler) sign(tag string, digest [32]byte) (potatocrypto.PotatoSignature, error) {
	h.nonceCtr++
	k, err := potatocrypto.DeriveNonce(h.channel.Private, tag, digest[:], h.nonceCtr)
	if err != nil {
		return potatocrypto.PotatoSignature{}, potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "derive nonce")
	}
	sig, err := potatocrypto.Sign(h.channel.Private, h.channel.Public, k, tag, digest[:])
	if err != nil {
		return potatocrypto.PotatoSignature{}, potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "sign")
	}
	return sig, nil
}

func (h *Handler) verifyTheirs(tag string, digest [32]byte, sig potatocrypto.PotatoSignature) error {
	ok, err := potatocrypto.Verify(h.theirChannelPub, sig, tag, digest[:])
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "verify %s signature", tag)
	}
	if !ok {
		return potatoerr.New(potatoerr.KindChannelHandlerFailure, "invalid %s signature from counterparty", tag)
	}
	return nil
}

// advanceAndSign produces the outbound signature pair for a state-advancing
// message of the given tag, then advances the local sequence number. The
// sequence is advanced only after signing so the signed digest matches the
// pre-transition sequence the counterparty will also have computed, and the
// post-call sequence is what the *next* call to stateDigest will use.
func (h *Handler) advanceAndSign(tag string, extra ...[]byte) (SignaturePair, error) {
	digest := h.stateDigest(tag, extra...)
	mine, err := h.sign(tag, digest)
	if err != nil {
		return SignaturePair{}, err
	}
	pair := SignaturePair{Mine: mine, Their: h.lastTheir}
	h.sequence++
	return pair, nil
}

// applyIncoming verifies an incoming signature pair for the given tag and,
// on success, advances the local sequence and caches the counterparty's
// signature for inclusion in our own next outbound pair.
func (h *Handler) applyIncoming(tag string, sigs SignaturePair, extra ...[]byte) (ChannelCoinSpendInfo, error) {
	digest := h.stateDigest(tag, extra...)
	if err := h.verifyTheirs(tag, digest, sigs.Mine); err != nil {
		return ChannelCoinSpendInfo{}, err
	}
	h.lastTheir = sigs.Mine
	h.sequence++
	return ChannelCoinSpendInfo{Sequence: h.sequence, StateDigest: h.stateDigest(tag, extra...)}, nil
}

// SendEmptyPotato produces the signature pair for an outbound Nil message.
func (h *Handler) SendEmptyPotato() (SignaturePair, error) {
	return h.advanceAndSign("nil")
}

// ReceivedEmptyPotato applies an inbound Nil message's signatures.
func (h *Handler) ReceivedEmptyPotato(sigs SignaturePair) (ChannelCoinSpendInfo, error) {
	return h.applyIncoming("nil", sigs)
}

// SendPotatoStartGame produces the signature pair for an outbound
// StartGames batch; gamesDigest is a caller-supplied deterministic digest
// of the batch contents so the signature binds the exact games offered.
func (h *Handler) SendPotatoStartGame(gamesDigest []byte) (SignaturePair, error) {
	return h.advanceAndSign("start_games", gamesDigest)
}

func (h *Handler) ReceivedPotatoStartGame(sigs SignaturePair, gamesDigest []byte) error {
	_, err := h.applyIncoming("start_games", sigs, gamesDigest)
	return err
}

func (h *Handler) SendPotatoMove(gameID [32]byte, move []byte) (SignaturePair, error) {
	return h.advanceAndSign("move", gameID[:], move)
}

func (h *Handler) ReceivedPotatoMove(gameID [32]byte, move []byte, sigs SignaturePair) error {
	_, err := h.applyIncoming("move", sigs, gameID[:], move)
	return err
}

func (h *Handler) SendPotatoAccept(gameID [32]byte) (SignaturePair, error) {
	return h.advanceAndSign("accept", gameID[:])
}

func (h *Handler) ReceivedPotatoAccept(gameID [32]byte, sigs SignaturePair) error {
	_, err := h.applyIncoming("accept", sigs, gameID[:])
	return err
}

// SendPotatoCleanShutdown produces the single aggregate signature carried
// by a Shutdown message: the final co-signature over the channel's closing
// state, encoded as R||S since shutdown needs no paired counterparty
// signature (it is the last message of the session).
func (h *Handler) SendPotatoCleanShutdown() ([]byte, error) {
	digest := h.stateDigest("shutdown")
	sig, err := h.sign("shutdown", digest)
	if err != nil {
		return nil, err
	}
	h.sequence++
	return append(append([]byte{}, sig.R.Bytes()...), sig.S.Bytes()...), nil
}

// ReceivedPotatoCleanShutdown verifies the counterparty's closing aggsig
// against the shared shutdown digest, mirroring SendPotatoCleanShutdown's
// R||S encoding.
func (h *Handler) ReceivedPotatoCleanShutdown(aggsig []byte) error {
	if len(aggsig) != potatocrypto.PointBytes+potatocrypto.ScalarBytes {
		return potatoerr.New(potatoerr.KindWireDecode, "shutdown aggsig: expected %d bytes, got %d", potatocrypto.PointBytes+potatocrypto.ScalarBytes, len(aggsig))
	}
	r, err := potatocrypto.PointFromBytesCanonical(aggsig[:potatocrypto.PointBytes])
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "decode shutdown aggsig R")
	}
	s, err := potatocrypto.ScalarFromBytesCanonical(aggsig[potatocrypto.PointBytes:])
	if err != nil {
		return potatoerr.Wrap(potatoerr.KindChannelHandlerFailure, err, "decode shutdown aggsig S")
	}
	digest := h.stateDigest("shutdown")
	if err := h.verifyTheirs("shutdown", digest, potatocrypto.PotatoSignature{R: r, S: s}); err != nil {
		return err
	}
	h.sequence++
	return nil
}

// StateChannelCoin exposes the coin string -> puzzle-hash component spec
// section 4.4 names; the puzzle hash is derived deterministically from both
// channel public keys and the launcher coin id, standing in for the real
// CLVM channel puzzle's currying.
func (h *Handler) StateChannelCoin() (puzzleHash [32]byte, amount uint64) {
	hs := sha256.New()
	hs.Write([]byte("potatochannel/v1/channel-puzzle-hash"))
	hs.Write(h.launcherCoinID[:])
	hs.Write(h.channel.Public.Bytes())
	hs.Write(h.theirChannelPub.Bytes())
	copy(puzzleHash[:], hs.Sum(nil))
	return puzzleHash, h.myContribution + h.theirContribution
}

func (h *Handler) ChannelPrivateKey() potatocrypto.Scalar { return h.channel.Private }
func (h *Handler) UnrollPrivateKey() potatocrypto.Scalar  { return h.unroll.Private }
func (h *Handler) ChannelPublicKey() potatocrypto.Point   { return h.channel.Public }
func (h *Handler) UnrollPublicKey() potatocrypto.Point    { return h.unroll.Public }

func (h *Handler) String() string {
	return fmt.Sprintf("channelhandler{seq=%d}", h.sequence)
}
