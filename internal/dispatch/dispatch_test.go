package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"potatochannel/internal/identity"
	"potatochannel/internal/potatoerr"
	"potatochannel/internal/wire"
)

// mockTransport records each encoded envelope; the test itself feeds them
// to the other peer's ReceivedMessage rather than a goroutine, so
// assertions can inspect state between every hop.
type mockTransport struct {
	sent [][]byte
}

func (m *mockTransport) SendMessage(envelope []byte) error {
	m.sent = append(m.sent, envelope)
	return nil
}

type mockWallet struct {
	spends        []wire.SpendBundle
	registered    [][32]byte
	puzzleHashes  int
	lastPuzzle    [32]byte
	offers        int
	lastOffer     wire.SpendBundle
	completions   int
	lastCompleted wire.SpendBundle
}

func (m *mockWallet) SpendTransactionAndAddFee(spend wire.SpendBundle) error {
	m.spends = append(m.spends, spend)
	return nil
}

func (m *mockWallet) RegisterCoin(coinID [32]byte, timeoutSeconds uint64) error {
	m.registered = append(m.registered, coinID)
	return nil
}

func (m *mockWallet) ChannelPuzzleHash(puzzleHash [32]byte) {
	m.puzzleHashes++
	m.lastPuzzle = puzzleHash
}

func (m *mockWallet) ReceivedChannelOffer(bundle wire.SpendBundle) {
	m.offers++
	m.lastOffer = bundle
}

func (m *mockWallet) ReceivedChannelTransactionCompletion(bundle wire.SpendBundle) {
	m.completions++
	m.lastCompleted = bundle
}

type mockUI struct {
	moved     [][]byte
	messages  int
	finished  int
	cancelled int
	shutdowns int
	onChain   int
}

func (m *mockUI) OpponentMoved(id [32]byte, move []byte)   { m.moved = append(m.moved, move) }
func (m *mockUI) GameMessage(id [32]byte, msg []byte)      { m.messages++ }
func (m *mockUI) GameFinished(id [32]byte, myShare uint64) { m.finished++ }
func (m *mockUI) GameCancelled(id [32]byte)                { m.cancelled++ }
func (m *mockUI) ShutdownComplete(rewardCoin [32]byte)     { m.shutdowns++ }
func (m *mockUI) GoingOnChain()                            { m.onChain++ }

type harness struct {
	alice, bob       *PotatoHandler
	aliceEnv, bobEnv PeerEnv
	aliceT, bobT     *mockTransport
	aliceW, bobW     *mockWallet
	aliceUI, bobUI   *mockUI
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	aliceKeys, err := identity.FromSeed([32]byte{1})
	require.NoError(t, err)
	bobKeys, err := identity.FromSeed([32]byte{2})
	require.NoError(t, err)

	h := &harness{
		alice:   New(true, aliceKeys, 100, 100),
		bob:     New(false, bobKeys, 100, 100),
		aliceT:  &mockTransport{},
		bobT:    &mockTransport{},
		aliceW:  &mockWallet{},
		bobW:    &mockWallet{},
		aliceUI: &mockUI{},
		bobUI:   &mockUI{},
	}
	h.aliceEnv = PeerEnv{Transport: h.aliceT, Wallet: h.aliceW, BootstrapWallet: h.aliceW, UI: h.aliceUI}
	h.bobEnv = PeerEnv{Transport: h.bobT, Wallet: h.bobW, BootstrapWallet: h.bobW, UI: h.bobUI}
	return h
}

// driveHandshake runs S1's smoke handshake to completion, feeding each sent
// envelope to the counterparty and firing the wallet callbacks as soon as
// the corresponding puzzle hash / offer request has been observed.
func driveHandshake(t *testing.T, h *harness, parentAmount uint64) {
	t.Helper()
	parentCoin := wire.CoinString{CoinID: [32]byte{0xAA}, PuzzleHash: [32]byte{0xBB}, Amount: parentAmount}

	require.NoError(t, h.alice.Start(h.aliceEnv, parentCoin))
	require.Len(t, h.aliceT.sent, 1) // HandshakeA

	require.NoError(t, h.bob.ReceivedMessage(h.bobEnv, h.aliceT.sent[0]))
	require.Len(t, h.bobT.sent, 1) // HandshakeB

	require.NoError(t, h.alice.ReceivedMessage(h.aliceEnv, h.bobT.sent[0]))
	require.Equal(t, 1, h.aliceW.puzzleHashes)
	require.Len(t, h.aliceT.sent, 2) // Nil #1

	require.NoError(t, h.bob.ReceivedMessage(h.bobEnv, h.aliceT.sent[1]))
	require.Len(t, h.bobT.sent, 2) // Nil #2 (StepD's asymmetric reply)

	require.NoError(t, h.alice.ReceivedMessage(h.aliceEnv, h.bobT.sent[1]))
	// Alice is now in PostStepE awaiting the wallet's channel_offer bundle.

	initiationBundle := wire.SpendBundle{Spends: []wire.SpendRecord{{Coin: parentCoin}}}
	require.NoError(t, h.alice.ChannelOffer(h.aliceEnv, initiationBundle))
	require.Len(t, h.aliceT.sent, 3) // HandshakeE

	require.NoError(t, h.bob.ReceivedMessage(h.bobEnv, h.aliceT.sent[2]))
	require.Equal(t, 1, h.bobW.offers)
	require.True(t, h.bob.HavePotato(), "bob assumes the potato on receiving HandshakeE")

	finishedBundle := wire.SpendBundle{Spends: []wire.SpendRecord{{Coin: parentCoin, AggregatedSignature: []byte("agg")}}}
	require.NoError(t, h.bob.ChannelTransactionCompletion(h.bobEnv, finishedBundle))
	require.Len(t, h.bobT.sent, 3) // HandshakeF

	require.NoError(t, h.alice.ReceivedMessage(h.aliceEnv, h.bobT.sent[2]))
	require.Equal(t, 1, h.aliceW.completions)

	require.True(t, h.alice.HandshakeFinished())
	require.True(t, h.bob.HandshakeFinished())
	require.True(t, h.alice.HavePotato(), "alice reclaims the potato once the handshake fully closes")
	require.False(t, h.bob.HavePotato())
}

func TestSmokeHandshake(t *testing.T) {
	h := newHarness(t)
	driveHandshake(t, h, 200)

	require.Len(t, h.aliceT.sent, 3) // HandshakeA, Nil, HandshakeE
	require.Len(t, h.bobT.sent, 3)   // HandshakeB, Nil, HandshakeF
}

func TestStartGameQueueing(t *testing.T) {
	h := newHarness(t)
	driveHandshake(t, h, 200)

	before := len(h.aliceT.sent)
	ids, err := h.alice.StartGames(h.aliceEnv, []wire.GameStart{{GameType: []byte("calpoker"), MyTurn: true, Params: []byte("p")}})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.Len(t, h.aliceT.sent, before+1)

	msg, err := wire.Decode(h.aliceT.sent[len(h.aliceT.sent)-1])
	require.NoError(t, err)
	require.Equal(t, wire.TagStartGames, msg.Type)
	require.Len(t, msg.StartGames.Games, 1)
}

func TestRequestPotatoRoundTrip(t *testing.T) {
	h := newHarness(t)
	driveHandshake(t, h, 200)
	require.False(t, h.bob.HavePotato())

	gameID, err := h.bob.allocator.Next()
	require.NoError(t, err)

	require.NoError(t, h.bob.MakeMove(h.bobEnv, gameID, []byte("m")))
	require.Len(t, h.bobT.sent, 4) // HandshakeB, Nil, HandshakeF, RequestPotato
	lastMsg, err := wire.Decode(h.bobT.sent[len(h.bobT.sent)-1])
	require.NoError(t, err)
	require.Equal(t, wire.TagRequestPotato, lastMsg.Type)

	require.NoError(t, h.alice.ReceivedMessage(h.aliceEnv, h.bobT.sent[len(h.bobT.sent)-1]))
	aliceLast := h.aliceT.sent[len(h.aliceT.sent)-1]
	aliceMsg, err := wire.Decode(aliceLast)
	require.NoError(t, err)
	require.Equal(t, wire.TagNil, aliceMsg.Type)

	require.NoError(t, h.bob.ReceivedMessage(h.bobEnv, aliceLast))
	bobLast := h.bobT.sent[len(h.bobT.sent)-1]
	bobMsg, err := wire.Decode(bobLast)
	require.NoError(t, err)
	require.Equal(t, wire.TagMove, bobMsg.Type)
	require.Equal(t, gameID, bobMsg.Move.GameID)
}

func TestOutOfOrderEnvelopeIsFatal(t *testing.T) {
	h := newHarness(t)
	// Bob is freshly constructed, in StepB; deliver a HandshakeB instead of
	// the expected HandshakeA.
	encoded, err := wire.Encode(wire.Message{Type: wire.TagHandshakeB, HandshakeB: &wire.HandshakeB{}})
	require.NoError(t, err)

	err = h.bob.ReceivedMessage(h.bobEnv, encoded)
	require.Error(t, err)
	require.True(t, potatoerr.Is(err, potatoerr.KindProtocolState))
}

func TestRequestPotatoWhileNotHoldingIsFatal(t *testing.T) {
	h := newHarness(t)
	driveHandshake(t, h, 200)
	require.False(t, h.bob.HavePotato())

	encoded, err := wire.Encode(wire.Message{Type: wire.TagRequestPotato, RequestPotato: &wire.RequestPotatoPayload{}})
	require.NoError(t, err)

	err = h.bob.ReceivedMessage(h.bobEnv, encoded)
	require.Error(t, err)
	require.True(t, potatoerr.Is(err, potatoerr.KindProtocolState))
}

func TestShutdownRoundTripVerifiesAggsigAndMarksReceived(t *testing.T) {
	h := newHarness(t)
	driveHandshake(t, h, 200)
	require.True(t, h.alice.HavePotato())

	require.NoError(t, h.alice.ShutDown(h.aliceEnv))
	last := h.aliceT.sent[len(h.aliceT.sent)-1]
	msg, err := wire.Decode(last)
	require.NoError(t, err)
	require.Equal(t, wire.TagShutdown, msg.Type)

	require.NoError(t, h.bob.ReceivedMessage(h.bobEnv, last))
	require.Equal(t, 1, h.bobUI.shutdowns)
	require.True(t, h.bob.HavePotato(), "receiving a state-advancing Shutdown hands the potato to bob")
}

func TestTamperedShutdownAggsigIsChannelHandlerFailure(t *testing.T) {
	h := newHarness(t)
	driveHandshake(t, h, 200)

	require.NoError(t, h.alice.ShutDown(h.aliceEnv))
	last := h.aliceT.sent[len(h.aliceT.sent)-1]
	msg, err := wire.Decode(last)
	require.NoError(t, err)
	msg.Shutdown.Aggsig[0] ^= 0xFF
	tampered, err := wire.Encode(msg)
	require.NoError(t, err)

	err = h.bob.ReceivedMessage(h.bobEnv, tampered)
	require.Error(t, err)
	require.True(t, potatoerr.Is(err, potatoerr.KindChannelHandlerFailure))
}

func TestTamperedNilSignatureIsChannelHandlerFailure(t *testing.T) {
	h := newHarness(t)
	parentCoin := wire.CoinString{CoinID: [32]byte{0xAA}, Amount: 200}

	require.NoError(t, h.alice.Start(h.aliceEnv, parentCoin))
	require.NoError(t, h.bob.ReceivedMessage(h.bobEnv, h.aliceT.sent[0]))
	require.NoError(t, h.alice.ReceivedMessage(h.aliceEnv, h.bobT.sent[0]))

	nilMsg, err := wire.Decode(h.aliceT.sent[1])
	require.NoError(t, err)
	nilMsg.Nil.Sigs.Mine.S[0] ^= 0xFF
	tampered, err := wire.Encode(nilMsg)
	require.NoError(t, err)

	err = h.bob.ReceivedMessage(h.bobEnv, tampered)
	require.Error(t, err)
	require.True(t, potatoerr.Is(err, potatoerr.KindChannelHandlerFailure))
}
