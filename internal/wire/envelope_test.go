package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	b, err := Encode(msg)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	return got
}

func TestRoundTripHandshakeA(t *testing.T) {
	in := Message{
		Type: TagHandshakeA,
		HandshakeA: &HandshakeA{
			ParentCoin:        CoinString{CoinID: [32]byte{1}, PuzzleHash: [32]byte{2}, Amount: 200},
			ChannelPublicKey:  [32]byte{3},
			UnrollPublicKey:   [32]byte{4},
			RewardPuzzleHash:  [32]byte{5},
			RefereePuzzleHash: [32]byte{6},
		},
	}
	got := roundTrip(t, in)
	require.Equal(t, in, got)
}

func TestRoundTripStartGamesThreeEntries(t *testing.T) {
	in := Message{
		Type: TagStartGames,
		StartGames: &StartGamesPayload{
			Games: []GameStart{
				{GameType: []byte("calpoker"), MyTurn: true, Params: []byte("p1")},
				{GameType: []byte("calpoker"), MyTurn: false, Params: []byte("p2")},
				{GameType: []byte("othergame"), MyTurn: true, Params: []byte("")},
			},
		},
	}
	got := roundTrip(t, in)
	require.Equal(t, in, got)
}

func TestRoundTripMoveWith500BytePayload(t *testing.T) {
	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i)
	}
	in := Message{
		Type: TagMove,
		Move: &MovePayload{
			GameID: [32]byte{9, 9, 9},
			Move:   payload,
			Sigs: PotatoSignatures{
				Mine:  PotatoSigPair{R: [32]byte{1}, S: [32]byte{2}},
				Their: PotatoSigPair{R: [32]byte{3}, S: [32]byte{4}},
			},
		},
	}
	got := roundTrip(t, in)
	require.Equal(t, in, got)
}

func TestRoundTripRequestPotato(t *testing.T) {
	in := Message{Type: TagRequestPotato, RequestPotato: &RequestPotatoPayload{}}
	got := roundTrip(t, in)
	require.Equal(t, in, got)
}

func TestRoundTripAllVariants(t *testing.T) {
	variants := []Message{
		{Type: TagHandshakeB, HandshakeB: &HandshakeB{ChannelPublicKey: [32]byte{1}}},
		{Type: TagHandshakeE, HandshakeE: &HandshakeEPayload{Bundle: SpendBundle{Spends: []SpendRecord{{
			Coin:                CoinString{Amount: 50},
			Puzzle:              []byte("puz"),
			Solution:            []byte("sol"),
			AggregatedSignature: []byte("sig"),
		}}}}},
		{Type: TagHandshakeF, HandshakeF: &HandshakeFPayload{Bundle: SpendBundle{}}},
		{Type: TagNil, Nil: &NilPayload{Sigs: PotatoSignatures{}}},
		{Type: TagAccept, Accept: &AcceptPayload{GameID: [32]byte{7}}},
		{Type: TagShutdown, Shutdown: &ShutdownPayload{Aggsig: []byte("aggsig")}},
	}
	for _, v := range variants {
		got := roundTrip(t, v)
		require.Equal(t, v, got, "variant %s", v.Type)
	}
}

func TestDecodeUnknownTagIsFatal(t *testing.T) {
	valueBytes, err := bson.Marshal(&NilPayload{})
	require.NoError(t, err)
	tampered, err := bson.Marshal(envelopeDoc{Type: "SomethingElse", Value: bson.Raw(valueBytes)})
	require.NoError(t, err)

	_, err = Decode(tampered)
	require.Error(t, err)
}

func TestDecodeEmptyIsFatal(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
}

func TestDecodeOversizedIsFatal(t *testing.T) {
	_, err := Decode(make([]byte, MaxEnvelopeBytes+1))
	require.Error(t, err)
}
