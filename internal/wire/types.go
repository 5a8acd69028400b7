// Package wire implements the message codec from spec section 4.3: a
// tagged-union envelope encoded as a self-describing binary document
// (BSON), grounded on the reference application's internal/codec/tx.go
// tagged-union-with-raw-value shape, re-expressed in BSON per the spec's
// explicit "BSON-compatible" requirement instead of the reference
// package's JSON.
package wire

// Tag identifies which variant of the tagged union an envelope carries.
type Tag string

const (
	TagHandshakeA    Tag = "HandshakeA"
	TagHandshakeB    Tag = "HandshakeB"
	TagHandshakeE    Tag = "HandshakeE"
	TagHandshakeF    Tag = "HandshakeF"
	TagNil           Tag = "Nil"
	TagStartGames    Tag = "StartGames"
	TagMove          Tag = "Move"
	TagAccept        Tag = "Accept"
	TagShutdown      Tag = "Shutdown"
	TagRequestPotato Tag = "RequestPotato"
)

// CoinString is the (coin ID, puzzle hash, amount) triple spec section 6
// defines as the external coin model's unit.
type CoinString struct {
	CoinID     [32]byte `bson:"coinId"`
	PuzzleHash [32]byte `bson:"puzzleHash"`
	Amount     uint64   `bson:"amount"`
}

// PotatoSigPair is the wire encoding of one potatocrypto.PotatoSignature:
// the codec treats it as opaque bytes, per spec section 3's "opaque pair of
// partial signatures" — it never interprets R/S as group elements itself.
type PotatoSigPair struct {
	R [32]byte `bson:"r"`
	S [32]byte `bson:"s"`
}

// PotatoSignatures is the pair attached to every state-advancing message.
type PotatoSignatures struct {
	Mine  PotatoSigPair `bson:"mine"`
	Their PotatoSigPair `bson:"their"`
}

type HandshakeA struct {
	ParentCoin        CoinString `bson:"parentCoin"`
	ChannelPublicKey  [32]byte   `bson:"channelPublicKey"`
	UnrollPublicKey   [32]byte   `bson:"unrollPublicKey"`
	RewardPuzzleHash  [32]byte   `bson:"rewardPuzzleHash"`
	RefereePuzzleHash [32]byte   `bson:"refereePuzzleHash"`
}

type HandshakeB struct {
	ChannelPublicKey  [32]byte `bson:"channelPublicKey"`
	UnrollPublicKey   [32]byte `bson:"unrollPublicKey"`
	RewardPuzzleHash  [32]byte `bson:"rewardPuzzleHash"`
	RefereePuzzleHash [32]byte `bson:"refereePuzzleHash"`
}

// SpendRecord is one (coin, puzzle, solution, aggregated-signature) entry
// of a spend bundle, per spec section 3.
type SpendRecord struct {
	Coin                CoinString `bson:"coin"`
	Puzzle              []byte     `bson:"puzzle"`
	Solution            []byte     `bson:"solution"`
	AggregatedSignature []byte     `bson:"aggregatedSignature"`
}

type SpendBundle struct {
	Spends []SpendRecord `bson:"spends"`
}

// GameStart is a game-type tag, a my-turn flag, and opaque parameter bytes.
type GameStart struct {
	GameType []byte `bson:"gameType"`
	MyTurn   bool   `bson:"myTurn"`
	Params   []byte `bson:"params"`
}

type HandshakeEPayload struct {
	Bundle SpendBundle `bson:"bundle"`
}

type HandshakeFPayload struct {
	Bundle SpendBundle `bson:"bundle"`
}

type NilPayload struct {
	Sigs PotatoSignatures `bson:"sigs"`
}

type StartGamesPayload struct {
	Games []GameStart `bson:"games"`
}

type MovePayload struct {
	GameID [32]byte         `bson:"gameId"`
	Move   []byte           `bson:"move"`
	Sigs   PotatoSignatures `bson:"sigs"`
}

type AcceptPayload struct {
	GameID [32]byte         `bson:"gameId"`
	Sigs   PotatoSignatures `bson:"sigs"`
}

type ShutdownPayload struct {
	Aggsig []byte `bson:"aggsig"`
}

type RequestPotatoPayload struct{}

// Message is the decoded tagged union: exactly one of the pointer fields
// matching Type is non-nil. Go has no native sum type, so this follows the
// same "tag plus the union of possible payloads" shape spec section 9's
// design notes explicitly call out as an acceptable target-language choice.
type Message struct {
	Type Tag

	HandshakeA    *HandshakeA
	HandshakeB    *HandshakeB
	HandshakeE    *HandshakeEPayload
	HandshakeF    *HandshakeFPayload
	Nil           *NilPayload
	StartGames    *StartGamesPayload
	Move          *MovePayload
	Accept        *AcceptPayload
	Shutdown      *ShutdownPayload
	RequestPotato *RequestPotatoPayload
}
