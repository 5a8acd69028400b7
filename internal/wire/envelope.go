package wire

import (
	"go.mongodb.org/mongo-driver/bson"

	"potatochannel/internal/potatoerr"
)

// MaxEnvelopeBytes bounds a single encoded envelope, matching the typical
// size ceiling of a coin-spend-bundle-bearing message in this protocol
// family; anything larger is rejected at decode time rather than risking
// an unbounded allocation from an adversarial peer.
const MaxEnvelopeBytes = 64 * 1024

type envelopeDoc struct {
	Type  Tag      `bson:"type"`
	Value bson.Raw `bson:"value"`
}

// Encode serializes msg into a BSON-encoded envelope. Only the payload
// field matching msg.Type is encoded; any other payload fields set on msg
// are ignored. An unknown tag is a WireDecode error, and a nil
// RequestPotato payload is encoded as an empty one.
func Encode(msg Message) ([]byte, error) {
	var payload any
	switch msg.Type {
	case TagHandshakeA:
		payload = msg.HandshakeA
	case TagHandshakeB:
		payload = msg.HandshakeB
	case TagHandshakeE:
		payload = msg.HandshakeE
	case TagHandshakeF:
		payload = msg.HandshakeF
	case TagNil:
		payload = msg.Nil
	case TagStartGames:
		payload = msg.StartGames
	case TagMove:
		payload = msg.Move
	case TagAccept:
		payload = msg.Accept
	case TagShutdown:
		payload = msg.Shutdown
	case TagRequestPotato:
		if msg.RequestPotato == nil {
			payload = &RequestPotatoPayload{}
		} else {
			payload = msg.RequestPotato
		}
	default:
		return nil, potatoerr.New(potatoerr.KindWireDecode, "unknown envelope tag %q", msg.Type)
	}
	if payload == nil {
		return nil, potatoerr.New(potatoerr.KindWireDecode, "missing payload for tag %q", msg.Type)
	}

	valueBytes, err := bson.Marshal(payload)
	if err != nil {
		return nil, potatoerr.Wrap(potatoerr.KindWireDecode, err, "encode payload for tag %q", msg.Type)
	}

	out, err := bson.Marshal(envelopeDoc{Type: msg.Type, Value: bson.Raw(valueBytes)})
	if err != nil {
		return nil, potatoerr.Wrap(potatoerr.KindWireDecode, err, "encode envelope")
	}
	if len(out) > MaxEnvelopeBytes {
		return nil, potatoerr.New(potatoerr.KindWireDecode, "encoded envelope %d bytes exceeds max %d", len(out), MaxEnvelopeBytes)
	}
	return out, nil
}

// Decode parses a BSON-encoded envelope and fills in the Message field that
// matches its tag. Unknown tags are fatal per spec section 4.3.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, potatoerr.New(potatoerr.KindWireDecode, "empty envelope")
	}
	if len(data) > MaxEnvelopeBytes {
		return Message{}, potatoerr.New(potatoerr.KindWireDecode, "encoded envelope %d bytes exceeds max %d", len(data), MaxEnvelopeBytes)
	}

	var env envelopeDoc
	if err := bson.Unmarshal(data, &env); err != nil {
		return Message{}, potatoerr.Wrap(potatoerr.KindWireDecode, err, "invalid bson envelope")
	}
	if env.Type == "" {
		return Message{}, potatoerr.New(potatoerr.KindWireDecode, "missing envelope type")
	}

	msg := Message{Type: env.Type}
	var unmarshalErr error
	switch env.Type {
	case TagHandshakeA:
		msg.HandshakeA = &HandshakeA{}
		unmarshalErr = bson.Unmarshal(env.Value, msg.HandshakeA)
	case TagHandshakeB:
		msg.HandshakeB = &HandshakeB{}
		unmarshalErr = bson.Unmarshal(env.Value, msg.HandshakeB)
	case TagHandshakeE:
		msg.HandshakeE = &HandshakeEPayload{}
		unmarshalErr = bson.Unmarshal(env.Value, msg.HandshakeE)
	case TagHandshakeF:
		msg.HandshakeF = &HandshakeFPayload{}
		unmarshalErr = bson.Unmarshal(env.Value, msg.HandshakeF)
	case TagNil:
		msg.Nil = &NilPayload{}
		unmarshalErr = bson.Unmarshal(env.Value, msg.Nil)
	case TagStartGames:
		msg.StartGames = &StartGamesPayload{}
		unmarshalErr = bson.Unmarshal(env.Value, msg.StartGames)
	case TagMove:
		msg.Move = &MovePayload{}
		unmarshalErr = bson.Unmarshal(env.Value, msg.Move)
	case TagAccept:
		msg.Accept = &AcceptPayload{}
		unmarshalErr = bson.Unmarshal(env.Value, msg.Accept)
	case TagShutdown:
		msg.Shutdown = &ShutdownPayload{}
		unmarshalErr = bson.Unmarshal(env.Value, msg.Shutdown)
	case TagRequestPotato:
		msg.RequestPotato = &RequestPotatoPayload{}
	default:
		return Message{}, potatoerr.New(potatoerr.KindWireDecode, "unknown envelope tag %q", env.Type)
	}
	if unmarshalErr != nil {
		return Message{}, potatoerr.Wrap(potatoerr.KindWireDecode, unmarshalErr, "decode payload for tag %q", env.Type)
	}
	return msg, nil
}
