package dispatch

import (
	"potatochannel/internal/channelhandler"
	"potatochannel/internal/potatocrypto"
	"potatochannel/internal/wire"
)

func isZeroPair(p wire.PotatoSigPair) bool {
	return p.R == [32]byte{} && p.S == [32]byte{}
}

func sigFromWirePair(p wire.PotatoSigPair) (potatocrypto.PotatoSignature, error) {
	if isZeroPair(p) {
		return potatocrypto.PotatoSignature{}, nil
	}
	r, err := potatocrypto.PointFromBytesCanonical(p.R[:])
	if err != nil {
		return potatocrypto.PotatoSignature{}, err
	}
	s, err := potatocrypto.ScalarFromBytesCanonical(p.S[:])
	if err != nil {
		return potatocrypto.PotatoSignature{}, err
	}
	return potatocrypto.PotatoSignature{R: r, S: s}, nil
}

func sigToWirePair(s potatocrypto.PotatoSignature) wire.PotatoSigPair {
	var out wire.PotatoSigPair
	if s.IsZero() {
		return out
	}
	copy(out.R[:], s.R.Bytes())
	copy(out.S[:], s.S.Bytes())
	return out
}

func sigPairToWire(s channelhandler.SignaturePair) wire.PotatoSignatures {
	return wire.PotatoSignatures{
		Mine:  sigToWirePair(s.Mine),
		Their: sigToWirePair(s.Their),
	}
}

func wireToSigPair(w wire.PotatoSignatures) (channelhandler.SignaturePair, error) {
	mine, err := sigFromWirePair(w.Mine)
	if err != nil {
		return channelhandler.SignaturePair{}, err
	}
	their, err := sigFromWirePair(w.Their)
	if err != nil {
		return channelhandler.SignaturePair{}, err
	}
	return channelhandler.SignaturePair{Mine: mine, Their: their}, nil
}

func bytes32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}

func pointFromArray(b [32]byte) (potatocrypto.Point, error) {
	return potatocrypto.PointFromBytesCanonical(b[:])
}
