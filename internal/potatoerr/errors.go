// Package potatoerr implements the flat error taxonomy the potato handler
// core produces. Every error a dispatcher entry point returns carries one
// of these kinds so callers can branch with errors.As instead of matching
// on message strings, the way internal/app's callers branch on sentinel
// wrapping in the reference application.
package potatoerr

import "fmt"

type Kind int

const (
	_ Kind = iota
	KindWireDecode
	KindProtocolState
	KindMissingPrecondition
	KindChannelHandlerFailure
	KindAllocatorUnseeded
	KindWalletRejection
)

func (k Kind) String() string {
	switch k {
	case KindWireDecode:
		return "WireDecode"
	case KindProtocolState:
		return "ProtocolState"
	case KindMissingPrecondition:
		return "MissingPrecondition"
	case KindChannelHandlerFailure:
		return "ChannelHandlerFailure"
	case KindAllocatorUnseeded:
		return "AllocatorUnseeded"
	case KindWalletRejection:
		return "WalletRejection"
	default:
		return "Unknown"
	}
}

// Error is the typed error value propagated externally per spec section 7.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is a *Error of the given kind, unwrapping through
// any wrapping chain the same way errors.As would.
func Is(err error, kind Kind) bool {
	for err != nil {
		if pe, ok := err.(*Error); ok {
			return pe.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
