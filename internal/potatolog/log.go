// Package potatolog is the structured-logging ambient stack shared across
// this module, wrapping cosmossdk.io/log the way the reference
// application's keeper.Logger methods hand out a module-scoped logger via
// With("module", ...) rather than logging against a bare global.
package potatolog

import (
	"io"

	"cosmossdk.io/log"
)

// New builds a logger writing to dst, tagged with the given component name,
// mirroring keeper.Logger(ctx)'s With("module", "x/"+types.ModuleName).
func New(dst io.Writer, component string) log.Logger {
	return log.NewLogger(dst).With("component", component)
}

// Nop returns a logger that discards everything, for tests that want the
// dispatcher's production logging calls exercised without test output
// noise.
func Nop() log.Logger {
	return log.NewNopLogger()
}

// Peer returns a logger scoped to one peer role, for the simulator's two
// concurrently running event loops.
func Peer(dst io.Writer, role string) log.Logger {
	return New(dst, "potatochannel").With("role", role)
}
