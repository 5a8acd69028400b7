// Package transport implements dispatch.PacketSender over two carriers: an
// in-process loopback pair for tests and single-process simulation, and a
// websocket duplex for cross-process runs. Grounded on the reference
// application's internal/api/websocket.go Hub, generalized from a
// one-to-many broadcast hub to a point-to-point duplex link since each
// potato channel has exactly one counterparty.
package transport

// Loopback is an in-process PacketSender: SendMessage on one endpoint
// delivers on the other endpoint's Inbox channel, with no encoding or
// network involved.
type Loopback struct {
	inbox chan []byte
	peer  *Loopback
}

// NewLoopbackPair builds two endpoints wired to each other.
func NewLoopbackPair(buffer int) (a, b *Loopback) {
	a = &Loopback{inbox: make(chan []byte, buffer)}
	b = &Loopback{inbox: make(chan []byte, buffer)}
	a.peer = b
	b.peer = a
	return a, b
}

// SendMessage implements dispatch.PacketSender.
func (l *Loopback) SendMessage(envelope []byte) error {
	l.peer.inbox <- envelope
	return nil
}

// Inbox exposes the channel an owning event loop reads delivered envelopes
// from, to forward into PotatoHandler.ReceivedMessage.
func (l *Loopback) Inbox() <-chan []byte {
	return l.inbox
}
