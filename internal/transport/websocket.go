package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket is a duplex dispatch.PacketSender over a single gorilla/websocket
// connection: one coin channel, one counterparty, one connection, unlike
// the reference Hub's one-to-many broadcast set.
type WebSocket struct {
	id    uuid.UUID
	conn  *websocket.Conn
	inbox chan []byte
	wmu   sync.Mutex
}

// Dial opens an outbound websocket connection to a counterparty listening
// via Upgrade.
func Dial(url string) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return newWebSocket(conn), nil
}

// Upgrade promotes an inbound HTTP request to a websocket connection,
// mirroring the reference Hub.Subscribe upgrade step but for a single
// dedicated peer connection rather than a fan-out subscriber.
func Upgrade(w http.ResponseWriter, r *http.Request) (*WebSocket, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newWebSocket(conn), nil
}

func newWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{
		id:    uuid.New(),
		conn:  conn,
		inbox: make(chan []byte, 64),
	}
	go ws.readPump()
	return ws
}

// ID identifies this connection, for logging and for the local UI's
// peer-facing diagnostics.
func (w *WebSocket) ID() uuid.UUID {
	return w.id
}

func (w *WebSocket) readPump() {
	defer close(w.inbox)
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		w.inbox <- data
	}
}

// SendMessage implements dispatch.PacketSender.
func (w *WebSocket) SendMessage(envelope []byte) error {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, envelope)
}

// Inbox exposes the channel an owning event loop reads delivered envelopes
// from, to forward into PotatoHandler.ReceivedMessage. Closed once the
// underlying connection's read loop exits.
func (w *WebSocket) Inbox() <-chan []byte {
	return w.inbox
}

// Close tears down the underlying connection.
func (w *WebSocket) Close() error {
	return w.conn.Close()
}
