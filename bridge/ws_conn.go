package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"

	"github.com/BaSui01/voicebridge/types"
)

// wsConn adapts a WebSocket connection to the session's Conn interface.
// Writes go through a mutex because the WebSocket does not support
// concurrent writers.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

// WriteEnvelope serializes the envelope as JSON and sends it as one text
// message.
func (w *wsConn) WriteEnvelope(ctx context.Context, env Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return types.NewError(types.ErrSessionClosed, "connection closed")
	}

	data, err := json.Marshal(env)
	if err != nil {
		return types.NewError(types.ErrMalformedEvent, "failed to marshal envelope").WithCause(err)
	}
	return w.conn.Write(ctx, websocket.MessageText, data)
}

// Close closes the underlying WebSocket. It is idempotent.
func (w *wsConn) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.conn.Close(websocket.StatusNormalClosure, "closing")
}
