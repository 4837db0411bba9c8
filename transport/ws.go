// Package transport adapts HTTP and WebSocket traffic to the relay core.
// It is glue: identity extraction, payload (un)marshalling and connection
// pumps live here, routing decisions do not.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dm-relay/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// wsConn wraps one websocket connection into the two halves the relay
// engine consumes: a Receiver read directly by the connection's own
// goroutine, and a MessageSink whose writes go through a buffered channel
// drained by a dedicated write pump. The buffer decouples senders from a
// slow peer, so two users messaging each other can never deadlock.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  *slog.Logger
}

func newWSConn(conn *websocket.Conn, log *slog.Logger, bufferSize int) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan []byte, bufferSize),
		done: make(chan struct{}),
		log:  log,
	}
}

// shutdown stops the write pump. The send channel is deliberately never
// closed: another connection's goroutine may still hold this sink and
// enqueue into it while the connection is going away.
func (c *wsConn) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// Consume queues one message document for delivery. It fails when the
// peer's outbound queue stays full past the delivery deadline; the caller
// decides what that means.
func (c *wsConn) Consume(ctx context.Context, m domain.Message) error {
	payload, err := json.Marshal(domain.ToWire(m))
	if err != nil {
		return err
	}
	return c.enqueue(ctx, payload)
}

// ConsumeError surfaces a per-event failure to this connection's peer as a
// detail document, FastAPI style.
func (c *wsConn) ConsumeError(ctx context.Context, detail string) error {
	payload, err := json.Marshal(map[string]string{"detail": detail})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, payload)
}

func (c *wsConn) enqueue(ctx context.Context, payload []byte) error {
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return net.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until the peer sends a payload or the connection closes.
func (c *wsConn) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// writePump drains the outbound queue onto the wire and keeps the
// connection alive with pings. It is the only goroutine writing to the
// connection. It exits on shutdown, after emitting a close frame.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("websocket write failed", "error", err)
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) setupRead() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}
