// Package transport wraps a gorilla/websocket connection into a duplex
// JSON frame stream. It is intentionally poker-unaware: frame in, frame
// out, ping/pong keepalive, nothing about lobbies or actions.
package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/holdem-lobby/internal/player"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16384
	sendBuffer     = 256
)

// Conn is one client's duplex frame stream, readable via Recv and
// writable via Send. Its outbound side satisfies player.Outbound.
type Conn struct {
	ws     *websocket.Conn
	send   chan json.RawMessage
	logger *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

var _ player.Outbound = (*Conn)(nil)

// New wraps an already-upgraded websocket connection and starts its write
// pump. Inbound frames are read on demand by Recv until the connection
// closes. logger is prefixed "conn" so per-connection noise
// (pump errors, dropped slow clients) is easy to grep out of the
// lobby-level log stream.
func New(ws *websocket.Conn, logger *log.Logger) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ws:     ws,
		send:   make(chan json.RawMessage, sendBuffer),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.writePump()
	return c
}

// Send marshals frame to JSON and queues it for delivery, dropping the
// connection if the outbound buffer is full rather than blocking the
// caller (the caller is typically holding a Lobby lock during broadcast).
func (c *Conn) Send(frame any) {
	raw, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("failed to marshal outbound frame", "error", err)
		return
	}
	select {
	case c.send <- raw:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("send buffer full, closing connection")
		c.Close()
	}
}

// Recv blocks for the next inbound frame. It returns ok=false once the
// connection is closed or errors; callers should treat that as a
// disconnect.
func (c *Conn) Recv() (frame json.RawMessage, ok bool) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			c.logger.Debug("websocket read error", "error", err)
		}
		c.Close()
		return nil, false
	}
	return raw, true
}

// Close terminates the connection; safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.logger.Error("failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
