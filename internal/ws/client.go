package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

var (
	errClosed   = errors.New("connection closed")
	errSlowPeer = errors.New("send buffer full")
)

// Client is one websocket connection. Writes go through send and are
// performed by writePump only; Deliver never blocks.
type Client struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	hub        *Hub
	dispatcher *Dispatcher
	log        *slog.Logger
}

func NewClient(conn *websocket.Conn, hub *Hub, dispatcher *Dispatcher, log *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:         id,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		hub:        hub,
		dispatcher: dispatcher,
		log:        log.With("conn", id),
	}
}

func (c *Client) ID() string { return c.id }

// Deliver queues msg for writing.
func (c *Client) Deliver(msg []byte) error {
	select {
	case <-c.done:
		return errClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return errClosed
	default:
		return errSlowPeer
	}
}

// Run blocks until the connection ends.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.Unsubscribe(c, nil)
		_ = c.conn.Close()
	})
}

//read
func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("ws read error", "error", err)
			}
			return
		}

		out := c.dispatcher.Handle(ctx, c, msg)
		if out == nil {
			continue
		}
		b, err := json.Marshal(out)
		if err != nil {
			c.log.Error("ws encode response failed", "error", err)
			continue
		}
		if err := c.Deliver(b); err != nil {
			c.log.Warn("ws response dropped", "error", err)
		}
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("ws write error", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
