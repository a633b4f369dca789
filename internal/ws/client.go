package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 10 << 20
	sendBuffer     = 64
	inboxBuffer    = 64
)

var errInboxFull = errors.New("inbound queue full")

// Client is one authenticated websocket connection.
type Client struct {
	conn *websocket.Conn
	info ConnInfo
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		conn: conn,
		info: info,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ConnID() string { return c.info.ConnID }

func (c *Client) UserID() int64 { return c.info.UserID }

func (c *Client) Info() ConnInfo { return c.info }

// Enqueue hands a frame to the write pump. A client whose buffer is full is closed
// and the frame dropped. It reports whether the frame was queued.
func (c *Client) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.Close()
		return false
	}
}

// Close stops the write pump, which closes the socket. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump owns all writes to the socket.
func (c *Client) writePump(onError func(error)) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				onError(err)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.drain()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// drain flushes frames queued before Close so a final error frame still reaches the peer.
func (c *Client) drain() {
	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readPump feeds inbound text frames to inbox in arrival order and closes inbox when
// the connection ends. It never waits on a handler, so a close is seen while one runs.
// It returns the reason the connection ended.
func (c *Client) readPump(inbox chan<- []byte) error {
	defer close(inbox)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, raw, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		select {
		case inbox <- raw:
		default:
			return errInboxFull
		}
	}
}

// process runs handle for each frame of inbox, one at a time. It stops once the client is closed.
func (c *Client) process(inbox <-chan []byte, handle func(raw []byte)) {
	for raw := range inbox {
		select {
		case <-c.done:
			return
		default:
		}
		handle(raw)
	}
}
