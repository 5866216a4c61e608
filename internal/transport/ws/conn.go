package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var errConnClosed = errors.New("ws: connection closed")

const (
	writeBuffer  = 100
	writeTimeout = 5 * time.Second
)

// conn wraps a websocket with a single-writer pump so concurrent pushes
// (live dispatch, replay, namespace broadcasts) never interleave on the
// wire. It implements presence.Conn; the uuid gives the handle the stable
// identity registries match removals against.
type conn struct {
	id        string
	ws        *websocket.Conn
	writeCh   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	c := &conn{
		id:      uuid.NewString(),
		ws:      ws,
		writeCh: make(chan []byte, writeBuffer),
		done:    make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *conn) ID() string { return c.id }

// SendJSON queues v for delivery. It never blocks longer than the write
// timeout: a stalled peer loses the message, not the caller.
func (c *conn) SendJSON(v interface{}) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.writeCh <- data:
		return nil
	case <-c.done:
		return errConnClosed
	case <-time.After(writeTimeout):
		return errors.New("ws: write queue full")
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				c.Close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close tears the socket down. Safe to call from any goroutine, any
// number of times; the registry closes superseded handles through here.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}
