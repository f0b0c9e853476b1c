package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

var errConnClosed = errors.New("connection closed")

// Conn adapts a websocket connection to the room.Sender contract: sends are
// queued onto a buffered channel and drained by a single write pump, which
// keeps per-room message order and serializes writes without a lock around
// the socket. A client that cannot drain its buffer is dropped rather than
// allowed to stall the room.
type Conn struct {
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newConn(wsConn *websocket.Conn) *Conn {
	c := &Conn{
		ws:     wsConn,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send queues one outbound frame. It never blocks the caller: a full buffer
// closes the connection and reports an error, which the room treats as a
// transport loss.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.closed:
		return errConnClosed
	default:
		c.Close()
		return errors.New("send buffer overflow")
	}
}

// Close shuts the connection down; safe to call more than once.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			// Flush whatever is already queued before closing.
			for {
				select {
				case data := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if c.ws.WriteMessage(websocket.TextMessage, data) != nil {
						return
					}
				default:
					deadline := time.Now().Add(time.Second)
					c.ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
					return
				}
			}
		}
	}
}
