package ws

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/presence-relay/internal/domain"
)

// wsConn - websocket-соединение с очередью отправки. Send только кладёт
// кадр в очередь; в сокет пишет writeLoop.
type wsConn struct {
	id   string
	conn *websocket.Conn

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(id string, c *websocket.Conn, buffer int) *wsConn {
	return &wsConn{
		id:     id,
		conn:   c,
		send:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send не блокируется: при полной очереди кадр отбрасывается.
func (c *wsConn) Send(payload []byte) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return net.ErrClosed
	default:
		return domain.ErrSendBufferFull
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})

	return err
}

func (c *wsConn) write(payload []byte, wait time.Duration) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) ping(wait time.Duration) error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wait))
}
