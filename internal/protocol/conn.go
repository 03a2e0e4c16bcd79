package protocol

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Path is the HTTP path sessions are upgraded on.
const Path = "/ws"

// Conn wraps a [websocket.Conn] to add thread safety to writes and to speak
// in Messages instead of frames.
type Conn struct {
	ws *websocket.Conn

	m         sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Dial opens a session connection to a place server.
func Dial(ctx context.Context, host string, port uint16) (*Conn, error) {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10)), Path: Path}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s failed with status %s", u.String(), resp.Status)
		}
		return nil, errors.Wrapf(err, "dial %s failed", u.String())
	}
	return NewConn(ws), nil
}

// Send encodes and writes one message. Safe for concurrent use.
func (c *Conn) Send(msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	c.m.Lock()
	defer c.m.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Receive blocks for the next message. Only one goroutine may call Receive.
func (c *Conn) Receive() (Message, error) {
	typ, data, err := c.ws.ReadMessage()
	if err != nil {
		return Message{}, err
	}
	if typ != websocket.TextMessage {
		return Message{}, errors.Wrap(ErrMalformed, "binary frame")
	}
	return Decode(data)
}

// Close closes the underlying connection, unblocking a pending Receive. It
// may be called more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

// IsClosed reports whether err is the normal end of a session, as opposed to
// a transport failure worth logging.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}
