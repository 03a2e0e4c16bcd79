// Package client implements the client side of the place protocol: the
// login handshake, a local copy of the board kept current from TILE_CHANGED
// pushes, and tile change submissions paced by an advisory cooldown.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/JosticeMan/RPlace/internal/board"
	"github.com/JosticeMan/RPlace/internal/log"
	"github.com/JosticeMan/RPlace/internal/protocol"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// UpdatesBuffer is the capacity of the channel returned by Updates.
const UpdatesBuffer = 256

// Status of the client's connection.
type Status int

const (
	StatusActive Status = iota
	StatusClosed
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusClosed:
		return "CLOSED"
	default:
		return "ERROR"
	}
}

// Client is a logged-in connection to a place server.
type Client struct {
	username string
	info     string
	conn     *protocol.Conn
	cooldown *rate.Limiter
	onTile   func(board.Tile)
	updates  chan board.Tile

	mu     sync.RWMutex
	board  *board.Board
	status Status
	reason string
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithCooldown spaces this client's own tile changes at least d apart.
func WithCooldown(d time.Duration) Cfg {
	return func(c *Client) error {
		if d < 0 {
			return errors.New("cooldown must not be negative")
		}
		if d == 0 {
			c.cooldown = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		c.cooldown = rate.NewLimiter(rate.Every(d), 1)
		return nil
	}
}

// WithTileHandler registers fn to be called from Run after each
// TILE_CHANGED has been applied to the local board.
func WithTileHandler(fn func(board.Tile)) Cfg {
	return func(c *Client) error {
		c.onTile = fn
		return nil
	}
}

// Dial connects to host:port and logs in as username. On success the
// client's board holds the server's BOARD snapshot.
func Dial(ctx context.Context, host string, port uint16, username string, cfgs ...Cfg) (*Client, error) {
	c := &Client{
		username: username,
		cooldown: rate.NewLimiter(rate.Inf, 1),
		updates:  make(chan board.Tile, UpdatesBuffer),
	}
	for _, cfg := range cfgs {
		if err := cfg(c); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}

	conn, err := protocol.Dial(ctx, host, port)
	if err != nil {
		return nil, errors.Wrap(err, "connect failed")
	}
	if err := c.login(conn); err != nil {
		conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) login(conn *protocol.Conn) error {
	if err := conn.Send(protocol.Login(c.username)); err != nil {
		return errors.Wrap(err, "send login failed")
	}
	msg, err := conn.Receive()
	if err != nil {
		return errors.Wrap(err, "receive login reply failed")
	}
	switch msg.Kind {
	case protocol.KindLoginSuccess:
		c.info = msg.Text
	case protocol.KindError:
		return errors.Wrap(ErrLoginRejected, msg.Text)
	default:
		return errors.Wrapf(ErrUnexpectedMessage, "%s instead of LOGIN_SUCCESS", msg.Kind)
	}

	msg, err = conn.Receive()
	if err != nil {
		return errors.Wrap(err, "receive board failed")
	}
	if msg.Kind != protocol.KindBoard {
		return errors.Wrapf(ErrUnexpectedMessage, "%s instead of BOARD", msg.Kind)
	}
	b, err := board.FromGrid(msg.Grid)
	if err != nil {
		return errors.Wrap(err, "load board failed")
	}
	c.board = b
	c.status = StatusActive
	logger.WithFields(logrus.Fields{"user": c.username, "dim": b.Dim()}).Debug(c.info)
	return nil
}

func (c *Client) Username() string {
	return c.username
}

// Info is the text the server sent with LOGIN_SUCCESS.
func (c *Client) Info() string {
	return c.info
}

func (c *Client) Dim() int {
	return c.board.Dim()
}

// Board copies the local board.
func (c *Client) Board() board.Grid {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.board.Snapshot()
}

// Updates carries every tile Run applies to the local board and is closed
// when Run returns. A tile is dropped rather than stalling Run when nobody
// keeps up with the channel; Board stays authoritative.
func (c *Client) Updates() <-chan board.Tile {
	return c.updates
}

// Status returns the connection status and, for StatusError, the reason.
func (c *Client) Status() (Status, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status, c.reason
}

// Run applies server pushes to the local board until the connection ends or
// ctx is cancelled. It returns nil when the client was closed locally. Run
// must be called at most once.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()
	defer close(c.updates)

	for {
		msg, err := c.conn.Receive()
		if err != nil {
			if st, _ := c.Status(); st == StatusClosed {
				return nil
			}
			c.fail("Lost connection to server.")
			return errors.Wrap(err, "receive failed")
		}
		logger.WithFields(log.MessageToFields(msg)).Trace("received message")

		switch msg.Kind {
		case protocol.KindTileChanged:
			c.mu.Lock()
			ok := c.board.Apply(msg.Tile)
			c.mu.Unlock()
			if !ok {
				continue
			}
			if c.onTile != nil {
				c.onTile(msg.Tile)
			}
			select {
			case c.updates <- msg.Tile:
			default:
				logger.WithFields(log.TileToFields(msg.Tile)).Debug("updates full, tile dropped")
			}
		case protocol.KindError:
			c.fail(msg.Text)
			c.conn.Close()
			return errors.Wrap(ErrServerError, msg.Text)
		default:
			c.fail("unexpected " + string(msg.Kind))
			c.conn.Close()
			return errors.Wrapf(ErrUnexpectedMessage, "%s while active", msg.Kind)
		}
	}
}

// ChangeTile asks the server to recolour (row, col). It waits out the
// advisory cooldown first and refuses coordinates outside the local board.
func (c *Client) ChangeTile(ctx context.Context, row, col int, color board.Color) error {
	tile := board.Tile{
		Row:   row,
		Col:   col,
		Color: color,
		Owner: c.username,
	}
	if !c.board.Validate(tile) || !color.Valid() {
		return errors.Wrapf(ErrInvalidTile, "(%d, %d) %s", row, col, color)
	}
	if st, reason := c.Status(); st != StatusActive {
		return errors.Wrapf(ErrNotActive, "%s %s", st, reason)
	}
	if err := c.cooldown.Wait(ctx); err != nil {
		return errors.Wrap(err, "wait for cooldown failed")
	}
	tile.Time = time.Now().UTC()
	if err := c.conn.Send(protocol.ChangeTile(tile)); err != nil {
		return errors.Wrap(err, "send change tile failed")
	}
	return nil
}

// Close says goodbye to the server and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.status != StatusActive {
		c.mu.Unlock()
		return c.conn.Close()
	}
	c.status = StatusClosed
	c.mu.Unlock()

	if err := c.conn.Send(protocol.Error("DISCONNECT")); err != nil {
		logger.WithError(err).Debug("send disconnect failed")
	}
	return c.conn.Close()
}

func (c *Client) fail(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusActive {
		c.status = StatusError
		c.reason = reason
	}
}
