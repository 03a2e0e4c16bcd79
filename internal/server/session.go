package server

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/JosticeMan/RPlace/internal/log"
	"github.com/JosticeMan/RPlace/internal/protocol"
)

// State is a session's position in its lifecycle.
type State int32

const (
	StateAwaitingLogin State = iota
	StateActive
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingLogin:
		return "AWAITING_LOGIN"
	case StateActive:
		return "ACTIVE"
	case StateError:
		return "ERROR"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Session serves one connection: the login handshake followed by tile
// changes until the client leaves or misbehaves.
type Session struct {
	id     uuid.UUID
	server *Server
	conn   *protocol.Conn
	host   string
	logger logrus.FieldLogger

	username   string
	registered bool

	state  atomic.Int32
	ready  atomic.Bool
	failed atomic.Bool
}

func newSession(s *Server, conn *protocol.Conn, host string) *Session {
	id := uuid.New()
	return &Session{
		id:     id,
		server: s,
		conn:   conn,
		host:   host,
		logger: logger.WithFields(logrus.Fields{"session": id.String(), "addr": host}),
	}
}

func (sess *Session) ID() uuid.UUID {
	return sess.id
}

// Username is empty until a LOGIN has been received.
func (sess *Session) Username() string {
	return sess.username
}

func (sess *Session) State() State {
	return State(sess.state.Load())
}

func (sess *Session) setState(st State) {
	sess.state.Store(int32(st))
	sess.logger.WithField("state", st.String()).Debug("session state changed")
}

// Run drives the session until it reaches CLOSED. It returns the reason the
// session ended, or nil after a clean disconnect. Only transport failures and
// malformed frames pass through ERROR; a refused login or an unexpected kind
// goes straight to CLOSED.
func (sess *Session) Run(ctx context.Context) (err error) {
	defer func() {
		if err != nil && !isRejection(err) {
			sess.setState(StateError)
		}
		if sess.registered {
			sess.server.registry.Deregister(sess)
			sess.logger.Info("disconnected")
		}
		sess.conn.Close()
		sess.setState(StateClosed)
	}()

	if err := sess.login(); err != nil {
		return err
	}
	return sess.serve(ctx)
}

func (sess *Session) login() error {
	msg, err := sess.conn.Receive()
	if err != nil {
		return errors.Wrap(err, "receive login failed")
	}
	if msg.Kind != protocol.KindLogin {
		sess.reply(protocol.Error("Expected login request first!"))
		return errors.Wrapf(ErrProtocol, "%s before LOGIN", msg.Kind)
	}

	name := strings.TrimSpace(msg.Text)
	if name == "" {
		sess.reply(protocol.Error("Username must not be empty!"))
		return ErrInvalidUsername
	}
	sess.username = name
	sess.logger = sess.logger.WithField("user", name)

	if err := sess.server.registry.Register(sess); err != nil {
		sess.reply(protocol.Error(name + " already logged in! Try a different user!"))
		return errors.Wrap(err, name)
	}
	sess.registered = true
	sess.logger.Info("connected")

	info := fmt.Sprintf("Welcome %s! session=%s addr=%s", name, sess.id, sess.conn.RemoteAddr())
	if err := sess.conn.Send(protocol.LoginSuccess(info)); err != nil {
		return errors.Wrap(err, "send login success failed")
	}
	if err := sess.server.sendBoard(sess); err != nil {
		return errors.Wrap(err, "send board failed")
	}
	sess.setState(StateActive)
	return nil
}

func (sess *Session) serve(ctx context.Context) error {
	for {
		msg, err := sess.conn.Receive()
		if err != nil {
			if protocol.IsClosed(err) {
				return nil
			}
			return errors.Wrap(err, "receive failed")
		}
		sess.logger.WithFields(log.MessageToFields(msg)).Trace("received message")

		switch msg.Kind {
		case protocol.KindChangeTile:
			tile := msg.Tile
			tile.Owner = sess.username
			if tile.Time.IsZero() {
				tile.Time = sess.server.now().UTC()
			}
			if !sess.server.ChangeTile(ctx, tile) {
				sess.logger.WithFields(log.TileToFields(tile)).Debug("ignored tile change off the board")
			}
		case protocol.KindError:
			// the client's way of saying goodbye
			return nil
		default:
			sess.reply(protocol.Error("Expected change tile requests only!"))
			return errors.Wrapf(ErrProtocol, "%s while active", msg.Kind)
		}
	}
}

// reply writes a message to the client, ignoring transport errors; the
// session is about to end either way.
func (sess *Session) reply(msg protocol.Message) {
	if err := sess.conn.Send(msg); err != nil {
		sess.logger.WithError(err).Debug("reply failed")
	}
}

// deliver is the broadcast path. A session whose transport already failed is
// skipped; a failed write closes the transport so the session's own read
// loop ends and deregisters it.
func (sess *Session) deliver(msg protocol.Message) {
	if !sess.ready.Load() || sess.failed.Load() {
		return
	}
	if err := sess.conn.Send(msg); err != nil {
		sess.failed.Store(true)
		sess.logger.WithError(err).Warn("send message to client failed")
		sess.conn.Close()
	}
}
