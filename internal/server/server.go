// Package server implements the place server.
//
// The server owns one board and the registry of logged-in sessions. Each
// accepted connection runs its own Session goroutine:
//  1. The source host is checked against the connection cooldown; a host that
//     connected less than a cooldown ago is refused before the upgrade.
//  2. The session waits for LOGIN, registers the username, and answers
//     LOGIN_SUCCESS followed by a BOARD snapshot.
//  3. Every CHANGE_TILE with coordinates on the board is applied and pushed to
//     all ready sessions as TILE_CHANGED. Off-board changes are dropped
//     without a reply.
//
// The board, the registry and the cooldown table are three independent lock
// domains. Applying a tile and fanning it out happen under the board lock, so
// a slow peer delays everyone's view of that tile but no client ever sees
// tiles out of board order.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/JosticeMan/RPlace/internal/board"
	"github.com/JosticeMan/RPlace/internal/log"
	"github.com/JosticeMan/RPlace/internal/protocol"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// PruneInterval is how often expired cooldown entries are dropped.
const PruneInterval = time.Minute

// Server coordinates the shared board between sessions.
type Server struct {
	cooldown      time.Duration
	allowedOrigin string
	mirror        Mirror
	now           func() time.Time
	upgrader      websocket.Upgrader

	boardMu sync.Mutex
	board   *board.Board

	registry *Registry
	limiter  *RateLimiter

	live    sync.Map // *Session -> struct{}
	closing atomic.Bool
	wg      sync.WaitGroup
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithCooldown sets the minimum interval between two admitted connections
// from one host. Zero disables it.
func WithCooldown(d time.Duration) Cfg {
	return func(s *Server) error {
		if d < 0 {
			return errors.New("cooldown must not be negative")
		}
		s.cooldown = d
		return nil
	}
}

// WithMirror copies every applied tile to m.
func WithMirror(m Mirror) Cfg {
	return func(s *Server) error {
		s.mirror = m
		return nil
	}
}

// WithAllowedOrigin restricts browser upgrades to one origin.
func WithAllowedOrigin(origin string) Cfg {
	return func(s *Server) error {
		s.allowedOrigin = origin
		return nil
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Cfg {
	return func(s *Server) error {
		s.now = now
		return nil
	}
}

// New creates a server with a fresh dim x dim board.
func New(dim int, cfgs ...Cfg) (*Server, error) {
	b, err := board.New(dim)
	if err != nil {
		return nil, errors.Wrap(err, "new board failed")
	}
	s := &Server{
		board:    b,
		registry: NewRegistry(),
		cooldown: 5000 * time.Millisecond,
		now:      time.Now,
	}
	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	s.limiter = NewRateLimiter(s.cooldown)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	if s.mirror != nil {
		if err := s.mirror.Reset(context.Background(), b.Snapshot()); err != nil {
			logger.WithError(err).Warn("reset mirror failed, mirror is stale until tiles change")
		}
	}
	return s, nil
}

func (s *Server) Dim() int {
	return s.board.Dim()
}

func (s *Server) Registry() *Registry {
	return s.registry
}

// Snapshot copies the current board.
func (s *Server) Snapshot() board.Grid {
	s.boardMu.Lock()
	defer s.boardMu.Unlock()
	return s.board.Snapshot()
}

// ChangeTile applies the tile and broadcasts it to every ready session. It
// reports false, without broadcasting, when the tile is off the board or has
// a colour outside the palette.
func (s *Server) ChangeTile(ctx context.Context, tile board.Tile) bool {
	s.boardMu.Lock()
	defer s.boardMu.Unlock()

	if !tile.Color.Valid() || !s.board.Apply(tile) {
		return false
	}
	logger.WithFields(log.TileToFields(tile)).Debug("tile changed")

	if s.mirror != nil {
		if err := s.mirror.Set(ctx, tile); err != nil {
			logger.WithError(err).Warn("mirror tile failed")
		}
	}

	msg := protocol.TileChanged(tile)
	for _, sess := range s.registry.Sessions() {
		sess.deliver(msg)
	}
	return true
}

// sendBoard sends the snapshot and marks the session ready under the board
// lock, so no TILE_CHANGED can reach the session before its BOARD or be
// missing from it.
func (s *Server) sendBoard(sess *Session) error {
	s.boardMu.Lock()
	defer s.boardMu.Unlock()
	if err := sess.conn.Send(protocol.Board(s.board.Snapshot())); err != nil {
		return err
	}
	sess.ready.Store(true)
	return nil
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return &StartupError{Addr: addr, Err: err}
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is cancelled, then closes every
// live session and waits for them to finish.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{Handler: s.Handler()}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.pruneLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(l)
	}()
	logger.WithFields(logrus.Fields{"addr": l.Addr().String(), "dim": s.Dim()}).Info("server started, now accepting users")

	select {
	case err := <-errc:
		s.closing.Store(true)
		s.closeSessions("Server stopped!")
		return errors.Wrap(err, "serve failed")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown failed")
	}
	s.closing.Store(true)
	s.closeSessions("Server is shutting down!")
	s.wg.Wait()
	logger.Info("server stopped")
	return nil
}

func (s *Server) closeSessions(reason string) {
	s.live.Range(func(k, _ interface{}) bool {
		sess := k.(*Session)
		if sess.ready.Load() {
			sess.deliver(protocol.Error(reason))
		}
		sess.conn.Close()
		return true
	})
}

func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Prune(s.now()); n > 0 {
				logger.WithField("hosts", n).Debug("pruned connection cooldowns")
			}
		}
	}
}
