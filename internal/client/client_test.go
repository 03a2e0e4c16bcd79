package client

import (
	"context"
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosticeMan/RPlace/internal/board"
	"github.com/JosticeMan/RPlace/internal/server"
)

const waitFor = 5 * time.Second

func startServer(t *testing.T, dim int) (*server.Server, string, uint16) {
	t.Helper()
	s, err := server.New(dim, server.WithCooldown(0))
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)
	return s, host, uint16(port)
}

func run(t *testing.T, c *Client) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background())
	}()
	t.Cleanup(func() { c.Close() })
	return done
}

func nextTile(t *testing.T, tiles <-chan board.Tile) board.Tile {
	t.Helper()
	select {
	case tile := <-tiles:
		return tile
	case <-time.After(waitFor):
		t.Fatal("no tile received")
		return board.Tile{}
	}
}

func TestDialLoadsBoard(t *testing.T) {
	s, host, port := startServer(t, 4)
	s.ChangeTile(context.Background(), board.Tile{Row: 3, Col: 2, Color: board.Maroon, Owner: "zed"})

	c, err := Dial(context.Background(), host, port, "alice")
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "alice", c.Username())
	assert.Contains(t, c.Info(), "alice")
	assert.Equal(t, 4, c.Dim())
	assert.Equal(t, s.Snapshot(), c.Board())
	st, _ := c.Status()
	assert.Equal(t, StatusActive, st)
}

func TestDialDuplicateRejected(t *testing.T) {
	_, host, port := startServer(t, 2)
	first, err := Dial(context.Background(), host, port, "alice")
	require.NoError(t, err)
	defer first.Close()

	_, err = Dial(context.Background(), host, port, "Alice")
	require.ErrorIs(t, err, ErrLoginRejected)
	assert.Contains(t, err.Error(), "already logged in")
}

func TestTileChangesReachOtherClients(t *testing.T) {
	_, host, port := startServer(t, 3)

	aliceTiles := make(chan board.Tile, 8)
	alice, err := Dial(context.Background(), host, port, "alice", WithTileHandler(func(tile board.Tile) { aliceTiles <- tile }))
	require.NoError(t, err)
	run(t, alice)

	bobTiles := make(chan board.Tile, 8)
	bob, err := Dial(context.Background(), host, port, "bob", WithTileHandler(func(tile board.Tile) { bobTiles <- tile }))
	require.NoError(t, err)
	run(t, bob)

	require.NoError(t, alice.ChangeTile(context.Background(), 1, 1, board.Red))

	tile := nextTile(t, bobTiles)
	assert.Equal(t, 1, tile.Row)
	assert.Equal(t, 1, tile.Col)
	assert.Equal(t, board.Red, tile.Color)
	assert.Equal(t, "alice", tile.Owner)
	assert.Equal(t, board.Red, bob.Board().Tiles[1][1].Color)

	assert.Equal(t, tile, nextTile(t, aliceTiles))
	assert.Equal(t, alice.Board(), bob.Board())
}

func TestUpdatesCarriesAppliedTiles(t *testing.T) {
	s, host, port := startServer(t, 3)
	c, err := Dial(context.Background(), host, port, "alice")
	require.NoError(t, err)
	done := run(t, c)

	require.NoError(t, c.ChangeTile(context.Background(), 2, 0, board.Teal))
	first := nextTile(t, c.Updates())
	assert.Equal(t, board.Teal, first.Color)
	assert.Equal(t, "alice", first.Owner)

	s.ChangeTile(context.Background(), board.Tile{Row: 0, Col: 2, Color: board.Navy, Owner: "zed"})
	second := nextTile(t, c.Updates())
	assert.Equal(t, board.Navy, second.Color)
	assert.Equal(t, "zed", second.Owner)
	assert.Equal(t, board.Navy, c.Board().Tiles[0][2].Color)

	require.NoError(t, c.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("run did not return")
	}
	_, open := <-c.Updates()
	assert.False(t, open)
}

func TestChangeTileValidatesLocally(t *testing.T) {
	_, host, port := startServer(t, 2)
	c, err := Dial(context.Background(), host, port, "alice")
	require.NoError(t, err)
	defer c.Close()

	assert.ErrorIs(t, c.ChangeTile(context.Background(), 2, 0, board.Red), ErrInvalidTile)
	assert.ErrorIs(t, c.ChangeTile(context.Background(), 0, -1, board.Red), ErrInvalidTile)
	assert.ErrorIs(t, c.ChangeTile(context.Background(), 0, 0, board.Color(16)), ErrInvalidTile)
}

func TestCooldownPacesChanges(t *testing.T) {
	_, host, port := startServer(t, 2)
	c, err := Dial(context.Background(), host, port, "alice", WithCooldown(150*time.Millisecond))
	require.NoError(t, err)
	run(t, c)

	start := time.Now()
	require.NoError(t, c.ChangeTile(context.Background(), 0, 0, board.Red))
	require.NoError(t, c.ChangeTile(context.Background(), 0, 1, board.Blue))
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.ChangeTile(ctx, 1, 1, board.Green))
}

func TestCloseDeregisters(t *testing.T) {
	s, host, port := startServer(t, 2)
	c, err := Dial(context.Background(), host, port, "alice")
	require.NoError(t, err)
	done := run(t, c)

	require.Eventually(t, func() bool { return s.Registry().Len() == 1 }, waitFor, 10*time.Millisecond)
	require.NoError(t, c.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("run did not return")
	}
	require.Eventually(t, func() bool { return s.Registry().Len() == 0 }, waitFor, 10*time.Millisecond)
	assert.ErrorIs(t, c.ChangeTile(context.Background(), 0, 0, board.Red), ErrNotActive)
}

func TestRunReportsServerShutdown(t *testing.T) {
	s, err := server.New(2, server.WithCooldown(0))
	require.NoError(t, err)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, l) }()

	port := uint16(l.Addr().(*net.TCPAddr).Port)
	c, err := Dial(context.Background(), "127.0.0.1", port, "alice")
	require.NoError(t, err)
	done := run(t, c)
	require.Eventually(t, func() bool {
		sess, ok := s.Registry().Lookup("alice")
		return ok && sess.State() == server.StateActive
	}, waitFor, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrServerError)
	case <-time.After(waitFor):
		t.Fatal("run did not return")
	}
	st, reason := c.Status()
	assert.Equal(t, StatusError, st)
	assert.Equal(t, "Server is shutting down!", reason)
	require.NoError(t, <-served)
}
