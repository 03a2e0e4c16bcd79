package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosticeMan/RPlace/internal/board"
	"github.com/JosticeMan/RPlace/internal/client"
	"github.com/JosticeMan/RPlace/internal/server"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	for _, cmd := range rootCmd.Commands() {
		cmd.SilenceUsage = false
	}
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestServerArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing dim", []string{"8080"}},
		{"too many", []string{"8080", "3", "4"}},
		{"bad port", []string{"http", "3"}},
		{"port out of range", []string{"70000", "3"}},
		{"bad dim", []string{"8080", "three"}},
		{"zero dim", []string{"8080", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, serverArgs(serverCmd, tt.args))
		})
	}
	assert.NoError(t, serverArgs(serverCmd, []string{"8080", "1"}))
}

func TestClientArgs(t *testing.T) {
	assert.Error(t, clientArgs(clientCmd, []string{"localhost", "8080"}))
	assert.Error(t, clientArgs(clientCmd, []string{"localhost", "port", "alice"}))
	assert.NoError(t, clientArgs(clientCmd, []string{"localhost", "8080", "alice"}))
}

func TestServerCommandRejectsUsage(t *testing.T) {
	out, err := execute(t, "", "server", "8080", "0")
	assert.Error(t, err)
	assert.Contains(t, out, "Usage:")
}

func TestServerCommandBindFailureSkipsUsage(t *testing.T) {
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)

	out, err := execute(t, "", "server", port, "2")
	var startup *server.StartupError
	assert.ErrorAs(t, err, &startup)
	assert.NotContains(t, out, "Usage:")
}

func TestParseChange(t *testing.T) {
	row, col, color, err := parseChange([]string{"1", "2", "red"})
	require.NoError(t, err)
	assert.Equal(t, 1, row)
	assert.Equal(t, 2, col)
	assert.Equal(t, board.Red, color)

	_, _, color, err = parseChange([]string{"0", "0", "15"})
	require.NoError(t, err)
	assert.Equal(t, board.Fuchsia, color)

	for _, fields := range [][]string{
		{"1", "2"},
		{"a", "2", "3"},
		{"1", "b", "3"},
		{"1", "2", "mauve"},
	} {
		_, _, _, err := parseChange(fields)
		assert.Error(t, err, fields)
	}
}

func TestSchemaCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema", "protocol.json")
	_, err := execute(t, "", "schema", "--out", path)
	require.NoError(t, err)
	schemaOut = ""

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var schemas map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &schemas))
	assert.Contains(t, schemas, "CHANGE_TILE")
	assert.Contains(t, schemas, "BOARD")
	assert.Len(t, schemas, 6)
}

func TestClientCommand(t *testing.T) {
	s, err := server.New(3, server.WithCooldown(0))
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	out, err := execute(t, "1 1 red\n9 9 red\nboard\n-1\n", "client", host, port, "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome alice!")
	assert.Contains(t, out, "=== Current Board ===")
	assert.Contains(t, out, "invalid tile")
	assert.Contains(t, out, "=== DISCONNECTED ===")

	require.Eventually(t, func() bool {
		return s.Snapshot().Tiles[1][1].Color == board.Red && s.Registry().Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "alice", s.Snapshot().Tiles[1][1].Owner)
}

func TestClientCommandDuplicateLogin(t *testing.T) {
	s, err := server.New(2, server.WithCooldown(0))
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	p, err := parsePort(port)
	require.NoError(t, err)

	bob, err := client.Dial(context.Background(), host, p, "bob")
	require.NoError(t, err)
	t.Cleanup(func() { bob.Close() })

	_, err = execute(t, "", "client", host, port, "BOB")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrLoginRejected)
	assert.Contains(t, err.Error(), "BOB already logged in! Try a different user!")
}
