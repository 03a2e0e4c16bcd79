package server

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/JosticeMan/RPlace/internal/board"
)

// Mirror receives every applied tile so the board can be read by processes
// outside the server. The server's board stays the source of truth.
type Mirror interface {
	// Reset overwrites the mirror with the given grid.
	Reset(ctx context.Context, grid board.Grid) error
	// Set records one applied tile.
	Set(ctx context.Context, tile board.Tile) error
}

// RedisMirror keeps the board in a Redis string, one hex digit per tile in
// row-major order.
type RedisMirror struct {
	client *redis.Client
	key    string
	dim    int
}

func NewRedisMirror(client *redis.Client, key string, dim int) *RedisMirror {
	return &RedisMirror{client: client, key: key, dim: dim}
}

func (m *RedisMirror) Reset(ctx context.Context, grid board.Grid) error {
	data := strings.ReplaceAll(grid.String(), "\n", "")
	if err := m.client.Set(ctx, m.key, data, 0).Err(); err != nil {
		return errors.Wrap(err, "reset redis board failed")
	}
	return nil
}

func (m *RedisMirror) Set(ctx context.Context, tile board.Tile) error {
	offset := int64(tile.Row*m.dim + tile.Col)
	if err := m.client.SetRange(ctx, m.key, offset, tile.Color.Hex()).Err(); err != nil {
		return errors.Wrap(err, "update redis board failed")
	}
	return nil
}
