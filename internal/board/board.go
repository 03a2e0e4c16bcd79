// Package board holds the shared dim x dim grid of tiles.
//
// A Board is not safe for concurrent use; the server serialises access to it.
package board

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidDimension is returned when a board is created with dim < 1.
var ErrInvalidDimension = errors.New("board dimension must be at least 1")

// Tile is the state of one cell at a point in time.
type Tile struct {
	Row   int       `json:"row" jsonschema:"minimum=0"`
	Col   int       `json:"col" jsonschema:"minimum=0"`
	Color Color     `json:"color" jsonschema:"minimum=0,maximum=15,description=Palette index"`
	Owner string    `json:"owner"`
	Time  time.Time `json:"time" jsonschema:"description=RFC 3339 timestamp with nanoseconds"`
}

// Grid is an independent copy of a board's tiles, indexed [row][col].
type Grid struct {
	Dim   int      `json:"dim" jsonschema:"minimum=1"`
	Tiles [][]Tile `json:"tiles"`
}

// Board owns the current tile of every coordinate.
type Board struct {
	dim   int
	tiles [][]Tile
}

// New creates a board where every tile has the default colour and no owner.
func New(dim int) (*Board, error) {
	if dim < 1 {
		return nil, errors.Wrapf(ErrInvalidDimension, "got %d", dim)
	}
	return &Board{dim: dim, tiles: blank(dim)}, nil
}

func blank(dim int) [][]Tile {
	tiles := make([][]Tile, dim)
	for row := range tiles {
		tiles[row] = make([]Tile, dim)
		for col := range tiles[row] {
			tiles[row][col] = Tile{Row: row, Col: col, Color: DefaultColor}
		}
	}
	return tiles
}

func (b *Board) Dim() int {
	return b.dim
}

// Validate reports whether the tile's coordinates lie on the board.
func (b *Board) Validate(tile Tile) bool {
	return tile.Row >= 0 && tile.Row < b.dim && tile.Col >= 0 && tile.Col < b.dim
}

// Apply replaces the tile at the tile's coordinates. It returns false and
// leaves the board untouched if the coordinates are off the board.
func (b *Board) Apply(tile Tile) bool {
	if !b.Validate(tile) {
		return false
	}
	b.tiles[tile.Row][tile.Col] = tile
	return true
}

// Tile returns the current tile at (row, col).
func (b *Board) Tile(row, col int) (Tile, bool) {
	if !b.Validate(Tile{Row: row, Col: col}) {
		return Tile{}, false
	}
	return b.tiles[row][col], true
}

// Snapshot copies the whole grid.
func (b *Board) Snapshot() Grid {
	tiles := make([][]Tile, b.dim)
	for row := range tiles {
		tiles[row] = make([]Tile, b.dim)
		copy(tiles[row], b.tiles[row])
	}
	return Grid{Dim: b.dim, Tiles: tiles}
}

// Valid reports whether the grid is square, matches Dim and every tile sits
// at its own coordinates.
func (g Grid) Valid() bool {
	if g.Dim < 1 || len(g.Tiles) != g.Dim {
		return false
	}
	for row, tiles := range g.Tiles {
		if len(tiles) != g.Dim {
			return false
		}
		for col, tile := range tiles {
			if tile.Row != row || tile.Col != col {
				return false
			}
		}
	}
	return true
}

// String renders one hex digit per tile, one line per row.
func (g Grid) String() string {
	var sb strings.Builder
	for row, tiles := range g.Tiles {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for _, tile := range tiles {
			sb.WriteString(tile.Color.Hex())
		}
	}
	return sb.String()
}

// FromGrid rebuilds a board from a snapshot, as a client does with BOARD.
func FromGrid(g Grid) (*Board, error) {
	if !g.Valid() {
		return nil, errors.New("grid is not a valid square board")
	}
	b := &Board{dim: g.Dim, tiles: g.Tiles}
	b.tiles = b.Snapshot().Tiles
	return b, nil
}
