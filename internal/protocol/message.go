// Package protocol defines the messages exchanged between place clients and
// the server, and their JSON encoding.
//
// Every message is a type tagged envelope
//
//	{"type": "CHANGE_TILE", "data": {...}}
//
// sent as a single websocket text frame. A session must open with LOGIN; the
// server answers LOGIN_SUCCESS followed by exactly one BOARD, or ERROR. After
// that the client sends CHANGE_TILE and the server pushes TILE_CHANGED.
package protocol

import (
	"github.com/JosticeMan/RPlace/internal/board"
)

// Kind tags an envelope.
type Kind string

const (
	KindLogin        Kind = "LOGIN"
	KindLoginSuccess Kind = "LOGIN_SUCCESS"
	KindError        Kind = "ERROR"
	KindBoard        Kind = "BOARD"
	KindChangeTile   Kind = "CHANGE_TILE"
	KindTileChanged  Kind = "TILE_CHANGED"
)

// Kinds lists every message kind.
var Kinds = []Kind{KindLogin, KindLoginSuccess, KindError, KindBoard, KindChangeTile, KindTileChanged}

func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Message is a decoded envelope. Only the field matching Kind is meaningful:
// Text for LOGIN, LOGIN_SUCCESS and ERROR, Tile for CHANGE_TILE and
// TILE_CHANGED, Grid for BOARD.
type Message struct {
	Kind Kind
	Text string
	Tile board.Tile
	Grid board.Grid
}

func Login(username string) Message {
	return Message{Kind: KindLogin, Text: username}
}

func LoginSuccess(info string) Message {
	return Message{Kind: KindLoginSuccess, Text: info}
}

func Error(reason string) Message {
	return Message{Kind: KindError, Text: reason}
}

func Board(grid board.Grid) Message {
	return Message{Kind: KindBoard, Grid: grid}
}

func ChangeTile(tile board.Tile) Message {
	return Message{Kind: KindChangeTile, Tile: tile}
}

func TileChanged(tile board.Tile) Message {
	return Message{Kind: KindTileChanged, Tile: tile}
}
