package protocol

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/JosticeMan/RPlace/internal/board"
)

// ErrMalformed is returned when a frame is not a valid envelope.
var ErrMalformed = errors.New("malformed message")

type rawEnvelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

type textEnvelope struct {
	Type Kind   `json:"type" jsonschema:"enum=LOGIN,enum=LOGIN_SUCCESS,enum=ERROR"`
	Data string `json:"data" jsonschema:"description=Username for LOGIN; connection info for LOGIN_SUCCESS; reason for ERROR"`
}

type tileEnvelope struct {
	Type Kind       `json:"type" jsonschema:"enum=CHANGE_TILE,enum=TILE_CHANGED"`
	Data board.Tile `json:"data"`
}

type boardEnvelope struct {
	Type Kind       `json:"type" jsonschema:"enum=BOARD"`
	Data board.Grid `json:"data"`
}

func envelope(msg Message) (interface{}, error) {
	switch msg.Kind {
	case KindLogin, KindLoginSuccess, KindError:
		return textEnvelope{Type: msg.Kind, Data: msg.Text}, nil
	case KindChangeTile, KindTileChanged:
		return tileEnvelope{Type: msg.Kind, Data: msg.Tile}, nil
	case KindBoard:
		return boardEnvelope{Type: msg.Kind, Data: msg.Grid}, nil
	default:
		return nil, errors.Wrapf(ErrMalformed, "unknown message type %q", msg.Kind)
	}
}

// Encode serialises a message into its envelope.
func Encode(msg Message) ([]byte, error) {
	env, err := envelope(msg)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "marshal envelope failed")
	}
	return data, nil
}

// Decode parses an envelope. Unknown types, missing payloads and boards whose
// tiles do not sit at their own coordinates are rejected with ErrMalformed.
func Decode(data []byte) (Message, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, errors.Wrap(ErrMalformed, err.Error())
	}
	if !raw.Type.Valid() {
		return Message{}, errors.Wrapf(ErrMalformed, "unknown message type %q", raw.Type)
	}
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return Message{}, errors.Wrapf(ErrMalformed, "%s without data", raw.Type)
	}

	msg := Message{Kind: raw.Type}
	var err error
	switch raw.Type {
	case KindLogin, KindLoginSuccess, KindError:
		err = json.Unmarshal(raw.Data, &msg.Text)
	case KindChangeTile, KindTileChanged:
		err = json.Unmarshal(raw.Data, &msg.Tile)
	case KindBoard:
		err = json.Unmarshal(raw.Data, &msg.Grid)
		if err == nil && !msg.Grid.Valid() {
			err = errors.New("board is not a square grid")
		}
	}
	if err != nil {
		return Message{}, errors.Wrapf(ErrMalformed, "%s payload: %v", raw.Type, err)
	}
	return msg, nil
}

// Schemas describes the envelope of every message kind as JSON schema.
func Schemas() map[Kind]*jsonschema.Schema {
	reflector := jsonschema.Reflector{}
	schemas := make(map[Kind]*jsonschema.Schema, len(Kinds))
	for _, kind := range Kinds {
		env, _ := envelope(Message{Kind: kind})
		schema := reflector.Reflect(env)
		schema.Title = string(kind)
		schemas[kind] = schema
	}
	return schemas
}
