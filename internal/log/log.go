// Package log adds logging utilities.
package log

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JosticeMan/RPlace/internal/board"
	"github.com/JosticeMan/RPlace/internal/protocol"
)

// SetLogger sets the default logger's level and format.
func SetLogger(level string) {
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	customFormatter.FullTimestamp = true
	logrus.SetFormatter(customFormatter)
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

func TileToFields(tile board.Tile) logrus.Fields {
	return logrus.Fields{
		"row":   tile.Row,
		"col":   tile.Col,
		"color": tile.Color.String(),
		"owner": tile.Owner,
	}
}

func MessageToFields(msg protocol.Message) logrus.Fields {
	fields := logrus.Fields{"type": string(msg.Kind)}
	switch msg.Kind {
	case protocol.KindChangeTile, protocol.KindTileChanged:
		for k, v := range TileToFields(msg.Tile) {
			fields[k] = v
		}
	case protocol.KindBoard:
		fields["dim"] = msg.Grid.Dim
	default:
		fields["data"] = msg.Text
	}
	return fields
}
