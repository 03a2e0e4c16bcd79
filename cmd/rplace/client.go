package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/JosticeMan/RPlace/internal/board"
	"github.com/JosticeMan/RPlace/internal/client"
)

func clientArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(3)(cmd, args); err != nil {
		return err
	}
	_, err := parsePort(args[1])
	return err
}

func runClient(cmd *cobra.Command, args []string) error {
	host, username := args[0], args[2]
	port, _ := parsePort(args[1])
	out := &syncWriter{w: cmd.OutOrStdout()}

	c, err := client.Dial(cmd.Context(), host, port, username,
		client.WithCooldown(env.ClientCooldown),
		client.WithTileHandler(func(tile board.Tile) {
			out.Printf("=== TILE CHANGED (%d, %d) %s by %s ===\n", tile.Row, tile.Col, tile.Color, tile.Owner)
		}),
	)
	if err != nil {
		return errors.Wrap(err, "login failed")
	}
	out.Printf("%s\n=== Current Board ===\n%s\n", c.Info(), c.Board())

	done := make(chan error, 1)
	go func() {
		done <- c.Run(cmd.Context())
	}()

	go func() {
		if err := readCommands(cmd, c, cmd.InOrStdin(), out); err != nil {
			out.Printf("!%v\n", err)
		}
		c.Close()
	}()

	if err := <-done; err != nil {
		return errors.Wrap(err, "session ended")
	}
	out.Printf("=== DISCONNECTED ===\n")
	return nil
}

// readCommands sends one tile change per "row col color" line. A row of -1
// or the end of input disconnects.
func readCommands(cmd *cobra.Command, c *client.Client, in io.Reader, out *syncWriter) error {
	out.Printf("=== Enter: Row Col Color (-1 to quit) ===\n")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "-1" {
			return nil
		}
		if fields[0] == "board" {
			out.Printf("%s\n", c.Board())
			continue
		}
		row, col, color, err := parseChange(fields)
		if err != nil {
			out.Printf("!%v\n", err)
			continue
		}
		if err := c.ChangeTile(cmd.Context(), row, col, color); err != nil {
			if errors.Is(err, client.ErrInvalidTile) {
				out.Printf("!%v\n", err)
				continue
			}
			return err
		}
	}
	return scanner.Err()
}

func parseChange(fields []string) (int, int, board.Color, error) {
	if len(fields) != 3 {
		return 0, 0, 0, errors.New("expected: row col color")
	}
	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, 0, errors.Wrapf(err, "invalid row %q", fields[0])
	}
	col, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, 0, errors.Wrapf(err, "invalid col %q", fields[1])
	}
	color, err := board.ParseColor(fields[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return row, col, color, nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}
