package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/JosticeMan/RPlace/internal/protocol"
)

var schemaOut string

func runSchema(cmd *cobra.Command, _ []string) error {
	data, err := json.MarshalIndent(protocol.Schemas(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal schema failed")
	}
	data = append(data, '\n')

	if schemaOut == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return writeSchema(schemaOut, data)
}

func writeSchema(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errors.Wrap(err, "create schema directory failed")
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.Wrap(err, "write temp schema failed")
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return errors.Wrap(err, "replace schema failed")
	}
	return nil
}
