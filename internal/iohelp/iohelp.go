// Package iohelp holds the file-handle helpers the CLI and demo scripts
// share: opening a schema document and deserializing it from whichever
// front door its extension names.
package iohelp

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/binschema/binschema/ir"
)

// OpenSchema opens a schema document for reading. "-" reads stdin.
func OpenSchema(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	return f, nil
}

// LoadSchema reads and deserializes a schema document, selecting JSON or
// YAML by file extension (stdin defaults to JSON).
func LoadSchema(path string) (*ir.Schema, error) {
	r, err := OpenSchema(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(raw, filepath.Ext(path))
}

// ParseSchema deserializes raw schema bytes; ext selects the codec
// (".yaml"/".yml" for YAML, anything else JSON).
func ParseSchema(raw []byte, ext string) (*ir.Schema, error) {
	var s ir.Schema
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse yaml schema: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse json schema: %w", err)
		}
	}
	if s.Types == nil {
		return nil, fmt.Errorf("schema has no types")
	}
	return &s, nil
}
