package iohelp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binschema/binschema/ir"
)

const jsonSchema = `{
  "config": {"endianness": "little"},
  "types": {
    "header": {"kind": "composite", "composite": {"sequence": [
      {"name": "version", "type": {"kind": "uint16"}}
    ]}}
  }
}`

const yamlSchema = `
config:
  endianness: little
types:
  header:
    kind: composite
    composite:
      sequence:
        - name: version
          type:
            kind: uint16
`

func TestParseSchemaJSON(t *testing.T) {
	s, err := ParseSchema([]byte(jsonSchema), ".json")
	require.NoError(t, err)
	assert.Equal(t, ir.LittleEndian, s.Config.Endianness)
	require.Contains(t, s.Types, "header")
	assert.Equal(t, ir.KindUint16, s.Types["header"].Composite.Sequence[0].Type.Kind)
}

func TestParseSchemaYAML(t *testing.T) {
	s, err := ParseSchema([]byte(yamlSchema), ".yaml")
	require.NoError(t, err)
	require.Contains(t, s.Types, "header")
	assert.Equal(t, "version", s.Types["header"].Composite.Sequence[0].Name)
}

func TestParseSchemaBothFrontDoorsAgree(t *testing.T) {
	j, err := ParseSchema([]byte(jsonSchema), ".json")
	require.NoError(t, err)
	y, err := ParseSchema([]byte(yamlSchema), ".yml")
	require.NoError(t, err)
	assert.Equal(t, j.Types["header"].Composite.Sequence, y.Types["header"].Composite.Sequence)
}

func TestLoadSchemaFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonSchema), 0o644))

	s, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Contains(t, s.Types, "header")
}

func TestParseSchemaRejectsEmpty(t *testing.T) {
	_, err := ParseSchema([]byte(`{}`), ".json")
	assert.Error(t, err)
}
