package codegen

import (
	"encoding/json"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binschema/binschema/analyzer"
	"github.com/binschema/binschema/ir"
)

// loadSchema reads one of the seed schemas the end-to-end scenarios in the
// documentation are built around.
func loadSchema(t *testing.T, name string) *ir.Schema {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "testdata", name))
	require.NoError(t, err)
	var s ir.Schema
	require.NoError(t, json.Unmarshal(raw, &s))
	return &s
}

func generateSchema(t *testing.T, name string) string {
	t.Helper()
	s := loadSchema(t, name)
	require.NoError(t, ir.Validate(s))
	a, err := analyzer.Analyze(s)
	require.NoError(t, err)
	src, err := Generate(a, Options{PackageName: "wire"})
	require.NoError(t, err)
	_, perr := parser.ParseFile(token.NewFileSet(), name+".go", src, 0)
	require.NoError(t, perr, "emitted source for %s must parse:\n%s", name, src)
	return src
}

func TestGenerateZipSchema(t *testing.T) {
	src := generateSchema(t, "zip.json")

	// Single-entry archive scenario: corresponding/first selectors resolve
	// through the sections pre-pass, and every magic writes little-endian.
	assert.Contains(t, src, "func EncodeZipFile")
	assert.Contains(t, src, `RecordPosition("sections__local_file"`)
	assert.Contains(t, src, `RecordPosition("sections__central_dir_entry"`)
	assert.Contains(t, src, `TypeIndices["central_dir_entry"]`)
	assert.Contains(t, src, "enc.WriteUint32(uint32(0x4034b50), runtime.LittleEndian)")
	assert.Contains(t, src, "type LocalFileInput struct {")
	assert.Contains(t, src, "func (o LocalFileOutput) Input() LocalFileInput")
	assert.Contains(t, src, "runtime.IsRecoverable", "zip_section is a try-each choice")
	assert.Contains(t, src, "toInputZipSection", "section values convert variant-wise")
}

func TestGenerateDNSSchema(t *testing.T) {
	src := generateSchema(t, "dns.json")

	assert.Contains(t, src, "ctx.Dictionary().Lookup")
	assert.Contains(t, src, "0xc000|uint64(", "pointer high bits 0b11 at uint16 width")
	assert.Contains(t, src, "&0x3fff", "14-bit offset mask")
	assert.Contains(t, src, "runtime.InvalidBackReference")
	assert.Contains(t, src, "dec.PeekUint16(runtime.BigEndian)", "pointer detection must not consume inline labels")
	assert.Contains(t, src, "uint64(len(v.Questions))", "qdcount is count_of questions")
}

func TestGenerateDERSchema(t *testing.T) {
	src := generateSchema(t, "der.json")

	assert.Contains(t, src, "enc.WriteVarlength(uint64(len(", "TLV length derived content-first")
	assert.Contains(t, src, "runtime.DER")
	assert.Contains(t, src, "dec.PeekUint8()", "tag dispatch peeks without advancing")
	assert.Contains(t, src, "case pv1 == 0x02:")
	assert.Contains(t, src, "case pv1 == 0x30:")
	assert.Contains(t, src, "dec.Position() <", "children decode inside the declared byte budget")
}

func TestGeneratePNGSchema(t *testing.T) {
	src := generateSchema(t, "png.json")

	assert.Contains(t, src, "runtime.CRC32(", "trailing crc32 over type || payload")
	assert.Contains(t, src, "enc.WriteUint32(uint32(0xd), runtime.BigEndian)", "IHDR length is the const 13")
	assert.Contains(t, src, "bytes.Equal", "the 8-byte signature validates on decode")
	assert.Contains(t, src, `"bytes"`, "bytes import pulled in on demand")
	assert.Contains(t, src, "type PngChunkOutput struct {")
}
