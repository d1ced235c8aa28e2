package codegen

import (
	"fmt"
	"strings"

	"github.com/binschema/binschema/ir"
)

// body accumulates generated statements at a given indent depth. All
// statement-level emission in this package goes through it, and so do the
// struct declarations in structs.go; the func scaffolding and public entry
// points go through the template set in templates.go.
type body struct {
	sb     strings.Builder
	indent int
}

func newBody(indent int) *body { return &body{indent: indent} }

// pf writes one line at the current indent. An empty format emits a blank
// line.
func (w *body) pf(format string, args ...any) {
	if format == "" {
		w.sb.WriteByte('\n')
		return
	}
	w.sb.WriteString(strings.Repeat("\t", w.indent))
	fmt.Fprintf(&w.sb, format, args...)
	w.sb.WriteByte('\n')
}

func (w *body) in()  { w.indent++ }
func (w *body) out() { w.indent-- }

func (w *body) String() string { return w.sb.String() }

func endianExpr(e ir.Endianness) string {
	if e == ir.LittleEndian {
		return "runtime.LittleEndian"
	}
	return "runtime.BigEndian"
}

func varlengthExpr(v ir.VarlengthEncoding) string {
	switch v {
	case ir.VarlengthLEB128:
		return "runtime.LEB128"
	case ir.VarlengthVLQ:
		return "runtime.VLQ"
	default:
		return "runtime.DER"
	}
}

func textEncodingExpr(e ir.StringEncoding) string {
	switch e {
	case ir.EncodingLatin1:
		return "runtime.TextLatin1"
	case ir.EncodingASCII:
		return "runtime.TextASCII"
	default:
		return "runtime.TextUTF8"
	}
}

// byteWidth returns the byte width of a fixed-width integer kind, falling
// back to 4 for an unset prefix kind (uint32 is the schema default for
// length prefixes).
func byteWidth(k ir.Kind) int {
	if k == "" {
		return 4
	}
	return k.BitWidth() / 8
}

// prefixKind normalizes an optional length-prefix kind to its default.
func prefixKind(k ir.Kind) ir.Kind {
	if k == "" {
		return ir.KindUint32
	}
	return k
}

// writeUintCall renders a statement writing value (a uint64-typed
// expression) at the width of the given integer kind.
func writeUintCall(enc string, k ir.Kind, e ir.Endianness, value string) string {
	switch byteWidth(k) {
	case 1:
		return fmt.Sprintf("%s.WriteUint8(uint8(%s))", enc, value)
	case 2:
		return fmt.Sprintf("%s.WriteUint16(uint16(%s), %s)", enc, value, endianExpr(e))
	case 8:
		return fmt.Sprintf("%s.WriteUint64(%s, %s)", enc, value, endianExpr(e))
	default:
		return fmt.Sprintf("%s.WriteUint32(uint32(%s), %s)", enc, value, endianExpr(e))
	}
}

// readUintCall renders the right-hand side of a read returning
// (uintN, error) at the width of the given integer kind.
func readUintCall(dec string, k ir.Kind, e ir.Endianness) string {
	switch byteWidth(k) {
	case 1:
		return fmt.Sprintf("%s.ReadUint8()", dec)
	case 2:
		return fmt.Sprintf("%s.ReadUint16(%s)", dec, endianExpr(e))
	case 8:
		return fmt.Sprintf("%s.ReadUint64(%s)", dec, endianExpr(e))
	default:
		return fmt.Sprintf("%s.ReadUint32(%s)", dec, endianExpr(e))
	}
}

// peekUintCall renders the right-hand side of a non-advancing peek at the
// width of the given integer kind.
func peekUintCall(dec string, k ir.Kind, e ir.Endianness) string {
	switch byteWidth(k) {
	case 1:
		return fmt.Sprintf("%s.PeekUint8()", dec)
	case 2:
		return fmt.Sprintf("%s.PeekUint16(%s)", dec, endianExpr(e))
	case 8:
		return fmt.Sprintf("%s.PeekUint64(%s)", dec, endianExpr(e))
	default:
		return fmt.Sprintf("%s.PeekUint32(%s)", dec, endianExpr(e))
	}
}

// byteLiteral renders a []byte literal.
func byteLiteral(b []byte) string {
	var sb strings.Builder
	sb.WriteString("[]byte{")
	for i, c := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "0x%02x", c)
	}
	sb.WriteString("}")
	return sb.String()
}
