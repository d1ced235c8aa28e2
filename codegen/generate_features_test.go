package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binschema/binschema/analyzer"
	"github.com/binschema/binschema/ir"
)

func TestGenerateBitfieldAndPadding(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"frame": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "flags", Type: ir.FieldType{Kind: ir.KindBitfield, SubFields: []ir.Field{
					{Name: "qr", Type: ir.FieldType{Kind: ir.KindBit, BitWidth: 1}},
					{Name: "opcode", Type: ir.FieldType{Kind: ir.KindBit, BitWidth: 4}},
					{Name: "z", Type: ir.FieldType{Kind: ir.KindBit, BitWidth: 3}, Const: &ir.Literal{Int: 0}},
				}}},
				{Name: "pad", Type: ir.FieldType{Kind: ir.KindPadding, PaddingAlignment: 4}},
				{Name: "body", Type: ir.FieldType{Kind: ir.KindUint32}},
			}}},
		},
	}
	src := generate(t, s)

	assert.Contains(t, src, "type FrameFlags struct {")
	assert.Contains(t, src, "Qr bool")
	assert.Contains(t, src, "Opcode uint8")
	assert.Contains(t, src, "enc.WriteBits(runtime.BoolBit(v.Flags.Qr), 1)")
	assert.Contains(t, src, "enc.WriteBits(uint64(v.Flags.Opcode), 4)")
	assert.Contains(t, src, "enc.WriteBits(0, 3)", "const sub-field writes its literal")
	assert.Contains(t, src, "for enc.ByteOffset()%4 != 0 {", "padding aligns the encoder")
	assert.Contains(t, src, "for dec.Position()%4 != 0 {", "padding skips bytes on decode")
	assert.NotContains(t, src, "Pad ", "padding owns wire space but no struct field")
}

func TestGenerateConditionalField(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"rec": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "has_ext", Type: ir.FieldType{Kind: ir.KindUint8}},
				{Name: "ext", Type: ir.FieldType{Kind: ir.KindUint32}, Conditional: "has_ext == 1"},
			}}},
		},
	}
	src := generate(t, s)

	assert.Contains(t, src, "if v.HasExt == 1 {", "encode gates on the sibling predicate")
	occurrences := 0
	for i := 0; i+len("if v.HasExt == 1 {") <= len(src); i++ {
		if src[i:i+len("if v.HasExt == 1 {")] == "if v.HasExt == 1 {" {
			occurrences++
		}
	}
	assert.Equal(t, 2, occurrences, "both encode and decode gate the field")
}

func TestGenerateInstanceFields(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"doc": {Kind: ir.TypeComposite, Composite: &ir.Composite{
				Sequence: []ir.Field{
					{Name: "ofs_footer", Type: ir.FieldType{Kind: ir.KindUint32}},
				},
				Instances: []ir.InstanceField{
					{Name: "footer", Type: ir.FieldType{Kind: ir.KindUint32},
						Offset: ir.InstanceOffset{Kind: ir.OffsetFieldReferenced, Field: "ofs_footer"}},
					{Name: "trailer", Type: ir.FieldType{Kind: ir.KindUint16},
						Offset: ir.InstanceOffset{Kind: ir.OffsetNegativeFromEnd, Value: 2}},
				},
			}},
		},
	}
	src := generate(t, s)

	assert.Contains(t, src, "dec.Seek(int(v.OfsFooter))", "field-referenced instance offset")
	assert.Contains(t, src, "dec.BytesLen() - 2", "negative-from-end instance offset")
	assert.Contains(t, src, "Footer uint32", "instance fields live in the decoded view")
	// Position restoration brackets every instance decode: one save/restore
	// pair per instance field.
	assert.Contains(t, src, ":= dec.Position()")
	assert.Contains(t, src, "dec.Seek(saved")
}

func TestGenerateByteBudgetUnion(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"payload_a": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "tag", Type: ir.FieldType{Kind: ir.KindUint8}, Const: &ir.Literal{Int: 1}},
			}}},
			"payload_b": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "tag", Type: ir.FieldType{Kind: ir.KindUint8}, Const: &ir.Literal{Int: 2}},
			}}},
			"budgeted": {Kind: ir.TypeUnion, Union: &ir.UnionDef{
				ByteBudget: "len",
				Variants:   []ir.Variant{{TypeName: "payload_a"}, {TypeName: "payload_b"}},
			}},
			"envelope": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "len", Type: ir.FieldType{Kind: ir.KindUint8}},
				{Name: "body", Type: ir.FieldType{Kind: ir.KindRef, RefName: "budgeted"}},
			}}},
		},
	}
	src := generate(t, s)

	assert.Contains(t, src, `.Get("len")`, "budget resolved from the decoding context")
	assert.Contains(t, src, "runtime.NewBitStreamDecoder(raw", "variant decodes inside an exact-size sub-stream")
	assert.Contains(t, src, `.With("len", uint64(v.Len))`, "the enclosing frame binds its length field")
	assert.Contains(t, src, "runtime.NewDecodingContext()")
}

func TestGenerateFieldDiscriminator(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"a": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "v", Type: ir.FieldType{Kind: ir.KindUint8}},
			}}},
			"b": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "v", Type: ir.FieldType{Kind: ir.KindUint16}},
			}}},
			"tagged": {Kind: ir.TypeUnion, Union: &ir.UnionDef{
				Discriminator: &ir.Discriminator{Kind: ir.DiscriminatorField, FieldName: "kind"},
				Variants: []ir.Variant{
					{TypeName: "a", When: "value == 1"},
					{TypeName: "b"},
				},
			}},
			"holder": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "kind", Type: ir.FieldType{Kind: ir.KindUint8}},
				{Name: "body", Type: ir.FieldType{Kind: ir.KindRef, RefName: "tagged"}},
			}}},
		},
	}
	src := generate(t, s)

	assert.Contains(t, src, `.Get("kind")`, "discriminator value comes from the parent frame")
	assert.Contains(t, src, "runtime.MissingContext")
	assert.Contains(t, src, "case tag1 == 1:")
}

func TestGenerateSumOfSizesAndAncestorTarget(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"leaf": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "name_len", Type: ir.FieldType{Kind: ir.KindUint8},
					Computed: &ir.Computed{Kind: ir.ComputedLengthOf, Target: "../name"}},
			}}},
			"holder": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "name", Type: ir.FieldType{Kind: ir.KindString, String: &ir.StringSpec{
					Kind: ir.StringNullTerminated, Encoding: ir.EncodingUTF8,
				}}},
				{Name: "blob", Type: ir.FieldType{Kind: ir.KindArray, Array: &ir.ArraySpec{
					Kind: ir.ArrayEOFTerminated, Items: &ir.FieldType{Kind: ir.KindUint8},
				}}},
				{Name: "total", Type: ir.FieldType{Kind: ir.KindUint16},
					Computed: &ir.Computed{Kind: ir.ComputedSumOfSizes, Targets: []string{"name", "blob"}}},
				{Name: "child", Type: ir.FieldType{Kind: ir.KindRef, RefName: "leaf"}},
			}}},
		},
	}
	src := generate(t, s)

	assert.Contains(t, src, "+= uint64(len(v.Name))")
	assert.Contains(t, src, "+= uint64(len(v.Blob))")
	assert.Contains(t, src, "runtime.NewStringField(v.Name)", "snapshot carries the parent's fields")
	assert.Contains(t, src, "ExtendWithParent")
	assert.Contains(t, src, "Ancestor(1)", "child resolves ../name one frame up")
	assert.Contains(t, src, ".LengthOfValue()")
}

func TestGenerateOptionalBitMarker(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"rec": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "maybe", Type: ir.FieldType{Kind: ir.KindOptional, Optional: &ir.OptionalSpec{
					Value:          &ir.FieldType{Kind: ir.KindUint8},
					PresenceMarker: "bit",
				}}},
			}}},
		},
	}
	src := generate(t, s)

	assert.Contains(t, src, "enc.WriteBits(1, 1)")
	assert.Contains(t, src, "enc.WriteBits(0, 1)")
	assert.Contains(t, src, "dec.ReadBits(1)")
}

func TestGenerateItemPrefixedAndSignatureArrays(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"cell": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "v", Type: ir.FieldType{Kind: ir.KindUint16}},
			}}},
			"table": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "cells", Type: ir.FieldType{Kind: ir.KindArray, Array: &ir.ArraySpec{
					Kind:                 ir.ArrayLengthPrefixedItems,
					LengthPrefixKind:     ir.KindUint8,
					ItemLengthPrefixKind: ir.KindUint16,
					Items:                &ir.FieldType{Kind: ir.KindRef, RefName: "cell"},
				}}},
				{Name: "tail", Type: ir.FieldType{Kind: ir.KindArray, Array: &ir.ArraySpec{
					Kind:      ir.ArraySignatureTerminated,
					Signature: []byte{0xDE, 0xAD},
					Items:     &ir.FieldType{Kind: ir.KindRef, RefName: "cell"},
				}}},
				{Name: "sig", Type: ir.FieldType{Kind: ir.KindArray, Array: &ir.ArraySpec{
					Kind: ir.ArrayFixed, FixedLength: 2, Items: &ir.FieldType{Kind: ir.KindUint8},
				}}, Const: &ir.Literal{Bytes: []byte{0xDE, 0xAD}}},
			}}},
		},
	}
	src := generate(t, s)

	assert.Contains(t, src, "runtime.NewBitStreamEncoder(enc.Order())", "each item measures into its own stream")
	assert.Contains(t, src, "dec.PeekBytes(2)")
	assert.Contains(t, src, "bytes.Equal")
	assert.Contains(t, src, `"bytes"`)
	assert.Contains(t, src, "runtime.NewBitStreamDecoder(ib", "item decodes are bounded by their own prefix")
}

func TestGenerateLatin1String(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"rec": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "s", Type: ir.FieldType{Kind: ir.KindString, String: &ir.StringSpec{
					Kind: ir.StringLengthPrefixed, LengthPrefixKind: ir.KindUint8, Encoding: ir.EncodingLatin1,
				}}},
			}}},
		},
	}
	src := generate(t, s)
	assert.Contains(t, src, "runtime.TextLatin1")
	assert.Contains(t, src, "runtime.EncodeText(v.S, runtime.TextLatin1)")
	assert.Contains(t, src, "runtime.DecodeText(")
}

func TestGenerateRejectsForwardPositionTarget(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"rec": {Kind: ir.TypeComposite, Composite: &ir.Composite{Sequence: []ir.Field{
				{Name: "ofs", Type: ir.FieldType{Kind: ir.KindUint32},
					Computed: &ir.Computed{Kind: ir.ComputedPositionOf, Target: "late"}},
				{Name: "late", Type: ir.FieldType{Kind: ir.KindUint8}},
			}}},
		},
	}
	require.NoError(t, ir.Validate(s))
	a, err := analyzer.Analyze(s)
	require.NoError(t, err)
	_, err = Generate(a, Options{PackageName: "wire"})
	assert.Error(t, err, "position_of must reference a field already written")
}
