package docfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/binschema/binschema/ir"
)

func TestRenderComposite(t *testing.T) {
	s := &ir.Schema{Types: map[string]*ir.TypeDef{
		"chunk": {Kind: ir.TypeComposite, Composite: &ir.Composite{
			Sequence: []ir.Field{
				{Name: "magic", Type: ir.FieldType{Kind: ir.KindUint32}, Const: &ir.Literal{Int: 1}},
				{Name: "len", Type: ir.FieldType{Kind: ir.KindUint32},
					Computed: &ir.Computed{Kind: ir.ComputedLengthOf, Target: "body"}},
				{Name: "body", Type: ir.FieldType{Kind: ir.KindArray, Array: &ir.ArraySpec{
					Kind: ir.ArrayFieldReferenced, LengthField: "len",
					Items: &ir.FieldType{Kind: ir.KindUint8},
				}}},
			},
		}},
	}}
	out := Render(s)

	assert.Contains(t, out, "## chunk")
	assert.Contains(t, out, "| magic | `uint32` | const |")
	assert.Contains(t, out, "computed length_of")
	assert.Contains(t, out, "field_referenced[uint8]")
}

func TestRenderUnion(t *testing.T) {
	s := &ir.Schema{Types: map[string]*ir.TypeDef{
		"a": {Kind: ir.TypeComposite, Composite: &ir.Composite{}},
		"u": {Kind: ir.TypeUnion, Union: &ir.UnionDef{
			Discriminator: &ir.Discriminator{Kind: ir.DiscriminatorPeek, IntegerKind: "uint8"},
			Variants: []ir.Variant{
				{TypeName: "a", When: "value == 1"},
				{TypeName: "a"},
			},
		}},
	}}
	out := Render(s)

	assert.Contains(t, out, "Discriminated by `peek<uint8>`")
	assert.Contains(t, out, "| a | value == 1 |")
	assert.Contains(t, out, "| a | (fallback) |")
}
