package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binschema/binschema/ir"
)

// backrefSchema models a DNS-style compression scenario: Wrapper nests
// Pointer by reference, and Pointer carries a back_reference field whose
// target is Container. Container also nests Body, whose items array
// references a length field ("count") that lives in Container's frame,
// not Body's own — the needsDecodeContext case.
func backrefSchema() *ir.Schema {
	return &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"Body": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{
						{Name: "items", Type: ir.FieldType{Kind: ir.KindArray, Array: &ir.ArraySpec{
							Kind: ir.ArrayFieldReferenced, LengthField: "count",
							Items: &ir.FieldType{Kind: ir.KindUint8},
						}}},
					},
				},
			},
			"Container": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{
						{Name: "count", Type: ir.FieldType{Kind: ir.KindUint16}},
						{Name: "body", Type: ir.FieldType{Kind: ir.KindRef, RefName: "Body"}},
					},
				},
			},
			"Pointer": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{
						{Name: "target", Type: ir.FieldType{Kind: ir.KindBackReference, BackRef: &ir.BackRefSpec{
							TargetType: "Container", StorageKind: ir.KindUint16,
							OffsetMask: 0x3fff, MarkerBits: 0xc000, Origin: ir.OriginMessageStart,
						}}},
					},
				},
			},
			"Wrapper": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{
						{Name: "p", Type: ir.FieldType{Kind: ir.KindRef, RefName: "Pointer"}},
					},
				},
			},
		},
	}
}

func TestAnalyzeBackReferenceTransitiveAndDecodeContext(t *testing.T) {
	s := backrefSchema()
	a, err := Analyze(s)
	require.NoError(t, err)

	assert.True(t, a.Types["Pointer"].ContainsBackReference)
	assert.True(t, a.Types["Wrapper"].ContainsBackReference, "Wrapper nests Pointer by ref")
	assert.False(t, a.Types["Container"].ContainsBackReference)

	assert.True(t, a.Types["Body"].NeedsDecodeContext, "items' length field lives in Container's frame, not Body's own")
	assert.False(t, a.Types["Container"].NeedsDecodeContext, "count is a plain local field, not a reference to an ancestor")
	assert.False(t, a.Types["Pointer"].NeedsDecodeContext)

	assert.True(t, a.Types["Pointer"].NeedsEncodeContext, "direct back-reference forces encode context")
	assert.True(t, a.Types["Wrapper"].NeedsEncodeContext, "transitively nests a back-reference")
}

// selectorSchema models a ZIP-style end-of-central-directory scenario: a
// Directory's own computed field selects the first Section in its own
// sections array.
func selectorSchema() *ir.Schema {
	return &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"Section": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{
						{Name: "id", Type: ir.FieldType{Kind: ir.KindUint8}},
					},
				},
			},
			"Directory": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{
						{Name: "sections", Type: ir.FieldType{Kind: ir.KindArray, Array: &ir.ArraySpec{
							Kind: ir.ArrayEOFTerminated, Items: &ir.FieldType{Kind: ir.KindRef, RefName: "Section"},
						}}},
						{Name: "first_id", Type: ir.FieldType{Kind: ir.KindUint8},
							Computed: &ir.Computed{Kind: ir.ComputedPositionOf, Target: "sections[first<Section>]"}},
					},
				},
			},
		},
	}
}

func TestAnalyzeSelectorPositionTrackingAndEncodeContext(t *testing.T) {
	a, err := Analyze(selectorSchema())
	require.NoError(t, err)

	require.Len(t, a.Types["Directory"].PositionTracked, 1)
	assert.Equal(t, "sections__Section", a.Types["Directory"].PositionTracked[0])
	assert.True(t, a.Types["Directory"].NeedsEncodeContext)
	assert.False(t, a.Types["Section"].NeedsEncodeContext)
	assert.True(t, a.Types["Directory"].NeedsInputOutputSplit, "first_id is computed")
}

// ancestorSchema exercises a computed field that targets a parent frame
// directly (no ref indirection needed to observe the effect on the type
// declaring the computed field).
func ancestorSchema() *ir.Schema {
	return &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"Leaf": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{
						{Name: "name_len", Type: ir.FieldType{Kind: ir.KindUint8},
							Computed: &ir.Computed{Kind: ir.ComputedLengthOf, Target: "../name"}},
					},
				},
			},
		},
	}
}

func TestAnalyzeAncestorTargetForcesEncodeContext(t *testing.T) {
	a, err := Analyze(ancestorSchema())
	require.NoError(t, err)
	assert.True(t, a.Types["Leaf"].NeedsEncodeContext)
}

func TestAnalyzeSizeClass(t *testing.T) {
	s := &ir.Schema{
		Types: map[string]*ir.TypeDef{
			"Fixed32": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{{Name: "a", Type: ir.FieldType{Kind: ir.KindUint32}}},
				},
			},
			"Variable": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{{Name: "s", Type: ir.FieldType{Kind: ir.KindString, String: &ir.StringSpec{
						Kind: ir.StringNullTerminated, Encoding: ir.EncodingASCII,
					}}}},
				},
			},
			"NestsFixed": {
				Kind: ir.TypeComposite,
				Composite: &ir.Composite{
					Sequence: []ir.Field{{Name: "f", Type: ir.FieldType{Kind: ir.KindRef, RefName: "Fixed32"}}},
				},
			},
		},
	}
	a, err := Analyze(s)
	require.NoError(t, err)
	assert.Equal(t, SizeFixed, a.Types["Fixed32"].SizeClass)
	assert.Equal(t, SizeVariable, a.Types["Variable"].SizeClass)
	assert.Equal(t, SizeFixed, a.Types["NestsFixed"].SizeClass)
}

func TestAnalyzeTopoOrderRespectsDependencies(t *testing.T) {
	s := backrefSchema()
	a, err := Analyze(s)
	require.NoError(t, err)

	pos := make(map[string]int, len(a.TopoOrder))
	for i, name := range a.TopoOrder {
		pos[name] = i
	}
	assert.Less(t, pos["Container"], pos["Pointer"], "Container is Pointer's back-reference target")
	assert.Less(t, pos["Pointer"], pos["Wrapper"], "Wrapper refs Pointer directly")
}
