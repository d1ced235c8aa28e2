// Package analyzer classifies every type in a schema so codegen can pick
// the right emission strategy without re-deriving the analysis per call
// site.
package analyzer

import (
	"github.com/binschema/binschema/ir"
)

// SizeClass says whether a type's encoded size is known at compile time
// (Fixed) or must be measured at encode time (Variable). Purely a codegen
// optimization hint.
type SizeClass int

const (
	SizeUnknown SizeClass = iota
	SizeFixed
	SizeVariable
)

// TypeInfo is the per-type analysis result.
type TypeInfo struct {
	Name string

	// NeedsInputOutputSplit is true when the type's sequence contains at
	// least one computed or const field.
	NeedsInputOutputSplit bool

	// NeedsEncodeContext is true when this type's computed fields target
	// an ancestor path or a selector, or it transitively nests a type
	// that does, or it transitively contains a back-reference.
	NeedsEncodeContext bool

	// NeedsDecodeContext is true when this type has a field_referenced
	// array/string whose length field lives in a parent frame, or when it
	// is a union with a byte budget or a field-based discriminator.
	NeedsDecodeContext bool

	// ContainsBackReference is true when this type, or anything it
	// transitively nests, contains a back_reference field.
	ContainsBackReference bool

	// PositionTracked lists the array+type keys ("arrayField__TypeName")
	// this type's array pre-pass must populate, because some computed
	// field elsewhere in the schema references first<T>/last<T>/
	// corresponding<T> against that array.
	PositionTracked []string

	SizeClass SizeClass
}

// Annotated is the output of Analyze: the original schema plus one
// TypeInfo per named type, and a dependency-respecting emission order.
type Annotated struct {
	Schema      *ir.Schema
	Types       map[string]*TypeInfo
	TopoOrder   []string
}

// Analyze classifies every type in s. It assumes s has already passed
// ir.Validate (references resolve, no alias cycles); Analyze does not
// re-check those conditions.
func Analyze(s *ir.Schema) (*Annotated, error) {
	a := &Annotated{
		Schema: s,
		Types:  make(map[string]*TypeInfo, len(s.Types)),
	}
	for name := range s.Types {
		a.Types[name] = &TypeInfo{Name: name}
	}

	// Pass 1: direct properties (Input/Output split, decode context)
	// computable from the type's own definition without looking at other
	// types.
	for name, def := range s.Types {
		info := a.Types[name]
		info.NeedsInputOutputSplit = needsInputOutputSplit(def)
		info.NeedsDecodeContext = needsDecodeContext(def)
	}

	// Pass 2: transitive back-reference containment, memoized DFS over
	// the type-reference graph.
	memo := make(map[string]bool)
	for name := range s.Types {
		a.Types[name].ContainsBackReference = containsBackRefTransitive(s, name, memo, nil)
	}

	// Pass 3: selector scan. Walk every computed spec in the schema;
	// for each selector target, record which array+type key needs
	// position tracking, attributed to the type that DECLARES the array
	// (not the type doing the referencing).
	collectPositionTracking(a)

	// Pass 4: encode-context need. Direct (ancestor/selector computed
	// targets, or a selector target existing for one of this type's own
	// arrays) OR transitively nests a type that needs it, OR transitively
	// contains a back-reference.
	ctxMemo := make(map[string]bool)
	for name := range s.Types {
		a.Types[name].NeedsEncodeContext = needsEncodeContextTransitive(a, name, ctxMemo, nil)
	}

	// Pass 5: size class (best-effort static classification).
	sizeMemo := make(map[string]SizeClass)
	for name := range s.Types {
		a.Types[name].SizeClass = sizeClassOf(s, name, sizeMemo, nil)
	}

	order, err := topoOrder(s)
	if err != nil {
		return nil, err
	}
	a.TopoOrder = order

	return a, nil
}

func needsInputOutputSplit(def *ir.TypeDef) bool {
	if def.Kind != ir.TypeComposite || def.Composite == nil {
		return false
	}
	for _, f := range def.Composite.Sequence {
		if f.IsComputedOrConst() {
			return true
		}
	}
	return false
}

func needsDecodeContext(def *ir.TypeDef) bool {
	// A union whose discriminator or byte budget is resolved from a parent
	// frame reads that value out of the decode context.
	if def.Kind == ir.TypeUnion && def.Union != nil {
		if def.Union.ByteBudget != "" {
			return true
		}
		if d := def.Union.Discriminator; d != nil && d.Kind == ir.DiscriminatorField {
			return true
		}
	}
	if def.Kind != ir.TypeComposite || def.Composite == nil {
		return false
	}
	local := make(map[string]bool, len(def.Composite.Sequence))
	for _, f := range def.Composite.Sequence {
		local[f.Name] = true
	}
	for _, f := range def.Composite.Sequence {
		if fieldReferencesAncestorLength(&f.Type, local) {
			return true
		}
	}
	return false
}

func fieldReferencesAncestorLength(ft *ir.FieldType, local map[string]bool) bool {
	switch ft.Kind {
	case ir.KindString:
		if ft.String != nil && ft.String.Kind == ir.StringFieldReferenced {
			return !local[ft.String.LengthField]
		}
	case ir.KindArray:
		if ft.Array != nil && ft.Array.Kind == ir.ArrayFieldReferenced {
			return !local[ft.Array.LengthField]
		}
		if ft.Array != nil && ft.Array.Items != nil {
			return fieldReferencesAncestorLength(ft.Array.Items, local)
		}
	case ir.KindOptional:
		if ft.Optional != nil && ft.Optional.Value != nil {
			return fieldReferencesAncestorLength(ft.Optional.Value, local)
		}
	}
	return false
}

