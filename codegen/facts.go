package codegen

import (
	"fmt"

	"github.com/binschema/binschema/analyzer"
	"github.com/binschema/binschema/ir"
)

// TypeFacts is the per-type data the generator renders from: everything the
// struct, encode and decode emitters need, pre-resolved so the emitters
// stay declarative.
type TypeFacts struct {
	SchemaName string
	GoName     string
	Info       *analyzer.TypeInfo
	Def        *ir.TypeDef

	Fields    []*FieldFacts // composite sequence
	Instances []*FieldFacts // composite instance fields

	Alias *FieldFacts // alias types

	Union *UnionFacts // union types

	InputGoName  string // GoName, or GoName+"Input" when split
	OutputGoName string // GoName, or GoName+"Output" when split
}

// Split reports whether this type's Input and Output views are distinct Go
// types.
func (tf *TypeFacts) Split() bool { return tf.InputGoName != tf.OutputGoName }

// FieldFacts is the per-field data the encode/decode renderers consume. A
// field's Go type can differ between the Input and Output views when it
// references a type that itself splits, so both are resolved here.
type FieldFacts struct {
	SchemaName  string
	GoName      string
	InputGoType  string
	OutputGoType string
	Type        *ir.FieldType
	Const       *ir.Literal
	Computed    *ir.Computed
	Conditional string
	Endianness  ir.Endianness // resolved: field override, or schema default

	Items         *FieldFacts   // KindArray
	BitSubFields  []*FieldFacts // KindBitfield
	OptionalValue *FieldFacts   // KindOptional

	// IfaceName is the emitted interface name for KindInlineUnion fields
	// ("<OwnerType><Field>"), and the emitted struct name for KindBitfield
	// fields.
	IfaceName string

	InlineUnion *UnionFacts // KindInlineUnion

	Offset *ir.InstanceOffset // set on instance fields only
}

// IsPadding reports whether this field occupies wire space but no struct
// field.
func (ff *FieldFacts) IsPadding() bool { return ff.Type.Kind == ir.KindPadding }

// UnionFacts is the per-union data the union renderers consume, shared by
// named union types and inline (Choice) union fields.
type UnionFacts struct {
	Discriminator *ir.Discriminator
	ByteBudget    string
	Variants      []VariantFacts
}

// VariantFacts is one arm of a union.
type VariantFacts struct {
	TypeName     string
	GoName       string
	InputGoType  string
	OutputGoType string
	When         string
}

// factsBuilder resolves view-dependent Go types against the analyzed
// schema.
type factsBuilder struct {
	ann           *analyzer.Annotated
	defaultEndian ir.Endianness
}

// BuildTypeFacts derives the rendering facts for one named type. It assumes
// the schema has passed ir.Validate and a has been produced by
// analyzer.Analyze.
func BuildTypeFacts(a *analyzer.Annotated, name string) (*TypeFacts, error) {
	def, ok := a.Schema.Types[name]
	if !ok {
		return nil, fmt.Errorf("codegen: unknown type %q", name)
	}
	info := a.Types[name]
	goName := toGoName(name)

	fb := &factsBuilder{ann: a, defaultEndian: a.Schema.Config.Endianness}
	if fb.defaultEndian == "" {
		fb.defaultEndian = ir.BigEndian
	}

	tf := &TypeFacts{
		SchemaName:   name,
		GoName:       goName,
		Info:         info,
		Def:          def,
		InputGoName:  goName,
		OutputGoName: goName,
	}
	if info.NeedsInputOutputSplit {
		tf.InputGoName = goName + "Input"
		tf.OutputGoName = goName + "Output"
	}

	switch def.Kind {
	case ir.TypeComposite:
		for i := range def.Composite.Sequence {
			tf.Fields = append(tf.Fields, fb.fieldFacts(&def.Composite.Sequence[i], goName))
		}
		for i := range def.Composite.Instances {
			inst := &def.Composite.Instances[i]
			ff := fb.fieldFacts(&ir.Field{Name: inst.Name, Type: inst.Type}, goName)
			off := inst.Offset
			ff.Offset = &off
			tf.Instances = append(tf.Instances, ff)
		}
	case ir.TypeAlias:
		tf.Alias = fb.fieldFacts(&ir.Field{Name: name, Type: *def.Alias}, goName)
	case ir.TypeUnion:
		tf.Union = fb.unionFacts(def.Union)
	}

	return tf, nil
}

func (fb *factsBuilder) fieldFacts(f *ir.Field, ownerGoName string) *FieldFacts {
	resolved := f.Endianness
	if resolved == "" {
		resolved = f.Type.Endianness
	}
	if resolved == "" {
		resolved = fb.defaultEndian
	}
	ff := &FieldFacts{
		SchemaName:  f.Name,
		GoName:      toGoName(f.Name),
		Type:        &f.Type,
		Const:       f.Const,
		Computed:    f.Computed,
		Conditional: f.Conditional,
		Endianness:  resolved,
	}
	ff.InputGoType = fb.viewGoType(&f.Type, true)
	ff.OutputGoType = fb.viewGoType(&f.Type, false)

	switch f.Type.Kind {
	case ir.KindArray:
		if f.Type.Array != nil && f.Type.Array.Items != nil {
			ff.Items = fb.fieldFacts(&ir.Field{Name: f.Name + "_item", Type: *f.Type.Array.Items}, ownerGoName)
			if f.Type.Array.Items.Kind == ir.KindInlineUnion {
				ff.Items.IfaceName = ownerGoName + ff.GoName + "Item"
				ff.Items.InputGoType = ff.Items.IfaceName
				ff.Items.OutputGoType = ff.Items.IfaceName
			}
			ff.InputGoType = "[]" + ff.Items.InputGoType
			ff.OutputGoType = "[]" + ff.Items.OutputGoType
		}
	case ir.KindBitfield:
		ff.IfaceName = ownerGoName + ff.GoName
		ff.InputGoType = ff.IfaceName
		ff.OutputGoType = ff.IfaceName
		for i := range f.Type.SubFields {
			ff.BitSubFields = append(ff.BitSubFields, fb.fieldFacts(&f.Type.SubFields[i], ownerGoName))
		}
	case ir.KindOptional:
		if f.Type.Optional != nil && f.Type.Optional.Value != nil {
			ff.OptionalValue = fb.fieldFacts(&ir.Field{Name: f.Name, Type: *f.Type.Optional.Value}, ownerGoName)
			ff.InputGoType = "*" + ff.OptionalValue.InputGoType
			ff.OutputGoType = "*" + ff.OptionalValue.OutputGoType
		}
	case ir.KindInlineUnion:
		ff.IfaceName = ownerGoName + ff.GoName
		ff.InputGoType = ff.IfaceName
		ff.OutputGoType = ff.IfaceName
		if f.Type.Union != nil {
			ff.InlineUnion = fb.unionFacts(f.Type.Union)
		}
	}

	return ff
}

// viewGoType maps a field type to its Go type in the Input (input=true) or
// Output view. Synthesized names (bitfields, inline unions) are filled in
// later by fieldFacts, which knows the owning type's name.
func (fb *factsBuilder) viewGoType(ft *ir.FieldType, input bool) string {
	switch ft.Kind {
	case ir.KindRef:
		return fb.refGoType(ft.RefName, input)
	case ir.KindBackReference:
		if ft.BackRef != nil {
			return fb.refGoType(ft.BackRef.TargetType, input)
		}
		return "struct{}"
	case ir.KindArray:
		if ft.Array != nil && ft.Array.Items != nil {
			return "[]" + fb.viewGoType(ft.Array.Items, input)
		}
		return "[]byte"
	case ir.KindOptional:
		if ft.Optional != nil && ft.Optional.Value != nil {
			return "*" + fb.viewGoType(ft.Optional.Value, input)
		}
		return "*struct{}"
	default:
		return goTypeOf(ft)
	}
}

// refGoType resolves a named type reference to its Go type in one view,
// following the split decision of the referenced type. Union types are
// interfaces and never split at the reference site.
func (fb *factsBuilder) refGoType(name string, input bool) string {
	goName := toGoName(name)
	def := fb.ann.Schema.Types[name]
	if def != nil && def.Kind == ir.TypeUnion {
		return goName
	}
	if def != nil && def.Kind == ir.TypeAlias {
		// Aliases are emitted as Go type aliases; their referenced name
		// carries the split suffix when the chain ends in a split type.
		if fb.aliasSplits(name, nil) {
			if input {
				return goName + "Input"
			}
			return goName + "Output"
		}
		return goName
	}
	info := fb.ann.Types[name]
	if info != nil && info.NeedsInputOutputSplit {
		if input {
			return goName + "Input"
		}
		return goName + "Output"
	}
	return goName
}

// aliasSplits walks an alias chain to see whether it bottoms out in a type
// with distinct Input/Output views.
func (fb *factsBuilder) aliasSplits(name string, seen []string) bool {
	for _, s := range seen {
		if s == name {
			return false
		}
	}
	def := fb.ann.Schema.Types[name]
	if def == nil {
		return false
	}
	switch def.Kind {
	case ir.TypeAlias:
		if def.Alias != nil && def.Alias.Kind == ir.KindRef {
			return fb.aliasSplits(def.Alias.RefName, append(seen, name))
		}
		return false
	case ir.TypeComposite:
		info := fb.ann.Types[name]
		return info != nil && info.NeedsInputOutputSplit
	default:
		return false
	}
}

func (fb *factsBuilder) unionFacts(u *ir.UnionDef) *UnionFacts {
	uf := &UnionFacts{Discriminator: u.Discriminator, ByteBudget: u.ByteBudget}
	for _, v := range u.Variants {
		uf.Variants = append(uf.Variants, VariantFacts{
			TypeName:     v.TypeName,
			GoName:       toGoName(v.TypeName),
			InputGoType:  fb.refGoType(v.TypeName, true),
			OutputGoType: fb.refGoType(v.TypeName, false),
			When:         v.When,
		})
	}
	return uf
}
