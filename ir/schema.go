// Package ir defines the schema intermediate representation BinSchema
// compiles: named types, their field layouts, computed-field specs, and
// the schema-level configuration (default endianness and bit order).
// Nothing in this package executes a schema; analyzer and codegen do that.
package ir

// Endianness names the two byte orders a schema or field may declare.
type Endianness string

const (
	BigEndian    Endianness = "big"
	LittleEndian Endianness = "little"
)

// BitOrder names the two bit-packing orders a schema may declare.
type BitOrder string

const (
	MSBFirst BitOrder = "msb_first"
	LSBFirst BitOrder = "lsb_first"
)

// Config carries schema-wide defaults, overridable per field.
type Config struct {
	Endianness Endianness `json:"endianness" yaml:"endianness"`
	BitOrder   BitOrder   `json:"bit_order" yaml:"bit_order"`
}

// Schema is a set of named Types plus Config. It deserializes from either
// JSON or YAML (both front doors are wired in cmd/binschema); the struct
// tags carry both.
type Schema struct {
	Config Config              `json:"config" yaml:"config"`
	Types  map[string]*TypeDef `json:"types" yaml:"types"`
}

// TypeKind discriminates the three shapes a named Type can take.
type TypeKind string

const (
	TypeComposite TypeKind = "composite"
	TypeAlias     TypeKind = "alias"
	TypeUnion     TypeKind = "union"
)

// TypeDef is one named Type in the schema: exactly one of Composite, Alias,
// or Union is populated, selected by Kind.
type TypeDef struct {
	Kind      TypeKind    `json:"kind" yaml:"kind"`
	Composite *Composite  `json:"composite,omitempty" yaml:"composite,omitempty"`
	Alias     *FieldType  `json:"alias,omitempty" yaml:"alias,omitempty"`
	Union     *UnionDef   `json:"union,omitempty" yaml:"union,omitempty"`
}

// Composite is an ordered field sequence plus instance fields decoded by
// position after the sequence.
type Composite struct {
	Sequence  []Field         `json:"sequence" yaml:"sequence"`
	Instances []InstanceField `json:"instances,omitempty" yaml:"instances,omitempty"`
}

// UnionDef is a discriminated union: a discriminator plus the variants it
// selects among. A nil Discriminator marks a Choice (try-each-variant)
// union instead of a discriminated one.
type UnionDef struct {
	Discriminator *Discriminator `json:"discriminator,omitempty" yaml:"discriminator,omitempty"`
	Variants      []Variant      `json:"variants" yaml:"variants"`
	ByteBudget    string         `json:"byte_budget,omitempty" yaml:"byte_budget,omitempty"`
}

// DiscriminatorKind selects how a discriminated union picks its variant.
type DiscriminatorKind string

const (
	DiscriminatorPeek  DiscriminatorKind = "peek"
	DiscriminatorField DiscriminatorKind = "field"
)

// Discriminator is either a peek<integer kind> with per-variant `when`
// predicates, or a field<name> resolved from a parent frame.
type Discriminator struct {
	Kind        DiscriminatorKind `json:"kind" yaml:"kind"`
	IntegerKind string            `json:"integer_kind,omitempty" yaml:"integer_kind,omitempty"` // for Kind==peek
	FieldName   string            `json:"field_name,omitempty" yaml:"field_name,omitempty"`      // for Kind==field
}

// Variant is one arm of a union: the type it carries, and (for peek- or
// field-based discriminators) the predicate selecting it. A Variant with
// no When is the fallback arm. Choice unions try variants in order and
// ignore When.
type Variant struct {
	TypeName string `json:"type" yaml:"type"`
	When     string `json:"when,omitempty" yaml:"when,omitempty"`
}

// Field is one member of a Composite's sequence.
type Field struct {
	Name        string     `json:"name" yaml:"name"`
	Type        FieldType  `json:"type" yaml:"type"`
	Const       *Literal   `json:"const,omitempty" yaml:"const,omitempty"`
	Computed    *Computed  `json:"computed,omitempty" yaml:"computed,omitempty"`
	Conditional string     `json:"conditional,omitempty" yaml:"conditional,omitempty"`
	Endianness  Endianness `json:"endianness,omitempty" yaml:"endianness,omitempty"`
}

// IsComputedOrConst reports whether this field is excluded from the Input
// view: computed and const fields are caller-opaque.
func (f *Field) IsComputedOrConst() bool {
	return f.Computed != nil || f.Const != nil
}

// Literal is a const field's schema-declared value: exactly one of the
// fields below is meaningful, selected by the field's FieldType.Kind.
type Literal struct {
	Int    int64  `json:"int,omitempty" yaml:"int,omitempty"`
	Str    string `json:"str,omitempty" yaml:"str,omitempty"`
	Bytes  []byte `json:"bytes,omitempty" yaml:"bytes,omitempty"`
}

// InstanceField is decoded after a Composite's main sequence by seeking to
// a declared position.
type InstanceField struct {
	Name   string         `json:"name" yaml:"name"`
	Type   FieldType      `json:"type" yaml:"type"`
	Offset InstanceOffset `json:"offset" yaml:"offset"`
}

// InstanceOffsetKind selects how an instance field's position is computed.
type InstanceOffsetKind string

const (
	OffsetAbsolute         InstanceOffsetKind = "absolute"
	OffsetNegativeFromEnd  InstanceOffsetKind = "negative_from_end"
	OffsetFieldReferenced  InstanceOffsetKind = "field_referenced"
)

// InstanceOffset names where an instance field lives.
type InstanceOffset struct {
	Kind  InstanceOffsetKind `json:"kind" yaml:"kind"`
	Value int64              `json:"value,omitempty" yaml:"value,omitempty"`
	Field string             `json:"field,omitempty" yaml:"field,omitempty"`
}

// ComputedKind names the derivations available to computed fields.
type ComputedKind string

const (
	ComputedLengthOf       ComputedKind = "length_of"
	ComputedCountOf        ComputedKind = "count_of"
	ComputedCRC32Of        ComputedKind = "crc32_of"
	ComputedPositionOf     ComputedKind = "position_of"
	ComputedSumOfSizes     ComputedKind = "sum_of_sizes"
	ComputedSumOfTypeSizes ComputedKind = "sum_of_type_sizes"
)

// Computed is a field modifier declaring that its value is derived at
// encode time rather than supplied by the caller.
type Computed struct {
	Kind ComputedKind `json:"kind" yaml:"kind"`
	// Target is the path string this spec derives from (a field name,
	// "../field", or "array[first<T>]" style selector). Used by
	// length_of, count_of, crc32_of, position_of.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	// FromAfterField, only meaningful for length_of, triggers the
	// content-first two-pass protocol: "all bytes after this field".
	FromAfterField string `json:"from_after_field,omitempty" yaml:"from_after_field,omitempty"`
	// Targets lists the fields summed for sum_of_sizes.
	Targets []string `json:"targets,omitempty" yaml:"targets,omitempty"`
	// VariantType names the array element type summed for
	// sum_of_type_sizes.
	VariantType string `json:"variant_type,omitempty" yaml:"variant_type,omitempty"`
	// ArrayField names the array sum_of_type_sizes sums over.
	ArrayField string `json:"array_field,omitempty" yaml:"array_field,omitempty"`
}
