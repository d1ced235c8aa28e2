package ir

// Kind discriminates the FieldType variants a field may declare.
type Kind string

const (
	KindUint8  Kind = "uint8"
	KindUint16 Kind = "uint16"
	KindUint32 Kind = "uint32"
	KindUint64 Kind = "uint64"
	KindInt8   Kind = "int8"
	KindInt16  Kind = "int16"
	KindInt32  Kind = "int32"
	KindInt64  Kind = "int64"

	KindFloat32 Kind = "float32"
	KindFloat64 Kind = "float64"

	KindBit       Kind = "bit"
	KindBitfield  Kind = "bitfield"
	KindVarlength Kind = "varlength"
	KindString    Kind = "string"
	KindArray     Kind = "array"
	KindOptional  Kind = "optional"
	KindPadding   Kind = "padding"

	// KindRef is a reference to another named Type in the Schema.
	KindRef Kind = "ref"
	// KindBackReference is a DNS-style compression back-reference.
	KindBackReference Kind = "back_reference"
	// KindInlineUnion is a Choice: a set of variants tried in order with
	// no explicit discriminator.
	KindInlineUnion Kind = "inline_union"
)

// IsIntegerPrimitive reports whether k is one of the eight fixed-width
// integer kinds.
func (k Kind) IsIntegerPrimitive() bool {
	switch k {
	case KindUint8, KindUint16, KindUint32, KindUint64, KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// IsFloatPrimitive reports whether k is one of the two float kinds.
func (k Kind) IsFloatPrimitive() bool {
	return k == KindFloat32 || k == KindFloat64
}

// BitWidth returns the bit width of a fixed-width integer or float kind,
// or 0 if k does not carry an intrinsic width.
func (k Kind) BitWidth() int {
	switch k {
	case KindUint8, KindInt8:
		return 8
	case KindUint16, KindInt16:
		return 16
	case KindUint32, KindInt32, KindFloat32:
		return 32
	case KindUint64, KindInt64, KindFloat64:
		return 64
	}
	return 0
}

// FieldType is one field's type, carrying the parameters for whichever
// Kind it names. Only the struct matching Kind is meaningful; the rest
// are zero.
type FieldType struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Endianness overrides the schema/field default for this type
	// occurrence; primarily meaningful for multi-byte integers/floats.
	Endianness Endianness `json:"endianness,omitempty" yaml:"endianness,omitempty"`

	// RefName names the target Type for Kind==KindRef.
	RefName string `json:"ref,omitempty" yaml:"ref,omitempty"`

	// BitWidth is the declared width for Kind==KindBit.
	BitWidth int `json:"bit_width,omitempty" yaml:"bit_width,omitempty"`
	// SubFields decomposes a KindBitfield into named sub-fields, each an
	// ordinary Field whose Type is KindBit.
	SubFields []Field `json:"sub_fields,omitempty" yaml:"sub_fields,omitempty"`

	// Varlength names the encoding for Kind==KindVarlength.
	Varlength VarlengthEncoding `json:"varlength,omitempty" yaml:"varlength,omitempty"`

	String   *StringSpec   `json:"string_spec,omitempty" yaml:"string_spec,omitempty"`
	Array    *ArraySpec    `json:"array_spec,omitempty" yaml:"array_spec,omitempty"`
	Optional *OptionalSpec `json:"optional_spec,omitempty" yaml:"optional_spec,omitempty"`
	BackRef  *BackRefSpec  `json:"back_ref_spec,omitempty" yaml:"back_ref_spec,omitempty"`
	Union    *UnionDef     `json:"union_spec,omitempty" yaml:"union_spec,omitempty"`

	// PaddingAlignment is the byte boundary for Kind==KindPadding.
	PaddingAlignment int `json:"padding_alignment,omitempty" yaml:"padding_alignment,omitempty"`
}

// VarlengthEncoding names the three variable-length integer codecs the
// runtime implements.
type VarlengthEncoding string

const (
	VarlengthDER    VarlengthEncoding = "der"
	VarlengthLEB128 VarlengthEncoding = "leb128"
	VarlengthVLQ    VarlengthEncoding = "vlq"
)

// StringEncoding names the three text encodings a string field may use.
type StringEncoding string

const (
	EncodingUTF8   StringEncoding = "utf8"
	EncodingLatin1 StringEncoding = "latin1"
	EncodingASCII  StringEncoding = "ascii"
)

// StringKind names the four framing strategies for strings.
type StringKind string

const (
	StringLengthPrefixed  StringKind = "length_prefixed"
	StringNullTerminated  StringKind = "null_terminated"
	StringFixed           StringKind = "fixed"
	StringFieldReferenced StringKind = "field_referenced"
)

// StringSpec parameterizes a KindString field.
type StringSpec struct {
	Kind             StringKind     `json:"kind" yaml:"kind"`
	Encoding         StringEncoding `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	LengthPrefixKind Kind           `json:"length_prefix_kind,omitempty" yaml:"length_prefix_kind,omitempty"`
	FixedLength      int            `json:"fixed_length,omitempty" yaml:"fixed_length,omitempty"`
	LengthField      string         `json:"length_field,omitempty" yaml:"length_field,omitempty"`
}

// ArrayKind names the array framing strategies.
type ArrayKind string

const (
	ArrayLengthPrefixed      ArrayKind = "length_prefixed"
	ArrayByteLengthPrefixed  ArrayKind = "byte_length_prefixed"
	ArrayLengthPrefixedItems ArrayKind = "length_prefixed_items"
	ArrayFixed               ArrayKind = "fixed"
	ArrayFieldReferenced     ArrayKind = "field_referenced"
	ArrayNullTerminated      ArrayKind = "null_terminated"
	ArrayEOFTerminated       ArrayKind = "eof_terminated"
	ArrayByteBudgeted        ArrayKind = "byte_budgeted"
	ArrayVariantTerminated   ArrayKind = "variant_terminated"
	ArraySignatureTerminated ArrayKind = "signature_terminated"
	ArrayComputedCount       ArrayKind = "computed_count"
)

// ArraySpec parameterizes a KindArray field.
type ArraySpec struct {
	Kind  ArrayKind  `json:"kind" yaml:"kind"`
	Items *FieldType `json:"items" yaml:"items"`

	LengthPrefixKind     Kind `json:"length_prefix_kind,omitempty" yaml:"length_prefix_kind,omitempty"`
	ItemLengthPrefixKind Kind `json:"item_length_prefix_kind,omitempty" yaml:"item_length_prefix_kind,omitempty"`

	FixedLength int    `json:"fixed_length,omitempty" yaml:"fixed_length,omitempty"`
	LengthField string `json:"length_field,omitempty" yaml:"length_field,omitempty"`

	ByteBudgetField string `json:"byte_budget_field,omitempty" yaml:"byte_budget_field,omitempty"`

	// VariantTerminator names the variant type (within Items, an inline
	// union or ref to a union type) that ends variant_terminated arrays.
	VariantTerminator string `json:"variant_terminator,omitempty" yaml:"variant_terminator,omitempty"`

	// Signature bytes end a signature_terminated array (e.g. ZIP's
	// end-of-central-directory search).
	Signature []byte `json:"signature,omitempty" yaml:"signature,omitempty"`

	// ComputedCount, for Kind==ArrayComputedCount, is itself a Computed
	// spec; its Target names the field that holds the element count.
	ComputedCount *Computed `json:"computed_count,omitempty" yaml:"computed_count,omitempty"`
}

// OptionalSpec parameterizes a KindOptional field.
type OptionalSpec struct {
	Value          *FieldType `json:"value" yaml:"value"`
	PresenceMarker string     `json:"presence_marker" yaml:"presence_marker"` // "byte" | "bit"
}

// BackRefOrigin names what a back-reference's stored offset is relative
// to.
type BackRefOrigin string

const (
	OriginMessageStart    BackRefOrigin = "message_start"
	OriginCurrentPosition BackRefOrigin = "current_position"
)

// BackRefSpec parameterizes a KindBackReference field.
type BackRefSpec struct {
	TargetType  string        `json:"target_type" yaml:"target_type"`
	StorageKind Kind          `json:"storage_kind" yaml:"storage_kind"` // e.g. uint16
	OffsetMask  uint64        `json:"offset_mask" yaml:"offset_mask"`
	MarkerBits  uint64        `json:"marker_bits" yaml:"marker_bits"` // the reserved high bits identifying a pointer
	Origin      BackRefOrigin `json:"origin" yaml:"origin"`
}
