package runtime

import "sync"

// FieldValueKind discriminates the closed tagged union FieldValue carries.
// The set is deliberately closed rather than a dynamic any-type: computed-field codegen only ever needs
// to express "this target is a number", "a byte run", "text", or "an array
// of sibling records", and nothing else.
type FieldValueKind int

const (
	FieldInt FieldValueKind = iota
	FieldString
	FieldBytes
	FieldItems
)

// Item is one element of an Items-kind FieldValue: the encoded bytes of one
// array element plus its variant type name and the per-field snapshot a
// nested computed field might need (e.g. `corresponding<T>` reading a
// sibling's own fields, not just its encoded bytes).
type Item struct {
	TypeName string
	Bytes    []byte
	Fields   map[string]FieldValue
}

// FieldValue is the value type stored in an EncodingContext parent-frame
// snapshot and read back by computed-field resolution code. It supports
// exactly the operations computed fields need: byte/element length, raw
// bytes (for crc32_of), and indexed lookup into an item collection.
type FieldValue struct {
	Kind  FieldValueKind
	Int   int64
	Str   string
	Bytes []byte
	Items []Item
}

// NewIntField wraps a signed integer value (also used for unsigned values
// that fit in 63 bits, which covers every integer primitive this schema
// model supports).
func NewIntField(v int64) FieldValue { return FieldValue{Kind: FieldInt, Int: v} }

// NewStringField wraps a decoded/encoded string value.
func NewStringField(v string) FieldValue { return FieldValue{Kind: FieldString, Str: v} }

// NewBytesField wraps an encoded byte run (e.g. a nested composite's bytes,
// used by length_of and crc32_of).
func NewBytesField(v []byte) FieldValue { return FieldValue{Kind: FieldBytes, Bytes: v} }

// NewItemsField wraps a materialized array of sibling items, used by
// count_of, sum_of_sizes, sum_of_type_sizes, and the selector family.
func NewItemsField(items []Item) FieldValue { return FieldValue{Kind: FieldItems, Items: items} }

// LengthOfValue returns the quantity `length_of` needs: byte count for
// Bytes/String, element count for Items, or the integer value itself for
// Int (covering `length_of` targeting a plain integer field, which some
// schemas do when a field is reused as both a value and a size source).
func (v FieldValue) LengthOfValue() int64 {
	switch v.Kind {
	case FieldBytes:
		return int64(len(v.Bytes))
	case FieldString:
		return int64(len(v.Str))
	case FieldItems:
		return int64(len(v.Items))
	default:
		return v.Int
	}
}

// Len returns the element/byte count, used by `count_of`.
func (v FieldValue) Len() int64 { return v.LengthOfValue() }

// SumTypeSizes sums the encoded byte length of every item whose TypeName
// matches, for `sum_of_type_sizes`.
func (v FieldValue) SumTypeSizes(typeName string) int64 {
	var total int64
	for _, it := range v.Items {
		if it.TypeName == typeName {
			total += int64(len(it.Bytes))
		}
	}
	return total
}

// NthItemOfType returns the n-th (0-indexed, encounter order) item whose
// TypeName matches, used by `corresponding<T>`/`first<T>`/`last<T>`
// resolution once the index has been determined by the position map or the
// array iteration state's type-occurrence counter.
func (v FieldValue) NthItemOfType(typeName string, n int) (Item, bool) {
	count := 0
	for _, it := range v.Items {
		if it.TypeName != typeName {
			continue
		}
		if count == n {
			return it, true
		}
		count++
	}
	return Item{}, false
}

// ToBytes returns the byte representation used for crc32_of: the raw Bytes
// for a Bytes-kind value, the UTF-8 representation for String, or nil
// otherwise (callers should not crc32_of an Int or Items value directly;
// schema validation rejects that target shape ahead of codegen).
func (v FieldValue) ToBytes() []byte {
	switch v.Kind {
	case FieldBytes:
		return v.Bytes
	case FieldString:
		return []byte(v.Str)
	default:
		return nil
	}
}

// ArrayIterState tracks the encoding state of one array currently being
// written: the element index and a per-variant-type occurrence counter
// used to resolve `corresponding<T>` from inside an item's own encode
// call.
type ArrayIterState struct {
	Index       int
	TypeIndices map[string]int
}

// CompressionDictionary is the one interior-mutable structure an
// EncodingContext carries: a byte-run to offset map shared across every
// sibling encode within a single top-level encode call. Two nested encodes
// never run concurrently against the same context; the mutex keeps the
// structure safe for callers that parallelize at a coarser grain anyway.
type CompressionDictionary struct {
	mu      sync.Mutex
	offsets map[string]int
}

// NewCompressionDictionary constructs an empty dictionary, created once at
// the outermost encode call and threaded down via EncodingContext.
func NewCompressionDictionary() *CompressionDictionary {
	return &CompressionDictionary{offsets: make(map[string]int)}
}

// Lookup returns the previously recorded offset for this exact byte run, if
// any back-reference target has already been written with these bytes.
func (c *CompressionDictionary) Lookup(b []byte) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	off, ok := c.offsets[string(b)]
	return off, ok
}

// Record stores the offset at which this byte run was first written, so a
// later occurrence can be replaced by a back-reference pointer.
func (c *CompressionDictionary) Record(b []byte, offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.offsets[string(b)]; !exists {
		c.offsets[string(b)] = offset
	}
}

// EncodingContext is the value threaded through nested encode_with_context
// calls. It is never a global: it's created at the outermost `encode`
// boundary for a type that (transitively) needs it and passed down through
// the call chain.
type EncodingContext struct {
	parents    []map[string]FieldValue
	arrayIters []ArrayIterState
	positions  map[string][]int
	dict       *CompressionDictionary
	baseOffset int
}

// NewEncodingContext creates a root context. baseOffset is 0 unless this
// context is being built for a nested message embedded at a known offset
// within a larger stream (back-reference pointers are always relative to
// the outermost message start).
func NewEncodingContext() *EncodingContext {
	return &EncodingContext{
		positions: make(map[string][]int),
		dict:      NewCompressionDictionary(),
	}
}

// ExtendWithParent returns a child context that sees this frame's snapshot
// as its nearest ancestor, on top of whatever ancestors the current
// context already has. The compression dictionary and position map are
// shared (same underlying structures); only the parent-frame stack grows.
func (c *EncodingContext) ExtendWithParent(snapshot map[string]FieldValue) *EncodingContext {
	child := &EncodingContext{
		parents:    append(append([]map[string]FieldValue{}, c.parents...), snapshot),
		positions:  c.positions,
		dict:       c.dict,
		baseOffset: c.baseOffset,
	}
	return child
}

// Ancestor returns the snapshot `depth` frames up (depth=1 is "../field",
// depth=2 is "../../field", ...), or false if there are not that many
// ancestors recorded.
func (c *EncodingContext) Ancestor(depth int) (map[string]FieldValue, bool) {
	idx := len(c.parents) - depth
	if idx < 0 || idx >= len(c.parents) {
		return nil, false
	}
	return c.parents[idx], true
}

// PushArrayIter begins iteration state for a newly entered array.
func (c *EncodingContext) PushArrayIter() {
	c.arrayIters = append(c.arrayIters, ArrayIterState{TypeIndices: make(map[string]int)})
}

// PopArrayIter discards the innermost array's iteration state on exit.
func (c *EncodingContext) PopArrayIter() {
	if len(c.arrayIters) > 0 {
		c.arrayIters = c.arrayIters[:len(c.arrayIters)-1]
	}
}

// CurrentArrayIter returns the innermost array's mutable iteration state,
// or nil if no array is currently being iterated.
func (c *EncodingContext) CurrentArrayIter() *ArrayIterState {
	if len(c.arrayIters) == 0 {
		return nil
	}
	return &c.arrayIters[len(c.arrayIters)-1]
}

// RecordPosition appends a projected offset to the position-tracking list
// for one array+type key during an array pre-pass, preserving encounter
// order so index 0 is "first" and the last entry is "last".
func (c *EncodingContext) RecordPosition(key string, offset int) {
	c.positions[key] = append(c.positions[key], offset)
}

// Position looks up the n-th recorded offset for a key, used by
// first<T>/last<T>/corresponding<T> resolution.
func (c *EncodingContext) Position(key string, n int) (int, bool) {
	list := c.positions[key]
	if n < 0 || n >= len(list) {
		return 0, false
	}
	return list[n], true
}

// PositionCount returns how many offsets have been recorded for a key,
// used to resolve `last<T>` as index len-1.
func (c *EncodingContext) PositionCount(key string) int { return len(c.positions[key]) }

// Dictionary returns the shared compression dictionary.
func (c *EncodingContext) Dictionary() *CompressionDictionary { return c.dict }

// BaseOffset returns the byte offset, relative to the outermost message
// start, at which the current frame begins. Back-reference pointer offsets
// are always written relative to the message start, not the current frame.
func (c *EncodingContext) BaseOffset() int { return c.baseOffset }

// WithBaseOffset returns a context identical to c but with an updated base
// offset, used when a nested frame needs to record positions relative to
// the overall message rather than its own start.
func (c *EncodingContext) WithBaseOffset(offset int) *EncodingContext {
	child := *c
	child.baseOffset = offset
	return &child
}

// DecodingContext is the smaller counterpart used on the decode side: a
// string-to-value map conveying ancestor field values (lengths,
// discriminator values) down into context-taking decode calls.
type DecodingContext struct {
	values map[string]uint64
}

// NewDecodingContext creates an empty decoding context.
func NewDecodingContext() *DecodingContext {
	return &DecodingContext{values: make(map[string]uint64)}
}

// With returns a new context with one additional name bound, leaving the
// receiver unmodified (decode contexts are small enough to copy-on-write
// rather than needing the stack-of-frames structure the encode side uses).
func (c *DecodingContext) With(name string, value uint64) *DecodingContext {
	child := &DecodingContext{values: make(map[string]uint64, len(c.values)+1)}
	for k, v := range c.values {
		child.values[k] = v
	}
	child.values[name] = value
	return child
}

// Get looks up a previously bound ancestor value.
func (c *DecodingContext) Get(name string) (uint64, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Clone returns an independent copy of the dictionary's current entries.
func (c *CompressionDictionary) Clone() *CompressionDictionary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := NewCompressionDictionary()
	for k, v := range c.offsets {
		out.offsets[k] = v
	}
	return out
}

// CloneForMeasurement returns a context suitable for measurement passes:
// parent frames and the position map are shared, but the compression
// dictionary is copied so offsets recorded while measuring (which are
// relative to a scratch stream) never leak into the real dictionary.
// Lookups still see everything recorded so far, so measured lengths match
// what the real pass will emit.
func (c *EncodingContext) CloneForMeasurement() *EncodingContext {
	child := *c
	child.dict = c.dict.Clone()
	return &child
}
