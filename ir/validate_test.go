package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleSchema() *Schema {
	return &Schema{
		Config: Config{Endianness: BigEndian, BitOrder: MSBFirst},
		Types: map[string]*TypeDef{
			"Header": {
				Kind: TypeComposite,
				Composite: &Composite{
					Sequence: []Field{
						{Name: "magic", Type: FieldType{Kind: KindUint32}, Const: &Literal{Int: 0x04034b50}},
						{Name: "len_body", Type: FieldType{Kind: KindUint16}, Computed: &Computed{Kind: ComputedLengthOf, Target: "body"}},
						{Name: "body", Type: FieldType{Kind: KindString, String: &StringSpec{Kind: StringFixed, FixedLength: 4, Encoding: EncodingUTF8}}},
					},
				},
			},
		},
	}
}

func TestValidateAcceptsWellFormedSchema(t *testing.T) {
	require.NoError(t, Validate(simpleSchema()))
}

func TestValidateRejectsUndefinedTypeRef(t *testing.T) {
	s := simpleSchema()
	s.Types["Wrapper"] = &TypeDef{
		Kind:  TypeAlias,
		Alias: &FieldType{Kind: KindRef, RefName: "DoesNotExist"},
	}
	err := Validate(s)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrUndefinedTypeRef, ce.Kind)
}

func TestValidateDetectsAliasCycle(t *testing.T) {
	s := &Schema{
		Types: map[string]*TypeDef{
			"A": {Kind: TypeAlias, Alias: &FieldType{Kind: KindRef, RefName: "B"}},
			"B": {Kind: TypeAlias, Alias: &FieldType{Kind: KindRef, RefName: "A"}},
		},
	}
	err := Validate(s)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrAliasCycle, ce.Kind)
}

func TestValidateRejectsMalformedComputedTarget(t *testing.T) {
	s := simpleSchema()
	s.Types["Header"].Composite.Sequence[1].Computed.Target = "weird[nope<T>]"
	err := Validate(s)
	require.Error(t, err)
}

func TestValidateAllowsNonCyclicAliasChain(t *testing.T) {
	s := &Schema{
		Types: map[string]*TypeDef{
			"A": {Kind: TypeAlias, Alias: &FieldType{Kind: KindRef, RefName: "B"}},
			"B": {Kind: TypeAlias, Alias: &FieldType{Kind: KindUint32}},
		},
	}
	require.NoError(t, Validate(s))
}
