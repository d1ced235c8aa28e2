package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargetLocal(t *testing.T) {
	tgt, err := ParseTarget("body")
	require.NoError(t, err)
	assert.Equal(t, TargetLocal, tgt.Kind)
	assert.Equal(t, "body", tgt.FieldName)
}

func TestParseTargetAncestor(t *testing.T) {
	tgt, err := ParseTarget("../name")
	require.NoError(t, err)
	assert.Equal(t, TargetAncestor, tgt.Kind)
	assert.Equal(t, 1, tgt.AncestorDepth)
	assert.Equal(t, "name", tgt.FieldName)

	tgt2, err := ParseTarget("../../header")
	require.NoError(t, err)
	assert.Equal(t, 2, tgt2.AncestorDepth)
	assert.Equal(t, "header", tgt2.FieldName)
}

func TestParseTargetSelectors(t *testing.T) {
	for _, tc := range []struct {
		input string
		kind  SelectorKind
	}{
		{"sections[first<LocalFile>]", SelectorFirst},
		{"sections[last<LocalFile>]", SelectorLast},
		{"sections[corresponding<LocalFile>]", SelectorCorresponding},
	} {
		tgt, err := ParseTarget(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, TargetSelector, tgt.Kind)
		assert.Equal(t, "sections", tgt.Selector.ArrayField)
		assert.Equal(t, "LocalFile", tgt.Selector.TypeName)
		assert.Equal(t, tc.kind, tgt.Selector.Kind)
	}
}

func TestParseTargetMalformed(t *testing.T) {
	for _, s := range []string{"", "../", "sections[weird<T>]", "a/b", "a[b"} {
		_, err := ParseTarget(s)
		assert.Error(t, err, s)
	}
}
