package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodingContextAncestorLookup(t *testing.T) {
	root := NewEncodingContext()
	child := root.ExtendWithParent(map[string]FieldValue{"len": NewIntField(13)})
	grandchild := child.ExtendWithParent(map[string]FieldValue{"crc": NewIntField(99)})

	snap, ok := grandchild.Ancestor(1)
	require.True(t, ok)
	assert.Equal(t, int64(99), snap["crc"].Int)

	snap2, ok := grandchild.Ancestor(2)
	require.True(t, ok)
	assert.Equal(t, int64(13), snap2["len"].Int)

	snap3, ok := grandchild.Ancestor(3)
	require.False(t, ok)
	assert.Nil(t, snap3)
}

func TestEncodingContextArrayIterState(t *testing.T) {
	ctx := NewEncodingContext()
	ctx.PushArrayIter()
	iter := ctx.CurrentArrayIter()
	require.NotNil(t, iter)
	iter.TypeIndices["LocalFile"] = 2
	iter.Index = 1

	same := ctx.CurrentArrayIter()
	assert.Equal(t, 2, same.TypeIndices["LocalFile"])

	ctx.PopArrayIter()
	assert.Nil(t, ctx.CurrentArrayIter())
}

func TestEncodingContextPositionTracking(t *testing.T) {
	ctx := NewEncodingContext()
	ctx.RecordPosition("sections__LocalFile", 0)
	ctx.RecordPosition("sections__LocalFile", 40)

	first, ok := ctx.Position("sections__LocalFile", 0)
	require.True(t, ok)
	assert.Equal(t, 0, first)

	last, ok := ctx.Position("sections__LocalFile", ctx.PositionCount("sections__LocalFile")-1)
	require.True(t, ok)
	assert.Equal(t, 40, last)
}

func TestCompressionDictionaryRecordsFirstOffsetOnly(t *testing.T) {
	dict := NewCompressionDictionary()
	dict.Record([]byte("example.com"), 12)
	dict.Record([]byte("example.com"), 99) // must not overwrite

	off, ok := dict.Lookup([]byte("example.com"))
	require.True(t, ok)
	assert.Equal(t, 12, off)

	_, ok = dict.Lookup([]byte("nope"))
	assert.False(t, ok)
}

func TestCompressionDictionaryConcurrentAccess(t *testing.T) {
	dict := NewCompressionDictionary()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := []byte{byte(n)}
			dict.Record(key, n)
			dict.Lookup(key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		off, ok := dict.Lookup([]byte{byte(i)})
		require.True(t, ok)
		assert.Equal(t, i, off)
	}
}

func TestDecodingContextWithIsImmutable(t *testing.T) {
	root := NewDecodingContext()
	child := root.With("len", 42)

	_, ok := root.Get("len")
	assert.False(t, ok)

	v, ok := child.Get("len")
	require.True(t, ok)
	assert.Equal(t, uint64(42), v)
}

func TestFieldValueSelectors(t *testing.T) {
	items := []Item{
		{TypeName: "LocalFile", Bytes: []byte{1, 2, 3}},
		{TypeName: "LocalFile", Bytes: []byte{4, 5}},
		{TypeName: "CentralDirEntry", Bytes: []byte{9}},
	}
	fv := NewItemsField(items)

	assert.Equal(t, int64(3), fv.Len())
	assert.Equal(t, int64(5), fv.SumTypeSizes("LocalFile"))

	first, ok := fv.NthItemOfType("LocalFile", 0)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, first.Bytes)

	second, ok := fv.NthItemOfType("LocalFile", 1)
	require.True(t, ok)
	assert.Equal(t, []byte{4, 5}, second.Bytes)

	_, ok = fv.NthItemOfType("LocalFile", 2)
	assert.False(t, ok)
}
