package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDERVarlengthShortForm(t *testing.T) {
	enc := NewBitStreamEncoder(MSBFirst)
	enc.WriteVarlength(42, DER)
	b := enc.Finish()
	assert.Equal(t, []byte{0x2a}, b)

	dec := NewBitStreamDecoder(b, MSBFirst)
	v, err := dec.ReadVarlength(DER)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)
}

func TestDERVarlengthLongForm(t *testing.T) {
	enc := NewBitStreamEncoder(MSBFirst)
	enc.WriteVarlength(300, DER)
	b := enc.Finish()
	// 300 = 0x012c, needs 2 length octets
	assert.Equal(t, []byte{0x82, 0x01, 0x2c}, b)

	dec := NewBitStreamDecoder(b, MSBFirst)
	v, err := dec.ReadVarlength(DER)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), v)
}

func TestLEB128Roundtrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 0xFFFFFFFF, 0xFFFFFFFFFFFFFFFF} {
		enc := NewBitStreamEncoder(MSBFirst)
		enc.WriteVarlength(v, LEB128)
		b := enc.Finish()

		dec := NewBitStreamDecoder(b, MSBFirst)
		got, err := dec.ReadVarlength(LEB128)
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestVLQRoundtrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 16383, 16384, 2097151, 0xFFFFFFFF} {
		enc := NewBitStreamEncoder(MSBFirst)
		enc.WriteVarlength(v, VLQ)
		b := enc.Finish()

		dec := NewBitStreamDecoder(b, MSBFirst)
		got, err := dec.ReadVarlength(VLQ)
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestVLQKnownEncoding(t *testing.T) {
	// Standard MIDI VLQ test vectors.
	cases := map[uint64][]byte{
		0x00:     {0x00},
		0x40:     {0x40},
		0x7f:     {0x7f},
		0x80:     {0x81, 0x00},
		0x2000:   {0xc0, 0x00},
		0x3fff:   {0xff, 0x7f},
		0x100000: {0xc0, 0x80, 0x00},
	}
	for v, want := range cases {
		enc := NewBitStreamEncoder(MSBFirst)
		enc.WriteVarlength(v, VLQ)
		got := enc.Finish()
		assert.Equal(t, want, got, "value 0x%x", v)
	}
}

func TestLEB128Overflow(t *testing.T) {
	// 10 continuation bytes, each contributing a shift of 7: shift reaches
	// 70 before completing, which must be rejected as overflow.
	b := make([]byte, 11)
	for i := range b {
		b[i] = 0x80
	}
	b[10] = 0x01
	dec := NewBitStreamDecoder(b, MSBFirst)
	_, err := dec.ReadVarlength(LEB128)
	require.Error(t, err)
	var rtErr *Error
	require.True(t, As(err, &rtErr))
	assert.Equal(t, InvalidValue, rtErr.Kind)
}

func FuzzDERRoundtrip(f *testing.F) {
	f.Add(uint64(0))
	f.Add(uint64(127))
	f.Add(uint64(128))
	f.Add(uint64(0xFFFFFFFFFFFFFFFF))

	f.Fuzz(func(t *testing.T, v uint64) {
		enc := NewBitStreamEncoder(MSBFirst)
		enc.WriteVarlength(v, DER)
		b := enc.Finish()

		dec := NewBitStreamDecoder(b, MSBFirst)
		got, err := dec.ReadVarlength(DER)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != v {
			t.Fatalf("roundtrip mismatch: got %d want %d", got, v)
		}
	})
}
