package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitStreamEncoderDecoderPrimitivesRoundtrip(t *testing.T) {
	enc := NewBitStreamEncoder(MSBFirst)
	enc.WriteUint8(0xAB)
	enc.WriteUint16(0x1234, BigEndian)
	enc.WriteUint16(0x1234, LittleEndian)
	enc.WriteUint32(0xDEADBEEF, BigEndian)
	enc.WriteUint64(0x0102030405060708, BigEndian)
	enc.WriteInt8(-5)
	enc.WriteFloat32(3.14, BigEndian)
	enc.WriteFloat64(2.71828, BigEndian)

	b := enc.Finish()

	dec := NewBitStreamDecoder(b, MSBFirst)

	u8, err := dec.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	u16be, err := dec.ReadUint16(BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16be)

	u16le, err := dec.ReadUint16(LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16le)

	u32, err := dec.ReadUint32(BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := dec.ReadUint64(BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	i8, err := dec.ReadInt8()
	require.NoError(t, err)
	assert.Equal(t, int8(-5), i8)

	f32, err := dec.ReadFloat32(BigEndian)
	require.NoError(t, err)
	assert.InDelta(t, float32(3.14), f32, 0.0001)

	f64, err := dec.ReadFloat64(BigEndian)
	require.NoError(t, err)
	assert.InDelta(t, 2.71828, f64, 0.000001)

	assert.Equal(t, len(b), dec.Position())
}

func TestBitStreamBitPackingMSBFirst(t *testing.T) {
	enc := NewBitStreamEncoder(MSBFirst)
	enc.WriteBits(0b101, 3)
	enc.WriteBits(0b11111, 5)
	b := enc.Finish()
	require.Len(t, b, 1)
	assert.Equal(t, byte(0b10111111), b[0])
}

func TestBitStreamBitPackingLSBFirst(t *testing.T) {
	enc := NewBitStreamEncoder(LSBFirst)
	enc.WriteBits(0b101, 3)
	enc.WriteBits(0b11111, 5)
	b := enc.Finish()
	require.Len(t, b, 1)
	assert.Equal(t, byte(0b11111101), b[0])
}

func TestBitStreamAlignPadsImplicitly(t *testing.T) {
	enc := NewBitStreamEncoder(MSBFirst)
	enc.WriteBits(0b1, 1)
	enc.WriteUint8(0xFF) // must flush the pending bit, zero-padded, before writing
	b := enc.Finish()
	require.Len(t, b, 2)
	assert.Equal(t, byte(0b10000000), b[0])
	assert.Equal(t, byte(0xFF), b[1])
}

func TestBitStreamSeekAndRestore(t *testing.T) {
	enc := NewBitStreamEncoder(MSBFirst)
	enc.WriteUint8(1)
	enc.WriteUint8(2)
	enc.WriteUint8(3)
	b := enc.Finish()

	dec := NewBitStreamDecoder(b, MSBFirst)
	_, err := dec.ReadUint8()
	require.NoError(t, err)
	saved := dec.Position()

	require.NoError(t, dec.Seek(2))
	v, err := dec.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(3), v)

	require.NoError(t, dec.Seek(saved))
	assert.Equal(t, saved, dec.Position())
}

func TestBitStreamSeekOutOfRange(t *testing.T) {
	dec := NewBitStreamDecoder([]byte{1, 2, 3}, MSBFirst)
	err := dec.Seek(10)
	require.Error(t, err)
	var rtErr *Error
	require.True(t, As(err, &rtErr))
	assert.Equal(t, EndOfStream, rtErr.Kind)
}

func TestBitStreamPeekDoesNotAdvance(t *testing.T) {
	enc := NewBitStreamEncoder(MSBFirst)
	enc.WriteUint16(0xCAFE, BigEndian)
	b := enc.Finish()

	dec := NewBitStreamDecoder(b, MSBFirst)
	peeked, err := dec.PeekUint16(BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xCAFE), peeked)
	assert.Equal(t, 0, dec.Position())

	read, err := dec.ReadUint16(BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xCAFE), read)
	assert.Equal(t, 2, dec.Position())
}

func TestBitStreamReadPastEndReturnsEndOfStream(t *testing.T) {
	dec := NewBitStreamDecoder([]byte{1}, MSBFirst)
	_, err := dec.ReadUint8()
	require.NoError(t, err)
	_, err = dec.ReadUint8()
	require.Error(t, err)
	var rtErr *Error
	require.True(t, As(err, &rtErr))
	assert.Equal(t, EndOfStream, rtErr.Kind)
}

func FuzzBitStreamUint32Roundtrip(f *testing.F) {
	f.Add(uint32(0))
	f.Add(uint32(math.MaxUint32))
	f.Add(uint32(0xDEADBEEF))

	f.Fuzz(func(t *testing.T, v uint32) {
		for _, endian := range []Endian{BigEndian, LittleEndian} {
			enc := NewBitStreamEncoder(MSBFirst)
			enc.WriteUint32(v, endian)
			b := enc.Finish()

			dec := NewBitStreamDecoder(b, MSBFirst)
			got, err := dec.ReadUint32(endian)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != v {
				t.Fatalf("roundtrip mismatch: got %d want %d", got, v)
			}
		}
	})
}
