package runtime

// VarlengthEncoding names the variable-length integer encodings a field may
// declare.
type VarlengthEncoding int

const (
	DER VarlengthEncoding = iota
	LEB128
	VLQ
)

// WriteVarlength appends v using the requested encoding.
func (e *BitStreamEncoder) WriteVarlength(v uint64, enc VarlengthEncoding) {
	switch enc {
	case DER:
		e.writeDER(v)
	case LEB128:
		e.writeLEB128(v)
	case VLQ:
		e.writeVLQ(v)
	}
}

// writeDER emits ASN.1/DER length-octet form: 0-127 in one byte with the
// high bit clear; larger values as a leading byte (high bit set, low 7
// bits = number of following length octets) followed by that many
// big-endian bytes.
func (e *BitStreamEncoder) writeDER(v uint64) {
	e.align()
	if v <= 0x7f {
		e.out = append(e.out, byte(v))
		return
	}
	var tmp [8]byte
	n := 0
	for shift := v; shift > 0; shift >>= 8 {
		tmp[n] = byte(shift)
		n++
	}
	// tmp holds little-endian bytes; length octets are big-endian.
	e.out = append(e.out, byte(0x80|n))
	for i := n - 1; i >= 0; i-- {
		e.out = append(e.out, tmp[i])
	}
}

// writeLEB128 emits 7 data bits per byte, continuation bit set on all but
// the last byte, little-endian bit order across bytes.
func (e *BitStreamEncoder) writeLEB128(v uint64) {
	e.align()
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			e.out = append(e.out, b|0x80)
		} else {
			e.out = append(e.out, b)
			return
		}
	}
}

// writeVLQ emits 7 data bits per byte, continuation bit set on all but the
// last byte, most-significant group first (MIDI/VLQ convention).
func (e *BitStreamEncoder) writeVLQ(v uint64) {
	e.align()
	var groups []byte
	groups = append(groups, byte(v&0x7f))
	v >>= 7
	for v > 0 {
		groups = append(groups, byte(v&0x7f))
		v >>= 7
	}
	// groups holds 7-bit units least-significant first; emit them
	// most-significant first, continuation bit on every byte but the last
	// (groups[0]).
	for i := len(groups) - 1; i >= 0; i-- {
		b := groups[i]
		if i != 0 {
			b |= 0x80
		}
		e.out = append(e.out, b)
	}
}

// ReadVarlength reads a variable-length integer using the requested
// encoding, returning InvalidValue if the representation overflows 64 bits
// or the buffer ends mid-sequence (EndOfStream).
func (d *BitStreamDecoder) ReadVarlength(enc VarlengthEncoding) (uint64, error) {
	switch enc {
	case DER:
		return d.readDER()
	case LEB128:
		return d.readLEB128()
	case VLQ:
		return d.readVLQ()
	}
	return 0, New(InvalidValue, "unknown varlength encoding %d", enc)
}

func (d *BitStreamDecoder) readDER() (uint64, error) {
	lead, err := d.ReadUint8()
	if err != nil {
		return 0, err
	}
	if lead&0x80 == 0 {
		return uint64(lead), nil
	}
	n := int(lead & 0x7f)
	if n > 8 {
		return 0, New(InvalidValue, "DER length-of-length %d exceeds 8 bytes", n)
	}
	var v uint64
	for i := 0; i < n; i++ {
		b, err := d.ReadUint8()
		if err != nil {
			return 0, err
		}
		v = (v << 8) | uint64(b)
	}
	return v, nil
}

func (d *BitStreamDecoder) readLEB128() (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		if shift >= 64 {
			return 0, New(InvalidValue, "LEB128 value overflows 64 bits")
		}
		b, err := d.ReadUint8()
		if err != nil {
			return 0, err
		}
		if shift == 63 && b&0x7f > 1 {
			return 0, New(InvalidValue, "LEB128 value overflows 64 bits")
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}

func (d *BitStreamDecoder) readVLQ() (uint64, error) {
	var v uint64
	for i := 0; ; i++ {
		if i >= 10 {
			return 0, New(InvalidValue, "VLQ value overflows 64 bits")
		}
		b, err := d.ReadUint8()
		if err != nil {
			return 0, err
		}
		if v>>57 != 0 {
			return 0, New(InvalidValue, "VLQ value overflows 64 bits")
		}
		v = (v << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return v, nil
		}
	}
}
