package givmodbus

import "encoding/binary"

// Encoder accumulates a big-endian payload for a transparent message body.
// It mirrors the teacher's put() helper but keeps a cursor so callers can
// interleave heterogeneous fields without precomputing offsets.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with capacity hinted by size.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

func (e *Encoder) AddUint8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

func (e *Encoder) AddUint16(v uint16) *Encoder {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
	return e
}

func (e *Encoder) AddUint16LE(v uint16) *Encoder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
	return e
}

func (e *Encoder) AddUint64(v uint64) *Encoder {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
	return e
}

// AddString writes s left-justified into a fixed-width field, zero-padded.
// Input longer than width is truncated.
func (e *Encoder) AddString(s string, width int) *Encoder {
	field := make([]byte, width)
	copy(field, s)
	e.buf = append(e.buf, field...)
	return e
}

func (e *Encoder) Append(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) Bytes() []byte { return e.buf }

// CRC returns CRC16Modbus over everything written so far.
func (e *Encoder) CRC() uint16 { return CRC16Modbus(e.buf) }

// Decoder reads sequential big-endian fields from a fixed byte slice,
// tracking how many bytes remain so callers can implement "decoding
// complete" checks without re-deriving offsets.
type Decoder struct {
	buf []byte
	pos int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) Complete() bool { return d.pos >= len(d.buf) }

func (d *Decoder) DecodeUint8() (uint8, error) {
	if d.Remaining() < 1 {
		return 0, ErrShortFrame
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

func (d *Decoder) DecodeUint16() (uint16, error) {
	if d.Remaining() < 2 {
		return 0, ErrShortFrame
	}
	v := binary.BigEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *Decoder) DecodeUint16LE() (uint16, error) {
	if d.Remaining() < 2 {
		return 0, ErrShortFrame
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *Decoder) DecodeUint64() (uint64, error) {
	if d.Remaining() < 8 {
		return 0, ErrShortFrame
	}
	v := binary.BigEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *Decoder) DecodeString(width int) (string, error) {
	if d.Remaining() < width {
		return "", ErrShortFrame
	}
	raw := d.buf[d.pos : d.pos+width]
	d.pos += width
	return trimLatin1(raw), nil
}

// trimLatin1 strips trailing NUL padding and upper-cases ASCII, matching
// the device's habit of padding serials with nulls.
func trimLatin1(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	out := make([]byte, end)
	for i, c := range b[:end] {
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
