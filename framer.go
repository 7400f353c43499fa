package givmodbus

import "encoding/binary"

// Framer turns a raw, possibly-fragmented TCP byte stream into a sequence
// of complete frames. It resyncs on the 0x5959 magic whenever the stream
// gets corrupted or a connection is established mid-frame.
type Framer interface {
	// Feed appends newly-read bytes to the internal buffer.
	Feed(b []byte)
	// Next extracts the next complete frame, if one is buffered. It
	// returns ok=false when more bytes are needed. A decode error on an
	// otherwise length-complete frame is returned with ok=true so the
	// caller can log it and keep consuming; the framer itself always
	// advances past a bad frame so the next 0x5959 can resync.
	Next() (frame []byte, ok bool, err error)
}

var _ Framer = (*StreamFramer)(nil)

// StreamFramer is the concrete, connection-scoped Framer used by Client.
type StreamFramer struct {
	buf []byte
}

func NewStreamFramer() *StreamFramer {
	return &StreamFramer{}
}

func (f *StreamFramer) Feed(b []byte) {
	f.buf = append(f.buf, b...)
}

func (f *StreamFramer) Next() ([]byte, bool, error) {
	for {
		if len(f.buf) < 2 {
			return nil, false, nil
		}
		magic := binary.BigEndian.Uint16(f.buf[0:2])
		if magic != FrameMagic {
			if advanced := f.resync(); !advanced {
				return nil, false, nil
			}
			continue
		}
		if len(f.buf) < 8 {
			return nil, false, nil
		}
		declaredLen := binary.BigEndian.Uint16(f.buf[4:6])
		total := 6 + int(declaredLen)
		if len(f.buf) < total {
			return nil, false, nil
		}
		frame := make([]byte, total)
		copy(frame, f.buf[:total])
		f.buf = f.buf[total:]
		return frame, true, nil
	}
}

// resync discards bytes up to (not including) the next 0x5959 occurrence,
// or the whole buffer minus one byte if none is found, so a dangling 0x59
// at the tail can still match once more bytes arrive. It reports whether
// it discarded anything; a false return combined with an insufficient
// buffer means the caller should wait for more bytes.
func (f *StreamFramer) resync() bool {
	for i := 1; i < len(f.buf)-1; i++ {
		if f.buf[i] == 0x59 && f.buf[i+1] == 0x59 {
			f.buf = f.buf[i:]
			return true
		}
	}
	if len(f.buf) > 1 {
		// keep the final byte in case it is the first half of the magic
		f.buf = f.buf[len(f.buf)-1:]
		return true
	}
	return false
}

// DecodeFrame decodes one complete frame previously returned by Next,
// verifying the transparent CRC before handing off to Decode.
func DecodeFrame(frame []byte) (PDU, error) {
	if len(frame) >= 8 && frame[7] == FuncTransparent {
		if err := verifyTransparentCRC(frame); err != nil {
			return nil, err
		}
	}
	return Decode(frame)
}

func verifyTransparentCRC(frame []byte) error {
	body := frame[8:]
	if len(body) < 2 {
		return ErrShortFrame
	}
	payload := body[:len(body)-2]
	want := binary.LittleEndian.Uint16(body[len(body)-2:])
	// CRC covers slave_address onward, i.e. everything after the fixed
	// adapter-serial + padding prefix.
	if len(payload) < AdapterSerialLen+8 {
		return ErrShortFrame
	}
	got := CRC16Modbus(payload[AdapterSerialLen+8:])
	if got != want {
		return ErrCRC
	}
	return nil
}
