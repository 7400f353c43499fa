package givmodbus

import (
	"encoding/binary"
	"fmt"
)

// Outer frame constants. Every GivEnergy frame opens with a fixed 8-byte
// header reminiscent of the standard Modbus MBAP header, but the
// transaction id field is pinned to a fixed magic rather than an
// incrementing counter - the device does not itself correlate requests,
// correlation is entirely a client-side concern (see ShapeHash).
const (
	FrameMagic       uint16 = 0x5959
	ProtocolID       uint16 = 0x0001
	FuncHeartbeat    byte   = 1
	FuncTransparent  byte   = 2
	AdapterSerialLen        = 10
)

// PDU is implemented by every decodable message: heartbeats and the
// family of transparent (read/write register) requests and responses.
type PDU interface {
	// FunctionCode returns the outer frame function code (1 or 2).
	FunctionCode() byte
	// Encode appends the wire encoding of the full frame, including the
	// outer 8-byte header, to the returned byte slice.
	Encode() ([]byte, error)
}

// ShapeHasher is implemented by PDUs that participate in request/response
// correlation. Values deliberately excluded from the hash (register
// values, the error flag) are excluded so a request and its eventual
// response hash identically.
type ShapeHasher interface {
	ShapeHash() int64
}

// Header is the decoded form of the fixed 8-byte outer frame prefix.
type Header struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16 // length of everything after this field, in bytes
	UnitID        byte
	FunctionCode  byte
}

func decodeHeader(b []byte) (Header, error) {
	if len(b) < 8 {
		return Header{}, ErrShortFrame
	}
	h := Header{
		TransactionID: binary.BigEndian.Uint16(b[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(b[2:4]),
		Length:        binary.BigEndian.Uint16(b[4:6]),
		UnitID:        b[6],
		FunctionCode:  b[7],
	}
	if h.TransactionID != FrameMagic {
		return Header{}, ErrBadMagic
	}
	if h.ProtocolID != ProtocolID {
		return Header{}, ErrMismatchedProtocolID
	}
	if h.UnitID != 0x00 && h.UnitID != 0x01 {
		return Header{}, ErrInvalidUnitID
	}
	return h, nil
}

func encodeHeader(unitID, functionCode byte, innerLen int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], FrameMagic)
	binary.BigEndian.PutUint16(buf[2:4], ProtocolID)
	binary.BigEndian.PutUint16(buf[4:6], uint16(innerLen+2))
	buf[6] = unitID
	buf[7] = functionCode
	return buf
}

// Decode reads exactly one complete frame from b (len(b) must equal the
// declared frame length; use Framer to find frame boundaries in a
// streaming byte source) and returns the concrete PDU.
func Decode(b []byte) (PDU, error) {
	h, err := decodeHeader(b)
	if err != nil {
		return nil, err
	}
	body := b[8:]
	switch h.FunctionCode {
	case FuncHeartbeat:
		return decodeHeartbeat(h, body)
	case FuncTransparent:
		return decodeTransparent(h, body)
	default:
		return nil, fmt.Errorf("givmodbus: %w: %d", ErrUnknownFunctionCode, h.FunctionCode)
	}
}
