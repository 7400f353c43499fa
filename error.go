package givmodbus

import "errors"

var (
	// ErrShortFrame indicates the framer was asked to decode fewer bytes than
	// the declared frame length requires. The framer should keep buffering.
	ErrShortFrame = errors.New("givmodbus: frame incomplete")
	// ErrBadMagic signals the two-byte frame magic did not match 0x5959. The
	// framer resyncs by scanning forward for the next occurrence.
	ErrBadMagic = errors.New("givmodbus: bad frame magic")
	// ErrMismatchedProtocolID signals a mismatched protocol identifier in the
	// outer frame header. A well-formed device always echoes 0x0001.
	ErrMismatchedProtocolID = errors.New("givmodbus: mismatch of protocol id")
	// ErrInvalidUnitID signals an outer frame header carrying a unit id
	// other than 0x00 or 0x01. The framer resyncs past it.
	ErrInvalidUnitID = errors.New("givmodbus: invalid unit id")
	// ErrCRC signals the trailing CRC of a transparent message did not match
	// the computed checksum over the payload.
	ErrCRC = errors.New("givmodbus: crc mismatch")
	// ErrDataSizeExceeded indicates an encode was asked to pack more register
	// values than a single transparent frame can carry.
	ErrDataSizeExceeded = errors.New("givmodbus: data size exceeds limit")
	// ErrInvalidParameter signals a malformed input to an encode/decode call.
	ErrInvalidParameter = errors.New("givmodbus: given parameter violates restriction")
	// ErrInvalidPDUState signals a PDU was constructed or decoded with a
	// required field missing or out of range.
	ErrInvalidPDUState = errors.New("givmodbus: invalid pdu state")
	// ErrUnknownFunctionCode is returned when decoding a transparent function
	// code this client has no PDU type registered for.
	ErrUnknownFunctionCode = errors.New("givmodbus: unknown transparent function code")
	// ErrTimeout is returned by SendRequestAndAwaitResponse once retries are
	// exhausted without a correlated response.
	ErrTimeout = errors.New("givmodbus: request timed out")
	// ErrClosed is returned by client operations attempted after Close.
	ErrClosed = errors.New("givmodbus: client closed")
	// ErrOutOfRange is returned by the command composer when a value falls
	// outside a writable register's valid range.
	ErrOutOfRange = errors.New("givmodbus: value out of range")
)
