package givmodbus

import (
	"fmt"
)

// Transparent function codes, as carried in the transparent_function_code
// byte (high bit reserved for the error flag).
const (
	TFCNull          byte = 0
	TFCReadHolding   byte = 3
	TFCReadInput     byte = 4
	TFCWriteHolding  byte = 6
	TFCReadBattery   byte = 22
	tfcErrorFlag     byte = 0x80
	tfcCodeMask      byte = 0x7f
	defaultPadding   uint64 = 0x0000000000000008
	nullResponseSize      = 62
)

// Field is a bitset of the optional sections a transparent message's wire
// form carries. Every message has SLAVE_ADDRESS and TRANSPARENT_FUNCTION
// implicitly; Field only tracks the variable tail.
type Field uint8

const (
	FieldSerial Field = 1 << iota
	FieldBase
	FieldCount
	FieldValues
)

func (f Field) has(bit Field) bool { return f&bit != 0 }

// TransparentMessage is the shared shape of every function=2 PDU: register
// reads, register writes, and the unsolicited null keep-alive.
type TransparentMessage struct {
	DataAdapterSerialNumber string
	InverterSerialNumber    string
	SlaveAddress            byte
	TransparentFunctionCode byte
	Error                   bool
	Padding                 uint64
	BaseRegister            uint16
	RegisterCount           uint16
	RegisterValues          []uint16

	fields       Field
	isRequest    bool
	registerBank Bank
}

var _ PDU = (*TransparentMessage)(nil)
var _ ShapeHasher = (*TransparentMessage)(nil)

func (m *TransparentMessage) FunctionCode() byte { return FuncTransparent }

func (m *TransparentMessage) String() string {
	tag := "Request"
	if !m.isRequest {
		tag = "Response"
	}
	errTag := ""
	if m.Error {
		errTag = " ERROR"
	}
	return fmt.Sprintf("2:%d/Transparent%s(slave=0x%02x base=%d count=%d%s)",
		m.TransparentFunctionCode, tag, m.SlaveAddress, m.BaseRegister, m.RegisterCount, errTag)
}

// Register aliases the base register for write-holding messages, matching
// the original's "register"/"value" convenience names.
func (m *TransparentMessage) Register() uint16 { return m.BaseRegister }

// Value aliases the sole written value for write-holding messages.
func (m *TransparentMessage) Value() uint16 {
	if len(m.RegisterValues) == 0 {
		return 0
	}
	return m.RegisterValues[0]
}

// Enumerate yields (register, value) pairs suitable for feeding directly
// into RegisterCache.Update, for any message carrying BASE+VALUES.
func (m *TransparentMessage) Enumerate() map[Register]uint16 {
	out := make(map[Register]uint16, len(m.RegisterValues))
	idx := m.BaseRegister
	for _, v := range m.RegisterValues {
		out[Register{Bank: m.registerBank, Index: idx}] = v
		idx++
	}
	return out
}

// ShapeHash scales and sums the identifying fields of a transparent
// message so a request and its eventual response collide. Register
// values and the error flag are deliberately excluded.
func (m *TransparentMessage) ShapeHash() int64 {
	const (
		scaleAddress = 1
		scaleFunc    = scaleAddress * 1000
		scaleCount   = scaleFunc * 100
		scaleBase    = scaleCount * 100
	)
	return int64(m.SlaveAddress)*scaleAddress +
		int64(m.TransparentFunctionCode)*scaleFunc +
		int64(m.RegisterCount)*scaleCount +
		int64(m.BaseRegister)*scaleBase
}

func (m *TransparentMessage) Encode() ([]byte, error) {
	if m.fields.has(FieldBase) && int(m.BaseRegister) > 0xffff {
		return nil, ErrInvalidPDUState
	}
	if m.fields.has(FieldValues) && len(m.RegisterValues) != int(m.RegisterCount) {
		return nil, ErrInvalidPDUState
	}

	outer := NewEncoder(16)
	outer.AddString(m.DataAdapterSerialNumber, AdapterSerialLen)
	padding := m.Padding
	if padding == 0 {
		padding = defaultPadding
	}
	outer.AddUint64(padding)

	crcBuilder := NewEncoder(32)
	crcBuilder.AddUint8(m.SlaveAddress)
	code := m.TransparentFunctionCode
	if m.Error {
		code |= tfcErrorFlag
	}
	crcBuilder.AddUint8(code)
	if m.fields.has(FieldSerial) {
		crcBuilder.AddString(m.InverterSerialNumber, AdapterSerialLen)
	}
	if m.fields.has(FieldBase) {
		crcBuilder.AddUint16(m.BaseRegister)
	}
	if m.fields.has(FieldCount) {
		crcBuilder.AddUint16(m.RegisterCount)
	}
	if m.fields.has(FieldValues) {
		for _, v := range m.RegisterValues {
			crcBuilder.AddUint16(v)
		}
	}
	crc := crcBuilder.CRC()

	outer.Append(crcBuilder.Bytes())
	outer.AddUint16LE(crc)

	body := outer.Bytes()
	header := encodeHeader(0x01, FuncTransparent, len(body))
	return append(header, body...), nil
}

// transparentShape describes, for one transparent_function_code, the field
// layout of its request and response forms.
type transparentShape struct {
	fields        Field
	registerCount uint16 // 0 means "read from the wire", only fixed for write/null
	registerBank  Bank
}

var requestShapes = map[byte]transparentShape{
	TFCReadHolding:  {fields: FieldBase | FieldCount},
	TFCReadInput:    {fields: FieldBase | FieldCount},
	TFCReadBattery:  {fields: FieldBase | FieldCount},
	TFCWriteHolding: {fields: FieldBase | FieldValues, registerCount: 1},
}

var responseShapes = map[byte]transparentShape{
	TFCNull:         {fields: FieldSerial | FieldValues, registerCount: nullResponseSize},
	TFCReadHolding:  {fields: FieldSerial | FieldBase | FieldCount | FieldValues, registerBank: Holding},
	TFCReadInput:    {fields: FieldSerial | FieldBase | FieldCount | FieldValues, registerBank: Input},
	TFCReadBattery:  {fields: FieldSerial | FieldBase | FieldCount | FieldValues, registerBank: Input},
	TFCWriteHolding: {fields: FieldSerial | FieldBase | FieldValues, registerCount: 1, registerBank: Holding},
}

// NewReadHoldingRegistersRequest builds a read request for base..base+count-1
// of the holding-register table on the given slave.
func NewReadHoldingRegistersRequest(slaveAddress byte, base, count uint16) *TransparentMessage {
	return newTransparentRequest(slaveAddress, TFCReadHolding, base, count, nil)
}

// NewReadInputRegistersRequest builds a read request against the input
// register table.
func NewReadInputRegistersRequest(slaveAddress byte, base, count uint16) *TransparentMessage {
	return newTransparentRequest(slaveAddress, TFCReadInput, base, count, nil)
}

// NewReadBatteryInputRegistersRequest builds a read request against the
// extended battery input register table (function 22).
func NewReadBatteryInputRegistersRequest(slaveAddress byte, base, count uint16) *TransparentMessage {
	return newTransparentRequest(slaveAddress, TFCReadBattery, base, count, nil)
}

// NewWriteHoldingRegisterRequest builds a single-register write. The
// protocol only ever writes one register per request.
func NewWriteHoldingRegisterRequest(slaveAddress byte, register, value uint16) *TransparentMessage {
	return newTransparentRequest(slaveAddress, TFCWriteHolding, register, 1, []uint16{value})
}

func newTransparentRequest(slaveAddress, tfc byte, base, count uint16, values []uint16) *TransparentMessage {
	shape := requestShapes[tfc]
	m := &TransparentMessage{
		SlaveAddress:            slaveAddress,
		TransparentFunctionCode: tfc,
		BaseRegister:            base,
		RegisterCount:           count,
		RegisterValues:          values,
		fields:                  shape.fields,
		isRequest:               true,
	}
	if shape.registerCount != 0 {
		m.RegisterCount = shape.registerCount
	}
	return m
}

func decodeTransparent(_ Header, body []byte) (PDU, error) {
	d := NewDecoder(body)
	adapterSerial, err := d.DecodeString(AdapterSerialLen)
	if err != nil {
		return nil, err
	}
	padding, err := d.DecodeUint64()
	if err != nil {
		return nil, err
	}
	slaveAddress, err := d.DecodeUint8()
	if err != nil {
		return nil, err
	}
	rawCode, err := d.DecodeUint8()
	if err != nil {
		return nil, err
	}
	errFlag := rawCode&tfcErrorFlag != 0
	tfc := rawCode & tfcCodeMask

	shape, ok := responseShapes[tfc]
	if !ok {
		return nil, fmt.Errorf("givmodbus: %w: %d", ErrUnknownFunctionCode, tfc)
	}
	// A request carries no inverter serial: after the function code it holds
	// only BASE plus COUNT (or one VALUE) and the CRC word, 6 bytes in all.
	// Every response shape is longer, so a tail of exactly that size is
	// decoded with the request layout.
	isRequest := false
	if reqShape, ok := requestShapes[tfc]; ok && d.Remaining() == 6 {
		shape, isRequest = reqShape, true
	}

	m := &TransparentMessage{
		DataAdapterSerialNumber: adapterSerial,
		Padding:                 padding,
		SlaveAddress:            slaveAddress,
		TransparentFunctionCode: tfc,
		Error:                   errFlag,
		fields:                  shape.fields,
		isRequest:               isRequest,
		registerBank:            shape.registerBank,
	}

	if shape.fields.has(FieldSerial) {
		if m.InverterSerialNumber, err = d.DecodeString(AdapterSerialLen); err != nil {
			return nil, err
		}
	}
	if shape.fields.has(FieldBase) {
		if m.BaseRegister, err = d.DecodeUint16(); err != nil {
			return nil, err
		}
	}
	count := shape.registerCount
	if shape.fields.has(FieldCount) {
		if count, err = d.DecodeUint16(); err != nil {
			return nil, err
		}
	}
	m.RegisterCount = count
	if shape.fields.has(FieldValues) {
		values := make([]uint16, count)
		for i := range values {
			if values[i], err = d.DecodeUint16(); err != nil {
				return nil, err
			}
		}
		m.RegisterValues = values
	}
	// trailing check/crc word, not independently verified against a
	// recomputed CRC here: the framer already validated CRC before the
	// message reached decode.
	if _, err = d.DecodeUint16(); err != nil {
		return nil, err
	}
	return m, nil
}

// IsNull reports whether a decoded message is the unsolicited, all-zero
// keep-alive quirk the device occasionally emits.
func (m *TransparentMessage) IsNull() bool { return m.TransparentFunctionCode == TFCNull }

// IsWriteHoldingRegister reports whether this message is the
// single-register write request/response shape.
func (m *TransparentMessage) IsWriteHoldingRegister() bool {
	return m.TransparentFunctionCode == TFCWriteHolding
}
