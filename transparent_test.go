package givmodbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransparentMessage_ReadHoldingRoundTrip(t *testing.T) {
	req := NewReadHoldingRegistersRequest(0x32, 20, 10)
	wire, err := req.Encode()
	require.NoError(t, err)

	decoded, err := DecodeFrame(wire)
	require.NoError(t, err)

	got, ok := decoded.(*TransparentMessage)
	require.True(t, ok)
	assert.Equal(t, byte(0x32), got.SlaveAddress)
	assert.Equal(t, TFCReadHolding, got.TransparentFunctionCode)
	assert.Equal(t, uint16(20), got.BaseRegister)
	assert.Equal(t, uint16(10), got.RegisterCount)
}

func TestTransparentMessage_WriteHoldingRoundTrip(t *testing.T) {
	req := NewWriteHoldingRegisterRequest(0x32, 96, 1)
	wire, err := req.Encode()
	require.NoError(t, err)

	decoded, err := DecodeFrame(wire)
	require.NoError(t, err)

	got := decoded.(*TransparentMessage)
	assert.Equal(t, uint16(96), got.Register())
	assert.Equal(t, uint16(1), got.Value())
}

func TestTransparentMessage_CRCCorruptionDetected(t *testing.T) {
	req := NewWriteHoldingRegisterRequest(0x32, 96, 1)
	wire, err := req.Encode()
	require.NoError(t, err)

	wire[len(wire)-3] ^= 0xff

	_, err = DecodeFrame(wire)
	assert.ErrorIs(t, err, ErrCRC)
}

func TestShapeHash_RequestMatchesResponse(t *testing.T) {
	req := NewReadHoldingRegistersRequest(0x32, 20, 10)

	resp := &TransparentMessage{
		SlaveAddress:            0x32,
		TransparentFunctionCode: TFCReadHolding,
		BaseRegister:            20,
		RegisterCount:           10,
		RegisterValues:          make([]uint16, 10),
	}

	assert.Equal(t, req.ShapeHash(), resp.ShapeHash())
}

func TestShapeHash_IgnoresValuesAndErrorFlag(t *testing.T) {
	a := &TransparentMessage{SlaveAddress: 0x32, TransparentFunctionCode: TFCWriteHolding, BaseRegister: 96, RegisterCount: 1, RegisterValues: []uint16{1}}
	b := &TransparentMessage{SlaveAddress: 0x32, TransparentFunctionCode: TFCWriteHolding, BaseRegister: 96, RegisterCount: 1, RegisterValues: []uint16{99}, Error: true}

	assert.Equal(t, a.ShapeHash(), b.ShapeHash())
}

func TestShapeHash_DiffersOnBaseRegister(t *testing.T) {
	a := NewReadHoldingRegistersRequest(0x32, 0, 60)
	b := NewReadHoldingRegistersRequest(0x32, 60, 60)
	assert.NotEqual(t, a.ShapeHash(), b.ShapeHash())
}

func TestTransparentMessage_Enumerate(t *testing.T) {
	resp := &TransparentMessage{
		BaseRegister:   96,
		RegisterValues: []uint16{1, 2, 3},
		registerBank:   Holding,
	}
	got := resp.Enumerate()
	assert.Equal(t, uint16(1), got[HR(96)])
	assert.Equal(t, uint16(2), got[HR(97)])
	assert.Equal(t, uint16(3), got[HR(98)])
}

func TestHeartbeat_ExpectedResponse(t *testing.T) {
	req := HeartbeatRequest("GE1234567890", 9)
	wire, err := req.Encode()
	require.NoError(t, err)

	decoded, err := DecodeFrame(wire)
	require.NoError(t, err)

	hb := decoded.(*HeartbeatMessage)
	reply := hb.ExpectedResponse()
	assert.True(t, reply.IsResponse())
	assert.Equal(t, "GE1234567890"[:10], reply.DataAdapterSerialNumber)
	assert.Equal(t, uint8(9), reply.DataAdapterType)
}
