package givmodbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLUT_Get(t *testing.T) {
	cache := NewRegisterCache()
	cache.Update(map[Register]uint16{HR(0): 0x2013})

	v, ok, err := InverterLUT.Get(cache, "device_type_code")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2013", v)
}

func TestRegisterLUT_Get_MissingRegisterIsAbsentNotError(t *testing.T) {
	cache := NewRegisterCache()
	v, ok, err := InverterLUT.Get(cache, "enable_charge")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestRegisterLUT_Get_UnknownNameErrors(t *testing.T) {
	cache := NewRegisterCache()
	_, ok, err := InverterLUT.Get(cache, "not_a_real_attribute")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRegisterLUT_ResolveWrite_OutOfRange(t *testing.T) {
	_, _, err := InverterLUT.ResolveWrite("charge_target_soc", 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "0 out of range for charge_target_soc")
}

func TestRegisterLUT_ResolveWrite_Valid(t *testing.T) {
	reg, raw, err := InverterLUT.ResolveWrite("charge_target_soc", 45)
	require.NoError(t, err)
	assert.Equal(t, HR(116), reg)
	assert.Equal(t, uint16(45), raw)
}

func TestRegisterLUT_ResolveWrite_MinutePartOver59(t *testing.T) {
	_, _, err := InverterLUT.ResolveWrite("discharge_slot_1_start", 165) // 01:65
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestRegisterLUT_ResolveWrite_HHMMWithinRange(t *testing.T) {
	_, raw, err := InverterLUT.ResolveWrite("discharge_slot_1_start", 102) // 01:02
	require.NoError(t, err)
	assert.Equal(t, uint16(102), raw)
}

func TestRegisterLUT_Get_EnumPostConv(t *testing.T) {
	cache := NewRegisterCache()
	cache.Update(map[Register]uint16{HR(31): 2})
	v, ok, err := InverterLUT.Get(cache, "battery_pause_mode")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pause_discharge", v)
}

func TestRegisterLUT_Get_BitfieldConv(t *testing.T) {
	cache := NewRegisterCache()
	cache.Update(map[Register]uint16{IR(30): 0b1011})
	v, ok, err := InverterLUT.Get(cache, "battery_status_code")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint16(0b1011), v)
}

func TestRegisterLUT_Get_Uint32AndFormatConv(t *testing.T) {
	cache := NewRegisterCache()
	cache.Update(map[Register]uint16{IR(45): 1, IR(46): 500})
	v, ok, err := InverterLUT.Get(cache, "e_inverter_out_total")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "66036 Wh", v)
}

func TestRegisterLUT_Get_DUint8Conv(t *testing.T) {
	cache := NewRegisterCache()
	cache.Update(map[Register]uint16{HR(1): 0x0A14})
	hi, ok, err := InverterLUT.Get(cache, "adapter_type_high")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(0x0A), hi)

	lo, ok, err := InverterLUT.Get(cache, "adapter_type_low")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(0x14), lo)
}
