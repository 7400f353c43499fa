package givmodbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerWrites(t *testing.T, msgs []*TransparentMessage) map[uint16]uint16 {
	t.Helper()
	out := make(map[uint16]uint16, len(msgs))
	for _, m := range msgs {
		require.True(t, m.IsWriteHoldingRegister())
		out[m.Register()] = m.Value()
	}
	return out
}

func TestCommands_SetChargeTarget_45(t *testing.T) {
	c := NewCommands(0x32, nil)
	msgs, err := c.SetChargeTarget(45)
	require.NoError(t, err)

	got := registerWrites(t, msgs)
	assert.Equal(t, map[uint16]uint16{96: 1, 20: 1, 116: 45}, got)
}

func TestCommands_SetChargeTarget_100(t *testing.T) {
	c := NewCommands(0x32, nil)
	msgs, err := c.SetChargeTarget(100)
	require.NoError(t, err)

	got := registerWrites(t, msgs)
	assert.Equal(t, map[uint16]uint16{96: 1, 20: 0, 116: 100}, got)
}

func TestCommands_SetChargeTarget_0_OutOfRange(t *testing.T) {
	c := NewCommands(0x32, nil)
	_, err := c.SetChargeTarget(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 out of range for charge_target_soc")
}

func TestCommands_SetModeStorage(t *testing.T) {
	c := NewCommands(0x32, nil)
	slot1, err := NewTimeSlot(102, 304)
	require.NoError(t, err)

	msgs, err := c.SetModeStorage(&slot1, nil, false)
	require.NoError(t, err)

	got := registerWrites(t, msgs)
	assert.Equal(t, map[uint16]uint16{
		27: 1,
		110: 100,
		59: 1,
		56: 102,
		57: 304,
		44: 0,
		45: 0,
	}, got)
}

func TestCommands_SetModeStorage_DischargeForExport(t *testing.T) {
	c := NewCommands(0x32, nil)
	msgs, err := c.SetModeStorage(nil, nil, true)
	require.NoError(t, err)

	got := registerWrites(t, msgs)
	assert.Equal(t, uint16(0), got[27]) // discharge_mode: max power, not match-demand
}

func TestCommands_NewlyAddedWrites(t *testing.T) {
	c := NewCommands(0x32, nil)

	m, err := c.SetBatteryPauseMode(2)
	require.NoError(t, err)
	assert.Equal(t, uint16(31), m.Register())
	assert.Equal(t, uint16(2), m.Value())

	m, err = c.SetInverterReboot()
	require.NoError(t, err)
	assert.Equal(t, uint16(163), m.Register())
	assert.Equal(t, uint16(100), m.Value())

	slotMsgs, err := c.SetChargeSlot1(nil)
	require.NoError(t, err)
	got := registerWrites(t, slotMsgs)
	assert.Equal(t, map[uint16]uint16{10: 0, 11: 0}, got)
}

func TestCommands_RefreshPlantData_Partial(t *testing.T) {
	c := NewCommands(0x32, nil)
	reqs := c.RefreshPlantData(false, 2, 5)
	require.Len(t, reqs, 4) // 2 input reads + 2 battery reads

	assert.Equal(t, TFCReadInput, reqs[0].TransparentFunctionCode)
	assert.Equal(t, uint16(0), reqs[0].BaseRegister)
	assert.Equal(t, uint16(180), reqs[1].BaseRegister)
}

func TestCommands_RefreshPlantData_Complete(t *testing.T) {
	c := NewCommands(0x32, nil)
	reqs := c.RefreshPlantData(true, 0, 5)
	// 2 initial input reads + 3 holding reads + 1 more input read + 5 battery reads
	require.Len(t, reqs, 2+3+1+5)
}
