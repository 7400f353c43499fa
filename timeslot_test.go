package givmodbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSlot_Contains_Normal(t *testing.T) {
	slot, err := NewTimeSlot(800, 1600)
	require.NoError(t, err)

	assert.True(t, slot.Contains(TimeOfDay{Hour: 9, Minute: 0}))
	assert.True(t, slot.Contains(TimeOfDay{Hour: 8, Minute: 0}))
	assert.False(t, slot.Contains(TimeOfDay{Hour: 16, Minute: 0}))
	assert.False(t, slot.Contains(TimeOfDay{Hour: 7, Minute: 59}))
}

func TestTimeSlot_Contains_Wraparound(t *testing.T) {
	slot, err := NewTimeSlot(2330, 530)
	require.NoError(t, err)

	assert.True(t, slot.Contains(TimeOfDay{Hour: 0, Minute: 0}))
	assert.True(t, slot.Contains(TimeOfDay{Hour: 23, Minute: 30}))
	assert.False(t, slot.Contains(TimeOfDay{Hour: 23, Minute: 29}))
	assert.False(t, slot.Contains(TimeOfDay{Hour: 5, Minute: 30}))
	assert.True(t, slot.Contains(TimeOfDay{Hour: 5, Minute: 29}))
}

func TestParseHHMM_String(t *testing.T) {
	tod, err := ParseHHMM("0102")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 1, Minute: 2}, tod)
}

func TestParseHHMM_InvalidMinute(t *testing.T) {
	_, err := ParseHHMM(199) // 01:99
	assert.Error(t, err)
}
