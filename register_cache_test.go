package givmodbus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCache_JSONRoundTrip(t *testing.T) {
	c := NewRegisterCache()
	c.Update(map[Register]uint16{HR(17): 42, IR(5): 7})

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var got RegisterCache
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, c, got)
}

func TestRegisterCache_UnmarshalDiscardsUnparseableKeys(t *testing.T) {
	raw := []byte(`{"HR(17)": 42, "not-a-register": 1, "IR(5)": 7}`)

	var got RegisterCache
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Len(t, got, 2)
	v, ok := got.Get(HR(17))
	assert.True(t, ok)
	assert.Equal(t, uint16(42), v)
}

func TestRegisterCache_MissingIsNotZero(t *testing.T) {
	c := NewRegisterCache()
	_, ok := c.Get(HR(1))
	assert.False(t, ok)
}
