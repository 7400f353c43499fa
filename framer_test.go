package givmodbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamFramer_SingleFrame(t *testing.T) {
	req := NewReadHoldingRegistersRequest(0x32, 0, 60)
	wire, err := req.Encode()
	require.NoError(t, err)

	f := NewStreamFramer()
	f.Feed(wire)

	frame, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wire, frame)

	_, ok, _ = f.Next()
	assert.False(t, ok)
}

func TestStreamFramer_Fragmented(t *testing.T) {
	req := NewReadHoldingRegistersRequest(0x32, 0, 60)
	wire, err := req.Encode()
	require.NoError(t, err)

	f := NewStreamFramer()
	for i := 0; i < len(wire); i++ {
		f.Feed(wire[i : i+1])
		frame, ok, _ := f.Next()
		if i < len(wire)-1 {
			assert.False(t, ok)
		} else {
			require.True(t, ok)
			assert.Equal(t, wire, frame)
		}
	}
}

func TestStreamFramer_ResyncsPastGarbage(t *testing.T) {
	req := NewReadHoldingRegistersRequest(0x32, 0, 60)
	wire, err := req.Encode()
	require.NoError(t, err)

	garbage := []byte{0x00, 0x11, 0x22, 0x59, 0x33}
	f := NewStreamFramer()
	f.Feed(garbage)
	f.Feed(wire)

	frame, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wire, frame)
}

func TestStreamFramer_TwoFramesBackToBack(t *testing.T) {
	a, _ := NewReadHoldingRegistersRequest(0x32, 0, 60).Encode()
	b, _ := NewReadInputRegistersRequest(0x32, 0, 60).Encode()

	f := NewStreamFramer()
	f.Feed(append(append([]byte{}, a...), b...))

	got1, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, got1)

	got2, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b, got2)
}
