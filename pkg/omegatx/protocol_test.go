package omegatx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCommand(t *testing.T) {
	assert.Equal(t, []byte("*SRTC\r"), EncodeCommand("SRTC"))
	assert.Equal(t, []byte("*SRDC2\r"), EncodeCommand("SRDC2"))
}

func TestCommands_TableOrder(t *testing.T) {
	cmds := Commands()
	require.Len(t, cmds, 8)

	codes := make([]string, len(cmds))
	for i, c := range cmds {
		codes[i] = c.Code
		assert.NoError(t, validateCommand(c))
	}
	assert.Equal(t, []string{"SRTC", "SRTF", "SRHb", "SRHi", "SRHm", "SRH2", "SRDF2", "SRDC2"}, codes)
	assert.Equal(t, LabelTemperatureC, cmds[0].Label)
	assert.Equal(t, LabelDewpointC, cmds[7].Label)
}

func TestCommands_ReturnsCopy(t *testing.T) {
	cmds := Commands()
	cmds[0].Label = "mutated"

	assert.Equal(t, LabelTemperatureC, Commands()[0].Label)
}

func TestParseResponse_Valid(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"23.5\r", 23.5},
		{"23.5\r\n", 23.5},
		{" 1013.2 \r", 1013.2},
		{"-4.0\r", -4.0},
		{"0.0\r", 0},
		{"45", 45},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := ParseResponse([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestParseResponse_DeviceError(t *testing.T) {
	_, err := ParseResponse([]byte("ERROR!\r"))
	assert.ErrorIs(t, err, ErrDeviceError)
}

func TestParseResponse_Malformed(t *testing.T) {
	for _, raw := range []string{"", "\r", "abc\r", "12.3.4\r", "ERROR!", "ERROR!\r\n"} {
		_, err := ParseResponse([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedResponse, "response %q", raw)
	}
}
