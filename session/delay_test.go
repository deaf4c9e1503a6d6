package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDelay(t *testing.T) {
	cases := []struct {
		name      string
		latencyMs float64
		want      uint8
	}{
		{"zero latency needs zero frames", 0, 0},
		{"half a frame rounds up to one", 8, 1},
		{"exactly one frame interval", frameIntervalMs, 1},
		{"just over two frame intervals rounds up to three", frameIntervalMs*2 + 0.01, 3},
		{"negative latency clamps to zero", -5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, computeDelay(tc.latencyMs))
		})
	}
}

func TestCheckDelay(t *testing.T) {
	assert.NoError(t, checkDelay(3, 0))
	assert.NoError(t, checkDelay(3, 5))
	assert.NoError(t, checkDelay(5, 5))

	err := checkDelay(6, 5)
	assert.Error(t, err)
	se, ok := err.(*SessionError)
	assert.True(t, ok)
	assert.Equal(t, ErrorCodeDelayExceedsLimit, se.Code)
}
