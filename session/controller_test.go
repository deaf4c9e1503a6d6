package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/netplayconfig"
	"netplay-adapter/protocol"
	"netplay-adapter/session/uibridge"
)

func newTestController(t *testing.T, cfg *netplayconfig.Config) *Controller {
	t.Helper()
	c, err := NewController(cfg, uibridge.NewHeadless())
	assert.NoError(t, err)
	return c
}

func TestNewController_DerivesModeFromConfig(t *testing.T) {
	c := newTestController(t, &netplayconfig.Config{IsHost: true})
	assert.True(t, c.localMode.IsHost())

	c = newTestController(t, &netplayconfig.Config{IsSpectator: true})
	assert.True(t, c.localMode.IsSpectate())

	c = newTestController(t, &netplayconfig.Config{Attach: true})
	assert.True(t, c.localMode.HasFlag(protocol.FlagAttach))
	assert.True(t, c.localMode.IsGuest())

	c = newTestController(t, &netplayconfig.Config{Dummy: true})
	assert.True(t, c.localMode.HasFlag(protocol.FlagDummy))
}

func TestController_StopIsIdempotent(t *testing.T) {
	c := newTestController(t, &netplayconfig.Config{})

	c.Stop(nil)
	select {
	case <-c.Done():
	default:
		t.Fatal("Stop should close Done immediately")
	}

	assert.NotPanics(t, func() { c.Stop(nil) })
}

func TestController_StopRecordsCause(t *testing.T) {
	c := newTestController(t, &netplayconfig.Config{})
	cause := newSessionError(ErrorCodeTimedOut, "never connected", nil)

	c.Stop(cause)
	assert.Same(t, cause, c.Err())
}
