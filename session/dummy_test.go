package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/protocol"
)

func TestDummyConfig_BiasesDelayOneFrameAboveNormal(t *testing.T) {
	const worst = 40.0
	cfg := DummyConfig("alice", "bob", worst, 2, "session-1")

	assert.Equal(t, computeDelay(worst)+1, cfg.Delay)
	assert.Equal(t, uint8(4), cfg.Rollback)
	assert.Equal(t, uint8(0), cfg.RollbackDelay)
	assert.Equal(t, uint8(1), cfg.HostPlayer)
	assert.Equal(t, uint8(2), cfg.WinCount)
	assert.Equal(t, "session-1", cfg.SessionID)
	assert.Equal(t, [2]string{"alice", "bob"}, cfg.Names)
	assert.True(t, cfg.Mode.HasFlag(protocol.FlagDummy))
	assert.True(t, cfg.Mode.IsHost())
}

func TestConfirmConfig_DummyModeSkipsUiRendezvous(t *testing.T) {
	c := &Controller{localMode: protocol.Mode{Kind: protocol.ClientKindHost, Flags: protocol.FlagDummy}}

	confirmed, err := c.confirmConfig(nil, protocol.NetplayConfig{})
	assert.NoError(t, err)
	assert.True(t, confirmed)
}
