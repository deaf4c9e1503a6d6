package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/netplayconfig"
	"netplay-adapter/session/uibridge"
)

func TestResolveHostDataAddr_UsesControlPeerHostWithGivenPort(t *testing.T) {
	server, client := dialedControlPair(t)
	defer server.Close()
	defer client.Close()

	c, err := NewController(&netplayconfig.Config{}, uibridge.NewHeadless())
	assert.NoError(t, err)
	c.control = client

	addr, err := c.resolveHostDataAddr(54321)
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1", addr.IP.String())
	assert.Equal(t, 54321, addr.Port)
}
