package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netplay-adapter/netplayconfig"
	"netplay-adapter/protocol"
	"netplay-adapter/session/uibridge"
	"netplay-adapter/spectator"
)

func TestRemoteAddrMessage_NilControlReturnsZeroValue(t *testing.T) {
	c, err := NewController(&netplayconfig.Config{}, uibridge.NewHeadless())
	require.NoError(t, err)
	assert.Equal(t, protocol.IpAddrPort{}, c.remoteAddrMessage())
}

func TestRemoteAddrMessage_ReflectsControlPeerAddress(t *testing.T) {
	server, client := dialedControlPair(t)
	defer server.Close()
	defer client.Close()

	c, err := NewController(&netplayconfig.Config{}, uibridge.NewHeadless())
	require.NoError(t, err)
	c.control = client

	addr := c.remoteAddrMessage()
	assert.Equal(t, "127.0.0.1", addr.Addr)
	assert.NotZero(t, addr.Port)
}

func TestDrainGameMessages_ForwardsToControlAndSpectators(t *testing.T) {
	server, client := dialedControlPair(t)
	defer server.Close()
	defer client.Close()

	c, err := NewController(&netplayconfig.Config{}, uibridge.NewHeadless())
	require.NoError(t, err)
	c.control = server
	c.spect = spectator.NewHub(4)

	sent := &drainTestSender{}
	assert.NoError(t, c.spect.Join("spectator-1", sent))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	fromGame := make(chan protocol.Message, 1)
	go c.drainGameMessages(ctx, fromGame)

	msg := protocol.PlayerInputs{Frame: 7, Data: []byte{1, 2, 3}}
	fromGame <- msg

	received, err := client.Receive()
	assert.NoError(t, err)
	assert.Equal(t, msg, received)

	assert.Eventually(t, func() bool {
		return len(sent.messages()) == 1
	}, time.Second, 5*time.Millisecond)
}

type drainTestSender struct {
	mu  sync.Mutex
	got []protocol.Message
}

func (s *drainTestSender) Send(msg protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, msg)
	return nil
}

func (s *drainTestSender) messages() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Message(nil), s.got...)
}
