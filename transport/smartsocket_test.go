package transport_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/protocol"
	"netplay-adapter/transport"
)

func mustResolve(t *testing.T, port uint) *net.UDPAddr {
	addr, err := transport.ResolveUDPAddr("127.0.0.1:" + strconv.FormatUint(uint64(port), 10))
	assert.NoError(t, err)
	return addr
}

// TestSmartSocket_RunReconnectLoop_SwitchesToRelayOnRequest exercises the
// real disconnect-triggered failover path: RequestReconnect (not the
// --force-relay startup flag) is what flips the data channel onto the
// relay address.
func TestSmartSocket_RunReconnectLoop_SwitchesToRelayOnRequest(t *testing.T) {
	data, _, err := transport.NewDataChannel()
	assert.NoError(t, err)
	defer data.Close()

	relay, relayPort, err := transport.NewDataChannel()
	assert.NoError(t, err)
	defer relay.Close()

	control, _, err := transport.ListenControl(context.Background(), "127.0.0.1:0")
	assert.NoError(t, err)
	defer control.Close()

	relayAddr := mustResolve(t, relayPort)
	socket := transport.NewSmartSocket(control, data, nil, relayAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go socket.RunReconnectLoop(ctx)

	assert.False(t, data.IsRelayed())
	data.RequestReconnect()

	assert.Eventually(t, func() bool {
		return data.IsRelayed()
	}, time.Second, 10*time.Millisecond, "data channel never switched to relay after RequestReconnect")
}

// TestSmartSocket_Repunch_RestoresDirectAddress confirms NotePeerAddr backfills
// the host-role peerAddr (nil at construction) and Repunch re-targets the
// data channel there, undoing a prior relay switch.
func TestSmartSocket_Repunch_RestoresDirectAddress(t *testing.T) {
	data, _, err := transport.NewDataChannel()
	assert.NoError(t, err)
	defer data.Close()

	peer, peerPort, err := transport.NewDataChannel()
	assert.NoError(t, err)
	defer peer.Close()

	relay, relayPort, err := transport.NewDataChannel()
	assert.NoError(t, err)
	defer relay.Close()

	control, _, err := transport.ListenControl(context.Background(), "127.0.0.1:0")
	assert.NoError(t, err)
	defer control.Close()

	relayAddr := mustResolve(t, relayPort)
	socket := transport.NewSmartSocket(control, data, nil, relayAddr)

	// Before NotePeerAddr, Repunch has no known direct address.
	assert.Error(t, socket.Repunch())

	peerAddr := mustResolve(t, peerPort)
	socket.NotePeerAddr(peerAddr)
	data.SetTarget(relayAddr, true)
	assert.True(t, data.IsRelayed())

	assert.NoError(t, socket.Repunch())
	assert.False(t, data.IsRelayed())

	received := make(chan protocol.Datagram, 1)
	go func() {
		_ = peer.ReadLoop(func(d protocol.Datagram, _ *net.UDPAddr) {
			received <- d
		})
	}()

	select {
	case d := <-received:
		assert.Equal(t, protocol.DatagramPing, d.Type)
	case <-time.After(time.Second):
		t.Fatal("repunch never sent a probe to the original peer address")
	}
}
