package session

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/netplayconfig"
	"netplay-adapter/pinger"
	"netplay-adapter/protocol"
	"netplay-adapter/session/uibridge"
	"netplay-adapter/transport"
)

// setReconnectTimings overrides the package-level reconnect timing vars for
// the duration of a test; callers must restore the originals via defer.
func setReconnectTimings(interval, silence, stop time.Duration) {
	dataReconnectInterval = interval
	reconnectSilenceThreshold = silence
	reconnectStopDelay = stop
}

// newReconnectTestController wires a Controller's socket/pinger fields
// directly (bypassing the full handshake) against a live loopback data
// channel pair, the minimum needed to exercise runReconnectManager.
func newReconnectTestController(t *testing.T) (*Controller, *transport.DataChannel) {
	t.Helper()

	server, client := dialedControlPair(t)
	t.Cleanup(func() { server.Close(); client.Close() })

	data, _, err := transport.NewDataChannel()
	assert.NoError(t, err)
	t.Cleanup(func() { data.Close() })

	peer, peerPort, err := transport.NewDataChannel()
	assert.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	relay, relayPort, err := transport.NewDataChannel()
	assert.NoError(t, err)
	t.Cleanup(func() { relay.Close() })

	peerAddr, err := transport.ResolveUDPAddr("127.0.0.1:" + strconv.FormatUint(uint64(peerPort), 10))
	assert.NoError(t, err)
	relayAddr, err := transport.ResolveUDPAddr("127.0.0.1:" + strconv.FormatUint(uint64(relayPort), 10))
	assert.NoError(t, err)

	c, err := NewController(&netplayconfig.Config{}, uibridge.NewHeadless())
	assert.NoError(t, err)
	c.control = client
	c.socket = transport.NewSmartSocket(client, data, peerAddr, relayAddr)
	c.pingr = pinger.NewPinger(data, time.Millisecond, time.Millisecond)
	c.gameStarted.Store(true)

	return c, peer
}

// TestRunReconnectManager_EscalatesToRelayAfterSustainedSilence confirms a
// data channel that stays silent past reconnectStopDelay gets escalated to
// SmartSocket's relay failover, rather than repunching forever.
func TestRunReconnectManager_EscalatesToRelayAfterSustainedSilence(t *testing.T) {
	c, peer := newReconnectTestController(t)
	defer peer.Close()

	origInterval, origSilence, origStop := dataReconnectInterval, reconnectSilenceThreshold, reconnectStopDelay
	setReconnectTimings(5*time.Millisecond, 10*time.Millisecond, 40*time.Millisecond)
	defer setReconnectTimings(origInterval, origSilence, origStop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.runReconnectManager(ctx)

	assert.Eventually(t, func() bool {
		select {
		case <-c.socket.Data.ReconnectRequests():
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "runReconnectManager never escalated to RequestReconnect on sustained silence")
}

// TestRunReconnectManager_RepunchesPeerWhileSilent confirms the manager
// sends a probe at the original direct address while the channel is quiet,
// before any stopTimer escalation.
func TestRunReconnectManager_RepunchesPeerWhileSilent(t *testing.T) {
	c, peer := newReconnectTestController(t)

	origInterval, origSilence, origStop := dataReconnectInterval, reconnectSilenceThreshold, reconnectStopDelay
	setReconnectTimings(5*time.Millisecond, 5*time.Millisecond, time.Hour)
	defer setReconnectTimings(origInterval, origSilence, origStop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.runReconnectManager(ctx)

	received := make(chan struct{}, 1)
	go func() {
		_ = peer.ReadLoop(func(_ protocol.Datagram, _ *net.UDPAddr) {
			select {
			case received <- struct{}{}:
			default:
			}
		})
	}()

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("runReconnectManager never repunched the original peer address while silent")
	}
}
