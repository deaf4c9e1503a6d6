package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/randutil"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
)

// relayTokenAlphabet mirrors the charset pion/ice uses for ICE
// ufrag/password generation; reused here for the relay rendezvous token.
const relayTokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewRelayToken generates a short random token identifying this peer to
// the relay server, using pion/randutil the same way pion/ice uses it
// internally to generate per-session ufrag/password pairs.
func NewRelayToken() string {
	gen := randutil.NewMathRandomGenerator()
	return gen.GenerateString(12, relayTokenAlphabet)
}

// DataChannel is the UDP socket a SmartSocket uses once a peer address is
// known, either the peer's direct address or a relay server's.
type DataChannel struct {
	conn   *net.UDPConn
	target atomic.Pointer[net.UDPAddr]

	mu              sync.Mutex
	relayed         bool
	reconnectNeeded chan struct{}
}

// NewDataChannel binds a UDP socket on an ephemeral local port.
func NewDataChannel() (*DataChannel, uint, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, 0, fmt.Errorf("transport: listen data channel: %w", err)
	}

	// Ping/pong and game-input datagrams are small and latency-sensitive;
	// refuse IP-level fragmentation rather than let an oversized datagram
	// silently split and reassemble across hops.
	if pconn := ipv4.NewPacketConn(conn); pconn != nil {
		if err := pconn.SetDontFragment(true); err != nil {
			applog.Debug("transport: could not set DontFragment on data socket", zap.Error(err))
		}
	}

	port := uint(conn.LocalAddr().(*net.UDPAddr).Port)
	return &DataChannel{conn: conn, reconnectNeeded: make(chan struct{}, 1)}, port, nil
}

// SetTarget points outgoing datagrams at addr, used both for the initial
// direct-path attempt and for switching to a relay address after a
// reconnection decision.
func (d *DataChannel) SetTarget(addr *net.UDPAddr, relayed bool) {
	d.target.Store(addr)
	d.mu.Lock()
	d.relayed = relayed
	d.mu.Unlock()
}

func (d *DataChannel) IsRelayed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.relayed
}

// SendDatagram implements pinger.DatagramSender.
func (d *DataChannel) SendDatagram(dg protocol.Datagram) error {
	target := d.target.Load()
	if target == nil {
		return fmt.Errorf("transport: no target set on data channel")
	}
	raw, err := dg.Marshal()
	if err != nil {
		return err
	}
	_, err = d.conn.WriteToUDP(raw, target)
	return err
}

// ReadOne blocks for a single datagram or until timeout elapses, used for
// the UDP rendezvous: the host doesn't know the peer's data-channel address
// until the peer's first inbound packet arrives, so it waits for exactly
// one before starting the normal continuous ReadLoop.
func (d *DataChannel) ReadOne(timeout time.Duration) (protocol.Datagram, *net.UDPAddr, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return protocol.Datagram{}, nil, err
	}
	defer d.conn.SetReadDeadline(time.Time{})

	buf := make([]byte, protocol.DatagramMaxSize)
	n, from, err := d.conn.ReadFromUDP(buf)
	if err != nil {
		return protocol.Datagram{}, nil, err
	}
	dg, err := protocol.UnmarshalDatagram(buf[:n])
	return dg, from, err
}

// ReadLoop blocks reading datagrams, invoking onDatagram for each one that
// decodes cleanly, until the socket is closed.
func (d *DataChannel) ReadLoop(onDatagram func(protocol.Datagram, *net.UDPAddr)) error {
	buf := make([]byte, protocol.DatagramMaxSize)
	for {
		n, from, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		dg, err := protocol.UnmarshalDatagram(buf[:n])
		if err != nil {
			applog.Debug("transport: dropping malformed datagram", zap.Error(err))
			continue
		}
		onDatagram(dg, from)
	}
}

func (d *DataChannel) Close() error {
	return d.conn.Close()
}

// RequestReconnect queues a reconnection decision (e.g. "switch to relay")
// for the owning SmartSocket's reconnect loop, draining the same way
// webrtc.PeerManager drains its buffered reconnectionRequests channel
// instead of reconnecting inline on the caller's goroutine.
func (d *DataChannel) RequestReconnect() {
	select {
	case d.reconnectNeeded <- struct{}{}:
	default:
	}
}

func (d *DataChannel) ReconnectRequests() <-chan struct{} {
	return d.reconnectNeeded
}

// reconnectBackoff is the fixed interval between reconnection attempts,
// matching the teacher's fixed (non-exponential) peerReconnectionInterval.
const reconnectBackoff = 2 * time.Second

// ReconnectBackoff exposes the fixed backoff interval for callers
// (session's SmartSocket owner) scheduling relay-switch retries.
func ReconnectBackoff() time.Duration { return reconnectBackoff }
