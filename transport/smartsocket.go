package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
)

// SmartSocket bundles the control and data channels for one peer
// connection and owns the decision of whether the data channel talks
// directly to the peer or through a relay server, generalizing
// webrtc.Peer's single-object ownership of both the signalling and media
// paths onto plain sockets.
type SmartSocket struct {
	Control *ControlChannel
	Data    *DataChannel

	relayAddr *net.UDPAddr
	peerAddr  *net.UDPAddr
}

// NewSmartSocket wires a control channel already established by the
// handshake to a freshly bound data channel, defaulting to a direct path
// at peerAddr and remembering relayAddr for fallback.
func NewSmartSocket(control *ControlChannel, data *DataChannel, peerAddr, relayAddr *net.UDPAddr) *SmartSocket {
	s := &SmartSocket{Control: control, Data: data, peerAddr: peerAddr, relayAddr: relayAddr}
	data.SetTarget(peerAddr, false)
	return s
}

// RunReconnectLoop drains the data channel's reconnect-request queue and
// switches to the relay address on a fixed backoff, the same
// channel-drained-by-a-dedicated-goroutine shape as
// webrtc.PeerManager.handleReconnectionRequests.
func (s *SmartSocket) RunReconnectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Data.ReconnectRequests():
			s.switchToRelay()
			select {
			case <-ctx.Done():
				return
			case <-time.After(ReconnectBackoff()):
			}
		}
	}
}

// NotePeerAddr records addr as the known-good direct peer address. The
// host side of the handshake doesn't know the client's data-channel
// address at construction time (only the client is told the host's port);
// awaitRendezvous calls this once that address is learned from the first
// inbound datagram, so Repunch has an original address to return to.
func (s *SmartSocket) NotePeerAddr(addr *net.UDPAddr) {
	s.peerAddr = addr
}

// Repunch re-targets the data channel at its original direct peer address
// — undoing a previous relay switch, or simply re-asserting the known-good
// address if it never changed — and fires one probe at it. Used by
// session's reconnect manager to give the direct path a chance to recover
// before escalating to RequestReconnect.
func (s *SmartSocket) Repunch() error {
	if s.peerAddr == nil {
		return fmt.Errorf("transport: no direct peer address to repunch")
	}
	s.Data.SetTarget(s.peerAddr, false)
	return s.Data.SendDatagram(protocol.Datagram{Type: protocol.DatagramPing})
}

func (s *SmartSocket) switchToRelay() {
	if s.relayAddr == nil {
		applog.Warn("transport: reconnect requested but no relay address configured")
		return
	}
	if s.Data.IsRelayed() {
		return
	}
	applog.Info("transport: switching data channel to relay", zap.String("relay", s.relayAddr.String()))
	s.Data.SetTarget(s.relayAddr, true)
}

func (s *SmartSocket) Close() error {
	var err error
	if cerr := s.Control.Close(); cerr != nil {
		err = cerr
	}
	if derr := s.Data.Close(); derr != nil && err == nil {
		err = derr
	}
	return err
}

// ResolveUDPAddr is a small convenience wrapper kept at package scope so
// session code building a SmartSocket doesn't need to import net directly
// just to parse an address string.
func ResolveUDPAddr(addr string) (*net.UDPAddr, error) {
	resolved, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", addr, err)
	}
	return resolved, nil
}
