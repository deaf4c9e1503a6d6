// Package uibridge decouples the session controller from whatever is
// showing the user a confirmation prompt: a debug window, a terminal UI,
// or nothing at all in headless/dummy runs. Two mechanisms work in
// tandem, matching the network-thread/UI-thread split the confirmation
// rendezvous is built around: a condition variable the controller's own
// Wait blocks on, and a loopback UDP pair the surface's Confirm/Reject
// call writes an empty wake datagram to, observed by a read on the paired
// socket the way a single-threaded I/O reactor would treat it as just
// another readable event rather than a platform-specific cross-thread
// wakeup.
package uibridge

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
)

// Surface is anything that can show the negotiated config to a human and
// report back whether they accepted it.
type Surface interface {
	// Bind gives the surface the Bridge to call Confirm/Reject on once the
	// user responds, so the surface's own event loop (a button handler, a
	// keypress) can signal the waiting controller without the controller
	// importing the surface's UI library.
	Bind(bridge *Bridge)
	// ShowConfig renders the pending config for confirmation.
	ShowConfig(cfg protocol.NetplayConfig)
	// ShowState renders an informational status line (connecting, waiting
	// for peer, ping measured, etc.) while the handshake progresses.
	ShowState(status string)
	// Close releases any resources the surface owns (window, terminal mode).
	Close()
}

// NewSurface builds the headless or tui surface by name; "window" is
// handled by cmd/netplay-adapter directly, since hostwindow's Tk event
// loop must run on the process's main goroutine and importing it here
// would also create an import cycle (hostwindow already imports uibridge).
func NewSurface(name string) (Surface, error) {
	switch name {
	case "", "headless":
		return NewHeadless(), nil
	case "tui":
		return NewTui(), nil
	default:
		return nil, fmt.Errorf("uibridge: unknown UI surface %q", name)
	}
}

// Bridge is the rendezvous point between a Surface's event loop (which
// calls Confirm or Reject from its own goroutine) and the session
// controller (which calls Wait and blocks). uiRecvConn/uiSendConn are the
// loopback UDP pair spec §4.3 names: uiSendConn is written by Confirm and
// Reject; uiRecvConn is read by Wait.
type Bridge struct {
	mu       sync.Mutex
	cond     *sync.Cond
	decided  bool
	accepted bool
	surface  Surface

	uiRecvConn *net.UDPConn
	uiSendConn *net.UDPConn
}

func NewBridge(surface Surface) (*Bridge, error) {
	uiRecvConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, fmt.Errorf("uibridge: bind loopback recv socket: %w", err)
	}
	uiSendConn, err := net.DialUDP("udp", nil, uiRecvConn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		uiRecvConn.Close()
		return nil, fmt.Errorf("uibridge: dial loopback send socket: %w", err)
	}

	b := &Bridge{surface: surface, uiRecvConn: uiRecvConn, uiSendConn: uiSendConn}
	b.cond = sync.NewCond(&b.mu)
	return b, nil
}

// Present shows cfg on the surface and resets the bridge so a previous
// decision (e.g. from a host-reset retry) doesn't leak into this round.
func (b *Bridge) Present(cfg protocol.NetplayConfig) {
	b.mu.Lock()
	b.decided = false
	b.accepted = false
	b.mu.Unlock()

	b.surface.ShowConfig(cfg)
}

func (b *Bridge) ShowState(status string) {
	b.surface.ShowState(status)
}

// Confirm is called by the surface's own event loop when the user accepts.
func (b *Bridge) Confirm() {
	b.mu.Lock()
	b.decided = true
	b.accepted = true
	b.mu.Unlock()
	b.cond.Broadcast()
	b.wake()
}

// Reject is called by the surface's own event loop when the user declines
// or presses Escape.
func (b *Bridge) Reject() {
	b.mu.Lock()
	b.decided = true
	b.accepted = false
	b.mu.Unlock()
	b.cond.Broadcast()
	b.wake()
}

// wake sends the single empty datagram spec §4.3 describes: the UI
// thread's side of the loopback pair, observed by Wait's read on
// uiRecvConn.
func (b *Bridge) wake() {
	if _, err := b.uiSendConn.Write(nil); err != nil {
		applog.Debug("uibridge: failed to write loopback wake datagram", zap.Error(err))
	}
}

// Wait blocks until Confirm/Reject is called or ctx is cancelled,
// returning whether the user accepted. It races the condvar wait against
// a blocking read on the loopback recv socket — the two mechanisms spec
// §4.3 names in tandem — either of which unblocks it since Confirm/Reject
// always drive both.
func (b *Bridge) Wait(ctx context.Context) (bool, error) {
	done := make(chan struct{})
	go func() {
		b.mu.Lock()
		for !b.decided {
			b.cond.Wait()
		}
		b.mu.Unlock()
		close(done)
	}()

	woke := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		if _, _, err := b.uiRecvConn.ReadFromUDP(buf); err != nil {
			return
		}
		close(woke)
	}()

	select {
	case <-done:
		b.mu.Lock()
		accepted := b.accepted
		b.mu.Unlock()
		return accepted, nil
	case <-woke:
		b.mu.Lock()
		accepted := b.accepted
		b.mu.Unlock()
		return accepted, nil
	case <-ctx.Done():
		// Wake the waiting goroutines above so they don't leak; broadcasting
		// and closing the loopback socket unblocks both immediately.
		b.mu.Lock()
		b.decided = true
		b.accepted = false
		b.mu.Unlock()
		b.cond.Broadcast()
		return false, ctx.Err()
	}
}

func (b *Bridge) Close() {
	b.surface.Close()
	b.uiSendConn.Close()
	b.uiRecvConn.Close()
}
