// Package session owns the handshake state machine described in the
// protocol package's wire types: version and identity exchange, ping
// measurement, delay admission, user confirmation, and the final IPC
// handoff to the attached game process. It generalizes the teacher's
// webrtc.Peer lifecycle (connect, negotiate, run, teardown) from a WebRTC
// agent onto a plain TCP+UDP handshake.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/build"
	"netplay-adapter/diagnostics"
	"netplay-adapter/gamehost"
	"netplay-adapter/ipc"
	"netplay-adapter/netplayconfig"
	"netplay-adapter/pinger"
	"netplay-adapter/protocol"
	"netplay-adapter/session/uibridge"
	"netplay-adapter/spectator"
	"netplay-adapter/transport"
)

const (
	pendingTimeout    = 15 * time.Second
	pingInterval      = 1000 * time.Millisecond / 60
	pingCount         = 10
	startTimerDelay   = 1 * time.Second
	dialRetryInterval = 500 * time.Millisecond
)

// dataReconnectInterval, reconnectSilenceThreshold and reconnectStopDelay
// are vars rather than consts so tests can shrink them to exercise
// runReconnectManager's timing-dependent behavior without a multi-second
// sleep; setReconnectTimings (in datapath_test.go) is the only thing that
// ever changes them outside this declaration.
var (
	// dataReconnectInterval is how often runReconnectManager re-punches a
	// quiet data channel toward its original direct peer address, mirroring
	// the teacher's fixed (non-exponential) peerReconnectionInterval shape
	// but at the tighter cadence a live match needs.
	dataReconnectInterval = 1 * time.Second
	// reconnectSilenceThreshold is how long the data channel can go without
	// a Pong before the manager starts treating it as disconnected.
	reconnectSilenceThreshold = 3 * time.Second
	// reconnectStopDelay bounds how long repunching continues before the
	// manager gives up on the direct path and asks SmartSocket to fail over
	// to the relay — the stopTimer gating spec §7 names for Disconnected
	// recovery during Running.
	reconnectStopDelay = 10 * time.Second
)

// Controller drives one session to completion: Idle through Running (or
// Failed), owning every socket, timer and sub-component the handshake
// touches. Sub-components (pinger, timer, uibridge) hold no back-reference
// to the Controller; they post results the Controller reads, rather than
// calling back into it.
type Controller struct {
	cfg       *netplayconfig.Config
	localMode protocol.Mode
	localName string

	bridge *uibridge.Bridge
	spect  *spectator.Hub

	stateMu sync.Mutex
	st      state

	control  *transport.ControlChannel
	listener *transport.ControlListener
	socket   *transport.SmartSocket
	pingr    *pinger.Pinger
	ipcChan  *ipc.Channel
	process  *gamehost.Process

	remoteName string
	localStats protocol.PingStats

	netplayConfig protocol.NetplayConfig

	gameStarted atomic.Bool
	cancelRun   context.CancelFunc

	diag *diagnostics.Sink

	stopOnce sync.Once
	lastErr  *SessionError
	done     chan struct{}
}

// SetDiagnostics wires a diagnostics sink built from --diagnostics-addr so
// the datapath dispatch loop can mirror decoded datagrams to it, and so
// warn-and-above log entries ride the same loopback UDP socket. Call before
// Start; a nil sink (the default, diagnostics disabled) is a no-op.
func (c *Controller) SetDiagnostics(sink *diagnostics.Sink) {
	c.diag = sink
	if sink != nil {
		applog.SetRemoteLogSender(sink)
	}
}

// NewController builds a Controller for either a launch-mode or an
// attach-mode session; cfg.Attach sets FlagAttach on localMode, which
// handoffToGame later reads to choose between publishLaunch and
// publishAttach once the handshake completes.
func NewController(cfg *netplayconfig.Config, surface uibridge.Surface) (*Controller, error) {
	kind := protocol.ClientKindGuest
	if cfg.IsHost {
		kind = protocol.ClientKindHost
	}
	if cfg.IsSpectator {
		kind = protocol.ClientKindSpectator
	}

	mode := protocol.Mode{Kind: kind}
	if cfg.Attach {
		mode = mode.WithFlag(protocol.FlagAttach)
	}
	if cfg.Dummy {
		mode = mode.WithFlag(protocol.FlagDummy)
	}

	bridge, err := uibridge.NewBridge(surface)
	if err != nil {
		return nil, fmt.Errorf("session: could not build UI confirmation bridge: %w", err)
	}
	surface.Bind(bridge)

	return &Controller{
		cfg:       cfg,
		localMode: mode,
		localName: cfg.LocalName,
		bridge:    bridge,
		spect:     spectator.NewHub(32),
		done:      make(chan struct{}),
	}, nil
}

func (c *Controller) setState(s state) {
	c.stateMu.Lock()
	c.st = s
	c.stateMu.Unlock()
	c.bridge.ShowState(s.String())
	applog.Debug("Session state transition", zap.String("state", s.String()))
}

func (c *Controller) State() state {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.st
}

// Result is the terminal NetplayConfig handed to IPC, returned to callers
// (tests, cmd/netplay-adapter) that need to inspect what was negotiated.
func (c *Controller) Result() protocol.NetplayConfig {
	return c.netplayConfig
}

// Err returns the session's terminal error, or nil on clean completion.
func (c *Controller) Err() *SessionError {
	return c.lastErr
}

// Start runs the handshake to completion (or failure) and blocks until the
// session reaches Running or Failed. Unlike an earlier draft, ctx is not
// unconditionally cancelled on return: a successful handshake hands the
// same ctx to long-lived goroutines (the data channel read loop, the
// relay-reconnect loop, runReconnectManager) that must keep running through
// Running — only a failed handshake or a later Stop() tears it down.
func (c *Controller) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelRun = cancel

	var err error
	switch {
	case c.localMode.IsSpectate():
		err = c.runGuest(ctx, true)
	case c.localMode.IsHost():
		err = c.runHost(ctx)
	default:
		err = c.runGuest(ctx, false)
	}

	if err != nil {
		cancel()
		if se, ok := err.(*SessionError); ok {
			c.lastErr = se
		} else {
			c.lastErr = newSessionError(ErrorCodeTransportFailure, "session failed", err)
		}
		c.setState(stateFailed)
		return c.lastErr
	}

	c.setState(stateReady)
	return nil
}

// Stop tears the session down from any thread, closing every owned socket
// in a fixed order and releasing the UI bridge. Safe to call more than
// once; only the first call's error (if any) is retained.
func (c *Controller) Stop(cause *SessionError) {
	c.stopOnce.Do(func() {
		if c.cancelRun != nil {
			c.cancelRun()
		}
		if cause != nil {
			c.lastErr = cause
		}

		var errs error
		if c.listener != nil {
			errs = multierr.Append(errs, c.listener.Close())
		}
		if c.socket != nil {
			errs = multierr.Append(errs, c.socket.Close())
		} else if c.control != nil {
			errs = multierr.Append(errs, c.control.Close())
		}
		if c.ipcChan != nil {
			errs = multierr.Append(errs, c.ipcChan.Close())
		}
		c.bridge.Close()

		if errs != nil {
			applog.Warn("Session teardown encountered errors", zap.Error(errs))
		}
		close(c.done)
	})
}

// Done reports when Stop has run.
func (c *Controller) Done() <-chan struct{} { return c.done }

func (c *Controller) sendVersion(ch *transport.ControlChannel) error {
	return ch.Send(protocol.VersionConfig{
		Code:      "netplay-adapter",
		Revision:  revision(),
		BuildTime: buildTime(),
		Mode:      c.localMode,
	})
}

// newSessionID generates the wire sessionId's display form. The wire value
// is a plain random token (spec's "random128"); the log/file-safe form is a
// UUID built over that token's bytes so session log files get a stable,
// collision-resistant name without inventing a second random source.
func newSessionID() string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(transport.NewRelayToken())).String()
}

func revision() string {
	info := build.GetBuildInfo()
	if info == nil || info.CommitHash == "" {
		return "unknown"
	}
	return info.CommitHash
}

func buildTime() string {
	info := build.GetBuildInfo()
	if info == nil {
		return ""
	}
	return info.CommitTime
}
