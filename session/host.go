package session

import (
	"context"
	"math/rand"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/netplaytimer"
	"netplay-adapter/pinger"
	"netplay-adapter/protocol"
	"netplay-adapter/transport"
)

// stunDiscoveryTimeout bounds the external-address probe so a slow or
// unreachable STUN server can't hold up listener startup.
const stunDiscoveryTimeout = 3 * time.Second

const tieBreakReason = "Another client is currently connecting!"

// runHost listens for one client at a time, handshaking each in turn.
// A DelayExceedsLimit breach or a client disconnect before step 9 resets
// the session (spec §4.1's "host reset") and the listener keeps accepting;
// every other failure is fatal to the whole host process.
func (c *Controller) runHost(ctx context.Context) error {
	listener, port, err := transport.ListenPersistentControl(c.cfg.ListenAddr)
	if err != nil {
		return newSessionError(ErrorCodeTransportFailure, "could not start listening", err)
	}
	c.listener = listener
	c.publishExternalAddr(port)
	c.setState(stateVersionExchange)

	incoming := make(chan *transport.ControlChannel)
	go func() {
		defer close(incoming)
		for {
			ch, err := listener.Accept(ctx)
			if err != nil {
				return
			}
			select {
			case incoming <- ch:
			case <-ctx.Done():
				ch.Close()
				return
			}
		}
	}()

	var active *transport.ControlChannel
	for {
		select {
		case <-ctx.Done():
			return newSessionError(ErrorCodeCancelled, "host cancelled before a client connected", ctx.Err())
		case ch, ok := <-incoming:
			if !ok {
				return newSessionError(ErrorCodeTransportFailure, "control listener closed unexpectedly", nil)
			}
			active = ch
		}

		c.control = active
		rejectExtra := c.rejectExtraConnections(incoming)

		resettable, err := c.hostAttempt(ctx, active)
		close(rejectExtra)

		if err == nil {
			go c.acceptSpectators(ctx, incoming)
			return nil
		}
		if !resettable {
			return err
		}

		applog.Warn("Host session reset, listener remains open for new clients", zap.Error(err))
		c.resetSessionState()
	}
}

// publishExternalAddr probes cfg.StunAddr for the host's externally-visible
// address and copies "ip:port" to the clipboard so the host can hand it to
// a remote peer without reading it off a terminal. A STUN failure (or no
// StunAddr configured at all, the common LAN/relay case) just skips the
// publish; it never blocks the listener from serving connections.
func (c *Controller) publishExternalAddr(localPort uint) {
	if c.cfg.StunAddr == "" {
		return
	}

	externalIP, _, err := transport.DiscoverExternalAddr(c.cfg.StunAddr, stunDiscoveryTimeout)
	if err != nil {
		applog.Warn("Could not discover external address via STUN", zap.Error(err))
		return
	}

	addr := net.JoinHostPort(externalIP, strconv.FormatUint(uint64(localPort), 10))
	if err := clipboard.WriteAll(addr); err != nil {
		applog.Warn("Could not write external address to clipboard", zap.Error(err))
		return
	}
	applog.Info("Published external address to clipboard", zap.String("address", addr))
}

// rejectExtraConnections drains any control connections that arrive while
// one client is already mid-handshake, replying with the standard
// tie-break error and closing them. The returned channel stops the drain
// goroutine when closed.
func (c *Controller) rejectExtraConnections(incoming <-chan *transport.ControlChannel) chan struct{} {
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case ch, ok := <-incoming:
				if !ok {
					return
				}
				_ = ch.Send(protocol.ErrorMessage{Code: string(ErrorCodeAborted), Reason: tieBreakReason})
				ch.Close()
			}
		}
	}()
	return stop
}

func (c *Controller) resetSessionState() {
	if c.socket != nil {
		c.socket.Close()
		c.socket = nil
	}
	c.control = nil
	c.remoteName = ""
	c.localStats = protocol.PingStats{}
	c.netplayConfig = protocol.NetplayConfig{}
	c.pingr = nil
}

// hostAttempt runs the ten-step handshake against one client. resettable
// is true when the failure should not take down the whole host process.
func (c *Controller) hostAttempt(ctx context.Context, active *transport.ControlChannel) (resettable bool, err error) {
	c.setState(stateVersionExchange)
	if err := c.sendVersion(active); err != nil {
		return false, newSessionError(ErrorCodeTransportFailure, "failed to send version", err)
	}

	remoteVersion, err, timedOut := c.receivePending(active, pendingTimeout)
	if err != nil {
		if timedOut {
			return true, newSessionError(ErrorCodeTimedOut, "Timed out!", err)
		}
		return true, newSessionError(ErrorCodeDisconnected, "client disconnected during version exchange", err)
	}
	rv, ok := remoteVersion.(protocol.VersionConfig)
	if !ok {
		return true, newSessionError(ErrorCodeTransportFailure, "expected VersionConfig", nil)
	}
	if rv.Mode.IsSpectate() {
		_ = active.Send(protocol.ErrorMessage{Code: string(ErrorCodeSpectateNotReady), Reason: "Not in a game yet, cannot spectate!"})
		return true, newSessionError(ErrorCodeSpectateNotReady, "spectator connected before a match started", nil)
	}
	local := protocol.VersionConfig{Code: "netplay-adapter", Revision: revision(), BuildTime: buildTime(), Mode: c.localMode}
	if !protocol.IsSimilar(local, rv, 1+c.cfg.StrictVersionLevel) {
		_ = active.Send(protocol.ErrorMessage{Code: string(ErrorCodeVersionMismatch), Reason: rv.Revision})
		return true, newSessionError(ErrorCodeVersionMismatch, "client version incompatible: "+rv.Revision, nil)
	}

	c.setState(stateInitialExchange1)
	round1Out := protocol.InitialConfig{Mode: c.localMode, LocalName: anonymize(c.localName), WinCount: c.cfg.WinCount}
	round1In, err := c.exchangeInitialConfig(active, round1Out)
	if err != nil {
		return true, err
	}
	c.remoteName = anonymize(round1In.LocalName)

	c.setState(stateInitialExchange2)
	dataPort, err := c.openDataChannel(ctx, nil)
	if err != nil {
		return false, err
	}
	round2Out := protocol.InitialConfig{
		Mode: c.localMode, LocalName: c.localName, RemoteName: c.remoteName,
		DataPort: uint16(dataPort), WinCount: c.cfg.WinCount,
	}
	if _, err := c.exchangeInitialConfig(active, round2Out); err != nil {
		return true, err
	}

	if err := c.awaitRendezvous(pendingTimeout); err != nil {
		return true, err
	}
	c.startDatapath(ctx)

	c.setState(statePingMeasurement)
	c.localStats = c.measurePing(ctx)
	if err := active.Send(c.localStats); err != nil {
		return true, newSessionError(ErrorCodeTransportFailure, "failed to send ping stats", err)
	}

	remoteStatsMsg, err := c.receive(active)
	if err != nil {
		return true, newSessionError(ErrorCodeDisconnected, "client disconnected before sending ping stats", err)
	}
	remoteStats, ok := remoteStatsMsg.(protocol.PingStats)
	if !ok {
		return true, newSessionError(ErrorCodeTransportFailure, "expected PingStats", nil)
	}

	merged := pinger.MergeStats(c.localStats, remoteStats)
	c.setState(stateConfigNegotiation)

	var cfg protocol.NetplayConfig
	if c.localMode.HasFlag(protocol.FlagDummy) {
		cfg = DummyConfig(c.localName, c.remoteName, merged.Latency.WorstMs, c.cfg.WinCount, newSessionID())
	} else {
		delay := computeDelay(merged.Latency.MeanMs)
		if err := checkDelay(delay, c.cfg.MaxRealDelay); err != nil {
			se := err.(*SessionError)
			_ = active.Send(protocol.ErrorMessage{Code: string(se.Code), Reason: se.Message})
			return true, se
		}
		cfg = protocol.NetplayConfig{
			Mode:       c.localMode,
			Delay:      delay,
			Rollback:   4,
			WinCount:   c.cfg.WinCount,
			HostPlayer: uint8(1 + rand.Intn(2)),
			SessionID:  newSessionID(),
			Names:      [2]string{c.localName, c.remoteName},
		}
	}
	c.netplayConfig = cfg

	c.setState(stateUiConfirmation)
	confirmed, err := c.confirmConfig(ctx, cfg)
	if err != nil {
		return true, err
	}
	if !confirmed {
		return false, newSessionError(ErrorCodeCancelled, "user declined the negotiated config", nil)
	}
	c.netplayConfig = cfg

	if err := active.Send(cfg); err != nil {
		return true, newSessionError(ErrorCodeTransportFailure, "failed to publish NetplayConfig", err)
	}

	ackMsg, err := c.receive(active)
	if err != nil {
		return true, newSessionError(ErrorCodeDisconnected, "client disconnected before confirming config", err)
	}
	ack, ok := ackMsg.(protocol.ConfirmConfig)
	if !ok || ack.SessionID != cfg.SessionID {
		return true, newSessionError(ErrorCodeConfigMismatch, "client echoed a mismatched sessionId", nil)
	}

	return false, c.finishHandshake(ctx)
}

// exchangeInitialConfig sends outgoing and returns the peer's InitialConfig
// for the same round, used for both rounds of step 3.
func (c *Controller) exchangeInitialConfig(ch *transport.ControlChannel, outgoing protocol.InitialConfig) (protocol.InitialConfig, error) {
	if err := ch.Send(outgoing); err != nil {
		return protocol.InitialConfig{}, newSessionError(ErrorCodeTransportFailure, "failed to send InitialConfig", err)
	}
	msg, err := c.receive(ch)
	if err != nil {
		return protocol.InitialConfig{}, newSessionError(ErrorCodeDisconnected, "peer disconnected during InitialConfig exchange", err)
	}
	ic, ok := msg.(protocol.InitialConfig)
	if !ok {
		return protocol.InitialConfig{}, newSessionError(ErrorCodeTransportFailure, "expected InitialConfig", nil)
	}
	return ic, nil
}

// receive is a thin, named wrapper around ControlChannel.Receive shared by
// the host and client handshake code.
func (c *Controller) receive(ch *transport.ControlChannel) (protocol.Message, error) {
	return ch.Receive()
}

// receivePending waits for ch's next message with a hard ceiling — spec
// §5's DEFAULT_PENDING_TIMEOUT for a control socket that's been accepted
// but never speaks again, e.g. a client that connects and goes silent
// before completing VersionExchange. d elapsing closes ch via a
// netplaytimer.Timer, which unblocks the pending Receive the same way any
// other disconnect would; timedOut distinguishes that case from a genuine
// peer-initiated disconnect so the caller can report "Timed out!" as spec'd.
func (c *Controller) receivePending(ch *transport.ControlChannel, d time.Duration) (protocol.Message, error, bool) {
	type result struct {
		msg protocol.Message
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		msg, err := ch.Receive()
		resCh <- result{msg, err}
	}()

	var timedOut atomic.Bool
	timer := netplaytimer.Start(d, func() {
		timedOut.Store(true)
		ch.Close()
	})
	defer timer.Stop()

	r := <-resCh
	return r.msg, r.err, timedOut.Load()
}

// confirmConfig runs the UI-confirmation rendezvous for a negotiated
// config, used by both the host and guest handshake paths. Dummy/SyncTest
// autopilot sessions short-circuit straight to an immediate "yes" on both
// sides rather than waiting on a human.
func (c *Controller) confirmConfig(ctx context.Context, cfg protocol.NetplayConfig) (bool, error) {
	if c.localMode.HasFlag(protocol.FlagDummy) {
		return true, nil
	}
	c.bridge.Present(cfg)
	confirmed, err := c.bridge.Wait(ctx)
	if err != nil {
		return false, newSessionError(ErrorCodeCancelled, "confirmation cancelled", err)
	}
	return confirmed, nil
}

// finishHandshake runs the shared step-10 tail: a fixed start-timer delay,
// then the IPC handoff. Unlike a failed attempt, a successful one keeps the
// control and data sockets open — Running still needs them to relay game
// traffic — and only Stop() tears them down.
func (c *Controller) finishHandshake(ctx context.Context) error {
	c.setState(stateReady)
	if !netplaytimer.Deadline(startTimerDelay, ctx.Done()) {
		return newSessionError(ErrorCodeCancelled, "cancelled during start timer", ctx.Err())
	}

	if err := c.handoffToGame(ctx); err != nil {
		return err
	}

	if c.localMode.IsHost() {
		c.localMode = c.localMode.WithFlag(protocol.FlagGameStarted)
	}
	c.gameStarted.Store(true)

	// Keep the pinger probing through Running so runReconnectManager has a
	// live liveness signal (LastPongAt) to detect a quiet data channel by,
	// rather than only during the handshake's fixed pingCount window.
	go c.pingr.Run(ctx)
	go c.runReconnectManager(ctx)

	return nil
}

// anonymize applies the name-echo fallback from the testable-properties
// list: an empty local name becomes "Anonymous" rather than an empty
// string reaching the wire.
func anonymize(name string) string {
	if name == "" {
		return "Anonymous"
	}
	return name
}
