package session

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/diagnostics"
	"netplay-adapter/netplaytimer"
	"netplay-adapter/pinger"
	"netplay-adapter/protocol"
	"netplay-adapter/transport"
)

// openDataChannel binds the local UDP data socket and wires it to peerAddr
// (nil if the host doesn't yet know the client's observed address).
// Callers start the read loop themselves via startDatapath once the peer
// address is known — on the client side that's immediately, on the host
// side only after awaitRendezvous resolves it.
func (c *Controller) openDataChannel(ctx context.Context, peerAddr *net.UDPAddr) (uint, error) {
	data, port, err := transport.NewDataChannel()
	if err != nil {
		return 0, newSessionError(ErrorCodeTransportFailure, "could not open data channel", err)
	}

	var relayAddr *net.UDPAddr
	if c.cfg.RelayAddr != "" {
		relayAddr, _ = transport.ResolveUDPAddr(c.cfg.RelayAddr)
	}

	c.socket = transport.NewSmartSocket(c.control, data, peerAddr, relayAddr)
	if c.cfg.ForceRelay && relayAddr != nil {
		data.SetTarget(relayAddr, true)
	}

	c.pingr = pinger.NewPinger(data, pingInterval, pingInterval)
	go c.socket.RunReconnectLoop(ctx)

	return port, nil
}

// startDatapath launches the continuous read loop once the peer's
// data-channel address is known (immediately for the client, after
// awaitRendezvous for the host).
func (c *Controller) startDatapath(ctx context.Context) {
	go c.runDatapath(ctx)
}

// runDatapath dispatches every inbound datagram for the lifetime of the
// data channel: Pings are answered inline, Pongs feed the pinger's RTT
// stats, GameData is forwarded to the attached game once IPC is live.
func (c *Controller) runDatapath(ctx context.Context) {
	err := c.socket.Data.ReadLoop(func(d protocol.Datagram, from *net.UDPAddr) {
		if c.diag != nil {
			c.diag.DumpDatagram(d, from, diagnostics.DumpDirectionFromPeer)
		}
		switch d.Type {
		case protocol.DatagramPing:
			if err := c.pingr.OnPing(d); err != nil {
				applog.Debug("session: failed to answer ping", zap.Error(err))
			}
		case protocol.DatagramPong:
			c.pingr.OnPong(d)
		case protocol.DatagramGameData:
			if c.ipcChan != nil {
				_ = c.ipcChan.Send(protocol.PlayerInputs{Frame: d.Sequence, Data: d.Payload})
			}
		}
	})
	if err != nil && ctx.Err() == nil {
		applog.Debug("session: data channel read loop ended", zap.Error(err))
	}
}

// runReconnectManager recovers a data channel that's gone quiet during a
// running match: once Pongs stop arriving for reconnectSilenceThreshold it
// starts re-punching the original direct peer address every
// dataReconnectInterval, and if that doesn't bring a Pong back within
// reconnectStopDelay of the first missed one, escalates to SmartSocket's
// relay fallback via RequestReconnect. This generalizes the teacher's
// PeerManager.scheduleReconnection/runReconnectionManagement fixed-interval
// retry loop from a per-peer reconnection-request channel to a single
// session's own data channel, and gives netplaytimer.Timer its stopTimer
// role: the bounded grace window spec §7 names for Disconnected recovery
// while gameStarted.
func (c *Controller) runReconnectManager(ctx context.Context) {
	ticker := time.NewTicker(dataReconnectInterval)
	defer ticker.Stop()

	var stopTimer *netplaytimer.Timer
	silent := false
	defer func() {
		if stopTimer != nil {
			stopTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.gameStarted.Load() {
				continue
			}

			quiet := time.Since(c.pingr.LastPongAt())
			if quiet < reconnectSilenceThreshold {
				if silent {
					applog.Info("session: data channel recovered", zap.Duration("quiet", quiet))
					stopTimer.Stop()
					stopTimer = nil
					silent = false
				}
				continue
			}

			if !silent {
				silent = true
				applog.Warn("session: data channel silent, attempting reconnect", zap.Duration("quiet", quiet))
				stopTimer = netplaytimer.Start(reconnectStopDelay, func() {
					applog.Warn("session: reconnect window elapsed, failing over to relay")
					c.socket.Data.RequestReconnect()
				})
			}

			if err := c.socket.Repunch(); err != nil {
				applog.Debug("session: repunch failed", zap.Error(err))
			}
		}
	}
}

// awaitRendezvous blocks until the first datagram arrives on the data
// channel and locks the socket's target onto its source address — the
// host side of UDP hole punching, needed because only the client is told
// the host's address in step 3; the host learns the client's the same way
// a NAT-punching peer always does, from the first packet it receives.
func (c *Controller) awaitRendezvous(timeout time.Duration) error {
	_, from, err := c.socket.Data.ReadOne(timeout)
	if err != nil {
		return newSessionError(ErrorCodeTimedOut, "never received a data-channel packet from the peer", err)
	}
	c.socket.NotePeerAddr(from)
	c.socket.Data.SetTarget(from, c.socket.Data.IsRelayed())
	return nil
}

// measurePing sends exactly pingCount probes at pingInterval and returns
// the locally observed stats once that fixed window closes. The read loop
// answering the peer's probes keeps running independently via runDatapath.
func (c *Controller) measurePing(ctx context.Context) protocol.PingStats {
	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(pingCount)*pingInterval+pingInterval)
	defer cancel()

	c.pingr.RunN(pingCtx, pingCount)
	return c.pingr.Stats()
}

// checkDelay enforces the delay-admission invariant (spec §3): a delay
// above the configured ceiling aborts the session rather than starting it
// under latency the game can't mask.
func checkDelay(delay, maxRealDelay uint8) error {
	if maxRealDelay != 0 && delay > maxRealDelay {
		return newSessionError(ErrorCodeDelayExceedsLimit, errMsgDelayExceeded(delay, maxRealDelay), nil)
	}
	return nil
}
