package session

import (
	"context"
	"net"
	"strconv"

	"netplay-adapter/pinger"
	"netplay-adapter/protocol"
	"netplay-adapter/transport"
)

// runGuest dials the host's control channel and runs the client side of
// the ten-step handshake. spectate forces spectator mode from the start
// (--spectate); a normal client can still auto-morph into a spectator
// mid-exchange if the host reports GameStarted.
func (c *Controller) runGuest(ctx context.Context, spectate bool) error {
	if spectate {
		c.localMode = protocol.Mode{Kind: protocol.ClientKindSpectator}
	}

	addr := c.cfg.RemoteAddr
	for {
		ch, err := transport.DialControl(ctx, addr, dialRetryInterval)
		if err != nil {
			return newSessionError(ErrorCodeTransportFailure, "could not connect to "+addr, err)
		}
		c.control = ch
		c.setState(stateVersionExchange)

		msg, err := c.receive(ch)
		if err != nil {
			ch.Close()
			return newSessionError(ErrorCodeDisconnected, "host disconnected during version exchange", err)
		}

		// A rendezvous/relay server answers with a redirect instead of a
		// VersionConfig when it is fronting the real host; re-dial and
		// restart step 1 against the address it names.
		if redirect, ok := msg.(protocol.IpAddrPort); ok {
			ch.Close()
			addr = net.JoinHostPort(redirect.Addr, strconv.Itoa(int(redirect.Port)))
			continue
		}

		hostVersion, ok := msg.(protocol.VersionConfig)
		if !ok {
			ch.Close()
			return newSessionError(ErrorCodeTransportFailure, "expected VersionConfig", nil)
		}

		if hostVersion.Mode.HasFlag(protocol.FlagGameStarted) && !c.localMode.IsSpectate() {
			c.localMode = protocol.Mode{Kind: protocol.ClientKindSpectator}
		}

		if err := c.sendVersion(ch); err != nil {
			ch.Close()
			return newSessionError(ErrorCodeTransportFailure, "failed to send version", err)
		}

		local := protocol.VersionConfig{Code: "netplay-adapter", Revision: revision(), BuildTime: buildTime(), Mode: c.localMode}
		if !protocol.IsSimilar(local, hostVersion, 1+c.cfg.StrictVersionLevel) {
			ch.Close()
			return newSessionError(ErrorCodeVersionMismatch, "host version incompatible: "+hostVersion.Revision, nil)
		}

		if c.localMode.IsSpectate() {
			return c.spectateJoin(ctx, ch)
		}
		return c.guestAttempt(ctx, ch)
	}
}

// guestAttempt runs steps 3-10 as the guest: it never constructs a
// NetplayConfig, only ever receives the host's and echoes it back.
func (c *Controller) guestAttempt(ctx context.Context, ch *transport.ControlChannel) error {
	c.setState(stateInitialExchange1)
	round1Out := protocol.InitialConfig{Mode: c.localMode, LocalName: anonymize(c.localName), WinCount: c.cfg.WinCount}
	round1In, err := c.exchangeInitialConfig(ch, round1Out)
	if err != nil {
		return err
	}
	c.remoteName = anonymize(round1In.LocalName)

	c.setState(stateInitialExchange2)
	round2Out := protocol.InitialConfig{Mode: c.localMode, LocalName: c.localName, RemoteName: c.remoteName, WinCount: c.cfg.WinCount}
	round2In, err := c.exchangeInitialConfig(ch, round2Out)
	if err != nil {
		return err
	}

	hostAddr, err := c.resolveHostDataAddr(round2In.DataPort)
	if err != nil {
		return newSessionError(ErrorCodeTransportFailure, "could not resolve host data address", err)
	}
	if _, err := c.openDataChannel(ctx, hostAddr); err != nil {
		return err
	}
	c.startDatapath(ctx)

	// The host doesn't learn our data-channel address any other way; punch
	// a single datagram through immediately so its awaitRendezvous read
	// has something to receive.
	if err := c.socket.Data.SendDatagram(protocol.Datagram{Type: protocol.DatagramPing}); err != nil {
		return newSessionError(ErrorCodeTransportFailure, "failed to punch data channel", err)
	}

	c.setState(statePingMeasurement)
	hostStatsMsg, err := c.receive(ch)
	if err != nil {
		return newSessionError(ErrorCodeDisconnected, "host disconnected before sending ping stats", err)
	}
	hostStats, ok := hostStatsMsg.(protocol.PingStats)
	if !ok {
		return newSessionError(ErrorCodeTransportFailure, "expected PingStats", nil)
	}

	// Only start our own probing window once the host's has closed, per
	// the handshake's ordering: the host measures first, then hands off.
	c.localStats = c.measurePing(ctx)
	if err := ch.Send(c.localStats); err != nil {
		return newSessionError(ErrorCodeTransportFailure, "failed to send ping stats", err)
	}

	// The host computes the authoritative delay from the same merge and
	// enforces its own ceiling; run the identical check here too so a
	// misconfigured or misbehaving host can't hand this side a delay past
	// what it was configured to tolerate.
	merged := pinger.MergeStats(hostStats, c.localStats)
	if !c.localMode.HasFlag(protocol.FlagDummy) {
		if err := checkDelay(computeDelay(merged.Latency.MeanMs), c.cfg.MaxRealDelay); err != nil {
			return err
		}
	}

	c.setState(stateConfigNegotiation)
	cfgMsg, err := c.receive(ch)
	if err != nil {
		return newSessionError(ErrorCodeDisconnected, "host disconnected before publishing config", err)
	}
	if errMsg, ok := cfgMsg.(protocol.ErrorMessage); ok {
		return newSessionError(ErrorCode(errMsg.Code), errMsg.Reason, nil)
	}
	cfg, ok := cfgMsg.(protocol.NetplayConfig)
	if !ok {
		return newSessionError(ErrorCodeTransportFailure, "expected NetplayConfig", nil)
	}
	c.netplayConfig = cfg

	c.setState(stateUiConfirmation)
	confirmed, err := c.confirmConfig(ctx, cfg)
	if err != nil {
		return err
	}
	if !confirmed {
		return newSessionError(ErrorCodeCancelled, "user declined the negotiated config", nil)
	}

	if err := ch.Send(protocol.ConfirmConfig{SessionID: cfg.SessionID}); err != nil {
		return newSessionError(ErrorCodeTransportFailure, "failed to confirm config", err)
	}

	return c.finishHandshake(ctx)
}

// spectateJoin runs the abbreviated spectator handshake: no pinging, no
// delay negotiation, just a SpectateConfig to resume mid-match from and a
// forwarding loop into the locally-run game's IPC channel.
func (c *Controller) spectateJoin(ctx context.Context, ch *transport.ControlChannel) error {
	c.setState(stateConfigNegotiation)
	msg, err := c.receive(ch)
	if err != nil {
		ch.Close()
		return newSessionError(ErrorCodeDisconnected, "host disconnected before sending SpectateConfig", err)
	}
	if errMsg, ok := msg.(protocol.ErrorMessage); ok {
		ch.Close()
		return newSessionError(ErrorCode(errMsg.Code), errMsg.Reason, nil)
	}
	spectCfg, ok := msg.(protocol.SpectateConfig)
	if !ok {
		ch.Close()
		return newSessionError(ErrorCodeTransportFailure, "expected SpectateConfig", nil)
	}
	c.netplayConfig = spectCfg.Config

	if err := c.handoffToGame(ctx); err != nil {
		return err
	}
	c.setState(stateReady)

	for {
		msg, err := c.receive(ch)
		if err != nil {
			return newSessionError(ErrorCodeDisconnected, "spectator feed disconnected", err)
		}
		if c.ipcChan != nil {
			_ = c.ipcChan.Send(msg)
		}
	}
}

// resolveHostDataAddr combines the host's control-channel IP with the data
// port it published in step 3 round 2.
func (c *Controller) resolveHostDataAddr(dataPort uint16) (*net.UDPAddr, error) {
	host, _, err := net.SplitHostPort(c.control.RemoteAddr().String())
	if err != nil {
		return nil, err
	}
	return transport.ResolveUDPAddr(net.JoinHostPort(host, strconv.Itoa(int(dataPort))))
}
