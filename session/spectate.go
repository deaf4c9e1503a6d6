package session

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
	"netplay-adapter/transport"
)

// acceptSpectators takes over the persistent listener's incoming channel
// once a host has matched its one client, handling every further
// connection as a spectator join attempt rather than a new match.
func (c *Controller) acceptSpectators(ctx context.Context, incoming <-chan *transport.ControlChannel) {
	next := 0
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-incoming:
			if !ok {
				return
			}
			next++
			go c.spectatorAttempt(ch, spectatorID(next))
		}
	}
}

func spectatorID(n int) string {
	return "spectator-" + strconv.Itoa(n)
}

// spectatorAttempt runs the abbreviated handshake a spectator joins
// through: version exchange (rejecting anything but a spectate mode once
// a match is running), then a SpectateConfig carrying the running match's
// negotiated config and the hub's most recent snapshot.
func (c *Controller) spectatorAttempt(ch *transport.ControlChannel, id string) {
	defer func() {
		applog.Debug("Spectator handshake ended", zap.String("id", id))
	}()

	if err := c.sendVersion(ch); err != nil {
		ch.Close()
		return
	}
	msg, err := c.receive(ch)
	if err != nil {
		ch.Close()
		return
	}
	rv, ok := msg.(protocol.VersionConfig)
	if !ok || !rv.Mode.IsSpectate() {
		_ = ch.Send(protocol.ErrorMessage{Code: string(ErrorCodeAborted), Reason: tieBreakReason})
		ch.Close()
		return
	}

	spectCfg := protocol.SpectateConfig{Config: c.netplayConfig}
	if err := ch.Send(spectCfg); err != nil {
		ch.Close()
		return
	}

	if err := c.spect.Join(id, ch); err != nil {
		applog.Warn("Spectator join failed", zap.String("id", id), zap.Error(err))
		ch.Close()
		return
	}

	// The spectator's control socket now only receives broadcasts; drain
	// its reads so a disconnect is noticed and the hub entry is cleaned up.
	for {
		if _, err := c.receive(ch); err != nil {
			c.spect.Leave(id)
			ch.Close()
			return
		}
	}
}
