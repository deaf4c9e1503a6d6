package session

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/gamehost"
	"netplay-adapter/ipc"
	"netplay-adapter/protocol"
)

// unknownCharacter marks a character/stage slot the client hasn't chosen
// yet in a synthetic InitialGameState (attach mode's PreInitial snapshot).
const unknownCharacter = 0xFF

// attachGracePause is the short pause spec §4.4 requires between an
// attached game's own IPC drain and this controller's first publish, so
// the two don't race over the same connection.
const attachGracePause = 100 * time.Millisecond

// handoffToGame opens the IPC channel, spawns the game process (launch
// mode) or simply publishes into an already-running one (attach mode), and
// sends the ordered initialization sequence spec §4.4 describes.
func (c *Controller) handoffToGame(ctx context.Context) error {
	ch, err := ipc.NewChannel(ctx)
	if err != nil {
		return newSessionError(ErrorCodeIpcClosed, "could not open IPC channel", err)
	}
	c.ipcChan = ch

	fromGame := make(chan protocol.Message, 64)
	go func() {
		if err := ch.Listen(fromGame); err != nil {
			applog.Debug("session: IPC channel ended", zap.Error(err))
		}
	}()
	go c.drainGameMessages(ctx, fromGame)

	if c.cfg.Attach {
		return c.publishAttach(ch)
	}
	return c.publishLaunch(ctx, ch)
}

func (c *Controller) publishLaunch(ctx context.Context, ch *ipc.Channel) error {
	process, err := gamehost.Launch(ctx, c.cfg.GamePath, ch.Port(), c.cfg.GameArgs)
	if err != nil {
		return newSessionError(ErrorCodeTransportFailure, "could not launch game process", err)
	}
	c.process = process

	remoteAddr := c.remoteAddrMessage()
	if err := ch.Send(protocol.MenuIndex{Index: uint8(c.netplayConfig.Mode.Kind)}); err != nil {
		return newSessionError(ErrorCodeIpcClosed, "failed to publish client mode", err)
	}
	if err := ch.Send(remoteAddr); err != nil {
		return newSessionError(ErrorCodeIpcClosed, "failed to publish remote address", err)
	}
	if err := ch.Send(c.netplayConfig); err != nil {
		return newSessionError(ErrorCodeIpcClosed, "failed to publish NetplayConfig", err)
	}

	applog.Info("Started netplay session", zap.String("mode", c.netplayConfig.Mode.Kind.String()))
	return nil
}

// publishAttach delivers only the deltas an already-running game needs:
// no process spawn, and a synthetic PreInitial InitialGameState instead of
// a live snapshot, since the attached game hasn't reached character select
// through this handshake.
func (c *Controller) publishAttach(ch *ipc.Channel) error {
	time.Sleep(attachGracePause)

	remoteAddr := c.remoteAddrMessage()
	if err := ch.Send(protocol.MenuIndex{Index: uint8(c.netplayConfig.Mode.Kind)}); err != nil {
		return newSessionError(ErrorCodeIpcClosed, "failed to publish client mode", err)
	}
	if err := ch.Send(remoteAddr); err != nil {
		return newSessionError(ErrorCodeIpcClosed, "failed to publish remote address", err)
	}
	if err := ch.Send(c.netplayConfig); err != nil {
		return newSessionError(ErrorCodeIpcClosed, "failed to publish NetplayConfig", err)
	}

	synthetic := protocol.InitialGameState{State: protocol.GameStateSnapshot{
		NetplayState: uint8(netplayStatePreInitial),
		Stage:        unknownCharacter,
		Characters:   [2]uint8{unknownCharacter, unknownCharacter},
	}}
	if err := ch.Send(synthetic); err != nil {
		return newSessionError(ErrorCodeIpcClosed, "failed to publish synthetic InitialGameState", err)
	}

	applog.Info("Attached to running game process", zap.Uint("ipcPort", ch.Port()))
	return nil
}

// netplayStatePreInitial mirrors the game's own "hasn't started character
// select yet" state, used only for the attach-mode synthetic snapshot.
const netplayStatePreInitial = 0

func (c *Controller) remoteAddrMessage() protocol.IpAddrPort {
	if c.control == nil {
		return protocol.IpAddrPort{}
	}
	host, portStr, err := net.SplitHostPort(c.control.RemoteAddr().String())
	if err != nil {
		return protocol.IpAddrPort{}
	}
	port, _ := strconv.ParseUint(portStr, 10, 16)
	return protocol.IpAddrPort{Addr: host, Port: uint16(port)}
}

// drainGameMessages forwards messages the game process sends up through
// IPC (RngState, ChangeConfig) onto the control channel toward the peer,
// and to any joined spectators.
func (c *Controller) drainGameMessages(ctx context.Context, fromGame <-chan protocol.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-fromGame:
			if !ok {
				return
			}
			if c.control != nil {
				_ = c.control.Send(msg)
			}
			c.spect.Broadcast(msg)
		}
	}
}
