// Package ipc hands the negotiated netplay config and all subsequent
// gameplay messages (inputs, rng state, menu selections) to the attached
// game process over a loopback TCP socket, generalizing
// faf.GpgNetServer's local control-server shape from GPGNet commands to
// protocol.Message.
package ipc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
	"netplay-adapter/util"
)

// Channel is a loopback IPC server the game process connects to once it
// starts (launch mode) or once it's told to via attach mode.
type Channel struct {
	ctx      context.Context
	port     uint
	listener net.Listener

	fromGame chan<- protocol.Message
	toGame   chan protocol.Message

	connMu sync.Mutex
	conn   net.Conn
}

// NewChannel picks an ephemeral loopback port; the port is handed to the
// game process as a launch argument (launch mode) or written into its
// config (attach mode).
func NewChannel(ctx context.Context) (*Channel, error) {
	port, err := util.GetFreeTcpPort()
	if err != nil {
		return nil, fmt.Errorf("ipc: allocate port: %w", err)
	}
	return &Channel{ctx: ctx, port: port, toGame: make(chan protocol.Message, 64)}, nil
}

func (c *Channel) Port() uint { return c.port }

// Listen accepts exactly one connection from the game process and then
// runs its read/write pumps until ctx is cancelled or the connection
// drops.
func (c *Channel) Listen(fromGame chan<- protocol.Message) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(c.ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", c.port))
	if err != nil {
		return fmt.Errorf("ipc: listen on %d: %w", c.port, err)
	}
	defer listener.Close()
	c.listener = listener
	c.fromGame = fromGame

	applog.Info("IPC channel listening for game process", zap.Uint("port", c.port))

	conn, err := util.NetAcceptWithContext(c.ctx, listener)
	if err != nil {
		return fmt.Errorf("ipc: accept game connection: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	applog.Info("Game process connected over IPC")

	go c.readPump(conn)
	c.writePump(conn)
	return nil
}

func (c *Channel) readPump(conn net.Conn) {
	reader := protocol.NewStreamReader(bufio.NewReader(conn))
	for {
		msg, err := reader.ReadMessage()
		if err != nil {
			applog.Debug("ipc: game connection closed", zap.Error(err))
			return
		}
		select {
		case c.fromGame <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Channel) writePump(conn net.Conn) {
	writer := protocol.NewStreamWriter(bufio.NewWriter(conn))
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-c.toGame:
			if !ok {
				return
			}
			if err := writer.WriteMessage(msg); err != nil {
				applog.Warn("ipc: failed to write to game process", zap.Error(err))
				return
			}
		}
	}
}

// Send queues msg for delivery to the game process. It never blocks the
// caller beyond the channel's buffer: callers on the session's hot path
// should not be delayed by a slow or stalled game process.
func (c *Channel) Send(msg protocol.Message) error {
	select {
	case c.toGame <- msg:
		return nil
	default:
		return fmt.Errorf("ipc: outgoing buffer full, dropping %s", msg.Type())
	}
}

func (c *Channel) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
