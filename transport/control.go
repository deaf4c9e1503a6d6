// Package transport owns the two sockets a netplay session needs: a TCP
// control channel for the handshake/negotiation messages, and a UDP data
// channel for in-game traffic, falling back through a relay when a direct
// path can't be established. It generalizes the teacher's webrtc.Peer
// connect/reconnect shape onto plain sockets instead of a WebRTC agent.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
	"netplay-adapter/util"
)

// ControlChannel is the TCP connection carrying protocol.Message traffic.
type ControlChannel struct {
	conn   net.Conn
	writer *protocol.StreamWriter
	reader *protocol.StreamReader
}

func newControlChannel(conn net.Conn) *ControlChannel {
	return &ControlChannel{
		conn:   conn,
		writer: protocol.NewStreamWriter(bufio.NewWriter(conn)),
		reader: protocol.NewStreamReader(bufio.NewReader(conn)),
	}
}

// ListenControl binds an ephemeral TCP port and accepts exactly one
// connection, used by the host side of the handshake.
func ListenControl(ctx context.Context, bindAddr string) (*ControlChannel, uint, error) {
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, 0, fmt.Errorf("transport: listen control: %w", err)
	}

	port := (uint)(listener.Addr().(*net.TCPAddr).Port)
	applog.Info("Control channel listening", zap.Uint("port", port))

	conn, err := util.NetAcceptWithContext(ctx, listener)
	_ = listener.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("transport: accept control: %w", err)
	}

	return newControlChannel(conn), port, nil
}

// DialControl connects to a host's control channel, retrying with a fixed
// backoff until ctx is cancelled — the host may not have started listening
// yet when the guest begins dialing.
func DialControl(ctx context.Context, addr string, retryInterval time.Duration) (*ControlChannel, error) {
	for {
		conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
		if err == nil {
			return newControlChannel(conn), nil
		}

		applog.Debug("Control channel dial failed, retrying", zap.String("addr", addr), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

func (c *ControlChannel) Send(msg protocol.Message) error {
	return c.writer.WriteMessage(msg)
}

func (c *ControlChannel) Receive() (protocol.Message, error) {
	return c.reader.ReadMessage()
}

func (c *ControlChannel) Close() error {
	return c.conn.Close()
}

func (c *ControlChannel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ControlListener keeps a TCP listener open across multiple Accept calls,
// used by the host side of the handshake: a host must keep listening after
// accepting its first client so it can reply ErrorMessage to any
// simultaneous extra connection attempts instead of dropping them.
type ControlListener struct {
	listener net.Listener
}

// ListenPersistentControl binds bindAddr and returns a listener the caller
// accepts from repeatedly until Close is called.
func ListenPersistentControl(bindAddr string) (*ControlListener, uint, error) {
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, 0, fmt.Errorf("transport: listen control: %w", err)
	}
	port := uint(listener.Addr().(*net.TCPAddr).Port)
	applog.Info("Control channel listening", zap.Uint("port", port))
	return &ControlListener{listener: listener}, port, nil
}

// Accept blocks for the next incoming connection or until ctx is cancelled.
func (l *ControlListener) Accept(ctx context.Context) (*ControlChannel, error) {
	conn, err := util.NetAcceptWithContext(ctx, l.listener)
	if err != nil {
		return nil, fmt.Errorf("transport: accept control: %w", err)
	}
	return newControlChannel(conn), nil
}

func (l *ControlListener) Close() error {
	return l.listener.Close()
}
