// Command netplay-game-emulator stands in for the fighting game binary
// during adapter development: it connects to the IPC port the adapter
// hands it, logs whatever the adapter publishes (menu index, remote
// address, NetplayConfig, the attach-mode synthetic InitialGameState),
// and lets a developer type commands to feed inputs or RNG state back
// over the same channel, the way faf-launcher-emulator's stdin loop
// drove GpgNet messages at a stand-in FAF client.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
	"netplay-adapter/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	ipcPort := flag.Uint("netplay-ipc-port", 0, "loopback port the adapter is listening on")
	logLevel := flag.Int("log-level", 0, "zap log level")
	flag.Parse()

	if err := applog.Initialize("game-emulator", 0, *logLevel, ""); err != nil {
		fmt.Printf("Failed to initialize app logger: %v\n", err)
	}
	defer applog.Shutdown()
	defer util.WrapAppContextCancelExitMessage(ctx, "netplay-game-emulator")

	if *ipcPort == 0 {
		applog.Error("Missing required --netplay-ipc-port flag")
		return
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", *ipcPort))
	if err != nil {
		applog.Error("Failed to connect to adapter's IPC channel", zap.Error(err))
		return
	}
	defer conn.Close()

	fromAdapter := make(chan protocol.Message, 64)
	go readLoop(conn, fromAdapter)
	go logAdapterMessages(ctx, fromAdapter)

	writer := protocol.NewStreamWriter(bufio.NewWriter(conn))

	// How to test
	// - Start netplay-adapter in host mode, then start netplay-game-emulator
	//   with the --netplay-ipc-port it logs on startup.
	// - Type a command:
	//   > input 1 deadbeef
	//   > rng 1234
	cr := util.NewCancelableIoReader(ctx, os.Stdin)
	scanner := bufio.NewScanner(cr)
	for scanner.Scan() {
		value := scanner.Text()
		applog.Debug("Entered command", zap.String("rawCommand", value))

		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}

		msg, err := parseCommand(fields)
		if err != nil {
			applog.Warn("Could not parse command", zap.Error(err))
			continue
		}
		if err := writer.WriteMessage(msg); err != nil {
			applog.Error("Failed to send message to adapter", zap.Error(err))
			return
		}
	}
}

func parseCommand(fields []string) (protocol.Message, error) {
	switch fields[0] {
	case "input":
		if len(fields) != 3 {
			return nil, fmt.Errorf("usage: input <frame> <hex-data>")
		}
		frame, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, err
		}
		return protocol.PlayerInputs{Frame: uint32(frame), Data: []byte(fields[2])}, nil
	case "rng":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: rng <seed>")
		}
		seed, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, err
		}
		return protocol.RngState{Seed: seed}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}

func readLoop(conn net.Conn, fromAdapter chan<- protocol.Message) {
	defer close(fromAdapter)
	reader := protocol.NewStreamReader(bufio.NewReader(conn))
	for {
		msg, err := reader.ReadMessage()
		if err != nil {
			applog.Debug("Adapter connection closed", zap.Error(err))
			return
		}
		fromAdapter <- msg
	}
}

func logAdapterMessages(ctx context.Context, fromAdapter <-chan protocol.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-fromAdapter:
			if !ok {
				return
			}
			switch m := msg.(type) {
			case protocol.MenuIndex:
				applog.Info("Received client mode", zap.Uint8("index", m.Index))
			case protocol.IpAddrPort:
				applog.Info("Received remote address", zap.String("addr", m.Addr), zap.Uint16("port", m.Port))
			case protocol.NetplayConfig:
				applog.Info("Received NetplayConfig",
					zap.Uint8("delay", m.Delay),
					zap.Uint8("rollback", m.Rollback),
					zap.String("sessionId", m.SessionID))
			case protocol.InitialGameState:
				applog.Info("Received synthetic InitialGameState (attach mode)",
					zap.Uint8("netplayState", m.State.NetplayState))
			default:
				applog.Info("Received message from adapter", zap.String("type", string(msg.Type())))
			}
		}
	}
}
