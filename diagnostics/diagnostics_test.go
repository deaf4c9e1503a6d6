package diagnostics_test

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"netplay-adapter/applog"
	"netplay-adapter/diagnostics"
	"netplay-adapter/protocol"
)

func TestSink_DumpDatagramEmitsJson(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	assert.NoError(t, err)
	defer listener.Close()

	sink, err := diagnostics.NewSink(listener.LocalAddr().String())
	assert.NoError(t, err)
	defer sink.Close()

	peerAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4000}
	sink.DumpDatagram(protocol.Datagram{Type: protocol.DatagramPing, Sequence: 3}, peerAddr, diagnostics.DumpDirectionFromPeer)

	buf := make([]byte, 4096)
	_ = listener.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	assert.NoError(t, err)

	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf[:n], &decoded))
	assert.Equal(t, "datagram", decoded["kind"])
}

func TestSink_WriteLogEntryToRemoteEmitsEachEntry(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	assert.NoError(t, err)
	defer listener.Close()

	sink, err := diagnostics.NewSink(listener.LocalAddr().String())
	assert.NoError(t, err)
	defer sink.Close()

	entry := zapcore.Entry{Level: zapcore.WarnLevel, Message: "something happened", Time: time.Now()}
	err = sink.WriteLogEntryToRemote([]*applog.LogEntry{{Entry: &entry}})
	assert.NoError(t, err)

	buf := make([]byte, 4096)
	_ = listener.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	assert.NoError(t, err)

	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf[:n], &decoded))
	assert.Equal(t, "log", decoded["kind"])
}
