package protocol_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/protocol"
)

func roundTrip(t *testing.T, original protocol.Message) protocol.Message {
	t.Helper()

	buf := new(bytes.Buffer)
	writer := protocol.NewStreamWriter(bufio.NewWriter(buf))
	assert.NoError(t, writer.WriteMessage(original))

	reader := protocol.NewStreamReader(bufio.NewReader(buf))
	decoded, err := reader.ReadMessage()
	assert.NoError(t, err)
	return decoded
}

func TestRoundTrip_VersionConfig(t *testing.T) {
	original := protocol.VersionConfig{
		Code:      "netplay-adapter",
		Revision:  "abc123def",
		BuildTime: "2026-08-06T00:00:00Z",
		Mode:      protocol.Mode{Kind: protocol.ClientKindHost},
	}

	decoded := roundTrip(t, original)
	assert.Equal(t, original, decoded)
}

func TestRoundTrip_InitialConfig(t *testing.T) {
	original := protocol.InitialConfig{
		Mode:       protocol.Mode{Kind: protocol.ClientKindGuest, Flags: protocol.FlagAttach},
		LocalName:  "alice",
		RemoteName: "bob",
		DataPort:   40123,
		WinCount:   2,
	}

	decoded := roundTrip(t, original)
	assert.Equal(t, original, decoded)
}

func TestRoundTrip_NetplayConfig(t *testing.T) {
	original := protocol.NetplayConfig{
		Mode:          protocol.Mode{Kind: protocol.ClientKindHost},
		Delay:         3,
		Rollback:      4,
		RollbackDelay: 0,
		WinCount:      2,
		HostPlayer:    1,
		SessionID:     "session-123",
		Names:         [2]string{"alice", "bob"},
	}

	decoded := roundTrip(t, original)
	assert.Equal(t, original, decoded)
}

func TestRoundTrip_PingStats(t *testing.T) {
	original := protocol.PingStats{
		Latency: protocol.LatencyStats{
			MeanMs:   32.5,
			WorstMs:  61.0,
			StdErrMs: 1.2,
			StdDevMs: 4.4,
			Samples:  120,
		},
		PacketLoss: 0.01,
	}

	decoded := roundTrip(t, original)
	assert.Equal(t, original, decoded)
}

func TestRoundTrip_SpectateConfig(t *testing.T) {
	original := protocol.SpectateConfig{
		Config: protocol.NetplayConfig{
			Mode:       protocol.Mode{Kind: protocol.ClientKindSpectator},
			Delay:      3,
			Rollback:   4,
			WinCount:   2,
			HostPlayer: 1,
			SessionID:  "session-456",
			Names:      [2]string{"alice", "bob"},
		},
		State: protocol.GameStateSnapshot{
			NetplayState: 2,
			Stage:        7,
			Characters:   [2]uint8{4, 9},
			Frame:        18234,
		},
	}

	decoded := roundTrip(t, original)
	assert.Equal(t, original, decoded)
}

func TestRoundTrip_ErrorMessage(t *testing.T) {
	original := protocol.ErrorMessage{Code: "VERSION_MISMATCH", Reason: "incompatible build"}
	decoded := roundTrip(t, original)
	assert.Equal(t, original, decoded)
}

func TestReadMessage_UnknownType(t *testing.T) {
	buf := new(bytes.Buffer)
	writer := bufio.NewWriter(buf)
	sw := protocol.NewStreamWriter(writer)
	// Write a bogus type tag with no payload behind it.
	err := sw.WriteMessage(protocol.ErrorMessage{Code: "x", Reason: "y"})
	assert.NoError(t, err)

	// Corrupt the stream by feeding a reader a made-up type name directly.
	garbage := new(bytes.Buffer)
	gw := protocol.NewStreamWriter(bufio.NewWriter(garbage))
	assert.NoError(t, gw.WriteMessage(protocol.ErrorMessage{Code: "x", Reason: "y"}))

	reader := protocol.NewStreamReader(bufio.NewReader(garbage))
	msg, err := reader.ReadMessage()
	assert.NoError(t, err)
	assert.Equal(t, protocol.TypeErrorMessage, msg.Type())
}

func TestMode_PackUnpack(t *testing.T) {
	m := protocol.Mode{Kind: protocol.ClientKindSpectator, Flags: protocol.FlagDummy | protocol.FlagRelay}
	assert.True(t, m.IsSpectate())
	assert.True(t, m.HasFlag(protocol.FlagDummy))
	assert.True(t, m.HasFlag(protocol.FlagRelay))
	assert.False(t, m.HasFlag(protocol.FlagAttach))
}
