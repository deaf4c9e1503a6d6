package session

import "netplay-adapter/protocol"

// DummyConfig is the host's NetplayConfig formula for dummy/SyncTest
// autopilot: the handshake still runs over the real control and data
// sockets, but the host biases its delay one frame above what the worst
// observed latency alone would need, fixes hostPlayer to 1, and both sides
// skip the UI-confirmation rendezvous rather than waiting on a human.
func DummyConfig(localName, remoteName string, worstLatencyMs float64, winCount uint8, sessionID string) protocol.NetplayConfig {
	return protocol.NetplayConfig{
		Mode:          protocol.Mode{Kind: protocol.ClientKindHost, Flags: protocol.FlagDummy},
		Delay:         computeDelay(worstLatencyMs) + 1,
		Rollback:      4,
		RollbackDelay: 0,
		WinCount:      winCount,
		HostPlayer:    1,
		SessionID:     sessionID,
		Names:         [2]string{localName, remoteName},
	}
}
