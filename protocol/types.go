package protocol

// InitialConfig is exchanged right after version negotiation: each side
// tells the other who it is and which local UDP port its data channel is
// bound to.
type InitialConfig struct {
	Mode       Mode
	LocalName  string
	RemoteName string
	DataPort   uint16
	WinCount   uint8
}

func (m InitialConfig) Type() MessageType { return TypeInitialConfig }

// IpAddrPort carries a dotted address and port, used both for the relay
// rendezvous address and for exchanging externally-visible addresses
// discovered via STUN.
type IpAddrPort struct {
	Addr string
	Port uint16
}

func (m IpAddrPort) Type() MessageType { return TypeIpAddrPort }

// LatencyStats summarizes round-trip samples taken by the pinger: mean,
// worst observed, and the running standard error/deviation needed to
// merge two peers' independently measured stats without raw samples.
type LatencyStats struct {
	MeanMs   float64
	WorstMs  float64
	StdErrMs float64
	StdDevMs float64
	Samples  uint32
}

// PingStats is what each side reports once its local ping measurement
// window closes.
type PingStats struct {
	Latency    LatencyStats
	PacketLoss float64
}

func (m PingStats) Type() MessageType { return TypePingStats }

// NetplayConfig is the negotiated, host-decided outcome of the handshake:
// input delay, rollback window, and the session id both peers must agree
// on before unblocking the UI.
type NetplayConfig struct {
	Mode          Mode
	Delay         uint8
	Rollback      uint8
	RollbackDelay uint8
	WinCount      uint8
	HostPlayer    uint8
	SessionID     string
	Names         [2]string
}

func (m NetplayConfig) Type() MessageType { return TypeNetplayConfig }

// ConfirmConfig is the UI-confirmation echo: a peer sends back the
// session id it received to prove both sides are looking at the same
// negotiated config before igniting the game process.
type ConfirmConfig struct {
	SessionID string
}

func (m ConfirmConfig) Type() MessageType { return TypeConfirmConfig }

// GameStateSnapshot is the minimal in-progress game state a late-joining
// spectator needs to render the current match instead of a blank screen.
type GameStateSnapshot struct {
	NetplayState uint8
	Stage        uint8
	Characters   [2]uint8
	Frame        uint32
}

// SpectateConfig bundles the negotiated config with a live snapshot and is
// sent, zlib-compressed, to every spectator that joins after the match
// has already started.
type SpectateConfig struct {
	Config NetplayConfig
	State  GameStateSnapshot
}

func (m SpectateConfig) Type() MessageType { return TypeSpectateConfig }

// ErrorMessage terminates a handshake or session with a human-readable
// reason, mirroring gpgnet's GameFull/GameEnded-style error signaling.
type ErrorMessage struct {
	Code   string
	Reason string
}

func (m ErrorMessage) Type() MessageType { return TypeErrorMessage }

// PlayerInputs, BothInputs, MenuIndex, InitialGameState, RngState and
// ChangeConfig are forwarded opaquely between the control channel and the
// attached game's IPC channel once the handshake has completed; the
// adapter does not interpret their payloads, only relays them.
type PlayerInputs struct {
	Frame uint32
	Data  []byte
}

func (m PlayerInputs) Type() MessageType { return TypePlayerInputs }

type BothInputs struct {
	Frame uint32
	P1    []byte
	P2    []byte
}

func (m BothInputs) Type() MessageType { return TypeBothInputs }

type MenuIndex struct {
	Index uint8
}

func (m MenuIndex) Type() MessageType { return TypeMenuIndex }

type InitialGameState struct {
	State GameStateSnapshot
}

func (m InitialGameState) Type() MessageType { return TypeInitialGameState }

type RngState struct {
	Seed uint64
}

func (m RngState) Type() MessageType { return TypeRngState }

type ChangeConfig struct {
	Delay         uint8
	Rollback      uint8
	RollbackDelay uint8
}

func (m ChangeConfig) Type() MessageType { return TypeChangeConfig }
