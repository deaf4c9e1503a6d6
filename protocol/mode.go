package protocol

// ClientKind distinguishes the role a peer plays in a session.
type ClientKind uint8

const (
	ClientKindHost ClientKind = iota
	ClientKindGuest
	ClientKindSpectator
)

func (k ClientKind) String() string {
	switch k {
	case ClientKindHost:
		return "host"
	case ClientKindGuest:
		return "guest"
	case ClientKindSpectator:
		return "spectator"
	default:
		return "unknown"
	}
}

// ClientFlags carries session-establishment options that don't warrant
// their own field: attach-to-running-game, dummy/autopilot mode, etc.
type ClientFlags uint8

const (
	FlagAttach ClientFlags = 1 << iota
	FlagDummy
	FlagRelay
	// FlagGameStarted marks a host's VersionConfig once its match is
	// running, telling a freshly-connecting peer to auto-morph into a
	// spectator instead of attempting to negotiate a new match.
	FlagGameStarted
)

// Mode packs a client's role and its option flags into the single value
// exchanged in VersionConfig and NetplayConfig.
type Mode struct {
	Kind  ClientKind
	Flags ClientFlags
}

func (m Mode) IsHost() bool      { return m.Kind == ClientKindHost }
func (m Mode) IsSpectate() bool  { return m.Kind == ClientKindSpectator }
func (m Mode) IsGuest() bool     { return m.Kind == ClientKindGuest }
func (m Mode) HasFlag(f ClientFlags) bool { return m.Flags&f != 0 }

func (m Mode) WithFlag(f ClientFlags) Mode {
	m.Flags |= f
	return m
}

// pack/unpack let Mode travel as a single byte on the wire (upper nibble
// flags, lower nibble kind) instead of two separate fields.
func (m Mode) pack() byte {
	return byte(m.Kind) | byte(m.Flags)<<4
}

func unpackMode(b byte) Mode {
	return Mode{
		Kind:  ClientKind(b & 0x0F),
		Flags: ClientFlags(b >> 4),
	}
}
