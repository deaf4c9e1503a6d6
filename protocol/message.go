package protocol

// MessageType identifies the wire shape of a control-channel message, the
// way gpgnet.MessageCommand identifies a GPGNet command.
type MessageType string

const (
	TypeVersionConfig    MessageType = "VersionConfig"
	TypeInitialConfig    MessageType = "InitialConfig"
	TypeIpAddrPort       MessageType = "IpAddrPort"
	TypePingStats        MessageType = "PingStats"
	TypeNetplayConfig    MessageType = "NetplayConfig"
	TypeConfirmConfig    MessageType = "ConfirmConfig"
	TypeSpectateConfig   MessageType = "SpectateConfig"
	TypeErrorMessage     MessageType = "ErrorMessage"
	TypePlayerInputs     MessageType = "PlayerInputs"
	TypeBothInputs       MessageType = "BothInputs"
	TypeMenuIndex        MessageType = "MenuIndex"
	TypeInitialGameState MessageType = "InitialGameState"
	TypeRngState         MessageType = "RngState"
	TypeChangeConfig     MessageType = "ChangeConfig"
)

// Message is anything that can cross the control channel. Each concrete
// type knows how to encode itself and is registered below with a matching
// decoder, mirroring gpgnet's command-registry/TryParse split but without
// the generic args-slice indirection: each message owns a static layout.
type Message interface {
	Type() MessageType
}

type messageDecoder = func(r *StreamReader) (Message, error)

var messageRegistry = map[MessageType]messageDecoder{
	TypeVersionConfig:    decodeVersionConfig,
	TypeInitialConfig:    decodeInitialConfig,
	TypeIpAddrPort:       decodeIpAddrPort,
	TypePingStats:        decodePingStats,
	TypeNetplayConfig:    decodeNetplayConfig,
	TypeConfirmConfig:    decodeConfirmConfig,
	TypeSpectateConfig:   decodeSpectateConfig,
	TypeErrorMessage:     decodeErrorMessage,
	TypePlayerInputs:     decodePlayerInputs,
	TypeBothInputs:       decodeBothInputs,
	TypeMenuIndex:        decodeMenuIndex,
	TypeInitialGameState: decodeInitialGameState,
	TypeRngState:         decodeRngState,
	TypeChangeConfig:     decodeChangeConfig,
}
