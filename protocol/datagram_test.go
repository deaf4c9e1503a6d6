package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/protocol"
)

func TestDatagram_MarshalUnmarshalRoundTrip(t *testing.T) {
	original := protocol.Datagram{
		Type:         protocol.DatagramPing,
		Sequence:     42,
		SentAtUnixNs: 1723000000000000000,
		Payload:      []byte{1, 2, 3, 4},
	}

	raw, err := original.Marshal()
	assert.NoError(t, err)

	decoded, err := protocol.UnmarshalDatagram(raw)
	assert.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDatagram_EmptyPayload(t *testing.T) {
	original := protocol.Datagram{Type: protocol.DatagramPong, Sequence: 1, SentAtUnixNs: 5}

	raw, err := original.Marshal()
	assert.NoError(t, err)

	decoded, err := protocol.UnmarshalDatagram(raw)
	assert.NoError(t, err)
	assert.Equal(t, protocol.DatagramPong, decoded.Type)
	assert.Nil(t, decoded.Payload)
}

func TestDatagram_PayloadTooLarge(t *testing.T) {
	original := protocol.Datagram{
		Type:    protocol.DatagramGameData,
		Payload: make([]byte, protocol.DatagramMaxPayload+1),
	}

	_, err := original.Marshal()
	assert.Error(t, err)
}

func TestUnmarshalDatagram_TooShort(t *testing.T) {
	_, err := protocol.UnmarshalDatagram([]byte{1, 2, 3})
	assert.Error(t, err)
}
