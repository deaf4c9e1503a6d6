package protocol

import (
	"encoding/binary"
	"fmt"
)

// DatagramType distinguishes UDP payloads on the data channel, the same
// way moho.State tags a Forged Alliance packet.
type DatagramType uint8

const (
	DatagramPing DatagramType = iota
	DatagramPong
	DatagramGameData
)

// DatagramHeaderSize is the fixed prefix every UDP datagram carries ahead
// of its payload: type (1) + sequence (4) + sent-at nanos (8).
const DatagramHeaderSize = 1 + 4 + 8

// DatagramMaxSize matches the conservative MTU budget moho.PacketMaxSize
// uses to stay clear of IP fragmentation on typical home routers.
const DatagramMaxSize = 512
const DatagramMaxPayload = DatagramMaxSize - DatagramHeaderSize

// Datagram is a single UDP packet on the data channel. Ping/Pong ride it
// with an empty payload; in-game input state rides it as DatagramGameData.
type Datagram struct {
	Type         DatagramType
	Sequence     uint32
	SentAtUnixNs int64
	Payload      []byte
}

func (d Datagram) Marshal() ([]byte, error) {
	if len(d.Payload) > DatagramMaxPayload {
		return nil, fmt.Errorf("protocol: datagram payload %d exceeds max %d", len(d.Payload), DatagramMaxPayload)
	}
	buf := make([]byte, DatagramHeaderSize+len(d.Payload))
	buf[0] = byte(d.Type)
	binary.LittleEndian.PutUint32(buf[1:5], d.Sequence)
	binary.LittleEndian.PutUint64(buf[5:13], uint64(d.SentAtUnixNs))
	copy(buf[DatagramHeaderSize:], d.Payload)
	return buf, nil
}

func UnmarshalDatagram(b []byte) (Datagram, error) {
	if len(b) < DatagramHeaderSize {
		return Datagram{}, fmt.Errorf("protocol: datagram shorter than header (%d bytes)", len(b))
	}
	d := Datagram{
		Type:         DatagramType(b[0]),
		Sequence:     binary.LittleEndian.Uint32(b[1:5]),
		SentAtUnixNs: int64(binary.LittleEndian.Uint64(b[5:13])),
	}
	if len(b) > DatagramHeaderSize {
		d.Payload = append([]byte(nil), b[DatagramHeaderSize:]...)
	}
	return d, nil
}
