// Package diagnostics ships warn-and-above log entries and decoded
// datagram dumps to a local UDP listener for live debugging, generalizing
// util.DumpPacket's packet-to-structured-log pattern from a pure logging
// call into an actual fire-and-forget network sink a developer can tail
// with a second process.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
	"netplay-adapter/util"
)

// DefaultAddr is the loopback diagnostics listener address. Nothing
// sensitive crosses this socket; it never leaves localhost.
const DefaultAddr = "127.0.0.1:17474"

// DumpDirection mirrors util.DumpDirection.
type DumpDirection uint8

const (
	DumpDirectionFromPeer DumpDirection = iota
	DumpDirectionToGame
)

// Sink is a fire-and-forget UDP emitter for diagnostics; a missing or
// unreachable listener is never an error worth surfacing to the session.
type Sink struct {
	conn *net.UDPConn
}

// NewSink dials addr over UDP. Dialing a UDP socket never blocks or fails
// on an absent listener — packets are simply dropped by the kernel until
// something is listening.
func NewSink(addr string) (*Sink, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: resolve %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: dial %q: %w", addr, err)
	}
	return &Sink{conn: conn}, nil
}

func (s *Sink) Close() error {
	return s.conn.Close()
}

type envelope struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

func (s *Sink) emit(kind string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	raw, err := json.Marshal(envelope{Kind: kind, Timestamp: time.Now(), Payload: body})
	if err != nil {
		return
	}
	_, _ = s.conn.Write(raw)
}

// DumpDatagram mirrors util.DumpPacket: it logs a decoded datagram at
// debug level the way the teacher always did, and additionally emits it
// to the diagnostics sink for a live external viewer.
func (s *Sink) DumpDatagram(d protocol.Datagram, addr *net.UDPAddr, dir DumpDirection) {
	directionField := "sentTo"
	if dir == DumpDirectionFromPeer {
		directionField = "receivedFrom"
	}

	applog.Debug("datagram",
		zap.String(directionField, addr.String()),
		zap.Uint8("type", uint8(d.Type)),
		zap.Uint32("sequence", d.Sequence),
		zap.String("payload", util.DataToHex(d.Payload)),
	)

	s.emit("datagram", struct {
		Direction string `json:"direction"`
		Addr      string `json:"addr"`
		Type      uint8  `json:"type"`
		Sequence  uint32 `json:"sequence"`
		Payload   string `json:"payload"`
	}{
		Direction: directionField,
		Addr:      addr.String(),
		Type:      uint8(d.Type),
		Sequence:  d.Sequence,
		Payload:   util.DataToHex(d.Payload),
	})
}

// logEntrySummary is what gets shipped per log line; applog.LogEntry
// carries a *zapcore.Entry plus raw zap.Field values that aren't
// trivially JSON-marshalable on their own.
type logEntrySummary struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// WriteLogEntryToRemote implements applog.RemoteLogSender, letting
// SetRemoteLogSender wire this same sink into the logger for warn+ lines.
func (s *Sink) WriteLogEntryToRemote(entries []*applog.LogEntry) error {
	for _, entry := range entries {
		if entry == nil || entry.Entry == nil {
			continue
		}
		s.emit("log", logEntrySummary{
			Level:   entry.Entry.Level.String(),
			Message: entry.Entry.Message,
			Time:    entry.Entry.Time.Format(time.RFC3339Nano),
		})
	}
	return nil
}
