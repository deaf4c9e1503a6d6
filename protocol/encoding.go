package protocol

import "fmt"

// encodeMessage dispatches to the field-level writer for msg's concrete
// type. The type tag itself was already written by StreamWriter.WriteMessage.
func encodeMessage(w *StreamWriter, msg Message) error {
	switch m := msg.(type) {
	case VersionConfig:
		return encodeVersionConfig(w, m)
	case InitialConfig:
		return encodeInitialConfig(w, m)
	case IpAddrPort:
		return encodeIpAddrPort(w, m)
	case PingStats:
		return encodePingStats(w, m)
	case NetplayConfig:
		return encodeNetplayConfig(w, m)
	case ConfirmConfig:
		return encodeConfirmConfig(w, m)
	case SpectateConfig:
		return encodeSpectateConfig(w, m)
	case ErrorMessage:
		return encodeErrorMessage(w, m)
	case PlayerInputs:
		return encodePlayerInputs(w, m)
	case BothInputs:
		return encodeBothInputs(w, m)
	case MenuIndex:
		return encodeMenuIndex(w, m)
	case InitialGameState:
		return encodeInitialGameState(w, m)
	case RngState:
		return encodeRngState(w, m)
	case ChangeConfig:
		return encodeChangeConfig(w, m)
	default:
		return fmt.Errorf("protocol: no encoder registered for %T", msg)
	}
}

func encodeVersionConfig(w *StreamWriter, m VersionConfig) error {
	if err := w.writeString(m.Code); err != nil {
		return err
	}
	if err := w.writeString(m.Revision); err != nil {
		return err
	}
	if err := w.writeString(m.BuildTime); err != nil {
		return err
	}
	return w.writeMode(m.Mode)
}

func decodeVersionConfig(r *StreamReader) (Message, error) {
	code, err := r.readString()
	if err != nil {
		return nil, err
	}
	revision, err := r.readString()
	if err != nil {
		return nil, err
	}
	buildTime, err := r.readString()
	if err != nil {
		return nil, err
	}
	mode, err := r.readMode()
	if err != nil {
		return nil, err
	}
	return VersionConfig{Code: code, Revision: revision, BuildTime: buildTime, Mode: mode}, nil
}

func encodeInitialConfig(w *StreamWriter, m InitialConfig) error {
	if err := w.writeMode(m.Mode); err != nil {
		return err
	}
	if err := w.writeString(m.LocalName); err != nil {
		return err
	}
	if err := w.writeString(m.RemoteName); err != nil {
		return err
	}
	if err := w.writeUint16(m.DataPort); err != nil {
		return err
	}
	return w.writeUint8(m.WinCount)
}

func decodeInitialConfig(r *StreamReader) (Message, error) {
	mode, err := r.readMode()
	if err != nil {
		return nil, err
	}
	localName, err := r.readString()
	if err != nil {
		return nil, err
	}
	remoteName, err := r.readString()
	if err != nil {
		return nil, err
	}
	dataPort, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	winCount, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	return InitialConfig{
		Mode:       mode,
		LocalName:  localName,
		RemoteName: remoteName,
		DataPort:   dataPort,
		WinCount:   winCount,
	}, nil
}

func encodeIpAddrPort(w *StreamWriter, m IpAddrPort) error {
	if err := w.writeString(m.Addr); err != nil {
		return err
	}
	return w.writeUint16(m.Port)
}

func decodeIpAddrPort(r *StreamReader) (Message, error) {
	addr, err := r.readString()
	if err != nil {
		return nil, err
	}
	port, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	return IpAddrPort{Addr: addr, Port: port}, nil
}

func encodeLatencyStats(w *StreamWriter, s LatencyStats) error {
	if err := w.writeFloat64(s.MeanMs); err != nil {
		return err
	}
	if err := w.writeFloat64(s.WorstMs); err != nil {
		return err
	}
	if err := w.writeFloat64(s.StdErrMs); err != nil {
		return err
	}
	if err := w.writeFloat64(s.StdDevMs); err != nil {
		return err
	}
	return w.writeUint32(s.Samples)
}

func decodeLatencyStats(r *StreamReader) (LatencyStats, error) {
	var s LatencyStats
	var err error
	if s.MeanMs, err = r.readFloat64(); err != nil {
		return s, err
	}
	if s.WorstMs, err = r.readFloat64(); err != nil {
		return s, err
	}
	if s.StdErrMs, err = r.readFloat64(); err != nil {
		return s, err
	}
	if s.StdDevMs, err = r.readFloat64(); err != nil {
		return s, err
	}
	if s.Samples, err = r.readUint32(); err != nil {
		return s, err
	}
	return s, nil
}

func encodePingStats(w *StreamWriter, m PingStats) error {
	if err := encodeLatencyStats(w, m.Latency); err != nil {
		return err
	}
	return w.writeFloat64(m.PacketLoss)
}

func decodePingStats(r *StreamReader) (Message, error) {
	latency, err := decodeLatencyStats(r)
	if err != nil {
		return nil, err
	}
	loss, err := r.readFloat64()
	if err != nil {
		return nil, err
	}
	return PingStats{Latency: latency, PacketLoss: loss}, nil
}

func encodeNetplayConfig(w *StreamWriter, m NetplayConfig) error {
	if err := w.writeMode(m.Mode); err != nil {
		return err
	}
	if err := w.writeUint8(m.Delay); err != nil {
		return err
	}
	if err := w.writeUint8(m.Rollback); err != nil {
		return err
	}
	if err := w.writeUint8(m.RollbackDelay); err != nil {
		return err
	}
	if err := w.writeUint8(m.WinCount); err != nil {
		return err
	}
	if err := w.writeUint8(m.HostPlayer); err != nil {
		return err
	}
	if err := w.writeString(m.SessionID); err != nil {
		return err
	}
	if err := w.writeString(m.Names[0]); err != nil {
		return err
	}
	return w.writeString(m.Names[1])
}

func decodeNetplayConfig(r *StreamReader) (Message, error) {
	mode, err := r.readMode()
	if err != nil {
		return nil, err
	}
	delay, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	rollback, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	rollbackDelay, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	winCount, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	hostPlayer, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	sessionID, err := r.readString()
	if err != nil {
		return nil, err
	}
	name0, err := r.readString()
	if err != nil {
		return nil, err
	}
	name1, err := r.readString()
	if err != nil {
		return nil, err
	}
	return NetplayConfig{
		Mode:          mode,
		Delay:         delay,
		Rollback:      rollback,
		RollbackDelay: rollbackDelay,
		WinCount:      winCount,
		HostPlayer:    hostPlayer,
		SessionID:     sessionID,
		Names:         [2]string{name0, name1},
	}, nil
}

func encodeConfirmConfig(w *StreamWriter, m ConfirmConfig) error {
	return w.writeString(m.SessionID)
}

func decodeConfirmConfig(r *StreamReader) (Message, error) {
	sessionID, err := r.readString()
	if err != nil {
		return nil, err
	}
	return ConfirmConfig{SessionID: sessionID}, nil
}

func encodeGameStateSnapshot(w *StreamWriter, s GameStateSnapshot) error {
	if err := w.writeUint8(s.NetplayState); err != nil {
		return err
	}
	if err := w.writeUint8(s.Stage); err != nil {
		return err
	}
	if err := w.writeUint8(s.Characters[0]); err != nil {
		return err
	}
	if err := w.writeUint8(s.Characters[1]); err != nil {
		return err
	}
	return w.writeUint32(s.Frame)
}

func decodeGameStateSnapshot(r *StreamReader) (GameStateSnapshot, error) {
	var s GameStateSnapshot
	var err error
	if s.NetplayState, err = r.readUint8(); err != nil {
		return s, err
	}
	if s.Stage, err = r.readUint8(); err != nil {
		return s, err
	}
	if s.Characters[0], err = r.readUint8(); err != nil {
		return s, err
	}
	if s.Characters[1], err = r.readUint8(); err != nil {
		return s, err
	}
	if s.Frame, err = r.readUint32(); err != nil {
		return s, err
	}
	return s, nil
}

// encodeSpectateConfig zlib-compresses the snapshot bytes before framing
// them, since a spectator join can arrive well into a long match with a
// sizeable accumulated state.
func encodeSpectateConfig(w *StreamWriter, m SpectateConfig) error {
	if err := encodeNetplayConfig(w, m.Config); err != nil {
		return err
	}
	raw, err := marshalGameStateSnapshot(m.State)
	if err != nil {
		return err
	}
	compressed, err := compressBytes(raw)
	if err != nil {
		return err
	}
	return w.writeBytes(compressed)
}

func decodeSpectateConfig(r *StreamReader) (Message, error) {
	cfgMsg, err := decodeNetplayConfig(r)
	if err != nil {
		return nil, err
	}
	cfg := cfgMsg.(NetplayConfig)

	compressed, err := r.readBytes()
	if err != nil {
		return nil, err
	}
	raw, err := decompressBytes(compressed)
	if err != nil {
		return nil, err
	}
	state, err := unmarshalGameStateSnapshot(raw)
	if err != nil {
		return nil, err
	}
	return SpectateConfig{Config: cfg, State: state}, nil
}

func encodeErrorMessage(w *StreamWriter, m ErrorMessage) error {
	if err := w.writeString(m.Code); err != nil {
		return err
	}
	return w.writeString(m.Reason)
}

func decodeErrorMessage(r *StreamReader) (Message, error) {
	code, err := r.readString()
	if err != nil {
		return nil, err
	}
	reason, err := r.readString()
	if err != nil {
		return nil, err
	}
	return ErrorMessage{Code: code, Reason: reason}, nil
}

func encodePlayerInputs(w *StreamWriter, m PlayerInputs) error {
	if err := w.writeUint32(m.Frame); err != nil {
		return err
	}
	return w.writeBytes(m.Data)
}

func decodePlayerInputs(r *StreamReader) (Message, error) {
	frame, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	data, err := r.readBytes()
	if err != nil {
		return nil, err
	}
	return PlayerInputs{Frame: frame, Data: data}, nil
}

func encodeBothInputs(w *StreamWriter, m BothInputs) error {
	if err := w.writeUint32(m.Frame); err != nil {
		return err
	}
	if err := w.writeBytes(m.P1); err != nil {
		return err
	}
	return w.writeBytes(m.P2)
}

func decodeBothInputs(r *StreamReader) (Message, error) {
	frame, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	p1, err := r.readBytes()
	if err != nil {
		return nil, err
	}
	p2, err := r.readBytes()
	if err != nil {
		return nil, err
	}
	return BothInputs{Frame: frame, P1: p1, P2: p2}, nil
}

func encodeMenuIndex(w *StreamWriter, m MenuIndex) error {
	return w.writeUint8(m.Index)
}

func decodeMenuIndex(r *StreamReader) (Message, error) {
	index, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	return MenuIndex{Index: index}, nil
}

func encodeInitialGameState(w *StreamWriter, m InitialGameState) error {
	return encodeGameStateSnapshot(w, m.State)
}

func decodeInitialGameState(r *StreamReader) (Message, error) {
	state, err := decodeGameStateSnapshot(r)
	if err != nil {
		return nil, err
	}
	return InitialGameState{State: state}, nil
}

func encodeRngState(w *StreamWriter, m RngState) error {
	return w.writeUint64(m.Seed)
}

func decodeRngState(r *StreamReader) (Message, error) {
	seed, err := r.readUint64()
	if err != nil {
		return nil, err
	}
	return RngState{Seed: seed}, nil
}

func encodeChangeConfig(w *StreamWriter, m ChangeConfig) error {
	if err := w.writeUint8(m.Delay); err != nil {
		return err
	}
	if err := w.writeUint8(m.Rollback); err != nil {
		return err
	}
	return w.writeUint8(m.RollbackDelay)
}

func decodeChangeConfig(r *StreamReader) (Message, error) {
	delay, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	rollback, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	rollbackDelay, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	return ChangeConfig{Delay: delay, Rollback: rollback, RollbackDelay: rollbackDelay}, nil
}
