package applog

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const remoteSinkBatchSizeLimit = 16 * 1024

// remoteSink batches warning-and-above entries and hands them to a
// RemoteLogSender (diagnostics.Client in production). It never blocks the
// caller: a full buffer just drops the entry and logs through NoRemote.
type remoteSink struct {
	sender    RemoteLogSender
	entryChan chan *LogEntry
	quit      chan struct{}
	wg        sync.WaitGroup
	batch     []*LogEntry
	batchSize int
	encoder   zapcore.Encoder
}

func newRemoteSink(sender RemoteLogSender, bufferSize int, encoderConfig zapcore.EncoderConfig) *remoteSink {
	s := &remoteSink{
		sender:    sender,
		entryChan: make(chan *LogEntry, bufferSize),
		quit:      make(chan struct{}),
		encoder:   zapcore.NewJSONEncoder(encoderConfig),
	}

	s.wg.Add(1)
	go s.process()
	return s
}

func (rs *remoteSink) Write(entry *LogEntry) {
	if entry.Entry == nil || entry.Entry.Level < zapcore.WarnLevel {
		return
	}

	select {
	case rs.entryChan <- entry:
	default:
		NoRemote().Warn("remote log sink buffer overflow, dropping entry")
	}
}

func (rs *remoteSink) process() {
	defer rs.wg.Done()
	for {
		select {
		case entry := <-rs.entryChan:
			rs.enqueue(entry)
		case <-rs.quit:
			rs.flush()
			return
		}
	}
}

func (rs *remoteSink) enqueue(entry *LogEntry) {
	size := rs.entrySize(entry)
	if size <= 0 {
		NoRemote().Error("dropping unserializable remote log entry")
		return
	}

	if rs.batchSize+size > remoteSinkBatchSizeLimit && len(rs.batch) > 0 {
		rs.flush()
	}

	rs.batch = append(rs.batch, entry)
	rs.batchSize += size

	if rs.batchSize >= remoteSinkBatchSizeLimit {
		rs.flush()
	}
}

func (rs *remoteSink) entrySize(e *LogEntry) int {
	buf, err := rs.encoder.EncodeEntry(*e.Entry, e.Fields)
	if err != nil {
		return 0
	}
	defer buf.Free()
	return buf.Len()
}

func (rs *remoteSink) flush() {
	if len(rs.batch) == 0 {
		return
	}

	if err := rs.sender.WriteLogEntryToRemote(rs.batch); err != nil {
		NoRemote().Warn("failed to ship log batch to remote sink", zap.Error(err))
	}

	rs.batch = nil
	rs.batchSize = 0
}

func (rs *remoteSink) Shutdown(timeout time.Duration) {
	close(rs.quit)
	done := make(chan struct{})
	go func() {
		rs.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// remoteForwardingCore is a permanent member of the logger's core Tee. It is
// a cheap no-op until SetRemoteLogSender installs a live remoteSink, so
// enabling remote log sharing mid-session needs no logger rebuild.
type remoteForwardingCore struct{}

func (remoteForwardingCore) Enabled(lvl zapcore.Level) bool { return lvl >= zapcore.WarnLevel }

func (c remoteForwardingCore) With(_ []zap.Field) zapcore.Core { return c }

func (c remoteForwardingCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c remoteForwardingCore) Write(entry zapcore.Entry, fields []zap.Field) error {
	if activeRemote != nil {
		activeRemote.Write(&LogEntry{Entry: &entry, Fields: fields})
	}
	return nil
}

func (c remoteForwardingCore) Sync() error { return nil }
