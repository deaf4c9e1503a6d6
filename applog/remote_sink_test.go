package applog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

type fakeRemoteLogSender struct {
	mu      sync.Mutex
	entries [][]*LogEntry
}

func (f *fakeRemoteLogSender) WriteLogEntryToRemote(entries []*LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entries)
	return nil
}

func (f *fakeRemoteLogSender) getEntries() [][]*LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries
}

func warnEntry(msg string) *LogEntry {
	e := zapcore.Entry{Level: zapcore.WarnLevel, Message: msg}
	return &LogEntry{Entry: &e}
}

func TestRemoteSinkWriteAndFlush(t *testing.T) {
	sender := &fakeRemoteLogSender{}
	sink := newRemoteSink(sender, 8, jsonEncoderConfig())
	defer sink.Shutdown(time.Second)

	sink.Write(warnEntry("first"))
	sink.Shutdown(time.Second)

	assert.NotEmpty(t, sender.getEntries())
}

func TestRemoteSinkBufferOverflow(t *testing.T) {
	sender := &fakeRemoteLogSender{}
	sink := &remoteSink{
		sender:    sender,
		entryChan: make(chan *LogEntry), // unbuffered: any concurrent send without a receiver overflows
		quit:      make(chan struct{}),
		encoder:   zapcore.NewJSONEncoder(jsonEncoderConfig()),
	}

	// Do not start process(); Write must fall back to the default branch.
	sink.Write(warnEntry("dropped"))
	assert.Empty(t, sender.getEntries())
}

func TestRemoteSinkShutdown(t *testing.T) {
	sender := &fakeRemoteLogSender{}
	sink := newRemoteSink(sender, 8, jsonEncoderConfig())

	sink.Write(warnEntry("before shutdown"))

	done := make(chan struct{})
	go func() {
		sink.Shutdown(time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown blocked")
	}
}

func TestRemoteForwardingCoreIgnoresBelowWarnLevel(t *testing.T) {
	sender := &fakeRemoteLogSender{}
	activeRemote = newRemoteSink(sender, 8, jsonEncoderConfig())
	defer func() {
		activeRemote.Shutdown(time.Second)
		activeRemote = nil
	}()

	core := remoteForwardingCore{}
	assert.False(t, core.Enabled(zapcore.DebugLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}
