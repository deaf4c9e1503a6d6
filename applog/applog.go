// Package applog provides the structured logger shared by every component of
// the netplay adapter: the session reactor, the process host, the UI bridge
// surfaces and the CLI entry points.
package applog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"netplay-adapter/build"
)

type Logger = zap.Logger

// LogEntry pairs a zap entry with its fields so it can be replayed onto a
// different core (async sink, remote sink) after the original call frame is
// gone.
type LogEntry struct {
	Entry  *zapcore.Entry
	Fields []zap.Field
}

// RemoteLogSender ships batches of log entries somewhere outside the
// process. The diagnostics package is the default implementation.
type RemoteLogSender interface {
	WriteLogEntryToRemote(entries []*LogEntry) error
}

func Info(msg string, fields ...zapcore.Field)  { globalLogger.WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...) }
func Warn(msg string, fields ...zapcore.Field)  { globalLogger.WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...) }
func Debug(msg string, fields ...zapcore.Field) { globalLogger.WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...) }
func Error(msg string, fields ...zapcore.Field) { globalLogger.WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...) }
func Fatal(msg string, fields ...zapcore.Field) { globalLogger.WithOptions(zap.AddCallerSkip(1)).Fatal(msg, fields...) }

// NoRemote returns a logger that never reaches the remote sink, used inside
// the remote sink's own error paths to avoid recursive shipping.
func NoRemote() *Logger {
	if noRemoteLogger != nil {
		return noRemoteLogger.WithOptions(zap.AddCallerSkip(1))
	}
	return globalLogger.WithOptions(zap.AddCallerSkip(1))
}

func GetLogger() *Logger {
	return globalLogger
}

// LogStartupInfo records the build commit and the launch configuration once
// at process start.
func LogStartupInfo(launchArgs interface{}) {
	buildInfo := build.GetBuildInfo()
	commit := "unknown"
	if buildInfo != nil && buildInfo.CommitHash != "" {
		commit = buildInfo.CommitHash
	}

	Info("netplay adapter started",
		zap.String("buildCommit", commit),
		zap.Any("launchArgs", launchArgs),
	)
}

var (
	globalLogger    *Logger
	noRemoteLogger  *Logger
	logFile         *os.File
	asyncSinks      []*asyncSink
	activeRemote    *remoteSink
	acceptingLogs   = true
)

func init() {
	globalLogger = fallbackLogger()
	noRemoteLogger = globalLogger
}

func fallbackLogger() *Logger {
	core := zapcore.NewCore(jsonEncoder(), zapcore.AddSync(os.Stdout), zapcore.DebugLevel)
	return zap.New(core, zap.AddCaller())
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	return zapcore.NewJSONEncoder(cfg)
}

// Initialize sets up the console+file async-sink logger for one session. The
// log file is named after the session and local user so concurrent sessions
// on the same machine (host + spectators under test) don't clobber each
// other's logs.
func Initialize(sessionID string, userID uint, rawLogLevel int, logPath string) error {
	dir := logPath
	if dir == "" {
		workdir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(workdir, "logs")
	}

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilename := filepath.Join(dir, fmt.Sprintf("session_%s_user_%d.log", sessionID, userID))

	f, err := os.OpenFile(logFilename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file '%s': %w", logFilename, err)
	}
	logFile = f

	level := zapcore.Level(rawLogLevel)

	consoleAsync := newAsyncSink(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(os.Stdout), level), 1024)
	fileAsync := newAsyncSink(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(f), level), 1024)
	asyncSinks = []*asyncSink{consoleAsync, fileAsync}

	combined := zapcore.NewTee(consoleAsync, fileAsync, remoteForwardingCore{})
	l := zap.New(combined, zap.AddCaller()).With(
		zap.String("sessionId", sessionID),
		zap.Uint("localUserId", userID),
	)

	globalLogger = l
	noRemoteLogger = l
	acceptingLogs = true
	zap.ReplaceGlobals(l)

	return nil
}

// SetRemoteLogSender wires a RemoteLogSender (e.g. diagnostics.Client) so
// warning-and-above entries are also shipped off-box. It is a no-op sender
// until explicitly enabled by configuration (consent-gated, spec §6).
func SetRemoteLogSender(sender RemoteLogSender) {
	activeRemote = newRemoteSink(sender, 512, jsonEncoderConfig())
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	return cfg
}

// Shutdown drains the async sinks, flushes any remote sink, and closes the
// log file. Safe to call multiple times.
func Shutdown() {
	acceptingLogs = false

	for _, s := range asyncSinks {
		s.Shutdown(2 * time.Second)
	}
	asyncSinks = nil

	if activeRemote != nil {
		activeRemote.Shutdown(2 * time.Second)
		activeRemote = nil
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
