package util

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"netplay-adapter/applog"
)

// PtrValueOrDef dereferences a pointer or returns a default when it is nil,
// used for optional wire fields that may legitimately be absent.
func PtrValueOrDef[T any](value *T, def T) T {
	if value == nil {
		return def
	}
	return *value
}

// WrapAppContextCancelExitMessage logs why the process is exiting: either
// the root context was cancelled (signal, fatal error) or the run loop
// returned cleanly.
func WrapAppContextCancelExitMessage(ctx context.Context, appName string) {
	if err := ctx.Err(); err != nil {
		applog.Info(fmt.Sprintf("%s exited; context cancelled", appName), zap.Error(err))
		return
	}
	applog.Info(fmt.Sprintf("%s exited", appName))
}

// DataToHex renders a byte buffer the way the packet dump and diagnostics
// sinks print wire payloads in logs.
func DataToHex(buffer []byte) string {
	parts := make([]string, len(buffer))
	for i, b := range buffer {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// HexStrToData is the inverse of DataToHex, used by tests that assert on
// logged/dumped payloads.
func HexStrToData(hexStr string) []byte {
	if hexStr == "" {
		return nil
	}
	parts := strings.Split(hexStr, " ")
	data := make([]byte, len(parts))
	for i, part := range parts {
		b, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return nil
		}
		data[i] = byte(b)
	}
	return data
}
