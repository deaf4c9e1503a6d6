// Package inputhook lets the session controller react to a player
// pressing Escape (abort) or F8 (toggle diagnostics overlay) without
// depending on any particular UI surface owning the keyboard. No example
// in the retrieved pack targets OS-level key hooking, so this stays a
// small interface over the standard library's stdin reader, matching the
// teacher's own util.CancelableIoReader for the one other place it reads
// interactive input (the launcher emulator's command console).
package inputhook

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"netplay-adapter/util"
)

// Key identifies a hookable key. A graphical UiSurface can drive this via
// its own event loop; the stdin fallback maps line input to these.
type Key int

const (
	KeyEscape Key = iota
	KeyF8
)

// Hook is the session controller's view of a keyboard source.
type Hook interface {
	// Events returns a channel of key presses; closed when the hook stops.
	Events() <-chan Key
}

// StdinHook maps typed commands ("esc", "f8") on stdin to key events,
// used by headless runs and tests where no graphical surface owns input.
type StdinHook struct {
	events chan Key
}

func NewStdinHook(ctx context.Context) *StdinHook {
	return NewHookFromReader(ctx, os.Stdin)
}

// NewHookFromReader lets tests drive the hook from an in-memory reader
// instead of the real stdin.
func NewHookFromReader(ctx context.Context, r io.Reader) *StdinHook {
	h := &StdinHook{events: make(chan Key, 8)}
	go h.run(ctx, r)
	return h
}

func (h *StdinHook) run(ctx context.Context, r io.Reader) {
	defer close(h.events)

	reader := util.NewCancelableIoReader(ctx, r)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "esc", "escape":
			h.send(ctx, KeyEscape)
		case "f8":
			h.send(ctx, KeyF8)
		}
	}
}

func (h *StdinHook) send(ctx context.Context, k Key) {
	select {
	case h.events <- k:
	case <-ctx.Done():
	}
}

func (h *StdinHook) Events() <-chan Key { return h.events }
