// Package gamehost launches the fighting game in "launch mode" (spawning
// the executable with the negotiated IPC port as a launch argument) or
// locates an already-running instance in "attach mode", generalizing
// cmd/faf-launcher-emulator's GameProcess to this domain's game and
// adapting icebreaker.Client's resty usage into an optional session-banner
// fetch the host can display while waiting for a guest.
package gamehost

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"netplay-adapter/applog"
)

// Process wraps the spawned game executable in launch mode.
type Process struct {
	ctx context.Context
	cmd *exec.Cmd
}

// Launch starts the game executable with the IPC port passed as an
// argument, mirroring GameProcess's argv-building shape.
func Launch(ctx context.Context, exePath string, ipcPort uint, extraArgs string) (*Process, error) {
	args := []string{"--netplay-ipc-port", strconv.FormatUint(uint64(ipcPort), 10)}
	if extraArgs != "" {
		args = append(args, strings.Fields(extraArgs)...)
	}

	cmd := exec.CommandContext(ctx, exePath, args...)
	applog.Debug("Launching game process", zap.String("exe", exePath), zap.Strings("args", args))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("gamehost: could not start game process: %w", err)
	}

	return &Process{ctx: ctx, cmd: cmd}, nil
}

func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// Wait blocks until the game process exits, returning its exit error (if
// any), the way the launcher emulator's own goroutine waits on the
// process before triggering a graceful shutdown.
func (p *Process) Wait() error {
	return p.cmd.Wait()
}

// AttachTarget describes an already-running game instance found by attach
// mode, identified by the IPC port it's listening on rather than a
// process handle this adapter owns.
type AttachTarget struct {
	IpcPort uint
}

// Attach does not spawn anything — it simply records the IPC port the
// running game already exposes, since attach mode assumes the game was
// started independently with that port baked into its own config.
func Attach(ipcPort uint) *AttachTarget {
	return &AttachTarget{IpcPort: ipcPort}
}

// BannerClient fetches an optional human-readable session banner (tourney
// name, stream title) from a configured HTTP endpoint, displayed by the UI
// surface while two players are still connecting. This reuses resty the
// same way icebreaker.Client does for FAF's session/token lookups, scaled
// down to a single unauthenticated GET.
type BannerClient struct {
	httpClient *resty.Client
	root       string
}

func NewBannerClient(root string) *BannerClient {
	client := resty.New().SetTimeout(3 * time.Second)
	return &BannerClient{httpClient: client, root: root}
}

type SessionBanner struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (c *BannerClient) FetchBanner(sessionID string) (*SessionBanner, error) {
	if c.root == "" {
		return nil, nil
	}

	var result SessionBanner
	resp, err := c.httpClient.R().
		SetHeader("Content-Type", "application/json").
		SetResult(&result).
		Get(c.root + "/sessions/" + sessionID + "/banner")
	if err != nil {
		return nil, fmt.Errorf("gamehost: fetching session banner failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("gamehost: fetching session banner failed: %s", resp.Status())
	}

	return &result, nil
}

func (c *BannerClient) Close() {
	c.httpClient.Close()
}
