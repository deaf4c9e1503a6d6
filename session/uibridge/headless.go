package uibridge

import (
	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/protocol"
)

// Headless auto-confirms whatever config it's shown, just logging it —
// used for dummy/autopilot runs and for integration tests that don't want
// to drive a real UI surface.
type Headless struct {
	bridge *Bridge
}

func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) Bind(bridge *Bridge) { h.bridge = bridge }

func (h *Headless) ShowConfig(cfg protocol.NetplayConfig) {
	applog.Info("Auto-confirming negotiated config", zap.String("sessionId", cfg.SessionID))
	if h.bridge != nil {
		h.bridge.Confirm()
	}
}

func (h *Headless) ShowState(status string) {
	applog.Debug("Session status", zap.String("status", status))
}

func (h *Headless) Close() {}
