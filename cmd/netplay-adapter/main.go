package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"netplay-adapter/applog"
	"netplay-adapter/diagnostics"
	"netplay-adapter/inputhook"
	"netplay-adapter/netplayconfig"
	"netplay-adapter/session"
	"netplay-adapter/session/uibridge"
	"netplay-adapter/session/uibridge/hostwindow"
	"netplay-adapter/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	cfg, err := netplayconfig.NewFromFlags()
	if err != nil {
		fmt.Printf("Failed to parse configuration: %v\n", err)
		return
	}

	if err := applog.Initialize(cfg.SessionID, 0, cfg.LogLevel, cfg.LogPath); err != nil {
		fmt.Printf("Failed to initialize app logger: %v\n", err)
	}
	defer applog.Shutdown()
	defer util.WrapAppContextCancelExitMessage(ctx, "netplay-adapter")

	if err := cfg.Validate(); err != nil {
		applog.Error("Failed to validate command line arguments", zap.Error(err))
		return
	}

	applog.LogStartupInfo(cfg)

	// The Tk window owns the process's main thread for its event loop, so
	// it's built here rather than through uibridge.NewSurface.
	var window *hostwindow.Window
	var surface uibridge.Surface
	if cfg.UiSurface == "window" {
		window = hostwindow.New()
		surface = window
	} else {
		surface, err = uibridge.NewSurface(cfg.UiSurface)
		if err != nil {
			applog.Error("Failed to build UI surface", zap.Error(err))
			return
		}
	}

	controller, err := session.NewController(cfg, surface)
	if err != nil {
		applog.Error("Failed to build session controller", zap.Error(err))
		return
	}
	defer controller.Stop(nil)

	if cfg.DiagnosticsAddr != "" {
		sink, err := diagnostics.NewSink(cfg.DiagnosticsAddr)
		if err != nil {
			applog.Warn("Failed to start diagnostics sink", zap.Error(err))
		} else {
			defer sink.Close()
			controller.SetDiagnostics(sink)
		}
	}

	// The headless surface has no event loop of its own to read Escape
	// from, unlike the TUI (bubbletea raw mode) and window (Tk) surfaces,
	// so it's the only one that needs the stdin fallback hook.
	if cfg.UiSurface == "headless" {
		hook := inputhook.NewStdinHook(ctx)
		go func() {
			for k := range hook.Events() {
				if k == inputhook.KeyEscape {
					applog.Info("Escape received, cancelling session")
					cancel()
				}
			}
		}()
	}

	go func() {
		if err := controller.Start(ctx); err != nil {
			applog.Error("Session failed", zap.Error(err))
			cancel()
			return
		}
		applog.Info("Session established", zap.String("sessionId", controller.Result().SessionID))
	}()

	if window != nil {
		window.Run()
		return
	}

	<-ctx.Done()
}
