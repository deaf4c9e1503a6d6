// Package netplayconfig assembles run configuration from CLI flags and an
// optional on-disk TOML overlay, the way launcher.Info builds its config
// from flags alone, extended here with a file layer for settings a player
// wants to persist between launches (preferred delay bias, relay server,
// UI surface choice).
package netplayconfig

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"netplay-adapter/diagnostics"
)

// Config is everything the session controller needs to start a handshake,
// attach to a running game, or host a spectator feed.
type Config struct {
	LocalName      string
	RemoteAddr     string
	RelayAddr      string
	StunAddr       string
	ListenAddr     string
	IsHost         bool
	IsSpectator    bool
	Attach         bool
	Dummy          bool
	GamePath       string
	GameArgs       string
	WinCount       uint8
	UiSurface      string
	LogLevel       int
	LogPath        string
	SessionID      string
	MaxSpectators  int
	ForceRelay     bool
	StrictVersionLevel int
	MaxRealDelay       uint8
	DiagnosticsAddr    string
}

// FileOverlay is the subset of Config a player can persist to disk; not
// every field (session id, remote address) makes sense to save.
type FileOverlay struct {
	LocalName     string `toml:"local_name"`
	RelayAddr     string `toml:"relay_addr"`
	StunAddr      string `toml:"stun_addr"`
	UiSurface     string `toml:"ui_surface"`
	LogLevel      int    `toml:"log_level"`
	MaxSpectators int    `toml:"max_spectators"`
}

// NewFromFlags parses CLI flags the way launcher.NewInfoFromFlags does,
// then layers in a TOML config file if one is given, with flags always
// taking precedence over file values when both are set.
func NewFromFlags() (*Config, error) {
	localName := flag.String("local-name", "", "Display name to send to the remote peer")
	remoteAddr := flag.String("remote-addr", "", "host:port of the remote peer's control channel")
	relayAddr := flag.String("relay-addr", "", "host:port of the relay server, used if direct UDP fails")
	stunAddr := flag.String("stun-addr", "", "host:port of a STUN server for external address discovery")
	listenAddr := flag.String("listen-addr", "0.0.0.0:0", "address to bind the control channel listener to (host mode)")
	isHost := flag.Bool("host", false, "act as the session host")
	isSpectator := flag.Bool("spectate", false, "join as a spectator instead of a player")
	attach := flag.Bool("attach", false, "attach config into an already-running game instead of launching one")
	dummy := flag.Bool("dummy", false, "run a single-player synthetic session for local testing")
	gamePath := flag.String("game-path", "", "path to the game executable (launch mode)")
	gameArgs := flag.String("game-args", "", "extra arguments passed to the game executable")
	winCount := flag.Uint("win-count", 2, "number of rounds required to win a match")
	uiSurface := flag.String("ui", "headless", "UI surface: headless, tui, or window")
	logLevel := flag.Int("log-level", 0, "log level: -1 trace, 0 info, 1 warn, 2 error, 4 fatal")
	logPath := flag.String("log-path", "", "directory for log files, defaults to the XDG data home")
	configFile := flag.String("config", "", "path to an optional TOML overlay file")
	maxSpectators := flag.Int("max-spectators", 8, "maximum concurrent spectators")
	forceRelay := flag.Bool("force-relay", false, "always use the relay server, skipping the direct UDP attempt")
	strictVersionLevel := flag.Int("strict-version-level", 0, "how many revision prefix characters must match for version compatibility")
	maxRealDelay := flag.Uint("max-real-delay", 8, "maximum input-delay frames tolerated before the session aborts")
	diagnosticsAddr := flag.String("diagnostics-addr", diagnostics.DefaultAddr, "loopback host:port to mirror decoded datagrams and warn+ log entries to (empty disables diagnostics)")

	flag.Parse()

	// A bare-CLI run gets logs under the platform's XDG data home rather
	// than whatever directory the process happened to be launched from, the
	// way a properly-behaved unix tool resolves its own state directory.
	resolvedLogPath := *logPath
	if resolvedLogPath == "" {
		resolvedLogPath = filepath.Join(xdg.DataHome, "netplay-adapter", "logs")
	}

	cfg := &Config{
		LocalName:          *localName,
		RemoteAddr:         *remoteAddr,
		RelayAddr:          *relayAddr,
		StunAddr:           *stunAddr,
		ListenAddr:         *listenAddr,
		IsHost:             *isHost,
		IsSpectator:        *isSpectator,
		Attach:             *attach,
		Dummy:              *dummy,
		GamePath:           *gamePath,
		GameArgs:           *gameArgs,
		WinCount:           uint8(*winCount),
		UiSurface:          *uiSurface,
		LogLevel:           *logLevel,
		LogPath:            resolvedLogPath,
		MaxSpectators:      *maxSpectators,
		ForceRelay:         *forceRelay,
		StrictVersionLevel: *strictVersionLevel,
		MaxRealDelay:       uint8(*maxRealDelay),
		DiagnosticsAddr:    *diagnosticsAddr,
	}

	if *configFile != "" {
		if err := cfg.applyOverlay(*configFile); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyOverlay fills in fields the flags left at their zero value from a
// TOML file on disk; an explicitly-set flag always wins.
func (c *Config) applyOverlay(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var overlay FileOverlay
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return fmt.Errorf("netplayconfig: decode %q: %w", path, err)
	}

	if c.LocalName == "" {
		c.LocalName = overlay.LocalName
	}
	if c.RelayAddr == "" {
		c.RelayAddr = overlay.RelayAddr
	}
	if c.StunAddr == "" {
		c.StunAddr = overlay.StunAddr
	}
	if c.UiSurface == "headless" && overlay.UiSurface != "" {
		c.UiSurface = overlay.UiSurface
	}
	if c.LogLevel == 0 && overlay.LogLevel != 0 {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.MaxSpectators != 0 {
		c.MaxSpectators = overlay.MaxSpectators
	}
	return nil
}

// Validate mirrors launcher.Info.Validate's required-field checks, adapted
// to this domain's required fields.
func (c *Config) Validate() error {
	if c.LocalName == "" {
		return fmt.Errorf("--local-name is required and cannot be empty")
	}
	if !c.IsHost && c.RemoteAddr == "" {
		return fmt.Errorf("--remote-addr is required when not hosting")
	}
	if c.Attach && c.GamePath != "" {
		return fmt.Errorf("--attach and --game-path are mutually exclusive")
	}
	if !c.Attach && !c.Dummy && c.GamePath == "" {
		return fmt.Errorf("--game-path is required unless --attach or --dummy is set")
	}
	if c.WinCount == 0 {
		return fmt.Errorf("--win-count must be greater than zero")
	}
	return nil
}
