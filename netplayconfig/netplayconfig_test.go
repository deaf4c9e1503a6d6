package netplayconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyOverlay_FillsOnlyEmptyFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(`
local_name = "overlay-name"
relay_addr = "relay.example.com:4000"
max_spectators = 16
`), 0644)
	assert.NoError(t, err)

	cfg := &Config{UiSurface: "headless"}
	assert.NoError(t, cfg.applyOverlay(path))

	assert.Equal(t, "overlay-name", cfg.LocalName)
	assert.Equal(t, "relay.example.com:4000", cfg.RelayAddr)
	assert.Equal(t, 16, cfg.MaxSpectators)
}

func TestValidate_RequiresLocalName(t *testing.T) {
	cfg := &Config{RemoteAddr: "x:1", GamePath: "game"}
	assert.Error(t, cfg.Validate())
}

func TestValidate_AttachAndGamePathMutuallyExclusive(t *testing.T) {
	cfg := &Config{LocalName: "a", IsHost: true, Attach: true, GamePath: "game"}
	assert.Error(t, cfg.Validate())
}

func TestValidate_DummyDoesNotRequireGamePath(t *testing.T) {
	cfg := &Config{LocalName: "a", IsHost: true, Dummy: true, WinCount: 2}
	assert.NoError(t, cfg.Validate())
}
