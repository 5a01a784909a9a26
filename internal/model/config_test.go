package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, GatewayLocal, cfg.Gateway.Kind)
	assert.Equal(t, 60, cfg.Display.PollIntervalSec)
	assert.True(t, cfg.Display.SortNewestFirst)
	assert.Equal(t, "session-token", cfg.Session.TokenKey)
	assert.Equal(t, "INBOX", cfg.Gateway.Mailbox.Folder)
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
gateway:
  kind: http
  base_url: http://localhost:8080
session:
  user_id: nurse-7
display:
  poll_interval_sec: 15
  optimistic_reads: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, GatewayHTTP, cfg.Gateway.Kind)
	assert.Equal(t, "http://localhost:8080", cfg.Gateway.BaseURL)
	assert.Equal(t, "nurse-7", cfg.Session.UserID)
	assert.Equal(t, 15, cfg.Display.PollIntervalSec)
	assert.True(t, cfg.Display.OptimisticReads)
	// Unset keys keep their defaults.
	assert.Equal(t, "session-token", cfg.Session.TokenKey)
}

func TestLoadConfigRejectsUnknownGateway(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway:\n  kind: carrier-pigeon\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "unknown gateway kind")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.Session.UserID = "u1"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "u1", loaded.Session.UserID)
	assert.Equal(t, cfg.Gateway.DBPath, loaded.Gateway.DBPath)
}
