package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, 4002, cfg.Port)
	require.Equal(t, float64(50), cfg.MessageRate)
	require.Equal(t, 10, cfg.MaxReconnectAttempts)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TWS_HOST", "gateway.internal")
	t.Setenv("TWS_PORT", "7497")
	t.Setenv("TWS_CLIENT_ID", "7")
	t.Setenv("TWS_READ_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "gateway.internal", cfg.Host)
	require.Equal(t, 7497, cfg.Port)
	require.Equal(t, 7, cfg.ClientID)
	require.Equal(t, 250*time.Millisecond, cfg.ReadTimeout)
}

func TestYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tws.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: yaml-host\nmessage_rate: 25\n"), 0o644))
	t.Setenv("TWS_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "yaml-host", cfg.Host)
	require.Equal(t, float64(25), cfg.MessageRate)
	// Env defaults survive for keys the file does not set.
	require.Equal(t, 4002, cfg.Port)
}

func TestYAMLOverlayBadFile(t *testing.T) {
	t.Setenv("TWS_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}
