package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "lexgate" {
		t.Errorf("expected Name=lexgate, got %s", cfg.Name)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("expected Port=8090, got %d", cfg.Server.Port)
	}
	if cfg.Provider.DefaultMaxResults != 15 {
		t.Errorf("expected DefaultMaxResults=15, got %d", cfg.Provider.DefaultMaxResults)
	}
	if cfg.Browser.GetNavigationTimeout() != 30*time.Second {
		t.Errorf("expected 30s navigation timeout, got %v", cfg.Browser.GetNavigationTimeout())
	}
	if cfg.GetResultWait() != 15*time.Second {
		t.Errorf("expected 15s result wait, got %v", cfg.GetResultWait())
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
}

func TestLoadFileKeepsSecretOutOfYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "lexgate.yaml")
	yml := "server:\n  port: 9999\n  shared_secret: from-file\nprovider:\n  grace_delay: 500ms\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, loaded.Server.Port)
	assert.Equal(t, 500*time.Millisecond, loaded.GetGraceDelay())
	assert.Empty(t, loaded.Server.SharedSecret, "the shared secret only comes from the environment")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "lexgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\nbrowser:\n  bin: /usr/bin/chromium\n"), 0644))

	t.Setenv("LEXGATE_PORT", "8123")
	t.Setenv("LEXGATE_SHARED_SECRET", "s3cret")
	t.Setenv("LEXGATE_BROWSER_BIN", "/opt/chrome/chrome")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.SharedSecret)
	assert.Equal(t, "/opt/chrome/chrome", cfg.Browser.Bin)
	assert.Equal(t, "0.0.0.0:8123", cfg.Addr())
}

func TestInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.Validate(), "missing secret must fail")

	cfg.Server.SharedSecret = "x"
	require.NoError(t, cfg.Validate())

	cfg.Browser.MaxPages = 0
	require.Error(t, cfg.Validate())
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.SearchTimeout = "soon"
	cfg.Provider.PollInterval = "-1s"
	assert.Equal(t, 90*time.Second, cfg.GetSearchTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.GetPollInterval())
}

func TestLoggingCategoryToggles(t *testing.T) {
	lc := LoggingConfig{Level: "warn", Categories: map[string]bool{"extract": false}}
	opts := lc.Options()
	assert.Equal(t, "warn", opts.Level)
	assert.Equal(t, lc.Categories, opts.Categories)
}

// clearEnv keeps a developer's shell from leaking into Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LEXGATE_HOST", "LEXGATE_PORT", "LEXGATE_SHARED_SECRET",
		"LEXGATE_BROWSER_BIN", "LEXGATE_BROWSER_NO_SANDBOX", "LEXGATE_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
