package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "reports", cfg.Storage.ReportsDir)
	assert.Equal(t, "run-history.json", cfg.Storage.HistoryFile)
	assert.True(t, cfg.Report.GetDarkTheme())
	assert.Equal(t, DefaultRemoteTimeout, cfg.RemoteTimeout())
	assert.Zero(t, cfg.EngineTimeout())
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "custom.yaml", `
server:
  port: 8080
storage:
  reportsDir: out/reports
report:
  darkTheme: false
engine:
  timeout: 5m
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "out/reports", cfg.Storage.ReportsDir)
	assert.Equal(t, "run-history.json", cfg.Storage.HistoryFile)
	assert.False(t, cfg.Report.GetDarkTheme())
	assert.Equal(t, 5*time.Minute, cfg.EngineTimeout())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "bad.yaml", "server: [")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config file")
}

func TestFindAndLoadConfig(t *testing.T) {
	t.Run("no file returns defaults", func(t *testing.T) {
		cfg, err := FindAndLoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("finds hitboard.yml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "hitboard.yml", "server:\n  port: 4000\n")
		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Server.Port)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("HITBOARD_SOURCE", "remote")
	t.Setenv("POSTMAN_API_KEY", "PMAK-123")
	t.Setenv("POSTMAN_COLLECTION_UID", "c-1")
	t.Setenv("POSTMAN_ENVIRONMENT_UID", "e-1")
	t.Setenv("HITBOARD_LEDGER", "sqlite")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, ModeRemote, cfg.Source.Mode)
	assert.Equal(t, "PMAK-123", cfg.Source.Remote.APIKey)
	assert.Equal(t, LedgerSQLite, cfg.Storage.Ledger)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_IgnoresBadPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestResolveSource(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		cfg := DefaultConfig()
		src, err := cfg.ResolveSource()
		require.NoError(t, err)

		local, ok := src.(LocalSource)
		require.True(t, ok)
		assert.Equal(t, ModeLocal, local.Mode())
		assert.Equal(t, "data/collection.json", local.CollectionPath)
	})

	t.Run("remote", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.Mode = "Remote"
		cfg.Source.Remote.CollectionUID = "c"
		cfg.Source.Remote.EnvironmentUID = "e"
		cfg.Source.Remote.APIKey = "k"
		cfg.Source.Remote.BaseURL = "https://example.test/"

		src, err := cfg.ResolveSource()
		require.NoError(t, err)

		remote, ok := src.(RemoteSource)
		require.True(t, ok)
		assert.Equal(t, "https://example.test", remote.BaseURL)
	})

	t.Run("remote missing credential", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.Mode = ModeRemote
		cfg.Source.Remote.CollectionUID = "c"
		cfg.Source.Remote.EnvironmentUID = "e"

		_, err := cfg.ResolveSource()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "POSTMAN_API_KEY")
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.Mode = "ftp"
		_, err := cfg.ResolveSource()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad ledger", func(c *Config) { c.Storage.Ledger = "redis" }, "storage.ledger"},
		{"sqlite without path", func(c *Config) {
			c.Storage.Ledger = LedgerSQLite
			c.Storage.SQLitePath = ""
		}, "sqlitePath"},
		{"bad engine timeout", func(c *Config) { c.Engine.Timeout = "soon" }, "engine.timeout"},
		{"bad notify policy", func(c *Config) { c.Notify.On = "sometimes" }, "notify.on"},
		{"negative rate limit", func(c *Config) { c.Server.RunRateLimit = -1 }, "runRateLimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_NotifyPolicyIgnoresCase(t *testing.T) {
	for _, on := range []string{"Always", " recovery ", "NEVER"} {
		cfg := DefaultConfig()
		cfg.Notify.On = on
		assert.NoError(t, cfg.Validate(), on)
	}
}

func TestPublishConfig_Enabled(t *testing.T) {
	assert.False(t, PublishConfig{}.Enabled())
	assert.False(t, PublishConfig{Endpoint: "s3.local"}.Enabled())
	assert.True(t, PublishConfig{Endpoint: "s3.local", Bucket: "reports"}.Enabled())
}
