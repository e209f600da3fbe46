package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "commissions.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SchemeTTL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
database:
  path: ":memory:"
log:
  level: debug
  format: json
cache:
  scheme_ttl: 30s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30*time.Second, cfg.Cache.SchemeTTL)

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := config.Load(t.TempDir())

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := config.Config{
		Server:   config.ServerConfig{Port: 80},
		Database: config.DatabaseConfig{Path: "x.db"},
		Log:      config.LogConfig{Level: "error"},
	}
	assert.NoError(t, ok.Validate())

	noPath := ok
	noPath.Database.Path = ""
	assert.Error(t, noPath.Validate())

	badPort := ok
	badPort.Server.Port = 70000
	assert.Error(t, badPort.Validate())
}
