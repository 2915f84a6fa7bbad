package server

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("TRAVELS_TEST_PORT", "8080")
	path := writeConfig(t, `
bind: ":${TRAVELS_TEST_PORT}"
admin_bind: "127.0.0.1:9090"
keep_alive: false
workers: 4
read_timeout: 2s
log_level: debug
log_format: json
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Bind)
	assert.Equal(t, "127.0.0.1:9090", cfg.AdminBind)
	assert.False(t, cfg.KeepAlive)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/data/data.zip", cfg.DataFile)
}

func TestLoadConfigNumThreadsAlias(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "num_threads: 6\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Workers)

	cfg, err = LoadConfig(writeConfig(t, "num_threads: 6\nworkers: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeConfig(t, "bnid: \":80\"\n"))
	assert.ErrorContains(t, err, "bnid")

	_, err = LoadConfig(writeConfig(t, "workers: -1\nlog_level: loud\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "workers")
	assert.ErrorContains(t, err, "log_level")
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	cfg.LogFormat = "xml"
	_, err = cfg.NewLogger(&buf)
	assert.Error(t, err)
}
