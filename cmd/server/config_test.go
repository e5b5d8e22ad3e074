package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 3306, cfg.Port)
	assert.Empty(t, cfg.BaseDir)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "name", cfg.Auth.NameClaim)
	assert.Equal(t, "SheetDB <sheetdb@localhost>", cfg.Identity.identity().String())
	assert.False(t, cfg.TLS.enabled())
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheetdb.yaml")
	yaml := `
port: 4000
base_dir: /data/sheets
log:
  level: debug
auth:
  enabled: true
  jwt_secret: from-file
s3:
  region: eu-west-1
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))
	t.Setenv("SHEETDB_AUTH_JWT_SECRET", "from-env")

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "5000"}))

	cfg, err := LoadConfig(path, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "/data/sheets", cfg.BaseDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	t.Chdir(t.TempDir())
	t.Setenv("SHEETDB_AUTH_ENABLED", "true")
	_, err = LoadConfig("", nil)
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "table", "tasks")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"table":"tasks"`)
}
