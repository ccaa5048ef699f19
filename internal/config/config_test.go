package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/tether/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tether.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv(config.EnvEncryptionKey, "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, []string{"sampleRate"}, cfg.Topology)
	assert.Equal(t, 2*time.Second, cfg.ConsoleDelay)
}

func TestLoad_File(t *testing.T) {
	path := write(t, `
logLevel: debug
devMode: true
topology: [sampleRate, voices]
consoleDelay: 500ms
host:
  manifest: manifest.yaml
  sampleRate: 48000
redis:
  addr: localhost:6379
  ttl: 1h
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, []string{"sampleRate", "voices"}, cfg.Topology)
	assert.Equal(t, 500*time.Millisecond, cfg.ConsoleDelay)
	assert.Equal(t, 48000.0, cfg.Host.SampleRate)
	assert.Equal(t, 512, cfg.Host.BlockSize)
	assert.Equal(t, "tone", cfg.Host.Factory)
	assert.Equal(t, "tether:", cfg.Redis.Prefix)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv(config.EnvConfigPath, write(t, "devMode: true\n"))
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, cfg.DevMode)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := config.Load(write(t, "host: [not, a, map]"))
	assert.Error(t, err)

	_, err = config.Load(write(t, "host:\n  sampleRate: -1\n"))
	assert.ErrorContains(t, err, "sampleRate")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Encryption(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	old := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	cfg, err := config.Load(write(t, "encryption:\n  key: "+key+"\n  fallbackKeys: ["+old+"]\n"))
	require.NoError(t, err)
	require.True(t, cfg.Encryption.Enabled())
	active, fallback, err := cfg.Encryption.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Equal(t, [][]byte{[]byte("0123456789abcdef0123456789abcdef")}, fallback)

	_, err = config.Load(write(t, "encryption:\n  key: c2hvcnQ=\n"))
	assert.ErrorContains(t, err, "encryption.key")

	_, err = config.Load(write(t, "encryption:\n  fallbackKeys: ["+old+"]\n"))
	assert.ErrorContains(t, err, "requires encryption.key")
}

func TestLoad_EncryptionKeyFromEnv(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv(config.EnvEncryptionKey, base64.StdEncoding.EncodeToString(make([]byte, 32)))
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Encryption.Enabled())
}
