// Package config loads tether settings from a YAML or JSON file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/tether/pkg/console"
	"github.com/aretw0/tether/pkg/render"
)

const (
	// EnvConfigPath names the environment variable read when no path is given.
	EnvConfigPath = "TETHER_CONFIG"

	// EnvEncryptionKey supplies encryption.key when the file leaves it empty.
	EnvEncryptionKey = "TETHER_ENCRYPTION_KEY"
)

// Config is the file format. Zero fields take the Default values.
type Config struct {
	LogLevel string `yaml:"logLevel"`
	DevMode  bool   `yaml:"devMode"`

	// Topology lists the state fields whose change forces a full render.
	Topology []string `yaml:"topology"`

	// ConsoleDelay is how long the UI console keeps text after the last append.
	ConsoleDelay time.Duration `yaml:"consoleDelay"`

	Host       HostConfig       `yaml:"host"`
	Redis      RedisConfig      `yaml:"redis"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// HostConfig configures the reference host.
type HostConfig struct {
	Manifest   string  `yaml:"manifest"`
	Factory    string  `yaml:"factory"`
	InstanceID string  `yaml:"instanceId"`
	SampleRate float64 `yaml:"sampleRate"`
	BlockSize  int     `yaml:"blockSize"`
}

// RedisConfig enables the redis stores when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// EncryptionConfig enables snapshot encryption when Key is set. Keys are
// base64-encoded 32-byte AES keys; fallback keys only decrypt.
type EncryptionConfig struct {
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallbackKeys"`
}

// Enabled reports whether a key is configured.
func (e EncryptionConfig) Enabled() bool {
	return e.Key != ""
}

// Keys decodes the configured keys.
func (e EncryptionConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if active, err = decodeKey(e.Key); err != nil {
		return nil, nil, fmt.Errorf("encryption.key: %w", err)
	}
	for i, k := range e.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("encryption.fallbackKeys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// MetricsConfig controls the HTTP listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:     "info",
		Topology:     append([]string(nil), render.DefaultTopology...),
		ConsoleDelay: console.DefaultClearDelay,
		Host: HostConfig{
			Factory:    "tone",
			SampleRate: 44100,
			BlockSize:  512,
		},
		Redis:   RedisConfig{Prefix: "tether:"},
		Metrics: MetricsConfig{Addr: ":2112"},
	}
}

// Load reads path over the defaults. An empty path falls back to $TETHER_CONFIG,
// and to the defaults alone when that is unset too.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.fill()
	return cfg, cfg.Validate()
}

func (c *Config) fill() {
	def := Default()
	if len(c.Topology) == 0 {
		c.Topology = def.Topology
	}
	if c.ConsoleDelay == 0 {
		c.ConsoleDelay = def.ConsoleDelay
	}
	if c.Host.Factory == "" {
		c.Host.Factory = def.Host.Factory
	}
	if c.Host.SampleRate == 0 {
		c.Host.SampleRate = def.Host.SampleRate
	}
	if c.Host.BlockSize == 0 {
		c.Host.BlockSize = def.Host.BlockSize
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = def.Redis.Prefix
	}
	if c.Encryption.Key == "" {
		c.Encryption.Key = os.Getenv(EnvEncryptionKey)
	}
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.ConsoleDelay < 0 {
		errs = append(errs, fmt.Errorf("consoleDelay must not be negative"))
	}
	if c.Host.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("host.sampleRate must be positive"))
	}
	if c.Host.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("host.blockSize must be positive"))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, fmt.Errorf("redis.ttl must not be negative"))
	}
	if c.Encryption.Enabled() {
		if _, _, err := c.Encryption.Keys(); err != nil {
			errs = append(errs, err)
		}
	} else if len(c.Encryption.FallbackKeys) > 0 {
		errs = append(errs, fmt.Errorf("encryption.fallbackKeys requires encryption.key"))
	}
	return errors.Join(errs...)
}
