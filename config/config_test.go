package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semcache/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL())
	assert.Equal(t, "semcache.lifecycle", cfg.Lifecycle.SubjectPrefix)
}

func TestLoader_LoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"cache": {"enabled": true, "count_limit": 200, "auto_remove_all": true},
		"nats": {
			"urls": ["nats://a:4222", "nats://b:4222"],
			"reconnect_wait": "5s",
			"timeout": 1500000000
		},
		"lifecycle": {
			"subject_prefix": "edge.lifecycle",
			"publish_timeout": "250ms",
			"pressure": {"interval": "1d", "threshold": 25}
		}
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Cache.CountLimit)
	assert.Equal(t, "nats://a:4222,nats://b:4222", cfg.NATS.URL())
	assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, 1500*time.Millisecond, cfg.NATS.Timeout)
	assert.Equal(t, "edge.lifecycle", cfg.Lifecycle.SubjectPrefix)
	assert.Equal(t, 250*time.Millisecond, cfg.Lifecycle.PublishTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Lifecycle.Pressure.Interval)
	assert.Equal(t, 25.0, cfg.Lifecycle.Pressure.Threshold)

	// Untouched fields keep their defaults.
	assert.Equal(t, -1, cfg.NATS.MaxReconnects)
	assert.Equal(t, "/proc", cfg.Lifecycle.Pressure.ProcPath)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoader_LayersMerge(t *testing.T) {
	base := writeConfig(t, "base.json", `{
		"cache": {"count_limit": 100},
		"metrics": {"port": 9100, "path": "/m"}
	}`)
	override := writeConfig(t, "prod.json", `{
		"metrics": {"port": 9200}
	}`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Cache.CountLimit)
	assert.Equal(t, 9200, cfg.Metrics.Port)
	assert.Equal(t, "/m", cfg.Metrics.Path)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("SEMCACHE_NATS_URLS", "nats://x:1,nats://y:2")
	t.Setenv("SEMCACHE_CACHE_COUNT_LIMIT", "42")
	t.Setenv("SEMCACHE_METRICS_PORT", "9999")
	t.Setenv("SEMCACHE_PRESSURE_THRESHOLD", "12.5")
	t.Setenv("SEMCACHE_LIFECYCLE_SUBJECT_PREFIX", "env.prefix")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"nats://x:1", "nats://y:2"}, cfg.NATS.URLs)
	assert.Equal(t, 42, cfg.Cache.CountLimit)
	assert.Equal(t, 9999, cfg.Metrics.Port)
	assert.Equal(t, 12.5, cfg.Lifecycle.Pressure.Threshold)
	assert.Equal(t, "env.prefix", cfg.Lifecycle.SubjectPrefix)
}

func TestLoader_BadEnvOverride(t *testing.T) {
	t.Setenv("SEMCACHE_METRICS_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "SEMCACHE_METRICS_PORT")
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad duration", "bad.json", `{"nats": {"timeout": "soon"}}`},
		{"malformed json", "bad.json", `{"nats": `},
		{"not json extension", "config.yaml", `{}`},
		{"too deep", "deep.json", strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)},
		{"fails validation", "invalid.json", `{"nats": {"urls": ["localhost:4222"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.content)
			_, err := NewLoader().LoadFile(path)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "got %v", err)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoader_ValidationDisabled(t *testing.T) {
	path := writeConfig(t, "invalid.json", `{"metrics": {"port": 70000}}`)

	loader := NewLoader()
	loader.EnableValidation(false)
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 70000, cfg.Metrics.Port)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no nats urls", func(c *Config) { c.NATS.URLs = nil }},
		{"negative timeout", func(c *Config) { c.NATS.Timeout = -time.Second }},
		{"wildcard prefix", func(c *Config) { c.Lifecycle.SubjectPrefix = "a.*" }},
		{"empty prefix token", func(c *Config) { c.Lifecycle.SubjectPrefix = "a..b" }},
		{"threshold above 100", func(c *Config) { c.Lifecycle.Pressure.Threshold = 101 }},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
		{"negative publish rate", func(c *Config) { c.Lifecycle.PublishRate = -1 }},
		{"bad cache metrics name", func(c *Config) { c.Cache.MetricsName = "a b" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestConfig_SaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")

	cfg := Default()
	cfg.Cache.CountLimit = 7
	require.NoError(t, cfg.SaveToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateConfigPath(t *testing.T) {
	assert.NoError(t, validateConfigPath("/etc/semcache/config.json"))
	assert.NoError(t, validateConfigPath("configs/config.json"))
	assert.Error(t, validateConfigPath(""))
	assert.Error(t, validateConfigPath("../outside.json"))
	assert.Error(t, validateConfigPath("config.txt"))
}

func TestValidateJSONDepth(t *testing.T) {
	assert.NoError(t, validateJSONDepth([]byte(`{"a": "[[[[ not nesting", "b": [1, 2]}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a": [}`+"]]")))
	assert.Error(t, validateJSONDepth([]byte(`{"a": {`)))
}
