package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c360/semcache/errors"
	"github.com/c360/semcache/pkg/cache"
	"github.com/c360/semcache/pkg/lifecycle"
)

// Config represents the complete semcache configuration. The relay reads
// NATS, Lifecycle and Metrics; Cache is the shared section that processes
// subscribing to the relay pass to cache.NewFromConfig.
type Config struct {
	Version   string          `json:"version"`
	Cache     cache.Config    `json:"cache"`
	NATS      NATSConfig      `json:"nats"`
	Lifecycle LifecycleConfig `json:"lifecycle"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	Name          string        `json:"name,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty"`
}

// URL returns the comma-joined server list understood by nats.Connect.
func (n NATSConfig) URL() string {
	return strings.Join(n.URLs, ",")
}

// LifecycleConfig selects which lifecycle signal sources are active.
type LifecycleConfig struct {
	// SubjectPrefix is the NATS subject prefix signals are published under.
	SubjectPrefix string `json:"subject_prefix,omitempty"`

	// OSSignals relays SIGUSR1 (memory warning) and SIGUSR2 (background).
	OSSignals bool `json:"os_signals"`

	// PressureEnabled turns on the PSI memory-pressure monitor.
	PressureEnabled bool                     `json:"pressure_enabled"`
	Pressure        lifecycle.PressureConfig `json:"pressure"`

	// PublishTimeout bounds each signal publish.
	PublishTimeout time.Duration `json:"publish_timeout,omitempty"`

	// PublishRate caps published signals per second; 0 disables the cap.
	PublishRate  float64 `json:"publish_rate,omitempty"`
	PublishBurst int     `json:"publish_burst,omitempty"`
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Default returns the configuration used when no layer overrides a field.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Cache:   cache.DefaultConfig(),
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			Timeout:       5 * time.Second,
		},
		Lifecycle: LifecycleConfig{
			SubjectPrefix:   lifecycle.DefaultSubjectPrefix,
			OSSignals:       true,
			PressureEnabled: true,
			Pressure: lifecycle.PressureConfig{
				ProcPath:  "/proc",
				Interval:  5 * time.Second,
				Threshold: 10,
			},
			PublishTimeout: 2 * time.Second,
			PublishRate:    10,
			PublishBurst:   5,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if err := c.Cache.Validate(); err != nil {
		return err
	}

	if len(c.NATS.URLs) == 0 {
		return invalid("nats.urls is required")
	}
	for _, u := range c.NATS.URLs {
		if !strings.Contains(u, "://") {
			return invalid(fmt.Sprintf("nats url %q must include a scheme", u))
		}
	}
	if c.NATS.ReconnectWait < 0 || c.NATS.Timeout < 0 {
		return invalid("nats durations must not be negative")
	}

	prefix := c.Lifecycle.SubjectPrefix
	if prefix != "" {
		for _, part := range strings.Split(prefix, ".") {
			if !isValidNATSSubjectPart(part) {
				return invalid(fmt.Sprintf("lifecycle.subject_prefix %q is not a valid NATS subject", prefix))
			}
		}
	}
	if c.Lifecycle.PublishTimeout < 0 {
		return invalid("lifecycle.publish_timeout must not be negative")
	}
	if c.Lifecycle.PublishRate < 0 || c.Lifecycle.PublishBurst < 0 {
		return invalid("lifecycle publish rate and burst must not be negative")
	}
	if c.Lifecycle.PressureEnabled {
		p := c.Lifecycle.Pressure
		if p.Interval < 0 {
			return invalid("lifecycle.pressure.interval must not be negative")
		}
		if p.Threshold < 0 || p.Threshold > 100 {
			return invalid(fmt.Sprintf("lifecycle.pressure.threshold must be within 0-100, got %v", p.Threshold))
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
			return invalid(fmt.Sprintf("metrics.port out of range: %d", c.Metrics.Port))
		}
		if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid("metrics.path must start with '/'")
		}
	}

	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", msg)
}

// isValidNATSSubjectPart checks a single dot-separated token.
func isValidNATSSubjectPart(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == '*' || r == '>' || r == ' ' || r == '\t' || r == '\n' {
			return false
		}
	}
	return true
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "SEMCACHE",
	}
}

// AddLayer adds a configuration file layer. Later layers win.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every layer and environment overrides, then validates.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRawJSON(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "load "+path)
		}
		cfg, err = mergeFromMap(cfg, raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "merge "+path)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadRawJSON loads configuration from a JSON file as a map
func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapInvalid(errors.ErrParsingFailed, "Loader", "loadRawJSON", err.Error())
	}

	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// durationFields lists the JSON paths that hold time.Duration values.
var durationFields = [][]string{
	{"nats", "reconnect_wait"},
	{"nats", "timeout"},
	{"lifecycle", "publish_timeout"},
	{"lifecycle", "pressure", "interval"},
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func parseDurations(data map[string]any) error {
	for _, path := range durationFields {
		parent := data
		for _, key := range path[:len(path)-1] {
			next, ok := parent[key].(map[string]any)
			if !ok {
				parent = nil
				break
			}
			parent = next
		}
		if parent == nil {
			continue
		}

		leaf := path[len(path)-1]
		s, ok := parent[leaf].(string)
		if !ok {
			continue
		}
		d, err := parseDurationWithDays(s)
		if err != nil {
			return errors.WrapInvalid(errors.ErrParsingFailed, "Loader", "parseDurations",
				fmt.Sprintf("%s: %v", strings.Join(path, "."), err))
		}
		parent[leaf] = d.Nanoseconds()
	}
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// mergeFromMap overlays override onto base, only replacing fields present in override.
func mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	env := func(name string) (string, error) {
		key := l.envPrefix + "_" + name
		val := os.Getenv(key)
		if err := validateEnvVar(key, val); err != nil {
			return "", errors.WrapInvalid(err, "Loader", "applyEnvOverrides", key)
		}
		return val, nil
	}

	strs := []struct {
		name string
		set  func(string) error
	}{
		{"NATS_URLS", func(v string) error { cfg.NATS.URLs = strings.Split(v, ","); return nil }},
		{"NATS_NAME", func(v string) error { cfg.NATS.Name = v; return nil }},
		{"LIFECYCLE_SUBJECT_PREFIX", func(v string) error { cfg.Lifecycle.SubjectPrefix = v; return nil }},
		{"CACHE_COUNT_LIMIT", func(v string) error { return setInt(&cfg.Cache.CountLimit, v) }},
		{"METRICS_PORT", func(v string) error { return setInt(&cfg.Metrics.Port, v) }},
		{"PRESSURE_THRESHOLD", func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			cfg.Lifecycle.Pressure.Threshold = f
			return nil
		}},
	}

	for _, s := range strs {
		val, err := env(s.name)
		if err != nil {
			return err
		}
		if val == "" {
			continue
		}
		if err := s.set(val); err != nil {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Loader", "applyEnvOverrides",
				fmt.Sprintf("%s_%s=%q: %v", l.envPrefix, s.name, val, err))
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
