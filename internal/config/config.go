package config

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/lightwire/internal/curve"
)

// Config represents the application configuration
type Config struct {
	Lifx            LifxConfig             `yaml:"lifx"`
	Hue             HueConfig              `yaml:"hue"`
	Audio           AudioConfig            `yaml:"audio"`
	Sync            SyncConfig             `yaml:"sync"`
	Curves          CurvesConfig           `yaml:"curves"`
	Lights          map[string]LightConfig `yaml:"lights"`
	Database        DatabaseConfig         `yaml:"database"`
	Log             LogConfig              `yaml:"log"`
	Healthcheck     HealthcheckConfig      `yaml:"healthcheck"`
	ShutdownTimeout Duration               `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LifxConfig contains LIFX LAN protocol settings
type LifxConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Broadcast        string   `yaml:"broadcast"`         // Broadcast address for discovery (default: 255.255.255.255)
	Port             int      `yaml:"port"`              // LIFX LAN port (default: 56700)
	DiscoveryTimeout Duration `yaml:"discovery_timeout"` // How long to collect discovery responses (default: 5s)
	RequestTimeout   Duration `yaml:"request_timeout"`   // Per-request UDP timeout (default: 2s)
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Enabled bool     `yaml:"enabled"`
	Bridge  string   `yaml:"bridge"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"` // HTTP timeout for Hue API requests
}

// AudioConfig contains PipeWire settings
type AudioConfig struct {
	NodePrefix     string   `yaml:"node_prefix"`     // Prefix for generated node names and drop-in files (default: lightwire)
	DropinDir      string   `yaml:"dropin_dir"`      // PipeWire config drop-in directory (default: <user config>/pipewire/pipewire.conf.d)
	PollInterval   Duration `yaml:"poll_interval"`   // Volume poll interval (default: 250ms)
	CallTimeout    Duration `yaml:"call_timeout"`    // Timeout for pw-dump/pw-cli invocations (default: 3s)
	DebounceWindow Duration `yaml:"debounce_window"` // Coalesce bursty volume events per node, 0 = off
}

// SyncConfig contains sync engine settings
type SyncConfig struct {
	PollInterval   Duration `yaml:"poll_interval"`   // Light state poll interval (default: 1s)
	CallTimeout    Duration `yaml:"call_timeout"`    // Timeout for backend calls (default: 3s)
	Tolerance      float64  `yaml:"tolerance"`       // Echo suppression tolerance (default: 0.001)
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`  // Light write budget across pairings (default: 10)
	HealthInterval Duration `yaml:"health_interval"` // Provider health probe interval, 0 = disabled

	// Suspect backoff settings
	MinRetryBackoff Duration `yaml:"min_retry_backoff"` // Minimum backoff after a backend error (default: 1s)
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"` // Maximum backoff (default: 2m)
	RetryMultiplier float64  `yaml:"retry_multiplier"`  // Backoff multiplier (default: 2.0)
}

// CurvesConfig selects the default curve and defines custom ones
type CurvesConfig struct {
	Default string                  `yaml:"default"` // Curve for pairings without an override (default: perceptual)
	Custom  map[string]curve.Config `yaml:"custom"`  // Named custom curves, referencable from light overrides
}

// LightConfig overrides pairing behavior for one light, keyed by light id
type LightConfig struct {
	Enabled       *bool   `yaml:"enabled"`        // nil means enabled
	Curve         string  `yaml:"curve"`          // Curve name, built-in or custom
	MinBrightness float64 `yaml:"min_brightness"` // Floor applied to curve output
	MaxBrightness float64 `yaml:"max_brightness"` // Ceiling applied to curve output, 0 = 1.0
	MuteAction    string  `yaml:"mute_action"`    // "ignore" or "light_off"
}

// IsEnabled reports whether this light participates in sync
func (c LightConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, used when
// no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Lifx.Enabled = true
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./lightwire.sqlite"
	}

	// LIFX defaults
	if cfg.Lifx.Broadcast == "" {
		cfg.Lifx.Broadcast = "255.255.255.255"
	}
	if cfg.Lifx.Port == 0 {
		cfg.Lifx.Port = 56700
	}
	if cfg.Lifx.DiscoveryTimeout == 0 {
		cfg.Lifx.DiscoveryTimeout = Duration(5 * time.Second)
	}
	if cfg.Lifx.RequestTimeout == 0 {
		cfg.Lifx.RequestTimeout = Duration(2 * time.Second)
	}

	// Hue defaults
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(5 * time.Second)
	}

	// Audio defaults
	if cfg.Audio.NodePrefix == "" {
		cfg.Audio.NodePrefix = "lightwire"
	}
	if cfg.Audio.DropinDir == "" {
		cfg.Audio.DropinDir = defaultDropinDir()
	}
	if cfg.Audio.PollInterval == 0 {
		cfg.Audio.PollInterval = Duration(250 * time.Millisecond)
	}
	if cfg.Audio.CallTimeout == 0 {
		cfg.Audio.CallTimeout = Duration(3 * time.Second)
	}

	// Sync defaults
	if cfg.Sync.PollInterval == 0 {
		cfg.Sync.PollInterval = Duration(1 * time.Second)
	}
	if cfg.Sync.CallTimeout == 0 {
		cfg.Sync.CallTimeout = Duration(3 * time.Second)
	}
	if cfg.Sync.Tolerance == 0 {
		cfg.Sync.Tolerance = 0.001
	}
	if cfg.Sync.RateLimitRPS == 0 {
		cfg.Sync.RateLimitRPS = 10.0
	}
	if cfg.Sync.MinRetryBackoff == 0 {
		cfg.Sync.MinRetryBackoff = Duration(1 * time.Second)
	}
	if cfg.Sync.MaxRetryBackoff == 0 {
		cfg.Sync.MaxRetryBackoff = Duration(2 * time.Minute)
	}
	if cfg.Sync.RetryMultiplier == 0 {
		cfg.Sync.RetryMultiplier = 2.0
	}

	// Curve defaults
	if cfg.Curves.Default == "" {
		cfg.Curves.Default = "perceptual"
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// defaultDropinDir resolves the PipeWire drop-in directory under the
// user's config dir, falling back to a relative path when HOME is unset.
func defaultDropinDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join("pipewire", "pipewire.conf.d")
	}
	return filepath.Join(base, "pipewire", "pipewire.conf.d")
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
