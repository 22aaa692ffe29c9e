package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
lifx:
  enabled: true
  broadcast: 192.168.1.255
  discovery_timeout: 2s
hue:
  enabled: true
  bridge: 192.168.1.10
  token: secret
audio:
  node_prefix: myprefix
  poll_interval: 100ms
sync:
  poll_interval: 500ms
  tolerance: 0.01
  rate_limit_rps: 5
curves:
  default: gamma
  custom:
    soft:
      type: gamma
      gamma: 3.0
lights:
  "lifx:d073d5aabbcc":
    curve: soft
    min_brightness: 0.1
    mute_action: light_off
  "hue:3":
    enabled: false
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.Lifx.Enabled || cfg.Lifx.Broadcast != "192.168.1.255" {
		t.Errorf("lifx = %+v", cfg.Lifx)
	}
	if cfg.Lifx.DiscoveryTimeout.Duration() != 2*time.Second {
		t.Errorf("discovery timeout = %v, want 2s", cfg.Lifx.DiscoveryTimeout.Duration())
	}
	if cfg.Hue.Bridge != "192.168.1.10" || cfg.Hue.Token != "secret" {
		t.Errorf("hue = %+v", cfg.Hue)
	}
	if cfg.Audio.NodePrefix != "myprefix" {
		t.Errorf("node prefix = %q", cfg.Audio.NodePrefix)
	}
	if cfg.Sync.PollInterval.Duration() != 500*time.Millisecond {
		t.Errorf("sync poll = %v", cfg.Sync.PollInterval.Duration())
	}
	if cfg.Sync.Tolerance != 0.01 || cfg.Sync.RateLimitRPS != 5 {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if cfg.Curves.Default != "gamma" {
		t.Errorf("default curve = %q", cfg.Curves.Default)
	}
	if soft, ok := cfg.Curves.Custom["soft"]; !ok || soft.Gamma != 3.0 {
		t.Errorf("custom curves = %+v", cfg.Curves.Custom)
	}

	desk := cfg.Lights["lifx:d073d5aabbcc"]
	if desk.Curve != "soft" || desk.MinBrightness != 0.1 || desk.MuteAction != "light_off" {
		t.Errorf("light override = %+v", desk)
	}
	if !desk.IsEnabled() {
		t.Error("override without enabled key should be enabled")
	}
	if cfg.Lights["hue:3"].IsEnabled() {
		t.Error("enabled: false should disable the light")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Lifx.Broadcast != "255.255.255.255" || cfg.Lifx.Port != 56700 {
		t.Errorf("lifx defaults = %+v", cfg.Lifx)
	}
	if cfg.Lifx.DiscoveryTimeout.Duration() != 5*time.Second {
		t.Errorf("discovery timeout default = %v", cfg.Lifx.DiscoveryTimeout.Duration())
	}
	if cfg.Audio.NodePrefix != "lightwire" {
		t.Errorf("node prefix default = %q", cfg.Audio.NodePrefix)
	}
	if cfg.Audio.DropinDir == "" {
		t.Error("drop-in dir default should not be empty")
	}
	if cfg.Curves.Default != "perceptual" {
		t.Errorf("curve default = %q", cfg.Curves.Default)
	}
	if cfg.Sync.PollInterval.Duration() != time.Second || cfg.Sync.Tolerance != 0.001 {
		t.Errorf("sync defaults = %+v", cfg.Sync)
	}
	if cfg.Sync.MinRetryBackoff.Duration() != time.Second || cfg.Sync.MaxRetryBackoff.Duration() != 2*time.Minute {
		t.Errorf("backoff defaults = %+v", cfg.Sync)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level default = %q", cfg.Log.Level)
	}
	if cfg.Database.Path != "./lightwire.sqlite" {
		t.Errorf("database default = %q", cfg.Database.Path)
	}
	if cfg.ShutdownTimeout.Duration() != 5*time.Second {
		t.Errorf("shutdown timeout default = %v", cfg.ShutdownTimeout.Duration())
	}
}

func TestDefaultMatchesLoadedDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Curves.Default != "perceptual" || cfg.Audio.NodePrefix != "lightwire" {
		t.Errorf("Default() = %+v", cfg)
	}
	if !cfg.Lifx.Enabled {
		t.Error("Default() should enable the LIFX provider")
	}
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("LIGHTWIRE_TEST_TOKEN", "fromenv")
	path := writeConfig(t, `
hue:
  token: ${LIGHTWIRE_TEST_TOKEN}
  bridge: ${LIGHTWIRE_TEST_BRIDGE:10.0.0.2}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hue.Token != "fromenv" {
		t.Errorf("token = %q, want env value", cfg.Hue.Token)
	}
	if cfg.Hue.Bridge != "10.0.0.2" {
		t.Errorf("bridge = %q, want fallback default", cfg.Hue.Bridge)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	if _, err := Load(writeConfig(t, "sync:\n  poll_interval: banana\n")); err == nil {
		t.Error("expected error for unparseable duration")
	}
}
