package syncer

import (
	"testing"
	"time"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	b := newBackoff(BackoffConfig{Min: time.Second, Max: 5 * time.Second, Multiplier: 2})

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("step %d: delay = %v, want %v", i, got, w)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := newBackoff(BackoffConfig{Min: time.Second, Max: time.Minute, Multiplier: 2})
	b.Next()
	b.Next()
	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("delay after reset = %v, want %v", got, time.Second)
	}
}

func TestBackoffConfigDefaults(t *testing.T) {
	cfg := BackoffConfig{}.withDefaults()
	def := DefaultBackoffConfig()
	if cfg != def {
		t.Errorf("withDefaults() = %+v, want %+v", cfg, def)
	}

	// A degenerate multiplier would stall the schedule
	cfg = BackoffConfig{Min: time.Second, Max: time.Minute, Multiplier: 0.5}.withDefaults()
	if cfg.Multiplier != def.Multiplier {
		t.Errorf("multiplier = %v, want default %v", cfg.Multiplier, def.Multiplier)
	}
}

func TestParseMuteAction(t *testing.T) {
	tests := []struct {
		in      string
		want    MuteAction
		wantErr bool
	}{
		{"", MuteIgnore, false},
		{"ignore", MuteIgnore, false},
		{"light_off", MuteLightOff, false},
		{"explode", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMuteAction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMuteAction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMuteAction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
