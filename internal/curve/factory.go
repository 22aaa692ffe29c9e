package curve

import "fmt"

// Config describes a named, optionally-parameterized curve as it appears
// in the configuration file.
type Config struct {
	Type   string  `yaml:"type"`
	Gamma  float64 `yaml:"gamma,omitempty"`
	Base   float64 `yaml:"base,omitempty"`
	Script string  `yaml:"script,omitempty"`
}

// New builds a concrete curve from a config entry. Absent parameters get
// the documented defaults (gamma 2.2, logarithmic base 10).
func New(cfg Config) (Curve, error) {
	switch cfg.Type {
	case "linear":
		return Linear{}, nil
	case "logarithmic":
		return NewLogarithmic(cfg.Base), nil
	case "gamma":
		return NewGamma(cfg.Gamma), nil
	case "perceptual", "":
		return Perceptual{}, nil
	case "script":
		return NewScript("script", cfg.Script)
	default:
		return nil, fmt.Errorf("unknown curve type %q", cfg.Type)
	}
}

// Resolve looks up a curve by name: built-in names first, then entries
// from the custom table. Custom script curves keep their table name.
func Resolve(name string, custom map[string]Config) (Curve, error) {
	switch name {
	case "linear":
		return Linear{}, nil
	case "logarithmic":
		return Logarithmic{Base: DefaultLogBase}, nil
	case "gamma":
		return Gamma{Gamma: DefaultGamma}, nil
	case "perceptual":
		return Perceptual{}, nil
	}

	cfg, ok := custom[name]
	if !ok {
		return nil, fmt.Errorf("unknown curve %q", name)
	}
	if cfg.Type == "script" {
		return NewScript(name, cfg.Script)
	}
	return New(cfg)
}
