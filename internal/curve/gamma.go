package curve

import "math"

// DefaultGamma is used when a gamma curve is configured without an exponent.
const DefaultGamma = 2.2

// Gamma maps volume to brightness with a power-law response.
type Gamma struct {
	Gamma float64
}

// NewGamma returns a gamma curve with the given exponent, substituting
// DefaultGamma when gamma is zero.
func NewGamma(gamma float64) Gamma {
	if gamma == 0 {
		gamma = DefaultGamma
	}
	return Gamma{Gamma: gamma}
}

func (c Gamma) Apply(volume float64) float64 {
	if volume < 0 {
		return 0
	}
	return clamp(math.Pow(volume, c.Gamma))
}

func (c Gamma) Inverse(brightness float64) float64 {
	if brightness < 0 {
		return 0
	}
	return clamp(math.Pow(brightness, 1/c.Gamma))
}

func (c Gamma) Name() string { return "gamma" }
