package curve

import "math"

// DefaultLogBase is used when a logarithmic curve is configured without a base.
const DefaultLogBase = 10.0

// Logarithmic maps volume to brightness with a log-shaped response.
// Apply(0) is 0 by definition, avoiding the singularity at zero.
type Logarithmic struct {
	Base float64
}

// NewLogarithmic returns a logarithmic curve with the given base,
// substituting DefaultLogBase when base is zero.
func NewLogarithmic(base float64) Logarithmic {
	if base == 0 {
		base = DefaultLogBase
	}
	return Logarithmic{Base: base}
}

func (c Logarithmic) Apply(volume float64) float64 {
	if volume <= 0 {
		return 0
	}
	return clamp(math.Pow(volume, 1/math.Log10(c.Base)))
}

func (c Logarithmic) Inverse(brightness float64) float64 {
	if brightness <= 0 {
		return 0
	}
	return clamp(math.Pow(brightness, math.Log10(c.Base)))
}

func (c Logarithmic) Name() string { return "logarithmic" }
