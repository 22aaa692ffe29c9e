package curve

import "math"

// Perceptual is a CIE-lightness style piecewise cube law: linear near
// zero, cubic above the 0.08 breakpoint. The constants (0.08, 9.033,
// 0.008856) are kept as-is rather than normalized to the reference
// standard's exact breakpoint.
type Perceptual struct{}

func (Perceptual) Apply(volume float64) float64 {
	var b float64
	if volume <= 0.08 {
		b = volume / 9.033
	} else {
		b = math.Pow((volume+0.16)/1.16, 3)
	}
	return clamp(b)
}

func (Perceptual) Inverse(brightness float64) float64 {
	var v float64
	if brightness <= 0.008856 {
		v = brightness * 9.033
	} else {
		v = 1.16*math.Cbrt(brightness) - 0.16
	}
	return clamp(v)
}

func (Perceptual) Name() string { return "perceptual" }
