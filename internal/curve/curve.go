// Package curve maps between audio volume and light brightness.
//
// A curve is a pure bidirectional mapping over [0,1]. Apply converts a
// volume to a brightness, Inverse converts a brightness back to a volume.
// Both are total: out-of-range input is clamped, never rejected. All
// implementations are safe for concurrent use.
package curve

// Curve converts between volume-space and brightness-space values.
type Curve interface {
	// Apply converts a volume in [0,1] to a brightness in [0,1].
	Apply(volume float64) float64
	// Inverse converts a brightness in [0,1] back to a volume in [0,1].
	Inverse(brightness float64) float64
	// Name returns a stable identifier used for config lookup and logging.
	Name() string
}

// clamp constrains v to the closed range [0,1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
