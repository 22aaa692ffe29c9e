package curve

// Linear is the identity mapping, clamped to [0,1].
type Linear struct{}

func (Linear) Apply(volume float64) float64 {
	return clamp(volume)
}

func (Linear) Inverse(brightness float64) float64 {
	return clamp(brightness)
}

func (Linear) Name() string { return "linear" }
