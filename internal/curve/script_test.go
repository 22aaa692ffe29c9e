package curve

import (
	"math"
	"testing"
)

const squareScript = `
function apply(v)
	return v * v
end

function inverse(b)
	return math.sqrt(b)
end
`

func TestScriptCurve(t *testing.T) {
	c, err := NewScript("square", squareScript)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if got := c.Apply(0.5); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("Apply(0.5) = %v, want 0.25", got)
	}
	if got := c.Inverse(0.25); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Inverse(0.25) = %v, want 0.5", got)
	}

	// Range invariant holds even for scripts
	if got := c.Apply(1.5); got != 1.0 {
		t.Errorf("Apply(1.5) = %v, want 1.0 (clamped input)", got)
	}
}

func TestScriptCurveOutputClamped(t *testing.T) {
	c, err := NewScript("wild", `
function apply(v) return v * 100 end
function inverse(b) return -5 end
`)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if got := c.Apply(0.5); got != 1.0 {
		t.Errorf("Apply(0.5) = %v, want 1.0", got)
	}
	if got := c.Inverse(0.5); got != 0.0 {
		t.Errorf("Inverse(0.5) = %v, want 0.0", got)
	}
}

func TestScriptCurveMissingFunction(t *testing.T) {
	if _, err := NewScript("broken", `function apply(v) return v end`); err == nil {
		t.Error("expected error for script without inverse")
	}
	if _, err := NewScript("syntax", `function apply(v`); err == nil {
		t.Error("expected error for invalid script")
	}
}
