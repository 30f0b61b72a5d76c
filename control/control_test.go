package control

import (
	"testing"

	"github.com/gonum/floats"
)

func TestNextStepSizeZeroErrorGrowsMax(t *testing.T) {
	c := NewIAS15Controller()
	h := 0.1
	got := c.NextStepSize(7, h, 0, 0, false)
	want := h * c.limiterMax(1.0/7)
	if !floats.EqualWithinAbs(got, want, 1e-15) {
		t.Fatalf("NextStepSize(err=0) = %v, want %v", got, want)
	}
}

func TestNextStepSizeShrinksOnLargeError(t *testing.T) {
	c := NewIAS15Controller()
	h := 0.1
	got := c.NextStepSize(7, h, 100, 0, false)
	if got >= h {
		t.Fatalf("expected step to shrink for large error, got %v >= %v", got, h)
	}
}

func TestNextStepSizeGrowsOnSmallError(t *testing.T) {
	c := NewIAS15Controller()
	h := 0.1
	got := c.NextStepSize(7, h, 1e-6, 0, false)
	if got <= h {
		t.Fatalf("expected step to grow for small error, got %v <= %v", got, h)
	}
}

func TestNextStepSizeClampedByLimiter(t *testing.T) {
	c := NewIAS15Controller()
	h := 0.1
	alpha := 1.0 / 7
	got := c.NextStepSize(7, h, 1e-300, 0, false)
	if got > h*c.limiterMax(alpha)+1e-12 {
		t.Fatalf("step not clamped to limiter max: %v", got)
	}
}

func TestWeightedNormZeroWhenIdentical(t *testing.T) {
	y := []float64{1, 2, 3}
	got := WeightedNorm(y, y, y, 0, 1e-10)
	if got != 0 {
		t.Fatalf("WeightedNorm of identical vectors = %v, want 0", got)
	}
}

func TestWeightedNormDetectsDifference(t *testing.T) {
	y := []float64{1, 1, 1}
	yRef := []float64{1, 1, 1}
	yAlt := []float64{1, 1, 1.01}
	got := WeightedNorm(y, yRef, yAlt, 0, 1e-2)
	if got <= 0 {
		t.Fatalf("WeightedNorm should detect nonzero difference, got %v", got)
	}
}
