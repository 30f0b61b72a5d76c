package spacehub

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestRot313Identity(t *testing.T) {
	v := NewVector(1, 2, 3)
	got := rot313(0, 0, 0, v)
	if !floats.EqualApprox([]float64{got.X, got.Y, got.Z}, []float64{v.X, v.Y, v.Z}, 1e-12) {
		t.Fatalf("identity rotation changed vector: %v", got)
	}
}

func TestRot313PreservesNorm(t *testing.T) {
	v := NewVector(3, -4, 5)
	got := rot313(0.3, 1.1, -0.7, v)
	if !floats.EqualWithinAbs(got.Norm(), v.Norm(), 1e-9) {
		t.Fatalf("rotation changed norm: %v != %v", got.Norm(), v.Norm())
	}
}

func TestRot313AboutZ(t *testing.T) {
	// A pure rotation about the 3rd axis by pi/2 (θ1 only, θ2=θ3=0) maps x->-y.
	got := rot313(math.Pi/2, 0, 0, NewVector(1, 0, 0))
	if !floats.EqualWithinAbs(got.X, 0, 1e-9) || !floats.EqualWithinAbs(got.Y, -1, 1e-9) {
		t.Fatalf("unexpected rotation result: %v", got)
	}
}
