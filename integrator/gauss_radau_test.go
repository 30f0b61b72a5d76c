package integrator

import (
	"math"
	"testing"

	"github.com/gonum/floats"
	"github.com/spacehub-go/spacehub"
	"github.com/spacehub-go/spacehub/particles"
)

func TestGaussRadauBasisPolysMatchDirectExpansion(t *testing.T) {
	gr := NewGaussRadau()
	// basisPoly[2] should expand (x-h0)(x-h1).
	h0, h1 := radauH[0], radauH[1]
	want := []float64{h0 * h1, -(h0 + h1), 1}
	for i := range want {
		got := gr.basisPoly.At(2, i)
		if !floats.EqualWithinAbs(got, want[i], 1e-12) {
			t.Fatalf("basisPoly.At(2,%d) = %v, want %v", i, got, want[i])
		}
	}
}

func TestGaussRadauKeplerOneStep(t *testing.T) {
	// Circular two-body orbit, G=1, total mass 1, separation 1 => period 2*pi.
	mass := []float64{0.5, 0.5}
	pos := []spacehub.Vector{spacehub.NewVector(0.5, 0, 0), spacehub.NewVector(-0.5, 0, 0)}
	vel := []spacehub.Vector{spacehub.NewVector(0, 0.5, 0), spacehub.NewVector(0, -0.5, 0)}
	idn := []int{0, 1}
	s := particles.New(mass, pos, vel, idn, gravity{})

	p0 := make([]spacehub.Vector, 2)
	for i := range p0 {
		p0[i] = s.Pos(i)
	}

	gr := NewGaussRadau()
	T := 2 * math.Pi
	// A period-length macro step should return close to the start. Step
	// only stages the g/b tables and the tentative y(h); it never writes
	// back into s, so repeating it against the same (still-at-y0) s lets
	// the predictor-corrector sweep reach convergence the way the IAS15
	// driver's own loop does, before a single CommitToState applies it.
	for iter := 0; iter < 8; iter++ {
		gr.Step(s, T)
	}
	gr.CommitToState(s)

	for i := range p0 {
		relErr := s.Pos(i).Sub(p0[i]).Norm() / p0[i].Norm()
		if relErr > 1e-6 {
			t.Fatalf("particle %d relative position error = %v after one period", i, relErr)
		}
	}
}

func TestGaussRadauResetPCIterationClearsState(t *testing.T) {
	mass := []float64{1, 1}
	pos := []spacehub.Vector{spacehub.NewVector(1, 0, 0), spacehub.NewVector(-1, 0, 0)}
	vel := []spacehub.Vector{spacehub.NewVector(0, 0.3, 0), spacehub.NewVector(0, -0.3, 0)}
	idn := []int{0, 1}
	s := particles.New(mass, pos, vel, idn, gravity{})

	gr := NewGaussRadau()
	gr.Step(s, 0.01)
	gr.ResetPCIteration()
	for k := 0; k < 7; k++ {
		for _, v := range gr.b[k] {
			if v != 0 {
				t.Fatalf("b[%d] not cleared by ResetPCIteration", k)
			}
		}
	}
}
