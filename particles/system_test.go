package particles

import (
	"math"
	"testing"

	"github.com/gonum/floats"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/spacehub-go/spacehub"
)

// gravity is a minimal Newtonian Force stub, standing in for the external
// force library the core only talks to through the Force interface.
type gravity struct{}

func (gravity) EvalAcc(p Particles, acc []spacehub.Vector) {
	n := p.Number()
	for i := 0; i < n; i++ {
		var a spacehub.Vector
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := p.Pos(j).Sub(p.Pos(i))
			r := d.Norm()
			a = a.Add(d.Scale(p.Mass(j) / (r * r * r)))
		}
		acc[i] = a
	}
}
func (gravity) EvalExtraVelIndepAcc(Particles, []spacehub.Vector) bool { return false }
func (gravity) EvalExtraVelDepAcc(Particles, []spacehub.Vector) bool   { return false }
func (gravity) ExtVelDep() bool                                       { return false }

func threeBody() *System {
	mass := []float64{3, 4, 5}
	pos := []spacehub.Vector{
		spacehub.NewVector(1, 3, 0),
		spacehub.NewVector(-2, -1, 0),
		spacehub.NewVector(1, -1, 0),
	}
	vel := []spacehub.Vector{
		spacehub.NewVector(0.1, -0.05, 0),
		spacehub.NewVector(-0.05, 0.1, 0),
		spacehub.NewVector(0.02, 0.02, 0),
	}
	idn := []int{0, 1, 2}
	return New(mass, pos, vel, idn, gravity{})
}

// TestAccelerationMatchesPotentialGradient cross-checks EvalAcc against a
// central finite difference of PotentialEnergy taken with gonum's diff/fd:
// Newtonian gravity is conservative, so a_i = -(1/m_i) * grad_i U must hold
// along each Cartesian axis, independent of anything the integrators do.
func TestAccelerationMatchesPotentialGradient(t *testing.T) {
	s := threeBody()
	n := s.Number()
	acc := make([]spacehub.Vector, n)
	s.force.EvalAcc(s, acc)

	component := func(i int, axis int) func(float64) float64 {
		return func(x float64) float64 {
			orig := s.Pos(i)
			p := orig
			switch axis {
			case 0:
				p.X = x
			case 1:
				p.Y = x
			case 2:
				p.Z = x
			}
			s.SetPos(i, p)
			u := s.PotentialEnergy()
			s.SetPos(i, orig)
			return u
		}
	}

	settings := &fd.Settings{Step: 1e-6}
	for i := 0; i < n; i++ {
		p := s.Pos(i)
		coords := [3]float64{p.X, p.Y, p.Z}
		want := [3]float64{acc[i].X, acc[i].Y, acc[i].Z}
		for axis := 0; axis < 3; axis++ {
			dU := fd.Derivative(component(i, axis), coords[axis], settings)
			got := -dU / s.Mass(i)
			if !floats.EqualWithinAbs(got, want[axis], 1e-5) {
				t.Fatalf("particle %d axis %d: finite-difference accel %v, EvalAcc %v", i, axis, got, want[axis])
			}
		}
	}
}

func TestDriftAdvancesPositionAndTime(t *testing.T) {
	s := threeBody()
	p0 := s.Pos(0)
	t0 := s.Time()
	s.Drift(0.1)
	want := p0.Add(s.Vel(0).Scale(0.1))
	if s.Pos(0) != want {
		t.Fatalf("Pos(0) = %v, want %v", s.Pos(0), want)
	}
	if !floats.EqualWithinAbs(s.Time(), t0+0.1, 1e-15) {
		t.Fatalf("Time() = %v, want %v", s.Time(), t0+0.1)
	}
}

func TestKickAdvancesVelocityByAcceleration(t *testing.T) {
	s := threeBody()
	acc := make([]spacehub.Vector, s.Number())
	s.force.EvalAcc(s, acc)
	v0 := s.Vel(0)
	s.Kick(0.01)
	want := v0.Add(acc[0].Scale(0.01))
	if math.Abs(s.Vel(0).Dist(want)) > 1e-12 {
		t.Fatalf("Vel(0) = %v, want %v", s.Vel(0), want)
	}
}

func TestWriteReadScalarArrayRoundTrips(t *testing.T) {
	s := threeBody()
	flat := make([]float64, s.StateLen())
	s.WriteToScalarArray(flat)

	other := threeBody()
	other.ReadFromScalarArray(flat)

	for i := 0; i < s.Number(); i++ {
		if other.Pos(i) != s.Pos(i) || other.Vel(i) != s.Vel(i) {
			t.Fatalf("particle %d did not round-trip: pos %v/%v vel %v/%v", i, other.Pos(i), s.Pos(i), other.Vel(i), s.Vel(i))
		}
	}
	if other.Time() != s.Time() {
		t.Fatalf("time did not round-trip: %v vs %v", other.Time(), s.Time())
	}
}

func TestMomentumAngularMomentumConserveUnderKick(t *testing.T) {
	s := threeBody()
	p0 := s.Momentum()
	l0 := s.AngularMomentum()
	s.Kick(1e-4)
	// A single kick changes velocities simultaneously for every particle
	// under Newton's third law; with equal, opposite and central pair
	// forces, total momentum and angular momentum are both conserved up to
	// floating-point round-off.
	if s.Momentum().Dist(p0) > 1e-10 {
		t.Fatalf("momentum not conserved: %v -> %v", p0, s.Momentum())
	}
	if s.AngularMomentum().Dist(l0) > 1e-6 {
		t.Fatalf("angular momentum drifted too much: %v -> %v", l0, s.AngularMomentum())
	}
}
