// Package particles implements the particle-system layer: a
// struct-of-arrays of masses/positions/velocities wrapping an external
// force evaluator, exposing the drift/kick/advance_* contracts and
// flat-state (de)serialization the integrators and drivers consume.
package particles

import (
	"github.com/spacehub-go/spacehub"
)

// Particles is the narrow, external particle-container contract: by-index
// accessors over masses (immutable), positions and velocities (read/write),
// stable ids, and a scalar system time.
type Particles interface {
	Number() int
	Mass(i int) float64
	Pos(i int) spacehub.Vector
	SetPos(i int, v spacehub.Vector)
	Vel(i int) spacehub.Vector
	SetVel(i int, v spacehub.Vector)
	ID(i int) int
	Time() float64
	SetTime(t float64)
}

// Force is the external force-evaluator collaborator. A compile-time
// constexpr dispatch in the originating physics code is exposed here as a
// plain method acting as an associated constant: a Force implementation
// returns a fixed bool from ExtVelDep, never computed from state.
type Force interface {
	// EvalAcc accumulates the Newtonian acceleration of every particle
	// into acc (len(acc) == p.Number()). acc is not zeroed by the caller
	// on repeated calls within one kick — implementations should assign,
	// not add, on the first call of a kick.
	EvalAcc(p Particles, acc []spacehub.Vector)
	// EvalExtraVelIndepAcc adds any optional velocity-independent external
	// acceleration (tides, J2, a static disk...) into acc. Returns false
	// if this force contributes nothing, in which case acc is untouched.
	EvalExtraVelIndepAcc(p Particles, acc []spacehub.Vector) bool
	// EvalExtraVelDepAcc adds any optional velocity-dependent external
	// acceleration (relativistic drag, gas drag...) into acc, reading the
	// particles' current (possibly auxiliary/trial) velocities. Returns
	// false if this force contributes nothing.
	EvalExtraVelDepAcc(p Particles, acc []spacehub.Vector) bool
	// ExtVelDep reports whether EvalExtraVelDepAcc ever contributes. A
	// System uses this to skip the Picard sub-iteration entirely when it
	// is statically known to be unnecessary.
	ExtVelDep() bool
}

// System is the plain (non-regularized) Cartesian particle system: a
// struct-of-arrays wrapping a Force. It implements Particles directly and
// is also embedded by the regularized systems in package regularized.
type System struct {
	mass []float64
	pos  []spacehub.Vector
	vel  []spacehub.Vector
	idn  []int
	time float64
	force Force
}

// New builds a System from the given masses, positions, velocities, stable
// ids and force evaluator. Panics if the slice lengths disagree.
func New(mass []float64, pos, vel []spacehub.Vector, idn []int, force Force) *System {
	n := len(mass)
	if len(pos) != n || len(vel) != n || len(idn) != n {
		spacehub.Abort("particles", "mass/pos/vel/idn length mismatch: %d/%d/%d/%d", len(mass), len(pos), len(vel), len(idn))
	}
	return &System{
		mass:  append([]float64(nil), mass...),
		pos:   append([]spacehub.Vector(nil), pos...),
		vel:   append([]spacehub.Vector(nil), vel...),
		idn:   append([]int(nil), idn...),
		force: force,
	}
}

func (s *System) Number() int                        { return len(s.mass) }
func (s *System) Mass(i int) float64                  { return s.mass[i] }
func (s *System) Pos(i int) spacehub.Vector           { return s.pos[i] }
func (s *System) SetPos(i int, v spacehub.Vector)     { s.pos[i] = v }
func (s *System) Vel(i int) spacehub.Vector           { return s.vel[i] }
func (s *System) SetVel(i int, v spacehub.Vector)     { s.vel[i] = v }
func (s *System) ID(i int) int                        { return s.idn[i] }
func (s *System) Time() float64                       { return s.time }
func (s *System) SetTime(t float64)                   { s.time = t }
func (s *System) Force() Force                        { return s.force }

// Drift advances every position by dt*velocity and the system time by dt.
func (s *System) Drift(dt float64) {
	for i := range s.pos {
		s.pos[i] = s.pos[i].Add(s.vel[i].Scale(dt))
	}
	s.time += dt
}

// Kick advances every velocity by dt*acceleration. When the force has a
// velocity-dependent component, it performs a Picard sub-iteration: a
// velocity-independent acceleration is computed once, and an auxiliary
// velocity is iterated twice around the real-velocity update
// (kick_pseu_vel, kick_real_vel, kick_pseu_vel) to preserve time-symmetry.
func (s *System) Kick(dt float64) {
	n := s.Number()
	aVI := make([]spacehub.Vector, n)
	s.force.EvalAcc(s, aVI)
	s.force.EvalExtraVelIndepAcc(s, aVI)

	if !s.force.ExtVelDep() {
		for i := range s.vel {
			s.vel[i] = s.vel[i].Add(aVI[i].Scale(dt))
		}
		return
	}

	orig := append([]spacehub.Vector(nil), s.vel...)
	half := dt / 2

	// kick_pseu_vel: bootstrap a trial velocity using only the
	// velocity-independent acceleration.
	s.kickBy(orig, aVI, half)

	// kick_real_vel: evaluate the velocity-dependent acceleration at the
	// trial velocity, then apply the full step from the original
	// velocity so the update is centered on the half-step.
	aVD := make([]spacehub.Vector, n)
	s.force.EvalExtraVelDepAcc(s, aVD)
	aTotal := make([]spacehub.Vector, n)
	for i := range aTotal {
		aTotal[i] = aVI[i].Add(aVD[i])
	}
	s.kickBy(orig, aTotal, dt)

	// kick_pseu_vel again: refine the trial velocity against the
	// now-updated state, restoring time-symmetry for the next call.
	s.force.EvalExtraVelDepAcc(s, aVD)
	for i := range aTotal {
		aTotal[i] = aVI[i].Add(aVD[i])
	}
	s.kickBy(orig, aTotal, dt)
}

func (s *System) kickBy(base, acc []spacehub.Vector, h float64) {
	for i := range s.vel {
		s.vel[i] = base[i].Add(acc[i].Scale(h))
	}
}

// AdvanceTime advances the system time by h. On a plain system this equals
// Drift's time component with Ω_pos == 1; regularized systems override the
// step via their own Ω_pos factor.
func (s *System) AdvanceTime(h float64) {
	s.time += h
}

// AdvancePos advances positions by h*vel, matching Drift's position
// component. Regularized systems pass h already scaled by Ω_pos.
func (s *System) AdvancePos(h float64, vel []spacehub.Vector) {
	for i := range s.pos {
		s.pos[i] = s.pos[i].Add(vel[i].Scale(h))
	}
}

// AdvanceVel advances velocities by h*acc.
func (s *System) AdvanceVel(h float64, acc []spacehub.Vector) {
	for i := range s.vel {
		s.vel[i] = s.vel[i].Add(acc[i].Scale(h))
	}
}

// StateLen returns the length of the flat scalar array this system
// serializes into: 1 + 6N for a Plain system.
func (s *System) StateLen() int {
	return 1 + 6*s.Number()
}

// WriteToScalarArray serializes [time, pos..., vel...] into flat, which must
// have length StateLen().
func (s *System) WriteToScalarArray(flat []float64) {
	n := s.Number()
	flat[0] = s.time
	off := 1
	for i := 0; i < n; i++ {
		p := s.pos[i]
		flat[off], flat[off+1], flat[off+2] = p.X, p.Y, p.Z
		off += 3
	}
	for i := 0; i < n; i++ {
		v := s.vel[i]
		flat[off], flat[off+1], flat[off+2] = v.X, v.Y, v.Z
		off += 3
	}
}

// ReadFromScalarArray is the inverse of WriteToScalarArray.
func (s *System) ReadFromScalarArray(flat []float64) {
	n := s.Number()
	s.time = flat[0]
	off := 1
	for i := 0; i < n; i++ {
		s.pos[i] = spacehub.NewVector(flat[off], flat[off+1], flat[off+2])
		off += 3
	}
	for i := 0; i < n; i++ {
		s.vel[i] = spacehub.NewVector(flat[off], flat[off+1], flat[off+2])
		off += 3
	}
}

// EvaluateGeneralDerivative fills dy with dy/dτ for the current state, in
// the same layout as WriteToScalarArray. For a plain (unregularized) system
// τ == t, so dt/dτ == 1, dpos/dτ == vel and dvel/dτ == acc.
func (s *System) EvaluateGeneralDerivative(dy []float64) {
	n := s.Number()
	dy[0] = 1
	off := 1
	for i := 0; i < n; i++ {
		v := s.vel[i]
		dy[off], dy[off+1], dy[off+2] = v.X, v.Y, v.Z
		off += 3
	}
	acc := make([]spacehub.Vector, n)
	s.force.EvalAcc(s, acc)
	s.force.EvalExtraVelIndepAcc(s, acc)
	s.force.EvalExtraVelDepAcc(s, acc)
	for i := 0; i < n; i++ {
		a := acc[i]
		dy[off], dy[off+1], dy[off+2] = a.X, a.Y, a.Z
		off += 3
	}
}

// Energy returns the total mechanical energy (kinetic + potential) of the
// system under Newtonian gravity with unit gravitational constant, the
// naive O(N^2) form; package chain provides a chain-aware alternative that
// sums over chain edges instead of all pairs.
func (s *System) Energy() float64 {
	return s.KineticEnergy() + s.PotentialEnergy()
}

// KineticEnergy returns Σ 0.5*m_i*|v_i|^2.
func (s *System) KineticEnergy() float64 {
	e := 0.0
	for i := range s.vel {
		e += 0.5 * s.mass[i] * s.vel[i].Norm2()
	}
	return e
}

// PotentialEnergy returns -Σ_{i<j} m_i*m_j/|pos_i - pos_j| (G=1), the naive
// O(N^2) form.
func (s *System) PotentialEnergy() float64 {
	n := s.Number()
	e := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			e -= s.mass[i] * s.mass[j] / s.pos[i].Dist(s.pos[j])
		}
	}
	return e
}

// Momentum returns the total linear momentum Σ m_i*v_i.
func (s *System) Momentum() spacehub.Vector {
	var p spacehub.Vector
	for i := range s.vel {
		p = p.Add(s.vel[i].Scale(s.mass[i]))
	}
	return p
}

// AngularMomentum returns Σ m_i * (pos_i x vel_i).
func (s *System) AngularMomentum() spacehub.Vector {
	var l spacehub.Vector
	for i := range s.vel {
		l = l.Add(s.pos[i].Cross(s.vel[i]).Scale(s.mass[i]))
	}
	return l
}

// CenterOfMass returns Σ m_i*pos_i / Σ m_i.
func (s *System) CenterOfMass() spacehub.Vector {
	var com spacehub.Vector
	total := 0.0
	for i := range s.pos {
		com = com.Add(s.pos[i].Scale(s.mass[i]))
		total += s.mass[i]
	}
	return com.Scale(1 / total)
}
