// Package regularized implements the regularized particle system: LogH,
// TTL and None time transformations, wrapping a plain particle system and
// replacing physical time t with a fictitious independent variable τ
// related by dt/dτ = 1/Ω(x,p).
package regularized

import (
	"github.com/spacehub-go/spacehub"
	"github.com/spacehub-go/spacehub/particles"
)

// Mode selects the time transformation.
type Mode int

const (
	None Mode = iota
	LogH
	TTL
)

func (m Mode) String() string {
	switch m {
	case LogH:
		return "LogH"
	case TTL:
		return "TTL"
	default:
		return "None"
	}
}

// System wraps a plain particle system with a regularized time
// transformation. It implements the particles.Particles contract by
// delegating to the wrapped system, and overrides drift/kick to compose
// the Ω-scaled advance_time/advance_pos/advance_vel steps.
type System struct {
	base *particles.System
	mode Mode

	omega    float64 // TTL's explicit scalar ω
	bindingE float64 // LogH's binding energy B

	auxVel []spacehub.Vector // carried only when the force has a velocity-dependent term
}

// New wraps base with the given regularization mode. LogH initializes its
// binding energy to -base.Energy() (so Ω_pos == Ω_vel at τ=0); TTL
// initializes ω to -base.PotentialEnergy() for the same reason.
func New(base *particles.System, mode Mode) *System {
	s := &System{base: base, mode: mode}
	switch mode {
	case LogH:
		s.bindingE = -base.Energy()
	case TTL:
		s.omega = -base.PotentialEnergy()
	}
	if base.Force().ExtVelDep() {
		s.auxVel = make([]spacehub.Vector, base.Number())
		for i := 0; i < base.Number(); i++ {
			s.auxVel[i] = base.Vel(i)
		}
	}
	return s
}

func (s *System) Number() int                    { return s.base.Number() }
func (s *System) Mass(i int) float64              { return s.base.Mass(i) }
func (s *System) Pos(i int) spacehub.Vector       { return s.base.Pos(i) }
func (s *System) SetPos(i int, v spacehub.Vector) { s.base.SetPos(i, v) }
func (s *System) Vel(i int) spacehub.Vector       { return s.base.Vel(i) }
func (s *System) SetVel(i int, v spacehub.Vector) { s.base.SetVel(i, v) }
func (s *System) ID(i int) int                    { return s.base.ID(i) }
func (s *System) Time() float64                   { return s.base.Time() }
func (s *System) SetTime(t float64)               { s.base.SetTime(t) }
func (s *System) Mode() Mode                      { return s.mode }
func (s *System) Omega() float64                  { return s.omega }
func (s *System) BindingEnergy() float64          { return s.bindingE }

// posRegFactor is Ω_pos; the drift-phase step is h/Ω_pos, since dt/dτ =
// 1/Ω_pos. None: 1. LogH: T(v)+B. TTL: the carried ω.
func (s *System) posRegFactor() float64 {
	switch s.mode {
	case LogH:
		return s.base.KineticEnergy() + s.bindingE
	case TTL:
		return s.omega
	default:
		return 1
	}
}

// velRegFactor is Ω_vel; the kick-phase step is h/Ω_vel. None: 1. LogH and
// TTL: -U(x), the (positive) total potential magnitude.
func (s *System) velRegFactor() float64 {
	switch s.mode {
	case LogH, TTL:
		return -s.base.PotentialEnergy()
	default:
		return 1
	}
}

// Drift advances time and position by the Ω_pos-scaled physical step:
// dt/dτ = 1/Ω_pos, so drift(h) = advance_time(h/Ω_pos) + advance_pos(h/Ω_pos, vel).
func (s *System) Drift(h float64) {
	posRF := s.posRegFactor()
	if posRF == 0 {
		posRF = 1
	}
	hp := h / posRF
	n := s.Number()
	vel := make([]spacehub.Vector, n)
	for i := 0; i < n; i++ {
		vel[i] = s.base.Vel(i)
	}
	s.base.AdvanceTime(hp)
	s.base.AdvancePos(hp, vel)
}

// Kick advances velocities by the composite regularized kick: a
// velocity-independent acceleration sum, an optional TTL ω update
// straddled by half-kicks, an optional LogH binding-energy update straddled
// by half-kicks, and, when the force has a velocity-dependent component,
// one explicit velocity-dependent kick (kickVelDepPicard).
func (s *System) Kick(h float64) {
	n := s.Number()
	force := s.base.Force()

	accN := make([]spacehub.Vector, n)
	force.EvalAcc(s.base, accN)
	accTotal := append([]spacehub.Vector(nil), accN...)
	force.EvalExtraVelIndepAcc(s.base, accTotal)

	velRF := s.velRegFactor()
	if velRF == 0 {
		velRF = 1
	}

	switch s.mode {
	case TTL:
		half := h / velRF / 2
		s.base.AdvanceVel(half, accTotal)
		domega := 0.0
		for i := 0; i < n; i++ {
			domega += s.base.Mass(i) * s.base.Vel(i).Dot(accN[i])
		}
		s.omega += domega * h
		s.base.AdvanceVel(half, accTotal)
	case LogH:
		aExt := make([]spacehub.Vector, n)
		for i := range aExt {
			aExt[i] = accTotal[i].Sub(accN[i])
		}
		if force.ExtVelDep() {
			accVD := make([]spacehub.Vector, n)
			force.EvalExtraVelDepAcc(s.base, accVD)
			for i := range aExt {
				aExt[i] = aExt[i].Add(accVD[i])
			}
		}
		half := h / velRF / 2
		s.base.AdvanceVel(half, accTotal)
		dB := 0.0
		for i := 0; i < n; i++ {
			dB -= s.base.Mass(i) * s.base.Vel(i).Dot(aExt[i])
		}
		s.bindingE += dB * h
		s.base.AdvanceVel(half, accTotal)
	default:
		s.base.AdvanceVel(h/velRF, accTotal)
	}

	if force.ExtVelDep() {
		s.kickVelDepPicard(h / velRF)
	}
}

// kickVelDepPicard applies the velocity-dependent contribution in a single
// explicit step: the velocity-dependent acceleration is evaluated once at
// the current velocity, velocities are advanced by h times it, and the
// result is copied into auxVel. It builds no trial velocity and does not
// iterate, unlike the sub-iteration in particles.System.Kick.
func (s *System) kickVelDepPicard(h float64) {
	n := s.Number()
	force := s.base.Force()
	orig := make([]spacehub.Vector, n)
	for i := 0; i < n; i++ {
		orig[i] = s.base.Vel(i)
	}
	accVD := make([]spacehub.Vector, n)
	force.EvalExtraVelDepAcc(s.base, accVD)
	s.base.AdvanceVel(h, accVD)
	for i := 0; i < n; i++ {
		s.auxVel[i] = s.base.Vel(i)
	}
}

// StateLen returns the flat-state length: 3+6N, or 3+9N when the force has
// a velocity-dependent term (auxiliary velocities are carried alongside).
func (s *System) StateLen() int {
	base := 3 + 6*s.Number()
	if s.auxVel != nil {
		base += 3 * s.Number()
	}
	return base
}

// WriteToScalarArray serializes [time, ω, binding_E, pos..., vel...,
// aux_vel...?] into flat.
func (s *System) WriteToScalarArray(flat []float64) {
	n := s.Number()
	flat[0] = s.Time()
	flat[1] = s.omega
	flat[2] = s.bindingE
	off := 3
	for i := 0; i < n; i++ {
		p := s.base.Pos(i)
		flat[off], flat[off+1], flat[off+2] = p.X, p.Y, p.Z
		off += 3
	}
	for i := 0; i < n; i++ {
		v := s.base.Vel(i)
		flat[off], flat[off+1], flat[off+2] = v.X, v.Y, v.Z
		off += 3
	}
	if s.auxVel != nil {
		for i := 0; i < n; i++ {
			v := s.auxVel[i]
			flat[off], flat[off+1], flat[off+2] = v.X, v.Y, v.Z
			off += 3
		}
	}
}

// ReadFromScalarArray is the inverse of WriteToScalarArray.
func (s *System) ReadFromScalarArray(flat []float64) {
	n := s.Number()
	s.SetTime(flat[0])
	s.omega = flat[1]
	s.bindingE = flat[2]
	off := 3
	for i := 0; i < n; i++ {
		s.SetPos(i, spacehub.NewVector(flat[off], flat[off+1], flat[off+2]))
		off += 3
	}
	for i := 0; i < n; i++ {
		s.SetVel(i, spacehub.NewVector(flat[off], flat[off+1], flat[off+2]))
		off += 3
	}
	if s.auxVel != nil {
		for i := 0; i < n; i++ {
			s.auxVel[i] = spacehub.NewVector(flat[off], flat[off+1], flat[off+2])
			off += 3
		}
	}
}

// EvaluateGeneralDerivative fills dy with dy/dτ in WriteToScalarArray's
// layout: dt/dτ = 1/Ω_pos, dpos/dτ = vel/Ω_pos, dvel/dτ = acc/Ω_vel, plus
// the ω or B derivative in the mode-specific slot.
func (s *System) EvaluateGeneralDerivative(dy []float64) {
	n := s.Number()
	posRF := s.posRegFactor()
	if posRF == 0 {
		posRF = 1
	}
	velRF := s.velRegFactor()
	if velRF == 0 {
		velRF = 1
	}
	dy[0] = 1 / posRF

	force := s.base.Force()
	acc := make([]spacehub.Vector, n)
	force.EvalAcc(s.base, acc)
	accN := append([]spacehub.Vector(nil), acc...)
	force.EvalExtraVelIndepAcc(s.base, acc)
	force.EvalExtraVelDepAcc(s.base, acc)

	switch s.mode {
	case TTL:
		domega := 0.0
		for i := 0; i < n; i++ {
			domega += s.base.Mass(i) * s.base.Vel(i).Dot(accN[i])
		}
		dy[1] = domega
	case LogH:
		dB := 0.0
		for i := 0; i < n; i++ {
			dB -= s.base.Mass(i) * s.base.Vel(i).Dot(acc[i].Sub(accN[i]))
		}
		dy[2] = dB
	}

	off := 3
	for i := 0; i < n; i++ {
		v := s.base.Vel(i).Scale(1 / posRF)
		dy[off], dy[off+1], dy[off+2] = v.X, v.Y, v.Z
		off += 3
	}
	for i := 0; i < n; i++ {
		a := acc[i].Scale(1 / velRF)
		dy[off], dy[off+1], dy[off+2] = a.X, a.Y, a.Z
		off += 3
	}
}
