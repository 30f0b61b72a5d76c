package chain

import (
	"github.com/spacehub-go/spacehub"
	"github.com/spacehub-go/spacehub/particles"
)

// System wraps a plain particle system and drives it entirely in chain
// coordinates: drift and kick advance chain_pos/chain_vel directly (summing
// small relative vectors rather than large, nearly equal Cartesian ones),
// and the wrapped system's Cartesian positions and velocities are re-derived
// from the chain after every Drift, Kick and ReadFromScalarArray. This is the
// `ChainSystem` collaborator of `spec.md` §3.3/§3.4/§4.7: pos/vel blocks in
// its flat state hold chain coordinates, not Cartesian.
type System struct {
	base *particles.System

	idx      []int
	chainPos []spacehub.Vector
	chainVel []spacehub.Vector
}

// New wraps base in chain coordinates, building the initial chain index
// from base's current Cartesian positions.
func New(base *particles.System) *System {
	n := base.Number()
	pos := make([]spacehub.Vector, n)
	vel := make([]spacehub.Vector, n)
	for i := 0; i < n; i++ {
		pos[i], vel[i] = base.Pos(i), base.Vel(i)
	}
	idx := CalcChainIndex(pos)
	return &System{
		base:     base,
		idx:      idx,
		chainPos: ToChain(pos, idx),
		chainVel: ToChain(vel, idx),
	}
}

func (s *System) Number() int { return s.base.Number() }
func (s *System) Mass(i int) float64 { return s.base.Mass(i) }
func (s *System) Pos(i int) spacehub.Vector { return s.base.Pos(i) }
func (s *System) Vel(i int) spacehub.Vector { return s.base.Vel(i) }
func (s *System) ID(i int) int { return s.base.ID(i) }
func (s *System) Time() float64 { return s.base.Time() }
func (s *System) Index() []int { return s.idx }
func (s *System) ChainPos() []spacehub.Vector { return s.chainPos }
func (s *System) ChainVel() []spacehub.Vector { return s.chainVel }

// chainAdvance advances a chain-coordinate array by step*increment and
// re-derives the corresponding Cartesian array in place.
func (s *System) chainAdvance(cart, chainVar, chainInc []spacehub.Vector, step float64) {
	for k := range chainVar {
		chainVar[k] = chainVar[k].Add(chainInc[k].Scale(step))
	}
	copy(cart, ToCartesian(chainVar, s.idx))
}

// Drift advances chain position by chain_vel*h and the system time by h,
// then re-derives Cartesian positions.
func (s *System) Drift(h float64) {
	n := s.Number()
	cart := make([]spacehub.Vector, n)
	s.chainAdvance(cart, s.chainPos, s.chainVel, h)
	for i := 0; i < n; i++ {
		s.base.SetPos(i, cart[i])
	}
	s.base.SetTime(s.base.Time() + h)
}

// Kick advances chain velocity by h*chain(acc), evaluating the acceleration
// in Cartesian coordinates (the only frame the Force contract knows) and
// transforming it into chain coordinates before advancing. With a
// velocity-dependent external force, it runs the same Picard sub-iteration
// as particles.System.Kick (kick_pseu_vel, kick_real_vel, kick_pseu_vel),
// straddled around chain-coordinate advances instead of Cartesian ones.
func (s *System) Kick(h float64) {
	n := s.Number()
	force := s.base.Force()

	aVI := make([]spacehub.Vector, n)
	force.EvalAcc(s.base, aVI)
	force.EvalExtraVelIndepAcc(s.base, aVI)

	if !force.ExtVelDep() {
		chainAcc := ToChain(aVI, s.idx)
		cart := make([]spacehub.Vector, n)
		s.chainAdvance(cart, s.chainVel, chainAcc, h)
		for i := 0; i < n; i++ {
			s.base.SetVel(i, cart[i])
		}
		return
	}

	origChainVel := append([]spacehub.Vector(nil), s.chainVel...)
	half := h / 2

	// kick_pseu_vel: bootstrap a trial velocity using only the
	// velocity-independent acceleration.
	s.kickBy(origChainVel, aVI, half)

	// kick_real_vel: evaluate the velocity-dependent acceleration at the
	// trial velocity, then apply the full step from the original velocity
	// so the update is centered on the half-step.
	aVD := make([]spacehub.Vector, n)
	force.EvalExtraVelDepAcc(s.base, aVD)
	aTotal := make([]spacehub.Vector, n)
	for i := range aTotal {
		aTotal[i] = aVI[i].Add(aVD[i])
	}
	s.kickBy(origChainVel, aTotal, h)

	// kick_pseu_vel again: refine the trial velocity against the
	// now-updated state, restoring time-symmetry for the next call.
	force.EvalExtraVelDepAcc(s.base, aVD)
	for i := range aTotal {
		aTotal[i] = aVI[i].Add(aVD[i])
	}
	s.kickBy(origChainVel, aTotal, h)
}

// kickBy sets chain velocity (and the Cartesian velocity it implies) to
// base + h*chain(acc), where acc is given in Cartesian coordinates.
func (s *System) kickBy(base, acc []spacehub.Vector, h float64) {
	chainAcc := ToChain(acc, s.idx)
	for k := range s.chainVel {
		s.chainVel[k] = base[k].Add(chainAcc[k].Scale(h))
	}
	cart := ToCartesian(s.chainVel, s.idx)
	for i := range cart {
		s.base.SetVel(i, cart[i])
	}
}

// Reindex recomputes the chain index from the current Cartesian positions
// and, if it changed, reindexes chain_pos/chain_vel in place via
// UpdateChain rather than a round trip through Cartesian — preserving the
// accumulated round-off cancellation a close encounter just bought.
// It mirrors the source's impl_post_iter_process. The drivers in package
// driver do not call it; the chain index stays as New built it until
// Reindex is called.
func (s *System) Reindex() {
	n := s.Number()
	pos := make([]spacehub.Vector, n)
	for i := 0; i < n; i++ {
		pos[i] = s.base.Pos(i)
	}
	newIdx := CalcChainIndex(pos)
	if sameIndex(s.idx, newIdx) {
		return
	}
	s.chainPos = UpdateChain(s.idx, s.chainPos, newIdx)
	s.chainVel = UpdateChain(s.idx, s.chainVel, newIdx)
	s.idx = newIdx
}

// Energy returns kinetic plus chain-summed potential energy: the same
// physical quantity as particles.System.Energy, computed by summing over
// chain edges instead of all N(N-1)/2 pairs.
func (s *System) Energy() float64 {
	n := s.Number()
	mass := make([]float64, n)
	for i := 0; i < n; i++ {
		mass[i] = s.base.Mass(i)
	}
	return s.base.KineticEnergy() + PotentialEnergy(mass, s.chainPos, s.idx)
}

func sameIndex(a, b []int) bool {
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

// StateLen returns the flat-state length: 1+6N, chain_pos/chain_vel in
// place of Cartesian pos/vel.
func (s *System) StateLen() int { return 1 + 6*s.Number() }

// WriteToScalarArray serializes [time, chain_pos..., chain_vel...].
func (s *System) WriteToScalarArray(flat []float64) {
	n := s.Number()
	flat[0] = s.base.Time()
	off := 1
	for i := 0; i < n; i++ {
		p := s.chainPos[i]
		flat[off], flat[off+1], flat[off+2] = p.X, p.Y, p.Z
		off += 3
	}
	for i := 0; i < n; i++ {
		v := s.chainVel[i]
		flat[off], flat[off+1], flat[off+2] = v.X, v.Y, v.Z
		off += 3
	}
}

// ReadFromScalarArray is the inverse of WriteToScalarArray: it loads chain
// coordinates, then re-derives Cartesian positions/velocities so the Force
// collaborator always sees a consistent Cartesian state.
func (s *System) ReadFromScalarArray(flat []float64) {
	n := s.Number()
	s.base.SetTime(flat[0])
	off := 1
	for i := 0; i < n; i++ {
		s.chainPos[i] = spacehub.NewVector(flat[off], flat[off+1], flat[off+2])
		off += 3
	}
	for i := 0; i < n; i++ {
		s.chainVel[i] = spacehub.NewVector(flat[off], flat[off+1], flat[off+2])
		off += 3
	}
	cartPos := ToCartesian(s.chainPos, s.idx)
	cartVel := ToCartesian(s.chainVel, s.idx)
	for i := 0; i < n; i++ {
		s.base.SetPos(i, cartPos[i])
		s.base.SetVel(i, cartVel[i])
	}
}

// EvaluateGeneralDerivative fills dy with dy/dt in WriteToScalarArray's
// layout: dt/dt=1, d(chain_pos)/dt = chain_vel, d(chain_vel)/dt =
// chain(acc), with acc evaluated in Cartesian coordinates.
func (s *System) EvaluateGeneralDerivative(dy []float64) {
	n := s.Number()
	dy[0] = 1
	off := 1
	for i := 0; i < n; i++ {
		v := s.chainVel[i]
		dy[off], dy[off+1], dy[off+2] = v.X, v.Y, v.Z
		off += 3
	}
	acc := make([]spacehub.Vector, n)
	force := s.base.Force()
	force.EvalAcc(s.base, acc)
	force.EvalExtraVelIndepAcc(s.base, acc)
	force.EvalExtraVelDepAcc(s.base, acc)
	chainAcc := ToChain(acc, s.idx)
	for i := 0; i < n; i++ {
		a := chainAcc[i]
		dy[off], dy[off+1], dy[off+2] = a.X, a.Y, a.Z
		off += 3
	}
}
