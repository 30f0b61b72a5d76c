package integrator

// ModifiedMidpoint is the Bulirsch-Stoer driver's inner integrator: a
// fixed order-2 symplectic method (DKD or KDK form) applied repeatedly
// at a given sub-step count, over which the driver extrapolates.
type ModifiedMidpoint struct {
	kdk bool
}

// NewModifiedMidpoint builds the inner integrator. kdk selects the
// kick-drift-kick variant; otherwise drift-kick-drift is used.
func NewModifiedMidpoint(kdk bool) *ModifiedMidpoint {
	return &ModifiedMidpoint{kdk: kdk}
}

// IntegrateNSteps advances s by h using subSteps micro-steps of size
// h/subSteps.
func (m *ModifiedMidpoint) IntegrateNSteps(s DriftKicker, h float64, subSteps int) {
	dh := h / float64(subSteps)
	if m.kdk {
		for i := 0; i < subSteps; i++ {
			s.Kick(dh / 2)
			s.Drift(dh)
			s.Kick(dh / 2)
		}
		return
	}
	for i := 0; i < subSteps; i++ {
		s.Drift(dh / 2)
		s.Kick(dh)
		s.Drift(dh / 2)
	}
}

// Cost returns the BS cost-table entry for a sub-step count of n:
// n substeps, plus 2 extra half-kicks when running the KDK variant.
func (m *ModifiedMidpoint) Cost(n int) float64 {
	c := float64(n)
	if m.kdk {
		c += 2
	}
	return c
}
