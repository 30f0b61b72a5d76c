// Package integrator implements the symplectic operator-splitting family
// and the Gauss-Radau 15 integrator consumed by the adaptive drivers in
// package driver.
package integrator

import "math"

// DriftKicker is the particle-system contract a symplectic integrator
// drives: drift(h) advances positions (and time) by dt*vel, kick(h)
// advances velocities by dt*acc. Both particles.System and
// regularized.System implement it.
type DriftKicker interface {
	Drift(h float64)
	Kick(h float64)
}

type splitStep struct {
	c    float64
	kick bool
}

var yoshidaCache = map[int][]splitStep{}

// yoshidaSequence returns the drift/kick coefficient sequence for the
// given even order, built by recursive triple-jump composition (Yoshida
// 1990): a base order-2 method S2(h) = D(h/2) K(h) D(h/2) is composed as
// S_{2k}(h) = S_{2k-2}(w1·h) S_{2k-2}(w0·h) S_{2k-2}(w1·h) with
// w1 = 1/(2-2^(1/(2k-1))), w0 = 1-2w1, raising the order by 2 at each
// application. This reproduces an exact, symmetric, reversible splitting
// for any requested even order rather than transcribing literal per-order
// tables.
func yoshidaSequence(order int) []splitStep {
	if cached, ok := yoshidaCache[order]; ok {
		return cached
	}
	seq := []splitStep{{0.5, false}, {1.0, true}, {0.5, false}}
	for k := 2; k <= order/2; k++ {
		exp := 1.0 / float64(2*k-1)
		w1 := 1 / (2 - math.Pow(2, exp))
		w0 := 1 - 2*w1
		seq = tripleJump(seq, w1, w0)
	}
	seq = mergeAdjacentDrifts(seq)
	yoshidaCache[order] = seq
	return seq
}

func tripleJump(seq []splitStep, w1, w0 float64) []splitStep {
	out := make([]splitStep, 0, 3*len(seq))
	out = append(out, scaleSeq(seq, w1)...)
	out = append(out, scaleSeq(seq, w0)...)
	out = append(out, scaleSeq(seq, w1)...)
	return out
}

func scaleSeq(seq []splitStep, w float64) []splitStep {
	out := make([]splitStep, len(seq))
	for i, s := range seq {
		out[i] = splitStep{c: s.c * w, kick: s.kick}
	}
	return out
}

// mergeAdjacentDrifts sums consecutive drift coefficients produced by
// composing sub-sequences, so the integrator issues one drift call instead
// of several equivalent smaller ones.
func mergeAdjacentDrifts(seq []splitStep) []splitStep {
	out := make([]splitStep, 0, len(seq))
	for _, s := range seq {
		if n := len(out); n > 0 && !out[n-1].kick && !s.kick {
			out[n-1].c += s.c
			continue
		}
		out = append(out, s)
	}
	return out
}

// Symplectic is a fixed-order symplectic operator-splitting integrator
// (orders 2, 4, 6, 8, 10).
type Symplectic struct {
	order int
	seq   []splitStep
}

// NewSymplectic builds a Symplectic integrator of the given even order.
func NewSymplectic(order int) *Symplectic {
	return &Symplectic{order: order, seq: yoshidaSequence(order)}
}

// Order returns the integrator's order.
func (sy *Symplectic) Order() int { return sy.order }

// Step advances s by one macro step h: for each (c_i, kind_i) in the
// order's coefficient sequence, drift or kick by c_i*h.
func (sy *Symplectic) Step(s DriftKicker, h float64) {
	for _, step := range sy.seq {
		if step.kick {
			s.Kick(step.c * h)
		} else {
			s.Drift(step.c * h)
		}
	}
}
