// Package driver implements the two adaptive drivers: the Bulirsch-Stoer
// extrapolation driver and the IAS15 predictor-corrector driver around
// Gauss-Radau.
package driver

import (
	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/matrix/mat64"

	"github.com/spacehub-go/spacehub"
	"github.com/spacehub-go/spacehub/control"
	"github.com/spacehub-go/spacehub/integrator"
)

// System is the flat-state, drift/kick contract both drivers consume.
type System interface {
	integrator.DriftKicker
	integrator.GeneralState
}

var subStepCounts = [11]int{1, 2, 3, 5, 8, 12, 17, 25, 36, 51, 73}

// BulirschStoerDriver wraps a modified-midpoint inner integrator with
// Richardson extrapolation over a geometrically increasing sub-step
// sequence, adapting both step size and extrapolation rank.
type BulirschStoerDriver struct {
	maxRank int
	inner   *integrator.ModifiedMidpoint
	ctrl    *control.Controller

	atol, rtol float64
	maxTry     int

	h          []float64 // sub-step counts as floats, length maxRank+1
	cost       []float64
	extrapCoef *mat64.Dense

	idealStepSize []float64
	costPerLen    []float64

	idealRank  int
	lastError  float64
	stepReject bool
	firstStep  bool

	logger kitlog.Logger
}

// NewBulirschStoerDriver builds a driver with the given maximum
// extrapolation rank (7 by default) and inner-integrator variant.
func NewBulirschStoerDriver(maxRank int, kdk bool) *BulirschStoerDriver {
	d := &BulirschStoerDriver{
		maxRank: maxRank,
		inner:   integrator.NewModifiedMidpoint(kdk),
		ctrl:    control.NewBSController(),
		atol:    0,
		rtol:    control.BSDefaultRtol,
		maxTry:  100,
	}
	d.h = make([]float64, maxRank+1)
	d.cost = make([]float64, maxRank+1)
	for k := 0; k <= maxRank; k++ {
		d.h[k] = float64(subStepCounts[k])
		d.cost[k] = d.inner.Cost(subStepCounts[k])
	}
	d.extrapCoef = mat64.NewDense(maxRank+1, maxRank+1, nil)
	for i := 0; i <= maxRank; i++ {
		for j := 0; j < i; j++ {
			hij := d.h[i-j-1]
			d.extrapCoef.Set(i, j, hij*hij/(d.h[i]*d.h[i]-hij*hij))
		}
	}
	d.idealStepSize = make([]float64, maxRank+1)
	d.costPerLen = make([]float64, maxRank+1)
	d.idealRank = maxRank - 1
	d.lastError = 1.0
	d.firstStep = true
	d.logger = noopLogger{}
	return d
}

// SetTolerances overrides the default error-estimator tolerances.
func (d *BulirschStoerDriver) SetTolerances(atol, rtol float64) {
	d.atol, d.rtol = atol, rtol
}

// SetLogger attaches a structured logger. A nil logger restores the
// no-op default.
func (d *BulirschStoerDriver) SetLogger(l kitlog.Logger) {
	if l == nil {
		l = noopLogger{}
	}
	d.logger = l
}

func vecSub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func vecAdd(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func vecAddScaled(a, b []float64, coef float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]*coef
	}
	return out
}

// Iterate advances s by one accepted macro step near h, returning the
// suggested next step size.
func (d *BulirschStoerDriver) Iterate(s System, h float64) float64 {
	n := s.StateLen()
	inputState := make([]float64, n)

	for try := 0; try < d.maxTry; try++ {
		s.WriteToScalarArray(inputState)

		extrapList := make([][]float64, d.maxRank+1)
		s.ReadFromScalarArray(inputState)
		d.inner.IntegrateNSteps(s, h, subStepCounts[0])
		after := make([]float64, n)
		s.WriteToScalarArray(after)
		extrapList[0] = vecSub(after, inputState)

		accepted := false
		var hNew float64

		upper := d.idealRank + 1
		if upper > d.maxRank {
			upper = d.maxRank
		}

	inner:
		for k := 1; k <= upper; k++ {
			s.ReadFromScalarArray(inputState)
			d.inner.IntegrateNSteps(s, h, subStepCounts[k])
			s.WriteToScalarArray(after)
			extrapList[k] = vecSub(after, inputState)

			for j := k; j >= 1; j-- {
				extrapList[j-1] = vecAddScaled(extrapList[j], vecSub(extrapList[j], extrapList[j-1]), d.extrapCoef.At(k, k-j))
			}

			yRef := vecAdd(inputState, extrapList[1])
			yAlt := vecAdd(inputState, extrapList[0])
			err := control.WeightedNorm(inputState, yRef, yAlt, d.atol, d.rtol)

			d.idealStepSize[k] = d.ctrl.NextStepSize(2*k+1, h, err, d.lastError, true)
			d.costPerLen[k] = d.cost[k] / d.idealStepSize[k]

			nearIdeal := d.firstStep || k == d.idealRank-1 || k == d.idealRank || k == d.idealRank+1
			if !nearIdeal {
				continue
			}

			if err <= 1 {
				final := vecAdd(inputState, extrapList[0])
				s.ReadFromScalarArray(final)
				newRank, pick := d.selectOrder(k)
				d.idealRank = newRank
				d.lastError = err
				d.stepReject = false
				d.firstStep = false
				hNew = pick
				accepted = true
				break inner
			}
			if d.rejectionTest(k, err) {
				hNew = d.idealStepSize[k]
				d.stepReject = true
				break inner
			}
		}

		if accepted {
			return hNew
		}
		if try == rejectionStormThreshold {
			d.logger.Log("level", "warning", "subsys", "driver", "msg", "repeated step rejection", "try", try, "h", h)
		}
		if hNew == 0 {
			hNew = d.ctrl.NextStepSize(2*upper+1, h, 2, d.lastError, false)
		}
		h = hNew
		s.ReadFromScalarArray(inputState)
	}

	d.logger.Log("level", "error", "subsys", "driver", "msg", "max retries exceeded", "max_try", d.maxTry)
	spacehub.Abort("driver", "Bulirsch-Stoer driver exceeded max retries (%d)", d.maxTry)
	return 0
}

// selectOrder picks the next extrapolation rank and step size after
// accepting at rank k.
func (d *BulirschStoerDriver) selectOrder(k int) (newRank int, hNew float64) {
	newRank = d.idealRank
	switch {
	case d.firstStep:
		newRank = k
	case k == d.idealRank-1 || k == d.idealRank:
		if k >= 1 && d.costPerLen[k-1] < 0.8*d.costPerLen[k] {
			newRank = k - 1
		} else if k+1 <= d.maxRank && d.costPerLen[k] < 0.9*d.costPerLen[k-1] && !d.stepReject {
			newRank = k + 1
		} else {
			newRank = k
		}
	case k == d.idealRank+1:
		lo := k - 2
		if lo < 0 {
			lo = 0
		}
		if d.costPerLen[lo] < 0.8*d.costPerLen[k-1] {
			newRank = k - 1
		} else if k <= d.maxRank && d.costPerLen[k-1] < 0.9*d.costPerLen[lo] && !d.stepReject {
			newRank = k
		} else {
			newRank = k - 1
		}
	default:
		newRank = k
	}

	if newRank < 2 {
		newRank = 2
	}
	if newRank > d.maxRank-1 {
		newRank = d.maxRank - 1
	}

	if newRank <= k {
		hNew = d.idealStepSize[newRank]
	} else {
		hNew = d.idealStepSize[k] * d.cost[k+1] / d.cost[k]
	}
	return newRank, hNew
}

// rejectionTest is the divergence-anyhow early rejection test.
func (d *BulirschStoerDriver) rejectionTest(k int, err float64) bool {
	h0 := d.h[0]
	switch {
	case k == d.idealRank-1 && k+2 <= d.maxRank:
		ratio := d.h[k+1] * d.h[k+2] / (h0 * h0)
		return err > ratio*ratio
	case k == d.idealRank && k+1 <= d.maxRank:
		ratio := d.h[k+1] / h0
		return err > ratio*ratio
	case k == d.idealRank+1:
		return err > 1
	}
	return false
}
