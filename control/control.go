// Package control implements the PID step-size controller and the
// weighted error estimator shared by the Bulirsch-Stoer and IAS15 drivers.
package control

import "math"

// Default tolerances for the error estimator, by driver context.
const (
	BSDefaultRtol      = 1e-14
	IAS15DefaultRtol    = 5e-10
	IAS15PCRtol         = 1e-16
)

// Controller is the PID step-size controller. Kd is carried for
// completeness but unused: the source's default gains set it to zero, and
// no tested configuration exercises a derivative term.
type Controller struct {
	Kp, Ki, Kd float64
	S1, S2, S3, S4 float64
}

// NewIAS15Controller returns the controller configured with IAS15's
// default safety factors.
func NewIAS15Controller() *Controller {
	return &Controller{Kp: 0.7, Ki: 0.4, Kd: 0, S1: 0.94, S2: 0.65, S3: 0.02, S4: 4.0}
}

// NewBSController returns the controller configured with the
// Bulirsch-Stoer driver's f64 safety factors.
func NewBSController() *Controller {
	return &Controller{Kp: 0.7, Ki: 0.4, Kd: 0, S1: 0.72, S2: 0.95, S3: 0.02, S4: 4.0}
}

func (c *Controller) limiterMax(alpha float64) float64 { return math.Pow(1/c.S3, alpha) }
func (c *Controller) limiterMin(alpha float64) float64 { return math.Pow(c.S3, alpha) / c.S4 }

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// NextStepSize computes the next step size for a method of the given order
// given the current step h and the latest error eNew. If hasPrevErr is
// true, eOld is folded in as the PI term; otherwise the P-only form is
// used. eNew == 0 returns h scaled by the limiter's maximum growth factor.
func (c *Controller) NextStepSize(order int, h, eNew, eOld float64, hasPrevErr bool) float64 {
	alpha := 1 / float64(order)
	lo, hi := c.limiterMin(alpha), c.limiterMax(alpha)
	if eNew == 0 {
		return h * hi
	}
	var factor float64
	if hasPrevErr {
		factor = c.S1 * math.Pow(c.S2/eNew, c.Kp*alpha) * math.Pow(eOld, c.Ki*alpha)
	} else {
		factor = c.S1 * math.Pow(c.S2/eNew, alpha)
	}
	return h * clamp(factor, lo, hi)
}

// WeightedNorm computes the weighted max-norm error estimate:
// max_i |yAlt[i]-yRef[i]| / (atol + rtol*max(|y[i]|,|yRef[i]|,|yAlt[i]|)).
func WeightedNorm(y, yRef, yAlt []float64, atol, rtol float64) float64 {
	maxErr := 0.0
	for i := range yRef {
		scale := atol + rtol*math.Max(math.Abs(y[i]), math.Max(math.Abs(yRef[i]), math.Abs(yAlt[i])))
		if scale == 0 {
			continue
		}
		e := math.Abs(yAlt[i]-yRef[i]) / scale
		if e > maxErr {
			maxErr = e
		}
	}
	return maxErr
}
