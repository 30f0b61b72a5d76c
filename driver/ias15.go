package driver

import (
	"math"

	kitlog "github.com/go-kit/kit/log"

	"github.com/spacehub-go/spacehub"
	"github.com/spacehub-go/spacehub/control"
	"github.com/spacehub-go/spacehub/integrator"
)

// IAS15Driver is the predictor-corrector loop around Gauss-Radau.
type IAS15Driver struct {
	gr      *integrator.GaussRadau
	ctrl    *control.Controller
	atol    float64
	rtol    float64
	pcRtol  float64
	maxIter int

	warmedUp  bool
	lastError float64

	logger kitlog.Logger
}

// NewIAS15Driver builds a driver with the default tolerances and safety
// factors.
func NewIAS15Driver() *IAS15Driver {
	return &IAS15Driver{
		gr:      integrator.NewGaussRadau(),
		ctrl:    control.NewIAS15Controller(),
		atol:    0,
		rtol:    control.IAS15DefaultRtol,
		pcRtol:  control.IAS15PCRtol,
		maxIter: 30,
		logger:  noopLogger{},
	}
}

// SetTolerances overrides the final-error tolerances (the PC convergence
// tolerance is fixed by the algorithm).
func (d *IAS15Driver) SetTolerances(atol, rtol float64) {
	d.atol, d.rtol = atol, rtol
}

// SetLogger attaches a structured logger. A nil logger restores the
// no-op default.
func (d *IAS15Driver) SetLogger(l kitlog.Logger) {
	if l == nil {
		l = noopLogger{}
	}
	d.logger = l
}

// Iterate advances s by a step near h, returning the suggested next step
// size.
func (d *IAS15Driver) Iterate(s System, h float64) float64 {
	n := s.StateLen()
	lastPCErr := math.Inf(1)
	rejects := 0

	for iter := 0; iter < d.maxIter; iter++ {
		d.gr.Step(s, h)

		pcErr := control.WeightedNorm(zeros(n), d.gr.YH(), addDiff(d.gr.YH(), d.gr.DiffB6()), d.atol, d.pcRtol)
		converged := pcErr < 1 || pcErr > lastPCErr
		lastPCErr = pcErr

		if !converged {
			continue
		}

		err := control.WeightedNorm(zeros(n), d.gr.YH(), addDiff(d.gr.YH(), d.gr.B(6)), d.atol, d.rtol)
		hNew := d.ctrl.NextStepSize(7, h, err, d.lastError, d.warmedUp)

		if err < 1 {
			d.gr.CommitToState(s)
			d.gr.PredictNewB(hNew / h)
			d.warmedUp = true
			d.lastError = err
			return hNew
		}

		rejects++
		if rejects == rejectionStormThreshold {
			d.logger.Log("level", "warning", "subsys", "driver", "msg", "repeated step rejection", "rejects", rejects, "h", h, "err", err)
		}

		if d.warmedUp {
			d.gr.PredictNewB(hNew / h)
		}
		h = hNew
		d.gr.ResetPCIteration()
		lastPCErr = math.Inf(1)
	}

	d.logger.Log("level", "error", "subsys", "driver", "msg", "max iterations exceeded", "max_iter", d.maxIter)
	spacehub.Abort("driver", "IAS15 driver exceeded max iterations (%d)", d.maxIter)
	return 0
}

func zeros(n int) []float64 { return make([]float64, n) }

func addDiff(base, delta []float64) []float64 {
	out := make([]float64, len(base))
	for i := range base {
		out[i] = base[i] + delta[i]
	}
	return out
}
