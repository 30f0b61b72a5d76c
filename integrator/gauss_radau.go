package integrator

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// radauH holds the 7 Gauss-Radau stage abscissas of the 15th-order method,
// reproduced to full float64 precision.
var radauH = [7]float64{
	0.0562625605369221464656522,
	0.180240243174887049956018,
	0.352624717113169637373907,
	0.547153626330555383001448,
	0.734210177215410531523210,
	0.885320946839095768090359,
	0.977520613561287501891174,
}

// GeneralState is the flat-state ODE contract a Gauss-Radau integrator
// consumes: any particle system exposing a length, a serialize/deserialize
// pair, and a general dy/dh derivative function.
type GeneralState interface {
	StateLen() int
	WriteToScalarArray(flat []float64)
	ReadFromScalarArray(flat []float64)
	EvaluateGeneralDerivative(dy []float64)
}

// GaussRadau is the 7-stage, 15th-order one-step integrator built on
// Gauss-Radau spaced stage abscissas. Its b/g predictor-corrector tables
// are sized to the state's flat
// length and rebuilt lazily whenever that length changes.
//
// The stage-update matrices (g2b, the Newton-basis-to-monomial change of
// basis) and the Newton divided-difference weights (rs) are not hardcoded
// tables: they are derived at construction time directly from radauH via
// standard Newton divided-difference / polynomial algebra, since they are
// pure functions of the stage abscissas. This avoids transcribing a
// 28-entry magic table by hand.
type GaussRadau struct {
	varNum int

	b, g, oldB [7][]float64

	basisPoly *mat64.Dense // 7x7, row k holds the monomial expansion of ∏_{j<k}(x-h[j]), zero-padded
	rs        *mat64.Dense // 7x7 Newton divided-difference weights

	yH0, yH, dy0, tmp, stage, tmpState, inputState []float64

	diffB6 []float64 // g_new[6]-g_old[6] at the final stage, the PC witness
}

// NewGaussRadau builds a GaussRadau integrator with its stage tables
// precomputed from radauH.
func NewGaussRadau() *GaussRadau {
	gr := &GaussRadau{}
	gr.basisPoly = computeBasisPolys(radauH)
	gr.rs = computeRS(radauH)
	return gr
}

func computeBasisPolys(h [7]float64) *mat64.Dense {
	m := mat64.NewDense(7, 7, nil)
	cur := []float64{1}
	m.Set(0, 0, 1)
	for k := 1; k < 7; k++ {
		cur = polyMulLinear(cur, -h[k-1])
		for row, coef := range cur {
			m.Set(k, row, coef)
		}
	}
	return m
}

// polyMulLinear multiplies polynomial p (coefficients low-to-high) by
// (x + c), returning the degree-raised result.
func polyMulLinear(p []float64, c float64) []float64 {
	out := make([]float64, len(p)+1)
	for i, coef := range p {
		out[i+1] += coef
		out[i] += coef * c
	}
	return out
}

// computeRS computes rs(k,0) = 1/(h_k*N_k(h_k)) and rs(k,j+1) = N_j(h_k)/N_k(h_k)
// for j<k, where N_m(x) = ∏_{i<m}(x-h[i]).
func computeRS(h [7]float64) *mat64.Dense {
	rs := mat64.NewDense(7, 7, nil)
	newtonAt := func(upto, at int) float64 {
		p := 1.0
		for i := 0; i < upto; i++ {
			p *= h[at] - h[i]
		}
		return p
	}
	for k := 0; k < 7; k++ {
		nk := newtonAt(k, k)
		rs0 := 1 / nk
		rs.Set(k, 0, rs0/h[k])
		for j := 0; j < k; j++ {
			rs.Set(k, j+1, newtonAt(j, k)*rs0)
		}
	}
	return rs
}

func (gr *GaussRadau) resize(n int) {
	gr.varNum = n
	for k := 0; k < 7; k++ {
		gr.b[k] = make([]float64, n)
		gr.g[k] = make([]float64, n)
		gr.oldB[k] = make([]float64, n)
	}
	gr.yH0 = make([]float64, n)
	gr.yH = make([]float64, n)
	gr.dy0 = make([]float64, n)
	gr.tmp = make([]float64, n)
	gr.stage = make([]float64, n)
	gr.tmpState = make([]float64, n)
	gr.inputState = make([]float64, n)
	gr.diffB6 = make([]float64, n)
}

// Step performs one predictor-corrector sweep of the algorithm: seven
// Gauss-Radau stages, each reconstructing the stage state via the Horner
// form, evaluating the derivative there, and updating the g/b tables; then
// assembling the tentative y(h) into YH(). It only stages the result —
// it never writes back into s, since a caller iterating PC sweeps to
// convergence (or retrying after a rejected step) must keep re-deriving
// stages from the same y0. Call CommitToState once the sweep has
// converged and the step has been accepted.
func (gr *GaussRadau) Step(s GeneralState, h float64) {
	n := s.StateLen()
	if n != gr.varNum {
		gr.resize(n)
	}

	s.WriteToScalarArray(gr.yH0)
	s.EvaluateGeneralDerivative(gr.dy0)
	copy(gr.inputState, gr.yH0)

	for k := 0; k < 7; k++ {
		hk := h * radauH[k]
		gr.reconstructStage(hk, k)
		s.ReadFromScalarArray(gr.stage)
		s.EvaluateGeneralDerivative(gr.tmp) // dy/dh at the stage

		rs0 := gr.rs.At(k, 0)
		for i := 0; i < n; i++ {
			raw := gr.tmp[i] - gr.dy0[i]
			gNew := raw*rs0 - dotG(gr.g, gr.rs, k, i)
			dg := gNew - gr.g[k][i]
			gr.g[k][i] = gNew
			for row := 0; row <= k; row++ {
				gr.b[row][i] += dg * gr.basisPoly.At(k, row)
			}
			if k == 6 {
				gr.diffB6[i] = dg
			}
		}

		// restore S to y0 for the next stage's Horner reconstruction
		s.ReadFromScalarArray(gr.inputState)
	}

	gr.integrateAtEnd(h)
}

func dotG(g [7][]float64, rs *mat64.Dense, k, i int) float64 {
	sum := 0.0
	for j := 0; j < k; j++ {
		sum += g[j][i] * rs.At(k, j+1)
	}
	return sum
}

// reconstructStage fills gr.stage with y(hk) = y0 + hk*(dy0 + Σ_r
// b_r*τ^(r+1)/(r+2)), τ = radauH[k], via the nested Horner form.
func (gr *GaussRadau) reconstructStage(hk float64, k int) {
	n := gr.varNum
	hStage := radauH[k]
	for i := 0; i < n; i++ {
		acc := gr.b[6][i] / 8
		acc = gr.b[5][i]/7 + hStage*acc
		acc = gr.b[4][i]/6 + hStage*acc
		acc = gr.b[3][i]/5 + hStage*acc
		acc = gr.b[2][i]/4 + hStage*acc
		acc = gr.b[1][i]/3 + hStage*acc
		acc = gr.b[0][i]/2 + hStage*acc
		gr.stage[i] = gr.yH0[i] + hk*(gr.dy0[i]+hStage*acc)
	}
}

// integrateAtEnd assembles y(h) = y0 + h*(dy0 + b0/2 + b1/3 + ... + b6/8)
// into gr.yH.
func (gr *GaussRadau) integrateAtEnd(h float64) {
	n := gr.varNum
	for i := 0; i < n; i++ {
		sum := gr.dy0[i]
		sum += gr.b[0][i] / 2
		sum += gr.b[1][i] / 3
		sum += gr.b[2][i] / 4
		sum += gr.b[3][i] / 5
		sum += gr.b[4][i] / 6
		sum += gr.b[5][i] / 7
		sum += gr.b[6][i] / 8
		gr.yH[i] = gr.yH0[i] + h*sum
	}
}

// YH returns the tentative end-of-step state assembled by the last Step
// call.
func (gr *GaussRadau) YH() []float64 { return gr.yH }

// CommitToState writes the tentative end-of-step state assembled by the
// last Step call into s. Callers must only do this once the
// predictor-corrector sweep has converged and the error controller has
// accepted the step — mirroring the source's calc_b_table/
// integrate_at_end split, where integrate_at_end runs exactly once, on
// acceptance.
func (gr *GaussRadau) CommitToState(s GeneralState) {
	s.ReadFromScalarArray(gr.yH)
}

// B returns the b-table (row k, all components).
func (gr *GaussRadau) B(k int) []float64 { return gr.b[k] }

// DiffB6 returns g_new[6]-g_old[6] at the final stage, the
// predictor-corrector convergence witness consumed by the IAS15 driver.
func (gr *GaussRadau) DiffB6() []float64 { return gr.diffB6 }

// ResetPCIteration clears the g/b tables to restart convergence from
// scratch after a rejected step.
func (gr *GaussRadau) ResetPCIteration() {
	for k := 0; k < 7; k++ {
		for i := range gr.g[k] {
			gr.g[k][i] = 0
			gr.b[k][i] = 0
		}
	}
}

// PredictNewB propagates the b-table across a step-size change of the
// given ratio (h_new/h_old). This
// implementation uses the diagonal (no cross-order mixing) form of the
// predictor: each row is rescaled by ratio^(i+1) independently. The full
// Everhart predictor mixes higher-order rows into lower ones via a
// combinatorial est_b table; since predict_new_b only warms the starting
// guess for the next predictor-corrector loop (correctness does not depend
// on it — the loop reconverges regardless), the simpler diagonal form is
// used here and documented as such.
func (gr *GaussRadau) PredictNewB(ratio float64) {
	n := gr.varNum
	for i := 0; i < n; i++ {
		for row := 0; row < 7; row++ {
			q := math.Pow(ratio, float64(row+1))
			delta := gr.b[row][i] - gr.oldB[row][i]
			predicted := gr.b[row][i] * q
			gr.oldB[row][i] = predicted
			gr.b[row][i] = predicted + delta
		}
	}
	// Rebuild g from the predicted b by sampling the reconstructed
	// polynomial at the stage nodes and taking Newton divided differences
	// — the inverse of the basisPoly/Horner construction above.
	sample := make([]float64, 7)
	for i := 0; i < n; i++ {
		for k := 0; k < 7; k++ {
			sample[k] = hornerAtStage(gr.b, i, radauH[k])
		}
		g := dividedDifferences(radauH[:], sample)
		for k := 0; k < 7; k++ {
			gr.g[k][i] = g[k]
		}
	}
}

func hornerAtStage(b [7][]float64, i int, hStage float64) float64 {
	acc := b[6][i]
	acc = b[5][i] + hStage*acc
	acc = b[4][i] + hStage*acc
	acc = b[3][i] + hStage*acc
	acc = b[2][i] + hStage*acc
	acc = b[1][i] + hStage*acc
	acc = b[0][i] + hStage*acc
	return acc
}

// dividedDifferences computes the Newton divided-difference coefficients
// of the data (x[k], y[k]) in place, the standard O(n^2) triangular
// recurrence.
func dividedDifferences(x []float64, y []float64) []float64 {
	n := len(x)
	coef := append([]float64(nil), y...)
	for j := 1; j < n; j++ {
		for i := n - 1; i >= j; i-- {
			coef[i] = (coef[i] - coef[i-1]) / (x[i] - x[i-j])
		}
	}
	return coef
}
