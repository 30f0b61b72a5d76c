package spacehub

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// rot313 performs a 3-1-3 Euler angle rotation of v. Orbit.ToCartesian uses
// it with angles (-ω, -i, -Ω) to rotate the perifocal (PQW) frame into the
// inertial frame.
func rot313(θ1, θ2, θ3 float64, v Vector) Vector {
	return mxv33(r3r1r3(θ1, θ2, θ3), v)
}

// r3r1r3 builds the 3-1-3 Euler rotation matrix. From Schaub and Junkins.
func r3r1r3(θ1, θ2, θ3 float64) *mat64.Dense {
	sθ1, cθ1 := math.Sincos(θ1)
	sθ2, cθ2 := math.Sincos(θ2)
	sθ3, cθ3 := math.Sincos(θ3)
	return mat64.NewDense(3, 3, []float64{
		cθ3*cθ1 - sθ3*cθ2*sθ1, cθ3*sθ1 + sθ3*cθ2*cθ1, sθ3 * sθ2,
		-sθ3*cθ1 - cθ3*cθ2*sθ1, -sθ3*sθ1 + cθ3*cθ2*cθ1, cθ3 * sθ2,
		sθ2 * sθ1, -sθ2 * cθ1, cθ2,
	})
}

// mxv33 multiplies a 3x3 matrix by a Vector.
func mxv33(m *mat64.Dense, v Vector) Vector {
	vVec := mat64.NewVector(3, []float64{v.X, v.Y, v.Z})
	var rVec mat64.Vector
	rVec.MulVec(m, vVec)
	return Vector{rVec.At(0, 0), rVec.At(1, 0), rVec.At(2, 0)}
}
