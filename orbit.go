package spacehub

import (
	"fmt"
	"math"
	"time"
)

// Orbit is a Kepler two-body orbit, described by the classical elements:
// masses, semi-latus rectum, eccentricity, the three Euler angles and the
// true anomaly. Type is computed from the eccentricity.
type Orbit struct {
	M1, M2 float64 // masses of the two bodies
	G      float64 // gravitational constant; orbit.Mu() = G*(M1+M2)
	P      float64 // semi-latus rectum
	E      float64
	I      float64 // inclination
	Omega  float64 // longitude of ascending node, Ω
	W      float64 // argument of periapsis, ω
	Nu     float64 // true anomaly, ν
	Type   OrbitType
}

// NewOrbit builds an orbit from classical elements, validating eccentricity
// and semi-latus rectum. G defaults to 1 if zero (the N-body unit
// convention used throughout the test suite).
func NewOrbit(m1, m2, p, e, i, Ω, ω, ν, G float64) *Orbit {
	if G == 0 {
		G = 1
	}
	if math.IsNaN(e) || e < 0 {
		Abort("orbit", "invalid eccentricity %v", e)
	}
	if p <= 0 {
		Abort("orbit", "negative semi-latus rectum %v", p)
	}
	return &Orbit{M1: m1, M2: m2, G: G, P: p, E: e, I: i, Omega: Ω, W: ω, Nu: ν, Type: classify(e)}
}

// Mu returns the standard gravitational parameter G*(M1+M2).
func (o *Orbit) Mu() float64 {
	return o.G * (o.M1 + o.M2)
}

// SemiMajorAxis returns a = p/(1-e^2). Defined for ellipses and hyperbolas;
// panics for parabolic orbits, where a is infinite.
func (o *Orbit) SemiMajorAxis() float64 {
	if o.Type == Parabola {
		Abort("orbit", "semi-major axis undefined for a parabolic orbit")
	}
	return o.P / (1 - o.E*o.E)
}

// ImpactParameter returns the hyperbolic impact parameter b = |a|*sqrt(e^2-1).
// Only meaningful for hyperbolic orbits; panics otherwise.
func (o *Orbit) ImpactParameter() float64 {
	if o.Type != Hyperbola {
		Abort("orbit", "impact parameter only defined for hyperbolic orbits")
	}
	a := o.SemiMajorAxis()
	return math.Abs(a) * math.Sqrt(o.E*o.E-1)
}

// Period returns the orbital period. Only elliptical orbits are periodic;
// parabolic and hyperbolic orbits panic.
func (o *Orbit) Period() time.Duration {
	if o.Type != Ellipse {
		Abort("orbit", "Only elliptical orbit periodic")
	}
	a := o.SemiMajorAxis()
	seconds := 2 * math.Pi * math.Sqrt(a*a*a/o.Mu())
	return time.Duration(seconds * float64(time.Second))
}

// ToCartesian converts the orbit to a Cartesian (position, velocity) state:
// a perifocal-frame state scaled by the conic radius and speed, rotated
// into the inertial frame by rot313(-ω, -i, -Ω), the inverse of the 3-1-3
// inertial-to-perifocal rotation with angles (Ω, i, ω).
func (o *Orbit) ToCartesian() (pos, vel Vector) {
	μ := o.Mu()
	sinν, cosν := math.Sincos(o.Nu)
	r := o.P / (1 + o.E*cosν)
	v := math.Sqrt(μ / o.P)
	posOrbit := Vector{r * cosν, r * sinν, 0}
	velOrbit := Vector{-v * sinν, v * (o.E + cosν), 0}
	pos = rot313(-o.W, -o.I, -o.Omega, posOrbit)
	vel = rot313(-o.W, -o.I, -o.Omega, velOrbit)
	return
}

// NewOrbitFromCartesian recovers the classical elements from a relative
// position/velocity state: the Runge-Lenz vector gives eccentricity, the
// angular momentum gives inclination and semi-latus rectum, and the node
// vector resolves the remaining angles with explicit sign conventions for
// the degenerate equatorial/circular cases.
func NewOrbitFromCartesian(m1, m2 float64, dr, dv Vector, G float64) *Orbit {
	if G == 0 {
		G = 1
	}
	μ := G * (m1 + m2)
	r := dr.Norm()
	v2 := dv.Norm2()
	L := dr.Cross(dv)
	n := Vector{0, 0, 1}.Cross(L)

	rlCoeff := v2 - μ/r
	rvdv := dr.Dot(dv)
	eVec := dr.Scale(rlCoeff).Sub(dv.Scale(rvdv)).Scale(1 / μ)
	e := eVec.Norm()
	ot := classify(e)

	var p float64
	if ot == Parabola {
		a := -μ * r / (r*v2 - 2*μ)
		p = a * (1 - e*e)
	} else {
		p = L.Norm2() / μ
	}

	Lnorm := L.Norm()
	var i float64
	if Lnorm == 0 {
		i = 0
	} else {
		i = math.Acos(clampUnit(L.Z / Lnorm))
	}

	nNorm := n.Norm()
	var Ω float64
	if nNorm < 1e-300 {
		Ω = 0 // equatorial orbit: node undefined
	} else {
		Ω = math.Acos(clampUnit(n.X / nNorm))
		if n.Y < 0 {
			Ω = 2*math.Pi - Ω
		}
	}

	var ω float64
	if e < eccentricityTol {
		ω = 0 // circular orbit: periapsis undefined
	} else if nNorm < 1e-300 {
		ω = math.Atan2(eVec.Y, eVec.X) // equatorial: measure from x-axis
		if ω < 0 {
			ω += 2 * math.Pi
		}
	} else {
		ω = math.Acos(clampUnit(n.Dot(eVec) / (nNorm * e)))
		if eVec.Z < 0 {
			ω = 2*math.Pi - ω
		}
	}

	var ν float64
	if e < eccentricityTol {
		// Circular: measure angle from the node (or x-axis if equatorial too).
		ref := n
		refNorm := nNorm
		if refNorm < 1e-300 {
			ref = Vector{1, 0, 0}
			refNorm = 1
		}
		ν = math.Acos(clampUnit(ref.Dot(dr) / (refNorm * r)))
		if dr.Z < 0 {
			ν = 2*math.Pi - ν
		}
	} else {
		ν = math.Acos(clampUnit(eVec.Dot(dr) / (e * r)))
		if rvdv < 0 {
			ν = 2*math.Pi - ν
		}
	}

	return &Orbit{M1: m1, M2: m2, G: G, P: p, E: e, I: i, Omega: Ω, W: ω, Nu: ν, Type: ot}
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// String implements fmt.Stringer the way smd's Orbit.String does.
func (o *Orbit) String() string {
	return fmt.Sprintf("type=%s p=%.6f e=%.6f i=%.4f Ω=%.4f ω=%.4f ν=%.4f", o.Type, o.P, o.E, o.I, o.Omega, o.W, o.Nu)
}
