package cone

import "math"

// expNewtonIters bounds the Newton-bisection hybrid search used to
// project onto the boundary of the exponential cone when neither the
// "already feasible" nor "negative dual cone" special case applies.
const expNewtonIters = 100

// ExpConeT is the exponential cone {(x,y,z) : y>0, y*exp(x/y) <= z} U
// {(x,0,z) : x<=0, z>=0}, stored over v[start:start+3] as (x,y,z).
type ExpConeT struct {
	start int
}

// NewExpCone builds an ExpConeT over v[start:start+3].
func NewExpCone(start, n int) (*ExpConeT, error) {
	if err := validateRange(start, 3, n); err != nil {
		return nil, err
	}
	return &ExpConeT{start: start}, nil
}

func (c *ExpConeT) Kind() Kind            { return Exp }
func (c *ExpConeT) Range() (int, int)     { return c.start, 3 }
func (c *ExpConeT) RequiresScalarE() bool { return true }
func (c *ExpConeT) RescaleBounds([]float64) {}

// Project projects v[start:start+3] onto the exponential cone.
func (c *ExpConeT) Project(v []float64) {
	x, y, z := projectExpPrimal(v[c.start], v[c.start+1], v[c.start+2])
	v[c.start], v[c.start+1], v[c.start+2] = x, y, z
}

// InDual reports membership in the dual exponential cone.
func (c *ExpConeT) InDual(y []float64, tol float64) bool {
	return inExpDual(y[c.start], y[c.start+1], y[c.start+2], tol)
}

// InRecc reports membership in the recession cone of Exp, which is Exp
// itself (Exp is a cone, invariant under positive scaling).
func (c *ExpConeT) InRecc(x []float64, tol float64) bool {
	return inExpPrimal(x[c.start], x[c.start+1], x[c.start+2], tol)
}

// DualExpConeT is the dual of ExpConeT.
type DualExpConeT struct {
	start int
}

// NewDualExpCone builds a DualExpConeT over v[start:start+3].
func NewDualExpCone(start, n int) (*DualExpConeT, error) {
	if err := validateRange(start, 3, n); err != nil {
		return nil, err
	}
	return &DualExpConeT{start: start}, nil
}

func (c *DualExpConeT) Kind() Kind            { return DualExp }
func (c *DualExpConeT) Range() (int, int)     { return c.start, 3 }
func (c *DualExpConeT) RequiresScalarE() bool { return true }
func (c *DualExpConeT) RescaleBounds([]float64) {}

// Project uses the Moreau decomposition P_{K*}(w) = w + P_K(-w) to
// reuse the primal projector rather than re-deriving a second
// Newton-bisection search for the dual.
func (c *DualExpConeT) Project(v []float64) {
	x, y, z := v[c.start], v[c.start+1], v[c.start+2]
	px, py, pz := projectExpPrimal(-x, -y, -z)
	v[c.start] = x + px
	v[c.start+1] = y + py
	v[c.start+2] = z + pz
}

// InDual reports membership in (Exp*)* == Exp.
func (c *DualExpConeT) InDual(y []float64, tol float64) bool {
	return inExpPrimal(y[c.start], y[c.start+1], y[c.start+2], tol)
}

// InRecc reports membership in the recession cone of Exp*, which is
// Exp* itself.
func (c *DualExpConeT) InRecc(x []float64, tol float64) bool {
	return inExpDual(x[c.start], x[c.start+1], x[c.start+2], tol)
}

// inExpPrimal reports whether (x,y,z) lies in the exponential cone, up
// to tol.
func inExpPrimal(x, y, z float64, tol float64) bool {
	if y > tol {
		return y*math.Exp(x/y) <= z+tol
	}
	return x <= tol && math.Abs(y) <= tol && z >= -tol
}

// inExpDual reports whether (u,v,w) lies in the dual exponential cone
// {(u,v,w) : u<0, -u*exp(v/u) <= e*w} U {(0,v,w) : v>=0, w>=0}, up to
// tol.
func inExpDual(u, v, w float64, tol float64) bool {
	if u < -tol {
		return -u*math.Exp(v/u) <= math.E*w+tol
	}
	return math.Abs(u) <= tol && v >= -tol && w >= -tol
}

// projectExpPrimal projects (r,s,t) onto the exponential cone.
//
// The two closed-form special cases (already feasible; in the negative
// dual cone, whose projection is the origin) are checked first. In the
// remaining case the projection lies on the smooth boundary surface
// y*exp(x/y) = z, and the KKT stationarity conditions of the projection
// problem reduce — after substituting q = x/y — to a single nonlinear
// equation in q:
//
//	(t*exp(q) + r)*(1 - q + q^2) - (s - r + q*r)*(exp(2q) + q) = 0
//
// which is solved with a Newton step safeguarded by bisection inside a
// bracket refined every iteration, falling back to the r<=0,s<=0 corner
// projection if no sign change can be bracketed (defensive: the hot
// loop must never fail to produce a feasible point).
func projectExpPrimal(r, s, t float64) (float64, float64, float64) {
	const tol = 1e-9
	if inExpPrimal(r, s, t, tol) {
		return r, s, t
	}
	if inExpDual(-r, -s, -t, tol) {
		return 0, 0, 0
	}
	if r <= 0 && s <= 0 {
		return r, 0, math.Max(t, 0)
	}

	f := func(q float64) float64 {
		eq := math.Exp(q)
		return (t*eq+r)*(1-q+q*q) - (s - r + q*r)*(eq*eq+q)
	}

	qlo, qhi := -40.0, 40.0
	flo, fhi := f(qlo), f(qhi)
	if flo*fhi > 0 {
		// Could not bracket a root; fall back to a safe feasible point.
		return r, 0, math.Max(t, 0)
	}

	q := (qlo + qhi) / 2
	for iter := 0; iter < expNewtonIters; iter++ {
		fq := f(q)
		if fq == 0 {
			break
		}
		if fq*flo < 0 {
			qhi, fhi = q, fq
		} else {
			qlo, flo = q, fq
		}

		// Newton step from the bisection midpoint, via a central
		// finite-difference derivative; fall back to plain bisection
		// when the step would leave the current bracket.
		const h = 1e-6
		df := (f(q+h) - f(q-h)) / (2 * h)
		qNext := q
		if df != 0 {
			qNext = q - fq/df
		}
		if qNext <= qlo || qNext >= qhi {
			qNext = (qlo + qhi) / 2
		}
		if math.Abs(qNext-q) < 1e-13 {
			q = qNext
			break
		}
		q = qNext
	}

	eq := math.Exp(q)
	// Recover y from the (B)-branch expression derived alongside the
	// root equation, then x, z from the boundary relations.
	denom := 1 - q + q*q
	y := (s - r + q*r) / denom
	if y <= 0 {
		return r, 0, math.Max(t, 0)
	}
	x := q * y
	z := y * eq
	return x, y, z
}
