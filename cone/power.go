package cone

import "math"

// powBisectionIters bounds the bisection search for power-cone
// projection.
const powBisectionIters = 100

// PowerConeT is the power cone {(x,y,z) : x,y>=0, x^a * y^(1-a) >= |z|}
// for a fixed exponent a in (0,1), stored over v[start:start+3] as
// (x,y,z).
type PowerConeT struct {
	start int
	alpha float64
}

// NewPowerCone builds a PowerConeT over v[start:start+3] with exponent
// alpha in (0,1).
func NewPowerCone(start, n int, alpha float64) (*PowerConeT, error) {
	if err := validateRange(start, 3, n); err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, ErrBadPowerExponent
	}
	return &PowerConeT{start: start, alpha: alpha}, nil
}

func (c *PowerConeT) Kind() Kind            { return Pow }
func (c *PowerConeT) Range() (int, int)     { return c.start, 3 }
func (c *PowerConeT) RequiresScalarE() bool { return true }
func (c *PowerConeT) RescaleBounds([]float64) {}

// Project projects v[start:start+3] onto the power cone.
func (c *PowerConeT) Project(v []float64) {
	x, y, z := projectPowPrimal(c.alpha, v[c.start], v[c.start+1], v[c.start+2])
	v[c.start], v[c.start+1], v[c.start+2] = x, y, z
}

// InDual reports membership in the dual power cone
// {(u,v,w) : (u/a)^a * (v/(1-a))^(1-a) >= |w|}.
func (c *PowerConeT) InDual(y []float64, tol float64) bool {
	return inPowDual(c.alpha, y[c.start], y[c.start+1], y[c.start+2], tol)
}

// InRecc reports membership in the recession cone of Pow, which is Pow
// itself.
func (c *PowerConeT) InRecc(x []float64, tol float64) bool {
	return inPowPrimal(c.alpha, x[c.start], x[c.start+1], x[c.start+2], tol)
}

// DualPowerConeT is the dual of PowerConeT.
type DualPowerConeT struct {
	start int
	alpha float64
}

// NewDualPowerCone builds a DualPowerConeT over v[start:start+3] with
// exponent alpha in (0,1).
func NewDualPowerCone(start, n int, alpha float64) (*DualPowerConeT, error) {
	if err := validateRange(start, 3, n); err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, ErrBadPowerExponent
	}
	return &DualPowerConeT{start: start, alpha: alpha}, nil
}

func (c *DualPowerConeT) Kind() Kind            { return DualPow }
func (c *DualPowerConeT) Range() (int, int)     { return c.start, 3 }
func (c *DualPowerConeT) RequiresScalarE() bool { return true }
func (c *DualPowerConeT) RescaleBounds([]float64) {}

// Project uses the Moreau decomposition P_{K*}(w) = w + P_K(-w), as
// DualExpConeT.Project does.
func (c *DualPowerConeT) Project(v []float64) {
	x, y, z := v[c.start], v[c.start+1], v[c.start+2]
	px, py, pz := projectPowPrimal(c.alpha, -x, -y, -z)
	v[c.start] = x + px
	v[c.start+1] = y + py
	v[c.start+2] = z + pz
}

// InDual reports membership in (Pow*)* == Pow.
func (c *DualPowerConeT) InDual(y []float64, tol float64) bool {
	return inPowPrimal(c.alpha, y[c.start], y[c.start+1], y[c.start+2], tol)
}

// InRecc reports membership in the recession cone of Pow*, which is
// Pow* itself.
func (c *DualPowerConeT) InRecc(x []float64, tol float64) bool {
	return inPowDual(c.alpha, x[c.start], x[c.start+1], x[c.start+2], tol)
}

func inPowPrimal(alpha, x, y, z float64, tol float64) bool {
	if x < -tol || y < -tol {
		return false
	}
	x = math.Max(x, 0)
	y = math.Max(y, 0)
	return math.Pow(x, alpha)*math.Pow(y, 1-alpha) >= math.Abs(z)-tol
}

func inPowDual(alpha, u, v, w float64, tol float64) bool {
	if u < -tol || v < -tol {
		return false
	}
	u = math.Max(u, 0)
	v = math.Max(v, 0)
	return math.Pow(u/alpha, alpha)*math.Pow(v/(1-alpha), 1-alpha) >= math.Abs(w)-tol
}

// projectPowPrimal projects (r,s,t) onto the power cone with exponent
// alpha.
//
// As with the exponential cone, the boundary-projection KKT system
// reduces (via q = x/y) to a scalar equation; unlike the exponential
// cone's, it is not smooth enough near q=0 to trust a finite-difference
// Newton step, so this one bisects directly on the scalar parameter:
// G(q) = y_B(q) - y_D(q), where y_B, y_D are the two independent
// expressions for y implied by the stationarity conditions, bisected
// over q in a generous positive bracket.
func projectPowPrimal(alpha, r, s, t float64) (float64, float64, float64) {
	const tol = 1e-9
	if inPowPrimal(alpha, r, s, t, tol) {
		return r, s, t
	}
	if inPowDual(alpha, -r, -s, -t, tol) {
		// -point lies in the polar cone -Pow*; nearest point in Pow is
		// the origin.
		return 0, 0, 0
	}

	absT := math.Abs(t)

	g := func(q float64) float64 {
		qam1 := math.Pow(q, alpha-1)
		qa := math.Pow(q, alpha)
		rho := (r - q*s) / (alpha*qam1 - (1-alpha)*qa*q)
		yB := s - rho*(1-alpha)*qa
		yD := (absT + rho) / qa
		return yB - yD
	}

	qlo, qhi := 1e-9, 1e9
	glo, ghi := g(qlo), g(qhi)
	if glo*ghi > 0 {
		return 0, 0, 0
	}

	var q float64
	for iter := 0; iter < powBisectionIters; iter++ {
		q = (qlo + qhi) / 2
		gq := g(q)
		if gq == 0 || qhi-qlo < 1e-13 {
			break
		}
		if gq*glo < 0 {
			qhi, ghi = q, gq
		} else {
			qlo, glo = q, gq
		}
	}

	qam1 := math.Pow(q, alpha-1)
	qa := math.Pow(q, alpha)
	rho := (r - q*s) / (alpha*qam1 - (1-alpha)*qa*q)
	y := s - rho*(1-alpha)*qa
	if y <= 0 {
		return 0, 0, 0
	}
	x := q * y
	z := math.Copysign(y*qa, t)
	return x, y, z
}
