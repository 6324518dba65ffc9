package cone

import "math"

// ZeroCone is the {0} cone: the equality-constraint rows of Ax + s = b.
type ZeroCone struct {
	start, length int
}

// NewZeroCone builds a ZeroCone over v[start:start+length], v having
// total length n.
func NewZeroCone(start, length, n int) (*ZeroCone, error) {
	if err := validateRange(start, length, n); err != nil {
		return nil, err
	}
	return &ZeroCone{start: start, length: length}, nil
}

func (c *ZeroCone) Kind() Kind             { return Zero }
func (c *ZeroCone) Range() (int, int)      { return c.start, c.length }
func (c *ZeroCone) RequiresScalarE() bool  { return false }
func (c *ZeroCone) RescaleBounds([]float64) {}

// Project sets the slice to zero: the only point in {0}.
func (c *ZeroCone) Project(v []float64) {
	for i := c.start; i < c.start+c.length; i++ {
		v[i] = 0
	}
}

// InDual reports membership in the dual of {0}, which is all of R^n.
func (c *ZeroCone) InDual(y []float64, tol float64) bool { return true }

// InRecc reports membership in the recession cone of {0}, which is {0}
// itself.
func (c *ZeroCone) InRecc(x []float64, tol float64) bool {
	for i := c.start; i < c.start+c.length; i++ {
		if math.Abs(x[i]) > tol {
			return false
		}
	}
	return true
}

// freeCone is the dual of ZeroCone: all of R^length. Only reachable via
// Dual(*ZeroCone); nothing constructs it directly since a free cone
// never appears in a Problem's own cone list.
type freeCone struct {
	start, length int
}

func (c *freeCone) Kind() Kind             { return Zero }
func (c *freeCone) Range() (int, int)      { return c.start, c.length }
func (c *freeCone) RequiresScalarE() bool  { return false }
func (c *freeCone) RescaleBounds([]float64) {}
func (c *freeCone) Project(v []float64)    {}
func (c *freeCone) InDual(y []float64, tol float64) bool { return true }
func (c *freeCone) InRecc(x []float64, tol float64) bool { return true }

// NonNegCone is the nonnegative orthant R^length_+.
type NonNegCone struct {
	start, length int
}

// NewNonNegCone builds a NonNegCone over v[start:start+length].
func NewNonNegCone(start, length, n int) (*NonNegCone, error) {
	if err := validateRange(start, length, n); err != nil {
		return nil, err
	}
	return &NonNegCone{start: start, length: length}, nil
}

func (c *NonNegCone) Kind() Kind             { return NonNeg }
func (c *NonNegCone) Range() (int, int)      { return c.start, c.length }
func (c *NonNegCone) RequiresScalarE() bool  { return false }
func (c *NonNegCone) RescaleBounds([]float64) {}

// Project clips every entry at 0: the orthant is self-dual and its own
// projection is elementwise max(., 0).
func (c *NonNegCone) Project(v []float64) {
	for i := c.start; i < c.start+c.length; i++ {
		if v[i] < 0 {
			v[i] = 0
		}
	}
}

// InDual reports membership in the (self-)dual cone: y >= -tol.
func (c *NonNegCone) InDual(y []float64, tol float64) bool {
	for i := c.start; i < c.start+c.length; i++ {
		if y[i] < -tol {
			return false
		}
	}
	return true
}

// InRecc reports membership in the recession cone, identical to the
// primal cone for NonNeg.
func (c *NonNegCone) InRecc(x []float64, tol float64) bool {
	return c.InDual(x, tol)
}

// BoxConeT is the box cone [l, u], elementwise, used both as a standalone
// cone and (via RescaleBounds) as the target of Ruiz's per-cone scale
// hook.
type BoxConeT struct {
	start, length int
	L, U          []float64 // length == length, local index 0 == global start
}

// NewBoxCone builds a BoxConeT over v[start:start+length] with bounds l,
// u of length `length`. Returns ErrBadBounds if l[i] > u[i] anywhere.
func NewBoxCone(start, length, n int, l, u []float64) (*BoxConeT, error) {
	if err := validateRange(start, length, n); err != nil {
		return nil, err
	}
	if len(l) != length || len(u) != length {
		return nil, ErrRangeOutOfBounds
	}
	for i := range l {
		if l[i] > u[i] {
			return nil, ErrBadBounds
		}
	}
	lc := make([]float64, length)
	uc := make([]float64, length)
	copy(lc, l)
	copy(uc, u)
	return &BoxConeT{start: start, length: length, L: lc, U: uc}, nil
}

func (c *BoxConeT) Kind() Kind            { return BoxCone }
func (c *BoxConeT) Range() (int, int)     { return c.start, c.length }
func (c *BoxConeT) RequiresScalarE() bool { return false }

// RescaleBounds rescales l, u by the Ruiz E (row) factors on this cone's
// range — the per-cone scale hook equilibration calls after its sweeps.
func (c *BoxConeT) RescaleBounds(d []float64) {
	for i := 0; i < c.length; i++ {
		c.L[i] *= d[c.start+i]
		c.U[i] *= d[c.start+i]
	}
}

// Project clamps each entry into [l, u].
func (c *BoxConeT) Project(v []float64) {
	for i := 0; i < c.length; i++ {
		idx := c.start + i
		if v[idx] < c.L[i] {
			v[idx] = c.L[i]
		} else if v[idx] > c.U[i] {
			v[idx] = c.U[i]
		}
	}
}

// InDual reports membership in the dual cone of a bounded box, which is
// all of R^n when both bounds are finite (the box is bounded, hence its
// dual/recession analysis degenerates); only unbounded directions (l ==
// -Inf or u == +Inf) constrain y's sign on that coordinate.
func (c *BoxConeT) InDual(y []float64, tol float64) bool {
	for i := 0; i < c.length; i++ {
		idx := c.start + i
		if math.IsInf(c.L[i], -1) && y[idx] > tol {
			return false
		}
		if math.IsInf(c.U[i], 1) && y[idx] < -tol {
			return false
		}
	}
	return true
}

// InRecc reports membership in the recession cone: directions x along
// which l <= x*t + p <= u stays feasible as t -> infinity for some
// feasible p, i.e. x[i] <= 0 wherever u[i] is finite and x[i] >= 0
// wherever l[i] is finite (x==0 whenever both bounds are finite).
func (c *BoxConeT) InRecc(x []float64, tol float64) bool {
	for i := 0; i < c.length; i++ {
		idx := c.start + i
		finiteL := !math.IsInf(c.L[i], -1)
		finiteU := !math.IsInf(c.U[i], 1)
		if finiteL && finiteU && math.Abs(x[idx]) > tol {
			return false
		}
		if finiteU && x[idx] > tol {
			return false
		}
		if finiteL && x[idx] < -tol {
			return false
		}
	}
	return true
}
