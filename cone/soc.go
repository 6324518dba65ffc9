package cone

import "math"

// SOCCone is the second-order (Lorentz) cone {(t, x) : ||x||_2 <= t},
// stored over v[start:start+length] with v[start] playing the role of t
// and v[start+1:start+length] the role of x.
type SOCCone struct {
	start, length int
}

// NewSOCCone builds an SOCCone over v[start:start+length]; length must
// be at least 2 (one scalar t plus at least one x coordinate).
func NewSOCCone(start, length, n int) (*SOCCone, error) {
	if err := validateRange(start, length, n); err != nil {
		return nil, err
	}
	if length < 2 {
		return nil, ErrEmptyRange
	}
	return &SOCCone{start: start, length: length}, nil
}

func (c *SOCCone) Kind() Kind            { return SOC }
func (c *SOCCone) Range() (int, int)     { return c.start, c.length }
func (c *SOCCone) RequiresScalarE() bool { return true }
func (c *SOCCone) RescaleBounds([]float64) {}

// Project implements the standard three-case SOC projection:
//
//	t >= ||x||:  already in the cone, leave unchanged.
//	t <= -||x||: the antipodal cone, project to the origin.
//	otherwise:   project onto the boundary via the scaling
//	             (||x||+t)/2 * (x/||x||, 1).
func (c *SOCCone) Project(v []float64) {
	t := v[c.start]
	nrm := xNorm(v, c.start+1, c.length-1)

	if nrm <= t {
		return
	}
	if nrm <= -t {
		for i := c.start; i < c.start+c.length; i++ {
			v[i] = 0
		}
		return
	}
	scale := (nrm + t) / (2 * nrm)
	v[c.start] = (nrm + t) / 2
	for i := c.start + 1; i < c.start+c.length; i++ {
		v[i] *= scale
	}
}

// InDual reports membership in K, SOC being self-dual.
func (c *SOCCone) InDual(y []float64, tol float64) bool {
	t := y[c.start]
	nrm := xNorm(y, c.start+1, c.length-1)
	return nrm <= t+tol
}

// InRecc reports membership in the recession cone of SOC, which is SOC
// itself.
func (c *SOCCone) InRecc(x []float64, tol float64) bool {
	return c.InDual(x, tol)
}

func xNorm(v []float64, start, length int) float64 {
	var sum float64
	for i := start; i < start+length; i++ {
		sum += v[i] * v[i]
	}
	return math.Sqrt(sum)
}
