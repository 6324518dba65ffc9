package cone

// Composite is the Cartesian product K = K1 x ... x Kk. Its members'
// index ranges must partition [0, n) exactly, matching the Problem
// type's cone-layout invariant.
type Composite struct {
	members []Cone
	n       int
}

// NewComposite validates that members' ranges are non-overlapping and
// within [0, n), and returns the Composite. It does not require the
// ranges to *cover* [0, n): callers assemble Composite purely from the
// cone blocks of s; any indices the Problem's cone layout leaves
// uncovered are a caller bug this constructor cannot see, since s's
// total length is exactly the union of cone ranges by construction.
func NewComposite(n int, members ...Cone) (*Composite, error) {
	covered := make([]bool, n)
	for _, m := range members {
		start, length := m.Range()
		if start < 0 || start+length > n {
			return nil, ErrRangeOutOfBounds
		}
		for i := start; i < start+length; i++ {
			if covered[i] {
				return nil, ErrRangesOverlap
			}
			covered[i] = true
		}
	}
	return &Composite{members: members, n: n}, nil
}

// Members returns the cones making up the composite, in the order they
// were supplied.
func (c *Composite) Members() []Cone { return c.members }

// Project projects v (length n) onto K by projecting each member's
// slice in turn.
func (c *Composite) Project(v []float64) {
	for _, m := range c.members {
		m.Project(v)
	}
}

// InDual reports whether every member's slice of y lies in its own dual
// cone; K* = K1* x ... x Kk* for a Cartesian product.
func (c *Composite) InDual(y []float64, tol float64) bool {
	for _, m := range c.members {
		if !m.InDual(y, tol) {
			return false
		}
	}
	return true
}

// InRecc reports whether every member's slice of x lies in its own
// recession cone.
func (c *Composite) InRecc(x []float64, tol float64) bool {
	for _, m := range c.members {
		if !m.InRecc(x, tol) {
			return false
		}
	}
	return true
}

// DualComposite builds K*, the Cartesian product of each member's dual
// cone over the same ranges. Infeasibility certificates live in K* (for
// primal infeasibility) or reuse K itself (for dual infeasibility),
// which is why only the primal-infeasibility path needs this.
func DualComposite(c *Composite) (*Composite, error) {
	duals := make([]Cone, len(c.members))
	for i, m := range c.members {
		duals[i] = Dual(m)
	}
	return NewComposite(c.n, duals...)
}

// Dual returns the dual cone of c, over the same index range. Self-dual
// members (NonNeg, SOC, PSD/PSDTriangle) return themselves; Exp/Pow
// return their DualExp/DualPow counterpart (and vice versa); Zero
// returns the free cone (all of R^length), its true dual; Box is kept
// as its own dual, an engineering approximation since a box is not
// conic in the strict sense but plugs into the same certificate checks.
func Dual(c Cone) Cone {
	switch m := c.(type) {
	case *ZeroCone:
		start, length := m.Range()
		return &freeCone{start: start, length: length}
	case *ExpConeT:
		d, _ := NewDualExpCone(m.start, m.start+3)
		return d
	case *DualExpConeT:
		d, _ := NewExpCone(m.start, m.start+3)
		return d
	case *PowerConeT:
		d, _ := NewDualPowerCone(m.start, m.start+3, m.alpha)
		return d
	case *DualPowerConeT:
		d, _ := NewPowerCone(m.start, m.start+3, m.alpha)
		return d
	default:
		return c
	}
}

// Shift rebuilds c at [start+delta, start+delta+length), otherwise
// identical. Used when assembling a larger constraint system around an
// existing cone layout — chordal decomposition grows one member's block
// and must relocate every member after it.
func Shift(c Cone, delta int) Cone {
	start, _ := c.Range()
	ns := start + delta
	switch m := c.(type) {
	case *ZeroCone:
		s, _ := NewZeroCone(ns, m.length, ns+m.length)
		return s
	case *NonNegCone:
		s, _ := NewNonNegCone(ns, m.length, ns+m.length)
		return s
	case *BoxConeT:
		s, _ := NewBoxCone(ns, m.length, ns+m.length, m.L, m.U)
		return s
	case *SOCCone:
		s, _ := NewSOCCone(ns, m.length, ns+m.length)
		return s
	case *PSDCone:
		s, _ := NewPSDCone(ns, m.n, ns+m.n*m.n)
		return s
	case *PSDTriangleCone:
		s, _ := NewPSDTriangleCone(ns, m.n, ns+m.packedLen)
		return s
	case *ExpConeT:
		s, _ := NewExpCone(ns, ns+3)
		return s
	case *DualExpConeT:
		s, _ := NewDualExpCone(ns, ns+3)
		return s
	case *PowerConeT:
		s, _ := NewPowerCone(ns, ns+3, m.alpha)
		return s
	case *DualPowerConeT:
		s, _ := NewDualPowerCone(ns, ns+3, m.alpha)
		return s
	default:
		return c
	}
}
