package admm

import "github.com/cosmogo/cosmogo/kkt"

// Workspace holds every buffer Run mutates across iterations,
// pre-allocated once at setup and reused every iteration. The loop still
// allocates elsewhere: the KKT handle's Solve returns a fresh slice, and
// the residual and infeasibility checks allocate their own temporaries.
type Workspace struct {
	problem *Problem
	handle  kkt.Handle
	rho     *RhoVec
	sigma   float64

	iter *Iterate

	// xTilde, sTilde are the intermediate (pre-relaxation,
	// pre-projection) values each iteration computes before folding
	// them into the next Iterate.
	xTilde, sTilde []float64
	// nuTilde is the KKT multiplier solved for alongside xTilde.
	nuTilde []float64
	// rhs is the KKT solve's right-hand side, of length n+m; the
	// solution is the slice the handle's Solve returns.
	rhs []float64

	// sRelaxed, sNext, deltaX, deltaY are scratch for the relaxation
	// step and the infeasibility-certificate checks.
	sRelaxed, sNext []float64
	deltaX, deltaY  []float64

	// xPrev, muPrev snapshot x and mu at the last check_infeasibility
	// cadence, so deltaX/deltaY measure progress over one full interval
	// rather than one iteration (the certificate is a trend, not an
	// instantaneous condition).
	xPrev, muPrev []float64

	// residual scratch, reused across check_termination calls.
	scratchM, scratchN []float64
}

// NewWorkspace allocates a Workspace for the given problem, penalty
// vector, and factored KKT handle.
func NewWorkspace(problem *Problem, handle kkt.Handle, rho *RhoVec, sigma float64) *Workspace {
	n, m := problem.N, problem.M
	return &Workspace{
		problem:  problem,
		handle:   handle,
		rho:      rho,
		sigma:    sigma,
		iter:     NewIterate(n, m),
		xTilde:   make([]float64, n),
		sTilde:   make([]float64, m),
		nuTilde:  make([]float64, m),
		rhs:      make([]float64, n+m),
		sRelaxed: make([]float64, m),
		sNext:    make([]float64, m),
		deltaX:   make([]float64, n),
		deltaY:   make([]float64, m),
		xPrev:    make([]float64, n),
		muPrev:   make([]float64, m),
		scratchM: make([]float64, m),
		scratchN: make([]float64, n),
	}
}

// Iterate exposes the current (x, s, nu, mu) state, e.g. to seed a warm
// start or read back intermediate progress.
func (w *Workspace) Iterate() *Iterate { return w.iter }
