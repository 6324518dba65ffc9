// Package kkt assembles the (n+m) x (n+m) symmetric quasi-definite KKT
// system
//
//	K = [ P + sigma*I     A^T         ]
//	    [ A              -diag(1/rho) ]
//
// and defines the Solver capability the ADMM loop consumes to factor and
// solve it. The core only depends on the Solver interface; package
// kktsolver provides the default concrete backend.
package kkt

import "fmt"

// ErrDimensionMismatch indicates P, A, or RhoVec have incompatible
// shapes.
var ErrDimensionMismatch = fmt.Errorf("kkt: dimension mismatch")

// Solver factors the KKT matrix for a given penalty configuration and
// solves against right-hand sides, refactoring whenever rho changes.
type Solver interface {
	// Factor builds a Handle for the system with the given sigma and
	// per-row rho.
	Factor(assembly *Assembly, sigma float64, rho []float64) (Handle, error)
}

// Handle is a factored KKT system ready to be solved against repeated
// right-hand sides.
type Handle interface {
	// Solve returns sol = K^-1 * rhs for rhs of length n+m.
	Solve(rhs []float64) ([]float64, error)

	// UpdateRho refactors the system for a new per-row rho, leaving P,
	// A, and sigma unchanged.
	UpdateRho(rho []float64) error
}

// Assembly is the symbolic shape of a KKT system: P and A's sparsity
// pattern and dimensions, frozen once at setup. sigma and rho vary
// iteration to iteration; Assembly carries only what does not.
type Assembly struct {
	N, M int
	P    SparseView
	A    SparseView
}

// SparseView is the minimal read access a Solver needs into P or A,
// satisfied by *sparsemat.CSC without kkt importing sparsemat's
// construction helpers, keeping the Solver contract narrow.
type SparseView interface {
	Shape() (rows, cols int)
	NNZ() int
	Col(j int, fn func(row int, val float64))
}

// NewAssembly validates P, A against (n, m) and wraps them.
func NewAssembly(n, m int, p, a SparseView) (*Assembly, error) {
	pr, pc := p.Shape()
	if pr != n || pc != n {
		return nil, ErrDimensionMismatch
	}
	ar, ac := a.Shape()
	if ar != m || ac != n {
		return nil, ErrDimensionMismatch
	}
	return &Assembly{N: n, M: m, P: p, A: a}, nil
}
