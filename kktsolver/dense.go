// Package kktsolver provides the default concrete kkt.Solver: a dense
// LU factorization of the (n+m) x (n+m) KKT matrix, built with
// gonum.org/v1/gonum/mat. It is one realization of the factor/solve
// backend the kkt.Solver interface keeps abstract, sized for the
// clique-sized subproblems chordal decomposition leaves the core
// facing, not for solving the undecomposed system at scale.
package kktsolver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cosmogo/cosmogo/kkt"
)

// ErrSingular indicates the KKT matrix was not invertible at the given
// sigma, rho; Solve returns it. The admm loop does not stop on it: that
// iteration leaves the iterate unchanged, and no separate status reports
// the failure.
var ErrSingular = fmt.Errorf("kktsolver: KKT matrix is singular")

// DenseLU is a kkt.Solver that refactors the full dense KKT matrix via
// LU decomposition on every Factor/UpdateRho call.
type DenseLU struct{}

// denseHandle holds the assembled KKT matrix and its current LU
// factorization.
type denseHandle struct {
	assembly *kkt.Assembly
	sigma    float64
	rho      []float64
	k        *mat.Dense
	lu       mat.LU
}

// Factor builds the dense KKT matrix and LU-factors it.
func (DenseLU) Factor(assembly *kkt.Assembly, sigma float64, rho []float64) (kkt.Handle, error) {
	if len(rho) != assembly.M {
		return nil, kkt.ErrDimensionMismatch
	}
	h := &denseHandle{assembly: assembly, sigma: sigma, rho: append([]float64(nil), rho...)}
	if err := h.refactor(); err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateRho rebuilds and refactors the KKT matrix for a new rho,
// leaving P, A, and sigma untouched.
func (h *denseHandle) UpdateRho(rho []float64) error {
	if len(rho) != h.assembly.M {
		return kkt.ErrDimensionMismatch
	}
	copy(h.rho, rho)
	return h.refactor()
}

// Solve returns K^-1 * rhs.
func (h *denseHandle) Solve(rhs []float64) ([]float64, error) {
	n := h.assembly.N + h.assembly.M
	if len(rhs) != n {
		return nil, kkt.ErrDimensionMismatch
	}
	b := mat.NewVecDense(n, append([]float64(nil), rhs...))
	var x mat.VecDense
	if err := h.lu.SolveVecTo(&x, false, b); err != nil {
		return nil, fmt.Errorf("kktsolver: %w", ErrSingular)
	}
	return append([]float64(nil), x.RawVector().Data...), nil
}

// refactor assembles K into a dense matrix and LU-factors it.
func (h *denseHandle) refactor() error {
	n, m := h.assembly.N, h.assembly.M
	total := n + m
	k := mat.NewDense(total, total, nil)

	for j := 0; j < n; j++ {
		h.assembly.P.Col(j, func(row int, val float64) {
			k.Set(row, j, k.At(row, j)+val)
		})
		k.Set(j, j, k.At(j, j)+h.sigma)
	}
	for j := 0; j < n; j++ {
		h.assembly.A.Col(j, func(row int, val float64) {
			k.Set(n+row, j, val)
			k.Set(j, n+row, val)
		})
	}
	for i := 0; i < m; i++ {
		k.Set(n+i, n+i, -1/h.rho[i])
	}

	h.k = k
	h.lu.Factorize(k)
	return nil
}
