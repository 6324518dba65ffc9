// Package residual computes the ADMM primal/dual residuals and the
// scaled reference norms termination is checked against, and implements
// the primal- and dual-infeasibility certificate tests run on the
// iterate deltas every check_infeasibility iterations.
package residual

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/sparsemat"
)

// Primal computes r_prim = ||A*x + s - b||_inf, writing the intermediate
// A*x + s - b into scratch (length m, caller-owned to avoid
// per-iteration allocation).
func Primal(a *sparsemat.CSC, x, s, b, scratch []float64) float64 {
	a.MulVec(x, scratch)
	for i := range scratch {
		scratch[i] += s[i] - b[i]
	}
	return floats.Norm(scratch, math.Inf(1))
}

// Dual computes r_dual = ||P*x + q - A^T*mu||_inf, writing P*x + q -
// A^T*mu into scratchN (length n); A^T*mu itself goes into a length-n
// slice allocated on each call. The minus sign matches the ADMM
// iteration, whose mu lies in the polar cone of K.
func Dual(p, a *sparsemat.CSC, x, q, mu, scratchN []float64) float64 {
	p.MulVec(x, scratchN)
	for i := range scratchN {
		scratchN[i] += q[i]
	}
	atmu := make([]float64, len(scratchN))
	a.MulTransVec(mu, atmu)
	for i := range scratchN {
		scratchN[i] -= atmu[i]
	}
	return floats.Norm(scratchN, math.Inf(1))
}

// ReferenceNorms computes the scaled termination reference norms: the
// primal reference is max(||A*x||_inf, ||s||_inf,
// ||b||_inf); the dual reference is max(||P*x||_inf, ||A^T*mu||_inf,
// ||q||_inf).
func ReferenceNorms(p, a *sparsemat.CSC, x, s, b, q, mu []float64) (primalRef, dualRef float64) {
	ax := make([]float64, len(b))
	a.MulVec(x, ax)
	primalRef = max3(floats.Norm(ax, math.Inf(1)), floats.Norm(s, math.Inf(1)), floats.Norm(b, math.Inf(1)))

	px := make([]float64, len(x))
	p.MulVec(x, px)
	atmu := make([]float64, len(x))
	a.MulTransVec(mu, atmu)
	dualRef = max3(floats.Norm(px, math.Inf(1)), floats.Norm(atmu, math.Inf(1)), floats.Norm(q, math.Inf(1)))
	return primalRef, dualRef
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}

// HasConverged reports whether (rPrim, rDual) satisfy a combined
// absolute/relative tolerance against the given reference norms.
func HasConverged(rPrim, rDual, primalRef, dualRef, epsAbs, epsRel float64) bool {
	return rPrim <= epsAbs+epsRel*primalRef && rDual <= epsAbs+epsRel*dualRef
}

// PrimalInfeasible tests a Farkas-style certificate: given
// deltaY = -mu + muPrev, the problem is certified primal-infeasible when
// deltaY lies in the dual cone's recession behavior (InRecc of the dual
// cone K*, which residual callers pass as `dualCone`, typically built
// from K's definition by the caller) and <b, deltaY> < 0.
func PrimalInfeasible(a *sparsemat.CSC, deltaY, b []float64, dualCone *cone.Composite, tol float64) bool {
	if floats.Norm(deltaY, math.Inf(1)) < tol {
		return false
	}
	if !dualCone.InRecc(deltaY, tol) {
		return false
	}
	atDeltaY := make([]float64, a.Cols)
	a.MulTransVec(deltaY, atDeltaY)
	if floats.Norm(atDeltaY, math.Inf(1)) > tol {
		return false
	}
	return floats.Dot(b, deltaY) < -tol
}

// DualInfeasible tests the dual analogue of the same certificate: given
// deltaX = x - xPrev, the problem is certified dual-infeasible when
// A*deltaX lies in the recession cone of K, P*deltaX is (numerically)
// zero, and <q, deltaX> < 0.
func DualInfeasible(p, a *sparsemat.CSC, deltaX, q []float64, primalCone *cone.Composite, tol float64) bool {
	if floats.Norm(deltaX, math.Inf(1)) < tol {
		return false
	}
	pDeltaX := make([]float64, p.Rows)
	p.MulVec(deltaX, pDeltaX)
	if floats.Norm(pDeltaX, math.Inf(1)) > tol {
		return false
	}
	aDeltaX := make([]float64, a.Rows)
	a.MulVec(deltaX, aDeltaX)
	if !primalCone.InRecc(aDeltaX, tol) {
		return false
	}
	return floats.Dot(q, deltaX) < -tol
}
