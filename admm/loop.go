package admm

import (
	"context"
	"math"
	"time"

	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/kkt"
	"github.com/cosmogo/cosmogo/residual"
)

const infeasibilityTol = 1e-4

// Run iterates ADMM on problem until it converges, is certified
// (primal/dual) infeasible, exhausts MaxIter, or exceeds the time limit.
// handle must already be factored for settings.Sigma and the rho values
// in rho; Run refactors it in place whenever adaptive rho rescales rho.
// ctx cancellation is checked once per iteration and surfaces as
// ctx.Err() wrapped around whatever partial Result had been reached.
func Run(ctx context.Context, problem *Problem, handle kkt.Handle, rho *RhoVec, settings Settings) (Result, error) {
	if err := settings.Validate(); err != nil {
		return Result{}, err
	}

	dualCone, err := cone.DualComposite(problem.Cones)
	if err != nil {
		return Result{}, err
	}

	ws := NewWorkspace(problem, handle, rho, settings.Sigma)
	start := time.Now()

	status := Unsolved
	iter := ws.iter
	var rPrim, rDual float64
	k := 0

iterLoop:
	for ; k < settings.MaxIter; k++ {
		select {
		case <-ctx.Done():
			return buildResult(iter, status, k, rPrim, rDual, problem, time.Since(start)), ctx.Err()
		default:
		}
		if settings.TimeLimit > 0 && time.Since(start) > settings.TimeLimit {
			status = TimeLimitReached
			break iterLoop
		}

		step(problem, ws, settings.Alpha)
		n1 := k + 1

		if n1%settings.CheckTermination == 0 {
			rPrim = residual.Primal(problem.A, iter.X, iter.S, problem.B, ws.scratchM)
			rDual = residual.Dual(problem.P, problem.A, iter.X, problem.Q, iter.Mu, ws.scratchN)
			primalRef, dualRef := residual.ReferenceNorms(problem.P, problem.A, iter.X, iter.S, problem.B, problem.Q, iter.Mu)
			if residual.HasConverged(rPrim, rDual, primalRef, dualRef, settings.EpsAbs, settings.EpsRel) {
				status = Solved
				k = n1
				break iterLoop
			}
			if settings.Verbose && settings.Logger != nil {
				settings.Logger.Printf("admm: iter=%d rPrim=%.3e rDual=%.3e", n1, rPrim, rDual)
			}
		}

		if n1%settings.CheckInfeasibility == 0 {
			for i := range ws.deltaY {
				ws.deltaY[i] = ws.muPrev[i] - iter.Mu[i]
			}
			for i := range ws.deltaX {
				ws.deltaX[i] = iter.X[i] - ws.xPrev[i]
			}
			if residual.PrimalInfeasible(problem.A, ws.deltaY, problem.B, dualCone, infeasibilityTol) {
				status = PrimalInfeasible
				k = n1
				break iterLoop
			}
			if residual.DualInfeasible(problem.P, problem.A, ws.deltaX, problem.Q, problem.Cones, infeasibilityTol) {
				status = DualInfeasible
				k = n1
				break iterLoop
			}
			copy(ws.xPrev, iter.X)
			copy(ws.muPrev, iter.Mu)
		}

		if settings.AdaptiveRho && n1%settings.AdaptiveRhoInterval == 0 {
			adaptRho(problem, ws, rho, settings)
		}
	}

	if status == Unsolved {
		status = MaxIterReached
		k = settings.MaxIter
	}

	return buildResult(iter, status, k, rPrim, rDual, problem, time.Since(start)), nil
}

// step performs one ADMM update: the joint (x, nu) KKT solve, the
// slack/dual update with over-relaxation, and the cone projection.
func step(problem *Problem, ws *Workspace, alpha float64) {
	n, m := problem.N, problem.M
	iter := ws.iter

	for i := 0; i < n; i++ {
		ws.rhs[i] = ws.sigma*iter.X[i] - problem.Q[i]
	}
	for i := 0; i < m; i++ {
		ws.rhs[n+i] = problem.B[i] - iter.S[i] + iter.Mu[i]/ws.rho.Values[i]
	}

	sol, err := ws.handle.Solve(ws.rhs)
	if err != nil {
		// Numerically singular KKT system: hold the iterate fixed rather
		// than propagate NaNs; the caller sees this in the next
		// termination/infeasibility check as stalled progress.
		return
	}
	copy(ws.xTilde, sol[:n])
	copy(ws.nuTilde, sol[n:])
	copy(iter.Nu, sol[n:])

	for i := 0; i < m; i++ {
		ws.sTilde[i] = iter.S[i] - (ws.nuTilde[i]+iter.Mu[i])/ws.rho.Values[i]
	}

	for i := 0; i < n; i++ {
		iter.X[i] = alpha*ws.xTilde[i] + (1-alpha)*iter.X[i]
	}
	for i := 0; i < m; i++ {
		ws.sRelaxed[i] = alpha*ws.sTilde[i] + (1-alpha)*iter.S[i]
	}

	for i := 0; i < m; i++ {
		ws.sNext[i] = ws.sRelaxed[i] + iter.Mu[i]/ws.rho.Values[i]
	}
	problem.Cones.Project(ws.sNext)

	for i := 0; i < m; i++ {
		iter.Mu[i] += ws.rho.Values[i] * (ws.sRelaxed[i] - ws.sNext[i])
	}
	copy(iter.S, ws.sNext)
}

// adaptRho rescales rho based on the current ratio of scaled primal to
// dual residual norms, refactoring the KKT handle only when the ratio
// leaves a tolerance band (refactoring on every interval regardless of
// whether rho actually needs to move would waste the whole point of
// checking on an interval).
func adaptRho(problem *Problem, ws *Workspace, rho *RhoVec, settings Settings) {
	rPrim := residual.Primal(problem.A, ws.iter.X, ws.iter.S, problem.B, ws.scratchM)
	rDual := residual.Dual(problem.P, problem.A, ws.iter.X, problem.Q, ws.iter.Mu, ws.scratchN)
	primalRef, dualRef := residual.ReferenceNorms(problem.P, problem.A, ws.iter.X, ws.iter.S, problem.B, problem.Q, ws.iter.Mu)

	rPrimScaled := rPrim / math.Max(primalRef, 1e-12)
	rDualScaled := rDual / math.Max(dualRef, 1e-12)
	if rPrimScaled <= 0 || rDualScaled <= 0 {
		return
	}

	ratio := math.Sqrt(rPrimScaled / rDualScaled)
	if ratio < 0.2 || ratio > 5 {
		rho.Scale(ratio, settings.RhoMin, settings.RhoMax)
		if err := ws.handle.UpdateRho(rho.Values); err != nil {
			// Leave the old factorization in place; the next adaptation
			// attempt or a termination check will catch a genuinely
			// singular system.
			return
		}
	}
}

func buildResult(iter *Iterate, status Status, iterations int, rPrim, rDual float64, problem *Problem, elapsed time.Duration) Result {
	cost := evalCost(problem, iter.X)
	return Result{
		X: append([]float64(nil), iter.X...), S: append([]float64(nil), iter.S...),
		Nu: append([]float64(nil), iter.Nu...), Mu: append([]float64(nil), iter.Mu...),
		Cost: cost, Status: status, Iterations: iterations,
		RPrim: rPrim, RDual: rDual, SolveTime: elapsed,
	}
}

func evalCost(problem *Problem, x []float64) float64 {
	px := make([]float64, len(x))
	problem.P.MulVec(x, px)
	var quad, lin float64
	for i := range x {
		quad += x[i] * px[i]
		lin += problem.Q[i] * x[i]
	}
	return 0.5*quad + lin
}

