package cosmogo

import (
	"context"

	"github.com/cosmogo/cosmogo/admm"
	"github.com/cosmogo/cosmogo/chordal"
	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/kkt"
	"github.com/cosmogo/cosmogo/kktsolver"
	"github.com/cosmogo/cosmogo/scaler"
	"github.com/cosmogo/cosmogo/sparsemat"
)

// Problem, Iterate, RhoVec, Status, and Result are admm's types,
// re-exported here so callers only ever import this package.
type (
	Problem = admm.Problem
	Iterate = admm.Iterate
	RhoVec  = admm.RhoVec
	Status  = admm.Status
	Result  = admm.Result
	Option  = admm.Option
)

// Terminal statuses a Result.Status can hold.
const (
	Unsolved          = admm.Unsolved
	Solved            = admm.Solved
	PrimalInfeasible  = admm.PrimalInfeasible
	DualInfeasible    = admm.DualInfeasible
	MaxIterReached    = admm.MaxIterReached
	TimeLimitReached  = admm.TimeLimitReached
)

// Re-exported ADMM option constructors, so WithMaxIter and friends read
// as cosmogo.WithMaxIter(...) at the call site.
var (
	WithMaxIter         = admm.WithMaxIter
	WithTolerances      = admm.WithTolerances
	WithAlpha           = admm.WithAlpha
	WithSigma           = admm.WithSigma
	WithRho             = admm.WithRho
	WithAdaptiveRho     = admm.WithAdaptiveRho
	WithCheckIntervals  = admm.WithCheckIntervals
	WithTimeLimit       = admm.WithTimeLimit
	WithLogger          = admm.WithLogger
)

// Settings configures a Solve call. ADMM carries the iteration
// parameters; Scaling and KKTSolver are the ambient concerns Solve
// wires in around the loop itself.
type Settings struct {
	ADMM admm.Settings

	// Scaling configures Ruiz equilibration, run once before the ADMM
	// loop and reversed on the returned Result. Zero Iterations disables
	// scaling entirely.
	Scaling scaler.Settings

	// KKTSolver factors and solves the KKT system each step needs;
	// nil defaults to kktsolver.DenseLU.
	KKTSolver kkt.Solver

	// Decompose, when set, chordally decomposes every dense PSD cone
	// member that has a registered pattern in PSDPatterns before
	// scaling, using Merge (or chordal.NoMerge if Merge is nil).
	Decompose bool
	Merge     chordal.MergeStrategy

	// PSDPatterns supplies the known chordal sparsity pattern (spec's
	// "known chordal sparsity pattern P") for the PSD cone at the given
	// position in the cones slice passed to Solve. A PSD member with no
	// entry here is left undecomposed even when Decompose is set.
	PSDPatterns map[int]*chordal.SuperNodeTree
}

// DefaultSettings returns conventional defaults for every layer Solve
// wires together; Merge defaults to chordal.NewCliqueGraphMerge().
func DefaultSettings() Settings {
	return Settings{
		ADMM:      admm.DefaultSettings(),
		Scaling:   scaler.DefaultSettings(),
		KKTSolver: kktsolver.DenseLU{},
		Merge:     chordal.NewCliqueGraphMerge(),
	}
}

// NewSettings applies opts (admm.Option values) over DefaultSettings's
// ADMM field.
func NewSettings(opts ...Option) Settings {
	s := DefaultSettings()
	s.ADMM = admm.NewSettings(opts...)
	return s
}

// Solve equilibrates (p, q, a, b) via Ruiz scaling, optionally chordally
// decomposes any PSD cone members first, factors the KKT system, runs
// ADMM to termination, and returns a Result back in the caller's
// original (unscaled, undecomposed) coordinates.
//
// p must be n x n, a must be m x n, q length n, b length m; cones'
// ranges must partition [0, m). Solve scales p and q in place. Without
// Decompose it also scales a, b and the bounds of any Box member of
// cones in place; with Decompose, a, b and the cones are first copied
// into a larger decomposed system, and only those copies are scaled.
func Solve(ctx context.Context, p *sparsemat.CSC, q []float64, a *sparsemat.CSC, b []float64, cones []cone.Cone, settings Settings) (Result, error) {
	composite, err := cone.NewComposite(len(b), cones...)
	if err != nil {
		return Result{}, err
	}

	workP, workQ, workA, workB, workCones := p, q, a, b, cones
	var dec *decompositionPlan
	if settings.Decompose {
		workP, workQ, workA, workB, workCones, dec, err = decomposeProblem(p, q, a, b, composite, settings.Merge, settings.PSDPatterns)
		if err != nil {
			return Result{}, err
		}
		if composite, err = cone.NewComposite(len(workB), workCones...); err != nil {
			return Result{}, err
		}
	}

	mats, err := scaler.Equilibrate(settings.Scaling, workP, workA, workQ, workB, workCones)
	if err != nil {
		return Result{}, err
	}

	problem, err := admm.NewProblem(workP, workQ, workA, workB, composite)
	if err != nil {
		return Result{}, err
	}

	assembly, err := kkt.NewAssembly(problem.N, problem.M, workP, workA)
	if err != nil {
		return Result{}, err
	}

	solver := settings.KKTSolver
	if solver == nil {
		solver = kktsolver.DenseLU{}
	}
	rho := admm.NewRhoVec(problem.M, settings.ADMM.Rho0, workCones)
	handle, err := solver.Factor(assembly, settings.ADMM.Sigma, rho.Values)
	if err != nil {
		return Result{}, err
	}

	result, runErr := admm.Run(ctx, problem, handle, rho, settings.ADMM)

	mats.Reverse(result.X, result.S, result.Nu, result.Mu)
	result.Cost *= mats.Cinv

	if dec != nil {
		result = dec.collapse(result)
	}

	return result, runErr
}
