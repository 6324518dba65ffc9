package cosmogo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	cosmogo "github.com/cosmogo/cosmogo"
	"github.com/cosmogo/cosmogo/chordal"
	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/sparsemat"
)

func csc(t *testing.T, rows, cols int, entries [][3]float64) *sparsemat.CSC {
	t.Helper()
	b, err := sparsemat.NewBuilder(rows, cols)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, b.Add(int(e[0]), int(e[1]), e[2]))
	}
	return b.Build()
}

// TestSolve_BoxQP is scenario S1: minimize 0.5||x||^2 - x1 - x2 subject
// to x in [0,1]^2. The unconstrained minimizer (1,1) already lies in the
// box, so the solution is exact: x = (1,1), cost = -1.5.
func TestSolve_BoxQP(t *testing.T) {
	p := csc(t, 2, 2, [][3]float64{{0, 0, 1}, {1, 1, 1}})
	q := []float64{-1, -1}
	a := csc(t, 2, 2, [][3]float64{{0, 0, -1}, {1, 1, -1}})
	b := []float64{0, 0}

	box, err := cone.NewBoxCone(0, 2, 2, []float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)

	settings := cosmogo.NewSettings(cosmogo.WithMaxIter(2000))
	result, err := cosmogo.Solve(context.Background(), p, q, a, b, []cone.Cone{box}, settings)
	require.NoError(t, err)
	require.Equal(t, cosmogo.Solved, result.Status)
	require.InDelta(t, 1.0, result.X[0], 1e-2)
	require.InDelta(t, 1.0, result.X[1], 1e-2)
	require.InDelta(t, -1.5, result.Cost, 1e-2)
}

// TestSolve_LPFeasibility_Infeasible is scenario S2: x <= -1 and x >= 0
// simultaneously (encoded as two Nonnegatives rows), certified
// Primal_infeasible.
func TestSolve_LPFeasibility_Infeasible(t *testing.T) {
	p := csc(t, 1, 1, nil)
	q := []float64{1}
	a := csc(t, 2, 1, [][3]float64{{0, 0, 1}, {1, 0, -1}})
	b := []float64{-1, 0}

	nn, err := cone.NewNonNegCone(0, 2, 2)
	require.NoError(t, err)

	settings := cosmogo.NewSettings(cosmogo.WithMaxIter(2000))
	result, err := cosmogo.Solve(context.Background(), p, q, a, b, []cone.Cone{nn}, settings)
	require.NoError(t, err)
	require.Equal(t, cosmogo.PrimalInfeasible, result.Status)
}

// TestSolve_SOC is scenario S3: minimize x^T x subject to (t, x) in a
// 3-dim second-order cone and t fixed at 1. The optimum is x = 0, t = 1.
func TestSolve_SOC(t *testing.T) {
	p := csc(t, 3, 3, [][3]float64{{1, 1, 2}, {2, 2, 2}})
	q := []float64{0, 0, 0}
	a := csc(t, 4, 3, [][3]float64{
		{0, 0, -1}, // zero-cone row: t == 1
		{1, 0, -1}, // SOC row 0 (t)
		{2, 1, -1}, // SOC row 1 (x1)
		{3, 2, -1}, // SOC row 2 (x2)
	})
	b := []float64{-1, 0, 0, 0}

	zero, err := cone.NewZeroCone(0, 1, 4)
	require.NoError(t, err)
	soc, err := cone.NewSOCCone(1, 3, 4)
	require.NoError(t, err)

	settings := cosmogo.NewSettings(cosmogo.WithMaxIter(2000))
	result, err := cosmogo.Solve(context.Background(), p, q, a, b, []cone.Cone{zero, soc}, settings)
	require.NoError(t, err)
	require.Equal(t, cosmogo.Solved, result.Status)
	require.InDelta(t, 1.0, result.X[0], 1e-2)
	require.InDelta(t, 0.0, result.X[1], 1e-2)
	require.InDelta(t, 0.0, result.X[2], 1e-2)
}

// TestSolve_ChordalPSD is scenario S4: a dense 5x5 PSD cone whose
// registered chordal pattern is the path clique tree {0,1},{1,2},{2,3},
// {3,4}, decomposed into four 2x2 PSD blocks. It exercises the
// Decompose/Settings.PSDPatterns wiring end to end, independent of
// whether the particular objective drives a nontrivial solution.
func TestSolve_ChordalPSD(t *testing.T) {
	const n = 5
	p := csc(t, n*n, n*n, nil)
	q := make([]float64, n*n)
	for i := 0; i < n; i++ {
		q[i*n+i] = 1 // minimize trace(X)
	}
	ab, err := sparsemat.NewBuilder(n*n, n*n)
	require.NoError(t, err)
	for i := 0; i < n*n; i++ {
		require.NoError(t, ab.Add(i, i, -1))
	}
	a := ab.Build()
	b := make([]float64, n*n)
	// With A = -I the slack is s = b + X, so the PSD cone constrains
	// X + I (b holds the identity's diagonal).
	for i := 0; i < n; i++ {
		b[i*n+i] = 1
	}

	psd, err := cone.NewPSDCone(0, n, n*n)
	require.NoError(t, err)

	tree, err := chordal.NewSuperNodeTree([]chordal.Clique{
		{Members: []int{0, 1}, Separator: []int{1}, Parent: 1},
		{Members: []int{1, 2}, Separator: []int{2}, Parent: 2},
		{Members: []int{2, 3}, Separator: []int{3}, Parent: 3},
		{Members: []int{3, 4}, Parent: -1},
	})
	require.NoError(t, err)

	settings := cosmogo.NewSettings(cosmogo.WithMaxIter(500))
	settings.Decompose = true
	settings.PSDPatterns = map[int]*chordal.SuperNodeTree{0: tree}

	result, err := cosmogo.Solve(context.Background(), p, q, a, b, []cone.Cone{psd}, settings)
	require.NoError(t, err)
	require.Len(t, result.S, n*n)
	require.NotEqual(t, cosmogo.Unsolved, result.Status)
}
