package residual_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/residual"
	"github.com/cosmogo/cosmogo/sparsemat"
)

func identityCSC(n int) *sparsemat.CSC {
	b, _ := sparsemat.NewBuilder(n, n)
	for i := 0; i < n; i++ {
		_ = b.Add(i, i, 1)
	}
	return b.Build()
}

func TestPrimal_ComputesInfNormOfResidual(t *testing.T) {
	a := identityCSC(2)
	scratch := make([]float64, 2)
	r := residual.Primal(a, []float64{1, 2}, []float64{0, 0}, []float64{1, 1}, scratch)
	require.InDelta(t, 1.0, r, 1e-12)
}

func TestHasConverged(t *testing.T) {
	require.True(t, residual.HasConverged(1e-5, 1e-5, 1, 1, 1e-4, 1e-4))
	require.False(t, residual.HasConverged(1, 1, 1, 1, 1e-4, 1e-4))
}

func TestPrimalInfeasible_DetectsCertificate(t *testing.T) {
	// x <= -1 and x >= 0 (A = [1; -1], b = [-1, 0], nonnegatives on both
	// rows) is primal-infeasible.
	ab, err := sparsemat.NewBuilder(2, 1)
	require.NoError(t, err)
	require.NoError(t, ab.Add(0, 0, 1))
	require.NoError(t, ab.Add(1, 0, -1))
	a := ab.Build()

	nonneg, err := cone.NewNonNegCone(0, 2, 2)
	require.NoError(t, err)
	dualCone, err := cone.NewComposite(2, nonneg)
	require.NoError(t, err)

	// deltaY = (1,1) makes A^T deltaY = 1*1 + (-1)*1 = 0, and
	// <b, deltaY> = -1 < 0.
	deltaY := []float64{1, 1}
	b := []float64{-1, 0}
	require.True(t, residual.PrimalInfeasible(a, deltaY, b, dualCone, 1e-9))
}
