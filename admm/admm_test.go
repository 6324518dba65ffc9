package admm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmogo/cosmogo/admm"
	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/kkt"
	"github.com/cosmogo/cosmogo/kktsolver"
	"github.com/cosmogo/cosmogo/sparsemat"
)

// buildBoxQP builds minimize 0.5*x^2 - 3x s.t. x in [0,1], encoded as
// A*x + s = b with A = [-1], b = [0] (so s == x), and a box cone on s.
func buildBoxQP(t *testing.T) (*admm.Problem, *kkt.Assembly) {
	t.Helper()
	pb, err := sparsemat.NewBuilder(1, 1)
	require.NoError(t, err)
	require.NoError(t, pb.Add(0, 0, 1))
	p := pb.Build()

	ab, err := sparsemat.NewBuilder(1, 1)
	require.NoError(t, err)
	require.NoError(t, ab.Add(0, 0, -1))
	a := ab.Build()

	q := []float64{-3}
	b := []float64{0}

	boxCone, err := cone.NewBoxCone(0, 1, 1, []float64{0}, []float64{1})
	require.NoError(t, err)
	composite, err := cone.NewComposite(1, boxCone)
	require.NoError(t, err)

	problem, err := admm.NewProblem(p, q, a, b, composite)
	require.NoError(t, err)

	assembly, err := kkt.NewAssembly(1, 1, p, a)
	require.NoError(t, err)
	return problem, assembly
}

func TestRun_SolvesBoxConstrainedQP(t *testing.T) {
	problem, assembly := buildBoxQP(t)
	settings := admm.NewSettings(admm.WithMaxIter(500))

	rho := admm.NewRhoVec(problem.M, settings.Rho0, problem.Cones.Members())
	var solver kktsolver.DenseLU
	handle, err := solver.Factor(assembly, settings.Sigma, rho.Values)
	require.NoError(t, err)

	result, err := admm.Run(context.Background(), problem, handle, rho, settings)
	require.NoError(t, err)
	require.Equal(t, admm.Solved, result.Status)
	require.InDelta(t, 1.0, result.X[0], 1e-3)
	require.InDelta(t, 1.0, result.S[0], 1e-3)
}

func TestRun_RespectsContextCancellation(t *testing.T) {
	problem, assembly := buildBoxQP(t)
	settings := admm.NewSettings(admm.WithMaxIter(500))
	rho := admm.NewRhoVec(problem.M, settings.Rho0, problem.Cones.Members())
	var solver kktsolver.DenseLU
	handle, err := solver.Factor(assembly, settings.Sigma, rho.Values)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = admm.Run(ctx, problem, handle, rho, settings)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSettings_RejectsBadValues(t *testing.T) {
	s := admm.NewSettings(admm.WithMaxIter(10))
	s.EpsAbs = -1
	require.ErrorIs(t, s.Validate(), admm.ErrBadSettings)
}

func TestNewProblem_RejectsDimensionMismatch(t *testing.T) {
	pb, err := sparsemat.NewBuilder(1, 1)
	require.NoError(t, err)
	require.NoError(t, pb.Add(0, 0, 1))
	p := pb.Build()

	ab, err := sparsemat.NewBuilder(2, 1)
	require.NoError(t, err)
	require.NoError(t, ab.Add(0, 0, 1))
	require.NoError(t, ab.Add(1, 0, 1))
	a := ab.Build()

	zero, err := cone.NewZeroCone(0, 2, 2)
	require.NoError(t, err)
	composite, err := cone.NewComposite(2, zero)
	require.NoError(t, err)

	_, err = admm.NewProblem(p, []float64{1, 2}, a, []float64{0, 0}, composite)
	require.ErrorIs(t, err, admm.ErrDimensionMismatch)
}
