package scaler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/scaler"
	"github.com/cosmogo/cosmogo/sparsemat"
)

func diagCSC(vals []float64) *sparsemat.CSC {
	n := len(vals)
	b, _ := sparsemat.NewBuilder(n, n)
	for i, v := range vals {
		_ = b.Add(i, i, v)
	}
	return b.Build()
}

func TestEquilibrate_ZeroIterationsIsIdentity(t *testing.T) {
	p := diagCSC([]float64{1, 1})
	a := diagCSC([]float64{1, 1})
	q := []float64{1, 1}
	bb := []float64{1, 1}

	mats, err := scaler.Equilibrate(scaler.Settings{Iterations: 0, MinScaling: 1e-4, MaxScaling: 1e4}, p, a, q, bb, nil)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 1}, mats.D)
	require.Equal(t, []float64{1, 1}, mats.E)
	require.Equal(t, 1.0, mats.C)
}

func TestEquilibrate_ReverseRoundTrips(t *testing.T) {
	p := diagCSC([]float64{4, 9})
	a := diagCSC([]float64{2, 5})
	q := []float64{1, -2}
	bb := []float64{3, 4}

	mats, err := scaler.Equilibrate(scaler.DefaultSettings(), p, a, q, bb, nil)
	require.NoError(t, err)

	x := []float64{1, 2}
	s := []float64{0.5, 0.25}
	nu := []float64{0.1, 0.2}
	mu := []float64{0.3, 0.4}

	origX := append([]float64(nil), x...)
	origS := append([]float64(nil), s...)
	origNu := append([]float64(nil), nu...)
	origMu := append([]float64(nil), mu...)

	// Apply D, E as the forward scaling of a warm start would, then
	// reverse, and expect the original values back.
	mats.ApplyToWarmStart(x, mu)
	elementwiseScale(s, mats.E)
	elementwiseScale(nu, mats.Einv)
	scaleConstInPlace(nu, mats.C)
	mats.Reverse(x, s, nu, mu)

	require.InDeltaSlice(t, origX, x, 1e-9)
	require.InDeltaSlice(t, origS, s, 1e-9)
	require.InDeltaSlice(t, origNu, nu, 1e-9)
	require.InDeltaSlice(t, origMu, mu, 1e-9)
}

func TestEquilibrate_RectifiesScalarConeBlocks(t *testing.T) {
	p := diagCSC([]float64{1, 1, 1})
	a := diagCSC([]float64{1, 1, 1})
	q := []float64{1, 1, 1}
	bb := []float64{1, 2, 3}

	soc, err := cone.NewSOCCone(0, 3, 3)
	require.NoError(t, err)

	mats, err := scaler.Equilibrate(scaler.DefaultSettings(), p, a, q, bb, []cone.Cone{soc})
	require.NoError(t, err)
	require.InDelta(t, mats.E[0], mats.E[1], 1e-12)
	require.InDelta(t, mats.E[1], mats.E[2], 1e-12)
}

func TestSettings_RejectsBadBounds(t *testing.T) {
	s := scaler.Settings{Iterations: 1, MinScaling: 10, MaxScaling: 1}
	require.ErrorIs(t, s.Validate(), scaler.ErrBadScalingBounds)
}

func elementwiseScale(v, scale []float64) {
	for i := range v {
		v[i] *= scale[i]
	}
}

func scaleConstInPlace(v []float64, c float64) {
	for i := range v {
		v[i] *= c
	}
}
