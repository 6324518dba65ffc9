package cone_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmogo/cosmogo/cone"
)

func TestZeroCone_ProjectsToOrigin(t *testing.T) {
	c, err := cone.NewZeroCone(0, 2, 2)
	require.NoError(t, err)
	v := []float64{3, -4}
	c.Project(v)
	require.Equal(t, []float64{0, 0}, v)
}

func TestNonNegCone_ClipsNegatives(t *testing.T) {
	c, err := cone.NewNonNegCone(0, 3, 3)
	require.NoError(t, err)
	v := []float64{-1, 0, 2}
	c.Project(v)
	require.Equal(t, []float64{0, 0, 2}, v)
}

func TestBoxCone_ClampsToBounds(t *testing.T) {
	c, err := cone.NewBoxCone(0, 2, 2, []float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	v := []float64{-0.5, 1.5}
	c.Project(v)
	require.Equal(t, []float64{0, 1}, v)
}

func TestBoxCone_RejectsBadBounds(t *testing.T) {
	_, err := cone.NewBoxCone(0, 1, 1, []float64{1}, []float64{0})
	require.ErrorIs(t, err, cone.ErrBadBounds)
}

func TestSOCCone_ProjectionCases(t *testing.T) {
	c, err := cone.NewSOCCone(0, 3, 3)
	require.NoError(t, err)

	// Already in the cone: unchanged.
	v := []float64{5, 1, 1}
	c.Project(v)
	require.InDeltaSlice(t, []float64{5, 1, 1}, v, 1e-9)

	// In the antipodal cone: projects to the origin.
	v = []float64{-5, 1, 1}
	c.Project(v)
	require.InDeltaSlice(t, []float64{0, 0, 0}, v, 1e-9)

	// General case: lands exactly on the boundary.
	v = []float64{0, 3, 4}
	c.Project(v)
	require.InDelta(t, math.Hypot(v[1], v[2]), v[0], 1e-9)
}

func requireIdempotent(t *testing.T, c cone.Cone, v []float64) {
	t.Helper()
	once := append([]float64(nil), v...)
	c.Project(once)
	twice := append([]float64(nil), once...)
	c.Project(twice)
	require.InDeltaSlice(t, once, twice, 1e-6)
}

func TestProjectionIdempotence(t *testing.T) {
	zero, _ := cone.NewZeroCone(0, 2, 2)
	nonneg, _ := cone.NewNonNegCone(0, 2, 2)
	box, _ := cone.NewBoxCone(0, 2, 2, []float64{-1, -1}, []float64{1, 1})
	soc, _ := cone.NewSOCCone(0, 3, 3)
	psd, _ := cone.NewPSDCone(0, 2, 4)
	tri, _ := cone.NewPSDTriangleCone(0, 2, 3)
	exp, _ := cone.NewExpCone(0, 3)
	dexp, _ := cone.NewDualExpCone(0, 3)
	pow, _ := cone.NewPowerCone(0, 3, 0.5)
	dpow, _ := cone.NewDualPowerCone(0, 3, 0.5)

	cases := []struct {
		name string
		c    cone.Cone
		v    []float64
	}{
		{"zero", zero, []float64{1, 2}},
		{"nonneg", nonneg, []float64{-1, 2}},
		{"box", box, []float64{-5, 5}},
		{"soc", soc, []float64{0, 3, 4}},
		{"psd", psd, []float64{1, 0.5, 0.5, -1}},
		{"psdtriangle", tri, []float64{1, 0.1, -1}},
		{"exp", exp, []float64{1, 1, -1}},
		{"dualexp", dexp, []float64{-1, 2, 3}},
		{"pow", pow, []float64{-1, -1, 2}},
		{"dualpow", dpow, []float64{0.1, 0.1, 5}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			requireIdempotent(t, tc.c, tc.v)
		})
	}
}

func TestComposite_RejectsOverlappingRanges(t *testing.T) {
	a, _ := cone.NewNonNegCone(0, 2, 4)
	b, _ := cone.NewZeroCone(1, 2, 4)
	_, err := cone.NewComposite(4, a, b)
	require.ErrorIs(t, err, cone.ErrRangesOverlap)
}

func TestComposite_ProjectsEachMemberSlice(t *testing.T) {
	a, _ := cone.NewNonNegCone(0, 2, 4)
	b, _ := cone.NewBoxCone(2, 2, 4, []float64{0, 0}, []float64{1, 1})
	comp, err := cone.NewComposite(4, a, b)
	require.NoError(t, err)

	v := []float64{-1, 2, -1, 2}
	comp.Project(v)
	require.Equal(t, []float64{0, 2, 0, 1}, v)
}
