package chordal_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cosmogo/cosmogo/chordal"
)

// threeClique builds a small tree over a 5x5 block: a root clique
// {0,1,2}, a child {1,2,3} sharing separator {1,2}, and a second child
// {2,4} sharing separator {2}.
func threeClique() []chordal.Clique {
	return []chordal.Clique{
		{Members: []int{0, 1, 2}, Parent: -1},
		{Members: []int{1, 2, 3}, Separator: []int{1, 2}, Parent: 0},
		{Members: []int{2, 4}, Separator: []int{2}, Parent: 0},
	}
}

func TestNewSuperNodeTree_RejectsCycles(t *testing.T) {
	cliques := []chordal.Clique{
		{Members: []int{0}, Parent: 1},
		{Members: []int{1}, Parent: 0},
	}
	_, err := chordal.NewSuperNodeTree(cliques)
	require.ErrorIs(t, err, chordal.ErrBadParent)
}

func TestSuperNodeTree_PostOrderVisitsChildrenFirst(t *testing.T) {
	tree, err := chordal.NewSuperNodeTree(threeClique())
	require.NoError(t, err)

	order := tree.PostOrder()
	require.Len(t, order, 3)
	pos := map[int]int{}
	for i, idx := range order {
		pos[idx] = i
	}
	require.Less(t, pos[1], pos[0])
	require.Less(t, pos[2], pos[0])
}

func TestBuildCliqueGraph_FindsIntersectingPairs(t *testing.T) {
	members := [][]int{{0, 1, 2}, {1, 2, 3}, {2, 4}}
	seps := [][]int{{1, 2}, {2}}

	g := chordal.BuildCliqueGraph(members, seps, chordal.ComplexityWeight)
	require.Len(t, g.Edges, 3)

	found := map[[2]int]bool{}
	for _, e := range g.Edges {
		found[[2]int{e.A, e.B}] = true
	}
	require.True(t, found[[2]int{1, 0}])
	require.True(t, found[[2]int{2, 0}])
	require.True(t, found[[2]int{2, 1}])
}

func TestParentChildMerge_CollapsesCheapMerges(t *testing.T) {
	// {0,1} (size 2) and {0,1,2} (size 3, a superset) cost 2^3+3^3=35
	// kept apart vs 3^3=27 merged (the union is just the superset): a
	// strictly positive merge benefit, so ParentChildMerge folds them.
	cliques := []chordal.Clique{
		{Members: []int{0, 1}, Parent: -1},
		{Members: []int{0, 1, 2}, Separator: []int{0, 1}, Parent: 0},
	}
	tree, err := chordal.NewSuperNodeTree(cliques)
	require.NoError(t, err)

	merged, err := chordal.NewParentChildMerge().Merge(tree)
	require.NoError(t, err)
	require.Len(t, merged.Cliques, 1)
	require.ElementsMatch(t, []int{0, 1, 2}, merged.Cliques[0].Members)
}

func TestCliqueGraphMerge_ProducesConnectedTree(t *testing.T) {
	tree, err := chordal.NewSuperNodeTree(threeClique())
	require.NoError(t, err)

	merged, err := chordal.NewCliqueGraphMerge().Merge(tree)
	require.NoError(t, err)
	require.NotEmpty(t, merged.Cliques)
	require.Len(t, merged.Roots(), 1)
}

func TestDecompose_ExpandAndCollapseRoundTrip(t *testing.T) {
	tree, err := chordal.NewSuperNodeTree(threeClique())
	require.NoError(t, err)

	d, err := chordal.Decompose(tree, 5)
	require.NoError(t, err)
	require.Len(t, d.Cones, 3)

	dense := make([]float64, 25)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			dense[i*5+j] = float64(i*5 + j)
		}
	}

	decomposed := d.Expand(dense)
	require.Len(t, decomposed, d.TotalDim)

	collapsed := d.CollapsePrimal(decomposed)
	// entries covered by exactly one clique round-trip exactly
	require.InDelta(t, dense[0*5+1], collapsed[0*5+1], 1e-12)
}

func TestDecompose_OverlapsPairUpSharedEntries(t *testing.T) {
	tree, err := chordal.NewSuperNodeTree(threeClique())
	require.NoError(t, err)
	d, err := chordal.Decompose(tree, 5)
	require.NoError(t, err)

	overlaps := d.Overlaps()
	require.NotEmpty(t, overlaps)
	for _, o := range overlaps {
		require.NotEqual(t, o.A, o.B)
	}
}

func TestDecompose_RejectsOutOfRangeMember(t *testing.T) {
	tree, err := chordal.NewSuperNodeTree([]chordal.Clique{{Members: []int{0, 9}, Parent: -1}})
	require.NoError(t, err)
	_, err = chordal.Decompose(tree, 5)
	require.ErrorIs(t, err, chordal.ErrBadOrder)
}

// habibStachoFigure returns the supernode/separator arrays of a chordal
// graph with nine maximal cliques over eleven vertices, 0-indexed (a
// clique at position i here is referred to as "clique i+1" in the
// 1-based commentary below, matching how the figure's testable
// properties are usually stated).
func habibStachoFigure() (members, seps [][]int) {
	members = [][]int{
		{4, 5},
		{1, 4, 6},
		{1, 7},
		{1, 8},
		{1, 3, 4},
		{1, 2, 3},
		{2, 3, 9},
		{3, 4, 11},
		{3, 10},
	}
	seps = [][]int{{1, 3}, {1, 4}, {2, 3}, {3, 4}, {1}, {3}, {4}}
	return members, seps
}

func TestBuildCliqueGraph_HabibStachoFigure(t *testing.T) {
	members, seps := habibStachoFigure()
	g := chordal.BuildCliqueGraph(members, seps, chordal.ComplexityWeight)

	want := [][2]int{
		{1, 0}, {4, 0}, {7, 0}, {8, 7}, {8, 4}, {8, 6}, {6, 5}, {5, 3}, {4, 3},
		{3, 1}, {3, 2}, {2, 1}, {4, 2}, {5, 2}, {8, 5}, {7, 4}, {4, 1}, {5, 4},
	}
	require.Len(t, g.Edges, len(want))

	got := map[[2]int]bool{}
	for _, e := range g.Edges {
		got[[2]int{e.A, e.B}] = true
	}
	for _, w := range want {
		require.True(t, got[w], "missing edge %v", w)
	}
}

func TestMergeState_HabibStachoFigure_PermissibleEdges(t *testing.T) {
	members, seps := habibStachoFigure()
	st := chordal.NewMergeState(members, seps, chordal.ComplexityWeight)

	wantPermissible := map[[2]int]bool{
		{6, 5}: true, {3, 2}: true, {7, 4}: true, {4, 1}: true, {5, 4}: true,
	}
	for i, e := range st.Edges {
		got := st.Permissible(e.A, e.B)
		want := wantPermissible[[2]int{e.A, e.B}]
		require.Equal(t, want, got, "edge %d=(%d,%d)", i, e.A, e.B)
	}
}

// TestMergeState_Traverse_StopsOnNegativeWeight is scenario S5: every
// edge in this figure has negative ComplexityWeight (the cliques are
// all too small for merging to pay off), so the scheduler's traverse
// step must still find the best permissible candidate, but evaluate
// must reject it and the caller must stop without merging.
func TestMergeState_Traverse_StopsOnNegativeWeight(t *testing.T) {
	members, seps := habibStachoFigure()
	st := chordal.NewMergeState(members, seps, chordal.ComplexityWeight)

	idx, weight, ok := st.Traverse()
	require.True(t, ok)
	require.InDelta(t, -10.0, weight, 1e-9)
	e := st.Edges[idx]
	require.True(t, st.Permissible(e.A, e.B))
	require.False(t, st.Evaluate(weight, 0))
}

func TestMergeState_MergeTwoCliques_Property6(t *testing.T) {
	members, seps := habibStachoFigure()
	st := chordal.NewMergeState(members, seps, chordal.ComplexityWeight)

	idx := findEdge(t, st.Edges, 4, 1) // clique 5 absorbs clique 2, in 1-based numbering
	st.MergeTwoCliques(idx)

	require.Empty(t, st.Members[1])
	require.ElementsMatch(t, []int{1, 3, 4, 6}, st.Members[4])
	for n, neighbors := range st.Adjacency {
		require.NotContains(t, neighbors, 1, "clique %d", n)
	}
}

func TestMergeState_MergeTwoCliques_Property7(t *testing.T) {
	members, seps := habibStachoFigure()
	st := chordal.NewMergeState(members, seps, chordal.ComplexityWeight)

	idx := findEdge(t, st.Edges, 6, 5) // clique 7 absorbs clique 6, in 1-based numbering
	st.MergeTwoCliques(idx)

	require.Empty(t, st.Members[5])
	require.ElementsMatch(t, []int{1, 2, 3, 9}, st.Members[6])
	for n, neighbors := range st.Adjacency {
		require.NotContains(t, neighbors, 5, "clique %d", n)
	}
}

// TestKruskalClique_ProducesSpanningTree is the remainder of scenario
// S5: after the scheduler runs to completion (here, immediately, since
// no edge clears the non-negative threshold), re-treeing the surviving
// cliques produces exactly one tombstoned (-1 weight) edge per merge
// needed to connect them, and a single connected, acyclic tree.
func TestKruskalClique_ProducesSpanningTree(t *testing.T) {
	members, seps := habibStachoFigure()
	st := chordal.NewMergeState(members, seps, chordal.ComplexityWeight)
	for st.Num > 1 {
		idx, weight, ok := st.Traverse()
		if !ok || !st.Evaluate(weight, 0) {
			break
		}
		st.MergeTwoCliques(idx)
	}
	require.Equal(t, len(members), st.Num) // S5: zero merges actually clear the threshold

	var groups [][]int
	for _, m := range st.Members {
		if len(m) > 0 {
			groups = append(groups, m)
		}
	}

	tree, edges, err := chordal.KruskalClique(groups)
	require.NoError(t, err)
	require.Len(t, tree.Roots(), 1)
	require.Len(t, tree.PostOrder(), len(groups))

	tombstoned := 0
	for _, e := range edges {
		if e.Weight == -1 {
			tombstoned++
		}
	}
	require.Equal(t, len(groups)-1, tombstoned)
}

func findEdge(t *testing.T, edges []chordal.CliqueEdge, a, b int) int {
	t.Helper()
	for i, e := range edges {
		if e.A == a && e.B == b {
			return i
		}
	}
	t.Fatalf("no edge (%d,%d) among %d edges", a, b, len(edges))
	return -1
}

// TestCompleteDual_PathChain_PSDAndAgreesOnCliqueEntries is scenario
// S4: a 5x5 dual certificate decomposed over the path clique tree
// {0,1},{1,2},{2,3},{3,4} must reconstruct a PSD matrix that agrees
// with each clique's own raw dual data wherever only one clique covers
// an entry.
func TestCompleteDual_PathChain_PSDAndAgreesOnCliqueEntries(t *testing.T) {
	tree, err := chordal.NewSuperNodeTree([]chordal.Clique{
		{Members: []int{0, 1}, Separator: []int{1}, Parent: 1},
		{Members: []int{1, 2}, Separator: []int{2}, Parent: 2},
		{Members: []int{2, 3}, Separator: []int{3}, Parent: 3},
		{Members: []int{3, 4}, Parent: -1},
	})
	require.NoError(t, err)

	d, err := chordal.Decompose(tree, 5)
	require.NoError(t, err)
	require.Equal(t, 16, d.TotalDim)

	block := []float64{2, 1, 1, 2} // each clique's own 2x2 dual block
	decomposed := make([]float64, 0, d.TotalDim)
	for i := 0; i < 4; i++ {
		decomposed = append(decomposed, block...)
	}

	y := d.CompleteDual(decomposed)
	require.Len(t, y, 25)

	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			require.InDelta(t, y[i*5+j], y[j*5+i], 1e-9)
		}
	}

	require.InDelta(t, 2, y[0*5+0], 1e-9) // (0,0) only in clique 0
	require.InDelta(t, 1, y[0*5+1], 1e-9) // (0,1) only in clique 0
	require.InDelta(t, 1, y[3*5+4], 1e-9) // (3,4) only in clique 3

	dense := mat.NewSymDense(5, y)
	var eig mat.EigenSym
	require.True(t, eig.Factorize(dense, false))
	for _, v := range eig.Values(nil) {
		require.GreaterOrEqual(t, v, -1e-6)
	}
}
