package chordal

import (
	"math"
	"sort"
)

// MergeStrategy decides which cliques of a SuperNodeTree to combine
// before handing the decomposition off to the solver, trading a few
// larger PSD blocks for fewer separator-consistency constraints.
type MergeStrategy interface {
	Merge(t *SuperNodeTree) (*SuperNodeTree, error)
}

// NoMerge leaves the tree exactly as the decomposition produced it.
type NoMerge struct{}

// Merge returns t unchanged.
func (NoMerge) Merge(t *SuperNodeTree) (*SuperNodeTree, error) { return t, nil }

// ParentChildMerge merges a clique into its parent whenever doing so is
// strictly cheaper than keeping them apart (Metric > Threshold),
// walking the tree bottom-up so a merge can expose further merges
// higher up the same path.
type ParentChildMerge struct {
	Metric    EdgeMetric
	Threshold float64
}

// NewParentChildMerge builds a ParentChildMerge with ComplexityWeight
// and a zero threshold: merge whenever it strictly lowers total
// projection cost.
func NewParentChildMerge() ParentChildMerge {
	return ParentChildMerge{Metric: ComplexityWeight, Threshold: 0}
}

// Merge makes one postorder pass, folding each child into its parent
// when the metric clears Threshold; a child that was not merged is not
// revisited after its parent grows.
func (s ParentChildMerge) Merge(t *SuperNodeTree) (*SuperNodeTree, error) {
	cliques := append([]Clique(nil), t.Cliques...)
	alive := make([]bool, len(cliques))
	for i := range alive {
		alive[i] = true
	}

	for _, i := range t.PostOrder() {
		if !alive[i] {
			continue
		}
		p := cliques[i].Parent
		if p == -1 || !alive[p] {
			continue
		}
		union := unionSorted(cliques[i].Members, cliques[p].Members)
		w := s.Metric(len(cliques[i].Members), len(cliques[p].Members), len(union))
		if w <= s.Threshold {
			continue
		}
		cliques[p].Members = union
		for j := range cliques {
			if cliques[j].Parent == i {
				cliques[j].Parent = p
			}
		}
		alive[i] = false
	}

	return rebuild(cliques, alive)
}

// AdjacencyTable maps a clique index to the set of clique indices the
// current (possibly partially merged) reduced clique graph connects it
// to.
type AdjacencyTable map[int]map[int]bool

func newAdjacencyTable(n int, edges []CliqueEdge) AdjacencyTable {
	adj := make(AdjacencyTable, n)
	for i := 0; i < n; i++ {
		adj[i] = make(map[int]bool)
	}
	for _, e := range edges {
		adj[e.A][e.B] = true
		adj[e.B][e.A] = true
	}
	return adj
}

// tombstoneWeight marks an edge as retired: MergeTwoCliques never
// removes an edge from the slice (Traverse's sort would otherwise have
// to re-derive indices every call), it overwrites the weight instead.
var tombstoneWeight = math.Inf(-1)

// MergeState is the graph-merge scheduler's mutable state: the live
// clique member sets, the reduced clique graph's edges (tombstoned once
// merged or subsumed), and the adjacency table tracking which cliques
// are still graph-adjacent. Traverse, Evaluate and MergeTwoCliques are
// the scheduler's loop body as individually callable steps, so each of
// the permissibility gate, the non-negative-weight stop rule, and the
// merge mechanics can be exercised on its own.
type MergeState struct {
	Members   [][]int
	Edges     []CliqueEdge
	Adjacency AdjacencyTable
	Num       int
	Metric    EdgeMetric
}

// NewMergeState builds the reduced clique graph over members/seps via
// BuildCliqueGraph and wraps it as scheduler state.
func NewMergeState(members [][]int, seps [][]int, metric EdgeMetric) *MergeState {
	if metric == nil {
		metric = ComplexityWeight
	}
	own := make([][]int, len(members))
	for i, m := range members {
		own[i] = append([]int(nil), m...)
	}
	graph := BuildCliqueGraph(own, seps, metric)
	return &MergeState{
		Members:   own,
		Edges:     graph.Edges,
		Adjacency: newAdjacencyTable(len(own), graph.Edges),
		Num:       len(own),
		Metric:    metric,
	}
}

// Permissible reports whether merging cliques a and b preserves the
// clique graph's running-intersection property: for every clique N the
// adjacency table currently lists as a neighbor of both a and b, a and
// b must agree on their intersection with N. No common neighbor
// trivially permits the merge.
func (s *MergeState) Permissible(a, b int) bool {
	for n := range s.Adjacency[a] {
		if n == b || !s.Adjacency[b][n] {
			continue
		}
		if !sameSet(intersect(s.Members[a], s.Members[n]), intersect(s.Members[b], s.Members[n])) {
			return false
		}
	}
	return true
}

// Traverse scans s.Edges by descending weight and returns the index of
// the first live (non-tombstoned), permissible edge it finds.
func (s *MergeState) Traverse() (idx int, weight float64, ok bool) {
	order := make([]int, len(s.Edges))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return s.Edges[order[i]].Weight > s.Edges[order[j]].Weight })

	for _, i := range order {
		e := s.Edges[i]
		if e.Weight == tombstoneWeight {
			continue
		}
		if s.Permissible(e.A, e.B) {
			return i, e.Weight, true
		}
	}
	return -1, 0, false
}

// Evaluate reports whether a candidate edge's weight clears threshold.
// The scheduler stops entirely the moment this returns false, since
// Traverse already returned the best remaining permissible option.
func (s *MergeState) Evaluate(weight, threshold float64) bool {
	return weight >= threshold
}

// MergeTwoCliques folds the edge at edgeIdx's smaller-indexed endpoint
// into its larger: members union, the smaller is emptied, every edge
// touching either endpoint is tombstoned or rewritten with a
// recomputed weight, and the adjacency table is updated to reflect the
// merge.
func (s *MergeState) MergeTwoCliques(edgeIdx int) {
	e := s.Edges[edgeIdx]
	a, b := e.A, e.B

	s.Members[a] = unionSorted(s.Members[a], s.Members[b])
	s.Members[b] = nil
	s.Num--

	for i := range s.Edges {
		if i == edgeIdx {
			s.Edges[i].Weight = tombstoneWeight
			continue
		}
		ed := &s.Edges[i]
		switch {
		case ed.A == b || ed.B == b:
			other := ed.A
			if ed.A == b {
				other = ed.B
			}
			if other == a {
				ed.Weight = tombstoneWeight
				continue
			}
			if a > other {
				ed.A, ed.B = a, other
			} else {
				ed.A, ed.B = other, a
			}
			ed.Separator = intersect(s.Members[ed.A], s.Members[ed.B])
			ed.Weight = s.Metric(len(s.Members[ed.A]), len(s.Members[ed.B]), len(unionSorted(s.Members[ed.A], s.Members[ed.B])))
		case ed.A == a || ed.B == a:
			ed.Separator = intersect(s.Members[ed.A], s.Members[ed.B])
			ed.Weight = s.Metric(len(s.Members[ed.A]), len(s.Members[ed.B]), len(unionSorted(s.Members[ed.A], s.Members[ed.B])))
		}
	}

	for n := range s.Adjacency[b] {
		delete(s.Adjacency[n], b)
		if n != a {
			s.Adjacency[n][a] = true
			s.Adjacency[a][n] = true
		}
	}
	delete(s.Adjacency[a], b)
	delete(s.Adjacency, b)
}

// CliqueGraphMerge builds the full reduced clique graph, then runs the
// permissibility-gated scheduler: repeatedly traverse for the
// highest-weight permissible edge, merge it if its weight clears
// Threshold, and stop the moment it does not (or no permissible edge
// remains). After merging, the surviving cliques are re-treed by
// running a Kruskal maximum-spanning-tree pass over the
// separator-size-weighted complete graph between them.
type CliqueGraphMerge struct {
	Metric    EdgeMetric
	Threshold float64
}

// NewCliqueGraphMerge builds a CliqueGraphMerge with ComplexityWeight
// and a zero threshold.
func NewCliqueGraphMerge() CliqueGraphMerge {
	return CliqueGraphMerge{Metric: ComplexityWeight, Threshold: 0}
}

// Merge implements MergeStrategy.
func (s CliqueGraphMerge) Merge(t *SuperNodeTree) (*SuperNodeTree, error) {
	metric := s.Metric
	if metric == nil {
		metric = ComplexityWeight
	}
	members, seps := treeToMembersAndSeps(t)
	st := NewMergeState(members, seps, metric)

	for st.Num > 1 {
		idx, weight, ok := st.Traverse()
		if !ok || !st.Evaluate(weight, s.Threshold) {
			break
		}
		st.MergeTwoCliques(idx)
	}

	return retreeFromMembers(st.Members)
}

// treeToMembersAndSeps extracts t's clique member sets and its existing
// parent-child separators, the "sep" list BuildCliqueGraph's
// construction consumes, from an already-built SuperNodeTree.
func treeToMembersAndSeps(t *SuperNodeTree) ([][]int, [][]int) {
	members := make([][]int, len(t.Cliques))
	var seps [][]int
	for i, c := range t.Cliques {
		members[i] = append([]int(nil), c.Members...)
		if c.Parent != -1 && len(c.Separator) > 0 {
			seps = append(seps, c.Separator)
		}
	}
	return members, seps
}

// retreeFromMembers drops emptied (merged-away) cliques and rebuilds a
// clique tree over the survivors via Kruskal.
func retreeFromMembers(members [][]int) (*SuperNodeTree, error) {
	var groups [][]int
	for _, m := range members {
		if len(m) == 0 {
			continue
		}
		groups = append(groups, m)
	}
	tree, _, err := KruskalClique(groups)
	return tree, err
}

// KruskalClique rebuilds a clique tree over groups (already merged,
// already compacted — no empty entries) by running a Kruskal-style
// maximum-spanning-tree pass over the complete graph between them,
// weighted by separator size |Ci ∩ Cj| (a larger shared separator is a
// cheaper edge to keep, since it is the edge two cliques would have had
// to maintain consistency over anyway). Edges selected into the
// spanning tree have their Weight set to -1, an in-tree sentinel; the
// returned edge list lets callers verify the tree covers every group
// with exactly len(groups)-1 such edges.
func KruskalClique(groups [][]int) (*SuperNodeTree, []CliqueEdge, error) {
	if len(groups) == 0 {
		return nil, nil, ErrEmptyTree
	}
	var edges []CliqueEdge
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			sep := intersect(groups[i], groups[j])
			edges = append(edges, CliqueEdge{A: j, B: i, Separator: sep, Weight: float64(len(sep))})
		}
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })

	uf := newUnionFind(len(groups))
	parent := make([]int, len(groups))
	for i := range parent {
		parent[i] = -1
	}
	treeEdges := 0
	for i := range edges {
		if treeEdges == len(groups)-1 {
			break
		}
		e := &edges[i]
		ra, rb := uf.find(e.A), uf.find(e.B)
		if ra == rb {
			continue
		}
		uf.union(ra, rb)
		// Hang B's component under A: re-root it at B by reversing the
		// parent links on B's path to its current root, then point B at A.
		prev, cur := e.A, e.B
		for cur != -1 {
			next := parent[cur]
			parent[cur] = prev
			prev, cur = cur, next
		}
		e.Weight = -1
		treeEdges++
	}

	cliques := make([]Clique, len(groups))
	for i, members := range groups {
		sep := []int{}
		if parent[i] != -1 {
			sep = intersect(members, groups[parent[i]])
		}
		cliques[i] = Clique{Members: members, Separator: sep, Parent: parent[i]}
	}
	tree, err := NewSuperNodeTree(cliques)
	return tree, edges, err
}

// rebuild compacts cliques down to the alive ones, remapping Parent
// indices, and returns a fresh SuperNodeTree.
func rebuild(cliques []Clique, alive []bool) (*SuperNodeTree, error) {
	newIdx := make([]int, len(cliques))
	var kept []Clique
	for i, ok := range alive {
		if !ok {
			newIdx[i] = -1
			continue
		}
		newIdx[i] = len(kept)
		kept = append(kept, cliques[i])
	}
	for i := range kept {
		if kept[i].Parent != -1 {
			kept[i].Parent = newIdx[kept[i].Parent]
		}
	}
	return NewSuperNodeTree(kept)
}

// unionSorted merges two index slices, de-duplicating, and sorts the
// result for deterministic downstream output.
func unionSorted(a, b []int) []int {
	set := make(map[int]bool, len(a)+len(b))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		set[v] = true
	}
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// sameSet reports whether a and b contain the same index set,
// regardless of order.
func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[int]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if !set[v] {
			return false
		}
	}
	return true
}

// unionFind is a minimal disjoint-set with path compression and union
// by rank, in the same style prim_kruskal.Kruskal uses for its MST
// construction (there keyed by vertex ID string; here by clique index,
// since cliques are dense-indexed from the start).
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// union merges the sets containing a and b and returns the resulting
// root.
func (uf *unionFind) union(a, b int) int {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return ra
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	return ra
}
