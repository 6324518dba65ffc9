package chordal

import "sort"

// CliqueGraph is the reduced clique graph a chordal elimination tree's
// supernodes and separators induce: nodes are clique indices, and edges
// connect cliques some separator's cross-component pairing discovered,
// each carrying the separator that discovered it and a merge-benefit
// weight. Every clique tree over the same snd/sep data is a spanning
// subgraph of this graph, which is why it is "reduced": it is the
// smallest graph containing every such tree.
type CliqueGraph struct {
	N     int
	Edges []CliqueEdge
}

// CliqueEdge is one edge of a CliqueGraph. A is always the larger clique
// index: the one that would absorb the other's members were this edge
// merged. B is the smaller, the one that would be emptied.
type CliqueEdge struct {
	A, B      int
	Separator []int
	Weight    float64
}

// EdgeMetric scores how attractive merging two cliques of the given
// sizes (and the size of their union) is; higher is more attractive.
// Merge strategies stop once no remaining edge's score clears their
// threshold.
type EdgeMetric func(sizeA, sizeB, sizeUnion int) float64

// ComplexityWeight estimates the cost *saved* by merging two cliques as
// the gap between their combined PSD-projection cost (dominated by the
// O(size^3) eigendecomposition) kept separate versus merged: a positive
// value means merging is cheaper.
func ComplexityWeight(sizeA, sizeB, sizeUnion int) float64 {
	cube := func(n int) float64 { return float64(n) * float64(n) * float64(n) }
	return cube(sizeA) + cube(sizeB) - cube(sizeUnion)
}

// BuildCliqueGraph constructs the Habib-Stacho reduced clique graph over
// members/seps: sort a private copy of seps by descending cardinality,
// then for each separator S in that order, find every clique whose
// member set is a superset of S, partition those cliques into connected
// components of the "shares strictly more than S" subgraph via an
// iterative (explicit-stack) depth-first search, and add an edge for
// every pair of cliques landing in different components. Two cliques in
// the same component already stay connected through S via some other
// clique, so no further edge between them is needed there; two cliques
// in different components need S to tie them together in any clique
// tree built from this graph, hence the edge.
func BuildCliqueGraph(members [][]int, seps [][]int, metric EdgeMetric) *CliqueGraph {
	if metric == nil {
		metric = ComplexityWeight
	}
	sorted := make([][]int, len(seps))
	copy(sorted, seps)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	g := &CliqueGraph{N: len(members)}
	seen := make(map[[2]int]bool)

	for _, s := range sorted {
		cs := cliquesContaining(members, s)
		if len(cs) < 2 {
			continue
		}
		comp := separatorComponents(members, cs, len(s))
		for i := 0; i < len(cs); i++ {
			for j := i + 1; j < len(cs); j++ {
				if comp[i] == comp[j] {
					continue
				}
				a, b := cs[i], cs[j]
				if a < b {
					a, b = b, a
				}
				key := [2]int{a, b}
				if seen[key] {
					continue
				}
				seen[key] = true

				sep := intersect(members[a], members[b])
				union := len(members[a]) + len(members[b]) - len(sep)
				w := metric(len(members[a]), len(members[b]), union)
				g.Edges = append(g.Edges, CliqueEdge{A: a, B: b, Separator: sep, Weight: w})
			}
		}
	}
	return g
}

// cliquesContaining returns, in ascending clique-index order, every
// clique whose member set is a superset of s.
func cliquesContaining(members [][]int, s []int) []int {
	var out []int
	for i, m := range members {
		if isSubset(s, m) {
			out = append(out, i)
		}
	}
	return out
}

func isSubset(s, m []int) bool {
	set := make(map[int]bool, len(m))
	for _, v := range m {
		set[v] = true
	}
	for _, v := range s {
		if !set[v] {
			return false
		}
	}
	return true
}

// separatorComponents builds the separator subgraph H over the cliques
// in cs — an edge between two of them iff their member sets share
// strictly more than sepLen vertices — and returns each clique's
// component id, parallel to cs. The component search is an
// explicit-stack depth-first search rather than a recursive one: cs can
// be as large as the clique count, and a recursive walk would risk
// blowing the stack on a large chordal decomposition.
func separatorComponents(members [][]int, cs []int, sepLen int) []int {
	n := len(cs)
	adj := make([][]int, n)
	for p := 0; p < n; p++ {
		for q := p + 1; q < n; q++ {
			if len(intersect(members[cs[p]], members[cs[q]])) > sepLen {
				adj[p] = append(adj[p], q)
				adj[q] = append(adj[q], p)
			}
		}
	}

	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	id := 0
	for start := 0; start < n; start++ {
		if comp[start] != -1 {
			continue
		}
		stack := []int{start}
		comp[start] = id
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range adj[v] {
				if comp[w] == -1 {
					comp[w] = id
					stack = append(stack, w)
				}
			}
		}
		id++
	}
	return comp
}

// intersect returns the intersection of two index sets; cliques are
// small (bounded by the decomposition's max supernode size), so building
// a map of b on every call is not worth replacing with a sorted merge.
func intersect(a, b []int) []int {
	inB := make(map[int]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	var out []int
	for _, v := range a {
		if inB[v] {
			out = append(out, v)
		}
	}
	return out
}
