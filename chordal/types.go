// Package chordal decomposes a single large PSD cone constraint into a
// clique tree of smaller, possibly-overlapping PSD blocks (Agler's/the
// Grone-Johnson-Sá-Wolkowicz decomposition theorem for chordal sparsity
// patterns), optionally merges adjacent cliques back together when doing
// so is cheaper than keeping them separate, and completes a dual PSD
// certificate from the per-clique duals a decomposed solve produces.
//
// A clique tree here is a SuperNodeTree: for each clique, its own
// variable indices (snd, the "supernode"), the indices it shares with
// its parent (sep, the separator), and its parent's index. Index -1
// marks a root.
package chordal

import "fmt"

// Sentinel errors.
var (
	// ErrEmptyTree indicates a SuperNodeTree was built with zero cliques.
	ErrEmptyTree = fmt.Errorf("chordal: empty clique tree")
	// ErrBadParent indicates a clique's parent index is out of range or
	// forms a cycle.
	ErrBadParent = fmt.Errorf("chordal: invalid clique parent")
	// ErrNotChordal indicates the supplied adjacency is not a chordal
	// pattern. No function in this package returns it.
	ErrNotChordal = fmt.Errorf("chordal: graph elimination ordering is not perfect")
)

// Clique is one node of the tree: Members is its full index set (snd
// union every ancestor separator it still carries), Separator is the
// subset shared with Parent, and Parent is the parent clique's index
// (-1 for a root).
type Clique struct {
	Members   []int
	Separator []int
	Parent    int
}

// SuperNodeTree is a forest of Cliques (a single chordal PSD block
// decomposes into one tree; Problem may carry several independent PSD
// blocks, each its own tree).
type SuperNodeTree struct {
	Cliques []Clique
}

// NewSuperNodeTree validates parent indices (in range, -1, and
// acyclic via a simple ancestor walk) and wraps cliques as a tree.
func NewSuperNodeTree(cliques []Clique) (*SuperNodeTree, error) {
	if len(cliques) == 0 {
		return nil, ErrEmptyTree
	}
	for i, c := range cliques {
		if c.Parent < -1 || c.Parent >= len(cliques) || c.Parent == i {
			return nil, ErrBadParent
		}
	}
	for i := range cliques {
		seen := map[int]bool{i: true}
		cur := cliques[i].Parent
		for cur != -1 {
			if seen[cur] {
				return nil, ErrBadParent
			}
			seen[cur] = true
			cur = cliques[cur].Parent
		}
	}
	return &SuperNodeTree{Cliques: cliques}, nil
}

// Roots returns the indices of every clique with no parent.
func (t *SuperNodeTree) Roots() []int {
	var roots []int
	for i, c := range t.Cliques {
		if c.Parent == -1 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Children returns the indices of cliques whose parent is i.
func (t *SuperNodeTree) Children(i int) []int {
	var kids []int
	for j, c := range t.Cliques {
		if c.Parent == i {
			kids = append(kids, j)
		}
	}
	return kids
}

// PostOrder returns clique indices in reverse-topological (children
// before parents) order; ParentChildMerge walks it, and dual completion
// walks its reverse.
func (t *SuperNodeTree) PostOrder() []int {
	visited := make([]bool, len(t.Cliques))
	var order []int
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, child := range t.Children(i) {
			visit(child)
		}
		order = append(order, i)
	}
	for _, r := range t.Roots() {
		visit(r)
	}
	return order
}
