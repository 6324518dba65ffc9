package chordal

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/cosmogo/cosmogo/cone"
)

// ErrBadOrder indicates a clique's Members index referenced a row/column
// outside [0, n) of the PSD block being decomposed.
var ErrBadOrder = fmt.Errorf("chordal: clique member index out of range")

// Decomposition rewrites a single n x n PSD cone constraint into one
// smaller PSD cone per clique, each over its own slice of a new,
// larger slack block. Entries the original matrix has that fall inside
// more than one clique (the separator entries) get a copy in every
// clique that contains them; Overlaps lists which decomposed-vector
// positions must be held equal for the decomposed problem to certify
// the same thing the original PSD constraint did.
type Decomposition struct {
	N        int
	Cliques  []Clique
	Cones    []cone.Cone
	Tree     *SuperNodeTree // the tree Decompose built Cliques/Cones from, used by CompleteDual's reverse-postorder completion
	offsets  []int          // decomposed-vector start offset per clique
	order    [][]int        // per-clique sorted Members, cached for index math
	TotalDim int
}

// Decompose builds per-clique PSD cones over a fresh decomposed vector
// of length TotalDim = sum(|clique|^2), each clique's block starting at
// offsets[k] within it.
func Decompose(tree *SuperNodeTree, n int) (*Decomposition, error) {
	d := &Decomposition{N: n, Cliques: tree.Cliques, Tree: tree}
	d.offsets = make([]int, len(tree.Cliques))
	d.order = make([][]int, len(tree.Cliques))
	d.Cones = make([]cone.Cone, len(tree.Cliques))

	cursor := 0
	for k, c := range tree.Cliques {
		members := append([]int(nil), c.Members...)
		sort.Ints(members)
		for _, m := range members {
			if m < 0 || m >= n {
				return nil, ErrBadOrder
			}
		}
		d.order[k] = members
		size := len(members)
		d.offsets[k] = cursor
		blockLen := size * size
		psd, err := cone.NewPSDCone(cursor, size, cursor+blockLen)
		if err != nil {
			return nil, err
		}
		d.Cones[k] = psd
		cursor += blockLen
	}
	d.TotalDim = cursor
	return d, nil
}

// Expand scatters a dense n x n row-major matrix into the decomposed
// vector, writing a copy into every clique block that covers (i, j).
func (d *Decomposition) Expand(dense []float64) []float64 {
	out := make([]float64, d.TotalDim)
	for k := range d.Cliques {
		members := d.order[k]
		size := len(members)
		for a, i := range members {
			for b, j := range members {
				out[d.offsets[k]+a*size+b] = dense[i*d.N+j]
			}
		}
	}
	return out
}

// CollapsePrimal reconstructs a dense n x n primal matrix from the
// decomposed vector, averaging over every clique block that carries a
// copy of a given (i, j): at a converged ADMM solution the copies agree
// up to the consistency tolerance, and averaging is a cheap, robust way
// to read a single value back out of them before convergence too.
func (d *Decomposition) CollapsePrimal(decomposed []float64) []float64 {
	out := make([]float64, d.N*d.N)
	count := make([]int, d.N*d.N)
	for k := range d.Cliques {
		members := d.order[k]
		size := len(members)
		for a, i := range members {
			for b, j := range members {
				idx := i*d.N + j
				out[idx] += decomposed[d.offsets[k]+a*size+b]
				count[idx]++
			}
		}
	}
	for idx, c := range count {
		if c > 0 {
			out[idx] /= float64(c)
		}
	}
	return out
}

// CompleteDual reconstructs a PSD-completable n x n dual certificate
// from the decomposed vector's per-clique duals. Every entry a clique
// covers is first pinned to the sum of that entry's clique
// contributions (the decomposition-consistency multiplier for shared
// entries is exactly the difference between cliques' claims on that
// entry, so the sum of clique duals is the dual of the original,
// undecomposed PSD constraint — T_k^T mu_k T_k summed over k). Cliques
// are then visited in reverse postorder (root to leaves: a clique's
// separator is always already pinned by the time the clique itself is
// visited), and every entry a clique's own vertices share with an
// already-known vertex outside the clique — but that no clique pins
// directly — is filled via the closed-form chordal completion
//
//	Y[nu, psi] = Y[nu, sep] * Y[sep, sep]^-1 * Y[sep, psi]
//
// the Grone-Johnson-Sá-Wolkowicz maximum-determinant extension that
// keeps the whole matrix positive-semidefinite-completable over the
// pattern the clique tree encodes.
func (d *Decomposition) CompleteDual(decomposed []float64) []float64 {
	out := make([]float64, d.N*d.N)
	known := make([]bool, d.N*d.N)

	for k := range d.Cliques {
		members := d.order[k]
		size := len(members)
		for a, i := range members {
			for b, j := range members {
				idx := i*d.N + j
				out[idx] += decomposed[d.offsets[k]+a*size+b]
				known[idx] = true
			}
		}
	}

	for _, k := range reversePostOrder(d.Tree) {
		c := d.Tree.Cliques[k]
		if c.Parent == -1 || len(c.Separator) == 0 {
			continue // a root (or a clique recorded with no separator) has nothing to complete against
		}
		nu := setMinus(d.order[k], c.Separator)
		if len(nu) == 0 {
			continue
		}
		psi := knownOutside(known, d.N, d.order[k], c.Separator, nu)
		if len(psi) == 0 {
			continue
		}
		completeBlock(out, known, d.N, nu, c.Separator, psi)
	}

	return out
}

// reversePostOrder visits the root before its children (PostOrder
// reversed): the order the completion recursion needs, since a
// clique's separator must already be pinned before the clique's own
// extra vertices can be completed against it.
func reversePostOrder(t *SuperNodeTree) []int {
	order := t.PostOrder()
	rev := make([]int, len(order))
	for i, v := range order {
		rev[len(order)-1-i] = v
	}
	return rev
}

// setMinus returns the elements of a not present in b.
func setMinus(a, b []int) []int {
	inB := make(map[int]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	var out []int
	for _, v := range a {
		if !inB[v] {
			out = append(out, v)
		}
	}
	return out
}

// knownOutside returns, in ascending order, every vertex j outside
// members for which every separator row is already known (so the
// completion formula can be evaluated against it) and at least one nu
// row is not yet known (so there is something left to fill in; entries
// within an already-processed clique are never revisited).
func knownOutside(known []bool, n int, members, sep, nu []int) []int {
	inMembers := make(map[int]bool, len(members))
	for _, v := range members {
		inMembers[v] = true
	}
	var out []int
	for j := 0; j < n; j++ {
		if inMembers[j] {
			continue
		}
		sepKnown := true
		for _, s := range sep {
			if !known[s*n+j] {
				sepKnown = false
				break
			}
		}
		if !sepKnown {
			continue
		}
		anyUnknown := false
		for _, v := range nu {
			if !known[v*n+j] {
				anyUnknown = true
				break
			}
		}
		if !anyUnknown {
			continue
		}
		out = append(out, j)
	}
	return out
}

// completeBlock fills Y[nu, psi] (and its transpose) via
// Y[nu,sep] * Y[sep,sep]^-1 * Y[sep,psi], the chordal PSD completion
// formula, and marks the newly filled entries known. A singular
// separator block leaves those entries at their already-summed value
// rather than fail the whole reconstruction.
func completeBlock(out []float64, known []bool, n int, nu, sep, psi []int) {
	nNu, nSep, nPsi := len(nu), len(sep), len(psi)

	ynuSep := mat.NewDense(nNu, nSep, nil)
	for a, i := range nu {
		for b, j := range sep {
			ynuSep.Set(a, b, out[i*n+j])
		}
	}
	ysepSep := mat.NewDense(nSep, nSep, nil)
	for a, i := range sep {
		for b, j := range sep {
			ysepSep.Set(a, b, out[i*n+j])
		}
	}
	ysepPsi := mat.NewDense(nSep, nPsi, nil)
	for a, i := range sep {
		for b, j := range psi {
			ysepPsi.Set(a, b, out[i*n+j])
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(ysepSep); err != nil {
		return
	}

	var tmp, result mat.Dense
	tmp.Mul(ynuSep, &inv)
	result.Mul(&tmp, ysepPsi)

	for a, i := range nu {
		for b, j := range psi {
			v := result.At(a, b)
			out[i*n+j] = v
			out[j*n+i] = v
			known[i*n+j] = true
			known[j*n+i] = true
		}
	}
}

// OriginalRows returns, for every position of the decomposed vector, the
// row-major index (i*N+j) of the original dense-matrix entry it is a
// copy of. Callers assembling the decomposed constraint matrix use this
// to route each row of the original A (and entry of b) into every
// decomposed-vector position that is a copy of it.
func (d *Decomposition) OriginalRows() []int {
	out := make([]int, d.TotalDim)
	for k := range d.Cliques {
		members := d.order[k]
		size := len(members)
		for a, i := range members {
			for b, j := range members {
				out[d.offsets[k]+a*size+b] = i*d.N + j
			}
		}
	}
	return out
}

// Overlap is one pair of decomposed-vector positions that must be held
// equal: position A in one clique's block and position B in another's,
// both copies of the same original (i, j) entry.
type Overlap struct {
	A, B int
}

// Overlaps lists every pair of decomposed-vector positions that are
// copies of the same original matrix entry, across distinct cliques.
// A caller can add a Zero-cone row per pair (A - B = 0) when assembling
// the decomposed problem's constraint matrix; the root package's
// decomposeProblem adds no such rows.
func (d *Decomposition) Overlaps() []Overlap {
	type ref struct{ clique, pos int }
	seen := make(map[[2]int][]ref)
	for k := range d.Cliques {
		members := d.order[k]
		size := len(members)
		for a, i := range members {
			for b, j := range members {
				if i > j {
					continue // each unordered pair counted once via i<=j
				}
				key := [2]int{i, j}
				seen[key] = append(seen[key], ref{clique: k, pos: d.offsets[k] + a*size + b})
			}
		}
	}

	var keys [][2]int
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})

	var overlaps []Overlap
	for _, key := range keys {
		refs := seen[key]
		if len(refs) < 2 {
			continue
		}
		sort.Slice(refs, func(a, b int) bool { return refs[a].pos < refs[b].pos })
		for i := 1; i < len(refs); i++ {
			overlaps = append(overlaps, Overlap{A: refs[0].pos, B: refs[i].pos})
		}
	}
	return overlaps
}
