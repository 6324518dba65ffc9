package cosmogo

import (
	"fmt"
	"math"
	"sort"

	"github.com/cosmogo/cosmogo/admm"
	"github.com/cosmogo/cosmogo/chordal"
	"github.com/cosmogo/cosmogo/cone"
	"github.com/cosmogo/cosmogo/sparsemat"
)

// ErrBadPSDPattern indicates a registered chordal pattern's vertex count
// does not match the dense PSD cone it was registered against.
var ErrBadPSDPattern = fmt.Errorf("cosmogo: chordal pattern size does not match PSD cone order")

// decompositionPlan records how decomposeProblem rewrote a Problem's PSD
// cone members, so Solve can fold a decomposed admm.Result's (s, mu, nu)
// back into the caller's original, undecomposed row coordinates once
// ADMM terminates. m is the row count before decomposition; rowMap[i] is
// every decomposed-problem row that row i's (A, b) data was copied into
// (length 1 for rows that were not decomposed); blocks carries the
// per-PSD-cone Decomposition needed to collapse/complete copies that
// came from the same original dense entry.
type decompositionPlan struct {
	m      int
	rowMap [][]int
	blocks []decomposedBlock
}

type decomposedBlock struct {
	originalStart int // original (pre-decomposition) row the block's (0,0) entry occupied
	newStart      int // row the block's decomposed vector starts at, post-decomposition
	dec           *chordal.Decomposition
}

// decomposeProblem chordally decomposes every dense PSD cone member of
// composite that has a registered pattern in patterns (keyed by the
// member's position in composite.Members()), replacing its rows of (a,
// b) with one row per clique-block entry (duplicated from the original
// row via chordal.Decomposition.OriginalRows) and its single PSD cone
// with one smaller PSD cone per clique of its (optionally merged)
// clique tree. PSDTriangle members and PSD members with no registered
// pattern pass through unchanged save for a row-offset shift (cone.Shift).
// p and q are returned unchanged: decomposition only ever grows m, the
// row/slack dimension, never n.
func decomposeProblem(p *sparsemat.CSC, q []float64, a *sparsemat.CSC, b []float64, composite *cone.Composite, merge chordal.MergeStrategy, patterns map[int]*chordal.SuperNodeTree) (*sparsemat.CSC, []float64, *sparsemat.CSC, []float64, []cone.Cone, *decompositionPlan, error) {
	members := composite.Members()

	type seg struct {
		origIdx            int
		c                  cone.Cone
		origStart, origLen int
	}
	segs := make([]seg, len(members))
	for i, m := range members {
		start, length := m.Range()
		segs[i] = seg{origIdx: i, c: m, origStart: start, origLen: length}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].origStart < segs[j].origStart })

	plan := &decompositionPlan{m: len(b), rowMap: make([][]int, len(b))}
	var newCones []cone.Cone
	cursor := 0

	for _, s := range segs {
		pattern, ok := patterns[s.origIdx]
		if !ok || s.c.Kind() != cone.PSD {
			for i := 0; i < s.origLen; i++ {
				plan.rowMap[s.origStart+i] = []int{cursor + i}
			}
			newCones = append(newCones, cone.Shift(s.c, cursor-s.origStart))
			cursor += s.origLen
			continue
		}

		n := int(math.Round(math.Sqrt(float64(s.origLen))))
		if n*n != s.origLen {
			return nil, nil, nil, nil, nil, nil, ErrBadPSDPattern
		}

		eff := merge
		if eff == nil {
			eff = chordal.NoMerge{}
		}
		tree, err := eff.Merge(pattern)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}

		dec, err := chordal.Decompose(tree, n)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}

		for _, c := range dec.Cones {
			newCones = append(newCones, cone.Shift(c, cursor))
		}

		for localPos, origRow := range dec.OriginalRows() {
			globalOrig := s.origStart + origRow
			plan.rowMap[globalOrig] = append(plan.rowMap[globalOrig], cursor+localPos)
		}
		plan.blocks = append(plan.blocks, decomposedBlock{originalStart: s.origStart, newStart: cursor, dec: dec})

		cursor += dec.TotalDim
	}

	newM := cursor
	newB := make([]float64, newM)
	for oldRow, news := range plan.rowMap {
		for _, nr := range news {
			newB[nr] = b[oldRow]
		}
	}

	builder, err := sparsemat.NewBuilder(newM, a.Cols)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	for j := 0; j < a.Cols; j++ {
		a.Col(j, func(row int, val float64) {
			for _, nr := range plan.rowMap[row] {
				_ = builder.Add(nr, j, val)
			}
		})
	}
	newA := builder.Build()

	return p, q, newA, newB, newCones, plan, nil
}

// collapse folds a decomposed admm.Result's (s, mu, nu) back into the
// original row coordinates: rows that were never decomposed copy their
// single mapped row directly; rows inside a decomposed PSD block are
// recombined via the block's Decomposition (CollapsePrimal for the
// primal slack and the KKT multiplier nu, CompleteDual for the cone
// dual mu, per spec's PSD-completion step).
func (p *decompositionPlan) collapse(r admm.Result) admm.Result {
	out := r
	out.S = make([]float64, p.m)
	out.Mu = make([]float64, p.m)
	out.Nu = make([]float64, p.m)

	for oldRow, news := range p.rowMap {
		if len(news) == 1 {
			out.S[oldRow] = r.S[news[0]]
			out.Mu[oldRow] = r.Mu[news[0]]
			out.Nu[oldRow] = r.Nu[news[0]]
		}
	}

	for _, blk := range p.blocks {
		n := blk.dec.N
		decS := r.S[blk.newStart : blk.newStart+blk.dec.TotalDim]
		decMu := r.Mu[blk.newStart : blk.newStart+blk.dec.TotalDim]
		decNu := r.Nu[blk.newStart : blk.newStart+blk.dec.TotalDim]

		collapsedS := blk.dec.CollapsePrimal(decS)
		collapsedNu := blk.dec.CollapsePrimal(decNu)
		completedMu := blk.dec.CompleteDual(decMu)

		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				idx := blk.originalStart + i*n + j
				out.S[idx] = collapsedS[i*n+j]
				out.Nu[idx] = collapsedNu[i*n+j]
				out.Mu[idx] = completedMu[i*n+j]
			}
		}
	}

	return out
}
