// Package sparsemat provides the minimal compressed-sparse-column matrix
// and dense-vector primitives the solver's core packages consume. It is
// deliberately small: algebra here exists only to carry (P, A, q, b)
// through the solve, not to compete with a general-purpose linear algebra
// library.
package sparsemat

import "fmt"

// Sentinel errors for sparsemat operations.
var (
	// ErrInvalidDimensions indicates a non-positive row or column count.
	ErrInvalidDimensions = fmt.Errorf("sparsemat: invalid dimensions")

	// ErrDimensionMismatch indicates two operands have incompatible shapes.
	ErrDimensionMismatch = fmt.Errorf("sparsemat: dimension mismatch")

	// ErrIndexOutOfRange indicates a row/column index outside [0, n).
	ErrIndexOutOfRange = fmt.Errorf("sparsemat: index out of range")

	// ErrUnsortedEntries indicates column-major entries were not supplied
	// in ascending row order within a column, which NewCSC requires.
	ErrUnsortedEntries = fmt.Errorf("sparsemat: entries not sorted within column")
)

// CSC is a compressed-sparse-column matrix: ColPtr has length Cols+1;
// RowIdx and Data have length ColPtr[Cols] (the number of stored entries).
// Entries within a column are stored in strictly ascending row order.
type CSC struct {
	Rows, Cols int
	ColPtr     []int
	RowIdx     []int
	Data       []float64
}

// NewCSC validates and wraps pre-built CSC arrays. Callers that assemble
// a matrix incrementally should use NewBuilder instead.
func NewCSC(rows, cols int, colPtr []int, rowIdx []int, data []float64) (*CSC, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidDimensions
	}
	if len(colPtr) != cols+1 {
		return nil, ErrDimensionMismatch
	}
	if len(rowIdx) != len(data) || len(rowIdx) != colPtr[cols] {
		return nil, ErrDimensionMismatch
	}
	for j := 0; j < cols; j++ {
		last := -1
		for k := colPtr[j]; k < colPtr[j+1]; k++ {
			if rowIdx[k] <= last || rowIdx[k] >= rows {
				if rowIdx[k] >= rows || rowIdx[k] < 0 {
					return nil, ErrIndexOutOfRange
				}
				return nil, ErrUnsortedEntries
			}
			last = rowIdx[k]
		}
	}
	return &CSC{Rows: rows, Cols: cols, ColPtr: colPtr, RowIdx: rowIdx, Data: data}, nil
}

// Shape returns (Rows, Cols), satisfying kkt.SparseView.
func (m *CSC) Shape() (int, int) { return m.Rows, m.Cols }

// NNZ returns the number of stored entries.
func (m *CSC) NNZ() int {
	if m == nil {
		return 0
	}
	return len(m.Data)
}

// Col invokes fn(row, value) for every stored entry in column j, in
// ascending row order. O(nnz(col j)).
func (m *CSC) Col(j int, fn func(row int, val float64)) {
	for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
		fn(m.RowIdx[k], m.Data[k])
	}
}

// Builder accumulates (row, col, val) triplets into per-column lists and
// produces a *CSC. Add accepts entries in any order; Build sorts each
// column's entries by row before freezing.
type Builder struct {
	rows, cols int
	cols_      [][]entry
}

type entry struct {
	row int
	val float64
}

// NewBuilder allocates a Builder for an rows x cols matrix.
func NewBuilder(rows, cols int) (*Builder, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidDimensions
	}
	return &Builder{rows: rows, cols: cols, cols_: make([][]entry, cols)}, nil
}

// Add records a nonzero at (row, col). Duplicate (row, col) pairs are
// summed at Build time, matching the usual sparse-assembly convention.
func (b *Builder) Add(row, col int, val float64) error {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return ErrIndexOutOfRange
	}
	b.cols_[col] = append(b.cols_[col], entry{row: row, val: val})
	return nil
}

// Build freezes the builder into a *CSC, sorting and de-duplicating
// entries within each column (insertion sort: columns are short for the
// block-structured matrices this solver assembles).
func (b *Builder) Build() *CSC {
	colPtr := make([]int, b.cols+1)
	var rowIdx []int
	var data []float64
	for j := 0; j < b.cols; j++ {
		es := b.cols_[j]
		// Insertion sort by row; stable, fine for the short columns here.
		for i := 1; i < len(es); i++ {
			cur := es[i]
			k := i - 1
			for k >= 0 && es[k].row > cur.row {
				es[k+1] = es[k]
				k--
			}
			es[k+1] = cur
		}
		// Merge duplicate rows by summation.
		for i := 0; i < len(es); {
			row := es[i].row
			sum := es[i].val
			i++
			for i < len(es) && es[i].row == row {
				sum += es[i].val
				i++
			}
			rowIdx = append(rowIdx, row)
			data = append(data, sum)
		}
		colPtr[j+1] = len(rowIdx)
	}
	return &CSC{Rows: b.rows, Cols: b.cols, ColPtr: colPtr, RowIdx: rowIdx, Data: data}
}
