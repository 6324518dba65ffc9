package sparsemat

import "math"

// MulVec computes y = A*x for an m x n CSC matrix and x of length n,
// writing into y (length m, must be pre-sized by the caller). O(nnz).
func (m *CSC) MulVec(x, y []float64) {
	for i := range y {
		y[i] = 0
	}
	for j := 0; j < m.Cols; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			y[m.RowIdx[k]] += m.Data[k] * xj
		}
	}
}

// MulTransVec computes y = A^T*x for an m x n CSC matrix and x of length
// m, writing into y (length n). O(nnz).
func (m *CSC) MulTransVec(x, y []float64) {
	for j := 0; j < m.Cols; j++ {
		var sum float64
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			sum += m.Data[k] * x[m.RowIdx[k]]
		}
		y[j] = sum
	}
}

// ScaleRowsCols returns a new CSC equal to diag(rowScale) * A *
// diag(colScale), leaving m untouched.
func (m *CSC) ScaleRowsCols(rowScale, colScale []float64) *CSC {
	out := m.Clone()
	out.ScaleRowsColsInPlace(rowScale, colScale)
	return out
}

// ScaleRowsColsInPlace overwrites m with diag(rowScale) * m *
// diag(colScale). Scaling never changes the sparsity pattern, so this
// only rewrites Data.
func (m *CSC) ScaleRowsColsInPlace(rowScale, colScale []float64) {
	for j := 0; j < m.Cols; j++ {
		cs := colScale[j]
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			m.Data[k] *= cs * rowScale[m.RowIdx[k]]
		}
	}
}

// ColInfNorms returns, for each column, the max absolute value among its
// stored entries (0 for an empty column).
func (m *CSC) ColInfNorms() []float64 {
	out := make([]float64, m.Cols)
	for j := 0; j < m.Cols; j++ {
		var mx float64
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			if a := math.Abs(m.Data[k]); a > mx {
				mx = a
			}
		}
		out[j] = mx
	}
	return out
}

// RowInfNorms returns, for each row, the max absolute value among its
// stored entries across all columns.
func (m *CSC) RowInfNorms() []float64 {
	out := make([]float64, m.Rows)
	for j := 0; j < m.Cols; j++ {
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			if a := math.Abs(m.Data[k]); a > out[m.RowIdx[k]] {
				out[m.RowIdx[k]] = a
			}
		}
	}
	return out
}

// Clone returns a deep copy.
func (m *CSC) Clone() *CSC {
	colPtr := make([]int, len(m.ColPtr))
	copy(colPtr, m.ColPtr)
	rowIdx := make([]int, len(m.RowIdx))
	copy(rowIdx, m.RowIdx)
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	return &CSC{Rows: m.Rows, Cols: m.Cols, ColPtr: colPtr, RowIdx: rowIdx, Data: data}
}

// Dense materializes the matrix into a row-major flat slice, for use by
// the dense KKT backend and by tests. O(rows*cols).
func (m *CSC) Dense() []float64 {
	out := make([]float64, m.Rows*m.Cols)
	for j := 0; j < m.Cols; j++ {
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			out[m.RowIdx[k]*m.Cols+j] = m.Data[k]
		}
	}
	return out
}
