package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FromRows copies a row-major slice of equal-width rows into a dense matrix.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrShapeMismatch)
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: zero-width rows", ErrShapeMismatch)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrShapeMismatch, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// ToRows copies a matrix into freshly allocated rows.
func ToRows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = mat.Row(make([]float64, c), i, m)
	}
	return out
}

// gather builds a matrix from the rows of src listed in idx.
func gather(src *mat.Dense, idx []int) *mat.Dense {
	_, c := src.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, k := range idx {
		out.SetRow(i, src.RawRowView(k))
	}
	return out
}

// addColSums adds the column sums of m to dst.
func addColSums(dst []float64, m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			dst[j] += v
		}
	}
}
