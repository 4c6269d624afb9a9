// Package distla provides the minimum vocabulary of dense linear algebra
// used by the incremental SVD kernel: row-partitioned vectors and small
// fully-replicated matrices, plus a deterministic dense SVD kernel for
// the small matrices.
package distla

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Dense is a small, fully-replicated dense matrix. It backs Sigma, V and
// L in the incremental SVD kernel, which are always at most (r+1)x(r+1)
// or n x r and are computed identically on every process rather than
// distributed.
type Dense struct {
	rows, cols int
	data       []float64 // row-major, length rows*cols
}

// NewDense creates a dense matrix from row-major data. It panics if len(data)
// does not match rows*cols, mirroring the teacher's "programmer error aborts"
// treatment of dimension mismatches (§7 Preconditions).
func NewDense(rows, cols int, data []float64) *Dense {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("distla: invalid shape %dx%d", rows, cols))
	}
	if data == nil {
		data = make([]float64, rows*cols)
	}
	if len(data) != rows*cols {
		panic(fmt.Sprintf("distla: data length %d does not match shape %dx%d", len(data), rows, cols))
	}
	return &Dense{rows: rows, cols: cols, data: data}
}

// Zeros creates a rows x cols matrix of zeros.
func Zeros(rows, cols int) *Dense {
	return NewDense(rows, cols, nil)
}

// Identity creates an n x n identity matrix.
func Identity(n int) *Dense {
	m := Zeros(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Rows returns the number of rows.
func (m *Dense) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Dense) Cols() int { return m.cols }

// At returns the element at (i, j).
func (m *Dense) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// Set assigns the element at (i, j).
func (m *Dense) Set(i, j int, v float64) {
	m.data[i*m.cols+j] = v
}

// ToSlice returns the matrix as a slice of rows, each a fresh copy.
func (m *Dense) ToSlice() [][]float64 {
	out := make([][]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		row := make([]float64, m.cols)
		copy(row, m.data[i*m.cols:(i+1)*m.cols])
		out[i] = row
	}
	return out
}

// Clone returns a deep copy.
func (m *Dense) Clone() *Dense {
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return &Dense{rows: m.rows, cols: m.cols, data: data}
}

// Column returns a copy of column j.
func (m *Dense) Column(j int) []float64 {
	out := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = m.At(i, j)
	}
	return out
}

// SetColumn overwrites column j in place.
func (m *Dense) SetColumn(j int, col []float64) {
	for i := 0; i < m.rows; i++ {
		m.Set(i, j, col[i])
	}
}

// AppendColumn returns a new matrix with col appended as the last column.
func (m *Dense) AppendColumn(col []float64) *Dense {
	out := Zeros(m.rows, m.cols+1)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.Set(i, j, m.At(i, j))
		}
		out.Set(i, m.cols, col[i])
	}
	return out
}

// FirstCols returns a new matrix containing only the first n columns.
func (m *Dense) FirstCols(n int) *Dense {
	out := Zeros(m.rows, n)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out
}

// TopLeft returns the leading n x n block.
func (m *Dense) TopLeft(n int) *Dense {
	out := Zeros(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out
}

// Transpose returns a new matrix that is the transpose of m.
func (m *Dense) Transpose() *Dense {
	out := Zeros(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.Set(j, i, m.At(i, j))
		}
	}
	return out
}

// Multiply performs matrix multiplication: this * other, via gonum's mat.Dense
// to keep the small-matrix kernel on a single well-tested BLAS-backed path
// (gonum.org/v1/gonum/mat) rather than a hand-rolled triple loop.
func (m *Dense) Multiply(other *Dense) (*Dense, error) {
	if m.cols != other.rows {
		return nil, fmt.Errorf("matrix dimensions do not match for multiplication: %dx%d * %dx%d",
			m.rows, m.cols, other.rows, other.cols)
	}
	a := mat.NewDense(m.rows, m.cols, m.data)
	b := mat.NewDense(other.rows, other.cols, other.data)
	var c mat.Dense
	c.Mul(a, b)
	return NewDense(m.rows, other.cols, flatten(&c)), nil
}

// Add performs matrix addition: this + other.
func (m *Dense) Add(other *Dense) (*Dense, error) {
	if m.rows != other.rows || m.cols != other.cols {
		return nil, fmt.Errorf("matrix dimensions do not match for addition: %dx%d + %dx%d",
			m.rows, m.cols, other.rows, other.cols)
	}
	out := Zeros(m.rows, m.cols)
	for i := range m.data {
		out.data[i] = m.data[i] + other.data[i]
	}
	return out, nil
}

// IsSymmetric checks if the matrix is symmetric to within a fixed tolerance.
func (m *Dense) IsSymmetric() bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := i + 1; j < m.cols; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > 1e-10 {
				return false
			}
		}
	}
	return true
}

// BlockDiag2 builds the block-diagonal matrix [[a, 0], [0, b]] used to extend
// the fast-update variant's L to [[L, 0], [0, 1]] when a new increment is
// absorbed (§4.2 step 6).
func BlockDiag2(a *Dense, b float64) *Dense {
	n := a.rows
	out := Zeros(n+1, n+1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, a.At(i, j))
		}
	}
	out.Set(n, n, b)
	return out
}

// AppendRowOfZerosAndColumn appends a zero row and a new column to V when the
// rank grows by one: V' = [[V, 0]; [0, 1]]. The new last column is zero
// except for the final (new) row, which is fixed at 1.
func AppendRowOfZerosAndColumn(v *Dense) *Dense {
	out := Zeros(v.rows+1, v.cols+1)
	for i := 0; i < v.rows; i++ {
		for j := 0; j < v.cols; j++ {
			out.Set(i, j, v.At(i, j))
		}
	}
	out.Set(v.rows, v.cols, 1)
	return out
}

func flatten(d *mat.Dense) []float64 {
	r, c := d.Dims()
	out := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i*c+j] = d.At(i, j)
		}
	}
	return out
}
