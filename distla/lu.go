package distla

import (
	"fmt"
	"math"

	"github.com/romcore/isvd/procgroup"
)

// LUDecomposition is an LU factorization with partial pivoting of a small
// replicated square matrix, adapted from the teacher's sparsem.LUDecomposition.
// It backs the general (possibly non-symmetric, non-orthogonal) linear
// solve used when projecting onto an externally supplied, not necessarily
// orthonormal, set of vectors (§4.5's "for DMD-style consumers" hook).
type LUDecomposition struct {
	L *Dense
	U *Dense
	P []int
}

// LU performs LU decomposition with partial pivoting: P*A = L*U.
func LU(m *Dense) (*LUDecomposition, error) {
	n := m.rows
	if n != m.cols {
		return nil, fmt.Errorf("distla: matrix must be square for LU decomposition")
	}

	u := m.Clone()
	l := Identity(n)
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}

	for k := 0; k < n-1; k++ {
		pivot := k
		maxVal := math.Abs(u.At(k, k))
		for i := k + 1; i < n; i++ {
			if v := math.Abs(u.At(i, k)); v > maxVal {
				maxVal = v
				pivot = i
			}
		}
		if maxVal < 1e-12 {
			return nil, fmt.Errorf("distla: matrix is singular or nearly singular")
		}
		if pivot != k {
			swapRows(u, k, pivot)
			for j := 0; j < k; j++ {
				lk, lp := l.At(k, j), l.At(pivot, j)
				l.Set(k, j, lp)
				l.Set(pivot, j, lk)
			}
			p[k], p[pivot] = p[pivot], p[k]
		}

		pivotVal := u.At(k, k)
		for i := k + 1; i < n; i++ {
			factor := u.At(i, k) / pivotVal
			l.Set(i, k, factor)
			for j := k; j < n; j++ {
				u.Set(i, j, u.At(i, j)-factor*u.At(k, j))
			}
			u.Set(i, k, 0)
		}
	}

	if math.Abs(u.At(n-1, n-1)) < 1e-12 {
		return nil, fmt.Errorf("distla: matrix is singular or nearly singular")
	}

	return &LUDecomposition{L: l, U: u, P: p}, nil
}

func swapRows(m *Dense, a, b int) {
	for j := 0; j < m.cols; j++ {
		va, vb := m.At(a, j), m.At(b, j)
		m.Set(a, j, vb)
		m.Set(b, j, va)
	}
}

// Solve solves Ax = b using the LU factorization: first Ly = Pb, then Ux = y.
func (lu *LUDecomposition) Solve(b []float64) ([]float64, error) {
	n := lu.L.rows
	if len(b) != n {
		return nil, fmt.Errorf("distla: dimension mismatch: matrix is %dx%d but b has length %d", n, n, len(b))
	}

	pb := make([]float64, n)
	for i := 0; i < n; i++ {
		pb[i] = b[lu.P[i]]
	}

	y := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := pb[i]
		for j := 0; j < i; j++ {
			sum -= lu.L.At(i, j) * y[j]
		}
		y[i] = sum
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for j := i + 1; j < n; j++ {
			sum -= lu.U.At(i, j) * x[j]
		}
		if math.Abs(lu.U.At(i, i)) < 1e-12 {
			return nil, fmt.Errorf("distla: matrix is singular")
		}
		x[i] = sum / lu.U.At(i, i)
	}

	return x, nil
}

// SolveLeastSquares solves the small normal-equations system (A^T*A) x =
// A^T*b for the best-fit coefficients of b against the columns of A, falling
// back to LU when A^T*A is not safely positive definite (e.g. near-parallel
// columns), and to Cholesky otherwise since it is roughly twice as cheap on
// the common well-conditioned case.
func SolveLeastSquares(a *Dense, b []float64) ([]float64, error) {
	if a.rows != len(b) {
		return nil, fmt.Errorf("distla: row count %d does not match target length %d", a.rows, len(b))
	}
	at := a.Transpose()
	gram, err := at.Multiply(a)
	if err != nil {
		return nil, err
	}
	rhs, err := LocalMatvec(a, b)
	if err != nil {
		return nil, err
	}

	return solveSmallSystem(gram, rhs)
}

// solveSmallSystem solves the already-replicated normal-equations system
// gram*x = rhs, trying Cholesky first and falling back to LU, shared by
// SolveLeastSquares and ProjectOntoBasis.
func solveSmallSystem(gram *Dense, rhs []float64) ([]float64, error) {
	if chol, err := Cholesky(gram); err == nil {
		return chol.Solve(rhs)
	}
	lu, err := LU(gram)
	if err != nil {
		return nil, fmt.Errorf("distla: least-squares system is singular: %w", err)
	}
	return lu.Solve(rhs)
}

// ProjectOntoBasis computes the least-squares coefficients of a
// row-partitioned target vector against a row-partitioned, not necessarily
// orthonormal, set of basis columns (§4.5's DMD-style non-orthogonal
// projection hook): it solves the normal equations (basis^T*basis) x =
// basis^T*target, accumulating both the Gram matrix and the right-hand side
// via collective all-reduce since both basis and target are distributed
// across processes.
func ProjectOntoBasis(g procgroup.Group, basisLocal *Dense, targetLocal []float64) ([]float64, error) {
	if basisLocal.rows != len(targetLocal) {
		return nil, fmt.Errorf("distla: local row count %d does not match target length %d", basisLocal.rows, len(targetLocal))
	}
	localGram, err := basisLocal.Transpose().Multiply(basisLocal)
	if err != nil {
		return nil, err
	}
	summedGram, err := g.AllReduceSum(localGram.data)
	if err != nil {
		return nil, err
	}
	gram := NewDense(localGram.rows, localGram.cols, summedGram)

	rhs, err := Matvec(g, basisLocal, targetLocal)
	if err != nil {
		return nil, err
	}

	return solveSmallSystem(gram, rhs)
}
