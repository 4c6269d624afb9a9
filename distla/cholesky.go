package distla

import (
	"fmt"
	"math"
)

// CholeskyDecomposition is the Cholesky factorization G = L * L^T of a
// small, symmetric positive-definite replicated matrix, adapted from the
// teacher's sparsem.CholeskyDecomposition. It is the fast path for solving
// the normal equations in DMD-style non-orthogonal projection (§4.5, see
// ProjectOntoBasis, which rom.Evaluator.ProjectOntoBasis calls), and it
// backs IsOrthonormalGram. The incremental SVD kernels check orthogonality
// with OrthogonalityDeviation instead.
type CholeskyDecomposition struct {
	L *Dense
}

// Cholesky factors a symmetric positive-definite matrix. It returns an
// error (rather than panicking) when the matrix is not symmetric or the
// factorization encounters a non-positive pivot, matching the teacher's
// "succeeds or returns a descriptive error" contract.
func Cholesky(m *Dense) (*CholeskyDecomposition, error) {
	if !m.IsSymmetric() {
		return nil, fmt.Errorf("distla: matrix must be symmetric for Cholesky decomposition")
	}

	n := m.rows
	l := Zeros(n, n)

	for j := 0; j < n; j++ {
		sum := 0.0
		for k := 0; k < j; k++ {
			sum += l.At(j, k) * l.At(j, k)
		}
		diag := m.At(j, j) - sum
		if diag <= 0 {
			return nil, fmt.Errorf("distla: matrix is not positive definite")
		}
		l.Set(j, j, math.Sqrt(diag))

		for i := j + 1; i < n; i++ {
			sum := 0.0
			for k := 0; k < j; k++ {
				sum += l.At(i, k) * l.At(j, k)
			}
			l.Set(i, j, (m.At(i, j)-sum)/l.At(j, j))
		}
	}

	return &CholeskyDecomposition{L: l}, nil
}

// Solve solves the system Gx = b where G is the original symmetric
// positive-definite matrix, via forward/backward substitution against L.
func (c *CholeskyDecomposition) Solve(b []float64) ([]float64, error) {
	n := c.L.rows
	if len(b) != n {
		return nil, fmt.Errorf("distla: dimension mismatch: matrix is %dx%d but b has length %d", n, n, len(b))
	}

	y := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= c.L.At(i, j) * y[j]
		}
		y[i] = sum / c.L.At(i, i)
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for j := i + 1; j < n; j++ {
			sum -= c.L.At(j, i) * x[j]
		}
		x[i] = sum / c.L.At(i, i)
	}

	return x, nil
}

// IsOrthonormalGram reports whether the Gram matrix g = X^T*X of a set of
// columns is within tol of the identity, using the fact that a symmetric
// matrix is "close to I" iff its Cholesky diagonal entries are all close
// to 1 and its Cholesky factorization exists (I3: "numerically orthonormal
// to within a user-specified tolerance tau_orth").
func IsOrthonormalGram(g *Dense, tol float64) bool {
	chol, err := Cholesky(g)
	if err != nil {
		return false
	}
	n := chol.L.rows
	for i := 0; i < n; i++ {
		if math.Abs(chol.L.At(i, i)-1) > tol {
			return false
		}
		for j := 0; j < i; j++ {
			if math.Abs(chol.L.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}
