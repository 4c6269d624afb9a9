package distla

import (
	"fmt"
	"math"

	"github.com/romcore/isvd/procgroup"
)

// LocalMatvec computes the local contribution to U^T * x: for each column j
// of the row-partitioned matrix u (d local rows, r columns), the dot product
// of that column with the local rows of x. No communication happens here;
// the caller all-reduces the result (§4.1 local_matvec).
func LocalMatvec(u *Dense, x []float64) ([]float64, error) {
	if u.rows != len(x) {
		return nil, fmt.Errorf("distla: local row count %d does not match vector length %d", u.rows, len(x))
	}
	out := make([]float64, u.cols)
	for j := 0; j < u.cols; j++ {
		var dot float64
		for i := 0; i < u.rows; i++ {
			dot += u.At(i, j) * x[i]
		}
		out[j] = dot
	}
	return out, nil
}

// Matvec computes the fully-replicated U^T * x for a row-partitioned U,
// combining LocalMatvec with a collective all-reduce sum (§4.1).
func Matvec(g procgroup.Group, u *Dense, x []float64) ([]float64, error) {
	local, err := LocalMatvec(u, x)
	if err != nil {
		return nil, err
	}
	return g.AllReduceSum(local)
}

// InnerProduct computes the collective inner product of two local vectors,
// all-reducing the local dot product (§4.1 inner_product).
func InnerProduct(g procgroup.Group, x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("distla: inner product length mismatch %d vs %d", len(x), len(y))
	}
	local := make([]float64, 1)
	for i := range x {
		local[0] += x[i] * y[i]
	}
	summed, err := g.AllReduceSum(local)
	if err != nil {
		return 0, err
	}
	return summed[0], nil
}

// Norm computes the collective Euclidean norm of a row-partitioned vector.
func Norm(g procgroup.Group, x []float64) (float64, error) {
	sq, err := InnerProduct(g, x, x)
	if err != nil {
		return 0, err
	}
	if sq < 0 {
		sq = 0
	}
	return math.Sqrt(sq), nil
}

// AxpbyLocal computes alpha*x + beta*y element-wise, entirely locally
// (§4.1 axpby_local): no process needs another's data to combine its own
// local rows.
func AxpbyLocal(alpha float64, x []float64, beta float64, y []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("distla: axpby length mismatch %d vs %d", len(x), len(y))
	}
	out := make([]float64, len(x))
	for i := range x {
		out[i] = alpha*x[i] + beta*y[i]
	}
	return out, nil
}

// MatvecCombine computes u_local * coeffs, i.e. the local contribution of a
// row-partitioned matrix times a fully-replicated coefficient vector. This
// is local-only: the result is itself row-partitioned (one slice of rows
// per process), used to form (U*L)*ell and similar projections.
func MatvecCombine(u *Dense, coeffs []float64) ([]float64, error) {
	if u.cols != len(coeffs) {
		return nil, fmt.Errorf("distla: column count %d does not match coefficient length %d", u.cols, len(coeffs))
	}
	out := make([]float64, u.rows)
	for i := 0; i < u.rows; i++ {
		var s float64
		for j := 0; j < u.cols; j++ {
			s += u.At(i, j) * coeffs[j]
		}
		out[i] = s
	}
	return out, nil
}
