package distla

import (
	"fmt"
	"math"

	"github.com/romcore/isvd/procgroup"
)

// ReorthogonalizeResult is the outcome of a full modified Gram-Schmidt pass
// over a row-partitioned basis.
type ReorthogonalizeResult struct {
	ULocal *Dense // the re-orthonormalized local rows of U
	R      *Dense // the replicated upper-triangular correction factor
}

// ModifiedGramSchmidt performs one full collective modified Gram-Schmidt
// pass over the row-partitioned columns of uLocal, adapted from the
// teacher's sparsem QR (qr.go): the same column-by-column normalize-then-
// project loop, except every norm and every dot product is now a collective
// reduction over the process group rather than a local sum, because the
// columns being orthogonalized are split across processes (§4.2.1).
//
// It returns the corrected local columns and the replicated r x r upper
// triangular factor R such that U_old = U_new * R, so callers can fold R
// into Sigma and V (ReconcileAfterReorthogonalization does this).
func ModifiedGramSchmidt(g procgroup.Group, uLocal *Dense) (*ReorthogonalizeResult, error) {
	n := uLocal.rows
	p := uLocal.cols
	q := uLocal.Clone()
	r := Zeros(p, p)

	for j := 0; j < p; j++ {
		col := q.Column(j)
		norm, err := Norm(g, col)
		if err != nil {
			return nil, err
		}
		if norm < 1e-12 {
			return nil, fmt.Errorf("distla: column %d is numerically zero during re-orthogonalization", j)
		}
		r.Set(j, j, norm)
		invNorm := 1.0 / norm
		for i := 0; i < n; i++ {
			col[i] *= invNorm
		}
		q.SetColumn(j, col)

		for k := j + 1; k < p; k++ {
			other := q.Column(k)
			dot, err := InnerProduct(g, col, other)
			if err != nil {
				return nil, err
			}
			r.Set(j, k, dot)
			for i := 0; i < n; i++ {
				other[i] -= dot * col[i]
			}
			q.SetColumn(k, other)
		}
	}

	return &ReorthogonalizeResult{ULocal: q, R: r}, nil
}

// ReconcileAfterReorthogonalization folds the correction factor R from a
// ModifiedGramSchmidt pass into Sigma and V, then re-diagonalizes via a
// small SVD so Sigma stays diagonal and non-increasing (I2): R*Sigma is
// decomposed as A*Sigma'*B^T, the local basis is rotated by A, and V is
// rotated by B.
func ReconcileAfterReorthogonalization(uLocal, r, sigma, v *Dense) (newU, newSigma, newV *Dense, err error) {
	rSigma, err := r.Multiply(sigma)
	if err != nil {
		return nil, nil, nil, err
	}
	svd, err := SmallSVD(rSigma)
	if err != nil {
		return nil, nil, nil, err
	}
	newU, err = uLocal.Multiply(svd.A)
	if err != nil {
		return nil, nil, nil, err
	}
	if v != nil {
		newV, err = v.Multiply(svd.B)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	newSigma = DiagFromValues(svd.Sigma)
	return newU, newSigma, newV, nil
}

// DiagFromValues builds a diagonal matrix from a slice of values.
func DiagFromValues(values []float64) *Dense {
	n := len(values)
	d := Zeros(n, n)
	for i, v := range values {
		d.Set(i, i, v)
	}
	return d
}

// OrthogonalityDeviation estimates ||U^T*U - I||_inf for a row-partitioned
// basis, the cheap check that decides whether a re-orthogonalization pass
// is due (§9 "check every r accepted new increments, re-orthogonalize if
// deviation > sqrt(machine_epsilon)").
func OrthogonalityDeviation(g procgroup.Group, uLocal *Dense) (float64, error) {
	p := uLocal.cols
	maxDeviation := 0.0
	for i := 0; i < p; i++ {
		ci := uLocal.Column(i)
		for j := 0; j < p; j++ {
			cj := uLocal.Column(j)
			dot, err := InnerProduct(g, ci, cj)
			if err != nil {
				return 0, err
			}
			expected := 0.0
			if i == j {
				expected = 1.0
			}
			if d := math.Abs(dot - expected); d > maxDeviation {
				maxDeviation = d
			}
		}
	}
	return maxDeviation, nil
}
