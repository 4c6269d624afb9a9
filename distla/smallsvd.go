package distla

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SmallSVDResult holds the dense SVD of a small replicated matrix:
// M = A * diag(Sigma) * B^T.
type SmallSVDResult struct {
	A     *Dense
	Sigma []float64
	B     *Dense
}

// SmallSVD computes the dense SVD of a small, fully-replicated matrix (at
// most (r+1)x(r+1) in the incremental SVD kernel). It is executed
// identically on every process from identical input (§5): gonum's SVD
// factorization is a deterministic, sequential algorithm over its inputs,
// so running it redundantly on every rank yields bit-identical results
// without needing a broadcast, satisfying I3/I5.
func SmallSVD(m *Dense) (*SmallSVDResult, error) {
	a := mat.NewDense(m.rows, m.cols, append([]float64(nil), m.data...))

	var svd mat.SVD
	ok := svd.Factorize(a, mat.SVDFull)
	if !ok {
		return nil, fmt.Errorf("distla: SVD factorization failed to converge for a %dx%d matrix", m.rows, m.cols)
	}

	sigma := svd.Values(nil)

	var uMat, vMat mat.Dense
	svd.UTo(&uMat)
	svd.VTo(&vMat)

	ur, uc := uMat.Dims()
	vr, vc := vMat.Dims()

	return &SmallSVDResult{
		A:     NewDense(ur, uc, flatten(&uMat)),
		Sigma: sigma,
		B:     NewDense(vr, vc, flatten(&vMat)),
	}, nil
}

// SmallMatmul multiplies two small fully-replicated matrices. It is a thin
// alias over Dense.Multiply kept distinct so callers reading the kernel code
// can see which multiplies are "replicated on replicated operands" per §4.1,
// as opposed to the row-partitioned matvecs in vector.go.
func SmallMatmul(x, y *Dense) (*Dense, error) {
	return x.Multiply(y)
}
