package rom

import (
	"math"
	"math/rand"
	"testing"

	"github.com/romcore/isvd/distla"
	"github.com/romcore/isvd/svd"
)

func TestEvaluatorRequiresTemporalBasis(t *testing.T) {
	gen, err := NewGenerator(GeneratorConfig{
		Kernel: svd.Config{
			Dim:                      3,
			Epsilon:                  1e-12,
			MaxIncrementsPerInterval: 10,
			Variant:                  svd.Naive,
			UpdateRightSV:            false,
		},
	})
	if err != nil {
		t.Fatalf("NewGenerator() unexpected error = %v", err)
	}
	if err := gen.TakeSample([]float64{1, 0, 0}, 0); err != nil {
		t.Fatalf("TakeSample() unexpected error = %v", err)
	}
	eval := NewEvaluator(gen)
	if _, err := eval.Evaluate(0); err == nil {
		t.Error("Evaluate() expected error when temporal basis is not retained")
	}
}

func TestEvaluatorNearestTimeLookup(t *testing.T) {
	gen := newTestGenerator(t, 2, 10, false)
	samples := map[float64][]float64{
		0: {1, 0},
		5: {0, 1},
	}
	for _, tm := range []float64{0, 5} {
		if err := gen.TakeSample(samples[tm], tm); err != nil {
			t.Fatalf("TakeSample(%v) unexpected error = %v", tm, err)
		}
	}
	eval := NewEvaluator(gen)

	near0, err := eval.Evaluate(0.4)
	if err != nil {
		t.Fatalf("Evaluate(0.4) unexpected error = %v", err)
	}
	near5, err := eval.Evaluate(4.9)
	if err != nil {
		t.Fatalf("Evaluate(4.9) unexpected error = %v", err)
	}
	if near0.Rows() != 2 || near0.Cols() != 1 {
		t.Fatalf("Evaluate() shape = %dx%d, want 2x1", near0.Rows(), near0.Cols())
	}
	// Evaluate(0.4) should reconstruct close to the t=0 sample and
	// Evaluate(4.9) close to the t=5 sample.
	if math.Abs(math.Abs(near0.At(0, 0))-1) > 1e-6 || math.Abs(near0.At(1, 0)) > 1e-6 {
		t.Errorf("Evaluate(0.4) = %v, want ~[+-1, 0]", near0.ToSlice())
	}
	if math.Abs(near5.At(0, 0)) > 1e-6 || math.Abs(math.Abs(near5.At(1, 0))-1) > 1e-6 {
		t.Errorf("Evaluate(4.9) = %v, want ~[0, +-1]", near5.ToSlice())
	}
}

func TestEvaluatorCacheInvalidatedByNewSample(t *testing.T) {
	gen := newTestGenerator(t, 2, 10, false)
	if err := gen.TakeSample([]float64{1, 0}, 0); err != nil {
		t.Fatalf("TakeSample() unexpected error = %v", err)
	}
	eval := NewEvaluator(gen)
	first, err := eval.Evaluate(0)
	if err != nil {
		t.Fatalf("Evaluate() unexpected error = %v", err)
	}
	if err := gen.TakeSample([]float64{0, 1}, 1); err != nil {
		t.Fatalf("TakeSample() unexpected error = %v", err)
	}
	second, err := eval.Evaluate(0)
	if err != nil {
		t.Fatalf("Evaluate() unexpected error = %v", err)
	}
	if first == second {
		t.Error("expected Evaluate() to recompute after a new sample invalidated the cache")
	}
}

func TestEvaluatorProjectOntoBasis(t *testing.T) {
	gen := newTestGenerator(t, 3, 10, false)
	if err := gen.TakeSample([]float64{1, 0, 0}, 0); err != nil {
		t.Fatalf("TakeSample() unexpected error = %v", err)
	}
	if err := gen.TakeSample([]float64{0, 1, 0}, 1); err != nil {
		t.Fatalf("TakeSample() unexpected error = %v", err)
	}
	eval := NewEvaluator(gen)

	reconstructed, coeffs, err := eval.ProjectOntoBasis([]float64{3, 4, 5})
	if err != nil {
		t.Fatalf("ProjectOntoBasis() unexpected error = %v", err)
	}
	if len(coeffs) != 2 {
		t.Fatalf("ProjectOntoBasis() coeffs len = %d, want 2", len(coeffs))
	}
	// The basis spans e1, e2, so the projection of [3,4,5] should recover
	// [3,4,0]: the component along e3 is outside the span and is dropped.
	want := []float64{3, 4, 0}
	for i, w := range want {
		if math.Abs(reconstructed.At(i, 0)-w) > 1e-9 {
			t.Errorf("ProjectOntoBasis() reconstructed[%d] = %g, want %g", i, reconstructed.At(i, 0), w)
		}
	}
}

// TestSeedReconstruction implements §8 seed scenario 6: 5 random snapshots
// of dim 8 on a single process, verifying the Frobenius-norm reconstruction
// error is below 1e-10.
func TestSeedReconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const dim = 8
	const n = 5

	samples := make([][]float64, n)
	for i := range samples {
		samples[i] = make([]float64, dim)
		for j := range samples[i] {
			samples[i][j] = rng.NormFloat64()
		}
	}

	gen, err := NewGenerator(GeneratorConfig{
		Kernel: svd.Config{
			Dim:                      dim,
			Epsilon:                  1e-14,
			MaxIncrementsPerInterval: n,
			Variant:                  svd.Naive,
			UpdateRightSV:            true,
		},
		RetainSnapshots: true,
	})
	if err != nil {
		t.Fatalf("NewGenerator() unexpected error = %v", err)
	}
	for i, s := range samples {
		if err := gen.TakeSample(append([]float64(nil), s...), float64(i)); err != nil {
			t.Fatalf("TakeSample(%d) unexpected error = %v", i, err)
		}
	}

	basis, err := gen.GetSpatialBasis()
	if err != nil {
		t.Fatalf("GetSpatialBasis() unexpected error = %v", err)
	}
	sigmaValues := gen.GetSingularValues()
	v := gen.GetTemporalBasis()
	if v.Rows() != n {
		t.Fatalf("GetTemporalBasis() rows = %d, want %d", v.Rows(), n)
	}

	sigmaSlice := make([]float64, len(sigmaValues)*len(sigmaValues))
	for i, s := range sigmaValues {
		sigmaSlice[i*len(sigmaValues)+i] = s
	}
	sigmaMat := distla.NewDense(len(sigmaValues), len(sigmaValues), sigmaSlice)

	uSigma, err := basis.Multiply(sigmaMat)
	if err != nil {
		t.Fatalf("U*Sigma Multiply() unexpected error = %v", err)
	}
	reconstructed, err := uSigma.Multiply(v.Transpose())
	if err != nil {
		t.Fatalf("(U*Sigma)*V^T Multiply() unexpected error = %v", err)
	}

	original, err := gen.GetSnapshotMatrix()
	if err != nil {
		t.Fatalf("GetSnapshotMatrix() unexpected error = %v", err)
	}

	var diffSq, origSq float64
	for i := 0; i < dim; i++ {
		for j := 0; j < n; j++ {
			d := reconstructed.At(i, j) - original.At(i, j)
			diffSq += d * d
			origSq += original.At(i, j) * original.At(i, j)
		}
	}
	relError := math.Sqrt(diffSq) / math.Sqrt(origSq)
	if relError >= 1e-10 {
		t.Errorf("relative Frobenius reconstruction error = %g, want < 1e-10", relError)
	}
}
