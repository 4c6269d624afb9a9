package distla

import (
	"math"
	"testing"
)

func TestCholeskySolve(t *testing.T) {
	a := fromSlice([][]float64{
		{4, 2},
		{2, 3},
	})
	chol, err := Cholesky(a)
	if err != nil {
		t.Fatalf("Cholesky() unexpected error = %v", err)
	}

	x, err := chol.Solve([]float64{1, 2})
	if err != nil {
		t.Fatalf("Solve() unexpected error = %v", err)
	}

	// Verify a*x == b
	b, err := MatvecCombine(a, x)
	if err != nil {
		t.Fatalf("MatvecCombine() unexpected error = %v", err)
	}
	want := []float64{1, 2}
	for i := range want {
		if math.Abs(b[i]-want[i]) > 1e-9 {
			t.Errorf("a*x[%d] = %f, want %f", i, b[i], want[i])
		}
	}
}

func TestCholeskyRejectsNonSymmetric(t *testing.T) {
	a := fromSlice([][]float64{{1, 2}, {3, 4}})
	if _, err := Cholesky(a); err == nil {
		t.Error("Cholesky() expected error for non-symmetric matrix")
	}
}

func TestCholeskyRejectsIndefinite(t *testing.T) {
	a := fromSlice([][]float64{{1, 2}, {2, 1}})
	if _, err := Cholesky(a); err == nil {
		t.Error("Cholesky() expected error for non positive definite matrix")
	}
}

func TestIsOrthonormalGram(t *testing.T) {
	identity := Identity(3)
	if !IsOrthonormalGram(identity, 1e-10) {
		t.Error("identity matrix should be reported orthonormal")
	}

	notOrtho := fromSlice([][]float64{{1, 0.5}, {0.5, 1}})
	if IsOrthonormalGram(notOrtho, 1e-10) {
		t.Error("matrix with off-diagonal 0.5 should not be reported orthonormal")
	}
}
