package distla

import (
	"math"
	"testing"
)

func TestSmallSVDReconstructs(t *testing.T) {
	m := fromSlice([][]float64{
		{12, -51, 4},
		{6, 167, -68},
		{-4, 24, -41},
	})

	result, err := SmallSVD(m)
	if err != nil {
		t.Fatalf("SmallSVD() unexpected error = %v", err)
	}

	for i := 1; i < len(result.Sigma); i++ {
		if result.Sigma[i] > result.Sigma[i-1]+1e-9 {
			t.Errorf("singular values not non-increasing: %v", result.Sigma)
		}
	}
	for _, s := range result.Sigma {
		if s < 0 {
			t.Errorf("singular value %f is negative", s)
		}
	}

	sigmaDiag := DiagFromValues(result.Sigma)
	aSigma, err := result.A.Multiply(sigmaDiag)
	if err != nil {
		t.Fatalf("Multiply() unexpected error = %v", err)
	}
	reconstructed, err := aSigma.Multiply(result.B.Transpose())
	if err != nil {
		t.Fatalf("Multiply() unexpected error = %v", err)
	}

	got := reconstructed.ToSlice()
	want := m.ToSlice()
	for i := range want {
		for j := range want[i] {
			if math.Abs(got[i][j]-want[i][j]) > 1e-8 {
				t.Errorf("reconstruction at (%d,%d) = %f, want %f", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestSmallSVDDeterministic(t *testing.T) {
	m := fromSlice([][]float64{{2, 0}, {0, 3}})
	r1, err := SmallSVD(m)
	if err != nil {
		t.Fatalf("SmallSVD() unexpected error = %v", err)
	}
	r2, err := SmallSVD(m)
	if err != nil {
		t.Fatalf("SmallSVD() unexpected error = %v", err)
	}
	for i := range r1.Sigma {
		if r1.Sigma[i] != r2.Sigma[i] {
			t.Errorf("SmallSVD not deterministic across calls: %v vs %v", r1.Sigma, r2.Sigma)
		}
	}
}
