package distla

import (
	"math"
	"testing"

	"github.com/romcore/isvd/procgroup"
)

func TestLUSolve(t *testing.T) {
	a := fromSlice([][]float64{
		{2, 1, 1},
		{4, 3, 3},
		{8, 7, 9},
	})
	lu, err := LU(a)
	if err != nil {
		t.Fatalf("LU() unexpected error = %v", err)
	}

	x, err := lu.Solve([]float64{4, 10, 24})
	if err != nil {
		t.Fatalf("Solve() unexpected error = %v", err)
	}

	b, err := MatvecCombine(a, x)
	if err != nil {
		t.Fatalf("MatvecCombine() unexpected error = %v", err)
	}
	want := []float64{4, 10, 24}
	for i := range want {
		if math.Abs(b[i]-want[i]) > 1e-8 {
			t.Errorf("a*x[%d] = %f, want %f", i, b[i], want[i])
		}
	}
}

func TestLURejectsSingular(t *testing.T) {
	a := fromSlice([][]float64{{1, 2}, {2, 4}})
	if _, err := LU(a); err == nil {
		t.Error("LU() expected error for singular matrix")
	}
}

func TestSolveLeastSquaresNonOrthogonal(t *testing.T) {
	// Two non-orthogonal basis vectors; target is an exact combination.
	a := fromSlice([][]float64{
		{1, 1},
		{0, 1},
		{1, 0},
	})
	coeffs := []float64{2, 3}
	target, err := MatvecCombine(a, coeffs)
	if err != nil {
		t.Fatalf("MatvecCombine() unexpected error = %v", err)
	}

	got, err := SolveLeastSquares(a, target)
	if err != nil {
		t.Fatalf("SolveLeastSquares() unexpected error = %v", err)
	}
	for i := range coeffs {
		if math.Abs(got[i]-coeffs[i]) > 1e-8 {
			t.Errorf("coefficient %d = %f, want %f", i, got[i], coeffs[i])
		}
	}
}

func TestProjectOntoBasisSingleProcess(t *testing.T) {
	basis := fromSlice([][]float64{
		{1, 1},
		{0, 1},
		{1, 0},
	})
	coeffs := []float64{2, 3}
	target, err := MatvecCombine(basis, coeffs)
	if err != nil {
		t.Fatalf("MatvecCombine() unexpected error = %v", err)
	}

	got, err := ProjectOntoBasis(procgroup.Local{}, basis, target)
	if err != nil {
		t.Fatalf("ProjectOntoBasis() unexpected error = %v", err)
	}
	for i := range coeffs {
		if math.Abs(got[i]-coeffs[i]) > 1e-8 {
			t.Errorf("coefficient %d = %f, want %f", i, got[i], coeffs[i])
		}
	}
}

func TestProjectOntoBasisAcrossSimulatedRanks(t *testing.T) {
	// basis columns e1 = [1,0,0,0], e2 = [0,1,0,0] split 2 rows per rank;
	// target = 5*e1 + 7*e2 should project back to coefficients [5, 7].
	fullBasis := [][]float64{{1, 0}, {0, 1}, {0, 0}, {0, 0}}
	fullTarget := []float64{5, 7, 0, 0}

	err := procgroup.Run(2, func(rank int, g procgroup.Group) error {
		start := rank * 2
		localBasis := Zeros(2, 2)
		localTarget := make([]float64, 2)
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				localBasis.Set(i, j, fullBasis[start+i][j])
			}
			localTarget[i] = fullTarget[start+i]
		}
		got, err := ProjectOntoBasis(g, localBasis, localTarget)
		if err != nil {
			return err
		}
		want := []float64{5, 7}
		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-8 {
				t.Errorf("rank %d: coefficient %d = %f, want %f", rank, i, got[i], want[i])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("procgroup.Run() unexpected error = %v", err)
	}
}
