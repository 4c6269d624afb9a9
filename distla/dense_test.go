package distla

import (
	"math"
	"testing"
)

func TestDenseMultiply(t *testing.T) {
	tests := []struct {
		name    string
		a, b    [][]float64
		want    [][]float64
		wantErr bool
	}{
		{
			name: "2x2 identity-like",
			a:    [][]float64{{1, 2}, {3, 4}},
			b:    [][]float64{{1, 0}, {0, 1}},
			want: [][]float64{{1, 2}, {3, 4}},
		},
		{
			name: "2x3 * 3x2",
			a:    [][]float64{{1, 2, 3}, {4, 5, 6}},
			b:    [][]float64{{7, 8}, {9, 10}, {11, 12}},
			want: [][]float64{{58, 64}, {139, 154}},
		},
		{
			name:    "dimension mismatch",
			a:       [][]float64{{1, 2}},
			b:       [][]float64{{1, 2}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := fromSlice(tt.a)
			b := fromSlice(tt.b)
			got, err := a.Multiply(b)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Multiply() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Multiply() unexpected error = %v", err)
			}
			assertClose(t, got.ToSlice(), tt.want)
		})
	}
}

func TestDenseIsSymmetric(t *testing.T) {
	sym := fromSlice([][]float64{{1, 2}, {2, 1}})
	if !sym.IsSymmetric() {
		t.Error("expected symmetric matrix to be reported symmetric")
	}
	asym := fromSlice([][]float64{{1, 2}, {3, 1}})
	if asym.IsSymmetric() {
		t.Error("expected asymmetric matrix to be reported not symmetric")
	}
}

func TestDenseTranspose(t *testing.T) {
	a := fromSlice([][]float64{{1, 2, 3}, {4, 5, 6}})
	got := a.Transpose().ToSlice()
	want := [][]float64{{1, 4}, {2, 5}, {3, 6}}
	assertClose(t, got, want)
}

func fromSlice(rows [][]float64) *Dense {
	if len(rows) == 0 {
		return Zeros(0, 0)
	}
	cols := len(rows[0])
	m := Zeros(len(rows), cols)
	for i, row := range rows {
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
	return m
}

func assertClose(t *testing.T, got, want [][]float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("row count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("row %d length = %d, want %d", i, len(got[i]), len(want[i]))
		}
		for j := range want[i] {
			if math.Abs(got[i][j]-want[i][j]) > 1e-9 {
				t.Errorf("at (%d,%d) = %f, want %f", i, j, got[i][j], want[i][j])
			}
		}
	}
}
