package basisrecord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSuffix(t *testing.T) {
	tests := []struct {
		rank int
		want string
	}{
		{0, ".000000"},
		{3, ".000003"},
		{123456, ".123456"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileSuffix(tt.rank))
	}
}

func TestSnapshotFileSuffix(t *testing.T) {
	assert.Equal(t, "_snapshot.000007", SnapshotFileSuffix(7))
}

func TestBasisRecordValidate(t *testing.T) {
	rec := &BasisRecord{
		SpatialBasisRows: 2,
		SpatialBasisCols: 2,
		SpatialBasis:     []float64{1, 0, 0, 1},
		SingularValues:   []float64{1, 1},
	}
	require.NoError(t, rec.Validate())

	bad := &BasisRecord{
		SpatialBasisRows: 2,
		SpatialBasisCols: 2,
		SpatialBasis:     []float64{1, 0},
		SingularValues:   []float64{1},
	}
	assert.Error(t, bad.Validate())

	noSigma := &BasisRecord{
		SpatialBasisRows: 1,
		SpatialBasisCols: 1,
		SpatialBasis:     []float64{1},
	}
	assert.Error(t, noSigma.Validate())
}

func TestSnapshotRecordValidate(t *testing.T) {
	rec := &SnapshotRecord{Rows: 2, Cols: 3, Data: make([]float64, 6)}
	require.NoError(t, rec.Validate())

	bad := &SnapshotRecord{Rows: 2, Cols: 3, Data: make([]float64, 5)}
	assert.Error(t, bad.Validate())
}

func TestFromBasis(t *testing.T) {
	rec, err := FromBasis(2, 1, []float64{1, 0}, 2, 1, []float64{1, 0}, []float64{1})
	require.NoError(t, err)
	assert.True(t, rec.HasTemporalBasis)

	rec2, err := FromBasis(2, 1, []float64{1, 0}, 0, 0, nil, []float64{1})
	require.NoError(t, err)
	assert.False(t, rec2.HasTemporalBasis)
}
