// Package basisrecord mirrors the shape of the persisted basis store written
// by the external basis-writer collaborator (§6): an HDF5-style keyed file
// per process, holding the spatial basis, optional temporal basis, singular
// values, and (for a separate snapshot file) the retained snapshot matrix.
// This package only defines the record shapes and file-naming convention;
// the actual file I/O is explicitly out of scope for the core (§1).
package basisrecord

import "fmt"

// Keys are the named records a basis file exposes, matching §6's persisted
// format exactly so a future writer/reader pair has an unambiguous target.
const (
	KeySpatialBasisNumRows = "spatial_basis_num_rows"
	KeySpatialBasisNumCols = "spatial_basis_num_cols"
	KeySpatialBasis        = "spatial_basis"

	KeyTemporalBasisNumRows = "temporal_basis_num_rows"
	KeyTemporalBasisNumCols = "temporal_basis_num_cols"
	KeyTemporalBasis        = "temporal_basis"

	KeySingularValueSize = "singular_value_size"
	KeySingularValue     = "singular_value"

	KeySnapshotMatrixNumRows = "snapshot_matrix_num_rows"
	KeySnapshotMatrixNumCols = "snapshot_matrix_num_cols"
	KeySnapshotMatrix        = "snapshot_matrix"
)

// BasisRecord is the in-memory shape of one process's basis file: the
// spatial basis (always present), the optional temporal basis, and the
// singular values, each stored row-major matching the on-disk layout.
type BasisRecord struct {
	SpatialBasisRows int
	SpatialBasisCols int
	SpatialBasis     []float64 // row-major, length rows*cols

	HasTemporalBasis  bool
	TemporalBasisRows int
	TemporalBasisCols int
	TemporalBasis     []float64

	SingularValues []float64
}

// SnapshotRecord is the in-memory shape of one process's snapshot file,
// written separately from the basis file per §6.
type SnapshotRecord struct {
	Rows int
	Cols int
	Data []float64 // row-major, length rows*cols
}

// FileSuffix returns the zero-padded six-digit basis-file suffix for a
// given process rank, e.g. rank 3 -> ".000003" (§6 "suffix .%06d").
func FileSuffix(rank int) string {
	return fmt.Sprintf(".%06d", rank)
}

// SnapshotFileSuffix returns the zero-padded six-digit snapshot-file suffix
// for a given process rank, e.g. rank 3 -> "_snapshot.000003" (§6 "suffix
// _snapshot.%06d").
func SnapshotFileSuffix(rank int) string {
	return fmt.Sprintf("_snapshot.%06d", rank)
}

// Validate checks that the record's declared shapes match the length of its
// backing slices, the same "programmer error aborts" treatment as the rest
// of the core (§7).
func (r *BasisRecord) Validate() error {
	if len(r.SpatialBasis) != r.SpatialBasisRows*r.SpatialBasisCols {
		return fmt.Errorf("basisrecord: spatial basis length %d does not match %dx%d",
			len(r.SpatialBasis), r.SpatialBasisRows, r.SpatialBasisCols)
	}
	if r.HasTemporalBasis && len(r.TemporalBasis) != r.TemporalBasisRows*r.TemporalBasisCols {
		return fmt.Errorf("basisrecord: temporal basis length %d does not match %dx%d",
			len(r.TemporalBasis), r.TemporalBasisRows, r.TemporalBasisCols)
	}
	if len(r.SingularValues) == 0 {
		return fmt.Errorf("basisrecord: singular values must not be empty")
	}
	return nil
}

// Validate checks that Data's length matches the declared shape.
func (r *SnapshotRecord) Validate() error {
	if len(r.Data) != r.Rows*r.Cols {
		return fmt.Errorf("basisrecord: snapshot matrix length %d does not match %dx%d",
			len(r.Data), r.Rows, r.Cols)
	}
	return nil
}

// FromBasis builds a BasisRecord from a spatial basis, optional temporal
// basis, and singular values, the shape a caller would pass to an external
// basis-writer collaborator (§6). basis and v are given as row-major flat
// slices since BasisRecord does not depend on package distla.
func FromBasis(basisRows, basisCols int, basis []float64, vRows, vCols int, v []float64, sigma []float64) (*BasisRecord, error) {
	rec := &BasisRecord{
		SpatialBasisRows: basisRows,
		SpatialBasisCols: basisCols,
		SpatialBasis:     basis,
		SingularValues:   sigma,
	}
	if v != nil {
		rec.HasTemporalBasis = true
		rec.TemporalBasisRows = vRows
		rec.TemporalBasisCols = vCols
		rec.TemporalBasis = v
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
