// Package rom implements the outward-facing components of the engine: the
// Basis Generator Facade (§4.4), which hides the variant choice and the
// time-interval bookkeeping behind a single entry point, and the Reduced
// Model Evaluator (§4.5), which reconstructs or projects model state from
// the retained basis.
package rom

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/romcore/isvd/basisrecord"
	"github.com/romcore/isvd/distla"
	"github.com/romcore/isvd/interval"
	"github.com/romcore/isvd/logging"
	"github.com/romcore/isvd/procgroup"
	"github.com/romcore/isvd/svd"
)

// GeneratorConfig enumerates everything needed to construct a Generator: the
// kernel configuration shared by every interval, plus whether to retain the
// full snapshot matrix (§4.4's get_snapshot_matrix, off by default since it
// is memory-expensive and most callers only need the basis).
type GeneratorConfig struct {
	Kernel          svd.Config
	RetainSnapshots bool
}

// Generator is the Basis Generator Facade of §4.4: it accepts snapshots
// with timestamps, delegates to the interval manager (which in turn
// delegates to the chosen kernel variant per interval), and exposes the
// current spatial basis, singular values, temporal basis, and optionally
// the retained snapshot matrix.
type Generator struct {
	cfg     GeneratorConfig
	group   procgroup.Group
	logger  zerolog.Logger
	mgr     *interval.Manager
	snaps   [][]float64 // row-partitioned local rows, one slice per accepted sample
	snapsOK bool

	// sampleTimes holds, for the currently active interval only, the time
	// passed to TakeSample for each V row absorbed so far. It resets
	// whenever the interval manager rolls over, since V itself is scoped to
	// one interval (§3 "destroyed when the interval retires").
	sampleTimes []float64

	// version increments on every accepted TakeSample, letting dependents
	// like Evaluator detect mutation without the facade having to track
	// observers directly (§4.5 "invalidated whenever §4.2 mutates the
	// factorization").
	version int
}

// Version returns a counter that increments every time TakeSample succeeds.
func (gen *Generator) Version() int {
	return gen.version
}

// NewGenerator validates cfg.Kernel and builds a facade over a fresh
// interval manager. Each interval gets its own kernel instance built from
// an identical copy of cfg.Kernel, per §4.3's "each interval owns its own
// fresh factorization".
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if err := cfg.Kernel.Validate(); err != nil {
		return nil, err
	}
	kernelCfg := cfg.Kernel
	factory := func() (svd.Kernel, error) {
		return svd.NewKernel(kernelCfg)
	}
	mgr, err := interval.NewManager(cfg.Kernel.MaxIncrementsPerInterval, factory, kernelCfg.Logger)
	if err != nil {
		return nil, err
	}
	logger := logging.Nop()
	if kernelCfg.Logger != nil {
		logger = *kernelCfg.Logger
	}
	return &Generator{
		cfg:     cfg,
		group:   groupOrLocal(kernelCfg.Group),
		logger:  logger,
		mgr:     mgr,
		snapsOK: cfg.RetainSnapshots,
	}, nil
}

func groupOrLocal(g procgroup.Group) procgroup.Group {
	if g == nil {
		return procgroup.Local{}
	}
	return g
}

// IsNextSampleNeeded implements §4.4's subsampling hook: the core
// implementation always accepts a sample, leaving room for a future
// caller-supplied policy without committing the contract to one.
func (gen *Generator) IsNextSampleNeeded(t float64) bool {
	return true
}

// TakeSample delegates to the interval manager, which in turn delegates to
// the active kernel. It also appends to the retained snapshot matrix when
// enabled.
func (gen *Generator) TakeSample(uLocal []float64, t float64) error {
	if err := gen.mgr.TakeSample(uLocal, t); err != nil {
		return err
	}
	if gen.mgr.CurrentCount() == 1 {
		gen.sampleTimes = gen.sampleTimes[:0]
		gen.snaps = gen.snaps[:0]
	}
	gen.sampleTimes = append(gen.sampleTimes, t)
	if gen.snapsOK {
		cp := make([]float64, len(uLocal))
		copy(cp, uLocal)
		gen.snaps = append(gen.snaps, cp)
	}
	gen.version++
	return nil
}

// SampleTimes returns the times of every snapshot absorbed by the currently
// active interval, in absorption order, parallel to the rows of
// GetTemporalBasis().
func (gen *Generator) SampleTimes() []float64 {
	out := make([]float64, len(gen.sampleTimes))
	copy(out, gen.sampleTimes)
	return out
}

// GetSpatialBasis returns the current interval's spatial basis: U for the
// naive variant, U*L for the fast-update variant (collective: triggers the
// combination in the fast variant).
func (gen *Generator) GetSpatialBasis() (*distla.Dense, error) {
	k := gen.mgr.Current()
	if k == nil {
		return nil, fmt.Errorf("rom: no sample has been taken yet")
	}
	return k.CurrentBasis()
}

// GetTemporalBasis returns the current interval's retained right basis, or
// nil if UpdateRightSV is off.
func (gen *Generator) GetTemporalBasis() *distla.Dense {
	k := gen.mgr.Current()
	if k == nil {
		return nil
	}
	return k.TemporalBasis()
}

// GetSingularValues returns the current interval's replicated singular
// values.
func (gen *Generator) GetSingularValues() []float64 {
	k := gen.mgr.Current()
	if k == nil {
		return nil
	}
	return k.SingularValues()
}

// GetSnapshotMatrix lazily materializes the retained snapshot matrix (local
// rows, one column per sample absorbed by the currently active interval;
// it resets on interval rollover), only available
// when GeneratorConfig.RetainSnapshots is true.
func (gen *Generator) GetSnapshotMatrix() (*distla.Dense, error) {
	if !gen.snapsOK {
		return nil, fmt.Errorf("rom: snapshot retention is disabled for this generator")
	}
	if len(gen.snaps) == 0 {
		return distla.Zeros(gen.cfg.Kernel.Dim, 0), nil
	}
	out := distla.Zeros(gen.cfg.Kernel.Dim, len(gen.snaps))
	for j, col := range gen.snaps {
		out.SetColumn(j, col)
	}
	return out, nil
}

// Intervals returns the immutable output of every retired interval; the
// currently active interval is not included. It exposes the manager's bookkeeping to
// callers that need per-interval bases rather than just the latest.
func (gen *Generator) Intervals() []interval.Frozen {
	return gen.mgr.Frozen()
}

// ExportBasis assembles this process's current interval state into the
// shape the external basis-writer collaborator consumes (§6): the spatial
// basis, optional temporal basis, and singular values. It does not touch
// the filesystem; callers combine it with basisrecord.FileSuffix(rank) to
// name the output file.
func (gen *Generator) ExportBasis() (*basisrecord.BasisRecord, error) {
	basis, err := gen.GetSpatialBasis()
	if err != nil {
		return nil, err
	}
	sigma := gen.GetSingularValues()

	var vFlat []float64
	var vRows, vCols int
	if v := gen.GetTemporalBasis(); v != nil {
		vRows, vCols = v.Rows(), v.Cols()
		vFlat = make([]float64, 0, vRows*vCols)
		for _, row := range v.ToSlice() {
			vFlat = append(vFlat, row...)
		}
	}

	basisFlat := make([]float64, 0, basis.Rows()*basis.Cols())
	for _, row := range basis.ToSlice() {
		basisFlat = append(basisFlat, row...)
	}

	return basisrecord.FromBasis(basis.Rows(), basis.Cols(), basisFlat, vRows, vCols, vFlat, sigma)
}

// Rank returns the current interval's rank.
func (gen *Generator) Rank() int {
	k := gen.mgr.Current()
	if k == nil {
		return 0
	}
	return k.Rank()
}
