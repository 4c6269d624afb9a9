// Package svd implements the abstract incremental SVD algorithm of §4.2:
// given the current (U, L, Sigma, V) and a new row-partitioned snapshot u,
// produce the next (U', L', Sigma', V') or classify u as redundant. Two
// concrete variants share this contract (Variant, below) — a naive variant
// that maintains U directly and periodically re-orthogonalizes, and a
// fast-update variant that defers rotations into a small replicated L — and
// nothing else implements Kernel; it is a closed, tagged choice rather than
// an open plugin point (§9).
package svd

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/romcore/isvd/distla"
	"github.com/romcore/isvd/logging"
	"github.com/romcore/isvd/procgroup"
)

// Variant selects which of the two incremental SVD algorithms a Kernel runs.
type Variant int

const (
	// Naive recomputes an explicit U column-by-column and periodically
	// re-orthogonalizes it.
	Naive Variant = iota
	// FastUpdate maintains an implicit factor L such that the true left
	// basis equals U*L, avoiding most orthogonalization work.
	FastUpdate
)

func (v Variant) String() string {
	switch v {
	case Naive:
		return "naive"
	case FastUpdate:
		return "fast-update"
	default:
		return "unknown"
	}
}

// Config enumerates the options consumed from the caller (§4.2.2).
type Config struct {
	// Dim is the local row count on this process. Must be strictly positive.
	Dim int

	// Epsilon is the redundancy tolerance. Must be strictly positive;
	// typical range 1e-14 to 1e-6.
	Epsilon float64

	// SkipRedundant, if true, elides the V-extension on the redundant branch.
	SkipRedundant bool

	// MaxIncrementsPerInterval bounds n per time interval. Must be positive.
	MaxIncrementsPerInterval int

	// Variant selects the algorithm.
	Variant Variant

	// UpdateRightSV, if true, retains and extends the temporal basis V on
	// every absorbed sample. If false, V is never built, saving the small
	// per-sample matmuls for callers who only need the spatial basis.
	UpdateRightSV bool

	// ReorthogonalizationPeriod is the cadence, in accepted new increments,
	// at which the naive variant's orthogonality is checked (§9's open
	// question). A value <= 0 compares the count against the current rank r.
	// Every accepted new increment raises both the count and r by one, so the
	// count never reaches r; with this default a pass runs only when the
	// OrthogonalityTolerance check fires.
	ReorthogonalizationPeriod int

	// OrthogonalityTolerance is tau_orth, the threshold above which a cheap
	// orthogonality estimate triggers a full re-orthogonalization pass.
	// A value <= 0 uses sqrt(machine epsilon).
	OrthogonalityTolerance float64

	// Group is the process group this kernel runs under. Nil defaults to
	// procgroup.Local{}, the single-process group.
	Group procgroup.Group

	// Logger receives lifecycle and diagnostic events. Nil discards
	// everything (logging.Nop()).
	Logger *zerolog.Logger
}

// defaultOrthogonalityTolerance is sqrt(machine epsilon) for float64, the
// default named in §9.
var defaultOrthogonalityTolerance = math.Sqrt(2.220446049250313e-16)

// Validate checks the preconditions of §7: non-positive dim, non-positive
// epsilon and non-positive max-increments are programmer errors returned as
// descriptive errors rather than panics, matching the teacher's decomposition
// routines (qr.go, lu.go).
func (c *Config) Validate() error {
	if c.Dim <= 0 {
		return fmt.Errorf("svd: dim must be positive, got %d", c.Dim)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("svd: epsilon must be positive, got %g", c.Epsilon)
	}
	if c.MaxIncrementsPerInterval <= 0 {
		return fmt.Errorf("svd: max increments per interval must be positive, got %d", c.MaxIncrementsPerInterval)
	}
	return nil
}

func (c *Config) group() procgroup.Group {
	if c.Group == nil {
		return procgroup.Local{}
	}
	return c.Group
}

func (c *Config) logger() zerolog.Logger {
	if c.Logger == nil {
		return logging.Nop()
	}
	return *c.Logger
}

func (c *Config) orthogonalityTolerance() float64 {
	if c.OrthogonalityTolerance > 0 {
		return c.OrthogonalityTolerance
	}
	return defaultOrthogonalityTolerance
}

// Kernel is the contract shared by the naive and fast-update incremental
// SVD algorithms (§4.2 "Public operations").
type Kernel interface {
	// TakeSample absorbs a snapshot at the given time, possibly rolling
	// the factorization from empty to rank-1 (initial path) or extending
	// it. Implementations classify zero snapshots as always redundant
	// (§9 open question). A zero first snapshot leaves the kernel empty; a
	// later one leaves the rank and U unchanged, but like any redundant
	// sample it still appends a row to V when V is retained and
	// SkipRedundant is off.
	TakeSample(uLocal []float64, t float64) error

	// CurrentBasis returns the row-partitioned effective left basis: U for
	// the naive variant, U*L for the fast-update variant. The fast-update
	// variant caches U*L until the next TakeSample; the naive variant
	// returns a fresh copy of U on every call.
	CurrentBasis() (*distla.Dense, error)

	// SingularValues returns the replicated singular values, length r,
	// non-negative and non-increasing (I2).
	SingularValues() []float64

	// TemporalBasis returns the replicated V, or nil if not retained.
	TemporalBasis() *distla.Dense

	// Rank returns the current rank r.
	Rank() int

	// LastResidualNorm returns norm_j cached by the most recent TakeSample
	// (valid per §3's lifecycle rule; ported from the original's getNormJ).
	LastResidualNorm() float64

	// Dim returns the local row count this kernel was constructed with.
	Dim() int

	// Epsilon returns the redundancy tolerance.
	Epsilon() float64
}

// OrthogonalityDiagnostics is implemented by both variants to expose the
// last cheap ||U^T*U - I||_inf estimate (§4.2.1, §7's "reported as an
// internal counter"). It is a separate interface rather than part of Kernel
// because it is purely diagnostic: callers that only need the factorization
// itself should not have to depend on it.
type OrthogonalityDiagnostics interface {
	LastOrthogonalityDeviation() float64
}

// NewKernel constructs a Kernel for the variant named in cfg. This is the
// one place Variant is switched on; callers never branch on variant
// themselves, keeping the choice closed (§9).
func NewKernel(cfg Config) (Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Variant {
	case Naive:
		return newNaiveKernel(cfg), nil
	case FastUpdate:
		return newFastKernel(cfg), nil
	default:
		return nil, fmt.Errorf("svd: unknown variant %v", cfg.Variant)
	}
}

// augmentedQ builds the (r+1)x(r+1) matrix
//
//	[[ Sigma,  ell    ],
//	 [ 0^T,    norm_j ]]
//
// passed to the small SVD kernel in §4.2 step 5.
func augmentedQ(sigma *distla.Dense, ell []float64, normJ float64) *distla.Dense {
	r := sigma.Rows()
	q := distla.Zeros(r+1, r+1)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			q.Set(i, j, sigma.At(i, j))
		}
		q.Set(i, r, ell[i])
	}
	q.Set(r, r, normJ)
	return q
}

// projectAndResidual computes ell = basis^T * u (collective) and the local
// residual j = u - basis*ell, applying one unconditional modified
// Gram-Schmidt correction pass to combat cancellation (§4.2 steps 2-3). The
// caller supplies the "effective" basis: U for the naive variant, U*L for
// the fast-update variant.
func projectAndResidual(g procgroup.Group, basisLocal *distla.Dense, uLocal []float64) (ell []float64, jLocal []float64, normJ float64, err error) {
	ell, err = distla.Matvec(g, basisLocal, uLocal)
	if err != nil {
		return nil, nil, 0, err
	}
	combined, err := distla.MatvecCombine(basisLocal, ell)
	if err != nil {
		return nil, nil, 0, err
	}
	jLocal, err = distla.AxpbyLocal(1, uLocal, -1, combined)
	if err != nil {
		return nil, nil, 0, err
	}
	normJ, err = distla.Norm(g, jLocal)
	if err != nil {
		return nil, nil, 0, err
	}

	// Unconditional modified Gram-Schmidt correction pass (§4.2 step 3).
	deltaEll, err := distla.Matvec(g, basisLocal, jLocal)
	if err != nil {
		return nil, nil, 0, err
	}
	correction, err := distla.MatvecCombine(basisLocal, deltaEll)
	if err != nil {
		return nil, nil, 0, err
	}
	jLocal, err = distla.AxpbyLocal(1, jLocal, -1, correction)
	if err != nil {
		return nil, nil, 0, err
	}
	for i := range ell {
		ell[i] += deltaEll[i]
	}
	normJ, err = distla.Norm(g, jLocal)
	if err != nil {
		return nil, nil, 0, err
	}

	return ell, jLocal, normJ, nil
}

// validateSample checks the per-call preconditions of §7: a snapshot must
// match the configured local dimension and times must be non-negative.
func validateSample(uLocal []float64, dim int, t float64) error {
	if uLocal == nil {
		return fmt.Errorf("svd: snapshot must not be nil")
	}
	if len(uLocal) != dim {
		return fmt.Errorf("svd: snapshot length %d does not match configured dim %d", len(uLocal), dim)
	}
	if t < 0 {
		return fmt.Errorf("svd: time must be non-negative, got %g", t)
	}
	return nil
}

// isRedundant classifies a snapshot by §4.2 step 4 and the §9 open question
// that an exactly-zero residual is always redundant.
func isRedundant(normJ, epsilon float64) bool {
	return normJ < epsilon
}

// extendV builds V' = [[V, 0]; [0, 1]] * B (§4.2 step 6): every absorbed
// sample, redundant or not, gains a row of V recording its coordinates in
// the (possibly unchanged) basis, unless the caller has elided this via
// Config.SkipRedundant on the redundant branch before ever calling extendV.
func extendV(v *distla.Dense, b *distla.Dense) (*distla.Dense, error) {
	if v == nil {
		return nil, nil
	}
	extended := distla.AppendRowOfZerosAndColumn(v)
	return extended.Multiply(b)
}
