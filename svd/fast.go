package svd

import (
	"github.com/rs/zerolog"

	"github.com/romcore/isvd/distla"
	"github.com/romcore/isvd/procgroup"
)

// fastKernel maintains an implicit factor L such that the true left basis
// equals U*L, deferring rotations into the small replicated L instead of
// touching the row-partitioned U on every increment (§4.2's fast-update
// variant). Its orthogonality is algebraic: it never runs the §4.2.1
// re-orthogonalization pass.
type fastKernel struct {
	cfg    Config
	group  procgroup.Group
	logger zerolog.Logger

	empty bool

	uLocal []float64 // local rows, rank columns
	l      *distla.Dense
	sigma  *distla.Dense
	v      *distla.Dense

	rank          int
	numIncrements int
	lastNormJ     float64

	// orthogonalityViolations counts how many accepted new increments left
	// the algebraic basis U*L deviating from orthonormal by more than
	// tau_orth. The fast variant never corrects for this (§4.2.1, §7); the
	// counter is purely a diagnostic exposed to callers via OrthogonalityViolations.
	orthogonalityViolations int
	lastDeviation           float64

	cachedBasis *distla.Dense
	cachedValid bool
}

var _ Kernel = (*fastKernel)(nil)

func newFastKernel(cfg Config) *fastKernel {
	return &fastKernel{
		cfg:    cfg,
		group:  cfg.group(),
		logger: cfg.logger(),
		empty:  true,
	}
}

func (k *fastKernel) Dim() int         { return k.cfg.Dim }
func (k *fastKernel) Epsilon() float64 { return k.cfg.Epsilon }
func (k *fastKernel) Rank() int        { return k.rank }

func (k *fastKernel) LastResidualNorm() float64 { return k.lastNormJ }

func (k *fastKernel) SingularValues() []float64 {
	if k.sigma == nil {
		return nil
	}
	out := make([]float64, k.sigma.Rows())
	for i := range out {
		out[i] = k.sigma.At(i, i)
	}
	return out
}

func (k *fastKernel) TemporalBasis() *distla.Dense {
	if !k.cfg.UpdateRightSV {
		return nil
	}
	return k.v
}

func (k *fastKernel) uAsDense() *distla.Dense {
	return distla.NewDense(k.cfg.Dim, k.rank, k.uLocal)
}

// CurrentBasis returns U*L, computed lazily and cached until the next
// mutation (§9 "caching of U*L").
func (k *fastKernel) CurrentBasis() (*distla.Dense, error) {
	if k.empty {
		return distla.Zeros(k.cfg.Dim, 0), nil
	}
	if k.cachedValid {
		return k.cachedBasis, nil
	}
	combined, err := k.uAsDense().Multiply(k.l)
	if err != nil {
		return nil, err
	}
	k.cachedBasis = combined
	k.cachedValid = true
	return combined, nil
}

func (k *fastKernel) TakeSample(uLocal []float64, t float64) error {
	if err := validateSample(uLocal, k.cfg.Dim, t); err != nil {
		return err
	}
	var err error
	if k.empty {
		err = k.buildInitialSVD(uLocal)
	} else {
		err = k.buildIncrementalSVD(uLocal)
	}
	// buildIncrementalSVD reads CurrentBasis before it updates U and L, so
	// the cache is dropped only after the update.
	k.cachedValid = false
	return err
}

func (k *fastKernel) buildInitialSVD(uLocal []float64) error {
	g := k.group
	normU, err := distla.Norm(g, uLocal)
	if err != nil {
		return err
	}
	if normU < 1e-300 {
		k.lastNormJ = 0
		return nil
	}

	initial := make([]float64, len(uLocal))
	for i, v := range uLocal {
		initial[i] = v / normU
	}
	k.uLocal = initial
	k.l = distla.Identity(1)
	k.rank = 1
	k.sigma = distla.NewDense(1, 1, []float64{normU})
	if k.cfg.UpdateRightSV {
		k.v = distla.NewDense(1, 1, []float64{1})
	}
	k.empty = false
	k.numIncrements = 1
	k.lastNormJ = normU

	k.logger.Info().Int("rank", k.rank).Float64("sigma0", normU).Msg("initial SVD built")
	return nil
}

func (k *fastKernel) buildIncrementalSVD(uLocal []float64) error {
	g := k.group
	basis, err := k.CurrentBasis()
	if err != nil {
		return err
	}

	ell, jLocal, normJ, err := projectAndResidual(g, basis, uLocal)
	if err != nil {
		return err
	}
	k.lastNormJ = normJ
	q := augmentedQ(k.sigma, ell, normJ)
	decomposition, err := distla.SmallSVD(q)
	if err != nil {
		return err
	}
	k.numIncrements++

	if isRedundant(normJ, k.cfg.Epsilon) {
		k.logger.Debug().Float64("norm_j", normJ).Msg("redundant increment")
		return k.addRedundantIncrement(decomposition)
	}

	k.logger.Debug().Float64("norm_j", normJ).Msg("new increment")
	return k.addNewIncrement(jLocal, normJ, decomposition)
}

func (k *fastKernel) addRedundantIncrement(decomposition *distla.SmallSVDResult) error {
	r := k.rank
	aTop := decomposition.A.TopLeft(r)

	newL, err := k.l.Multiply(aTop)
	if err != nil {
		return err
	}
	k.l = newL

	if k.cfg.UpdateRightSV && !k.cfg.SkipRedundant {
		bTrunc := decomposition.B.FirstCols(r)
		newV, err := extendV(k.v, bTrunc)
		if err != nil {
			return err
		}
		k.v = newV
	}
	k.sigma = distla.DiagFromValues(decomposition.Sigma[:r])
	// U unchanged (§4.2 step 6, redundant branch).
	return nil
}

func (k *fastKernel) addNewIncrement(jLocal []float64, normJ float64, decomposition *distla.SmallSVDResult) error {
	scaled := make([]float64, len(jLocal))
	for i, v := range jLocal {
		scaled[i] = v / normJ
	}
	// U gains the new column unchanged; the rotation is deferred into L.
	k.uLocal = flattenDense(k.uAsDense().AppendColumn(scaled))

	extendedL := distla.BlockDiag2(k.l, 1)
	newL, err := extendedL.Multiply(decomposition.A)
	if err != nil {
		return err
	}
	newV, err := extendV(k.v, decomposition.B)
	if err != nil {
		return err
	}

	k.l = newL
	if k.cfg.UpdateRightSV {
		k.v = newV
	}
	k.rank++
	k.sigma = distla.DiagFromValues(decomposition.Sigma)

	combined, err := k.uAsDense().Multiply(k.l)
	if err != nil {
		return err
	}
	deviation, err := distla.OrthogonalityDeviation(k.group, combined)
	if err != nil {
		return err
	}
	k.lastDeviation = deviation
	if deviation > k.cfg.orthogonalityTolerance() {
		k.orthogonalityViolations++
		k.logger.Warn().Float64("deviation", deviation).Int("violations", k.orthogonalityViolations).
			Msg("fast-update basis drifted past tau_orth; no correction applied")
	}
	return nil
}

// OrthogonalityViolations returns the number of accepted new increments
// since construction whose basis U*L deviated from orthonormal by more than
// tau_orth, a diagnostic counter (§7) rather than a user-facing error.
func (k *fastKernel) OrthogonalityViolations() int {
	return k.orthogonalityViolations
}

// LastOrthogonalityDeviation implements OrthogonalityDiagnostics.
func (k *fastKernel) LastOrthogonalityDeviation() float64 { return k.lastDeviation }

var _ OrthogonalityDiagnostics = (*fastKernel)(nil)
