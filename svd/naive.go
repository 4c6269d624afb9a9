package svd

import (
	"github.com/rs/zerolog"

	"github.com/romcore/isvd/distla"
	"github.com/romcore/isvd/procgroup"
)

// naiveKernel maintains U directly (the "canonical" basis) and periodically
// re-orthogonalizes it (§4.2.1). It never keeps a separate L: after every
// accepted new increment U is immediately rotated to absorb the small SVD's
// left factor, so the effective basis is always exactly U.
type naiveKernel struct {
	cfg    Config
	group  procgroup.Group
	logger zerolog.Logger

	empty bool

	uLocal []float64 // local rows, rank columns, row-major length dim*rank
	sigma  *distla.Dense
	v      *distla.Dense

	rank          int
	numIncrements int
	lastNormJ     float64

	sinceReortho     int
	reorthoDeviation float64
}

var (
	_ Kernel                   = (*naiveKernel)(nil)
	_ OrthogonalityDiagnostics = (*naiveKernel)(nil)
)

func newNaiveKernel(cfg Config) *naiveKernel {
	return &naiveKernel{
		cfg:    cfg,
		group:  cfg.group(),
		logger: cfg.logger(),
		empty:  true,
	}
}

func (k *naiveKernel) Dim() int         { return k.cfg.Dim }
func (k *naiveKernel) Epsilon() float64 { return k.cfg.Epsilon }
func (k *naiveKernel) Rank() int        { return k.rank }

func (k *naiveKernel) LastResidualNorm() float64 { return k.lastNormJ }

// LastOrthogonalityDeviation implements OrthogonalityDiagnostics.
func (k *naiveKernel) LastOrthogonalityDeviation() float64 { return k.reorthoDeviation }

func (k *naiveKernel) SingularValues() []float64 {
	if k.sigma == nil {
		return nil
	}
	out := make([]float64, k.sigma.Rows())
	for i := range out {
		out[i] = k.sigma.At(i, i)
	}
	return out
}

func (k *naiveKernel) TemporalBasis() *distla.Dense {
	if !k.cfg.UpdateRightSV {
		return nil
	}
	return k.v
}

func (k *naiveKernel) CurrentBasis() (*distla.Dense, error) {
	if k.empty {
		return distla.Zeros(k.cfg.Dim, 0), nil
	}
	return distla.NewDense(k.cfg.Dim, k.rank, append([]float64(nil), k.uLocal...)), nil
}

// uAsDense is the internal working view of U as a *distla.Dense, used by
// the shared projection helpers that expect a matrix, not a flat slice.
func (k *naiveKernel) uAsDense() *distla.Dense {
	return distla.NewDense(k.cfg.Dim, k.rank, k.uLocal)
}

func (k *naiveKernel) TakeSample(uLocal []float64, t float64) error {
	if err := validateSample(uLocal, k.cfg.Dim, t); err != nil {
		return err
	}

	if k.empty {
		return k.buildInitialSVD(uLocal)
	}
	return k.buildIncrementalSVD(uLocal)
}

func (k *naiveKernel) buildInitialSVD(uLocal []float64) error {
	g := k.group
	normU, err := distla.Norm(g, uLocal)
	if err != nil {
		return err
	}
	if normU < 1e-300 {
		// A zero first sample starts no factorization; §9's "always
		// redundant" rule extends trivially to the empty state.
		k.lastNormJ = 0
		return nil
	}

	initial := make([]float64, len(uLocal))
	for i, v := range uLocal {
		initial[i] = v / normU
	}
	k.uLocal = initial
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

func (k *naiveKernel) buildIncrementalSVD(uLocal []float64) error {
	g := k.group
	basis := k.uAsDense()

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
	if err := k.addNewIncrement(jLocal, normJ, decomposition); err != nil {
		return err
	}
	return k.maybeReorthogonalize()
}

func (k *naiveKernel) addRedundantIncrement(decomposition *distla.SmallSVDResult) error {
	r := k.rank

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

func (k *naiveKernel) addNewIncrement(jLocal []float64, normJ float64, decomposition *distla.SmallSVDResult) error {
	scaled := make([]float64, len(jLocal))
	for i, v := range jLocal {
		scaled[i] = v / normJ
	}
	extendedU := k.uAsDense().AppendColumn(scaled)

	rotated, err := extendedU.Multiply(decomposition.A)
	if err != nil {
		return err
	}

	newV, err := extendV(k.v, decomposition.B)
	if err != nil {
		return err
	}
	if k.cfg.UpdateRightSV {
		k.v = newV
	}

	k.uLocal = flattenDense(rotated)
	k.rank++
	k.sigma = distla.DiagFromValues(decomposition.Sigma)
	k.sinceReortho++
	return nil
}

// maybeReorthogonalize implements §4.2.1 and the §9 open question on cadence:
// after every reorthogonalizationPeriod accepted new increments, or whenever
// a cheap ||U^T*U - I||_inf estimate exceeds tau_orth, perform a full
// modified Gram-Schmidt pass. When the period is not set it is the current
// rank, which the count since the last pass never reaches, so only the
// tau_orth check triggers a pass.
func (k *naiveKernel) maybeReorthogonalize() error {
	period := k.cfg.ReorthogonalizationPeriod
	if period <= 0 {
		period = k.rank
	}

	deviation, err := distla.OrthogonalityDeviation(k.group, k.uAsDense())
	if err != nil {
		return err
	}
	k.reorthoDeviation = deviation

	due := k.sinceReortho >= period || deviation > k.cfg.orthogonalityTolerance()
	if !due {
		return nil
	}

	k.logger.Warn().Float64("deviation", deviation).Int("since_reortho", k.sinceReortho).
		Msg("re-orthogonalizing basis")

	mgs, err := distla.ModifiedGramSchmidt(k.group, k.uAsDense())
	if err != nil {
		return err
	}
	newU, newSigma, newV, err := distla.ReconcileAfterReorthogonalization(mgs.ULocal, mgs.R, k.sigma, k.v)
	if err != nil {
		return err
	}
	k.uLocal = flattenDense(newU)
	k.sigma = newSigma
	if k.cfg.UpdateRightSV {
		k.v = newV
	}
	k.sinceReortho = 0
	return nil
}

func flattenDense(d *distla.Dense) []float64 {
	out := make([]float64, 0, d.Rows()*d.Cols())
	for i := 0; i < d.Rows(); i++ {
		for j := 0; j < d.Cols(); j++ {
			out = append(out, d.At(i, j))
		}
	}
	return out
}
