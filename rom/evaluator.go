package rom

import (
	"fmt"
	"math"

	"github.com/romcore/isvd/distla"
	"github.com/romcore/isvd/procgroup"
)

// Evaluator implements the Reduced Model Evaluator of §4.5: given a real
// time t, compute U*Sigma*v(t), where v(t) is the retained right-singular
// vector at the sample nearest t, or (for DMD-style consumers) an
// externally supplied coefficient vector. It caches the most recent
// reconstruction and invalidates it whenever the generator absorbs a new
// sample, since it is otherwise stateless.
type Evaluator struct {
	gen   *Generator
	group procgroup.Group

	cacheVersion int
	cacheT       float64
	cacheV       *distla.Dense
}

// NewEvaluator wraps a Generator. The evaluator reads the generator's
// current interval; it does not own or mutate the factorization.
func NewEvaluator(gen *Generator) *Evaluator {
	return &Evaluator{gen: gen, group: gen.group, cacheVersion: -1}
}

// Evaluate reconstructs U*Sigma*v(t') where t' is the sample time in the
// current interval nearest to t. It returns an error if no sample has been
// absorbed yet. The result is cached and reused as long as neither t nor
// the generator's state has changed since the last call (§4.5).
func (e *Evaluator) Evaluate(t float64) (*distla.Dense, error) {
	if e.cacheVersion == e.gen.Version() && e.cacheT == t {
		return e.cacheV, nil
	}

	v := e.gen.GetTemporalBasis()
	if v == nil {
		return nil, fmt.Errorf("rom: temporal basis not retained; construct the generator with UpdateRightSV")
	}
	times := e.gen.SampleTimes()
	if len(times) == 0 {
		return nil, fmt.Errorf("rom: no sample has been taken yet")
	}
	row := nearestIndex(times, t)
	vRow := v.ToSlice()[row]

	result, err := e.reconstruct(vRow)
	if err != nil {
		return nil, err
	}
	e.cacheVersion = e.gen.Version()
	e.cacheT = t
	e.cacheV = result
	return result, nil
}

// ProjectOntoBasis computes the least-squares coefficients of an externally
// supplied, row-partitioned target vector against the current spatial
// basis, then reconstructs basis*coefficients from them (§4.5's
// "externally supplied vector" path consumed by DMD-style callers whose
// basis need not be orthonormal with respect to the target).
func (e *Evaluator) ProjectOntoBasis(targetLocal []float64) (*distla.Dense, []float64, error) {
	basis, err := e.gen.GetSpatialBasis()
	if err != nil {
		return nil, nil, err
	}
	coeffs, err := distla.ProjectOntoBasis(e.group, basis, targetLocal)
	if err != nil {
		return nil, nil, err
	}
	reconstructed, err := basis.Multiply(distla.NewDense(len(coeffs), 1, coeffs))
	if err != nil {
		return nil, nil, err
	}
	return reconstructed, coeffs, nil
}

// reconstruct computes U*Sigma*vRow for one row of V, returning a dim x 1
// column.
func (e *Evaluator) reconstruct(vRow []float64) (*distla.Dense, error) {
	basis, err := e.gen.GetSpatialBasis()
	if err != nil {
		return nil, err
	}
	sigma := e.gen.GetSingularValues()
	if len(sigma) != len(vRow) {
		return nil, fmt.Errorf("rom: rank mismatch between singular values (%d) and temporal basis row (%d)", len(sigma), len(vRow))
	}
	scaled := make([]float64, len(vRow))
	for i := range vRow {
		scaled[i] = sigma[i] * vRow[i]
	}
	return basis.Multiply(distla.NewDense(len(scaled), 1, scaled))
}

// nearestIndex returns the index of the entry in times closest to t,
// breaking ties toward the earlier sample.
func nearestIndex(times []float64, t float64) int {
	best := 0
	bestDist := math.Abs(times[0] - t)
	for i := 1; i < len(times); i++ {
		if d := math.Abs(times[i] - t); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
