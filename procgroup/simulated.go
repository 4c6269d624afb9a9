package procgroup

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Simulated is an in-process stand-in for an MPI process group: each rank
// runs on its own goroutine and AllReduceSum blocks until every rank has
// contributed its operand for that call, mirroring the suspension points
// described in §5 ("processes block at each collective"). It exists so
// property tests can exercise I5 (distribution consistency) and the
// cross-process determinism invariant without a real MPI binding.
type Simulated struct {
	rank  int
	coord *barrierCoordinator
}

var _ Group = (*Simulated)(nil)

// NewSimulated creates `size` Group handles sharing one barrier
// coordinator, one per simulated rank.
func NewSimulated(size int) []Group {
	if size <= 0 {
		panic("procgroup: size must be positive")
	}
	coord := &barrierCoordinator{size: size}
	groups := make([]Group, size)
	for r := 0; r < size; r++ {
		groups[r] = &Simulated{rank: r, coord: coord}
	}
	return groups
}

// Rank returns this simulated process's rank.
func (s *Simulated) Rank() int { return s.rank }

// Size returns the number of simulated processes in the group.
func (s *Simulated) Size() int { return s.coord.size }

// AllReduceSum blocks until all ranks of the group have called it for the
// current logical step, then returns the element-wise sum to every rank.
func (s *Simulated) AllReduceSum(local []float64) ([]float64, error) {
	return s.coord.combine(local)
}

// barrierCoordinator implements repeated all-reduce rounds: each round
// collects one contribution from every rank, and the last rank to arrive
// computes the sum and releases the others. A fresh round starts as soon
// as the previous one is full, so collectives called in a tight loop
// never deadlock waiting on a round that already closed.
type barrierCoordinator struct {
	size int

	mu      sync.Mutex
	current *barrierRound
}

type barrierRound struct {
	size          int
	contributions [][]float64
	arrived       int
	done          chan struct{}
	result        []float64
	err           error
}

func newBarrierRound(size int) *barrierRound {
	return &barrierRound{
		size:          size,
		contributions: make([][]float64, size),
		done:          make(chan struct{}),
	}
}

func (c *barrierCoordinator) combine(local []float64) ([]float64, error) {
	c.mu.Lock()
	if c.current == nil {
		c.current = newBarrierRound(c.size)
	}
	round := c.current
	idx := round.arrived
	round.arrived++
	contribution := make([]float64, len(local))
	copy(contribution, local)
	round.contributions[idx] = contribution
	isLast := round.arrived == round.size
	if isLast {
		c.current = nil
	}
	c.mu.Unlock()

	if isLast {
		round.result, round.err = sumContributions(round.contributions)
		close(round.done)
	} else {
		<-round.done
	}

	if round.err != nil {
		return nil, round.err
	}
	out := make([]float64, len(round.result))
	copy(out, round.result)
	return out, nil
}

func sumContributions(contributions [][]float64) ([]float64, error) {
	n := len(contributions[0])
	for _, c := range contributions[1:] {
		if len(c) != n {
			return nil, errLengthMismatch(n, len(c))
		}
	}
	sum := make([]float64, n)
	for _, c := range contributions {
		for i, v := range c {
			sum[i] += v
		}
	}
	return sum, nil
}

// Run launches fn concurrently on `size` simulated ranks and waits for all
// of them, in the style of golang.org/x/sync/errgroup: the first error
// returned by any rank is returned to the caller, matching §7's "failures
// of a collective primitive are fatal to the group". No context is
// cancelled; the other ranks run until fn returns. fn is responsible for
// calling the same sequence of
// collectives on its Group handle as every other rank.
func Run(size int, fn func(rank int, g Group) error) error {
	groups := NewSimulated(size)
	var eg errgroup.Group
	for r := 0; r < size; r++ {
		rank, g := r, groups[r]
		eg.Go(func() error {
			return fn(rank, g)
		})
	}
	return eg.Wait()
}
