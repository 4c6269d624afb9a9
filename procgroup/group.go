// Package procgroup provides the process-group abstraction the incremental
// SVD kernel runs under: a bulk-synchronous group of processes where the
// only primitive is an all-reduce sum over a fixed-size slice of doubles
// (§5, §6 "Process group"). Every public operation of the kernel is
// collective: all ranks must enter it with matching arguments, the local
// data excepted.
package procgroup

import "fmt"

// Group is the minimum vocabulary the incremental SVD kernel needs from a
// transport: rank/size introspection (captured at construction per §6) and a
// blocking all-reduce sum. Local and the in-process simulation in
// simulated.go implement it; this repo does not wire an actual MPI
// library (§1 "process bootstrap" is out of scope, and MPI bindings for Go
// are not part of the retrieved corpus), but keeps the seam narrow enough
// that one could be dropped in without touching the kernel.
type Group interface {
	// Rank returns this process's rank in [0, Size()).
	Rank() int

	// Size returns the number of processes in the group.
	Size() int

	// AllReduceSum computes the element-wise sum of local across all ranks
	// and returns the replicated result to every rank. It is collective:
	// every rank must call it with a slice of the same length, in the same
	// relative order as every other collective call on this group.
	//
	// A transport failure is fatal to the group (§7); implementations
	// return a non-nil error rather than partially completing.
	AllReduceSum(local []float64) ([]float64, error)
}

// Local is the trivial single-process group: dim-per-process equals the
// global dimension, and AllReduceSum is the identity (no communication).
// It is the default Group for single-rank callers and for tests of the
// numerical algorithm that do not need to exercise distribution.
type Local struct{}

var _ Group = Local{}

// Rank always returns 0 for the single-process group.
func (Local) Rank() int { return 0 }

// Size always returns 1 for the single-process group.
func (Local) Size() int { return 1 }

// AllReduceSum returns a copy of local unchanged: with one rank, the sum
// over the group is just the local contribution.
func (Local) AllReduceSum(local []float64) ([]float64, error) {
	out := make([]float64, len(local))
	copy(out, local)
	return out, nil
}

// errLengthMismatch builds the error AllReduceSum implementations return when ranks
// present operands of different lengths, which is a programmer error: all
// ranks must call collectives with matching argument shapes (§5).
func errLengthMismatch(want, got int) error {
	return fmt.Errorf("procgroup: mismatched AllReduceSum operand length, want %d got %d", want, got)
}
