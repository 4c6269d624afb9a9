// Package interval implements the Time-Interval Manager (§4.3): it
// partitions a stream of snapshots into bounded-size windows, each owning
// its own independent incremental SVD kernel, and freezes the outgoing
// kernel's state when a window fills.
package interval

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/romcore/isvd/logging"
	"github.com/romcore/isvd/svd"
)

// Frozen captures the immutable output of one retired interval: the kernel
// that absorbed its snapshots, the interval's start time, and the number of
// snapshots it accepted (redundant or not).
type Frozen struct {
	Index     int
	StartTime float64
	Kernel    svd.Kernel
	Count     int
}

// Manager owns the currently active kernel and rolls it over to a fresh one
// every MaxIncrementsPerInterval accepted take_sample calls, preserving
// every retired interval's output (§4.3 "preserving previous intervals'
// output"). A Manager is not safe for concurrent use, matching the kernel
// it wraps (§5 "not safe to call mutating operations concurrently").
type Manager struct {
	newKernel      func() (svd.Kernel, error)
	maxPerInterval int
	logger         zerolog.Logger

	current      svd.Kernel
	currentStart float64
	currentCount int
	started      bool

	frozen []Frozen
}

// NewManager constructs a Manager that builds a fresh kernel for every
// interval via newKernel, so it works uniformly for either variant (§9
// "closed choice of two algorithms"). maxPerInterval must be positive,
// mirroring the kernel's own Config.MaxIncrementsPerInterval precondition.
func NewManager(maxPerInterval int, newKernel func() (svd.Kernel, error), logger *zerolog.Logger) (*Manager, error) {
	if maxPerInterval <= 0 {
		return nil, fmt.Errorf("interval: max increments per interval must be positive, got %d", maxPerInterval)
	}
	if newKernel == nil {
		return nil, fmt.Errorf("interval: newKernel must not be nil")
	}
	l := logging.Nop()
	if logger != nil {
		l = *logger
	}
	return &Manager{newKernel: newKernel, maxPerInterval: maxPerInterval, logger: l}, nil
}

// TakeSample absorbs a snapshot, rolling over to a new interval first if the
// current one has reached capacity, or if this is the very first sample
// (§4.3 "a new interval begins on the first take_sample after
// construction").
func (m *Manager) TakeSample(uLocal []float64, t float64) error {
	if !m.started || m.currentCount >= m.maxPerInterval {
		if err := m.rollover(t); err != nil {
			return err
		}
	}
	if err := m.current.TakeSample(uLocal, t); err != nil {
		return err
	}
	m.currentCount++
	return nil
}

func (m *Manager) rollover(startTime float64) error {
	if m.started {
		m.frozen = append(m.frozen, Frozen{
			Index:     len(m.frozen),
			StartTime: m.currentStart,
			Kernel:    m.current,
			Count:     m.currentCount,
		})
		m.logger.Info().Int("interval", len(m.frozen)-1).Int("count", m.currentCount).
			Msg("interval retired")
	}
	k, err := m.newKernel()
	if err != nil {
		return err
	}
	m.current = k
	m.currentStart = startTime
	m.currentCount = 0
	m.started = true
	m.logger.Info().Int("interval", len(m.frozen)).Float64("start", startTime).Msg("interval started")
	return nil
}

// Current returns the kernel of the interval currently absorbing snapshots,
// or nil if no sample has been taken yet.
func (m *Manager) Current() svd.Kernel {
	return m.current
}

// CurrentStartTime returns the start time of the interval currently
// absorbing snapshots.
func (m *Manager) CurrentStartTime() float64 {
	return m.currentStart
}

// CurrentCount returns the number of snapshots accepted by the currently
// active interval, so callers can tell a rollover just happened (the count
// resets to 1 on the sample that starts a new interval).
func (m *Manager) CurrentCount() int {
	return m.currentCount
}

// Frozen returns the immutable output of every retired interval, oldest
// first. The current, still-active interval is not included (§3
// "destroyed when the interval retires").
func (m *Manager) Frozen() []Frozen {
	out := make([]Frozen, len(m.frozen))
	copy(out, m.frozen)
	return out
}

// StartTimes returns the replicated, append-only list of every interval's
// start time observed so far, including the active interval's
// (time_interval_starts, §3).
func (m *Manager) StartTimes() []float64 {
	out := make([]float64, 0, len(m.frozen)+1)
	for _, f := range m.frozen {
		out = append(out, f.StartTime)
	}
	if m.started {
		out = append(out, m.currentStart)
	}
	return out
}
