package sim

import (
	"context"
	"fmt"
)

// Monitor is an observer process registered after the agents.
type Monitor interface {
	Process
}

// Tally is an SEIR head count at one tick.
type Tally struct {
	Tick        int64
	Susceptible int
	Exposed     int
	Infectious  int
	Removed     int
}

func (t Tally) String() string {
	return fmt.Sprintf("S=%d E=%d I=%d R=%d", t.Susceptible, t.Exposed, t.Infectious, t.Removed)
}

// Total returns the number of agents counted.
func (t Tally) Total() int {
	return t.Susceptible + t.Exposed + t.Infectious + t.Removed
}

// SEIRMonitor samples compartment counts every Period ticks.
type SEIRMonitor struct {
	World  *World
	Period int64
	Series []Tally
}

// NewSEIRMonitor creates a monitor; a non-positive period means one
// simulated day.
func NewSEIRMonitor(w *World, period int64) *SEIRMonitor {
	if period <= 0 {
		period = w.Config.TicksPerDay()
	}
	return &SEIRMonitor{World: w, Period: period}
}

func (m *SEIRMonitor) Name() string { return "monitor:seir" }

// Resume records one tally and sleeps for a period.
func (m *SEIRMonitor) Resume(s *Scheduler) (Wait, error) {
	m.Series = append(m.Series, m.World.Tally())
	return Timeout(m.Period), nil
}

// Flusher persists buffered telemetry.
type Flusher interface {
	Flush(ctx context.Context) error
}

// FlushMonitor drains a buffering telemetry sink every Period ticks so a
// long run does not hold every record in memory.
type FlushMonitor struct {
	Ctx     context.Context
	Sink    Flusher
	Period  int64
	Flushes int
}

// NewFlushMonitor creates a monitor; a non-positive period means one
// simulated day.
func NewFlushMonitor(ctx context.Context, w *World, sink Flusher, period int64) *FlushMonitor {
	if period <= 0 {
		period = w.Config.TicksPerDay()
	}
	return &FlushMonitor{Ctx: ctx, Sink: sink, Period: period}
}

func (m *FlushMonitor) Name() string { return "monitor:flush" }

func (m *FlushMonitor) Resume(s *Scheduler) (Wait, error) {
	if err := m.Sink.Flush(m.Ctx); err != nil {
		return Wait{}, fmt.Errorf("tick %d: %w", s.Now(), err)
	}
	m.Flushes++
	return Timeout(m.Period), nil
}

// CapacityMonitor checks venue bounds every Period ticks and fails the run
// on the first violation.
type CapacityMonitor struct {
	World  *World
	Period int64
	Checks int
}

func (m *CapacityMonitor) Name() string { return "monitor:capacity" }

func (m *CapacityMonitor) Resume(s *Scheduler) (Wait, error) {
	m.Checks++
	if err := m.World.CheckCapacity(); err != nil {
		return Wait{}, err
	}
	period := m.Period
	if period <= 0 {
		period = 1
	}
	return Timeout(period), nil
}

// CheckCapacity verifies |occupants| ≤ |holders| ≤ capacity for every
// bounded venue.
func (w *World) CheckCapacity() error {
	for _, cat := range Categories {
		for _, v := range w.Venues[cat] {
			if !v.Limited() {
				continue
			}
			if v.Holders() > v.Capacity || len(v.Occupants()) > v.Holders() {
				return fmt.Errorf("%w: %s occupants=%d holders=%d capacity=%d",
					ErrCapacityExceeded, v.ID, len(v.Occupants()), v.Holders(), v.Capacity)
			}
		}
	}
	return nil
}
