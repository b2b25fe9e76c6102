// Aggregates run-level epidemic metrics for final reporting:
// final compartments, epidemic peak, attack rate and scheduler activity.

package sim

import (
	"fmt"
	"io"
	"time"

	"github.com/episim/episim/sim/telemetry"
)

// Metrics aggregates statistics about a finished run for final reporting.
type Metrics struct {
	RunID          string
	Population     int
	Final          Tally
	PeakInfectious int   // max infectious count across monitor samples
	PeakTick       int64 // tick of the first sample at the peak
	AttackRate     float64
	Resumptions    int64
	Suspended      int

	Telemetry *telemetry.Summary // nil when no in-memory log was kept
}

// NewMetrics derives Metrics from a run result. The attack rate counts
// every agent that left the susceptible compartment at least once.
func NewMetrics(res *Result, population int, summary *telemetry.Summary) *Metrics {
	m := &Metrics{
		Population:  population,
		Final:       res.Final,
		Resumptions: res.Resumptions,
		Suspended:   res.Suspended,
		Telemetry:   summary,
	}
	for _, t := range append(res.Series, res.Final) {
		if t.Infectious > m.PeakInfectious {
			m.PeakInfectious = t.Infectious
			m.PeakTick = t.Tick
		}
	}
	if population > 0 {
		m.AttackRate = float64(population-res.Final.Susceptible) / float64(population)
	}
	return m
}

// Print writes the aggregated metrics in a human-readable block.
func (m *Metrics) Print(w io.Writer, horizon int64, startTime time.Time) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	if m.RunID != "" {
		fmt.Fprintf(w, "Run ID               : %s\n", m.RunID)
	}
	fmt.Fprintf(w, "Agents               : %d\n", m.Population)
	fmt.Fprintf(w, "Horizon              : %d ticks\n", horizon)
	fmt.Fprintf(w, "Final SEIR           : %s\n", m.Final)
	fmt.Fprintf(w, "Peak Infectious      : %d (tick %d)\n", m.PeakInfectious, m.PeakTick)
	fmt.Fprintf(w, "Attack Rate          : %.2f%%\n", 100*m.AttackRate)
	fmt.Fprintf(w, "Resumptions          : %d\n", m.Resumptions)
	fmt.Fprintf(w, "Suspended Agents     : %d\n", m.Suspended)
	if s := m.Telemetry; s != nil {
		fmt.Fprintf(w, "Encounters           : %d\n", s.Encounters)
		fmt.Fprintf(w, "Infections (h/env)   : %d/%d\n", s.HumanInfections, s.EnvInfections)
		fmt.Fprintf(w, "Symptom Onsets       : %d\n", s.SymptomOnsets)
		fmt.Fprintf(w, "Tests (positive)     : %d (%d)\n", s.Tests, s.PositiveTests)
		fmt.Fprintf(w, "Recoveries (deaths)  : %d (%d)\n", s.Recoveries, s.Deaths)
		fmt.Fprintf(w, "Mean Infectious Contacts : %.2f\n", s.MeanInfectiousCount)
		fmt.Fprintf(w, "Trips                : %d\n", s.Trips)
	}
	fmt.Fprintf(w, "Wall Time            : %s\n", time.Since(startTime).Round(time.Millisecond))
}
