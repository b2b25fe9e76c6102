package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/episim/episim/sim/telemetry"
)

// monday is 2020-03-02 00:00 UTC.
var monday = time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)

// quietConfig returns a one-minute-tick config where agents stay home
// unless their schedule says otherwise, with no environmental hazard.
func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Days = 2
	cfg.TickMinutes = 1
	cfg.Start = monday
	cfg.Mobility.WorkFromHome = true
	cfg.Mobility.LeisureProbability = 0
	cfg.City.Contamination = map[Category]float64{}
	cfg.Epidemic.EnvironmentalKnob = 0
	cfg.Habits = map[Activity]HabitDist{
		ActivityShopping: {Mean: 30},
		ActivityExercise: {Mean: 45},
		ActivityWork:     {Mean: 480},
		ActivityLeisure:  {Mean: 60},
	}
	return cfg
}

// plainProfile is a symptom-free course: infectious after one day,
// resolved after ten.
func plainProfile() Profile {
	return Profile{
		Age:            40,
		IncubationDays: 2,
		RecoveryDays:   10,
		ViralLoad:      ViralLoadCurve{PlateauHeight: 1, PlateauStart: 0.5, PlateauEnd: 3, Recovered: 8},
	}
}

func newTestWorld(t *testing.T, cfg Config) (*World, *telemetry.Log) {
	t.Helper()
	log := telemetry.NewLog()
	w, err := NewEmptyWorld(cfg, log)
	require.NoError(t, err)
	return w, log
}

func mustVenue(t *testing.T, w *World, id string, cat Category, capacity int, x, y, area float64) *Location {
	t.Helper()
	v, err := w.AddVenue(id, cat, capacity, x, y, area)
	require.NoError(t, err)
	return v
}

func mustAgent(t *testing.T, w *World, p Profile, home *Location, ws WeeklySchedule, infected bool) *Agent {
	t.Helper()
	a, err := w.AddAgent(p, home, nil, ws, infected)
	require.NoError(t, err)
	return a
}

// recordingProcess logs every resumption and sleeps for a fixed step.
type recordingProcess struct {
	name  string
	step  int64
	log   *[]string
	stops int // resumptions before suspending forever; 0 = never
	count int
}

func (p *recordingProcess) Name() string { return p.name }

func (p *recordingProcess) Resume(s *Scheduler) (Wait, error) {
	*p.log = append(*p.log, p.name)
	p.count++
	if p.stops > 0 && p.count >= p.stops {
		return Forever(), nil
	}
	return Timeout(p.step), nil
}
