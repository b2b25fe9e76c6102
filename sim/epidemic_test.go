package sim

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = int64(24 * 60)

func TestState_DerivedFromTimestamps(t *testing.T) {
	// GIVEN an agent infected at tick 0 with incubation 2 days and onset 1 day
	w, _ := newTestWorld(t, quietConfig())
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	a := mustAgent(t, w, plainProfile(), home, WeeklySchedule{}, true)

	// THEN it is exposed for the first day and infectious afterwards
	assert.Equal(t, Exposed, a.State(0))
	assert.Equal(t, Exposed, a.State(day-1))
	assert.Equal(t, Infectious, a.State(day))
	assert.Equal(t, Infectious, a.State(9*day))

	b := mustAgent(t, w, plainProfile(), home, WeeklySchedule{}, false)
	assert.Equal(t, Susceptible, b.State(0))
}

func TestObserve_RejectsIllegalTransition(t *testing.T) {
	w, _ := newTestWorld(t, quietConfig())
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	a := mustAgent(t, w, plainProfile(), home, WeeklySchedule{}, false)

	// GIVEN an agent last seen Susceptible that is now Infectious (E skipped)
	a.infectedAt = 0

	// WHEN observed past the exposed window
	err := a.observe(2 * day)

	// THEN the jump is rejected
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestObserve_RejectsOverlappingCompartments(t *testing.T) {
	w, _ := newTestWorld(t, quietConfig())
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	a := mustAgent(t, w, plainProfile(), home, WeeklySchedule{}, true)

	// infected and removed at once
	a.recoveredAt = RemovedTick

	assert.Equal(t, StateInconsistent, a.State(0))
	assert.True(t, errors.Is(a.observe(0), ErrInvalidTransition))
}

func TestObserve_FollowsLegalPath(t *testing.T) {
	w, _ := newTestWorld(t, quietConfig())
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	a := mustAgent(t, w, plainProfile(), home, WeeklySchedule{}, false)

	require.NoError(t, a.infect(10))
	assert.Equal(t, Exposed, a.lastState)
	require.NoError(t, a.observe(10+day))
	assert.Equal(t, Infectious, a.lastState)
}

func TestViralLoad_Piecewise(t *testing.T) {
	w, _ := newTestWorld(t, quietConfig())
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	a := mustAgent(t, w, plainProfile(), home, WeeklySchedule{}, true)
	// curve: height 1, plateau [0.5, 3), zero at 8

	assert.InDelta(t, 0.0, a.ViralLoad(0), 1e-9)
	assert.InDelta(t, 0.5, a.ViralLoad(day/4), 1e-9)
	assert.InDelta(t, 1.0, a.ViralLoad(2*day), 1e-9)
	assert.InDelta(t, 0.5, a.ViralLoad(day*11/2), 1e-9)
	assert.InDelta(t, 0.0, a.ViralLoad(20*day), 1e-9)

	b := mustAgent(t, w, plainProfile(), home, WeeklySchedule{}, false)
	assert.Zero(t, b.ViralLoad(5*day))
}

func TestFeeling_Levels(t *testing.T) {
	w, _ := newTestWorld(t, quietConfig())
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	p := plainProfile()
	p.Symptoms = [][]string{{}, {"runny_nose"}, {"cough", "runny_nose"}, {"fever"}, {"trouble_breathing"}, {"sneezing"}}
	a := mustAgent(t, w, p, home, WeeklySchedule{}, true)

	want := []float64{1.0, 0.7, 0.5, 0.3, 0.0, 0.9}
	for d, f := range want {
		assert.InDelta(t, f, a.Feeling(int64(d)*day), 1e-9, "day %d", d)
	}

	p.Asymptomatic = true
	silent := mustAgent(t, w, p, home, WeeklySchedule{}, true)
	assert.Equal(t, 1.0, silent.Feeling(4*day))
}

func TestUpdateResting_HysteresisClearsWithEpisode(t *testing.T) {
	// GIVEN an agent whose first sick day is severe (feeling 0 always rests)
	w, _ := newTestWorld(t, quietConfig())
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	p := plainProfile()
	p.Symptoms = [][]string{{"severe"}, {"cough"}}
	a := mustAgent(t, w, p, home, WeeklySchedule{}, true)

	a.updateResting(0)
	require.True(t, a.RestingAtHome())

	// WHEN feeling improves but is not yet 1.0
	a.updateResting(day)

	// THEN the flag sticks
	assert.True(t, a.RestingAtHome())

	// WHEN symptoms are gone
	a.updateResting(5 * day)
	assert.False(t, a.RestingAtHome())

	// THEN a reinfection starts a fresh episode that rests again
	a.infectedAt = 5 * day
	a.updateResting(5 * day)
	assert.True(t, a.RestingAtHome())
}

func TestResolveRecovery_ImmunePolicy(t *testing.T) {
	cfg := quietConfig()
	cfg.Epidemic.ImmuneAfterRecovery = true
	w, log := newTestWorld(t, cfg)
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	a := mustAgent(t, w, plainProfile(), home, WeeklySchedule{}, true)
	require.NoError(t, a.observe(day))

	// not yet due
	died, err := a.resolveRecovery(9 * day)
	require.NoError(t, err)
	assert.False(t, died)
	assert.Equal(t, Infectious, a.State(9*day))

	died, err = a.resolveRecovery(10 * day)
	require.NoError(t, err)
	assert.False(t, died)
	assert.Equal(t, Removed, a.State(10*day))
	assert.True(t, a.Immune)
	require.Len(t, log.Recoveries, 1)
	assert.False(t, log.Recoveries[0].Died)
	assert.InDelta(t, 9.0, log.Recoveries[0].DurationDays, 1e-9)
}

func TestResolveRecovery_ReinfectionPolicy(t *testing.T) {
	cfg := quietConfig()
	cfg.Epidemic.ImmuneAfterRecovery = false
	w, _ := newTestWorld(t, cfg)
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	p := plainProfile()
	p.PNeverRecovers = 1
	a := mustAgent(t, w, p, home, WeeklySchedule{}, true)
	require.NoError(t, a.observe(day))

	died, err := a.resolveRecovery(10 * day)
	require.NoError(t, err)

	// THEN the agent is susceptible again with a fresh never-recovers draw
	assert.False(t, died)
	assert.Equal(t, Susceptible, a.State(10*day))
	assert.Equal(t, 10*day, a.RecoveredAt())
	assert.True(t, a.Profile.NeverRecovers)
}

func TestResolveRecovery_NeverRecovers(t *testing.T) {
	w, log := newTestWorld(t, quietConfig())
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	p := plainProfile()
	p.NeverRecovers = true
	a := mustAgent(t, w, p, home, WeeklySchedule{}, true)
	require.NoError(t, a.observe(day))

	died, err := a.resolveRecovery(10 * day)
	require.NoError(t, err)
	assert.True(t, died)
	assert.Equal(t, Removed, a.State(10*day))
	assert.False(t, a.Immune)
	require.Len(t, log.Recoveries, 1)
	assert.True(t, log.Recoveries[0].Died)
}

func TestReportEpisode_SymptomThenTest(t *testing.T) {
	cfg := quietConfig()
	cfg.Epidemic.PTest = 1
	cfg.Epidemic.PFalseNegative = 0
	cfg.Epidemic.TestDays = 1
	w, log := newTestWorld(t, cfg)
	home := mustVenue(t, w, "h0", Household, Unlimited, 0, 0, 10)
	p := plainProfile()
	p.Symptoms = [][]string{{}, {}, {"fever"}, {"fever"}, {"cough"}}
	a := mustAgent(t, w, p, home, WeeklySchedule{}, true)

	a.reportEpisode(day)
	assert.Empty(t, log.Symptoms)

	a.reportEpisode(2 * day)
	require.Len(t, log.Symptoms, 1)
	assert.Equal(t, 2*day, log.Symptoms[0].Tick)

	a.reportEpisode(3 * day) // exactly TestDays later: not yet
	assert.Empty(t, log.Tests)

	a.reportEpisode(3*day + 1)
	require.Len(t, log.Tests, 1)
	assert.Equal(t, "positive", string(log.Tests[0].Result))

	a.reportEpisode(4 * day)
	assert.Len(t, log.Tests, 1)
	assert.Len(t, log.Symptoms, 1)
}

// Property: any combination of timestamps reachable through infect and
// resolveRecovery leaves the agent in exactly one compartment.
func TestState_ExactlyOneCompartment_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	cfg := quietConfig()

	properties.Property("derived state is never inconsistent", prop.ForAll(
		func(incubation, recovery float64, infectedAt, offset int64, immune, dies bool) bool {
			w, err := NewEmptyWorld(cfg, nil)
			if err != nil {
				return false
			}
			home, _ := w.AddVenue("h", Household, Unlimited, 0, 0, 10)
			p := plainProfile()
			p.IncubationDays = incubation
			p.RecoveryDays = incubation + recovery
			p.NeverRecovers = dies
			a, err := w.AddAgent(p, home, nil, WeeklySchedule{}, false)
			if err != nil {
				return false
			}
			w.Config.Epidemic.ImmuneAfterRecovery = immune

			if err := a.infect(infectedAt); err != nil {
				return false
			}
			now := infectedAt + offset
			if a.State(now) == StateInconsistent {
				return false
			}
			if err := a.observe(now); err != nil {
				return false
			}
			if _, err := a.resolveRecovery(now); err != nil {
				return false
			}
			return a.State(now) != StateInconsistent && a.State(now+offset) != StateInconsistent
		},
		gen.Float64Range(1.01, 10),
		gen.Float64Range(0, 20),
		gen.Int64Range(0, 100*day),
		gen.Int64Range(0, 40*day),
		gen.Bool(),
		gen.Bool(),
	))

	properties.Property("viral load stays within [0, plateau height]", prop.ForAll(
		func(height, start, plateau, decline float64, offset int64) bool {
			w, err := NewEmptyWorld(cfg, nil)
			if err != nil {
				return false
			}
			home, _ := w.AddVenue("h", Household, Unlimited, 0, 0, 10)
			p := plainProfile()
			p.ViralLoad = ViralLoadCurve{
				PlateauHeight: height,
				PlateauStart:  start,
				PlateauEnd:    start + plateau,
				Recovered:     start + plateau + decline,
			}
			a, err := w.AddAgent(p, home, nil, WeeklySchedule{}, true)
			if err != nil {
				return false
			}
			v := a.ViralLoad(offset)
			return v >= 0 && v <= height+1e-9
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0.1, 5),
		gen.Float64Range(0, 5),
		gen.Float64Range(0, 10),
		gen.Int64Range(0, 60*day),
	))

	properties.Property("transmission probability is a probability", prop.ForAll(
		func(knob, ratio float64, asymptomatic bool, offset int64) bool {
			c := cfg
			c.Epidemic.ContagionKnob = knob
			w, err := NewEmptyWorld(c, nil)
			if err != nil {
				return false
			}
			home, _ := w.AddVenue("h", Household, Unlimited, 0, 0, 10)
			p := plainProfile()
			p.Asymptomatic = asymptomatic
			p.AsymptomaticRatio = ratio
			a, err := w.AddAgent(p, home, nil, WeeklySchedule{}, true)
			if err != nil {
				return false
			}
			q := w.TransmissionProbability(a, offset)
			return q >= 0 && q <= 1
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 2),
		gen.Bool(),
		gen.Int64Range(0, 30*day),
	))

	properties.TestingRun(t)
}
