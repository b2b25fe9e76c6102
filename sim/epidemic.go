package sim

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/episim/episim/sim/telemetry"
)

// State is an SEIR compartment. It is never stored: State(now) derives it
// from the infection and recovery timestamps.
type State int

const (
	// StateInconsistent means not exactly one compartment holds.
	StateInconsistent State = iota - 1
	Susceptible
	Exposed
	Infectious
	Removed
)

func (s State) String() string {
	switch s {
	case Susceptible:
		return "S"
	case Exposed:
		return "E"
	case Infectious:
		return "I"
	case Removed:
		return "R"
	default:
		return "?"
	}
}

// legalTransitions lists the compartments reachable from each compartment.
var legalTransitions = map[State][]State{
	Susceptible: {Exposed},
	Exposed:     {Infectious},
	Infectious:  {Susceptible, Removed},
}

func (a *Agent) epi() EpidemicConfig { return a.world.Config.Epidemic }

// daysSinceInfection returns elapsed simulated days, or 0 when not infected.
func (a *Agent) daysSinceInfection(now int64) float64 {
	if a.infectedAt == NoTick {
		return 0
	}
	return float64(now-a.infectedAt) * float64(a.world.Config.TickMinutes) / (24 * 60)
}

func (a *Agent) infectiousAfterDays() float64 {
	return a.Profile.IncubationDays - a.epi().InfectiousnessOnsetDays
}

// compartments evaluates each SEIR predicate independently.
func (a *Agent) compartments(now int64) (s, e, i, r bool) {
	infected := a.infectedAt != NoTick
	e = infected && a.daysSinceInfection(now) < a.infectiousAfterDays()
	i = infected && a.daysSinceInfection(now) >= a.infectiousAfterDays()
	r = a.recoveredAt == RemovedTick
	s = !e && !i && !r && !a.Immune
	return s, e, i, r
}

// State returns the agent's compartment at tick now. It is the single query
// used by scheduling decisions, the contact model and invariant checks.
func (a *Agent) State(now int64) State {
	s, e, i, r := a.compartments(now)
	n := 0
	state := StateInconsistent
	for idx, held := range []bool{s, e, i, r} {
		if held {
			n++
			state = State(idx)
		}
	}
	if n != 1 {
		return StateInconsistent
	}
	return state
}

// observe checks that exactly one compartment holds and that the change
// since the last observation is legal.
func (a *Agent) observe(now int64) error {
	cur := a.State(now)
	if cur == StateInconsistent {
		s, e, i, r := a.compartments(now)
		return fmt.Errorf("%w: %s holds S=%t E=%t I=%t R=%t", ErrInvalidTransition, a.Name(), s, e, i, r)
	}
	if cur == a.lastState {
		return nil
	}
	if !slices.Contains(legalTransitions[a.lastState], cur) {
		return fmt.Errorf("%w: %s %s→%s", ErrInvalidTransition, a.Name(), a.lastState, cur)
	}
	logrus.Debugf("[tick %07d] %s %s→%s", now, a.Name(), a.lastState, cur)
	a.lastState = cur
	return nil
}

// ViralLoad returns the current viral load, never negative.
func (a *Agent) ViralLoad(now int64) float64 {
	if a.infectedAt == NoTick {
		return 0
	}
	c := a.Profile.ViralLoad
	t := a.daysSinceInfection(now)

	var load float64
	switch {
	case t < c.PlateauStart:
		load = c.PlateauHeight * t / c.PlateauStart
	case t < c.PlateauEnd:
		load = c.PlateauHeight
	case c.Recovered > c.PlateauEnd:
		load = c.PlateauHeight - c.PlateauHeight*(t-c.PlateauEnd)/(c.Recovered-c.PlateauEnd)
	default:
		load = 0
	}
	if load < 0 {
		return 0
	}
	return load
}

// Symptoms returns the symptoms of the current sickness day.
func (a *Agent) Symptoms(now int64) []string {
	if a.infectedAt == NoTick || a.Profile.Asymptomatic {
		return nil
	}
	day := int(a.daysSinceInfection(now))
	if day < 0 || day >= len(a.Profile.Symptoms) {
		return nil
	}
	return a.Profile.Symptoms[day]
}

func (a *Agent) hasSymptom(now int64, name string) bool {
	return slices.Contains(a.Symptoms(now), name)
}

func (a *Agent) reallySick(now int64) bool {
	return a.Profile.ReallySick && a.hasSymptom(now, "severe")
}

func (a *Agent) extremelySick(now int64) bool {
	return a.Profile.ExtremelySick && a.hasSymptom(now, "severe")
}

// incubated reports a symptomatic infection past its incubation length.
func (a *Agent) incubated(now int64) bool {
	return !a.Profile.Asymptomatic && a.infectedAt != NoTick &&
		a.daysSinceInfection(now) >= a.Profile.IncubationDays
}

// feelingLevels maps symptom groups to a feeling score, worst first.
var feelingLevels = []struct {
	symptoms []string
	score    float64
}{
	{[]string{"severe", "extremely_severe", "trouble_breathing"}, 0.0},
	{[]string{"moderate", "mild", "fever"}, 0.3},
	{[]string{"cough", "fatigue", "gastro", "aches"}, 0.5},
	{[]string{"runny_nose", "loss_of_taste"}, 0.7},
}

// Feeling scores current health from 1.0 (no symptoms) down to 0.0.
func (a *Agent) Feeling(now int64) float64 {
	current := a.Symptoms(now)
	if len(current) == 0 {
		return 1.0
	}
	for _, level := range feelingLevels {
		for _, s := range level.symptoms {
			if slices.Contains(current, s) {
				return level.score
			}
		}
	}
	return 0.9
}

// updateResting applies the stay-home hysteresis. Each time feeling drops
// below the lowest level seen in this episode, a not-yet-resting agent takes
// one draw to start resting. The flag and the floor clear only when feeling
// returns to 1.0, so a reinfection starts a fresh episode.
func (a *Agent) updateResting(now int64) {
	f := a.Feeling(now)
	if f >= 1.0 {
		a.restingAtHome = false
		a.feelingFloor = 1.0
		return
	}
	if f >= a.feelingFloor {
		return
	}
	a.feelingFloor = f
	if !a.restingAtHome && a.world.rng.Float64() >= f {
		a.restingAtHome = true
		logrus.Debugf("[tick %07d] %s rests at home (feeling %.1f)", now, a.Name(), f)
	}
}

// reportEpisode reports symptom onset and, TestDays later, a test.
func (a *Agent) reportEpisode(now int64) {
	if a.incubated(now) && !a.symptomsLogged {
		a.symptomStart = now
		a.symptomsLogged = true
		a.world.Tracker.RecordSymptomOnset(telemetry.SymptomRecord{Agent: a.ID, Tick: now})
	}
	if a.symptomsLogged && !a.testLogged && a.infectedAt != NoTick {
		elapsed := float64(now-a.symptomStart) * float64(a.world.Config.TickMinutes) / (24 * 60)
		if elapsed > a.epi().TestDays {
			a.testLogged = true
			a.administerTest(now)
		}
	}
}

func (a *Agent) administerTest(now int64) {
	if len(a.Symptoms(now)) == 0 || !bernoulli(a.world.rng, a.epi().PTest) {
		return
	}
	result := telemetry.TestPositive
	if bernoulli(a.world.rng, a.epi().PFalseNegative) {
		result = telemetry.TestNegative
	}
	a.world.Tracker.RecordTest(telemetry.TestRecord{Agent: a.ID, Tick: now, Result: result, Kind: "lab"})
}

// resolveRecovery ends an infectious episode once the recovery length has
// elapsed. It returns true when the agent died.
//
// The fresh NeverRecovers draw for a future reinfection happens strictly
// after the Susceptible/Removed transition has been observed.
func (a *Agent) resolveRecovery(now int64) (bool, error) {
	if a.State(now) != Infectious || a.daysSinceInfection(now) < a.Profile.RecoveryDays {
		return false, nil
	}
	// A long stay can hide the E→I step; record it before leaving I.
	if err := a.observe(now); err != nil {
		return false, err
	}

	died := a.Profile.NeverRecovers
	switch {
	case died:
		a.recoveredAt = RemovedTick
	case a.epi().ImmuneAfterRecovery:
		a.recoveredAt = RemovedTick
		a.Immune = true
	default:
		a.recoveredAt = now
	}
	a.infectedAt = NoTick
	if err := a.observe(now); err != nil {
		return false, err
	}

	a.world.Tracker.RecordRecovery(telemetry.RecoveryRecord{
		Agent:              a.ID,
		Tick:               now,
		InfectiousContacts: a.infectiousContacts,
		DurationDays:       a.Profile.RecoveryDays - a.infectiousAfterDays(),
		Died:               died,
	})
	a.infectiousContacts = 0
	a.symptomsLogged = false
	a.testLogged = false

	if !died {
		a.Profile.NeverRecovers = bernoulli(a.world.rng, a.Profile.PNeverRecovers)
	}
	return died, nil
}

// infect starts an infection at tick now.
func (a *Agent) infect(now int64) error {
	a.infectedAt = now
	return a.observe(now)
}
