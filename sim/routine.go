package sim

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/episim/episim/sim/telemetry"
)

// Activity is what an agent sets out to do on one routine step.
type Activity string

const (
	ActivityHome     Activity = "home"
	ActivityWork     Activity = "work"
	ActivityShopping Activity = "shopping"
	ActivityExercise Activity = "exercise"
	ActivityLeisure  Activity = "leisure"
	ActivityHospital Activity = "hospital"
	ActivityICU      Activity = "hospital-icu"
)

func (act Activity) valid() bool {
	switch act {
	case ActivityHome, ActivityWork, ActivityShopping, ActivityExercise,
		ActivityLeisure, ActivityHospital, ActivityICU:
		return true
	}
	return false
}

// phase is the agent's suspension point.
type phase int

const (
	phaseRoutine   phase = iota // top of the daily loop
	phaseQueued                 // waiting for a venue slot
	phaseDwelling               // inside a venue until the timeout fires
	phaseSuspended              // never resumes
)

// Resume implements Process. The agent runs from its current suspension
// point to the next one:
//
//	routine → [queued →] dwelling → (home visit | next leisure stop) → routine …
func (a *Agent) Resume(s *Scheduler) (Wait, error) {
	switch a.phase {
	case phaseRoutine:
		return a.routine(s)
	case phaseQueued:
		// Release already granted the slot.
		return a.enter(s)
	case phaseDwelling:
		if err := a.leave(s); err != nil {
			return Wait{}, err
		}
		return a.afterVisit(s)
	default:
		return Wait{}, fmt.Errorf("%s resumed while suspended", a.Name())
	}
}

// routine is one pass of the daily loop: episode reporting, recovery
// resolution, invariant check, then activity dispatch.
func (a *Agent) routine(s *Scheduler) (Wait, error) {
	now := s.Now()
	a.reportEpisode(now)

	died, err := a.resolveRecovery(now)
	if err != nil {
		return Wait{}, err
	}
	if died {
		logrus.Debugf("[tick %07d] %s died", now, a.Name())
		return a.suspend(), nil
	}
	if err := a.observe(now); err != nil {
		return Wait{}, err
	}

	a.resetWeek(now)
	a.updateResting(now)
	return a.begin(s, a.chooseActivity(now))
}

func (a *Agent) suspend() Wait {
	a.phase = phaseSuspended
	return Forever()
}

func (a *Agent) resetWeek(now int64) {
	_, week := a.world.Timestamp(now).ISOWeek()
	if week != a.week {
		a.week = week
		a.shopsThisWeek = 0
		a.exerciseThisWk = 0
	}
}

// chooseActivity applies the fixed activity priority. Weekly counters are
// charged when the activity is chosen.
func (a *Agent) chooseActivity(now int64) Activity {
	if a.extremelySick(now) {
		return ActivityICU
	}
	if a.reallySick(now) {
		return ActivityHospital
	}
	if a.restingAtHome {
		return ActivityHome
	}

	t := a.world.Timestamp(now)
	hour, day := t.Hour(), t.Weekday()
	weekend := day == time.Saturday || day == time.Sunday
	mob := a.world.Config.Mobility

	switch {
	case !mob.WorkFromHome && !weekend && a.Workplace != nil && slices.Contains(a.Schedule.WorkHours, hour):
		return ActivityWork
	case a.Schedule.shoppingAt(day, hour) && a.shopsThisWeek < a.Schedule.MaxShopsPerWeek:
		a.shopsThisWeek++
		return ActivityShopping
	case a.Schedule.exerciseAt(day, hour) && a.exerciseThisWk < a.Schedule.MaxExercisePerWk:
		a.exerciseThisWk++
		return ActivityExercise
	case weekend && a.world.rng.Float64() < mob.LeisureProbability:
		return ActivityLeisure
	}
	return ActivityHome
}

// begin dispatches an activity to its first venue visit.
func (a *Agent) begin(s *Scheduler, act Activity) (Wait, error) {
	now := s.Now()
	a.activity = act
	logrus.Debugf("[tick %07d] %s → %s", now, a.Name(), act)

	switch act {
	case ActivityHome:
		return a.visit(s, a.Home, a.world.Config.Mobility.HomeMinutes)

	case ActivityWork:
		return a.visit(s, a.Workplace, a.habitMinutes(act))

	case ActivityShopping, ActivityExercise:
		cat := Store
		if act == ActivityExercise {
			cat = Park
		}
		venue, err := a.selectVenue(cat)
		if err != nil {
			return Wait{}, err
		}
		if venue == nil {
			return a.goHome(s)
		}
		return a.visit(s, venue, a.habitMinutes(act))

	case ActivityLeisure:
		a.leisureStops = 0
		a.pExplore = 1
		return a.leisureStep(s)

	case ActivityHospital, ActivityICU:
		cat := Hospital
		if act == ActivityICU {
			cat = HospitalICU
		}
		venue := a.nearestAvailable(cat)
		if venue == nil {
			// no care available: the agent never comes back
			logrus.Debugf("[tick %07d] %s found no %s capacity", now, a.Name(), cat)
			return a.suspend(), nil
		}
		return a.visit(s, venue, a.careMinutes(act, now))
	}
	return Wait{}, fmt.Errorf("%w: %q", ErrUnknownActivity, act)
}

func (a *Agent) goHome(s *Scheduler) (Wait, error) {
	a.activity = ActivityHome
	return a.visit(s, a.Home, a.world.Config.Mobility.HomeMinutes)
}

// leisureStep continues a random walk over misc venues: stop and go home
// with probability 1−p_exp, otherwise visit one more venue.
func (a *Agent) leisureStep(s *Scheduler) (Wait, error) {
	if a.world.rng.Float64() > a.pExplore {
		return a.goHome(s)
	}
	venue, err := a.selectVenue(Misc)
	if err != nil {
		return Wait{}, err
	}
	if venue == nil {
		return a.goHome(s)
	}
	mob := a.world.Config.Mobility
	adj, ok := mob.GammaAdjust[Misc]
	if !ok {
		adj = 1
	}
	a.leisureStops++
	a.pExplore = clampProbability(mob.Rho * math.Pow(float64(a.leisureStops), -mob.Gamma*adj))
	return a.visit(s, venue, a.habitMinutes(ActivityLeisure))
}

func (a *Agent) habitMinutes(act Activity) int {
	h, ok := a.habits[act]
	if !ok {
		return a.world.Config.Mobility.HomeMinutes
	}
	return h.Minutes(a.world.rng)
}

// careMinutes is the remaining recovery length for a hospital stay, or the
// viral plateau plus 1–3 days (weighted by preexisting conditions) in ICU.
func (a *Agent) careMinutes(act Activity, now int64) int {
	var days float64
	if act == ActivityHospital {
		days = a.Profile.RecoveryDays - a.daysSinceInfection(now)
	} else {
		weights := []float64{0.5, 0.3, 0.2}
		if len(a.Profile.Conditions) >= 2 {
			weights = []float64{0.2, 0.3, 0.5}
		}
		extra := float64(1 + pickWeighted(a.world.rng, weights))
		vl := a.Profile.ViralLoad
		days = vl.PlateauEnd - vl.PlateauStart + extra
	}
	return max(1, int(math.Ceil(days*24*60)))
}

// visit requests a slot at venue and enters it, or parks in its queue.
func (a *Agent) visit(s *Scheduler, venue *Location, minutes int) (Wait, error) {
	a.target = venue
	a.dwellMinutes = minutes
	if !venue.Acquire(a, s.Now()) {
		a.phase = phaseQueued
		logrus.Debugf("[tick %07d] %s queued at %s (%d waiting)", s.Now(), a.Name(), venue.ID, venue.Waiting())
		return Parked(), nil
	}
	return a.enter(s)
}

// enter adds the agent to its target venue, runs the contact model and
// starts the dwell timeout.
func (a *Agent) enter(s *Scheduler) (Wait, error) {
	now := s.Now()
	venue := a.target
	tickMinutes := a.world.Config.TickMinutes
	ticks := max(int64(1), int64(math.Ceil(float64(a.dwellMinutes)/float64(tickMinutes))))

	from := ""
	if a.location != nil {
		from = string(a.location.Category)
	}
	if err := venue.AddOccupant(a); err != nil {
		return Wait{}, err
	}
	a.location = venue
	a.visitStart = float64(now * int64(tickMinutes))
	a.visitEnd = a.visitStart + float64(ticks*int64(tickMinutes))
	a.phase = phaseDwelling

	a.world.Tracker.RecordTrip(telemetry.TripRecord{
		Agent:     a.ID,
		From:      from,
		To:        string(venue.Category),
		Venue:     venue.ID,
		Hour:      a.world.Timestamp(now).Hour(),
		EnterTick: now,
		LeaveTick: now + ticks,
	})

	if err := a.world.evaluateContacts(a, venue, now); err != nil {
		return Wait{}, err
	}
	return Timeout(ticks), nil
}

// leave evaluates environmental exposure and frees the venue.
func (a *Agent) leave(s *Scheduler) error {
	now := s.Now()
	venue := a.target
	if err := a.world.environmentalExposure(a, venue, now); err != nil {
		return err
	}
	if err := venue.RemoveOccupant(a); err != nil {
		return err
	}
	venue.Release(a, s)
	return nil
}

// afterVisit picks the continuation once a dwell ends.
func (a *Agent) afterVisit(s *Scheduler) (Wait, error) {
	switch a.activity {
	case ActivityHome:
		a.phase = phaseRoutine
		return a.routine(s)
	case ActivityLeisure:
		return a.leisureStep(s)
	default:
		return a.goHome(s)
	}
}
