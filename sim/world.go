package sim

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/episim/episim/sim/telemetry"
)

// World owns the venue catalog and the population, and composes the
// scheduler, venue pools, selector and contact model into one run.
type World struct {
	Config    Config
	Scheduler *Scheduler
	Tracker   telemetry.Tracker
	Venues    map[Category][]*Location
	Agents    []*Agent
	Monitors  []Monitor

	rngs       *PartitionedRNG
	rng        *rand.Rand // shared dynamics stream
	registered bool
}

// NewEmptyWorld creates a world without venues or agents. A nil tracker
// discards telemetry.
func NewEmptyWorld(cfg Config, tracker telemetry.Tracker) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if tracker == nil {
		tracker = telemetry.Discard{}
	}
	rngs := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	return &World{
		Config:    cfg,
		Scheduler: NewScheduler(),
		Tracker:   tracker,
		Venues:    make(map[Category][]*Location),
		rngs:      rngs,
		rng:       rngs.ForSubsystem(SubsystemDynamics),
	}, nil
}

// NewWorld builds a city from the configuration: venues laid out uniformly
// at random, agents sampled from sampler, households and workplaces
// assigned at random, and the first InitialInfectedFraction of agents
// infected at tick zero.
func NewWorld(cfg Config, sampler Sampler, tracker telemetry.Tracker) (*World, error) {
	w, err := NewEmptyWorld(cfg, tracker)
	if err != nil {
		return nil, err
	}
	city := cfg.City

	households := int(math.Ceil(float64(city.Population) / float64(city.HouseholdSize)))
	workplaces := int(math.Ceil(float64(city.Population) / float64(city.PeoplePerWorkplace)))
	layout := []struct {
		cat      Category
		n        int
		capacity int
	}{
		{Household, households, Unlimited},
		{Workplace, workplaces, Unlimited},
		{Store, city.Stores, city.StoreCapacity},
		{Park, city.Parks, Unlimited},
		{Misc, city.Miscs, city.MiscCapacity},
		{Hospital, city.Hospitals, city.HospitalCapacity},
	}
	layoutRNG := w.rngs.ForSubsystem(SubsystemCity)
	for _, l := range layout {
		if err := w.layOut(layoutRNG, l.cat, l.n, l.capacity); err != nil {
			return nil, err
		}
	}
	// one ICU per hospital, co-located
	for i, h := range w.Venues[Hospital] {
		area := w.meanArea(HospitalICU, len(w.Venues[Hospital]))
		if _, err := w.AddVenue(fmt.Sprintf("%s%d", HospitalICU, i), HospitalICU, city.ICUCapacity, h.X, h.Y, area); err != nil {
			return nil, err
		}
	}

	if city.Hospitals == 0 || city.ICUCapacity == 0 {
		logrus.Warnf("No hospital or ICU capacity: agents needing care will be suspended")
	}

	popRNG := w.rngs.ForSubsystem(SubsystemPopulation)
	nInfected := int(math.Round(float64(city.Population) * city.InitialInfectedFraction))
	for i := 0; i < city.Population; i++ {
		profile := sampler.Sample(popRNG, i)
		home := w.Venues[Household][popRNG.Intn(households)]
		var work *Location
		if workplaces > 0 {
			work = w.Venues[Workplace][popRNG.Intn(workplaces)]
		}
		schedule := NewWeeklySchedule(popRNG, cfg.Mobility)
		if _, err := w.AddAgent(profile, home, work, schedule, i < nInfected); err != nil {
			return nil, err
		}
	}

	logrus.Infof("World ready: %d agents, %d households, %d workplaces, %d stores, %d parks, %d miscs, %d hospitals, %d initially infected",
		len(w.Agents), households, workplaces, city.Stores, city.Parks, city.Miscs, city.Hospitals, nInfected)
	return w, nil
}

func (w *World) meanArea(cat Category, n int) float64 {
	if n == 0 {
		return 0
	}
	share := w.Config.City.AreaShare[cat]
	return share * w.Config.City.Width * w.Config.City.Height / float64(n)
}

// layOut places n venues of cat at uniform positions; each area is the
// category's mean area scaled by a factor in [0.5, 1.5).
func (w *World) layOut(rng *rand.Rand, cat Category, n, capacity int) error {
	mean := w.meanArea(cat, n)
	for i := 0; i < n; i++ {
		x := rng.Float64() * w.Config.City.Width
		y := rng.Float64() * w.Config.City.Height
		area := mean * (0.5 + rng.Float64())
		if _, err := w.AddVenue(fmt.Sprintf("%s%d", cat, i), cat, capacity, x, y, area); err != nil {
			return err
		}
	}
	return nil
}

// AddVenue appends a venue to the catalog. Its contamination probability
// comes from the category's configured hazard.
func (w *World) AddVenue(id string, cat Category, capacity int, x, y, area float64) (*Location, error) {
	if _, err := ParseCategory(string(cat)); err != nil {
		return nil, err
	}
	if capacity < 0 && capacity != Unlimited {
		return nil, fmt.Errorf("venue %s: capacity must be >= 0 or Unlimited, got %d", id, capacity)
	}
	if capacity == 0 && cat != Hospital && cat != HospitalICU {
		return nil, fmt.Errorf("venue %s: %s capacity must be > 0", id, cat)
	}
	v := NewLocation(id, cat, capacity, x, y, area, w.Config.City.Contamination[cat])
	w.Venues[cat] = append(w.Venues[cat], v)
	return v, nil
}

// AddAgent creates an agent with the next id. Habits are drawn from the
// population stream. When infected is true the infection starts at tick zero.
func (w *World) AddAgent(p Profile, home, work *Location, schedule WeeklySchedule, infected bool) (*Agent, error) {
	if w.registered {
		return nil, fmt.Errorf("cannot add agents after the run started")
	}
	if home == nil || home.Category != Household || home.Limited() {
		return nil, fmt.Errorf("agent %d: home must be an unlimited household", len(w.Agents))
	}
	if p.IncubationDays <= w.Config.Epidemic.InfectiousnessOnsetDays {
		return nil, fmt.Errorf("agent %d: incubation %.2f days must exceed infectiousness onset %.2f days",
			len(w.Agents), p.IncubationDays, w.Config.Epidemic.InfectiousnessOnsetDays)
	}

	popRNG := w.rngs.ForSubsystem(SubsystemPopulation)
	habits := make(map[Activity]Habit, len(w.Config.Habits))
	for _, act := range []Activity{ActivityWork, ActivityShopping, ActivityExercise, ActivityLeisure} {
		if d, ok := w.Config.Habits[act]; ok {
			habits[act] = d.NewHabit(popRNG)
		}
	}

	a := &Agent{
		ID:           len(w.Agents),
		Profile:      p,
		Home:         home,
		Workplace:    work,
		Schedule:     schedule,
		world:        w,
		habits:       habits,
		infectedAt:   NoTick,
		recoveredAt:  NoTick,
		symptomStart: NoTick,
		location:     home,
		feelingFloor: 1.0,
		visits:       make(map[Category]*visitTable),
		phase:        phaseRoutine,
	}
	if infected {
		a.infectedAt = w.Now()
	}
	a.lastState = a.State(w.Now())
	if a.lastState == StateInconsistent {
		return nil, fmt.Errorf("%w: %s created in no single state", ErrInvalidTransition, a.Name())
	}
	w.Agents = append(w.Agents, a)
	return a, nil
}

// AddMonitor registers an observer process that runs after the agents.
func (w *World) AddMonitor(m Monitor) {
	w.Monitors = append(w.Monitors, m)
}

// Now returns the current tick.
func (w *World) Now() int64 { return w.Scheduler.Now() }

// Timestamp converts a tick to wall-clock simulated time.
func (w *World) Timestamp(tick int64) time.Time {
	return w.Config.Start.Add(time.Duration(tick*int64(w.Config.TickMinutes)) * time.Minute)
}

// Register hands every agent, then every monitor, to the scheduler in
// creation order. It is idempotent.
func (w *World) Register() {
	if w.registered {
		return
	}
	w.registered = true
	for _, a := range w.Agents {
		w.Scheduler.Register(a)
	}
	for _, m := range w.Monitors {
		w.Scheduler.Register(m)
	}
}

// RunUntil registers processes if needed and advances the scheduler to tick
// until. It may be called repeatedly with increasing horizons.
func (w *World) RunUntil(until int64) error {
	w.Register()
	return w.Scheduler.Run(until)
}

// Result is what a completed run exposes.
type Result struct {
	Final       Tally
	Series      []Tally // from the SEIR monitor, if attached
	Resumptions int64
	Suspended   int
}

// Run executes the simulation to the configured horizon.
func (w *World) Run() (*Result, error) {
	horizon := w.Config.Horizon()
	logrus.Infof("Starting simulation: %d agents, horizon=%d ticks (%d days × %d ticks/day), seed=%d",
		len(w.Agents), horizon, w.Config.Days, w.Config.TicksPerDay(), w.Config.Seed)

	if err := w.RunUntil(horizon); err != nil {
		return nil, err
	}

	res := &Result{
		Final:       w.Tally(),
		Resumptions: w.Scheduler.Resumptions(),
		Suspended:   w.Scheduler.Suspended(),
	}
	for _, m := range w.Monitors {
		if seir, ok := m.(*SEIRMonitor); ok {
			res.Series = seir.Series
		}
	}
	logrus.Infof("Simulation complete at tick %d: %s", w.Now(), res.Final)
	return res, nil
}

// Tally counts agents per compartment at the current tick.
func (w *World) Tally() Tally {
	now := w.Now()
	t := Tally{Tick: now}
	for _, a := range w.Agents {
		switch a.State(now) {
		case Susceptible:
			t.Susceptible++
		case Exposed:
			t.Exposed++
		case Infectious:
			t.Infectious++
		case Removed:
			t.Removed++
		}
	}
	return t
}
