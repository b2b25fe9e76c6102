package sim

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"
)

const (
	// NoTick marks an absent timestamp.
	NoTick int64 = math.MinInt64
	// RemovedTick is the recovered-timestamp sentinel for permanent removal.
	RemovedTick int64 = math.MaxInt64
)

// ViralLoadCurve is a piecewise-linear viral load: it rises from zero to
// PlateauHeight at PlateauStart, holds until PlateauEnd, then decays linearly
// to zero at Recovered. Times are days since infection.
type ViralLoadCurve struct {
	PlateauHeight float64
	PlateauStart  float64
	PlateauEnd    float64
	Recovered     float64
}

// Profile holds the demographic and clinical parameters of one agent.
// It is produced by a Sampler once at creation and treated as opaque input.
type Profile struct {
	Age        int
	Sex        string
	Conditions []string

	IncubationDays float64
	RecoveryDays   float64 // days from infection to recovery resolution
	ViralLoad      ViralLoadCurve
	Symptoms       [][]string // symptoms per day since infection

	Asymptomatic      bool
	AsymptomaticRatio float64 // transmission discount when asymptomatic
	ReallySick        bool
	ExtremelySick     bool
	NeverRecovers     bool
	PNeverRecovers    float64 // used to redraw NeverRecovers after each recovery
}

// Sampler supplies agent profiles at world construction.
type Sampler interface {
	Sample(rng *rand.Rand, id int) Profile
}

// WeeklySchedule is an agent's fixed routine, chosen once at creation.
type WeeklySchedule struct {
	WorkHours        []int
	ShoppingDays     []time.Weekday
	ShoppingHours    []int
	MaxShopsPerWeek  int
	ExerciseDays     []time.Weekday
	ExerciseHours    []int
	MaxExercisePerWk int
}

// NewWeeklySchedule draws a schedule from the mobility configuration.
// Days and hours are drawn with replacement; duplicates are harmless.
func NewWeeklySchedule(rng *rand.Rand, cfg MobilityConfig) WeeklySchedule {
	return WeeklySchedule{
		WorkHours:        drawInts(rng, cfg.WorkStartHours, 7, 12),
		ShoppingDays:     drawDays(rng, cfg.ShoppingDays.Sample(rng)),
		ShoppingHours:    drawInts(rng, cfg.ShoppingHours.Sample(rng), 7, 20),
		MaxShopsPerWeek:  max(0, cfg.ShopsPerWeek.Sample(rng)),
		ExerciseDays:     drawDays(rng, cfg.ExerciseDays.Sample(rng)),
		ExerciseHours:    drawInts(rng, cfg.ExerciseHours.Sample(rng), 7, 20),
		MaxExercisePerWk: max(0, cfg.ExercisesPerWeek.Sample(rng)),
	}
}

func drawInts(rng *rand.Rand, n, lo, hi int) []int {
	out := make([]int, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, lo+rng.Intn(hi-lo))
	}
	return out
}

func drawDays(rng *rand.Rand, n int) []time.Weekday {
	out := make([]time.Weekday, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, time.Weekday(rng.Intn(7)))
	}
	return out
}

func (ws WeeklySchedule) shoppingAt(day time.Weekday, hour int) bool {
	return slices.Contains(ws.ShoppingDays, day) && slices.Contains(ws.ShoppingHours, hour)
}

func (ws WeeklySchedule) exerciseAt(day time.Weekday, hour int) bool {
	return slices.Contains(ws.ExerciseDays, day) && slices.Contains(ws.ExerciseHours, hour)
}

// Agent is one simulated person and the process that runs its routine.
type Agent struct {
	ID        int
	Profile   Profile
	Home      *Location
	Workplace *Location
	Schedule  WeeklySchedule

	world  *World
	habits map[Activity]Habit

	// epidemic state
	infectedAt         int64
	recoveredAt        int64
	Immune             bool
	lastState          State
	infectiousContacts int
	symptomStart       int64
	symptomsLogged     bool
	testLogged         bool

	// mobility state
	location       *Location
	visitStart     float64 // minutes since simulation start
	visitEnd       float64
	restingAtHome  bool
	feelingFloor   float64
	visits         map[Category]*visitTable
	shopsThisWeek  int
	exerciseThisWk int
	week           int

	// process state
	phase        phase
	activity     Activity
	target       *Location
	dwellMinutes int
	leisureStops int
	pExplore     float64
}

// Name implements Process.
func (a *Agent) Name() string { return fmt.Sprintf("agent:%d", a.ID) }

func (a *Agent) String() string {
	return fmt.Sprintf("%s, SEIR:%s", a.Name(), a.State(a.world.Now()))
}

// Location returns the venue the agent last entered.
func (a *Agent) Location() *Location { return a.location }

// Infected reports whether an infection is currently active.
func (a *Agent) Infected() bool { return a.infectedAt != NoTick }

// InfectedAt returns the infection tick, or NoTick.
func (a *Agent) InfectedAt() int64 { return a.infectedAt }

// RecoveredAt returns the last recovery tick, NoTick, or RemovedTick.
func (a *Agent) RecoveredAt() int64 { return a.recoveredAt }

// RestingAtHome reports the sticky stay-home flag.
func (a *Agent) RestingAtHome() bool { return a.restingAtHome }

// Suspended reports whether the agent's process will never resume.
func (a *Agent) Suspended() bool { return a.phase == phaseSuspended }

// Visits returns the agent's visit count for venue v.
func (a *Agent) Visits(v *Location) int {
	if t, ok := a.visits[v.Category]; ok {
		return t.counts[v]
	}
	return 0
}

// DistinctVisited returns how many distinct venues of cat the agent has chosen.
func (a *Agent) DistinctVisited(cat Category) int {
	if t, ok := a.visits[cat]; ok {
		return len(t.order)
	}
	return 0
}
