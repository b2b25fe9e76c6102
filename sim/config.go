package sim

import (
	"fmt"
	"time"
)

// CityConfig groups venue catalog and population parameters.
type CityConfig struct {
	Population              int     `yaml:"population"`
	InitialInfectedFraction float64 `yaml:"initial_infected_fraction"`
	HouseholdSize           int     `yaml:"household_size"` // mean agents per household (> 0)
	PeoplePerWorkplace      int     `yaml:"people_per_workplace"`
	Stores                  int     `yaml:"stores"`
	Parks                   int     `yaml:"parks"`
	Miscs                   int     `yaml:"miscs"`
	Hospitals               int     `yaml:"hospitals"`
	StoreCapacity           int     `yaml:"store_capacity"`
	MiscCapacity            int     `yaml:"misc_capacity"`
	HospitalCapacity        int     `yaml:"hospital_capacity"`
	ICUCapacity             int     `yaml:"icu_capacity"`
	Width                   float64 `yaml:"width"`  // city extent, meters
	Height                  float64 `yaml:"height"` // city extent, meters

	// Share of the city area given to each category.
	AreaShare map[Category]float64 `yaml:"area_share"`
	// Environmental hazard per category.
	Contamination map[Category]float64 `yaml:"contamination"`
}

// EpidemicConfig groups transmission and progression parameters.
type EpidemicConfig struct {
	InfectiousnessOnsetDays float64 `yaml:"infectiousness_onset_days"`
	InfectionRadius         float64 `yaml:"infection_radius"`
	MinExposureMinutes      float64 `yaml:"min_exposure_minutes"`
	ContagionKnob           float64 `yaml:"contagion_knob"`
	EnvironmentalKnob       float64 `yaml:"environmental_knob"`
	MinDistanceJitter       int     `yaml:"min_distance_jitter"`
	MaxDistanceJitter       int     `yaml:"max_distance_jitter"` // exclusive
	ImmuneAfterRecovery     bool    `yaml:"immune_after_recovery"`
	TestDays                float64 `yaml:"test_days"` // days after symptom onset
	PTest                   float64 `yaml:"p_test"`
	PFalseNegative          float64 `yaml:"p_false_negative"`
	SeverityWeighting       bool    `yaml:"severity_weighting"` // scale shedding by illness severity
}

// IntDist is a discrete truncated gaussian (mean ± scale).
type IntDist struct {
	Mean  float64 `yaml:"mean"`
	Scale float64 `yaml:"scale"`
}

// MobilityConfig groups venue selection and weekly schedule parameters.
type MobilityConfig struct {
	Rho                float64              `yaml:"rho"`
	Gamma              float64              `yaml:"gamma"`
	GammaAdjust        map[Category]float64 `yaml:"gamma_adjust"`
	LeisureProbability float64              `yaml:"leisure_probability"` // per weekend routine step
	WorkFromHome       bool                 `yaml:"work_from_home"`
	HomeMinutes        int                  `yaml:"home_minutes"`
	WorkStartHours     int                  `yaml:"work_start_hours"` // how many distinct start hours in 7..11
	ShoppingDays       IntDist              `yaml:"shopping_days"`
	ShoppingHours      IntDist              `yaml:"shopping_hours"`
	ShopsPerWeek       IntDist              `yaml:"shops_per_week"`
	ExerciseDays       IntDist              `yaml:"exercise_days"`
	ExerciseHours      IntDist              `yaml:"exercise_hours"`
	ExercisesPerWeek   IntDist              `yaml:"exercises_per_week"`
}

// HabitDist is the two-level visit-duration distribution for one activity:
// each agent draws its own mean and scale once, then each visit draws
// around the agent's habit. All values are minutes.
type HabitDist struct {
	Mean        float64 `yaml:"mean"`
	MeanSpread  float64 `yaml:"mean_spread"`
	Scale       float64 `yaml:"scale"`
	ScaleSpread float64 `yaml:"scale_spread"`
}

// Config is the full simulation configuration.
type Config struct {
	Seed               int64     `yaml:"seed"`
	Days               int       `yaml:"days"`
	TickMinutes        int       `yaml:"tick_minutes"`
	Start              time.Time `yaml:"start"`
	MonitorPeriodTicks int64     `yaml:"monitor_period_ticks"` // 0 = one simulated day

	City     CityConfig             `yaml:"city"`
	Epidemic EpidemicConfig         `yaml:"epidemic"`
	Mobility MobilityConfig         `yaml:"mobility"`
	Habits   map[Activity]HabitDist `yaml:"habits"`
}

// DefaultConfig returns the baseline parameter set.
func DefaultConfig() Config {
	return Config{
		Seed:        0,
		Days:        30,
		TickMinutes: 1,
		Start:       time.Date(2020, 2, 28, 0, 0, 0, 0, time.UTC),
		City: CityConfig{
			Population:              100,
			InitialInfectedFraction: 0.01,
			HouseholdSize:           2,
			PeoplePerWorkplace:      30,
			Stores:                  10,
			Parks:                   5,
			Miscs:                   10,
			Hospitals:               1,
			StoreCapacity:           30,
			MiscCapacity:            30,
			HospitalCapacity:        20,
			ICUCapacity:             5,
			Width:                   1000,
			Height:                  1000,
			AreaShare: map[Category]float64{
				Household: 0.3, Workplace: 0.2, Store: 0.15, Park: 0.5, Misc: 0.15, Hospital: 0.05, HospitalICU: 0.01,
			},
			Contamination: map[Category]float64{
				Household: 0.0, Workplace: 0.01, Store: 0.02, Park: 0.005, Misc: 0.02, Hospital: 0.05, HospitalICU: 0.05,
			},
		},
		Epidemic: EpidemicConfig{
			InfectiousnessOnsetDays: 1,
			InfectionRadius:         50,
			MinExposureMinutes:      15,
			ContagionKnob:           0.8,
			EnvironmentalKnob:       0.05,
			MinDistanceJitter:       1,
			MaxDistanceJitter:       10,
			ImmuneAfterRecovery:     true,
			TestDays:                2,
			PTest:                   0.5,
			PFalseNegative:          0.1,
		},
		Mobility: MobilityConfig{
			Rho:                0.3,
			Gamma:              0.21,
			GammaAdjust:        map[Category]float64{Store: 1, Park: 1, Misc: 1},
			LeisureProbability: 0.05,
			WorkFromHome:       false,
			HomeMinutes:        60,
			WorkStartHours:     3,
			ShoppingDays:       IntDist{Mean: 2, Scale: 1},
			ShoppingHours:      IntDist{Mean: 2, Scale: 1},
			ShopsPerWeek:       IntDist{Mean: 2, Scale: 1},
			ExerciseDays:       IntDist{Mean: 3, Scale: 1},
			ExerciseHours:      IntDist{Mean: 2, Scale: 1},
			ExercisesPerWeek:   IntDist{Mean: 3, Scale: 1},
		},
		Habits: map[Activity]HabitDist{
			ActivityShopping: {Mean: 30, MeanSpread: 15, Scale: 15, ScaleSpread: 5},
			ActivityExercise: {Mean: 60, MeanSpread: 15, Scale: 15, ScaleSpread: 5},
			ActivityWork:     {Mean: 8 * 60, MeanSpread: 60, Scale: 60, ScaleSpread: 15},
			ActivityLeisure:  {Mean: 90, MeanSpread: 30, Scale: 30, ScaleSpread: 10},
		},
	}
}

// TicksPerDay returns the number of ticks in a simulated day.
func (c Config) TicksPerDay() int64 {
	return int64(24*60) / int64(c.TickMinutes)
}

// Horizon returns the run boundary in ticks.
func (c Config) Horizon() int64 {
	return int64(c.Days) * c.TicksPerDay()
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.TickMinutes <= 0 || (24*60)%c.TickMinutes != 0 {
		return fmt.Errorf("tick_minutes must be a positive divisor of 1440, got %d", c.TickMinutes)
	}
	if c.Days < 0 {
		return fmt.Errorf("days must be >= 0, got %d", c.Days)
	}
	city := c.City
	for name, n := range map[string]int{
		"population": city.Population, "stores": city.Stores, "parks": city.Parks,
		"miscs": city.Miscs, "hospitals": city.Hospitals,
		"store_capacity": city.StoreCapacity, "misc_capacity": city.MiscCapacity,
		"hospital_capacity": city.HospitalCapacity, "icu_capacity": city.ICUCapacity,
	} {
		if n < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", name, n)
		}
	}
	// Only hospitals may turn patients away for good.
	if city.StoreCapacity == 0 || city.MiscCapacity == 0 {
		return fmt.Errorf("store_capacity and misc_capacity must be > 0")
	}
	if city.HouseholdSize <= 0 || city.PeoplePerWorkplace <= 0 {
		return fmt.Errorf("household_size and people_per_workplace must be > 0")
	}
	for name, p := range map[string]float64{
		"initial_infected_fraction": city.InitialInfectedFraction,
		"rho":                       c.Mobility.Rho,
		"leisure_probability":       c.Mobility.LeisureProbability,
		"p_test":                    c.Epidemic.PTest,
		"p_false_negative":          c.Epidemic.PFalseNegative,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, p)
		}
	}
	for cat := range city.Contamination {
		if _, err := ParseCategory(string(cat)); err != nil {
			return fmt.Errorf("contamination: %w", err)
		}
	}
	for cat := range c.Mobility.GammaAdjust {
		if _, err := ParseCategory(string(cat)); err != nil {
			return fmt.Errorf("gamma_adjust: %w", err)
		}
	}
	for act := range c.Habits {
		if !act.valid() {
			return fmt.Errorf("habits: %w: %q", ErrUnknownActivity, act)
		}
	}
	if c.Epidemic.MinDistanceJitter > c.Epidemic.MaxDistanceJitter {
		return fmt.Errorf("min_distance_jitter %d exceeds max_distance_jitter %d",
			c.Epidemic.MinDistanceJitter, c.Epidemic.MaxDistanceJitter)
	}
	if c.Epidemic.InfectionRadius < 0 || c.Epidemic.MinExposureMinutes < 0 {
		return fmt.Errorf("infection_radius and min_exposure_minutes must be >= 0")
	}
	return nil
}
