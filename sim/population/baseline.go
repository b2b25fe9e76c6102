// Package population provides a baseline demographic and clinical sampler.
// The engine treats its output as opaque; this implementation keeps the
// distributions simple and configurable.
package population

import (
	"math"
	"math/rand"

	"github.com/episim/episim/sim"
)

// Range is a truncated gaussian clipped to [Low, High].
type Range struct {
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std"`
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Sample draws from the truncated gaussian by rejection. A non-positive
// Std, or an empty interval, returns the mean clipped to the bounds.
func (r Range) Sample(rng *rand.Rand) float64 {
	if r.Std <= 0 || r.High <= r.Low {
		return math.Min(r.High, math.Max(r.Low, r.Mean))
	}
	for i := 0; i < 1000; i++ {
		v := r.Mean + rng.NormFloat64()*r.Std
		if v >= r.Low && v <= r.High {
			return v
		}
	}
	return math.Min(r.High, math.Max(r.Low, r.Mean))
}

// Config parameterizes the BaselineSampler.
type Config struct {
	IncubationDays       Range     `yaml:"incubation_days"`
	RecoveryDays         Range     `yaml:"recovery_days"` // after incubation
	PlateauStart         Range     `yaml:"plateau_start"`
	PlateauDuration      Range     `yaml:"plateau_duration"`
	DeclineDuration      Range     `yaml:"decline_duration"`
	MinViralLoad         float64   `yaml:"min_viral_load"`
	MaxViralLoad         float64   `yaml:"max_viral_load"`
	BaselineAsymptomatic float64   `yaml:"baseline_p_asymptomatic"` // percent at age 50
	AsymptomaticRatio    float64   `yaml:"asymptomatic_infection_ratio"`
	PNeverRecovers       []float64 `yaml:"p_never_recovers"` // by age decade, last entry for 80+
}

// DefaultConfig returns the baseline clinical parameters.
func DefaultConfig() Config {
	return Config{
		IncubationDays:       Range{Mean: 5, Std: 2, Low: 2, High: 12},
		RecoveryDays:         Range{Mean: 14, Std: 4, Low: 7, High: 28},
		PlateauStart:         Range{Mean: 1.5, Std: 0.5, Low: 0.5, High: 2.5},
		PlateauDuration:      Range{Mean: 4.5, Std: 1, Low: 3, High: 6},
		DeclineDuration:      Range{Mean: 5, Std: 1.5, Low: 2, High: 10},
		MinViralLoad:         0.5,
		MaxViralLoad:         1.0,
		BaselineAsymptomatic: 50,
		AsymptomaticRatio:    0.5,
		PNeverRecovers:       []float64{0.0, 0.0, 0.002, 0.002, 0.004, 0.013, 0.036, 0.08, 0.148},
	}
}

// BaselineSampler implements sim.Sampler.
type BaselineSampler struct {
	cfg Config
}

// NewBaselineSampler creates a sampler from cfg.
func NewBaselineSampler(cfg Config) *BaselineSampler {
	return &BaselineSampler{cfg: cfg}
}

var conditionsByAge = []struct {
	name   string
	minAge int
	p      float64
}{
	{"diabetes", 40, 0.1},
	{"heart_disease", 50, 0.1},
	{"immuno-compromised", 0, 0.03},
	{"lung_disease", 60, 0.08},
}

// Sample draws one profile. id is unused but kept for samplers that key
// on agent identity.
func (s *BaselineSampler) Sample(rng *rand.Rand, id int) sim.Profile {
	age := sampleAge(rng)
	sex := "female"
	if rng.Float64() < 0.5 {
		sex = "male"
	}
	var conditions []string
	for _, c := range conditionsByAge {
		if age >= c.minAge && rng.Float64() < c.p {
			conditions = append(conditions, c.name)
		}
	}

	incubation := s.cfg.IncubationDays.Sample(rng)
	recovery := incubation + s.cfg.RecoveryDays.Sample(rng)
	start := s.cfg.PlateauStart.Sample(rng)
	end := start + s.cfg.PlateauDuration.Sample(rng)
	curve := sim.ViralLoadCurve{
		PlateauHeight: s.cfg.MinViralLoad + rng.Float64()*(s.cfg.MaxViralLoad-s.cfg.MinViralLoad),
		PlateauStart:  start,
		PlateauEnd:    end,
		Recovered:     end + s.cfg.DeclineDuration.Sample(rng),
	}

	reallySick := rng.Float64() >= 0.8+float64(age)/100
	extremelySick := reallySick && rng.Float64() >= 0.7
	asymptomatic := rng.Float64() > (s.cfg.BaselineAsymptomatic-float64(age-50)*0.5)/100
	pNever := s.pNeverRecovers(age)

	ratio := 0.0
	if asymptomatic {
		ratio = s.cfg.AsymptomaticRatio
	}
	return sim.Profile{
		Age:               age,
		Sex:               sex,
		Conditions:        conditions,
		IncubationDays:    incubation,
		RecoveryDays:      recovery,
		ViralLoad:         curve,
		Symptoms:          symptomSchedule(rng, incubation, recovery, curve, reallySick, extremelySick),
		Asymptomatic:      asymptomatic,
		AsymptomaticRatio: ratio,
		ReallySick:        reallySick,
		ExtremelySick:     extremelySick,
		NeverRecovers:     rng.Float64() <= pNever,
		PNeverRecovers:    pNever,
	}
}

func (s *BaselineSampler) pNeverRecovers(age int) float64 {
	if len(s.cfg.PNeverRecovers) == 0 {
		return 0
	}
	idx := min(age/10, len(s.cfg.PNeverRecovers)-1)
	return s.cfg.PNeverRecovers[max(idx, 0)]
}

// sampleAge draws from N(50, 25); negative draws fall back to a bump
// around 30.
func sampleAge(rng *rand.Rand) int {
	draw := 50 + rng.NormFloat64()*25
	if draw < 0 {
		return int(math.Round(30 + rng.NormFloat64()*4))
	}
	return int(math.Round(draw))
}

// symptomSchedule lists symptoms per day since infection: nothing during
// incubation, mild symptoms around the viral plateau, escalating to
// "severe" for agents who get really sick, then fading before recovery.
func symptomSchedule(rng *rand.Rand, incubation, recovery float64, curve sim.ViralLoadCurve, reallySick, extremelySick bool) [][]string {
	days := int(math.Ceil(recovery))
	out := make([][]string, days)
	onset := int(math.Floor(incubation))
	peakStart := max(onset, int(math.Floor(curve.PlateauStart)))
	peakEnd := max(peakStart+1, int(math.Ceil(curve.PlateauEnd)))
	for d := onset; d < days; d++ {
		switch {
		case d >= peakStart && d < peakEnd && reallySick:
			day := []string{"severe", "fever", "cough"}
			if extremelySick {
				day = append(day, "trouble_breathing")
			}
			out[d] = day
		case d < peakEnd+2:
			day := []string{"mild"}
			if rng.Float64() < 0.5 {
				day = append(day, "cough")
			}
			if rng.Float64() < 0.3 {
				day = append(day, "fever")
			}
			out[d] = day
		case d < days-1:
			out[d] = []string{"fatigue"}
		}
	}
	return out
}
