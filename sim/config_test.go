package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(1440), cfg.TicksPerDay())
	assert.Equal(t, int64(30*1440), cfg.Horizon())
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"tick not dividing a day", func(c *Config) { c.TickMinutes = 7 }, "tick_minutes"},
		{"zero tick", func(c *Config) { c.TickMinutes = 0 }, "tick_minutes"},
		{"negative days", func(c *Config) { c.Days = -1 }, "days"},
		{"negative stores", func(c *Config) { c.City.Stores = -2 }, "stores"},
		{"zero store capacity", func(c *Config) { c.City.StoreCapacity = 0 }, "store_capacity"},
		{"zero misc capacity", func(c *Config) { c.City.MiscCapacity = 0 }, "misc_capacity"},
		{"zero household size", func(c *Config) { c.City.HouseholdSize = 0 }, "household_size"},
		{"rho above one", func(c *Config) { c.Mobility.Rho = 1.5 }, "rho"},
		{"unknown contamination category", func(c *Config) {
			c.City.Contamination = map[Category]float64{"casino": 0.1}
		}, "casino"},
		{"unknown habit", func(c *Config) {
			c.Habits = map[Activity]HabitDist{"napping": {Mean: 10}}
		}, "napping"},
		{"inverted jitter", func(c *Config) {
			c.Epidemic.MinDistanceJitter, c.Epidemic.MaxDistanceJitter = 5, 2
		}, "jitter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_TicksPerDay_CoarseTicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickMinutes = 15
	cfg.Days = 2
	assert.Equal(t, int64(96), cfg.TicksPerDay())
	assert.Equal(t, int64(192), cfg.Horizon())
}

func TestIntDist_Sample_WithinOneScale(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(1)).ForSubsystem(SubsystemPopulation)
	d := IntDist{Mean: 5, Scale: 2}
	for i := 0; i < 500; i++ {
		v := d.Sample(rng)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 7)
	}
	assert.Equal(t, 4, IntDist{Mean: 3.6}.Sample(rng))
}

func TestPickWeighted(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(3)).ForSubsystem(SubsystemDynamics)

	// a single positive weight always wins
	for i := 0; i < 50; i++ {
		assert.Equal(t, 2, pickWeighted(rng, []float64{0, 0, 4, 0}))
	}

	// all-zero weights fall back to a uniform draw over every index
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		seen[pickWeighted(rng, []float64{0, 0, 0})] = true
	}
	assert.Len(t, seen, 3)
}

func TestHabit_Minutes_AtLeastOne(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(9)).ForSubsystem(SubsystemDynamics)
	h := Habit{Mean: 0, Scale: 5}
	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, h.Minutes(rng), 1)
	}
}
