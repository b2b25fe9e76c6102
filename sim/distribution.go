package sim

import (
	"math"
	"math/rand"
)

// Sample draws a discrete truncated gaussian value: mean + z·scale with z
// restricted to [-1, 1], rounded to the nearest integer. A non-positive
// scale returns the rounded mean without consuming randomness.
func (d IntDist) Sample(rng *rand.Rand) int {
	return discreteGaussian(rng, d.Mean, d.Scale)
}

func discreteGaussian(rng *rand.Rand, mean, scale float64) int {
	if scale <= 0 {
		return int(math.Round(mean))
	}
	z := rng.NormFloat64()
	for z < -1 || z > 1 {
		z = rng.NormFloat64()
	}
	return int(math.Round(mean + z*scale))
}

// Habit is one agent's personal visit-duration distribution for an activity.
type Habit struct {
	Mean  float64 // minutes
	Scale float64
}

// NewHabit draws an agent's habit from the population-level distribution.
func (d HabitDist) NewHabit(rng *rand.Rand) Habit {
	return Habit{
		Mean:  float64(discreteGaussian(rng, d.Mean, d.MeanSpread)),
		Scale: math.Max(0, float64(discreteGaussian(rng, d.Scale, d.ScaleSpread))),
	}
}

// Minutes draws one visit duration, at least one minute.
func (h Habit) Minutes(rng *rand.Rand) int {
	m := discreteGaussian(rng, h.Mean, h.Scale)
	if m < 1 {
		return 1
	}
	return m
}

// pickWeighted returns an index drawn proportionally to weights.
// Non-finite or negative weights count as zero; if every weight is zero the
// draw is uniform. weights must not be empty.
func pickWeighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w) {
			total += w
		}
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	u := rng.Float64() * total
	cum := 0.0
	last := 0
	for i, w := range weights {
		if w <= 0 || math.IsInf(w, 0) || math.IsNaN(w) {
			continue
		}
		cum += w
		last = i
		if u < cum {
			return i
		}
	}
	return last
}

// clampProbability maps p into [0, 1]; NaN becomes 0.
func clampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// bernoulli draws a success with probability p (clamped).
func bernoulli(rng *rand.Rand, p float64) bool {
	return rng.Float64() < clampProbability(p)
}
