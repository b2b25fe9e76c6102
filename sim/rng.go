package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the master seed of a run. Equal keys and equal configs
// replay the same epidemic.
type SimulationKey int64

// NewSimulationKey wraps a seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Random stream names. The city stream is seeded with the key itself; the
// others with key XOR fnv1a64(name), so adding draws to one stream never
// shifts another.
const (
	SubsystemCity       = "city"       // venue coordinates
	SubsystemPopulation = "population" // profiles, habits, schedules, home/work assignment
	SubsystemDynamics   = "dynamics"   // everything agents draw while the scheduler runs
)

// PartitionedRNG hands out one cached stream per name. Not safe for
// concurrent use; the scheduler is single-threaded.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates the streams for key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	seed := int64(p.key)
	if name != SubsystemCity {
		seed ^= fnv1a64(name)
	}
	rng := rand.New(rand.NewSource(seed))
	p.streams[name] = rng
	return rng
}

// Key returns the master seed.
func (p *PartitionedRNG) Key() SimulationKey { return p.key }

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
