// Package sim provides the agent-based epidemic simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - scheduler.go: cooperative discrete-event scheduler (processes, waits, tie-breaking)
//   - location.go: venues and their capacity-bounded FIFO admission
//   - routine.go: the agent process (daily loop, activity dispatch, visits)
//   - epidemic.go: derived SEIR state, viral load, symptoms and recovery
//
// # Architecture
//
// A World owns the venue catalog and the population. Every Agent is a
// Process: it runs from one suspension point to the next and tells the
// Scheduler how to wait (a timeout, a venue queue, or forever). Only one
// process runs at a time, so no locking is needed anywhere.
//
// On entering a venue an agent is paired with every other occupant
// (contact.go); qualifying pairs draw transmission. Venues of the store,
// park and misc categories are chosen with the explore/exploit rule in
// selector.go; hospitals are chosen by proximity and free capacity.
//
// Sub-packages:
//   - sim/telemetry/: pure-data event records, trackers and the SQLite sink
//   - sim/population/: the baseline demographic and clinical Sampler
//
// # Determinism
//
// All randomness flows from a PartitionedRNG keyed by Config.Seed: one
// stream lays out the city, one builds the population, and one shared
// stream is consumed by agent processes in scheduler order. Two runs with
// the same seed and configuration produce identical traces.
package sim
