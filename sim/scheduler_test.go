package sim

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SameTick_ResumesInRegistrationOrder(t *testing.T) {
	// GIVEN three processes registered at tick 0 with the same step
	var log []string
	s := NewScheduler()
	for _, name := range []string{"a", "b", "c"} {
		s.Register(&recordingProcess{name: name, step: 10, log: &log})
	}

	// WHEN the scheduler runs through two wake-ups
	require.NoError(t, s.Run(11))

	// THEN every tick resolves in registration order
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, log)
	assert.Equal(t, int64(6), s.Resumptions())
}

func TestScheduler_Run_StopsBeforeHorizonAndResumes(t *testing.T) {
	var log []string
	s := NewScheduler()
	s.Register(&recordingProcess{name: "p", step: 5, log: &log})

	// Events at the horizon stay pending
	require.NoError(t, s.Run(10))
	assert.Len(t, log, 2) // ticks 0 and 5
	assert.Equal(t, int64(10), s.Now())
	assert.Equal(t, 1, s.Pending())

	// A later horizon continues from where it stopped
	require.NoError(t, s.Run(21))
	assert.Len(t, log, 5) // ticks 10, 15, 20
}

func TestScheduler_Forever_DoesNotBlockOthers(t *testing.T) {
	// GIVEN one process that suspends forever after its first step
	var log []string
	s := NewScheduler()
	s.Register(&recordingProcess{name: "dead", step: 1, log: &log, stops: 1})
	s.Register(&recordingProcess{name: "alive", step: 1, log: &log})

	// WHEN the scheduler runs
	require.NoError(t, s.Run(5))

	// THEN the suspended process never resumes and the other keeps going
	dead := 0
	for _, n := range log {
		if n == "dead" {
			dead++
		}
	}
	assert.Equal(t, 1, dead)
	assert.Equal(t, 6, len(log))
	assert.Equal(t, 1, s.Suspended())
}

func TestScheduler_InfiniteTimeout_SuspendsWithoutQueueing(t *testing.T) {
	var log []string
	s := NewScheduler()
	p := &recordingProcess{name: "p", step: 1, log: &log}
	s.ScheduleTimeout(p, Infinite)

	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 1, s.Suspended())
	require.NoError(t, s.Run(100))
	assert.Empty(t, log)
}

type failingProcess struct{}

func (failingProcess) Name() string { return "boom" }
func (failingProcess) Resume(*Scheduler) (Wait, error) {
	return Wait{}, ErrUnknownActivity
}

func TestScheduler_ProcessError_StopsRun(t *testing.T) {
	s := NewScheduler()
	s.Register(failingProcess{})

	err := s.Run(10)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownActivity))
	assert.Contains(t, err.Error(), "boom")
}

func TestScheduler_Wake_RunsAfterAlreadyDueProcesses(t *testing.T) {
	var log []string
	s := NewScheduler()
	s.Register(&recordingProcess{name: "first", step: 100, log: &log})
	late := &recordingProcess{name: "woken", step: 100, log: &log}
	s.Register(&recordingProcess{name: "second", step: 100, log: &log})
	s.Wake(late)

	require.NoError(t, s.Run(1))
	assert.Equal(t, []string{"first", "second", "woken"}, log)
}

func TestTimeout_NegativeClampsToZero(t *testing.T) {
	w := Timeout(-5)
	assert.Equal(t, "timeout(0)", w.String())
	assert.Equal(t, "forever", Timeout(Infinite).String())
}

// Property: resumption ticks never decrease, whatever the step sizes.
func TestScheduler_ClockMonotonic_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resumption ticks are non-decreasing", prop.ForAll(
		func(steps []int64) bool {
			var log []string
			s := NewScheduler()
			for i, st := range steps {
				s.Register(&recordingProcess{name: string(rune('a' + i%26)), step: st, log: &log})
			}
			last := int64(-1)
			ok := true
			s.AfterResume = func(tick int64, _ Process) {
				if tick < last {
					ok = false
				}
				last = tick
			}
			if err := s.Run(200); err != nil {
				return false
			}
			return ok
		},
		gen.SliceOfN(8, gen.Int64Range(1, 50)),
	))

	properties.TestingRun(t)
}
