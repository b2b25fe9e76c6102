package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Infinite is a wait duration that never expires.
const Infinite int64 = math.MaxInt64

type waitKind int

const (
	waitTimeout waitKind = iota
	waitForever
	waitParked
)

// Wait tells the Scheduler when a process should be resumed next.
type Wait struct {
	kind  waitKind
	ticks int64
}

// Timeout resumes the process after d ticks. Negative d is treated as zero;
// Infinite is equivalent to Forever.
func Timeout(d int64) Wait {
	if d == Infinite {
		return Forever()
	}
	if d < 0 {
		d = 0
	}
	return Wait{kind: waitTimeout, ticks: d}
}

// Forever suspends the process permanently.
func Forever() Wait { return Wait{kind: waitForever} }

// Parked suspends the process until some other party calls Scheduler.Wake.
func Parked() Wait { return Wait{kind: waitParked} }

func (w Wait) String() string {
	switch w.kind {
	case waitTimeout:
		return fmt.Sprintf("timeout(%d)", w.ticks)
	case waitForever:
		return "forever"
	default:
		return "parked"
	}
}

// Process is a resumable computation driven by the Scheduler. Resume runs
// until the next suspension point and reports how to wait there. Exactly one
// process executes at a time.
type Process interface {
	Name() string
	Resume(s *Scheduler) (Wait, error)
}

// pendingEvent is a parked process with its wake tick.
// seq breaks ties between equal ticks in scheduling order.
type pendingEvent struct {
	tick int64
	seq  uint64
	proc Process
}

// pendingQueue is a min-heap ordered by (tick, seq).
// Implements heap.Interface.
type pendingQueue []pendingEvent

func (q pendingQueue) Len() int { return len(q) }

func (q pendingQueue) Less(i, j int) bool {
	if q[i].tick != q[j].tick {
		return q[i].tick < q[j].tick
	}
	return q[i].seq < q[j].seq
}

func (q pendingQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pendingQueue) Push(x any) {
	*q = append(*q, x.(pendingEvent))
}

func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Scheduler is a single-threaded cooperative discrete-event scheduler.
// Time is an integer tick count starting at zero.
type Scheduler struct {
	clock       int64
	queue       pendingQueue
	nextSeq     uint64
	resumptions int64
	suspended   int

	// AfterResume, when set, is called after every resumption with the
	// tick and the process that just yielded.
	AfterResume func(tick int64, p Process)
}

// NewScheduler creates a Scheduler at tick zero.
func NewScheduler() *Scheduler {
	s := &Scheduler{queue: make(pendingQueue, 0)}
	heap.Init(&s.queue)
	return s
}

// Now returns the current simulated tick.
func (s *Scheduler) Now() int64 { return s.clock }

// Register schedules a new process to start at the current tick.
func (s *Scheduler) Register(p Process) {
	s.push(s.clock, p)
}

// Wake schedules a parked process to resume at the current tick, after
// every process already due at this tick.
func (s *Scheduler) Wake(p Process) {
	s.push(s.clock, p)
}

// ScheduleTimeout parks p and resumes it at Now()+d. A duration of
// Infinite, or one that would overflow the clock, suspends p permanently
// without occupying the queue.
func (s *Scheduler) ScheduleTimeout(p Process, d int64) {
	if d < 0 {
		d = 0
	}
	if d == Infinite || s.clock > math.MaxInt64-d {
		s.suspended++
		logrus.Debugf("[tick %07d] %s suspended forever", s.clock, p.Name())
		return
	}
	s.push(s.clock+d, p)
}

func (s *Scheduler) push(tick int64, p Process) {
	heap.Push(&s.queue, pendingEvent{tick: tick, seq: s.nextSeq, proc: p})
	s.nextSeq++
}

// Pending returns the number of processes waiting on a timer.
func (s *Scheduler) Pending() int { return s.queue.Len() }

// Resumptions returns the number of process resumptions so far.
func (s *Scheduler) Resumptions() int64 { return s.resumptions }

// Suspended returns the number of processes suspended forever.
func (s *Scheduler) Suspended() int { return s.suspended }

// Run resumes pending processes in (tick, seq) order until the queue is
// empty or the next wake tick is at or beyond until. Events at until are
// left pending, so Run may be called again with a later horizon.
// A process error stops the run and is returned wrapped with its context.
func (s *Scheduler) Run(until int64) error {
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.tick >= until {
			break
		}
		heap.Pop(&s.queue)

		// Clock monotonicity
		if next.tick < s.clock {
			panic(fmt.Sprintf("Clock went backwards: %d < %d", next.tick, s.clock))
		}
		s.clock = next.tick
		s.resumptions++

		logrus.Tracef("[tick %07d] resume %s", s.clock, next.proc.Name())
		w, err := next.proc.Resume(s)
		if err != nil {
			return fmt.Errorf("tick %d: %s: %w", s.clock, next.proc.Name(), err)
		}
		switch w.kind {
		case waitTimeout:
			s.ScheduleTimeout(next.proc, w.ticks)
		case waitForever:
			s.suspended++
			logrus.Debugf("[tick %07d] %s suspended forever", s.clock, next.proc.Name())
		case waitParked:
			// resumed later through Wake
		}
		if s.AfterResume != nil {
			s.AfterResume(s.clock, next.proc)
		}
	}
	if s.clock < until {
		s.clock = until
	}
	return nil
}
