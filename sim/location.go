package sim

import (
	"fmt"
	"math"
)

// Category identifies the kind of venue.
type Category string

const (
	Household   Category = "household"
	Workplace   Category = "workplace"
	Store       Category = "store"
	Park        Category = "park"
	Misc        Category = "misc"
	Hospital    Category = "hospital"
	HospitalICU Category = "hospital-icu"
)

// Categories lists every venue category in catalog order.
var Categories = []Category{Household, Workplace, Store, Park, Misc, Hospital, HospitalICU}

// ParseCategory validates a category name.
func ParseCategory(name string) (Category, error) {
	for _, c := range Categories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Unlimited marks a venue without a capacity bound.
const Unlimited = -1

// Location is a venue with a capacity-bounded FIFO admission queue.
//
// Slots (holders) are granted by Acquire/Release; occupants are the agents
// physically present and visible to the contact model. For bounded venues
// every occupant holds a slot, so |occupants| ≤ |holders| ≤ Capacity.
type Location struct {
	ID                       string
	Category                 Category
	Capacity                 int // Unlimited or ≥ 0
	X, Y                     float64
	Area                     float64
	ContaminationProbability float64

	occupants []*Agent // entry order
	holders   map[int]bool
	queue     RequestQueue
}

// NewLocation creates an empty venue.
func NewLocation(id string, cat Category, capacity int, x, y, area, contamination float64) *Location {
	return &Location{
		ID:                       id,
		Category:                 cat,
		Capacity:                 capacity,
		X:                        x,
		Y:                        y,
		Area:                     area,
		ContaminationProbability: clampProbability(contamination),
		holders:                  make(map[int]bool),
	}
}

func (l *Location) String() string { return l.ID }

// Limited reports whether the venue has a capacity bound.
func (l *Location) Limited() bool { return l.Capacity != Unlimited }

// Available returns the number of free slots.
func (l *Location) Available() int {
	if !l.Limited() {
		return math.MaxInt
	}
	return l.Capacity - len(l.holders)
}

// Holders returns the number of granted slots.
func (l *Location) Holders() int { return len(l.holders) }

// Waiting returns the number of queued requests.
func (l *Location) Waiting() int { return l.queue.Len() }

// Occupants returns the agents present, in entry order. The returned slice
// is the venue's internal storage and MUST NOT be modified.
func (l *Location) Occupants() []*Agent { return l.occupants }

// Acquire claims a slot for a. It returns true when admitted immediately;
// otherwise the request is queued and a is woken through the scheduler once
// Release hands it the slot.
func (l *Location) Acquire(a *Agent, now int64) bool {
	if !l.Limited() {
		return true
	}
	if l.holders[a.ID] {
		return true
	}
	if len(l.holders) < l.Capacity && l.queue.Len() == 0 {
		l.holders[a.ID] = true
		return true
	}
	l.queue.Enqueue(ResourceRequest{Agent: a, Tick: now})
	return false
}

// Release frees a's slot and, if anyone is waiting, grants it to the head
// of the queue and wakes that agent in the same scheduler step.
func (l *Location) Release(a *Agent, s *Scheduler) {
	if !l.Limited() {
		return
	}
	delete(l.holders, a.ID)
	for len(l.holders) < l.Capacity {
		head, ok := l.queue.Dequeue()
		if !ok {
			return
		}
		l.holders[head.Agent.ID] = true
		s.Wake(head.Agent)
	}
}

// AddOccupant records a's entry. Bounded venues require a held slot.
func (l *Location) AddOccupant(a *Agent) error {
	if l.Limited() {
		if !l.holders[a.ID] || len(l.occupants) >= l.Capacity {
			return fmt.Errorf("%w: %s entering %s (%d/%d)", ErrCapacityExceeded, a.Name(), l.ID, len(l.occupants), l.Capacity)
		}
	}
	l.occupants = append(l.occupants, a)
	return nil
}

// RemoveOccupant records a's exit.
func (l *Location) RemoveOccupant(a *Agent) error {
	for i, o := range l.occupants {
		if o == a {
			l.occupants = append(l.occupants[:i], l.occupants[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s is not an occupant of %s", a.Name(), l.ID)
}

func distance(a, b *Location) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
