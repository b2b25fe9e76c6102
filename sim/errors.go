package sim

import "errors"

var (
	// ErrInvalidTransition reports an epidemic state change outside
	// S→E, E→I, I→S, I→R, or a moment where not exactly one state holds.
	// It always indicates a modeling defect.
	ErrInvalidTransition = errors.New("invalid epidemic state transition")

	// ErrUnknownActivity reports an activity the daily routine cannot dispatch.
	ErrUnknownActivity = errors.New("unknown activity")

	// ErrUnknownCategory reports a venue category outside the catalog.
	ErrUnknownCategory = errors.New("unknown venue category")

	// ErrCapacityExceeded reports an occupant entering a full venue
	// without holding a slot.
	ErrCapacityExceeded = errors.New("venue capacity exceeded")
)
