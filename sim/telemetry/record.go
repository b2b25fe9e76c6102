// Package telemetry provides event recording for post-hoc epidemic analysis.
// This package has no dependencies on sim/; it stores pure data types.
package telemetry

// NoAgent marks the absent side of an exposure (environmental infection).
const NoAgent = -1

// InfectionSource distinguishes how an exposure happened.
type InfectionSource string

const (
	SourceHuman       InfectionSource = "human"
	SourceEnvironment InfectionSource = "environment"
)

// TestResult is the outcome of an administered test.
type TestResult string

const (
	TestPositive TestResult = "positive"
	TestNegative TestResult = "negative"
)

// SymptomRecord captures the first day an agent shows symptoms in an episode.
type SymptomRecord struct {
	Agent int
	Tick  int64
}

// TestRecord captures an administered test.
type TestRecord struct {
	Agent  int
	Tick   int64
	Result TestResult
	Kind   string // e.g. "lab"
}

// ExposureRecord captures a successful transmission.
// Infector is NoAgent for environmental infections.
type ExposureRecord struct {
	Infector int
	Infectee int
	Venue    string
	Source   InfectionSource
	Tick     int64
}

// EncounterRecord captures one evaluated pairwise contact, successful or not.
type EncounterRecord struct {
	Agent1   int
	Agent2   int
	Venue    string
	Distance float64
	Duration float64 // minutes of near contact
	Infectee int     // NoAgent when no transmission happened
	Tick     int64
}

// RecoveryRecord captures the end of an infectious episode.
type RecoveryRecord struct {
	Agent              int
	Tick               int64
	InfectiousContacts int     // number of agents infected during the episode
	DurationDays       float64 // infectious period length
	Died               bool
}

// TripRecord captures one venue visit.
type TripRecord struct {
	Agent     int
	From      string // category of the previous venue
	To        string // category of the visited venue
	Venue     string
	Hour      int
	EnterTick int64
	LeaveTick int64
}
