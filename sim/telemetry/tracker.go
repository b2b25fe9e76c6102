package telemetry

// Tracker receives simulation events. Calls are fire-and-forget: the engine
// never reads anything back from a Tracker.
type Tracker interface {
	RecordSymptomOnset(SymptomRecord)
	RecordTest(TestRecord)
	RecordExposure(ExposureRecord)
	RecordEncounter(EncounterRecord)
	RecordRecovery(RecoveryRecord)
	RecordTrip(TripRecord)
}

// Discard is a Tracker that drops every record.
type Discard struct{}

func (Discard) RecordSymptomOnset(SymptomRecord) {}
func (Discard) RecordTest(TestRecord)            {}
func (Discard) RecordExposure(ExposureRecord)    {}
func (Discard) RecordEncounter(EncounterRecord)  {}
func (Discard) RecordRecovery(RecoveryRecord)    {}
func (Discard) RecordTrip(TripRecord)            {}

// Log collects records in memory, in the order they were reported.
type Log struct {
	Symptoms   []SymptomRecord
	Tests      []TestRecord
	Exposures  []ExposureRecord
	Encounters []EncounterRecord
	Recoveries []RecoveryRecord
	Trips      []TripRecord
}

// NewLog creates a Log ready for recording.
func NewLog() *Log {
	return &Log{
		Symptoms:   make([]SymptomRecord, 0),
		Tests:      make([]TestRecord, 0),
		Exposures:  make([]ExposureRecord, 0),
		Encounters: make([]EncounterRecord, 0),
		Recoveries: make([]RecoveryRecord, 0),
		Trips:      make([]TripRecord, 0),
	}
}

func (l *Log) RecordSymptomOnset(r SymptomRecord) { l.Symptoms = append(l.Symptoms, r) }
func (l *Log) RecordTest(r TestRecord)            { l.Tests = append(l.Tests, r) }
func (l *Log) RecordExposure(r ExposureRecord)    { l.Exposures = append(l.Exposures, r) }
func (l *Log) RecordEncounter(r EncounterRecord)  { l.Encounters = append(l.Encounters, r) }
func (l *Log) RecordRecovery(r RecoveryRecord)    { l.Recoveries = append(l.Recoveries, r) }
func (l *Log) RecordTrip(r TripRecord)            { l.Trips = append(l.Trips, r) }

// TripsFor returns the trips of a single agent, in report order.
func (l *Log) TripsFor(agent int) []TripRecord {
	var out []TripRecord
	for _, t := range l.Trips {
		if t.Agent == agent {
			out = append(out, t)
		}
	}
	return out
}

// Fanout forwards every record to each of its trackers in order.
type Fanout []Tracker

func (f Fanout) RecordSymptomOnset(r SymptomRecord) {
	for _, t := range f {
		t.RecordSymptomOnset(r)
	}
}

func (f Fanout) RecordTest(r TestRecord) {
	for _, t := range f {
		t.RecordTest(r)
	}
}

func (f Fanout) RecordExposure(r ExposureRecord) {
	for _, t := range f {
		t.RecordExposure(r)
	}
}

func (f Fanout) RecordEncounter(r EncounterRecord) {
	for _, t := range f {
		t.RecordEncounter(r)
	}
}

func (f Fanout) RecordRecovery(r RecoveryRecord) {
	for _, t := range f {
		t.RecordRecovery(r)
	}
}

func (f Fanout) RecordTrip(r TripRecord) {
	for _, t := range f {
		t.RecordTrip(r)
	}
}
