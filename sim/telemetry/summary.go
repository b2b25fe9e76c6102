package telemetry

// Summary aggregates statistics from a Log.
type Summary struct {
	Encounters          int
	HumanInfections     int
	EnvInfections       int
	SymptomOnsets       int
	Tests               int
	PositiveTests       int
	Recoveries          int
	Deaths              int
	MeanInfectiousCount float64 // mean infectious contacts per finished episode
	Trips               int
	TripsByCategory     map[string]int // destination category → trips
}

// Summarize computes aggregate statistics from a Log.
// Safe for nil or empty logs (returns zero-value fields).
func Summarize(l *Log) *Summary {
	s := &Summary{TripsByCategory: make(map[string]int)}
	if l == nil {
		return s
	}

	s.Encounters = len(l.Encounters)
	s.SymptomOnsets = len(l.Symptoms)
	s.Tests = len(l.Tests)
	s.Trips = len(l.Trips)

	for _, e := range l.Exposures {
		switch e.Source {
		case SourceHuman:
			s.HumanInfections++
		case SourceEnvironment:
			s.EnvInfections++
		}
	}
	for _, t := range l.Tests {
		if t.Result == TestPositive {
			s.PositiveTests++
		}
	}

	if len(l.Recoveries) > 0 {
		total := 0
		for _, r := range l.Recoveries {
			total += r.InfectiousContacts
			if r.Died {
				s.Deaths++
			}
		}
		s.Recoveries = len(l.Recoveries)
		s.MeanInfectiousCount = float64(total) / float64(len(l.Recoveries))
	}

	for _, t := range l.Trips {
		s.TripsByCategory[t.To]++
	}
	return s
}
