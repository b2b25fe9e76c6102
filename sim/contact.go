package sim

import (
	"math"
	"slices"

	"github.com/episim/episim/sim/telemetry"
)

// ContactEvent is one evaluated pair of co-located agents.
type ContactEvent struct {
	A, B      *Agent
	Venue     *Location
	Distance  float64
	Overlap   float64 // sampled near-contact minutes
	Qualified bool    // within radius and above minimum exposure
	Infector  *Agent  // nil when no transmission happened
	Infectee  *Agent
}

// qualifies reports whether a pair is close and long enough to be
// evaluated for transmission.
func qualifies(cfg EpidemicConfig, dist, overlap float64) bool {
	return dist <= cfg.InfectionRadius && overlap > cfg.MinExposureMinutes
}

// TransmissionProbability is the chance that infector passes the disease
// in one qualifying contact: viral load × asymptomatic discount × contagion
// knob, clamped to [0, 1]. With SeverityWeighting the product is also
// scaled by severityMultiplier.
func (w *World) TransmissionProbability(infector *Agent, now int64) float64 {
	ratio := 1.0
	if infector.Profile.Asymptomatic {
		ratio = infector.Profile.AsymptomaticRatio
	}
	p := infector.ViralLoad(now) * ratio * w.Config.Epidemic.ContagionKnob
	if w.Config.Epidemic.SeverityWeighting {
		p *= severityMultiplier(infector, now)
	}
	return clampProbability(p)
}

// severityMultiplier is 1.25 for the really sick, 1.5 for the extremely
// sick, plus 0.2 when immuno-compromised and 0.25 while coughing.
func severityMultiplier(a *Agent, now int64) float64 {
	if a.State(now) != Infectious {
		return 1
	}
	m := 1.0
	switch {
	case a.Profile.ExtremelySick:
		m = 1.5
	case a.Profile.ReallySick:
		m = 1.25
	}
	if slices.Contains(a.Profile.Conditions, "immuno-compromised") {
		m += 0.2
	}
	if slices.Contains(a.Symptoms(now), "cough") {
		m += 0.25
	}
	return m
}

// encounterDistance is sqrt(area / occupants) plus an integer jitter drawn
// from [MinDistanceJitter, MaxDistanceJitter).
func (w *World) encounterDistance(v *Location) float64 {
	cfg := w.Config.Epidemic
	n := len(v.Occupants())
	if n < 1 {
		n = 1
	}
	jitter := cfg.MinDistanceJitter
	if span := cfg.MaxDistanceJitter - cfg.MinDistanceJitter; span > 0 {
		jitter += w.rng.Intn(span)
	}
	return math.Sqrt(v.Area/float64(n)) + float64(jitter)
}

// overlapMinutes is the intersection of both agents' scheduled stays.
func overlapMinutes(a, b *Agent) float64 {
	o := math.Min(a.visitEnd, b.visitEnd) - math.Max(a.visitStart, b.visitStart)
	if o < 0 {
		return 0
	}
	return o
}

// evaluateContacts runs the pairwise contact model for an agent that just
// entered v against every other occupant, in entry order.
func (w *World) evaluateContacts(a *Agent, v *Location, now int64) error {
	for _, other := range v.Occupants() {
		if other == a {
			continue
		}
		ev, err := w.contact(a, other, v, now)
		if err != nil {
			return err
		}
		if !ev.Qualified {
			continue
		}
		infectee := telemetry.NoAgent
		if ev.Infectee != nil {
			infectee = ev.Infectee.ID
		}
		w.Tracker.RecordEncounter(telemetry.EncounterRecord{
			Agent1:   a.ID,
			Agent2:   other.ID,
			Venue:    v.ID,
			Distance: ev.Distance,
			Duration: ev.Overlap,
			Infectee: infectee,
			Tick:     now,
		})
	}
	return nil
}

// contact samples distance and near-contact time for one pair and, when the
// pair qualifies with exactly one infectious and one susceptible agent,
// draws transmission.
func (w *World) contact(a, b *Agent, v *Location, now int64) (ContactEvent, error) {
	ev := ContactEvent{A: a, B: b, Venue: v}
	ev.Distance = w.encounterDistance(v)
	ev.Overlap = w.rng.Float64() * overlapMinutes(a, b)
	ev.Qualified = qualifies(w.Config.Epidemic, ev.Distance, ev.Overlap)
	if !ev.Qualified {
		return ev, nil
	}

	sa, sb := a.State(now), b.State(now)
	var infector, infectee *Agent
	switch {
	case sa == Infectious && sb == Susceptible:
		infector, infectee = a, b
	case sb == Infectious && sa == Susceptible:
		infector, infectee = b, a
	default:
		return ev, nil
	}
	if !bernoulli(w.rng, w.TransmissionProbability(infector, now)) {
		return ev, nil
	}

	if err := infectee.infect(now); err != nil {
		return ev, err
	}
	infector.infectiousContacts++
	ev.Infector, ev.Infectee = infector, infectee
	w.Tracker.RecordExposure(telemetry.ExposureRecord{
		Infector: infector.ID,
		Infectee: infectee.ID,
		Venue:    v.ID,
		Source:   telemetry.SourceHuman,
		Tick:     now,
	})
	return ev, nil
}

// environmentalExposure draws infection from venue contamination for an
// agent leaving v, independent of other occupants.
func (w *World) environmentalExposure(a *Agent, v *Location, now int64) error {
	if v.ContaminationProbability <= 0 {
		return nil
	}
	p := v.ContaminationProbability * w.Config.Epidemic.EnvironmentalKnob
	if !bernoulli(w.rng, p) || a.State(now) != Susceptible {
		return nil
	}
	if err := a.infect(now); err != nil {
		return err
	}
	w.Tracker.RecordExposure(telemetry.ExposureRecord{
		Infector: telemetry.NoAgent,
		Infectee: a.ID,
		Venue:    v.ID,
		Source:   telemetry.SourceEnvironment,
		Tick:     now,
	})
	return nil
}
