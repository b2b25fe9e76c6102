package sim

import (
	"fmt"
	"math"
	"sort"
)

// visitTable is an agent's per-category visit history. order keeps first-
// visit order so exploitation iterates deterministically.
type visitTable struct {
	order  []*Location
	counts map[*Location]int
}

func newVisitTable() *visitTable {
	return &visitTable{counts: make(map[*Location]int)}
}

func (t *visitTable) record(v *Location) {
	if _, seen := t.counts[v]; !seen {
		t.order = append(t.order, v)
	}
	t.counts[v]++
}

// explorationProbability returns ρ·S^(−γ·adj), or 1 when nothing has been
// visited yet.
func explorationProbability(rho, gamma, adj float64, visited int) float64 {
	if visited == 0 {
		return 1
	}
	return clampProbability(rho * math.Pow(float64(visited), -gamma*adj))
}

// preference scores a candidate venue by inverse distance from the agent.
func preference(from, to *Location) float64 {
	if from == nil {
		return 1
	}
	return 1 / (distance(from, to) + 0.1)
}

// selectVenue chooses a venue of category cat with the preferential
// explore/exploit rule and records the visit. It returns nil when the
// catalog holds no venue of that category. Hospitals never go through here.
func (a *Agent) selectVenue(cat Category) (*Location, error) {
	switch cat {
	case Store, Park, Misc:
	case Hospital, HospitalICU:
		return nil, fmt.Errorf("%w: %s is selected by proximity", ErrUnknownCategory, cat)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	venues := a.world.Venues[cat]
	if len(venues) == 0 {
		return nil, nil
	}
	table, ok := a.visits[cat]
	if !ok {
		table = newVisitTable()
		a.visits[cat] = table
	}

	mob := a.world.Config.Mobility
	adj, ok := mob.GammaAdjust[cat]
	if !ok {
		adj = 1
	}
	visited := len(table.order)
	explore := visited == 0
	if !explore && visited < len(venues) {
		explore = a.world.rng.Float64() < explorationProbability(mob.Rho, mob.Gamma, adj, visited)
	}

	var cands []*Location
	var weights []float64
	if explore {
		for _, v := range venues {
			if _, seen := table.counts[v]; seen || v == a.location {
				continue
			}
			cands = append(cands, v)
			weights = append(weights, preference(a.location, v))
		}
	}
	if len(cands) == 0 {
		for _, v := range table.order {
			cands = append(cands, v)
			weights = append(weights, float64(table.counts[v]))
		}
	}
	if len(cands) == 0 {
		// only the current venue is left
		cands = []*Location{a.location}
		weights = []float64{1}
	}

	choice := cands[pickWeighted(a.world.rng, weights)]
	table.record(choice)
	return choice, nil
}

// nearestAvailable returns the closest venue of cat with a free slot,
// searching in order of distance from the agent's current venue (ties by
// catalog order). Returns nil when every venue is full.
func (a *Agent) nearestAvailable(cat Category) *Location {
	venues := append([]*Location(nil), a.world.Venues[cat]...)
	from := a.location
	if from == nil {
		from = a.Home
	}
	sort.SliceStable(venues, func(i, j int) bool {
		return distance(from, venues[i]) < distance(from, venues[j])
	})
	for _, v := range venues {
		if v.Available() > 0 {
			return v
		}
	}
	return nil
}
