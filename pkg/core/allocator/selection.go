package allocator

import (
	"slices"

	"github.com/jakechorley/ride-rota/pkg/core/model"
)

// SelectTop picks the first capacity candidates in rank order.
// A capacity of zero or less selects nobody.
func SelectTop(ranked []Candidate, capacity int) []Candidate {
	if capacity <= 0 || len(ranked) == 0 {
		return []Candidate{}
	}
	n := min(capacity, len(ranked))
	return slices.Clone(ranked[:n])
}

// SelectAttendants picks up to capacity attendants from the ranked list, avoiding
// pairing unfamiliar drivers with unfamiliar attendants where possible.
//
// When at least one driver is picked and none of them is familiar, familiar
// attendants are admitted ahead of unfamiliar ones, each group in rank order.
// Unfamiliar (or unknown) attendants still fill any remaining slots: the preference
// never leaves a slot open while a candidate is available.
//
// The result is returned in rank order.
func SelectAttendants(ranked []Candidate, capacity int, drivers []Candidate) []Candidate {
	if capacity <= 0 || len(ranked) == 0 {
		return []Candidate{}
	}

	if !needsFamiliarAttendant(drivers) {
		return SelectTop(ranked, capacity)
	}

	n := min(capacity, len(ranked))
	picked := make([]Candidate, 0, n)
	var deferred []Candidate

	for _, c := range ranked {
		if len(picked) == n {
			break
		}
		if c.Familiarity.IsFamiliar() {
			picked = append(picked, c)
			continue
		}
		deferred = append(deferred, c)
	}

	for _, c := range deferred {
		if len(picked) == n {
			break
		}
		picked = append(picked, c)
	}

	slices.SortStableFunc(picked, func(a, b Candidate) int {
		return a.Rank - b.Rank
	})

	return picked
}

// needsFamiliarAttendant reports whether the picked drivers are all unfamiliar
func needsFamiliarAttendant(drivers []Candidate) bool {
	if len(drivers) == 0 {
		return false
	}
	for _, d := range drivers {
		if d.Familiarity.IsFamiliar() {
			return false
		}
	}
	return true
}

// Propose builds a selection proposal from ranked driver and attendant candidates
func Propose(drivers, attendants []Candidate, driverCapacity, attendantCapacity int) Proposal {
	pickedDrivers := SelectTop(drivers, driverCapacity)
	pickedAttendants := SelectAttendants(attendants, attendantCapacity, pickedDrivers)

	return Proposal{
		Driver:    usernames(pickedDrivers),
		Attendant: usernames(pickedAttendants),
	}
}

// AttachFamiliarity converts ranked applicants into candidates using the given familiarity lookup.
// People missing from the lookup are treated as unknown.
func AttachFamiliarity(ranked []RankedApplicant, familiarity map[string]model.Familiarity) []Candidate {
	candidates := make([]Candidate, len(ranked))
	for i, r := range ranked {
		f, ok := familiarity[r.Username]
		if !ok {
			f = model.FamiliarityUnknown
		}
		candidates[i] = Candidate{RankedApplicant: r, Familiarity: f}
	}
	return candidates
}

func usernames(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Username
	}
	return names
}
