package allocator

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/jakechorley/ride-rota/pkg/core/model"
)

// RankApplicants orders the applicants for a single role by fairness and assigns 1-based ranks.
// Applicants for other roles are ignored.
//
// Ordering (earlier = higher priority):
//  1. Times ascending - people confirmed fewer times go first
//  2. LastConfirmedAt ascending - never confirmed sorts before any confirmation
//  3. AppliedAt ascending - earlier applications win ties
//  4. Username ascending - makes the order total so repeated calls agree
//
// An empty history ranks purely by application order.
func RankApplicants(role model.Role, applicants []Applicant, history ParticipationHistory) []RankedApplicant {
	ranked := make([]RankedApplicant, 0, len(applicants))
	for _, a := range applicants {
		if a.Role != role {
			continue
		}
		h := history.Lookup(a.Username, role)
		ranked = append(ranked, RankedApplicant{
			Username:        a.Username,
			Role:            role,
			Times:           h.Times,
			LastConfirmedAt: h.LastConfirmedAt,
			AppliedAt:       a.AppliedAt,
		})
	}

	slices.SortStableFunc(ranked, compareRanked)

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

// RankByRole ranks applicants separately for each role. Ranks restart at 1 per role.
func RankByRole(applicants []Applicant, history ParticipationHistory) map[model.Role][]RankedApplicant {
	result := make(map[model.Role][]RankedApplicant, len(model.Roles))
	for _, role := range model.Roles {
		result[role] = RankApplicants(role, applicants, history)
	}
	return result
}

func compareRanked(a, b RankedApplicant) int {
	if c := cmp.Compare(a.Times, b.Times); c != 0 {
		return c
	}
	if c := compareLastConfirmed(a.LastConfirmedAt, b.LastConfirmedAt); c != 0 {
		return c
	}
	if c := a.AppliedAt.Compare(b.AppliedAt); c != 0 {
		return c
	}
	return strings.Compare(a.Username, b.Username)
}

// compareLastConfirmed treats nil (never confirmed) as the earliest possible time
func compareLastConfirmed(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
