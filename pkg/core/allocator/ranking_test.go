package allocator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/ride-rota/pkg/core/model"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func rankedNames(ranked []RankedApplicant) []string {
	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.Username
	}
	return names
}

func TestRankApplicants_Empty(t *testing.T) {
	ranked := RankApplicants(model.RoleDriver, nil, nil)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRankApplicants_FewerTimesFirst(t *testing.T) {
	applicants := []Applicant{
		{Username: "frank", Role: model.RoleDriver, AppliedAt: at(0)},
		{Username: "erin", Role: model.RoleDriver, AppliedAt: at(5)},
	}
	history := ParticipationHistory{
		{Username: "frank", Role: model.RoleDriver}: {Times: 3, LastConfirmedAt: ptr(at(-1000))},
	}

	ranked := RankApplicants(model.RoleDriver, applicants, history)

	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"erin", "frank"}, rankedNames(ranked))
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 0, ranked[0].Times)
	assert.Nil(t, ranked[0].LastConfirmedAt)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, 3, ranked[1].Times)
}

func TestRankApplicants_TieBreakOnLastConfirmed(t *testing.T) {
	applicants := []Applicant{
		{Username: "recent", Role: model.RoleDriver, AppliedAt: at(0)},
		{Username: "old", Role: model.RoleDriver, AppliedAt: at(1)},
		{Username: "never", Role: model.RoleDriver, AppliedAt: at(2)},
	}
	history := ParticipationHistory{
		{Username: "recent", Role: model.RoleDriver}: {Times: 1, LastConfirmedAt: ptr(at(-10))},
		{Username: "old", Role: model.RoleDriver}:    {Times: 1, LastConfirmedAt: ptr(at(-10000))},
	}

	ranked := RankApplicants(model.RoleDriver, applicants, history)

	// "never" has fewer confirmations so ranks first regardless of timestamps
	assert.Equal(t, []string{"never", "old", "recent"}, rankedNames(ranked))
}

func TestRankApplicants_NeverConfirmedBeatsConfirmedAtEqualTimes(t *testing.T) {
	// A zero count with a timestamp never comes out of the ledger, but it isolates the
	// nil-first comparison on LastConfirmedAt
	applicants := []Applicant{
		{Username: "a", Role: model.RoleAttendant, AppliedAt: at(0)},
		{Username: "b", Role: model.RoleAttendant, AppliedAt: at(1)},
	}
	history := ParticipationHistory{
		{Username: "a", Role: model.RoleAttendant}: {Times: 0, LastConfirmedAt: ptr(at(-5))},
		{Username: "a", Role: model.RoleDriver}:    {Times: 4, LastConfirmedAt: ptr(at(-5))},
	}

	ranked := RankApplicants(model.RoleAttendant, applicants, history)

	assert.Equal(t, []string{"b", "a"}, rankedNames(ranked))
}

func TestRankApplicants_TieBreakOnAppliedAt(t *testing.T) {
	last := ptr(at(-60))
	applicants := []Applicant{
		{Username: "late", Role: model.RoleAttendant, AppliedAt: at(30)},
		{Username: "early", Role: model.RoleAttendant, AppliedAt: at(10)},
	}
	history := ParticipationHistory{
		{Username: "late", Role: model.RoleAttendant}:  {Times: 2, LastConfirmedAt: last},
		{Username: "early", Role: model.RoleAttendant}: {Times: 2, LastConfirmedAt: last},
	}

	ranked := RankApplicants(model.RoleAttendant, applicants, history)

	assert.Equal(t, []string{"early", "late"}, rankedNames(ranked))
}

func TestRankApplicants_HistoryIsPerRole(t *testing.T) {
	applicants := []Applicant{
		{Username: "driver-veteran", Role: model.RoleAttendant, AppliedAt: at(0)},
		{Username: "attendant-veteran", Role: model.RoleAttendant, AppliedAt: at(1)},
	}
	history := ParticipationHistory{
		{Username: "driver-veteran", Role: model.RoleDriver}:       {Times: 10, LastConfirmedAt: ptr(at(-1))},
		{Username: "attendant-veteran", Role: model.RoleAttendant}: {Times: 1, LastConfirmedAt: ptr(at(-1))},
	}

	ranked := RankApplicants(model.RoleAttendant, applicants, history)

	assert.Equal(t, []string{"driver-veteran", "attendant-veteran"}, rankedNames(ranked))
}

func TestRankApplicants_IgnoresOtherRole(t *testing.T) {
	applicants := []Applicant{
		{Username: "d1", Role: model.RoleDriver, AppliedAt: at(0)},
		{Username: "a1", Role: model.RoleAttendant, AppliedAt: at(1)},
	}

	ranked := RankApplicants(model.RoleDriver, applicants, nil)

	assert.Equal(t, []string{"d1"}, rankedNames(ranked))
}

func TestRankApplicants_Deterministic(t *testing.T) {
	applicants := []Applicant{
		{Username: "c", Role: model.RoleDriver, AppliedAt: at(0)},
		{Username: "a", Role: model.RoleDriver, AppliedAt: at(0)},
		{Username: "b", Role: model.RoleDriver, AppliedAt: at(0)},
		{Username: "d", Role: model.RoleDriver, AppliedAt: at(-1)},
	}
	history := ParticipationHistory{
		{Username: "b", Role: model.RoleDriver}: {Times: 1, LastConfirmedAt: ptr(at(-100))},
	}

	first := RankApplicants(model.RoleDriver, applicants, history)

	// Reverse the input order; the result must not change
	reversed := make([]Applicant, len(applicants))
	for i, a := range applicants {
		reversed[len(applicants)-1-i] = a
	}
	second := RankApplicants(model.RoleDriver, reversed, history)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"d", "a", "c", "b"}, rankedNames(first))
}

func TestRankByRole_RanksRestartPerRole(t *testing.T) {
	applicants := []Applicant{
		{Username: "d1", Role: model.RoleDriver, AppliedAt: at(0)},
		{Username: "a1", Role: model.RoleAttendant, AppliedAt: at(1)},
		{Username: "d2", Role: model.RoleDriver, AppliedAt: at(2)},
		{Username: "a2", Role: model.RoleAttendant, AppliedAt: at(3)},
	}

	byRole := RankByRole(applicants, nil)

	require.Len(t, byRole[model.RoleDriver], 2)
	require.Len(t, byRole[model.RoleAttendant], 2)
	assert.Equal(t, 1, byRole[model.RoleDriver][0].Rank)
	assert.Equal(t, 2, byRole[model.RoleDriver][1].Rank)
	assert.Equal(t, 1, byRole[model.RoleAttendant][0].Rank)
	assert.Equal(t, "a1", byRole[model.RoleAttendant][0].Username)
}
