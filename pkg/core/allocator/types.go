package allocator

import (
	"time"

	"github.com/jakechorley/ride-rota/pkg/core/model"
)

// Applicant is a person who applied for a role on an event
type Applicant struct {
	Username  string
	Role      model.Role
	AppliedAt time.Time
}

// HistoryKey identifies a person's participation history in one role
type HistoryKey struct {
	Username string
	Role     model.Role
}

// History summarises a person's confirmed participation in one role.
// LastConfirmedAt is nil when the person has never been confirmed in that role.
type History struct {
	Times           int
	LastConfirmedAt *time.Time
}

// ParticipationHistory maps (person, role) to their confirmed participation
type ParticipationHistory map[HistoryKey]History

// Lookup returns the history for a person and role, or the zero History if none is recorded
func (h ParticipationHistory) Lookup(username string, role model.Role) History {
	if h == nil {
		return History{}
	}
	return h[HistoryKey{Username: username, Role: role}]
}

// RankedApplicant is an applicant with their fairness inputs and 1-based rank within their role
type RankedApplicant struct {
	Username        string     `json:"username"`
	Role            model.Role `json:"kind"`
	Times           int        `json:"times"`
	LastConfirmedAt *time.Time `json:"last_at"`
	AppliedAt       time.Time  `json:"applied_at"`
	Rank            int        `json:"rank"`
}

// Candidate is a ranked applicant annotated with their familiarity, used for selection
type Candidate struct {
	RankedApplicant
	Familiarity model.Familiarity
}

// Proposal is an unpersisted selection for an event
type Proposal struct {
	Driver    []string `json:"driver"`
	Attendant []string `json:"attendant"`
}
