package db

import (
	"time"

	"github.com/jakechorley/ride-rota/pkg/core/model"
)

// DateLayout is the storage format of event dates
const DateLayout = "2006-01-02"

// Event represents a scheduled transport event
type Event struct {
	ID                int64   `json:"id"`
	Date              string  `json:"date"`
	Label             string  `json:"label"`
	Icon              string  `json:"icon,omitempty"`
	StartTime         *string `json:"start_time,omitempty"`
	EndTime           *string `json:"end_time,omitempty"`
	CapacityDriver    *int    `json:"capacity_driver"`
	CapacityAttendant *int    `json:"capacity_attendant"`
}

// Capacity returns the effective capacity of the given role, defaulting to model.DefaultCapacity
func (e *Event) Capacity(role model.Role) int {
	switch role {
	case model.RoleDriver:
		return model.EffectiveCapacity(e.CapacityDriver)
	case model.RoleAttendant:
		return model.EffectiveCapacity(e.CapacityAttendant)
	}
	return 0
}

// User represents a person who can apply for events
type User struct {
	Username string            `json:"username"`
	Role     model.UserRole    `json:"role"`
	Familiar model.Familiarity `json:"familiar"`
	Email    string            `json:"email,omitempty"`
}

// Application represents a person's interest in a role for an event
type Application struct {
	ID        int64      `json:"id"`
	EventID   int64      `json:"event_id"`
	Username  string     `json:"username"`
	Role      model.Role `json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
}

// Selection represents a confirmed assignment of a person to a role for an event
type Selection struct {
	EventID   int64      `json:"event_id"`
	Username  string     `json:"username"`
	Role      model.Role `json:"kind"`
	DecidedAt time.Time  `json:"decided_at"`
}

// SelectionHistoryEntry is a selection joined with the event it belongs to
type SelectionHistoryEntry struct {
	Selection
	EventDate  string `json:"event_date"`
	EventLabel string `json:"event_label"`
}

// ParticipationStat aggregates a person's selections in one role
type ParticipationStat struct {
	Username        string
	Role            model.Role
	Times           int
	LastConfirmedAt *time.Time
}

// Notification represents a message stored for a user
type Notification struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	EventID   *int64     `json:"event_id,omitempty"`
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
