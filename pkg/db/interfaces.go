package db

import (
	"context"
	"time"

	"github.com/jakechorley/ride-rota/pkg/core/model"
)

// EventStore defines the interface for event database operations
type EventStore interface {
	// GetEvent returns model.ErrEventNotFound (wrapped) if the event does not exist
	GetEvent(ctx context.Context, id int64) (*Event, error)
	// ListEvents returns events dated within [from, to]; empty bounds are open
	ListEvents(ctx context.Context, from, to string) ([]Event, error)
	InsertEvent(ctx context.Context, event *Event) error
	UpdateEventCapacity(ctx context.Context, id int64, capacityDriver, capacityAttendant *int) error
	DeleteEvent(ctx context.Context, id int64) error
}

// UserStore defines the interface for user database operations
type UserStore interface {
	GetUsers(ctx context.Context) ([]User, error)
	// GetUser returns model.ErrUserNotFound (wrapped) if the user does not exist
	GetUser(ctx context.Context, username string) (*User, error)
	UpsertUser(ctx context.Context, user *User) error
	SetFamiliarity(ctx context.Context, username string, familiar model.Familiarity) error
	// DeleteUser removes a user and their applications, returning how many applications went.
	// Selections stay as participation history. Returns model.ErrUserNotFound (wrapped) if
	// the user does not exist.
	DeleteUser(ctx context.Context, username string) (int, error)
}

// ApplicationStore defines the interface for application database operations
type ApplicationStore interface {
	// GetApplications returns the applications for an event ordered by creation time
	GetApplications(ctx context.Context, eventID int64) ([]Application, error)
	// InsertApplication records an application. It returns false without error when the same
	// application already exists, and model.ErrRoleConflict when the person holds an
	// application for the other role on the event.
	InsertApplication(ctx context.Context, eventID int64, username string, role model.Role) (bool, error)
	DeleteApplication(ctx context.Context, eventID int64, username string, role model.Role) (bool, error)
}

// LedgerStore defines the interface for participation ledger (selection) operations.
// Every write that changes an event's selections holds that event's lock for its duration.
type LedgerStore interface {
	// GetParticipationStats aggregates all selections per (username, role)
	GetParticipationStats(ctx context.Context) ([]ParticipationStat, error)
	// GetSelections returns the selections for an event ordered by decision time
	GetSelections(ctx context.Context, eventID int64) ([]Selection, error)
	// GetSelectionsOnDate returns the selections for every event on the given date
	GetSelectionsOnDate(ctx context.Context, date string) ([]Selection, error)
	// GetSelectionHistory returns a person's selections joined with their events, newest first
	GetSelectionHistory(ctx context.Context, username string) ([]SelectionHistoryEntry, error)
	// ReplaceSelections atomically replaces every selection of an event and returns the previous set
	ReplaceSelections(ctx context.Context, eventID int64, selections []Selection) ([]Selection, error)
	// DeleteSelections removes every selection of an event and returns how many were removed
	DeleteSelections(ctx context.Context, eventID int64) (int, error)
	// DeleteSelection removes one selection, returning false if it did not exist
	DeleteSelection(ctx context.Context, eventID int64, username string, role model.Role) (bool, error)
	// InsertSelectionWithinCapacity inserts a selection only while the role has fewer than
	// capacity selections and the person holds no selection for the event
	InsertSelectionWithinCapacity(ctx context.Context, selection Selection, capacity int) (bool, error)
	// ReassignDriverAsAttendant confirms a driver applicant as attendant and rewrites their
	// application to attendant, under the same capacity and exclusivity rules
	ReassignDriverAsAttendant(ctx context.Context, eventID int64, username string, capacity int, decidedAt time.Time) (bool, error)
}

// NotificationStore defines the interface for stored notifications
type NotificationStore interface {
	InsertNotification(ctx context.Context, notification *Notification) error
	HasNotification(ctx context.Context, username string, eventID int64, kind string) (bool, error)
	GetNotifications(ctx context.Context, username string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error
}

// Database defines the interface for all database operations.
// Both postgres.DB and sqlite.DB implement this interface.
type Database interface {
	EventStore
	UserStore
	ApplicationStore
	LedgerStore
	NotificationStore
	RunMigrations(ctx context.Context) error
	Close()
}
