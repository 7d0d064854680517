package model

import (
	"fmt"
	"strings"
)

// Role is the participation category a person applies for or is confirmed in
type Role string

const (
	RoleDriver    Role = "driver"
	RoleAttendant Role = "attendant"
)

// Roles lists every role in display order
var Roles = []Role{RoleDriver, RoleAttendant}

func (r Role) IsValid() bool {
	return r == RoleDriver || r == RoleAttendant
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts free-form input into a Role, rejecting anything but driver/attendant
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidRole, s, RoleDriver, RoleAttendant)
	}
	return role, nil
}

// Familiarity describes how well a person knows the local area
type Familiarity string

const (
	FamiliarityFamiliar   Familiarity = "familiar"
	FamiliarityUnfamiliar Familiarity = "unfamiliar"
	FamiliarityUnknown    Familiarity = "unknown"
)

func (f Familiarity) IsValid() bool {
	switch f {
	case FamiliarityFamiliar, FamiliarityUnfamiliar, FamiliarityUnknown:
		return true
	}
	return false
}

// IsFamiliar reports whether the person is known to be familiar. Unknown counts as not familiar.
func (f Familiarity) IsFamiliar() bool {
	return f == FamiliarityFamiliar
}

// ParseFamiliarity converts input into a Familiarity. An empty string maps to unknown.
func ParseFamiliarity(s string) (Familiarity, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return FamiliarityUnknown, nil
	}
	f := Familiarity(trimmed)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: invalid familiarity %q", ErrValidation, s)
	}
	return f, nil
}

// UserRole is the account role of a person
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// DefaultCapacity applies when an event has no capacity set for a role
const DefaultCapacity = 1

// EffectiveCapacity resolves an optional capacity to its effective value
func EffectiveCapacity(capacity *int) int {
	if capacity == nil {
		return DefaultCapacity
	}
	return *capacity
}

// Notification kinds
const (
	KindDecidedPrefix      = "decided_"
	KindCancelPrefix       = "cancel_"
	KindPromotePrefix      = "promote_"
	KindInsufficientPrefix = "insufficient_"
)

// NotificationKind builds a role-scoped notification kind, e.g. "promote_driver"
func NotificationKind(prefix string, role Role) string {
	return prefix + string(role)
}

// ReminderKind returns the notification kind for a reminder sent leadDays before an event
func ReminderKind(leadDays int) string {
	if leadDays == 1 {
		return "reminder_1day"
	}
	return fmt.Sprintf("reminder_%ddays", leadDays)
}
