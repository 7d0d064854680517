package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrNotConfirmed  = errors.New("not confirmed")
	ErrRoleConflict  = errors.New("cannot apply for both driver and attendant on the same event")
	ErrInvalidRole   = errors.New("invalid role")
	ErrValidation    = errors.New("validation failed")
)

// CapacityError reports a selection that exceeds the capacity of a role
type CapacityError struct {
	Role      Role
	Limit     int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s selection exceeds capacity (%d): %d selected", e.Role, e.Limit, e.Requested)
}
