package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).IsValid()
	})
	_ = validate.RegisterValidation("familiarity", func(fl validator.FieldLevel) bool {
		return model.Familiarity(fl.Field().String()).IsValid()
	})
	_ = validate.RegisterValidation("userrole", func(fl validator.FieldLevel) bool {
		return model.UserRole(fl.Field().String()).IsValid()
	})
}

// validateInput runs struct validation and wraps failures in model.ErrValidation.
// Role failures also wrap model.ErrInvalidRole.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	invalidRole := false
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
		if fe.Tag() == "role" {
			invalidRole = true
		}
	}

	msg := strings.Join(msgs, "; ")
	if invalidRole {
		return fmt.Errorf("%w: %w: %s", model.ErrValidation, model.ErrInvalidRole, msg)
	}
	return fmt.Errorf("%w: %s", model.ErrValidation, msg)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "role":
		return fmt.Sprintf("%s must be driver or attendant, got %q", fe.Field(), fe.Value())
	case "familiarity":
		return fmt.Sprintf("%s must be familiar, unfamiliar or unknown, got %q", fe.Field(), fe.Value())
	case "userrole":
		return fmt.Sprintf("%s must be user or admin, got %q", fe.Field(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match %s, got %q", fe.Field(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// EventRoleInput identifies a role on an event
type EventRoleInput struct {
	EventID int64  `validate:"gt=0"`
	Role    string `validate:"required,role"`
}

// ApplicationInput identifies a person's application for a role on an event
type ApplicationInput struct {
	EventID  int64  `validate:"gt=0"`
	Username string `validate:"required"`
	Role     string `validate:"required,role"`
}

// ConfirmInput is the selection submitted for confirmation
type ConfirmInput struct {
	EventID   int64    `validate:"gt=0"`
	Driver    []string `validate:"dive,required"`
	Attendant []string `validate:"dive,required"`
}

// EventInput describes an event to create
type EventInput struct {
	Date              string  `validate:"required,datetime=2006-01-02"`
	Label             string  `validate:"required"`
	Icon              string  `validate:"omitempty,max=16"`
	StartTime         *string `validate:"omitempty,datetime=15:04"`
	EndTime           *string `validate:"omitempty,datetime=15:04"`
	CapacityDriver    *int    `validate:"omitempty,min=0"`
	CapacityAttendant *int    `validate:"omitempty,min=0"`
}

func (in EventInput) toEvent() *db.Event {
	return &db.Event{
		Date:              in.Date,
		Label:             strings.TrimSpace(in.Label),
		Icon:              strings.TrimSpace(in.Icon),
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		CapacityDriver:    in.CapacityDriver,
		CapacityAttendant: in.CapacityAttendant,
	}
}

// CapacityInput sets both role capacities of an event. Nil resets a role to the default.
type CapacityInput struct {
	EventID           int64 `validate:"gt=0"`
	CapacityDriver    *int  `validate:"omitempty,min=0"`
	CapacityAttendant *int  `validate:"omitempty,min=0"`
}

// UserInput describes a user to add or update
type UserInput struct {
	Username string `validate:"required"`
	Role     string `validate:"required,userrole"`
	Familiar string `validate:"required,familiarity"`
	Email    string `validate:"omitempty,email"`
}
