// Package notify delivers rota notifications over the configured channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/ride-rota/pkg/db"
	"github.com/jakechorley/ride-rota/pkg/metrics"
)

// Channel names used in metrics
const (
	ChannelStore = "store"
	ChannelEmail = "email"
)

// Message is a notification addressed to one user
type Message struct {
	Username string
	EventID  *int64
	Kind     string
	Subject  string
	Body     string
}

// Notifier delivers a message
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Store records messages as notifications in the database
type Store struct {
	store   db.NotificationStore
	metrics *metrics.Manager
	now     func() time.Time
}

// NewStore creates a notifier writing to store
func NewStore(store db.NotificationStore, m *metrics.Manager) *Store {
	return &Store{store: store, metrics: m, now: time.Now}
}

// Notify stores the message
func (s *Store) Notify(ctx context.Context, msg Message) error {
	n := &db.Notification{
		ID:        uuid.New().String(),
		Username:  msg.Username,
		EventID:   msg.EventID,
		Kind:      msg.Kind,
		Message:   msg.Body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification for %s: %w", msg.Username, err)
	}
	s.metrics.RecordNotification(msg.Kind, ChannelStore)
	return nil
}

// EmailSender sends a plain-text email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Email sends messages to the user's email address. Users without an address are skipped.
type Email struct {
	users   db.UserStore
	sender  EmailSender
	metrics *metrics.Manager
}

// NewEmail creates an email notifier
func NewEmail(users db.UserStore, sender EmailSender, m *metrics.Manager) *Email {
	return &Email{users: users, sender: sender, metrics: m}
}

// Notify emails the message
func (e *Email) Notify(ctx context.Context, msg Message) error {
	user, err := e.users.GetUser(ctx, msg.Username)
	if err != nil {
		return fmt.Errorf("failed to look up email for %s: %w", msg.Username, err)
	}
	if user.Email == "" {
		return nil
	}

	if err := e.sender.SendEmail(ctx, user.Email, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("failed to email %s: %w", msg.Username, err)
	}
	e.metrics.RecordNotification(msg.Kind, ChannelEmail)
	return nil
}

// Multi delivers each message to every notifier, continuing past failures
type Multi []Notifier

// Notify delivers to all notifiers and joins their errors
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
