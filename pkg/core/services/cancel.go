package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/allocator"
	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
	"github.com/jakechorley/ride-rota/pkg/notify"
)

// Promotion sources used in metrics
const (
	promotionRanked   = "ranked"
	promotionFallback = "fallback"
)

// CancelStore defines the database operations needed to cancel a confirmation and backfill it
type CancelStore interface {
	RankStore
	GetUsers(ctx context.Context) ([]db.User, error)
	GetSelections(ctx context.Context, eventID int64) ([]db.Selection, error)
	DeleteSelection(ctx context.Context, eventID int64, username string, role model.Role) (bool, error)
	InsertSelectionWithinCapacity(ctx context.Context, selection db.Selection, capacity int) (bool, error)
	ReassignDriverAsAttendant(ctx context.Context, eventID int64, username string, capacity int, decidedAt time.Time) (bool, error)
}

// CancelResult reports the outcome of a cancellation and the promotion that followed it
type CancelResult struct {
	OK         bool     `json:"ok"`
	Message    string   `json:"message"`
	Promoted   []string `json:"promoted"`
	Reassigned []string `json:"reassigned"`
	Shortfall  int      `json:"shortfall"`
}

// promotion is the outcome of backfilling a role after a cancellation
type promotion struct {
	promoted   []string
	reassigned []string
	shortfall  int
}

// CancelConfirmed removes a person's confirmation for a role and backfills the vacancy.
// Their application is kept. The cancellation succeeds even when promotion fails or the
// role stays understaffed; those outcomes are logged and reported to admins.
func CancelConfirmed(ctx context.Context, store CancelStore, logger *zap.Logger, hooks Hooks, eventID int64, username, role string) (*CancelResult, error) {
	defer hooks.Metrics.ObserveOperation("cancel", time.Now())

	username = strings.TrimSpace(username)
	if err := validateInput(ApplicationInput{EventID: eventID, Username: username, Role: role}); err != nil {
		return nil, err
	}
	r := model.Role(role)

	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	deleted, err := store.DeleteSelection(ctx, eventID, username, r)
	if err != nil {
		return nil, fmt.Errorf("failed to delete selection: %w", err)
	}
	if !deleted {
		return nil, fmt.Errorf("%w: %s is not confirmed as %s for event %d", model.ErrNotConfirmed, username, r, eventID)
	}

	logger.Info("Cancelled confirmation",
		zap.Int64("event_id", eventID),
		zap.String("username", username),
		zap.String("role", role))

	hooks.Metrics.RecordCancellation(role)
	hooks.notify(ctx, logger, notify.Message{
		Username: username,
		EventID:  eventRef(eventID),
		Kind:     model.NotificationKind(model.KindCancelPrefix, r),
		Subject:  fmt.Sprintf("Cancelled as %s for %s", r, event.Date),
		Body:     fmt.Sprintf("Your confirmation as %s for %s on %s has been cancelled.", r, event.Label, event.Date),
	})

	result := &CancelResult{
		OK:         true,
		Promoted:   []string{},
		Reassigned: []string{},
	}

	p, err := promote(ctx, store, logger, hooks, event, username, r)
	if err != nil {
		logger.Warn("Promotion failed after cancellation",
			zap.Int64("event_id", eventID),
			zap.String("role", role),
			zap.Error(err))
	}
	result.Promoted = append(result.Promoted, p.promoted...)
	result.Reassigned = append(result.Reassigned, p.reassigned...)
	result.Shortfall = p.shortfall

	if p.shortfall > 0 {
		hooks.Metrics.RecordUnderstaffed(role)
		notifyAdminsOfShortfall(ctx, store, logger, hooks, event, r, p.shortfall)
	}

	result.Message = cancelMessage(username, r, p, err != nil)
	hooks.syncCalendar(ctx, store, logger, eventID)

	return result, nil
}

// promote fills the vacancies of a role from the remaining applicants, then, for attendants
// only, from driver applicants who hold no confirmation for the event. The returned
// promotion is valid even when an error interrupts it part way.
func promote(ctx context.Context, store CancelStore, logger *zap.Logger, hooks Hooks, event *db.Event, cancelled string, role model.Role) (promotion, error) {
	capacity := event.Capacity(role)

	selections, err := store.GetSelections(ctx, event.ID)
	if err != nil {
		return promotion{}, fmt.Errorf("failed to fetch selections: %w", err)
	}

	confirmed := make(map[string]bool, len(selections))
	filled := 0
	for _, s := range selections {
		confirmed[s.Username] = true
		if s.Role == role {
			filled++
		}
	}

	p := promotion{shortfall: max(capacity-filled, 0)}
	if p.shortfall == 0 {
		return p, nil
	}

	applications, err := store.GetApplications(ctx, event.ID)
	if err != nil {
		return p, fmt.Errorf("failed to fetch applications: %w", err)
	}

	history := loadHistory(ctx, store, logger, hooks)
	eligible := func(a allocator.Applicant) bool {
		return a.Username != cancelled && !confirmed[a.Username]
	}

	ranked := allocator.RankApplicants(role, filterApplicants(toApplicants(applications), eligible), history)
	for _, candidate := range ranked {
		if p.shortfall == 0 {
			break
		}
		inserted, err := store.InsertSelectionWithinCapacity(ctx, db.Selection{
			EventID:   event.ID,
			Username:  candidate.Username,
			Role:      role,
			DecidedAt: hooks.now(),
		}, capacity)
		if err != nil {
			return p, fmt.Errorf("failed to promote %s: %w", candidate.Username, err)
		}
		if !inserted {
			continue
		}
		confirmed[candidate.Username] = true
		p.promoted = append(p.promoted, candidate.Username)
		p.shortfall--
		recordPromotion(ctx, logger, hooks, event, candidate.Username, role, promotionRanked)
	}

	if p.shortfall == 0 || role != model.RoleAttendant {
		return p, nil
	}

	// Fallback: driver applicants are ranked on their attendant history
	var pool []allocator.Applicant
	for _, a := range filterApplicants(toApplicants(applications), eligible) {
		if a.Role == model.RoleDriver && !confirmed[a.Username] {
			a.Role = model.RoleAttendant
			pool = append(pool, a)
		}
	}

	for _, candidate := range allocator.RankApplicants(model.RoleAttendant, pool, history) {
		if p.shortfall == 0 {
			break
		}
		reassigned, err := store.ReassignDriverAsAttendant(ctx, event.ID, candidate.Username, capacity, hooks.now())
		if err != nil {
			return p, fmt.Errorf("failed to reassign %s as attendant: %w", candidate.Username, err)
		}
		if !reassigned {
			continue
		}
		p.reassigned = append(p.reassigned, candidate.Username)
		p.shortfall--
		recordPromotion(ctx, logger, hooks, event, candidate.Username, model.RoleAttendant, promotionFallback)
	}

	return p, nil
}

func filterApplicants(applicants []allocator.Applicant, keep func(allocator.Applicant) bool) []allocator.Applicant {
	var kept []allocator.Applicant
	for _, a := range applicants {
		if keep(a) {
			kept = append(kept, a)
		}
	}
	return kept
}

func recordPromotion(ctx context.Context, logger *zap.Logger, hooks Hooks, event *db.Event, username string, role model.Role, source string) {
	logger.Info("Promoted applicant",
		zap.Int64("event_id", event.ID),
		zap.String("username", username),
		zap.String("role", string(role)),
		zap.String("source", source))

	hooks.Metrics.RecordPromotion(string(role), source)
	hooks.notify(ctx, logger, notify.Message{
		Username: username,
		EventID:  eventRef(event.ID),
		Kind:     model.NotificationKind(model.KindPromotePrefix, role),
		Subject:  fmt.Sprintf("Confirmed as %s for %s", role, event.Date),
		Body:     fmt.Sprintf("A place opened up and you have been confirmed as %s for %s on %s.", role, event.Label, event.Date),
	})
}

// notifyAdminsOfShortfall tells every admin that a role remains below capacity
func notifyAdminsOfShortfall(ctx context.Context, store CancelStore, logger *zap.Logger, hooks Hooks, event *db.Event, role model.Role, shortfall int) {
	logger.Warn("Role remains understaffed",
		zap.Int64("event_id", event.ID),
		zap.String("role", string(role)),
		zap.Int("shortfall", shortfall))

	users, err := store.GetUsers(ctx)
	if err != nil {
		logger.Warn("Failed to load admins for shortfall notice", zap.Error(err))
		return
	}

	for _, u := range users {
		if u.Role != model.UserRoleAdmin {
			continue
		}
		hooks.notify(ctx, logger, notify.Message{
			Username: u.Username,
			EventID:  eventRef(event.ID),
			Kind:     model.NotificationKind(model.KindInsufficientPrefix, role),
			Subject:  fmt.Sprintf("%s short for %s", role, event.Date),
			Body:     fmt.Sprintf("%s on %s needs %d more %s(s).", event.Label, event.Date, shortfall, role),
		})
	}
}

func cancelMessage(username string, role model.Role, p promotion, promotionFailed bool) string {
	parts := []string{fmt.Sprintf("cancelled %s as %s", username, role)}
	if len(p.promoted) > 0 {
		parts = append(parts, fmt.Sprintf("promoted %s", strings.Join(p.promoted, ", ")))
	}
	if len(p.reassigned) > 0 {
		parts = append(parts, fmt.Sprintf("reassigned %s from driver to attendant", strings.Join(p.reassigned, ", ")))
	}
	if promotionFailed {
		parts = append(parts, "promotion failed")
	}
	if p.shortfall > 0 {
		parts = append(parts, fmt.Sprintf("%d %s place(s) still open", p.shortfall, role))
	}
	return strings.Join(parts, "; ")
}
