package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
	"github.com/jakechorley/ride-rota/pkg/notify"
)

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// mockStore is an in-memory db.Database for service tests
type mockStore struct {
	events        map[int64]*db.Event
	nextEventID   int64
	users         map[string]db.User
	applications  []db.Application
	selections    []db.Selection
	notifications []db.Notification

	getStatsErr        error
	getUsersErr        error
	insertSelectionErr error
	replaceErr         error
}

var _ db.Database = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		events: make(map[int64]*db.Event),
		users:  make(map[string]db.User),
	}
}

func intPtr(v int) *int { return &v }

func (m *mockStore) addEvent(date string, capD, capA *int) int64 {
	m.nextEventID++
	m.events[m.nextEventID] = &db.Event{
		ID:                m.nextEventID,
		Date:              date,
		Label:             "Sunday run",
		CapacityDriver:    capD,
		CapacityAttendant: capA,
	}
	return m.nextEventID
}

func (m *mockStore) addUser(username string, role model.UserRole, familiar model.Familiarity) {
	m.users[username] = db.User{Username: username, Role: role, Familiar: familiar, Email: username + "@example.com"}
}

// apply adds an application created the given number of minutes after baseTime
func (m *mockStore) apply(eventID int64, username string, role model.Role, minute int) {
	m.applications = append(m.applications, db.Application{
		ID:        int64(len(m.applications) + 1),
		EventID:   eventID,
		Username:  username,
		Role:      role,
		CreatedAt: baseTime.Add(time.Duration(minute) * time.Minute),
	})
}

// confirmed records a past or current selection directly in the ledger
func (m *mockStore) confirmed(eventID int64, username string, role model.Role, decidedAt time.Time) {
	m.selections = append(m.selections, db.Selection{EventID: eventID, Username: username, Role: role, DecidedAt: decidedAt})
}

func (m *mockStore) applicationRole(eventID int64, username string) (model.Role, bool) {
	for _, a := range m.applications {
		if a.EventID == eventID && a.Username == username {
			return a.Role, true
		}
	}
	return "", false
}

func (m *mockStore) selectedAs(eventID int64, role model.Role) []string {
	var names []string
	for _, s := range m.selections {
		if s.EventID == eventID && s.Role == role {
			names = append(names, s.Username)
		}
	}
	return names
}

func (m *mockStore) GetEvent(ctx context.Context, id int64) (*db.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: id=%d", model.ErrEventNotFound, id)
	}
	event := *e
	return &event, nil
}

func (m *mockStore) ListEvents(ctx context.Context, from, to string) ([]db.Event, error) {
	var events []db.Event
	for _, e := range m.events {
		if (from == "" || e.Date >= from) && (to == "" || e.Date <= to) {
			events = append(events, *e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (m *mockStore) InsertEvent(ctx context.Context, event *db.Event) error {
	m.nextEventID++
	event.ID = m.nextEventID
	stored := *event
	m.events[event.ID] = &stored
	return nil
}

func (m *mockStore) UpdateEventCapacity(ctx context.Context, id int64, capacityDriver, capacityAttendant *int) error {
	e, ok := m.events[id]
	if !ok {
		return fmt.Errorf("%w: id=%d", model.ErrEventNotFound, id)
	}
	e.CapacityDriver = capacityDriver
	e.CapacityAttendant = capacityAttendant
	return nil
}

func (m *mockStore) DeleteEvent(ctx context.Context, id int64) error {
	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("%w: id=%d", model.ErrEventNotFound, id)
	}
	delete(m.events, id)
	m.applications = slices.DeleteFunc(m.applications, func(a db.Application) bool { return a.EventID == id })
	return nil
}

func (m *mockStore) GetUsers(ctx context.Context) ([]db.User, error) {
	if m.getUsersErr != nil {
		return nil, m.getUsersErr
	}
	users := make([]db.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *mockStore) GetUser(ctx context.Context, username string) (*db.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
	}
	return &u, nil
}

func (m *mockStore) UpsertUser(ctx context.Context, user *db.User) error {
	m.users[user.Username] = *user
	return nil
}

func (m *mockStore) SetFamiliarity(ctx context.Context, username string, familiar model.Familiarity) error {
	u, ok := m.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
	}
	u.Familiar = familiar
	m.users[username] = u
	return nil
}

func (m *mockStore) DeleteUser(ctx context.Context, username string) (int, error) {
	if _, ok := m.users[username]; !ok {
		return 0, fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
	}
	delete(m.users, username)
	before := len(m.applications)
	m.applications = slices.DeleteFunc(m.applications, func(a db.Application) bool {
		return a.Username == username
	})
	return before - len(m.applications), nil
}

func (m *mockStore) GetApplications(ctx context.Context, eventID int64) ([]db.Application, error) {
	var apps []db.Application
	for _, a := range m.applications {
		if a.EventID == eventID {
			apps = append(apps, a)
		}
	}
	return apps, nil
}

func (m *mockStore) InsertApplication(ctx context.Context, eventID int64, username string, role model.Role) (bool, error) {
	if existing, ok := m.applicationRole(eventID, username); ok {
		if existing == role {
			return false, nil
		}
		return false, model.ErrRoleConflict
	}
	m.apply(eventID, username, role, len(m.applications))
	return true, nil
}

func (m *mockStore) DeleteApplication(ctx context.Context, eventID int64, username string, role model.Role) (bool, error) {
	before := len(m.applications)
	m.applications = slices.DeleteFunc(m.applications, func(a db.Application) bool {
		return a.EventID == eventID && a.Username == username && a.Role == role
	})
	return len(m.applications) < before, nil
}

func (m *mockStore) GetParticipationStats(ctx context.Context) ([]db.ParticipationStat, error) {
	if m.getStatsErr != nil {
		return nil, m.getStatsErr
	}
	type key struct {
		username string
		role     model.Role
	}
	agg := make(map[key]*db.ParticipationStat)
	var order []key
	for _, s := range m.selections {
		k := key{s.Username, s.Role}
		stat, ok := agg[k]
		if !ok {
			stat = &db.ParticipationStat{Username: s.Username, Role: s.Role}
			agg[k] = stat
			order = append(order, k)
		}
		stat.Times++
		decided := s.DecidedAt
		if stat.LastConfirmedAt == nil || decided.After(*stat.LastConfirmedAt) {
			stat.LastConfirmedAt = &decided
		}
	}
	stats := make([]db.ParticipationStat, 0, len(order))
	for _, k := range order {
		stats = append(stats, *agg[k])
	}
	return stats, nil
}

func (m *mockStore) GetSelections(ctx context.Context, eventID int64) ([]db.Selection, error) {
	var selections []db.Selection
	for _, s := range m.selections {
		if s.EventID == eventID {
			selections = append(selections, s)
		}
	}
	return selections, nil
}

func (m *mockStore) GetSelectionsOnDate(ctx context.Context, date string) ([]db.Selection, error) {
	var selections []db.Selection
	for _, s := range m.selections {
		if e, ok := m.events[s.EventID]; ok && e.Date == date {
			selections = append(selections, s)
		}
	}
	return selections, nil
}

func (m *mockStore) GetSelectionHistory(ctx context.Context, username string) ([]db.SelectionHistoryEntry, error) {
	var entries []db.SelectionHistoryEntry
	for _, s := range m.selections {
		if s.Username != username {
			continue
		}
		entry := db.SelectionHistoryEntry{Selection: s}
		if e, ok := m.events[s.EventID]; ok {
			entry.EventDate = e.Date
			entry.EventLabel = e.Label
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].EventDate > entries[j].EventDate })
	return entries, nil
}

func (m *mockStore) ReplaceSelections(ctx context.Context, eventID int64, selections []db.Selection) ([]db.Selection, error) {
	if m.replaceErr != nil {
		return nil, m.replaceErr
	}
	if _, ok := m.events[eventID]; !ok {
		return nil, fmt.Errorf("%w: id=%d", model.ErrEventNotFound, eventID)
	}
	previous, _ := m.GetSelections(ctx, eventID)
	m.selections = slices.DeleteFunc(m.selections, func(s db.Selection) bool { return s.EventID == eventID })
	m.selections = append(m.selections, selections...)
	return previous, nil
}

func (m *mockStore) DeleteSelections(ctx context.Context, eventID int64) (int, error) {
	if _, ok := m.events[eventID]; !ok {
		return 0, fmt.Errorf("%w: id=%d", model.ErrEventNotFound, eventID)
	}
	before := len(m.selections)
	m.selections = slices.DeleteFunc(m.selections, func(s db.Selection) bool { return s.EventID == eventID })
	return before - len(m.selections), nil
}

func (m *mockStore) DeleteSelection(ctx context.Context, eventID int64, username string, role model.Role) (bool, error) {
	before := len(m.selections)
	m.selections = slices.DeleteFunc(m.selections, func(s db.Selection) bool {
		return s.EventID == eventID && s.Username == username && s.Role == role
	})
	return len(m.selections) < before, nil
}

func (m *mockStore) hasRoom(eventID int64, username string, role model.Role, capacity int) bool {
	count := 0
	for _, s := range m.selections {
		if s.EventID != eventID {
			continue
		}
		if s.Username == username {
			return false
		}
		if s.Role == role {
			count++
		}
	}
	return count < capacity
}

func (m *mockStore) InsertSelectionWithinCapacity(ctx context.Context, selection db.Selection, capacity int) (bool, error) {
	if m.insertSelectionErr != nil {
		return false, m.insertSelectionErr
	}
	if !m.hasRoom(selection.EventID, selection.Username, selection.Role, capacity) {
		return false, nil
	}
	m.selections = append(m.selections, selection)
	return true, nil
}

func (m *mockStore) ReassignDriverAsAttendant(ctx context.Context, eventID int64, username string, capacity int, decidedAt time.Time) (bool, error) {
	if !m.hasRoom(eventID, username, model.RoleAttendant, capacity) {
		return false, nil
	}
	for i, a := range m.applications {
		if a.EventID == eventID && a.Username == username && a.Role == model.RoleDriver {
			m.applications[i].Role = model.RoleAttendant
			m.selections = append(m.selections, db.Selection{EventID: eventID, Username: username, Role: model.RoleAttendant, DecidedAt: decidedAt})
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) InsertNotification(ctx context.Context, notification *db.Notification) error {
	m.notifications = append(m.notifications, *notification)
	return nil
}

func (m *mockStore) HasNotification(ctx context.Context, username string, eventID int64, kind string) (bool, error) {
	for _, n := range m.notifications {
		if n.Username == username && n.EventID != nil && *n.EventID == eventID && n.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) GetNotifications(ctx context.Context, username string) ([]db.Notification, error) {
	var notifications []db.Notification
	for _, n := range m.notifications {
		if n.Username == username {
			notifications = append(notifications, n)
		}
	}
	return notifications, nil
}

func (m *mockStore) MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error {
	for i, n := range m.notifications {
		if n.ID == id {
			m.notifications[i].ReadAt = &readAt
		}
	}
	return nil
}

func (m *mockStore) RunMigrations(ctx context.Context) error { return nil }

func (m *mockStore) Close() {}

// recordingNotifier captures every message it is asked to deliver
type recordingNotifier struct {
	messages []notify.Message
	err      error
}

func (r *recordingNotifier) Notify(ctx context.Context, msg notify.Message) error {
	r.messages = append(r.messages, msg)
	return r.err
}

func (r *recordingNotifier) kindsFor(username string) []string {
	var kinds []string
	for _, msg := range r.messages {
		if msg.Username == username {
			kinds = append(kinds, msg.Kind)
		}
	}
	return kinds
}

// mockCalendar records calendar sync calls
type mockCalendar struct {
	upserted map[int64][]db.Selection
	deleted  []int64
	err      error
}

func newMockCalendar() *mockCalendar {
	return &mockCalendar{upserted: make(map[int64][]db.Selection)}
}

func (c *mockCalendar) UpsertEvent(ctx context.Context, event db.Event, selections []db.Selection) error {
	c.upserted[event.ID] = selections
	return c.err
}

func (c *mockCalendar) DeleteEvent(ctx context.Context, eventID int64) error {
	c.deleted = append(c.deleted, eventID)
	return c.err
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
}
