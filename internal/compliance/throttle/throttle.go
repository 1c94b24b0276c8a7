// Package throttle decides whether a reminder may be sent again.
//
// A reminder of a given type for a given requirement is sent at most once per
// cooldown period. Lookup failures fail closed: when the history cannot be
// read, nothing is sent.
package throttle

//go:generate mockgen -source=throttle.go -destination=mocks/history_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dossier/internal/compliance/models"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/sentinel"
)

// cooldownDays is the fixed cooldown policy, in civil days.
var cooldownDays = map[models.ReminderType]int{
	models.ReminderWarning: 3,
	models.ReminderUrgent:  1,
	models.ReminderExpired: 1,
	models.ReminderRenewal: 7,
	models.ReminderDueSoon: 3,
	models.ReminderOverdue: 1,
}

// Cooldown returns the cooldown in days for a reminder type.
func Cooldown(t models.ReminderType) (int, bool) {
	d, ok := cooldownDays[t]
	return d, ok
}

// HistoryStore yields the most recent log entry for a (requirement, type) pair.
// It returns (nil, nil) or sentinel.ErrNotFound when there is none.
type HistoryStore interface {
	LatestReminder(ctx context.Context, requirementID id.RequirementID, reminderType models.ReminderType) (*models.ReminderLogEntry, error)
}

// Throttle evaluates cooldowns against reminder history.
type Throttle struct {
	history HistoryStore
	loc     *time.Location
	logger  *slog.Logger
}

type Option func(*Throttle)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Throttle) {
		t.logger = logger
	}
}

// WithLocation sets the timezone used to turn log timestamps into civil days.
func WithLocation(loc *time.Location) Option {
	return func(t *Throttle) {
		if loc != nil {
			t.loc = loc
		}
	}
}

func New(history HistoryStore, opts ...Option) (*Throttle, error) {
	if history == nil {
		return nil, fmt.Errorf("reminder history store is required")
	}
	t := &Throttle{history: history, loc: time.UTC}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// ShouldSend reports whether a reminder of reminderType may be sent for
// requirementID on the civil date today. Any error means "do not send".
func (t *Throttle) ShouldSend(ctx context.Context, requirementID id.RequirementID, reminderType models.ReminderType, today time.Time) (bool, error) {
	if _, ok := Cooldown(reminderType); !ok {
		return false, dErrors.New(dErrors.CodeValidation, "unknown reminder type "+string(reminderType))
	}

	last, err := t.history.LatestReminder(ctx, requirementID, reminderType)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		if t.logger != nil {
			t.logger.WarnContext(ctx, "reminder history lookup failed, holding reminder",
				"requirement_id", requirementID,
				"reminder_type", reminderType,
				"error", err,
			)
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read reminder history")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		last = nil
	}
	return Allowed(last, reminderType, today, t.loc), nil
}

// Allowed is the pure cooldown rule: send when there is no prior entry or when
// at least the cooldown's worth of civil days have passed since it was sent.
func Allowed(last *models.ReminderLogEntry, reminderType models.ReminderType, today time.Time, loc *time.Location) bool {
	cooldown, ok := Cooldown(reminderType)
	if !ok {
		return false
	}
	if last == nil {
		return true
	}
	elapsed := calendar.DaysBetween(calendar.Day(last.SentAt, loc), today)
	return elapsed >= cooldown
}
