// Package report builds the weekly compliance summary sent to administrators.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dossier/internal/compliance/models"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
)

const (
	DefaultWindowDays  = 7
	defaultConcurrency = 8
	defaultCallTimeout = 10 * time.Second
)

type RequirementStore interface {
	ListUserIDs(ctx context.Context) ([]id.UserID, error)
	List(ctx context.Context, filter models.RequirementFilter) ([]*models.Requirement, error)
}

type LogStore interface {
	CountByTypeBetween(ctx context.Context, from, to time.Time) (map[models.ReminderType]int, error)
}

// Snapshotter computes one person's compliance snapshot on a given day.
type Snapshotter interface {
	SnapshotOn(ctx context.Context, userID id.UserID, today time.Time) (*models.ComplianceSnapshot, error)
}

// Weekly is the aggregate over a trailing window ending yesterday.
type Weekly struct {
	PeriodStart         time.Time                    `json:"period_start"`
	PeriodEnd           time.Time                    `json:"period_end"`
	UsersTracked        int                          `json:"users_tracked"`
	StatusDistribution  map[models.OverallStatus]int `json:"status_distribution"`
	RemindersByType     map[models.ReminderType]int  `json:"reminders_by_type"`
	RemindersSent       int                          `json:"reminders_sent"`
	RequirementsExpired int                          `json:"requirements_expired"`
	RequirementsOverdue int                          `json:"requirements_overdue"`
	SnapshotFailures    int                          `json:"snapshot_failures,omitempty"`
}

type Service struct {
	requirements RequirementStore
	logs         LogStore
	snapshots    Snapshotter
	logger       *slog.Logger
	loc          *time.Location
	now          func() time.Time
	windowDays   int
	concurrency  int
	callTimeout  time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// WithCallTimeout bounds every store call and every per-user snapshot.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(requirements RequirementStore, logs LogStore, snapshots Snapshotter, opts ...Option) (*Service, error) {
	if requirements == nil {
		return nil, fmt.Errorf("requirement store is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("reminder log store is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot source is required")
	}
	s := &Service{
		requirements: requirements,
		logs:         logs,
		snapshots:    snapshots,
		logger:       slog.Default(),
		loc:          time.UTC,
		now:          time.Now,
		windowDays:   DefaultWindowDays,
		concurrency:  defaultConcurrency,
		callTimeout:  defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Build computes the report for the window [today-windowDays, today).
// Individual snapshot failures are counted, not returned.
func (s *Service) Build(ctx context.Context) (*Weekly, error) {
	today := calendar.Day(s.now(), s.loc)
	yesterday := calendar.AddDays(today, -1)
	w := &Weekly{
		PeriodStart:        calendar.AddDays(today, -s.windowDays),
		PeriodEnd:          yesterday,
		StatusDistribution: make(map[models.OverallStatus]int, len(models.OverallStatuses)),
	}
	for _, st := range models.OverallStatuses {
		w.StatusDistribution[st] = 0
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	users, err := s.requirements.ListUserIDs(callCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list tracked users: %w", err)
	}
	w.UsersTracked = len(users)

	if err := s.distribute(ctx, w, users, today); err != nil {
		return nil, err
	}

	callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
	counts, err := s.logs.CountByTypeBetween(callCtx, calendar.StartIn(w.PeriodStart, s.loc), calendar.StartIn(today, s.loc))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("count reminders: %w", err)
	}
	w.RemindersByType = counts
	for _, n := range counts {
		w.RemindersSent += n
	}

	callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
	expired, err := s.requirements.List(callCtx, models.RequirementFilter{
		Statuses:       []models.RequirementStatus{models.StatusExpired},
		ExpirationFrom: &w.PeriodStart,
		ExpirationTo:   &yesterday,
	})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list expired requirements: %w", err)
	}
	w.RequirementsExpired = len(expired)

	callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
	overdue, err := s.requirements.List(callCtx, models.RequirementFilter{
		Statuses:   []models.RequirementStatus{models.StatusPending},
		RequiredBy: &yesterday,
	})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list overdue requirements: %w", err)
	}
	w.RequirementsOverdue = len(overdue)

	s.logger.InfoContext(ctx, "weekly report built",
		"period_start", w.PeriodStart.Format(time.DateOnly),
		"period_end", w.PeriodEnd.Format(time.DateOnly),
		"users", w.UsersTracked,
		"reminders", w.RemindersSent,
		"snapshot_failures", w.SnapshotFailures,
	)
	return w, nil
}

func (s *Service) distribute(ctx context.Context, w *Weekly, users []id.UserID, today time.Time) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, userID := range users {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.callTimeout)
			snap, err := s.snapshots.SnapshotOn(callCtx, userID, today)
			cancel()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				w.SnapshotFailures++
				s.logger.WarnContext(gctx, "snapshot failed for weekly report", "user_id", userID, "error", err)
				return nil
			}
			w.StatusDistribution[snap.OverallStatus]++
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// Title is the notification title of the report.
func (w *Weekly) Title() string {
	return "Resumen semanal de cumplimiento"
}

// Summary renders the report as notification text.
func (w *Weekly) Summary() string {
	return fmt.Sprintf(
		"Del %s al %s: %d personas con requisitos (%d críticas, %d con atención, %d normales, %d completas). "+
			"%d recordatorios enviados, %d requisitos vencidos y %d entregas atrasadas.",
		w.PeriodStart.Format(time.DateOnly), w.PeriodEnd.Format(time.DateOnly),
		w.UsersTracked,
		w.StatusDistribution[models.OverallCritical],
		w.StatusDistribution[models.OverallAttention],
		w.StatusDistribution[models.OverallNormal],
		w.StatusDistribution[models.OverallComplete],
		w.RemindersSent, w.RequirementsExpired, w.RequirementsOverdue,
	)
}

// Data is the structured payload attached to the report notification.
func (w *Weekly) Data() map[string]any {
	distribution := make(map[string]int, len(w.StatusDistribution))
	for k, v := range w.StatusDistribution {
		distribution[string(k)] = v
	}
	byType := make(map[string]int, len(w.RemindersByType))
	for k, v := range w.RemindersByType {
		byType[string(k)] = v
	}
	return map[string]any{
		"report":               "weekly_compliance",
		"period_start":         w.PeriodStart.Format(time.DateOnly),
		"period_end":           w.PeriodEnd.Format(time.DateOnly),
		"users_tracked":        w.UsersTracked,
		"status_distribution":  distribution,
		"reminders_by_type":    byType,
		"reminders_sent":       w.RemindersSent,
		"requirements_expired": w.RequirementsExpired,
		"requirements_overdue": w.RequirementsOverdue,
	}
}
