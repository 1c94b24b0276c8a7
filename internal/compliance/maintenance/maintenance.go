// Package maintenance holds the daily housekeeping of the reminder engine:
// expiring lapsed requirements the reminder run may have missed and purging
// old reminder log entries.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dossier/internal/compliance/metrics"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/audit"
)

// DefaultLogRetentionMonths is how long reminder log entries are kept.
const DefaultLogRetentionMonths = 6

const defaultCallTimeout = 10 * time.Second

type RequirementStore interface {
	ExpireLapsed(ctx context.Context, today, at time.Time) ([]id.RequirementID, error)
}

type LogStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type Service struct {
	requirements    RequirementStore
	logs            LogStore
	metrics         *metrics.Metrics
	logger          *slog.Logger
	loc             *time.Location
	now             func() time.Time
	retentionMonths int
	callTimeout     time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
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

func WithLogRetentionMonths(months int) Option {
	return func(s *Service) {
		if months > 0 {
			s.retentionMonths = months
		}
	}
}

// WithCallTimeout bounds each store call. A timed-out step is reported as an
// error and the other step still runs.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

func New(requirements RequirementStore, logs LogStore, opts ...Option) (*Service, error) {
	if requirements == nil {
		return nil, fmt.Errorf("requirement store is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("reminder log store is required")
	}
	s := &Service{
		requirements:    requirements,
		logs:            logs,
		logger:          slog.Default(),
		loc:             time.UTC,
		now:             time.Now,
		retentionMonths: DefaultLogRetentionMonths,
		callTimeout:     defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Result summarizes one maintenance run.
type Result struct {
	Date       time.Time          `json:"date"`
	Expired    []id.RequirementID `json:"expired"`
	LogCutoff  time.Time          `json:"log_cutoff"`
	LogsPurged int                `json:"logs_purged"`
}

// Run flips every submitted or approved requirement whose expiration date is
// before today to expired, then purges reminder log entries older than the
// retention window. Both steps always run; their errors are joined.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	now := s.now()
	res := &Result{
		Date:      calendar.Day(now, s.loc),
		LogCutoff: now.AddDate(0, -s.retentionMonths, 0),
	}

	var errs []error
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	expired, err := s.requirements.ExpireLapsed(callCtx, res.Date, now)
	cancel()
	if err != nil {
		errs = append(errs, fmt.Errorf("expire lapsed requirements: %w", err))
	}
	res.Expired = expired
	for _, reqID := range expired {
		audit.LogAudit(ctx, s.logger, "requirement_expired",
			"requirement_id", reqID.String(),
			"source", "maintenance",
		)
	}
	if s.metrics != nil && len(expired) > 0 {
		s.metrics.AddExpired("maintenance", len(expired))
	}

	callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
	purged, err := s.logs.DeleteOlderThan(callCtx, res.LogCutoff)
	cancel()
	if err != nil {
		errs = append(errs, fmt.Errorf("purge reminder logs: %w", err))
	}
	res.LogsPurged = purged
	if s.metrics != nil && purged > 0 {
		s.metrics.AddLogsPurged(purged)
	}

	s.logger.InfoContext(ctx, "daily maintenance finished",
		"date", res.Date.Format(time.DateOnly),
		"expired", len(res.Expired),
		"logs_purged", res.LogsPurged,
		"log_cutoff", res.LogCutoff,
	)
	return res, errors.Join(errs...)
}
