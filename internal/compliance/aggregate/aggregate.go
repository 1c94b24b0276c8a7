// Package aggregate rolls a person's requirements and documents up into a
// compliance snapshot.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dossier/internal/compliance/models"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
)

// ExpiringSoonDays is the horizon for an active document to count as expiring.
const ExpiringSoonDays = 30

// ComputeSnapshot is the pure rollup. It is total: every input yields exactly
// one overall status.
func ComputeSnapshot(userID id.UserID, reqs []*models.Requirement, docs []*models.Document, today time.Time) *models.ComplianceSnapshot {
	snap := &models.ComplianceSnapshot{UserID: userID, AsOf: today}

	for _, d := range docs {
		if d == nil {
			continue
		}
		switch d.Status {
		case models.DocumentActive:
			bucketActive(&snap.DocumentStatus, d, today)
		case models.DocumentExpired:
			snap.DocumentStatus.Expired++
		case models.DocumentPending:
			snap.DocumentStatus.Pending++
		}
	}

	for _, r := range reqs {
		if r == nil {
			continue
		}
		switch r.Status {
		case models.StatusPending:
			snap.RequirementStatus.Pending++
			if calendar.DaysBetween(today, r.RequiredDate) < 0 {
				snap.RequirementStatus.Overdue++
			}
		case models.StatusApproved:
			snap.RequirementStatus.Completed++
		}
	}

	snap.OverallStatus = Rollup(snap.DocumentStatus, snap.RequirementStatus)
	return snap
}

func bucketActive(c *models.DocumentCounts, d *models.Document, today time.Time) {
	if d.ExpirationDate == nil {
		c.Active++
		return
	}
	days := calendar.DaysBetween(today, *d.ExpirationDate)
	switch {
	case days < 0:
		c.Expired++
	case days <= ExpiringSoonDays:
		c.ExpiringSoon++
	default:
		c.Active++
	}
}

// Rollup applies the priority order critical > attention > normal > complete.
func Rollup(docs models.DocumentCounts, reqs models.RequirementCounts) models.OverallStatus {
	switch {
	case docs.Expired > 0 || reqs.Overdue > 0:
		return models.OverallCritical
	case docs.ExpiringSoon > 0 || reqs.Pending > 0:
		return models.OverallAttention
	case docs.Pending > 0:
		return models.OverallNormal
	default:
		return models.OverallComplete
	}
}

type RequirementStore interface {
	List(ctx context.Context, filter models.RequirementFilter) ([]*models.Requirement, error)
}

type DocumentStore interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Document, error)
}

// Service computes snapshots on demand over the stores.
type Service struct {
	requirements RequirementStore
	documents    DocumentStore
	loc          *time.Location
	now          func() time.Time
	logger       *slog.Logger
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

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(requirements RequirementStore, documents DocumentStore, opts ...Option) (*Service, error) {
	if requirements == nil {
		return nil, fmt.Errorf("requirement store is required")
	}
	if documents == nil {
		return nil, fmt.Errorf("document store is required")
	}
	s := &Service{
		requirements: requirements,
		documents:    documents,
		loc:          time.UTC,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Today is the current civil date in the service's timezone.
func (s *Service) Today() time.Time {
	return calendar.Day(s.now(), s.loc)
}

// Snapshot computes the current compliance snapshot of one person.
func (s *Service) Snapshot(ctx context.Context, userID id.UserID) (*models.ComplianceSnapshot, error) {
	return s.SnapshotOn(ctx, userID, s.Today())
}

// SnapshotOn computes the snapshot as of a given civil date.
func (s *Service) SnapshotOn(ctx context.Context, userID id.UserID, today time.Time) (*models.ComplianceSnapshot, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	reqs, err := s.requirements.List(ctx, models.RequirementFilter{UserID: &userID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requirements")
	}
	docs, err := s.documents.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load documents")
	}
	snap := ComputeSnapshot(userID, reqs, docs, today)
	if s.logger != nil {
		s.logger.DebugContext(ctx, "compliance snapshot computed",
			"user_id", userID,
			"overall_status", snap.OverallStatus,
		)
	}
	return snap, nil
}
