package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dossier/internal/compliance/aggregate"
	"dossier/internal/compliance/models"
	"dossier/internal/compliance/store/document"
	"dossier/internal/compliance/store/reminderlog"
	"dossier/internal/compliance/store/requirement"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
)

// =============================================================================
// Weekly Report Test Suite
// =============================================================================

type WeeklySuite struct {
	suite.Suite
	ctx          context.Context
	now          time.Time
	today        time.Time
	requirements *requirement.InMemoryStore
	logs         *reminderlog.InMemoryStore
	snapshots    *aggregate.Service
}

func TestWeeklySuite(t *testing.T) {
	suite.Run(t, new(WeeklySuite))
}

func (s *WeeklySuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s.today = calendar.Date(2026, 10, 19)
	s.requirements = requirement.NewInMemory()
	s.logs = reminderlog.NewInMemory()

	snaps, err := aggregate.New(s.requirements, document.NewInMemory())
	s.Require().NoError(err)
	s.snapshots = snaps
}

func (s *WeeklySuite) service(snapshots Snapshotter) *Service {
	svc, err := New(s.requirements, s.logs, snapshots, WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	return svc
}

func (s *WeeklySuite) save(userID id.UserID, status models.RequirementStatus, required time.Time, exp *time.Time) {
	s.Require().NoError(s.requirements.Save(s.ctx, &models.Requirement{
		ID:             id.NewRequirementID(),
		UserID:         userID,
		DocumentTypeID: id.NewDocumentTypeID(),
		RequiredDate:   required,
		Status:         status,
		ExpirationDate: exp,
	}))
}

func (s *WeeklySuite) logAt(rt models.ReminderType, sentAt time.Time) {
	s.Require().NoError(s.logs.Append(s.ctx, &models.ReminderLogEntry{
		ID:             id.NewReminderLogID(),
		RequirementID:  id.NewRequirementID(),
		UserID:         id.NewUserID(),
		ReminderType:   rt,
		SentAt:         sentAt,
		NotificationID: id.NewNotificationID(),
	}))
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := calendar.Date(y, m, d)
	return &t
}

// =============================================================================
// Report Content
// =============================================================================

func (s *WeeklySuite) TestBuild() {
	overdueUser := id.NewUserID()
	attentionUser := id.NewUserID()
	completeUser := id.NewUserID()
	expiredUser := id.NewUserID()

	s.save(overdueUser, models.StatusPending, calendar.Date(2026, 10, 14), nil)
	s.save(attentionUser, models.StatusPending, calendar.AddDays(s.today, 10), nil)
	s.save(completeUser, models.StatusApproved, calendar.Date(2026, 1, 1), datePtr(2027, 2, 1))
	s.save(expiredUser, models.StatusExpired, calendar.Date(2025, 10, 1), datePtr(2026, 10, 16))
	s.save(expiredUser, models.StatusExpired, calendar.Date(2025, 9, 1), datePtr(2026, 9, 1))

	s.logAt(models.ReminderWarning, time.Date(2026, 10, 13, 8, 0, 0, 0, time.UTC))
	s.logAt(models.ReminderUrgent, time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC))
	s.logAt(models.ReminderUrgent, time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC))
	s.logAt(models.ReminderWarning, time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC))

	w, err := s.service(s.snapshots).Build(s.ctx)
	s.Require().NoError(err)

	s.Equal(calendar.Date(2026, 10, 12), w.PeriodStart)
	s.Equal(calendar.Date(2026, 10, 18), w.PeriodEnd)
	s.Equal(4, w.UsersTracked)
	s.Equal(map[models.OverallStatus]int{
		models.OverallCritical:  1,
		models.OverallAttention: 1,
		models.OverallNormal:    0,
		models.OverallComplete:  2,
	}, w.StatusDistribution)
	s.Equal(map[models.ReminderType]int{
		models.ReminderWarning: 1,
		models.ReminderUrgent:  1,
	}, w.RemindersByType)
	s.Equal(2, w.RemindersSent)
	s.Equal(1, w.RequirementsExpired)
	s.Equal(1, w.RequirementsOverdue)
	s.Zero(w.SnapshotFailures)

	s.Run("summary text", func() {
		s.Equal("Resumen semanal de cumplimiento", w.Title())
		s.Contains(w.Summary(), "Del 2026-10-12 al 2026-10-18: 4 personas con requisitos (1 críticas, 1 con atención, 0 normales, 2 completas)")
		s.Contains(w.Summary(), "2 recordatorios enviados, 1 requisitos vencidos y 1 entregas atrasadas")
	})

	s.Run("data payload", func() {
		data := w.Data()
		s.Equal("weekly_compliance", data["report"])
		s.Equal(4, data["users_tracked"])
		s.Equal(map[string]int{"critical": 1, "attention": 1, "normal": 0, "complete": 2}, data["status_distribution"])
	})
}

func (s *WeeklySuite) TestEmptyStores() {
	w, err := s.service(s.snapshots).Build(s.ctx)
	s.Require().NoError(err)
	s.Zero(w.UsersTracked)
	s.Zero(w.RemindersSent)
	s.Len(w.StatusDistribution, len(models.OverallStatuses))
}

func (s *WeeklySuite) TestWindowFollowsTimezone() {
	loc, err := time.LoadLocation("America/Mexico_City")
	s.Require().NoError(err)
	// 05:00 UTC on the 20th is still the 19th in Mexico City.
	s.now = time.Date(2026, 10, 20, 5, 0, 0, 0, time.UTC)
	s.logAt(models.ReminderRenewal, time.Date(2026, 10, 19, 5, 30, 0, 0, time.UTC))

	svc, err := New(s.requirements, s.logs, s.snapshots,
		WithClock(func() time.Time { return s.now }), WithLocation(loc))
	s.Require().NoError(err)
	w, err := svc.Build(s.ctx)
	s.Require().NoError(err)

	s.Equal(calendar.Date(2026, 10, 18), w.PeriodEnd)
	s.Equal(1, w.RemindersByType[models.ReminderRenewal])
}

// =============================================================================
// Failure Handling
// =============================================================================

type flakySnapshots struct {
	inner   Snapshotter
	failFor id.UserID
}

func (f flakySnapshots) SnapshotOn(ctx context.Context, userID id.UserID, today time.Time) (*models.ComplianceSnapshot, error) {
	if userID == f.failFor {
		return nil, errors.New("document store timeout")
	}
	return f.inner.SnapshotOn(ctx, userID, today)
}

func (s *WeeklySuite) TestSnapshotFailureIsCounted() {
	failing := id.NewUserID()
	healthy := id.NewUserID()
	s.save(failing, models.StatusPending, calendar.AddDays(s.today, 3), nil)
	s.save(healthy, models.StatusPending, calendar.AddDays(s.today, 3), nil)

	w, err := s.service(flakySnapshots{inner: s.snapshots, failFor: failing}).Build(s.ctx)
	s.Require().NoError(err)

	s.Equal(2, w.UsersTracked)
	s.Equal(1, w.SnapshotFailures)
	s.Equal(1, w.StatusDistribution[models.OverallAttention])
}

type stalledSnapshots struct {
	inner   Snapshotter
	stallOn id.UserID
}

func (f stalledSnapshots) SnapshotOn(ctx context.Context, userID id.UserID, today time.Time) (*models.ComplianceSnapshot, error) {
	if userID == f.stallOn {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.inner.SnapshotOn(ctx, userID, today)
}

type stalledLogs struct{}

func (stalledLogs) CountByTypeBetween(ctx context.Context, _, _ time.Time) (map[models.ReminderType]int, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *WeeklySuite) TestStalledCallsTimeOut() {
	stalled := id.NewUserID()
	healthy := id.NewUserID()
	s.save(stalled, models.StatusPending, calendar.AddDays(s.today, 3), nil)
	s.save(healthy, models.StatusPending, calendar.AddDays(s.today, 3), nil)

	s.Run("stalled snapshot is counted as a failure", func() {
		svc, err := New(s.requirements, s.logs, stalledSnapshots{inner: s.snapshots, stallOn: stalled},
			WithClock(func() time.Time { return s.now }),
			WithCallTimeout(20*time.Millisecond),
		)
		s.Require().NoError(err)

		w, err := svc.Build(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, w.UsersTracked)
		s.Equal(1, w.SnapshotFailures)
		s.Equal(1, w.StatusDistribution[models.OverallAttention])
	})

	s.Run("stalled log count fails the build", func() {
		svc, err := New(s.requirements, stalledLogs{}, s.snapshots,
			WithClock(func() time.Time { return s.now }),
			WithCallTimeout(20*time.Millisecond),
		)
		s.Require().NoError(err)

		_, err = svc.Build(s.ctx)
		s.ErrorIs(err, context.DeadlineExceeded)
		s.ErrorContains(err, "count reminders")
	})
}

func (s *WeeklySuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.logs, s.snapshots)
	s.Error(err)
	_, err = New(s.requirements, nil, s.snapshots)
	s.Error(err)
	_, err = New(s.requirements, s.logs, nil)
	s.Error(err)
}
