package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dossier/internal/notification/metrics"
	"dossier/internal/notification/models"
	"dossier/internal/notification/service/mocks"
	"dossier/internal/notification/store/directory"
	"dossier/internal/notification/store/notification"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/circuit"
)

// =============================================================================
// Notification Service Test Suite
// =============================================================================

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	store     *notification.InMemoryStore
	directory *directory.InMemoryStore
	pusher    *mocks.MockPusher
	metrics   *metrics.Metrics
	now       time.Time
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.store = notification.NewInMemory()
	s.directory = directory.NewInMemory()
	s.pusher = mocks.NewMockPusher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	breaker := circuit.New("test-push", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	svc, err := New(s.store, s.directory,
		WithPusher(s.pusher, breaker),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) message(recipients ...id.UserID) models.Message {
	return models.Message{
		Recipients: recipients,
		Title:      "Documento por vencer",
		Message:    "Pasaporte vence en 5 días",
		Type:       models.TypeWarning,
		Priority:   models.PriorityHigh,
		Data:       map[string]any{"reminder_type": "urgent"},
	}
}

// =============================================================================
// Send
// =============================================================================

func (s *ServiceSuite) TestSendPersistsAndPushes() {
	user := id.NewUserID()
	s.pusher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	sent, err := s.service.Send(s.ctx, s.message(user))
	s.Require().NoError(err)
	s.Require().Len(sent, 1)

	stored, err := s.store.FindByID(s.ctx, sent[0].ID)
	s.Require().NoError(err)
	s.Equal(user, stored.RecipientID)
	s.Equal(s.now, stored.CreatedAt)
	s.False(stored.IsRead)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Pushed))
}

func (s *ServiceSuite) TestPushFailureDoesNotFailSend() {
	s.pusher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	sent, err := s.service.Send(s.ctx, s.message(id.NewUserID()))
	s.Require().NoError(err)
	s.Len(sent, 1)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.PushFailures))
}

func (s *ServiceSuite) TestOpenBreakerSkipsPush() {
	s.pusher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(2)

	for range 4 {
		_, err := s.service.Send(s.ctx, s.message(id.NewUserID()))
		s.Require().NoError(err)
	}
	s.Equal(2.0, promtest.ToFloat64(s.metrics.PushSkipped))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.BreakerState))
}

func (s *ServiceSuite) TestSendRejectsInvalidMessage() {
	s.Run("no recipients", func() {
		_, err := s.service.Send(s.ctx, s.message())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("unknown priority", func() {
		msg := s.message(id.NewUserID())
		msg.Priority = "whenever"
		_, err := s.service.Send(s.ctx, msg)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestStoreFailureIsUnavailable() {
	store := mocks.NewMockStore(s.ctrl)
	svc, err := New(store, s.directory)
	s.Require().NoError(err)

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	_, err = svc.Send(s.ctx, s.message(id.NewUserID()))
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

// =============================================================================
// Admins
// =============================================================================

func (s *ServiceSuite) TestNotifyAdmins() {
	admin1, admin2, employee := id.NewUserID(), id.NewUserID(), id.NewUserID()
	s.directory.SetRole(admin1, directory.RoleAdmin)
	s.directory.SetRole(admin2, directory.RoleAdmin)
	s.directory.SetRole(employee, "employee")
	s.pusher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	sent, err := s.service.NotifyAdmins(s.ctx, s.message(employee))
	s.Require().NoError(err)
	s.Len(sent, 2)
	for _, n := range sent {
		s.NotEqual(employee, n.RecipientID)
	}
}

func (s *ServiceSuite) TestNotifyAdminsWithoutAdmins() {
	sent, err := s.service.NotifyAdmins(s.ctx, s.message())
	s.Require().NoError(err)
	s.Empty(sent)
}

// =============================================================================
// Read state and cleanup
// =============================================================================

func (s *ServiceSuite) TestCleanupDeletesOnlyOldReadNotifications() {
	user := id.NewUserID()
	s.pusher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	s.now = time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	oldRead, err := s.service.Send(s.ctx, s.message(user))
	s.Require().NoError(err)
	oldUnread, err := s.service.Send(s.ctx, s.message(user))
	s.Require().NoError(err)
	s.Require().NoError(s.service.MarkRead(s.ctx, user, oldRead[0].ID))

	s.now = time.Date(2026, 10, 10, 8, 0, 0, 0, time.UTC)
	recentRead, err := s.service.Send(s.ctx, s.message(user))
	s.Require().NoError(err)
	s.Require().NoError(s.service.MarkRead(s.ctx, user, recentRead[0].ID))

	s.now = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	deleted, err := s.service.CleanupRead(s.ctx, 30*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(1, deleted)

	remaining, err := s.service.List(s.ctx, user, 0)
	s.Require().NoError(err)
	ids := []id.NotificationID{remaining[0].ID, remaining[1].ID}
	s.ElementsMatch([]id.NotificationID{oldUnread[0].ID, recentRead[0].ID}, ids)
}

func (s *ServiceSuite) TestMarkReadChecksOwnership() {
	owner := id.NewUserID()
	s.pusher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	sent, err := s.service.Send(s.ctx, s.message(owner))
	s.Require().NoError(err)

	err = s.service.MarkRead(s.ctx, id.NewUserID(), sent[0].ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.MarkRead(s.ctx, owner, id.NewNotificationID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.directory)
	s.Error(err)
	_, err = New(s.store, nil)
	s.Error(err)
}
