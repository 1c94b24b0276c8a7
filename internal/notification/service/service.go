// Package service persists notifications and optionally pushes them to a
// broker.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"dossier/internal/notification/metrics"
	"dossier/internal/notification/models"
	id "dossier/pkg/domain"
	dErrors "dossier/pkg/domain-errors"
	"dossier/pkg/platform/circuit"
	"dossier/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error)
	ListByRecipient(ctx context.Context, recipient id.UserID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID, at time.Time) error
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Pusher delivers a persisted notification to a real-time channel.
type Pusher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

type Directory interface {
	ListAdminIDs(ctx context.Context) ([]id.UserID, error)
}

// Service is the notification emitter.
type Service struct {
	store     Store
	directory Directory
	pusher    Pusher
	breaker   *circuit.Breaker
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	validate  *validator.Validate
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

// WithPusher enables push delivery. A nil breaker gets the default breaker.
func WithPusher(p Pusher, breaker *circuit.Breaker) Option {
	return func(s *Service) {
		s.pusher = p
		s.breaker = breaker
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, directory Directory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	s := &Service{
		store:     store,
		directory: directory,
		logger:    slog.Default(),
		now:       time.Now,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pusher != nil && s.breaker == nil {
		s.breaker = circuit.New("notification-push")
	}
	return s, nil
}

// Send persists one notification per recipient, then pushes each. Push
// failures are logged and never fail the send.
func (s *Service) Send(ctx context.Context, msg models.Message) ([]*models.Notification, error) {
	if err := s.validate.Struct(msg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid notification message")
	}

	created := make([]*models.Notification, 0, len(msg.Recipients))
	for _, recipient := range msg.Recipients {
		n := &models.Notification{
			ID:          id.NewNotificationID(),
			RecipientID: recipient,
			Title:       msg.Title,
			Message:     msg.Message,
			Type:        msg.Type,
			Priority:    msg.Priority,
			Data:        msg.Data,
			CreatedAt:   s.now(),
		}
		if err := s.store.Create(ctx, n); err != nil {
			return created, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist notification")
		}
		if s.metrics != nil {
			s.metrics.IncCreated(string(n.Priority))
		}
		created = append(created, n)
		s.push(ctx, n)
	}
	return created, nil
}

func (s *Service) push(ctx context.Context, n *models.Notification) {
	if s.pusher == nil {
		return
	}
	if !s.breaker.Allow() {
		if s.metrics != nil {
			s.metrics.IncPushSkipped()
		}
		return
	}
	if err := s.pusher.Publish(ctx, n); err != nil {
		change := s.breaker.RecordFailure()
		s.logger.WarnContext(ctx, "notification push failed",
			"notification_id", n.ID,
			"recipient_id", n.RecipientID,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncPushFailures()
			if change.Opened {
				s.metrics.SetBreakerOpen(true)
			}
		}
		if change.Opened {
			s.logger.ErrorContext(ctx, "notification push circuit opened", "breaker", s.breaker.Name())
		}
		return
	}
	change := s.breaker.RecordSuccess()
	if s.metrics != nil {
		s.metrics.IncPushed()
		if change.Closed {
			s.metrics.SetBreakerOpen(false)
		}
	}
	if change.Closed {
		s.logger.InfoContext(ctx, "notification push circuit closed", "breaker", s.breaker.Name())
	}
}

// NotifyAdmins sends msg to every administrator. Recipients on msg are
// ignored. With no administrators it sends nothing.
func (s *Service) NotifyAdmins(ctx context.Context, msg models.Message) ([]*models.Notification, error) {
	admins, err := s.directory.ListAdminIDs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list administrators")
	}
	if len(admins) == 0 {
		s.logger.WarnContext(ctx, "no administrators to notify", "title", msg.Title)
		return nil, nil
	}
	msg.Recipients = admins
	return s.Send(ctx, msg)
}

// List returns a recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, recipient id.UserID, limit int) ([]*models.Notification, error) {
	out, err := s.store.ListByRecipient(ctx, recipient, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return out, nil
}

// MarkRead marks one of recipient's notifications read.
func (s *Service) MarkRead(ctx context.Context, recipient id.UserID, notificationID id.NotificationID) error {
	n, err := s.store.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load notification")
	}
	if n.RecipientID != recipient {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if err := s.store.MarkRead(ctx, notificationID, s.now()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}

// CleanupRead deletes read notifications older than retention.
func (s *Service) CleanupRead(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)
	deleted, err := s.store.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete read notifications")
	}
	if s.metrics != nil {
		s.metrics.AddCleanedUp(deleted)
	}
	s.logger.InfoContext(ctx, "read notifications cleaned up",
		"deleted", deleted,
		"cutoff", cutoff,
	)
	return deleted, nil
}
