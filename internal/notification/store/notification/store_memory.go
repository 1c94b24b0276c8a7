package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"dossier/internal/notification/models"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/sentinel"
)

// InMemoryStore holds notifications in memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[id.NotificationID]*models.Notification
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{items: make(map[id.NotificationID]*models.Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[n.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *n
	s.items[n.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.items[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

// ListByRecipient returns the newest notifications first, at most limit.
func (s *InMemoryStore) ListByRecipient(_ context.Context, recipient id.UserID, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Notification, 0)
	for _, n := range s.items {
		if n.RecipientID == recipient {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, notificationID id.NotificationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[notificationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if n.IsRead {
		return nil
	}
	n.IsRead = true
	readAt := at
	n.ReadAt = &readAt
	return nil
}

// DeleteReadOlderThan removes read notifications created before cutoff.
func (s *InMemoryStore) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for k, n := range s.items {
		if n.IsRead && n.CreatedAt.Before(cutoff) {
			delete(s.items, k)
			deleted++
		}
	}
	return deleted, nil
}
