package requirement

import (
	"context"
	"sort"
	"sync"
	"time"

	"dossier/internal/compliance/models"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/sentinel"
)

// InMemoryStore is a thread-safe in-memory requirement store for tests and
// local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[id.RequirementID]*models.Requirement
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{items: make(map[id.RequirementID]*models.Requirement)}
}

// Save inserts or replaces a requirement.
func (s *InMemoryStore) Save(_ context.Context, req *models.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *req
	s.items[req.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, reqID id.RequirementID) (*models.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[reqID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// List returns matching requirements ordered by required date, then id.
func (s *InMemoryStore) List(_ context.Context, filter models.RequirementFilter) ([]*models.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Requirement, 0)
	for _, r := range s.items {
		if filter.Matches(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequiredDate.Equal(out[j].RequiredDate) {
			return out[i].RequiredDate.Before(out[j].RequiredDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// ListUserIDs returns every user holding at least one requirement.
func (s *InMemoryStore) ListUserIDs(_ context.Context) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[id.UserID]struct{})
	out := make([]id.UserID, 0)
	for _, r := range s.items {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		out = append(out, r.UserID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// RecordReminderSent bumps the reminder counter and stamps the send time.
func (s *InMemoryStore) RecordReminderSent(_ context.Context, reqID id.RequirementID, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[reqID]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.ReminderSentCount++
	at := sentAt
	r.LastReminderSent = &at
	r.UpdatedAt = sentAt
	return nil
}

// Expire marks one requirement expired when it is submitted or approved and its
// expiration date is before today. It reports whether the row changed.
func (s *InMemoryStore) Expire(_ context.Context, reqID id.RequirementID, today, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[reqID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if !lapsed(r, today) {
		return false, nil
	}
	r.Status = models.StatusExpired
	r.UpdatedAt = at
	return true, nil
}

// ExpireLapsed marks every lapsed submitted or approved requirement expired.
func (s *InMemoryStore) ExpireLapsed(_ context.Context, today, at time.Time) ([]id.RequirementID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []id.RequirementID
	for _, r := range s.items {
		if !lapsed(r, today) {
			continue
		}
		r.Status = models.StatusExpired
		r.UpdatedAt = at
		expired = append(expired, r.ID)
	}
	return expired, nil
}

func lapsed(r *models.Requirement, today time.Time) bool {
	return r.HasLiveExpiration() && calendar.DaysBetween(*r.ExpirationDate, today) > 0
}
