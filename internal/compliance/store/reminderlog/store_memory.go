package reminderlog

import (
	"context"
	"sync"
	"time"

	"dossier/internal/compliance/models"
	id "dossier/pkg/domain"
)

// InMemoryStore keeps reminder log entries in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*models.ReminderLogEntry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry *models.ReminderLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

// LatestReminder returns the most recent entry for the pair, or (nil, nil).
func (s *InMemoryStore) LatestReminder(_ context.Context, requirementID id.RequirementID, reminderType models.ReminderType) (*models.ReminderLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.ReminderLogEntry
	for _, e := range s.entries {
		if e.RequirementID != requirementID || e.ReminderType != reminderType {
			continue
		}
		if latest == nil || e.SentAt.After(latest.SentAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemoryStore) ListByRequirement(_ context.Context, requirementID id.RequirementID) ([]*models.ReminderLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ReminderLogEntry
	for _, e := range s.entries {
		if e.RequirementID == requirementID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// DeleteOlderThan removes entries sent strictly before cutoff.
func (s *InMemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	deleted := 0
	for _, e := range s.entries {
		if e.SentAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

// CountByTypeBetween counts entries with from <= sent_at < to, per reminder type.
func (s *InMemoryStore) CountByTypeBetween(_ context.Context, from, to time.Time) (map[models.ReminderType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.ReminderType]int)
	for _, e := range s.entries {
		if !e.SentAt.Before(from) && e.SentAt.Before(to) {
			counts[e.ReminderType]++
		}
	}
	return counts, nil
}
