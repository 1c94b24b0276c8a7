package policy

import (
	"context"
	"sync"

	"dossier/internal/compliance/models"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/sentinel"
)

// InMemoryStore holds document type policies in memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	policies map[id.DocumentTypeID]*models.DocumentTypePolicy
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{policies: make(map[id.DocumentTypeID]*models.DocumentTypePolicy)}
}

// Save stores a policy as given. Validation happens at lookup time so that a
// bad row is flagged rather than rejected silently.
func (s *InMemoryStore) Save(_ context.Context, p *models.DocumentTypePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.policies[p.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docType id.DocumentTypeID) (*models.DocumentTypePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[docType]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) ListPolicies(_ context.Context) (models.PolicySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(models.PolicySet, len(s.policies))
	for k, p := range s.policies {
		cp := *p
		set[k] = &cp
	}
	return set, nil
}
