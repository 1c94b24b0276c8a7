// Package directory answers who the administrators are.
package directory

import (
	"context"
	"sort"
	"sync"

	id "dossier/pkg/domain"
)

// RoleAdmin is the role that receives reports and job alerts.
const RoleAdmin = "admin"

// InMemoryStore maps users to roles in memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	roles map[id.UserID]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{roles: make(map[id.UserID]string)}
}

func (s *InMemoryStore) SetRole(userID id.UserID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
}

func (s *InMemoryStore) ListAdminIDs(_ context.Context) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []id.UserID
	for u, role := range s.roles {
		if role == RoleAdmin {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
