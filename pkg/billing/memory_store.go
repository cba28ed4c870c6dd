package billing

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process TokenVault, PersistenceSink and StatusReader.
// It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*memoryTenant
}

type memoryTenant struct {
	cred  *Credential
	state TenantState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[uuid.UUID]*memoryTenant)}
}

// Put adds or replaces a tenant's credential. A nil credential registers the
// tenant without one. Cached subscription state is kept.
func (s *MemoryStore) Put(tenantID uuid.UUID, cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		t = &memoryTenant{}
		s.tenants[tenantID] = t
	}
	if cred != nil {
		c := *cred
		t.cred = &c
	} else {
		t.cred = nil
	}
}

func (s *MemoryStore) GetCredential(_ context.Context, tenantID uuid.UUID) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return Credential{}, ErrTenantNotFound
	}
	if !hasToken(t.cred) {
		return Credential{}, ErrMissingCredential
	}
	return *t.cred, nil
}

// ListCredentialedTenants returns tenant ids in ascending order.
func (s *MemoryStore) ListCredentialedTenants(context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.tenants))
	for id, t := range s.tenants {
		if hasToken(t.cred) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids, nil
}

func (s *MemoryStore) Upsert(_ context.Context, tenantID uuid.UUID, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return ErrTenantNotFound
	}
	checked := snap.CheckedAt
	t.state.Active = snap.Active
	t.state.NextBillingDate = copyTime(snap.NextBillingDate)
	t.state.LastCheckedAt = &checked
	return nil
}

func (s *MemoryStore) GetState(_ context.Context, tenantID uuid.UUID) (TenantState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return TenantState{}, ErrTenantNotFound
	}
	st := t.state
	st.HasCredential = hasToken(t.cred)
	st.NextBillingDate = copyTime(st.NextBillingDate)
	st.LastCheckedAt = copyTime(st.LastCheckedAt)
	return st, nil
}

func hasToken(c *Credential) bool {
	return c != nil && strings.TrimSpace(c.APIToken) != ""
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
