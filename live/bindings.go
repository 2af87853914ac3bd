package live

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/targoninc/venel-api/domain"
)

type binding struct {
	identity  domain.Identity
	expiresAt time.Time
}

// BindingStore holds the one-time session bindings produced at login and
// consumed at upgrade time. Bindings live in memory only and are lost on
// restart; clients must re-authenticate after a server restart.
type BindingStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	bindings map[string]binding
	now      func() time.Time
}

func NewBindingStore(ttl time.Duration) *BindingStore {
	return &BindingStore{
		ttl:      ttl,
		bindings: make(map[string]binding),
		now:      time.Now,
	}
}

// Issue creates an opaque token bound to the identity, valid for the
// configured TTL.
func (s *BindingStore) Issue(identity domain.Identity) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[token] = binding{
		identity:  identity,
		expiresAt: s.now().Add(s.ttl),
	}
	return token
}

// Consume resolves and deletes a binding in one step, so a token binds
// exactly one connection. Unknown and expired tokens report false.
func (s *BindingStore) Consume(token string) (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bindings[token]
	if !ok {
		return domain.Identity{}, false
	}
	delete(s.bindings, token)
	if s.now().After(b.expiresAt) {
		return domain.Identity{}, false
	}
	return b.identity, true
}
