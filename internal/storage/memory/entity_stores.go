package memory

import (
	"context"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// factoryKey is the single row key of the factory table.
const factoryKey = "factory"

// PairStore is an in-memory implementation of storage.PairStore.
type PairStore struct {
	v *view[domain.Pair]
}

// Get retrieves a pair by address.
func (s *PairStore) Get(_ context.Context, id string) (*domain.Pair, error) {
	if p, ok := s.v.get(id); ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces a pair.
func (s *PairStore) Save(_ context.Context, p *domain.Pair) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}
	s.v.put(p.ID, p)
	return nil
}

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	v *view[domain.Token]
}

// Get retrieves a token by address.
func (s *TokenStore) Get(_ context.Context, id string) (*domain.Token, error) {
	if t, ok := s.v.get(id); ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces a token.
func (s *TokenStore) Save(_ context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}
	s.v.put(t.ID, t)
	return nil
}

// UserStore is an in-memory implementation of storage.UserStore.
type UserStore struct {
	v *view[domain.User]
}

// Get retrieves a user by address.
func (s *UserStore) Get(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.v.get(id); ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces a user.
func (s *UserStore) Save(_ context.Context, u *domain.User) error {
	if u == nil || u.ID == "" {
		return storage.ErrInvalidInput
	}
	s.v.put(u.ID, u)
	return nil
}

// Create inserts u unless a user with the same address exists.
func (s *UserStore) Create(_ context.Context, u *domain.User) (bool, error) {
	if u == nil || u.ID == "" {
		return false, storage.ErrInvalidInput
	}
	return s.v.insert(u.ID, u), nil
}

// FactoryStore is an in-memory implementation of storage.FactoryStore.
type FactoryStore struct {
	v *view[domain.DexFactory]
}

// Get retrieves the factory.
func (s *FactoryStore) Get(_ context.Context) (*domain.DexFactory, error) {
	if f, ok := s.v.get(factoryKey); ok {
		return f, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces the factory.
func (s *FactoryStore) Save(_ context.Context, f *domain.DexFactory) error {
	if f == nil {
		return storage.ErrInvalidInput
	}
	s.v.put(factoryKey, f)
	return nil
}

// BundleStore is an in-memory implementation of storage.BundleStore.
type BundleStore struct {
	v *view[domain.Bundle]
}

// Get retrieves the bundle.
func (s *BundleStore) Get(_ context.Context) (*domain.Bundle, error) {
	if b, ok := s.v.get(domain.BundleID); ok {
		return b, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces the bundle.
func (s *BundleStore) Save(_ context.Context, b *domain.Bundle) error {
	if b == nil {
		return storage.ErrInvalidInput
	}
	c := *b
	c.ID = domain.BundleID
	s.v.put(domain.BundleID, &c)
	return nil
}

// processedEvent is the row kept per aggregated event id.
type processedEvent struct {
	Kind      domain.EventKind
	Timestamp int64
}

// ProcessedEventStore is an in-memory implementation of storage.ProcessedEventStore.
type ProcessedEventStore struct {
	v *view[processedEvent]
}

// Record marks ev.ID as aggregated. Returns false if it already was.
func (s *ProcessedEventStore) Record(_ context.Context, ev *domain.Event) (bool, error) {
	if ev == nil || ev.ID == "" {
		return false, storage.ErrInvalidInput
	}
	return s.v.insert(ev.ID, &processedEvent{Kind: ev.Kind, Timestamp: ev.Timestamp}), nil
}

var (
	_ storage.PairStore    = (*PairStore)(nil)
	_ storage.TokenStore   = (*TokenStore)(nil)
	_ storage.UserStore    = (*UserStore)(nil)
	_ storage.FactoryStore = (*FactoryStore)(nil)
	_ storage.BundleStore  = (*BundleStore)(nil)

	_ storage.ProcessedEventStore = (*ProcessedEventStore)(nil)
)
