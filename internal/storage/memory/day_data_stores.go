package memory

import (
	"context"
	"sort"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// DexDayDataStore is an in-memory implementation of storage.DexDayDataStore.
type DexDayDataStore struct {
	v *view[domain.DexDayData]
}

// Get retrieves a record by ID.
func (s *DexDayDataStore) Get(_ context.Context, id string) (*domain.DexDayData, error) {
	if d, ok := s.v.get(id); ok {
		return d, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces a record.
func (s *DexDayDataStore) Save(_ context.Context, d *domain.DexDayData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}
	s.v.put(d.ID, d)
	return nil
}

// GetByTimeRange retrieves records with date within [start, end] (inclusive).
func (s *DexDayDataStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.DexDayData, error) {
	result := s.v.filter(func(d *domain.DexDayData) bool {
		return d.Date >= start && d.Date <= end
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, nil
}

// PairDayDataStore is an in-memory implementation of storage.PairDayDataStore.
type PairDayDataStore struct {
	v *view[domain.PairDayData]
}

// Get retrieves a record by ID.
func (s *PairDayDataStore) Get(_ context.Context, id string) (*domain.PairDayData, error) {
	if d, ok := s.v.get(id); ok {
		return d, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces a record.
func (s *PairDayDataStore) Save(_ context.Context, d *domain.PairDayData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}
	s.v.put(d.ID, d)
	return nil
}

// GetByTimeRange retrieves a pair's records with date within [start, end] (inclusive).
func (s *PairDayDataStore) GetByTimeRange(_ context.Context, pair string, start, end int64) ([]*domain.PairDayData, error) {
	result := s.v.filter(func(d *domain.PairDayData) bool {
		return d.PairAddress == pair && d.Date >= start && d.Date <= end
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, nil
}

// PairHourDataStore is an in-memory implementation of storage.PairHourDataStore.
type PairHourDataStore struct {
	v *view[domain.PairHourData]
}

// Get retrieves a record by ID.
func (s *PairHourDataStore) Get(_ context.Context, id string) (*domain.PairHourData, error) {
	if d, ok := s.v.get(id); ok {
		return d, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces a record.
func (s *PairHourDataStore) Save(_ context.Context, d *domain.PairHourData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}
	s.v.put(d.ID, d)
	return nil
}

// GetByTimeRange retrieves a pair's records with hour start within [start, end] (inclusive).
func (s *PairHourDataStore) GetByTimeRange(_ context.Context, pair string, start, end int64) ([]*domain.PairHourData, error) {
	result := s.v.filter(func(d *domain.PairHourData) bool {
		return d.Pair == pair && d.HourStartUnix >= start && d.HourStartUnix <= end
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].HourStartUnix < result[j].HourStartUnix
	})
	return result, nil
}

// UserPairDayDataStore is an in-memory implementation of storage.UserPairDayDataStore.
type UserPairDayDataStore struct {
	v *view[domain.UserPairDayData]
}

// Get retrieves a record by ID.
func (s *UserPairDayDataStore) Get(_ context.Context, id string) (*domain.UserPairDayData, error) {
	if d, ok := s.v.get(id); ok {
		return d, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces a record.
func (s *UserPairDayDataStore) Save(_ context.Context, d *domain.UserPairDayData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}
	s.v.put(d.ID, d)
	return nil
}

// GetByTimeRange retrieves a user's records with date within [start, end] (inclusive).
func (s *UserPairDayDataStore) GetByTimeRange(_ context.Context, user string, start, end int64) ([]*domain.UserPairDayData, error) {
	result := s.v.filter(func(d *domain.UserPairDayData) bool {
		return d.User == user && d.Date >= start && d.Date <= end
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Pair < result[j].Pair
	})
	return result, nil
}

// TokenDayDataStore is an in-memory implementation of storage.TokenDayDataStore.
type TokenDayDataStore struct {
	v *view[domain.TokenDayData]
}

// Get retrieves a record by ID.
func (s *TokenDayDataStore) Get(_ context.Context, id string) (*domain.TokenDayData, error) {
	if d, ok := s.v.get(id); ok {
		return d, nil
	}
	return nil, storage.ErrNotFound
}

// Save inserts or replaces a record.
func (s *TokenDayDataStore) Save(_ context.Context, d *domain.TokenDayData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}
	s.v.put(d.ID, d)
	return nil
}

// GetByTimeRange retrieves a token's records with date within [start, end] (inclusive).
func (s *TokenDayDataStore) GetByTimeRange(_ context.Context, token string, start, end int64) ([]*domain.TokenDayData, error) {
	result := s.v.filter(func(d *domain.TokenDayData) bool {
		return d.Token == token && d.Date >= start && d.Date <= end
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, nil
}

var (
	_ storage.DexDayDataStore      = (*DexDayDataStore)(nil)
	_ storage.PairDayDataStore     = (*PairDayDataStore)(nil)
	_ storage.PairHourDataStore    = (*PairHourDataStore)(nil)
	_ storage.UserPairDayDataStore = (*UserPairDayDataStore)(nil)
	_ storage.TokenDayDataStore    = (*TokenDayDataStore)(nil)
)
