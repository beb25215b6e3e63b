package storage

import (
	"context"

	"dex-daydata/internal/domain"
)

// PairStore provides access to pairs storage.
type PairStore interface {
	// Get retrieves a pair by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.Pair, error)

	// Save inserts or replaces a pair.
	Save(ctx context.Context, p *domain.Pair) error
}

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Get retrieves a token by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.Token, error)

	// Save inserts or replaces a token.
	Save(ctx context.Context, t *domain.Token) error
}

// UserStore provides access to users storage.
type UserStore interface {
	// Get retrieves a user by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.User, error)

	// Save inserts or replaces a user. Aggregation uses it to update counters.
	Save(ctx context.Context, u *domain.User) error

	// Create inserts u only if no user with its address exists.
	// Returns false, leaving the stored row untouched, when one does.
	Create(ctx context.Context, u *domain.User) (bool, error)
}

// FactoryStore provides access to the singleton global dex state.
type FactoryStore interface {
	// Get retrieves the factory. Returns ErrNotFound if not exists.
	Get(ctx context.Context) (*domain.DexFactory, error)

	// Save inserts or replaces the factory.
	Save(ctx context.Context, f *domain.DexFactory) error
}

// BundleStore provides access to the singleton price bundle.
type BundleStore interface {
	// Get retrieves the bundle. Returns ErrNotFound if not exists.
	Get(ctx context.Context) (*domain.Bundle, error)

	// Save inserts or replaces the bundle.
	Save(ctx context.Context, b *domain.Bundle) error
}

// ProcessedEventStore remembers which events have been aggregated.
type ProcessedEventStore interface {
	// Record marks ev.ID as aggregated. Returns false if it already was.
	Record(ctx context.Context, ev *domain.Event) (bool, error)
}

// DexDayDataStore provides access to dex_day_data storage.
type DexDayDataStore interface {
	// Get retrieves a record by ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.DexDayData, error)

	// Save inserts or replaces a record.
	Save(ctx context.Context, d *domain.DexDayData) error

	// GetByTimeRange retrieves records with date within [start, end], ordered by date ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DexDayData, error)
}

// PairDayDataStore provides access to pair_day_data storage.
type PairDayDataStore interface {
	// Get retrieves a record by ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.PairDayData, error)

	// Save inserts or replaces a record.
	Save(ctx context.Context, d *domain.PairDayData) error

	// GetByTimeRange retrieves a pair's records with date within [start, end], ordered by date ASC.
	GetByTimeRange(ctx context.Context, pair string, start, end int64) ([]*domain.PairDayData, error)
}

// PairHourDataStore provides access to pair_hour_data storage.
type PairHourDataStore interface {
	// Get retrieves a record by ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.PairHourData, error)

	// Save inserts or replaces a record.
	Save(ctx context.Context, d *domain.PairHourData) error

	// GetByTimeRange retrieves a pair's records with hour start within [start, end], ordered ASC.
	GetByTimeRange(ctx context.Context, pair string, start, end int64) ([]*domain.PairHourData, error)
}

// UserPairDayDataStore provides access to user_pair_day_data storage.
type UserPairDayDataStore interface {
	// Get retrieves a record by ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.UserPairDayData, error)

	// Save inserts or replaces a record.
	Save(ctx context.Context, d *domain.UserPairDayData) error

	// GetByTimeRange retrieves a user's records across pairs with date within [start, end],
	// ordered by (date, pair) ASC.
	GetByTimeRange(ctx context.Context, user string, start, end int64) ([]*domain.UserPairDayData, error)
}

// TokenDayDataStore provides access to token_day_data storage.
type TokenDayDataStore interface {
	// Get retrieves a record by ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.TokenDayData, error)

	// Save inserts or replaces a record.
	Save(ctx context.Context, d *domain.TokenDayData) error

	// GetByTimeRange retrieves a token's records with date within [start, end], ordered by date ASC.
	GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.TokenDayData, error)
}
