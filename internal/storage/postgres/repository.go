package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"dex-daydata/internal/storage"
)

// Repository implements storage.Transactor on a Postgres pool.
type Repository struct {
	pool *Pool
}

// NewRepository creates a Repository.
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// Compile-time interface check.
var _ storage.Transactor = (*Repository)(nil)

// Stores returns stores running directly on the pool, one statement per call.
func (r *Repository) Stores() *storage.Stores {
	return bind(r.pool)
}

// InTx runs fn inside a read-committed transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, s *storage.Stores) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, bind(tx))
	})
}

func bind(db querier) *storage.Stores {
	return &storage.Stores{
		Pairs:        &PairStore{db: db},
		Tokens:       &TokenStore{db: db},
		Users:        &UserStore{db: db},
		Factory:      &FactoryStore{db: db},
		Bundle:       &BundleStore{db: db},
		Processed:    &ProcessedEventStore{db: db},
		DexDays:      &DexDayDataStore{db: db},
		PairDays:     &PairDayDataStore{db: db},
		PairHours:    &PairHourDataStore{db: db},
		UserPairDays: &UserPairDayDataStore{db: db},
		TokenDays:    &TokenDayDataStore{db: db},
	}
}
