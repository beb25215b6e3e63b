package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// Numeric columns are read back as ::text and scanned into decimal.Decimal,
// which implements sql.Scanner. Decimals are written as their string form.

// PairStore implements storage.PairStore using PostgreSQL.
type PairStore struct {
	db querier
}

// NewPairStore creates a new PairStore.
func NewPairStore(pool *Pool) *PairStore {
	return &PairStore{db: pool}
}

// Get retrieves a pair by address. Returns ErrNotFound if not exists.
func (s *PairStore) Get(ctx context.Context, id string) (*domain.Pair, error) {
	query := `
		SELECT id, token0, token1, reserve0::text, reserve1::text, total_supply::text, reserve_usd::text
		FROM pairs
		WHERE id = $1
	`

	var p domain.Pair
	err := s.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Token0, &p.Token1, &p.Reserve0, &p.Reserve1, &p.TotalSupply, &p.ReserveUSD,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pair: %w", err)
	}
	return &p, nil
}

// Save inserts or replaces a pair.
func (s *PairStore) Save(ctx context.Context, p *domain.Pair) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pairs (id, token0, token1, reserve0, reserve1, total_supply, reserve_usd)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			token0 = EXCLUDED.token0,
			token1 = EXCLUDED.token1,
			reserve0 = EXCLUDED.reserve0,
			reserve1 = EXCLUDED.reserve1,
			total_supply = EXCLUDED.total_supply,
			reserve_usd = EXCLUDED.reserve_usd,
			updated_at = NOW()
	`

	_, err := s.db.Exec(ctx, query,
		p.ID, p.Token0, p.Token1,
		p.Reserve0.String(), p.Reserve1.String(), p.TotalSupply.String(), p.ReserveUSD.String(),
	)
	if err != nil {
		return fmt.Errorf("save pair: %w", err)
	}
	return nil
}

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	db querier
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{db: pool}
}

// Get retrieves a token by address. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(ctx context.Context, id string) (*domain.Token, error) {
	query := `
		SELECT id, symbol, name, decimals, derived_eth::text, total_liquidity::text
		FROM tokens
		WHERE id = $1
	`

	var t domain.Token
	err := s.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Symbol, &t.Name, &t.Decimals, &t.DerivedETH, &t.TotalLiquidity,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}

// Save inserts or replaces a token.
func (s *TokenStore) Save(ctx context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (id, symbol, name, decimals, derived_eth, total_liquidity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			decimals = EXCLUDED.decimals,
			derived_eth = EXCLUDED.derived_eth,
			total_liquidity = EXCLUDED.total_liquidity,
			updated_at = NOW()
	`

	_, err := s.db.Exec(ctx, query,
		t.ID, t.Symbol, t.Name, t.Decimals, t.DerivedETH.String(), t.TotalLiquidity.String(),
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	db querier
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{db: pool}
}

// Get retrieves a user by address. Returns ErrNotFound if not exists.
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, usd_swapped::text, transaction_count
		FROM users
		WHERE id = $1
	`

	var u domain.User
	err := s.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.USDSwapped, &u.TransactionCount)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Save inserts or replaces a user.
func (s *UserStore) Save(ctx context.Context, u *domain.User) error {
	if u == nil || u.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO users (id, usd_swapped, transaction_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			usd_swapped = EXCLUDED.usd_swapped,
			transaction_count = EXCLUDED.transaction_count,
			updated_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, u.ID, u.USDSwapped.String(), u.TransactionCount); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Create inserts u unless the address is already stored. Existing counters
// are left alone.
func (s *UserStore) Create(ctx context.Context, u *domain.User) (bool, error) {
	if u == nil || u.ID == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO users (id, usd_swapped, transaction_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query, u.ID, u.USDSwapped.String(), u.TransactionCount)
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// FactoryStore implements storage.FactoryStore using PostgreSQL.
// The factory lives in the single slot = 1 row.
type FactoryStore struct {
	db querier
}

// NewFactoryStore creates a new FactoryStore.
func NewFactoryStore(pool *Pool) *FactoryStore {
	return &FactoryStore{db: pool}
}

// Get retrieves the factory. Returns ErrNotFound if not stored yet.
func (s *FactoryStore) Get(ctx context.Context) (*domain.DexFactory, error) {
	query := `
		SELECT id, pair_count, total_volume_usd::text, total_volume_eth::text, untracked_volume_usd::text,
			total_liquidity_usd::text, total_liquidity_eth::text, tx_count
		FROM dex_factory
		WHERE slot = 1
	`

	var f domain.DexFactory
	err := s.db.QueryRow(ctx, query).Scan(
		&f.ID, &f.PairCount, &f.TotalVolumeUSD, &f.TotalVolumeETH, &f.UntrackedVolumeUSD,
		&f.TotalLiquidityUSD, &f.TotalLiquidityETH, &f.TxCount,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get factory: %w", err)
	}
	return &f, nil
}

// Save inserts or replaces the factory.
func (s *FactoryStore) Save(ctx context.Context, f *domain.DexFactory) error {
	if f == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO dex_factory (
			slot, id, pair_count, total_volume_usd, total_volume_eth, untracked_volume_usd,
			total_liquidity_usd, total_liquidity_eth, tx_count
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slot) DO UPDATE SET
			id = EXCLUDED.id,
			pair_count = EXCLUDED.pair_count,
			total_volume_usd = EXCLUDED.total_volume_usd,
			total_volume_eth = EXCLUDED.total_volume_eth,
			untracked_volume_usd = EXCLUDED.untracked_volume_usd,
			total_liquidity_usd = EXCLUDED.total_liquidity_usd,
			total_liquidity_eth = EXCLUDED.total_liquidity_eth,
			tx_count = EXCLUDED.tx_count,
			updated_at = NOW()
	`

	_, err := s.db.Exec(ctx, query,
		f.ID, f.PairCount,
		f.TotalVolumeUSD.String(), f.TotalVolumeETH.String(), f.UntrackedVolumeUSD.String(),
		f.TotalLiquidityUSD.String(), f.TotalLiquidityETH.String(),
		f.TxCount,
	)
	if err != nil {
		return fmt.Errorf("save factory: %w", err)
	}
	return nil
}

// BundleStore implements storage.BundleStore using PostgreSQL.
type BundleStore struct {
	db querier
}

// NewBundleStore creates a new BundleStore.
func NewBundleStore(pool *Pool) *BundleStore {
	return &BundleStore{db: pool}
}

// Get retrieves the bundle. Returns ErrNotFound if not stored yet.
func (s *BundleStore) Get(ctx context.Context) (*domain.Bundle, error) {
	var b domain.Bundle
	err := s.db.QueryRow(ctx, `SELECT id, eth_price::text FROM bundle WHERE id = $1`, domain.BundleID).
		Scan(&b.ID, &b.ETHPrice)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bundle: %w", err)
	}
	return &b, nil
}

// Save inserts or replaces the bundle. The ID is always domain.BundleID.
func (s *BundleStore) Save(ctx context.Context, b *domain.Bundle) error {
	if b == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO bundle (id, eth_price) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET eth_price = EXCLUDED.eth_price, updated_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, domain.BundleID, b.ETHPrice.String()); err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	return nil
}

// ProcessedEventStore implements storage.ProcessedEventStore using PostgreSQL.
type ProcessedEventStore struct {
	db querier
}

// NewProcessedEventStore creates a new ProcessedEventStore.
func NewProcessedEventStore(pool *Pool) *ProcessedEventStore {
	return &ProcessedEventStore{db: pool}
}

// Record marks ev.ID as aggregated. Returns false if it already was.
// Inside a transaction the row is only kept if the transaction commits.
func (s *ProcessedEventStore) Record(ctx context.Context, ev *domain.Event) (bool, error) {
	if ev == nil || ev.ID == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO processed_events (id, kind, block_timestamp)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query, ev.ID, string(ev.Kind), ev.Timestamp)
	if err != nil {
		return false, fmt.Errorf("record processed event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// scanRows collects every row of rows with scan, closing rows.
func scanRows[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var result []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Compile-time interface checks.
var (
	_ storage.PairStore    = (*PairStore)(nil)
	_ storage.TokenStore   = (*TokenStore)(nil)
	_ storage.UserStore    = (*UserStore)(nil)
	_ storage.FactoryStore = (*FactoryStore)(nil)
	_ storage.BundleStore  = (*BundleStore)(nil)

	_ storage.ProcessedEventStore = (*ProcessedEventStore)(nil)
)
