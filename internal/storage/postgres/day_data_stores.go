package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// DexDayDataStore implements storage.DexDayDataStore using PostgreSQL.
type DexDayDataStore struct {
	db querier
}

// NewDexDayDataStore creates a new DexDayDataStore.
func NewDexDayDataStore(pool *Pool) *DexDayDataStore {
	return &DexDayDataStore{db: pool}
}

const dexDayColumns = `
	id, date, daily_volume_usd::text, daily_volume_eth::text, daily_volume_untracked::text,
	total_volume_usd::text, total_volume_eth::text, total_liquidity_usd::text, total_liquidity_eth::text,
	tx_count
`

// Get retrieves a record by ID. Returns ErrNotFound if not exists.
func (s *DexDayDataStore) Get(ctx context.Context, id string) (*domain.DexDayData, error) {
	row := s.db.QueryRow(ctx, `SELECT `+dexDayColumns+` FROM dex_day_data WHERE id = $1`, id)
	d, err := scanDexDay(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get dex day data: %w", err)
	}
	return d, nil
}

// Save inserts or replaces a record.
func (s *DexDayDataStore) Save(ctx context.Context, d *domain.DexDayData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO dex_day_data (
			id, date, daily_volume_usd, daily_volume_eth, daily_volume_untracked,
			total_volume_usd, total_volume_eth, total_liquidity_usd, total_liquidity_eth, tx_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			daily_volume_usd = EXCLUDED.daily_volume_usd,
			daily_volume_eth = EXCLUDED.daily_volume_eth,
			daily_volume_untracked = EXCLUDED.daily_volume_untracked,
			total_volume_usd = EXCLUDED.total_volume_usd,
			total_volume_eth = EXCLUDED.total_volume_eth,
			total_liquidity_usd = EXCLUDED.total_liquidity_usd,
			total_liquidity_eth = EXCLUDED.total_liquidity_eth,
			tx_count = EXCLUDED.tx_count
	`

	_, err := s.db.Exec(ctx, query,
		d.ID, d.Date,
		d.DailyVolumeUSD.String(), d.DailyVolumeETH.String(), d.DailyVolumeUntracked.String(),
		d.TotalVolumeUSD.String(), d.TotalVolumeETH.String(),
		d.TotalLiquidityUSD.String(), d.TotalLiquidityETH.String(),
		d.TxCount,
	)
	if err != nil {
		return fmt.Errorf("save dex day data: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves records with date within [start, end], ordered by date ASC.
func (s *DexDayDataStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DexDayData, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+dexDayColumns+` FROM dex_day_data WHERE date >= $1 AND date <= $2 ORDER BY date ASC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("query dex day data: %w", err)
	}
	result, err := scanRows(rows, scanDexDay)
	if err != nil {
		return nil, fmt.Errorf("scan dex day data: %w", err)
	}
	return result, nil
}

func scanDexDay(row pgx.Row) (*domain.DexDayData, error) {
	var d domain.DexDayData
	err := row.Scan(
		&d.ID, &d.Date, &d.DailyVolumeUSD, &d.DailyVolumeETH, &d.DailyVolumeUntracked,
		&d.TotalVolumeUSD, &d.TotalVolumeETH, &d.TotalLiquidityUSD, &d.TotalLiquidityETH,
		&d.TxCount,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// PairDayDataStore implements storage.PairDayDataStore using PostgreSQL.
type PairDayDataStore struct {
	db querier
}

// NewPairDayDataStore creates a new PairDayDataStore.
func NewPairDayDataStore(pool *Pool) *PairDayDataStore {
	return &PairDayDataStore{db: pool}
}

const pairDayColumns = `
	id, date, pair_address, token0, token1,
	reserve0::text, reserve1::text, total_supply::text, reserve_usd::text,
	daily_volume_token0::text, daily_volume_token1::text, daily_volume_usd::text, daily_txns
`

// Get retrieves a record by ID. Returns ErrNotFound if not exists.
func (s *PairDayDataStore) Get(ctx context.Context, id string) (*domain.PairDayData, error) {
	row := s.db.QueryRow(ctx, `SELECT `+pairDayColumns+` FROM pair_day_data WHERE id = $1`, id)
	d, err := scanPairDay(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pair day data: %w", err)
	}
	return d, nil
}

// Save inserts or replaces a record. Date and token references are kept
// from the first insert.
func (s *PairDayDataStore) Save(ctx context.Context, d *domain.PairDayData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pair_day_data (
			id, date, pair_address, token0, token1,
			reserve0, reserve1, total_supply, reserve_usd,
			daily_volume_token0, daily_volume_token1, daily_volume_usd, daily_txns
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			reserve0 = EXCLUDED.reserve0,
			reserve1 = EXCLUDED.reserve1,
			total_supply = EXCLUDED.total_supply,
			reserve_usd = EXCLUDED.reserve_usd,
			daily_volume_token0 = EXCLUDED.daily_volume_token0,
			daily_volume_token1 = EXCLUDED.daily_volume_token1,
			daily_volume_usd = EXCLUDED.daily_volume_usd,
			daily_txns = EXCLUDED.daily_txns
	`

	_, err := s.db.Exec(ctx, query,
		d.ID, d.Date, d.PairAddress, d.Token0, d.Token1,
		d.Reserve0.String(), d.Reserve1.String(), d.TotalSupply.String(), d.ReserveUSD.String(),
		d.DailyVolumeToken0.String(), d.DailyVolumeToken1.String(), d.DailyVolumeUSD.String(),
		d.DailyTxns,
	)
	if err != nil {
		return fmt.Errorf("save pair day data: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves a pair's records with date within [start, end], ordered by date ASC.
func (s *PairDayDataStore) GetByTimeRange(ctx context.Context, pair string, start, end int64) ([]*domain.PairDayData, error) {
	query := `SELECT ` + pairDayColumns + ` FROM pair_day_data
		WHERE pair_address = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	rows, err := s.db.Query(ctx, query, pair, start, end)
	if err != nil {
		return nil, fmt.Errorf("query pair day data: %w", err)
	}
	result, err := scanRows(rows, scanPairDay)
	if err != nil {
		return nil, fmt.Errorf("scan pair day data: %w", err)
	}
	return result, nil
}

func scanPairDay(row pgx.Row) (*domain.PairDayData, error) {
	var d domain.PairDayData
	err := row.Scan(
		&d.ID, &d.Date, &d.PairAddress, &d.Token0, &d.Token1,
		&d.Reserve0, &d.Reserve1, &d.TotalSupply, &d.ReserveUSD,
		&d.DailyVolumeToken0, &d.DailyVolumeToken1, &d.DailyVolumeUSD, &d.DailyTxns,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// PairHourDataStore implements storage.PairHourDataStore using PostgreSQL.
type PairHourDataStore struct {
	db querier
}

// NewPairHourDataStore creates a new PairHourDataStore.
func NewPairHourDataStore(pool *Pool) *PairHourDataStore {
	return &PairHourDataStore{db: pool}
}

const pairHourColumns = `
	id, hour_start_unix, pair, reserve0::text, reserve1::text, reserve_usd::text,
	hourly_volume_token0::text, hourly_volume_token1::text, hourly_volume_usd::text, hourly_txns
`

// Get retrieves a record by ID. Returns ErrNotFound if not exists.
func (s *PairHourDataStore) Get(ctx context.Context, id string) (*domain.PairHourData, error) {
	row := s.db.QueryRow(ctx, `SELECT `+pairHourColumns+` FROM pair_hour_data WHERE id = $1`, id)
	d, err := scanPairHour(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pair hour data: %w", err)
	}
	return d, nil
}

// Save inserts or replaces a record.
func (s *PairHourDataStore) Save(ctx context.Context, d *domain.PairHourData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pair_hour_data (
			id, hour_start_unix, pair, reserve0, reserve1, reserve_usd,
			hourly_volume_token0, hourly_volume_token1, hourly_volume_usd, hourly_txns
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			reserve0 = EXCLUDED.reserve0,
			reserve1 = EXCLUDED.reserve1,
			reserve_usd = EXCLUDED.reserve_usd,
			hourly_volume_token0 = EXCLUDED.hourly_volume_token0,
			hourly_volume_token1 = EXCLUDED.hourly_volume_token1,
			hourly_volume_usd = EXCLUDED.hourly_volume_usd,
			hourly_txns = EXCLUDED.hourly_txns
	`

	_, err := s.db.Exec(ctx, query,
		d.ID, d.HourStartUnix, d.Pair,
		d.Reserve0.String(), d.Reserve1.String(), d.ReserveUSD.String(),
		d.HourlyVolumeToken0.String(), d.HourlyVolumeToken1.String(), d.HourlyVolumeUSD.String(),
		d.HourlyTxns,
	)
	if err != nil {
		return fmt.Errorf("save pair hour data: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves a pair's records with hour start within [start, end], ordered ASC.
func (s *PairHourDataStore) GetByTimeRange(ctx context.Context, pair string, start, end int64) ([]*domain.PairHourData, error) {
	query := `SELECT ` + pairHourColumns + ` FROM pair_hour_data
		WHERE pair = $1 AND hour_start_unix >= $2 AND hour_start_unix <= $3
		ORDER BY hour_start_unix ASC`

	rows, err := s.db.Query(ctx, query, pair, start, end)
	if err != nil {
		return nil, fmt.Errorf("query pair hour data: %w", err)
	}
	result, err := scanRows(rows, scanPairHour)
	if err != nil {
		return nil, fmt.Errorf("scan pair hour data: %w", err)
	}
	return result, nil
}

func scanPairHour(row pgx.Row) (*domain.PairHourData, error) {
	var d domain.PairHourData
	err := row.Scan(
		&d.ID, &d.HourStartUnix, &d.Pair, &d.Reserve0, &d.Reserve1, &d.ReserveUSD,
		&d.HourlyVolumeToken0, &d.HourlyVolumeToken1, &d.HourlyVolumeUSD, &d.HourlyTxns,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UserPairDayDataStore implements storage.UserPairDayDataStore using PostgreSQL.
type UserPairDayDataStore struct {
	db querier
}

// NewUserPairDayDataStore creates a new UserPairDayDataStore.
func NewUserPairDayDataStore(pool *Pool) *UserPairDayDataStore {
	return &UserPairDayDataStore{db: pool}
}

const userPairDayColumns = `id, date, user_address, pair, daily_volume_usd::text`

// Get retrieves a record by ID. Returns ErrNotFound if not exists.
func (s *UserPairDayDataStore) Get(ctx context.Context, id string) (*domain.UserPairDayData, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userPairDayColumns+` FROM user_pair_day_data WHERE id = $1`, id)
	d, err := scanUserPairDay(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user pair day data: %w", err)
	}
	return d, nil
}

// Save inserts or replaces a record.
func (s *UserPairDayDataStore) Save(ctx context.Context, d *domain.UserPairDayData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO user_pair_day_data (id, date, user_address, pair, daily_volume_usd)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET daily_volume_usd = EXCLUDED.daily_volume_usd
	`

	if _, err := s.db.Exec(ctx, query, d.ID, d.Date, d.User, d.Pair, d.DailyVolumeUSD.String()); err != nil {
		return fmt.Errorf("save user pair day data: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves a user's records across pairs with date within
// [start, end], ordered by (date, pair) ASC.
func (s *UserPairDayDataStore) GetByTimeRange(ctx context.Context, user string, start, end int64) ([]*domain.UserPairDayData, error) {
	query := `SELECT ` + userPairDayColumns + ` FROM user_pair_day_data
		WHERE user_address = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, pair ASC`

	rows, err := s.db.Query(ctx, query, user, start, end)
	if err != nil {
		return nil, fmt.Errorf("query user pair day data: %w", err)
	}
	result, err := scanRows(rows, scanUserPairDay)
	if err != nil {
		return nil, fmt.Errorf("scan user pair day data: %w", err)
	}
	return result, nil
}

func scanUserPairDay(row pgx.Row) (*domain.UserPairDayData, error) {
	var d domain.UserPairDayData
	if err := row.Scan(&d.ID, &d.Date, &d.User, &d.Pair, &d.DailyVolumeUSD); err != nil {
		return nil, err
	}
	return &d, nil
}

// TokenDayDataStore implements storage.TokenDayDataStore using PostgreSQL.
type TokenDayDataStore struct {
	db querier
}

// NewTokenDayDataStore creates a new TokenDayDataStore.
func NewTokenDayDataStore(pool *Pool) *TokenDayDataStore {
	return &TokenDayDataStore{db: pool}
}

const tokenDayColumns = `
	id, date, token, daily_volume_token::text, daily_volume_eth::text, daily_volume_usd::text, daily_txns,
	total_liquidity_token::text, total_liquidity_eth::text, total_liquidity_usd::text, price_usd::text
`

// Get retrieves a record by ID. Returns ErrNotFound if not exists.
func (s *TokenDayDataStore) Get(ctx context.Context, id string) (*domain.TokenDayData, error) {
	row := s.db.QueryRow(ctx, `SELECT `+tokenDayColumns+` FROM token_day_data WHERE id = $1`, id)
	d, err := scanTokenDay(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token day data: %w", err)
	}
	return d, nil
}

// Save inserts or replaces a record.
func (s *TokenDayDataStore) Save(ctx context.Context, d *domain.TokenDayData) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_day_data (
			id, date, token, daily_volume_token, daily_volume_eth, daily_volume_usd, daily_txns,
			total_liquidity_token, total_liquidity_eth, total_liquidity_usd, price_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			daily_volume_token = EXCLUDED.daily_volume_token,
			daily_volume_eth = EXCLUDED.daily_volume_eth,
			daily_volume_usd = EXCLUDED.daily_volume_usd,
			daily_txns = EXCLUDED.daily_txns,
			total_liquidity_token = EXCLUDED.total_liquidity_token,
			total_liquidity_eth = EXCLUDED.total_liquidity_eth,
			total_liquidity_usd = EXCLUDED.total_liquidity_usd,
			price_usd = EXCLUDED.price_usd
	`

	_, err := s.db.Exec(ctx, query,
		d.ID, d.Date, d.Token,
		d.DailyVolumeToken.String(), d.DailyVolumeETH.String(), d.DailyVolumeUSD.String(), d.DailyTxns,
		d.TotalLiquidityToken.String(), d.TotalLiquidityETH.String(), d.TotalLiquidityUSD.String(),
		d.PriceUSD.String(),
	)
	if err != nil {
		return fmt.Errorf("save token day data: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves a token's records with date within [start, end], ordered by date ASC.
func (s *TokenDayDataStore) GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.TokenDayData, error) {
	query := `SELECT ` + tokenDayColumns + ` FROM token_day_data
		WHERE token = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	rows, err := s.db.Query(ctx, query, token, start, end)
	if err != nil {
		return nil, fmt.Errorf("query token day data: %w", err)
	}
	result, err := scanRows(rows, scanTokenDay)
	if err != nil {
		return nil, fmt.Errorf("scan token day data: %w", err)
	}
	return result, nil
}

func scanTokenDay(row pgx.Row) (*domain.TokenDayData, error) {
	var d domain.TokenDayData
	err := row.Scan(
		&d.ID, &d.Date, &d.Token, &d.DailyVolumeToken, &d.DailyVolumeETH, &d.DailyVolumeUSD, &d.DailyTxns,
		&d.TotalLiquidityToken, &d.TotalLiquidityETH, &d.TotalLiquidityUSD, &d.PriceUSD,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Compile-time interface checks.
var (
	_ storage.DexDayDataStore      = (*DexDayDataStore)(nil)
	_ storage.PairDayDataStore     = (*PairDayDataStore)(nil)
	_ storage.PairHourDataStore    = (*PairHourDataStore)(nil)
	_ storage.UserPairDayDataStore = (*UserPairDayDataStore)(nil)
	_ storage.TokenDayDataStore    = (*TokenDayDataStore)(nil)
)
