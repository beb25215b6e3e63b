package aggregation

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-daydata/internal/bucket"
	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// Get-or-init accessors. Each returns the stored record untouched, or a new
// record with its volume and counter fields zeroed and created == true.
// Nothing is written; callers save after applying deltas.

// GetOrInitDexDay loads or initializes the dex day record for b.
func GetOrInitDexDay(ctx context.Context, store storage.DexDayDataStore, b bucket.Bucket) (*domain.DexDayData, bool, error) {
	d, err := store.Get(ctx, b.Key)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("load dex day %s: %w", b.Key, err)
	}
	return &domain.DexDayData{
		ID:                   b.Key,
		Date:                 b.Start,
		DailyVolumeUSD:       decimal.Zero,
		DailyVolumeETH:       decimal.Zero,
		DailyVolumeUntracked: decimal.Zero,
		TotalVolumeUSD:       decimal.Zero,
		TotalVolumeETH:       decimal.Zero,
	}, true, nil
}

// GetOrInitPairDay loads or initializes the pair day record for b.
// Token references are snapshotted from pair on creation only.
func GetOrInitPairDay(ctx context.Context, store storage.PairDayDataStore, b bucket.Bucket, pair *domain.Pair) (*domain.PairDayData, bool, error) {
	d, err := store.Get(ctx, b.Key)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("load pair day %s: %w", b.Key, err)
	}
	return &domain.PairDayData{
		ID:                b.Key,
		Date:              b.Start,
		PairAddress:       pair.ID,
		Token0:            pair.Token0,
		Token1:            pair.Token1,
		DailyVolumeToken0: decimal.Zero,
		DailyVolumeToken1: decimal.Zero,
		DailyVolumeUSD:    decimal.Zero,
		DailyTxns:         0,
	}, true, nil
}

// GetOrInitPairHour loads or initializes the pair hour record for b.
func GetOrInitPairHour(ctx context.Context, store storage.PairHourDataStore, b bucket.Bucket, pair *domain.Pair) (*domain.PairHourData, bool, error) {
	d, err := store.Get(ctx, b.Key)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("load pair hour %s: %w", b.Key, err)
	}
	return &domain.PairHourData{
		ID:                 b.Key,
		HourStartUnix:      b.Start,
		Pair:               pair.ID,
		HourlyVolumeToken0: decimal.Zero,
		HourlyVolumeToken1: decimal.Zero,
		HourlyVolumeUSD:    decimal.Zero,
		HourlyTxns:         0,
	}, true, nil
}

// GetOrInitUserPairDay loads or initializes the user-pair day record for b.
func GetOrInitUserPairDay(ctx context.Context, store storage.UserPairDayDataStore, b bucket.Bucket, user *domain.User, pair *domain.Pair) (*domain.UserPairDayData, bool, error) {
	d, err := store.Get(ctx, b.Key)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("load user pair day %s: %w", b.Key, err)
	}
	return &domain.UserPairDayData{
		ID:             b.Key,
		Date:           b.Start,
		User:           user.ID,
		Pair:           pair.ID,
		DailyVolumeUSD: decimal.Zero,
	}, true, nil
}

// GetOrInitTokenDay loads or initializes the token day record for b.
// The initial price is snapshotted on creation.
func GetOrInitTokenDay(ctx context.Context, store storage.TokenDayDataStore, b bucket.Bucket, token *domain.Token, ethPrice decimal.Decimal) (*domain.TokenDayData, bool, error) {
	d, err := store.Get(ctx, b.Key)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("load token day %s: %w", b.Key, err)
	}
	return &domain.TokenDayData{
		ID:                b.Key,
		Date:              b.Start,
		Token:             token.ID,
		PriceUSD:          token.DerivedETH.Mul(ethPrice),
		DailyVolumeToken:  decimal.Zero,
		DailyVolumeETH:    decimal.Zero,
		DailyVolumeUSD:    decimal.Zero,
		DailyTxns:         0,
		TotalLiquidityUSD: decimal.Zero,
	}, true, nil
}
