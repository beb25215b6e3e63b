package aggregation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-daydata/internal/bucket"
	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// UpdateDexDayData refreshes the exchange-wide day record for ev.
// Liquidity and tx count always mirror the factory snapshot.
func UpdateDexDayData(ctx context.Context, s *storage.Stores, snap Snapshot, ev *domain.Event) (*domain.DexDayData, storage.Change, error) {
	b := bucket.DayOf(ev.Timestamp)

	d, created, err := GetOrInitDexDay(ctx, s.DexDays, b)
	if err != nil {
		return nil, storage.Change{}, err
	}

	d.TotalLiquidityUSD = snap.Factory.TotalLiquidityUSD
	d.TotalLiquidityETH = snap.Factory.TotalLiquidityETH
	d.TxCount = snap.Factory.TxCount

	if err := s.DexDays.Save(ctx, d); err != nil {
		return nil, storage.Change{}, fmt.Errorf("save dex day %s: %w", d.ID, err)
	}
	return d, change(domain.AggregateDexDay, b, bucket.Day, created, d), nil
}

// UpdatePairDayData refreshes the pair's day record: reserves and supply
// are overwritten, DailyTxns grows by one.
func UpdatePairDayData(ctx context.Context, s *storage.Stores, pair *domain.Pair, ev *domain.Event) (*domain.PairDayData, storage.Change, error) {
	b := bucket.DayOf(ev.Timestamp, ev.Pair)

	d, created, err := GetOrInitPairDay(ctx, s.PairDays, b, pair)
	if err != nil {
		return nil, storage.Change{}, err
	}

	d.TotalSupply = pair.TotalSupply
	d.Reserve0 = pair.Reserve0
	d.Reserve1 = pair.Reserve1
	d.ReserveUSD = pair.ReserveUSD
	d.DailyTxns++

	if err := s.PairDays.Save(ctx, d); err != nil {
		return nil, storage.Change{}, fmt.Errorf("save pair day %s: %w", d.ID, err)
	}
	return d, change(domain.AggregatePairDay, b, bucket.Day, created, d), nil
}

// UpdatePairHourData is UpdatePairDayData for hour buckets.
func UpdatePairHourData(ctx context.Context, s *storage.Stores, pair *domain.Pair, ev *domain.Event) (*domain.PairHourData, storage.Change, error) {
	b := bucket.HourOf(ev.Timestamp, ev.Pair)

	d, created, err := GetOrInitPairHour(ctx, s.PairHours, b, pair)
	if err != nil {
		return nil, storage.Change{}, err
	}

	d.Reserve0 = pair.Reserve0
	d.Reserve1 = pair.Reserve1
	d.ReserveUSD = pair.ReserveUSD
	d.HourlyTxns++

	if err := s.PairHours.Save(ctx, d); err != nil {
		return nil, storage.Change{}, fmt.Errorf("save pair hour %s: %w", d.ID, err)
	}
	return d, change(domain.AggregatePairHour, b, bucket.Hour, created, d), nil
}

// UpdateUserPairDayData adds trackedUSD to the sender's day record for the
// pair and to the user's all-time counters. Both records are saved.
func UpdateUserPairDayData(ctx context.Context, s *storage.Stores, user *domain.User, pair *domain.Pair, ev *domain.Event, trackedUSD decimal.Decimal) (*domain.UserPairDayData, storage.Change, error) {
	b := bucket.DayOf(ev.Timestamp, ev.From, ev.Pair)

	d, created, err := GetOrInitUserPairDay(ctx, s.UserPairDays, b, user, pair)
	if err != nil {
		return nil, storage.Change{}, err
	}

	d.DailyVolumeUSD = d.DailyVolumeUSD.Add(trackedUSD)
	user.USDSwapped = user.USDSwapped.Add(trackedUSD)
	user.TransactionCount++

	if err := s.UserPairDays.Save(ctx, d); err != nil {
		return nil, storage.Change{}, fmt.Errorf("save user pair day %s: %w", d.ID, err)
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, storage.Change{}, fmt.Errorf("save user %s: %w", user.ID, err)
	}
	return d, change(domain.AggregateUserPairDay, b, bucket.Day, created, d), nil
}

// UpdateTokenDayData refreshes token's day record. Price and liquidity are
// recomputed from the token and bundle on every call.
func UpdateTokenDayData(ctx context.Context, s *storage.Stores, snap Snapshot, token *domain.Token, ev *domain.Event) (*domain.TokenDayData, storage.Change, error) {
	b := bucket.DayOf(ev.Timestamp, token.ID)
	ethPrice := snap.Bundle.ETHPrice

	d, created, err := GetOrInitTokenDay(ctx, s.TokenDays, b, token, ethPrice)
	if err != nil {
		return nil, storage.Change{}, err
	}

	d.PriceUSD = token.DerivedETH.Mul(ethPrice)
	d.TotalLiquidityToken = token.TotalLiquidity
	d.TotalLiquidityETH = token.TotalLiquidity.Mul(token.DerivedETH)
	d.TotalLiquidityUSD = d.TotalLiquidityETH.Mul(ethPrice)
	d.DailyTxns++

	if err := s.TokenDays.Save(ctx, d); err != nil {
		return nil, storage.Change{}, fmt.Errorf("save token day %s: %w", d.ID, err)
	}
	return d, change(domain.AggregateTokenDay, b, bucket.Day, created, d), nil
}

func change(kind domain.AggregateKind, b bucket.Bucket, size int64, created bool, record any) storage.Change {
	return storage.Change{
		Kind:    kind,
		ID:      b.Key,
		Start:   b.Start,
		Size:    size,
		Created: created,
		Record:  record,
	}
}
