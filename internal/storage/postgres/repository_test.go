package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-daydata/internal/aggregation"
	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

func TestRepository_InTxRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewRepository(pool)
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(ctx context.Context, s *storage.Stores) error {
		require.NoError(t, s.Users.Save(ctx, &domain.User{ID: "0xu", USDSwapped: dec(t, "1")}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Stores().Users.Get(ctx, "0xu")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepository_AppliesSwapAtomically(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewRepository(pool)
	s := repo.Stores()

	require.NoError(t, s.Pairs.Save(ctx, &domain.Pair{ID: "0xp", Token0: "0xa", Token1: "0xb", Reserve0: dec(t, "10"), Reserve1: dec(t, "20")}))
	require.NoError(t, s.Tokens.Save(ctx, &domain.Token{ID: "0xa", DerivedETH: dec(t, "0.002")}))
	require.NoError(t, s.Tokens.Save(ctx, &domain.Token{ID: "0xb", DerivedETH: dec(t, "1")}))
	require.NoError(t, s.Users.Save(ctx, &domain.User{ID: "0xu"}))
	require.NoError(t, s.Factory.Save(ctx, &domain.DexFactory{ID: "0xf", TxCount: 3}))
	require.NoError(t, s.Bundle.Save(ctx, &domain.Bundle{ETHPrice: dec(t, "3000")}))

	apply := func(ev *domain.Event) error {
		return repo.InTx(ctx, func(ctx context.Context, s *storage.Stores) error {
			snap, err := aggregation.LoadSnapshot(ctx, s)
			if err != nil {
				return err
			}
			_, err = aggregation.Apply(ctx, s, snap, ev)
			return err
		})
	}

	swap := &domain.Event{ID: "1", Kind: domain.EventSwap, Timestamp: 100, Pair: "0xp", From: "0xu",
		Amount0: dec(t, "1"), Amount1: dec(t, "2"), AmountUSD: dec(t, "50")}
	require.NoError(t, apply(swap))
	swap.AmountUSD = dec(t, "30")
	require.NoError(t, apply(swap))

	upd, err := s.UserPairDays.Get(ctx, "0xu-0xp-0")
	require.NoError(t, err)
	assert.True(t, upd.DailyVolumeUSD.Equal(dec(t, "80")))

	hour, err := s.PairHours.Get(ctx, "0xp-0")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hour.HourlyTxns)

	token, err := s.TokenDays.Get(ctx, "0xa-0")
	require.NoError(t, err)
	assert.True(t, token.PriceUSD.Equal(dec(t, "6")))

	// Missing user: nothing from this event may be committed.
	swap.From = "0xnobody"
	err = apply(swap)
	assert.ErrorIs(t, err, aggregation.ErrMissingParent)

	hour, err = s.PairHours.Get(ctx, "0xp-0")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hour.HourlyTxns)
}

func TestProcessedEventStore_Record(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewRepository(pool)
	ev := &domain.Event{ID: "s1", Kind: domain.EventSwap, Timestamp: 100}

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(ctx context.Context, s *storage.Stores) error {
		fresh, err := s.Processed.Record(ctx, ev)
		require.NoError(t, err)
		assert.True(t, fresh)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	store := NewProcessedEventStore(pool)
	fresh, err := store.Record(ctx, ev)
	require.NoError(t, err)
	assert.True(t, fresh, "rolled back record must not count")

	fresh, err = store.Record(ctx, ev)
	require.NoError(t, err)
	assert.False(t, fresh)
}
