package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

func TestPairStore_SaveAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPairStore(pool)

	pair := &domain.Pair{
		ID:          "0xpair",
		Token0:      "0xtoken0",
		Token1:      "0xtoken1",
		Reserve0:    dec(t, "1234.567890123456789"),
		Reserve1:    dec(t, "20"),
		TotalSupply: dec(t, "157.1"),
		ReserveUSD:  dec(t, "60000.5"),
	}
	require.NoError(t, store.Save(ctx, pair))

	got, err := store.Get(ctx, "0xpair")
	require.NoError(t, err)
	assert.Equal(t, pair.Token0, got.Token0)
	assert.Equal(t, pair.Token1, got.Token1)
	assert.True(t, pair.Reserve0.Equal(got.Reserve0), "reserve0 = %s", got.Reserve0)
	assert.True(t, pair.TotalSupply.Equal(got.TotalSupply))
	assert.True(t, pair.ReserveUSD.Equal(got.ReserveUSD))

	// Save replaces.
	pair.Reserve0 = dec(t, "1")
	require.NoError(t, store.Save(ctx, pair))
	got, err = store.Get(ctx, "0xpair")
	require.NoError(t, err)
	assert.True(t, got.Reserve0.Equal(dec(t, "1")))
}

func TestPairStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewPairStore(pool).Get(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenAndUserStores(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	tokens := NewTokenStore(pool)
	require.NoError(t, tokens.Save(ctx, &domain.Token{
		ID:             "0xtoken",
		Symbol:         "TKN",
		Name:           "Token",
		Decimals:       18,
		DerivedETH:     dec(t, "0.002"),
		TotalLiquidity: dec(t, "1000"),
	}))
	tok, err := tokens.Get(ctx, "0xtoken")
	require.NoError(t, err)
	assert.Equal(t, "TKN", tok.Symbol)
	assert.Equal(t, 18, tok.Decimals)
	assert.True(t, tok.DerivedETH.Equal(dec(t, "0.002")))

	users := NewUserStore(pool)
	require.NoError(t, users.Save(ctx, &domain.User{ID: "0xuser", USDSwapped: dec(t, "80"), TransactionCount: 2}))
	u, err := users.Get(ctx, "0xuser")
	require.NoError(t, err)
	assert.True(t, u.USDSwapped.Equal(dec(t, "80")))
	assert.Equal(t, int64(2), u.TransactionCount)

	err = users.Save(ctx, &domain.User{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSingletonStores(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	factory := NewFactoryStore(pool)
	_, err := factory.Get(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, factory.Save(ctx, &domain.DexFactory{ID: "0xfactory", TxCount: 1, TotalLiquidityUSD: dec(t, "5")}))
	require.NoError(t, factory.Save(ctx, &domain.DexFactory{ID: "0xfactory", TxCount: 2, TotalLiquidityUSD: dec(t, "6")}))

	f, err := factory.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.TxCount)
	assert.True(t, f.TotalLiquidityUSD.Equal(dec(t, "6")))

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM dex_factory`).Scan(&rows))
	assert.Equal(t, 1, rows)

	bundle := NewBundleStore(pool)
	require.NoError(t, bundle.Save(ctx, &domain.Bundle{ID: "ignored", ETHPrice: dec(t, "3000")}))
	b, err := bundle.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.BundleID, b.ID)
	assert.True(t, b.ETHPrice.Equal(dec(t, "3000")))
}

func TestUserStore_CreateKeepsCounters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUserStore(pool)

	created, err := store.Create(ctx, &domain.User{ID: "0xu"})
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, store.Save(ctx, &domain.User{ID: "0xu", USDSwapped: dec(t, "80"), TransactionCount: 2}))

	created, err = store.Create(ctx, &domain.User{ID: "0xu"})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Get(ctx, "0xu")
	require.NoError(t, err)
	assert.True(t, got.USDSwapped.Equal(dec(t, "80")), "usdSwapped = %s", got.USDSwapped)
	assert.Equal(t, int64(2), got.TransactionCount)
}
