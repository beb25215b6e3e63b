package aggregation

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
	"dex-daydata/internal/storage/memory"
)

const (
	pairAddr   = "0x00000000000000000000000000000000000000aa"
	token0Addr = "0x00000000000000000000000000000000000000t0"
	token1Addr = "0x00000000000000000000000000000000000000t1"
	userAddr   = "0x00000000000000000000000000000000000000u1"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedRepo stores a pair with reserves (10, 20), both tokens, one user,
// the factory and a bundle priced at 3000.
func seedRepo(t *testing.T) *memory.Repository {
	t.Helper()

	repo := memory.NewRepository()
	s := repo.Stores()
	ctx := context.Background()

	require.NoError(t, s.Pairs.Save(ctx, &domain.Pair{
		ID:          pairAddr,
		Token0:      token0Addr,
		Token1:      token1Addr,
		Reserve0:    d("10"),
		Reserve1:    d("20"),
		TotalSupply: d("14"),
		ReserveUSD:  d("60000"),
	}))
	require.NoError(t, s.Tokens.Save(ctx, &domain.Token{
		ID:             token0Addr,
		Symbol:         "T0",
		DerivedETH:     d("0.002"),
		TotalLiquidity: d("1000"),
	}))
	require.NoError(t, s.Tokens.Save(ctx, &domain.Token{
		ID:             token1Addr,
		Symbol:         "WETH",
		DerivedETH:     d("1"),
		TotalLiquidity: d("5"),
	}))
	require.NoError(t, s.Users.Save(ctx, &domain.User{
		ID:         userAddr,
		USDSwapped: decimal.Zero,
	}))
	require.NoError(t, s.Factory.Save(ctx, &domain.DexFactory{
		ID:                "0xfactory",
		TotalLiquidityUSD: d("1000000"),
		TotalLiquidityETH: d("333.33"),
		TxCount:           42,
	}))
	require.NoError(t, s.Bundle.Save(ctx, &domain.Bundle{ETHPrice: d("3000")}))

	return repo
}

func applyEvent(t *testing.T, repo *memory.Repository, ev *domain.Event) (*Result, error) {
	t.Helper()

	var res *Result
	err := repo.InTx(context.Background(), func(ctx context.Context, s *storage.Stores) error {
		snap, err := LoadSnapshot(ctx, s)
		if err != nil {
			return err
		}
		res, err = Apply(ctx, s, snap, ev)
		return err
	})
	return res, err
}

func swapAt(ts int64, amountUSD string) *domain.Event {
	return &domain.Event{
		ID:           "ev",
		Kind:         domain.EventSwap,
		Timestamp:    ts,
		Pair:         pairAddr,
		From:         userAddr,
		Amount0:      d("100"),
		Amount1:      d("0.2"),
		AmountUSD:    d(amountUSD),
		AmountETH:    d(amountUSD).Div(d("3000")),
		UntrackedUSD: d(amountUSD),
	}
}

func mintAt(ts int64) *domain.Event {
	return &domain.Event{ID: "mint", Kind: domain.EventMint, Timestamp: ts, Pair: pairAddr, From: userAddr}
}

func TestApply_PairHourScenario(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()
	stores := repo.Stores()

	_, err := applyEvent(t, repo, mintAt(100))
	require.NoError(t, err)

	hour, err := stores.PairHours.Get(ctx, pairAddr+"-0")
	require.NoError(t, err)
	assert.True(t, hour.Reserve0.Equal(d("10")))
	assert.True(t, hour.Reserve1.Equal(d("20")))
	assert.Equal(t, int64(1), hour.HourlyTxns)
	assert.Equal(t, int64(0), hour.HourStartUnix)

	// Reserves move, second event in the same hour.
	pair, err := stores.Pairs.Get(ctx, pairAddr)
	require.NoError(t, err)
	pair.Reserve0 = d("15")
	require.NoError(t, stores.Pairs.Save(ctx, pair))

	_, err = applyEvent(t, repo, mintAt(200))
	require.NoError(t, err)

	hour, err = stores.PairHours.Get(ctx, pairAddr+"-0")
	require.NoError(t, err)
	assert.True(t, hour.Reserve0.Equal(d("15")), "reserve0 = %s", hour.Reserve0)
	assert.True(t, hour.Reserve1.Equal(d("20")))
	assert.Equal(t, int64(2), hour.HourlyTxns)
	assert.Equal(t, int64(0), hour.HourStartUnix)
}

func TestApply_UserPairDayScenario(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()
	stores := repo.Stores()

	_, err := applyEvent(t, repo, swapAt(1000, "50"))
	require.NoError(t, err)
	_, err = applyEvent(t, repo, swapAt(5000, "30"))
	require.NoError(t, err)

	day, err := stores.UserPairDays.Get(ctx, userAddr+"-"+pairAddr+"-0")
	require.NoError(t, err)
	assert.True(t, day.DailyVolumeUSD.Equal(d("80")), "dailyVolumeUSD = %s", day.DailyVolumeUSD)
	assert.Equal(t, userAddr, day.User)
	assert.Equal(t, pairAddr, day.Pair)

	user, err := stores.Users.Get(ctx, userAddr)
	require.NoError(t, err)
	assert.True(t, user.USDSwapped.Equal(d("80")))
	assert.Equal(t, int64(2), user.TransactionCount)
}

func TestApply_TokenPriceRecomputedEveryEvent(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()
	stores := repo.Stores()

	_, err := applyEvent(t, repo, mintAt(100))
	require.NoError(t, err)

	day, err := stores.TokenDays.Get(ctx, token0Addr+"-0")
	require.NoError(t, err)
	assert.True(t, day.PriceUSD.Equal(d("6")), "priceUSD = %s", day.PriceUSD)
	assert.True(t, day.TotalLiquidityToken.Equal(d("1000")))
	assert.True(t, day.TotalLiquidityETH.Equal(d("2")))
	assert.True(t, day.TotalLiquidityUSD.Equal(d("6000")))

	// Same inputs give the same price again.
	_, err = applyEvent(t, repo, mintAt(200))
	require.NoError(t, err)
	day, err = stores.TokenDays.Get(ctx, token0Addr+"-0")
	require.NoError(t, err)
	assert.True(t, day.PriceUSD.Equal(d("6")))
	assert.Equal(t, int64(2), day.DailyTxns)

	// ETH price moves: price is recomputed, not cached from creation.
	require.NoError(t, stores.Bundle.Save(ctx, &domain.Bundle{ETHPrice: d("4000")}))
	_, err = applyEvent(t, repo, mintAt(300))
	require.NoError(t, err)
	day, err = stores.TokenDays.Get(ctx, token0Addr+"-0")
	require.NoError(t, err)
	assert.True(t, day.PriceUSD.Equal(d("8")), "priceUSD = %s", day.PriceUSD)
	assert.True(t, day.TotalLiquidityUSD.Equal(d("8000")))
}

func TestApply_DexDaySnapshotsFactory(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()
	stores := repo.Stores()

	_, err := applyEvent(t, repo, mintAt(100))
	require.NoError(t, err)

	day, err := stores.DexDays.Get(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), day.Date)
	assert.Equal(t, int64(42), day.TxCount)
	assert.True(t, day.TotalLiquidityUSD.Equal(d("1000000")))
	assert.True(t, day.DailyVolumeUSD.IsZero())
	assert.True(t, day.TotalVolumeUSD.IsZero())

	factory, err := stores.Factory.Get(ctx)
	require.NoError(t, err)
	factory.TxCount = 43
	factory.TotalLiquidityUSD = d("900000")
	require.NoError(t, stores.Factory.Save(ctx, factory))

	_, err = applyEvent(t, repo, mintAt(200))
	require.NoError(t, err)

	day, err = stores.DexDays.Get(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, int64(43), day.TxCount)
	assert.True(t, day.TotalLiquidityUSD.Equal(d("900000")))
}

func TestApply_SwapAccumulatesVolume(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()
	stores := repo.Stores()

	_, err := applyEvent(t, repo, swapAt(100, "600"))
	require.NoError(t, err)
	_, err = applyEvent(t, repo, swapAt(200, "600"))
	require.NoError(t, err)

	pairDay, err := stores.PairDays.Get(ctx, pairAddr+"-0")
	require.NoError(t, err)
	assert.True(t, pairDay.DailyVolumeToken0.Equal(d("200")))
	assert.True(t, pairDay.DailyVolumeToken1.Equal(d("0.4")))
	assert.True(t, pairDay.DailyVolumeUSD.Equal(d("1200")))
	assert.Equal(t, int64(2), pairDay.DailyTxns)
	assert.Equal(t, token0Addr, pairDay.Token0)
	assert.Equal(t, token1Addr, pairDay.Token1)
	assert.True(t, pairDay.TotalSupply.Equal(d("14")))

	pairHour, err := stores.PairHours.Get(ctx, pairAddr+"-0")
	require.NoError(t, err)
	assert.True(t, pairHour.HourlyVolumeUSD.Equal(d("1200")))

	dexDay, err := stores.DexDays.Get(ctx, "0")
	require.NoError(t, err)
	assert.True(t, dexDay.DailyVolumeUSD.Equal(d("1200")))
	assert.True(t, dexDay.DailyVolumeETH.Equal(d("0.4")))
	assert.True(t, dexDay.DailyVolumeUntracked.Equal(d("1200")))

	// 100 token0 per swap at 0.002 ETH, ETH at 3000.
	token0Day, err := stores.TokenDays.Get(ctx, token0Addr+"-0")
	require.NoError(t, err)
	assert.True(t, token0Day.DailyVolumeToken.Equal(d("200")))
	assert.True(t, token0Day.DailyVolumeETH.Equal(d("0.4")))
	assert.True(t, token0Day.DailyVolumeUSD.Equal(d("1200")))
}

func TestApply_MintDoesNotTouchUserOrVolume(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()
	stores := repo.Stores()

	res, err := applyEvent(t, repo, mintAt(100))
	require.NoError(t, err)
	assert.Len(t, res.Changes, 5)

	_, err = stores.UserPairDays.Get(ctx, userAddr+"-"+pairAddr+"-0")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	user, err := stores.Users.Get(ctx, userAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.TransactionCount)

	pairDay, err := stores.PairDays.Get(ctx, pairAddr+"-0")
	require.NoError(t, err)
	assert.True(t, pairDay.DailyVolumeUSD.IsZero())
}

func TestApply_CreationThenUpdate(t *testing.T) {
	repo := seedRepo(t)

	res, err := applyEvent(t, repo, swapAt(100, "1"))
	require.NoError(t, err)
	assert.Len(t, res.Changes, 6)
	assert.Equal(t, 6, res.Created())

	res, err = applyEvent(t, repo, swapAt(200, "1"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created())

	// Next hour: only the hour bucket is new.
	res, err = applyEvent(t, repo, swapAt(3600, "1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created())

	kinds := make(map[domain.AggregateKind]bool)
	for _, c := range res.Changes {
		if c.Created {
			kinds[c.Kind] = true
		}
	}
	assert.True(t, kinds[domain.AggregatePairHour])
}

func TestApply_TxCounterMonotonic(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()
	stores := repo.Stores()

	prevVolume := decimal.Zero
	for i := int64(1); i <= 10; i++ {
		_, err := applyEvent(t, repo, swapAt(i*60, "5"))
		require.NoError(t, err)

		day, err := stores.PairDays.Get(ctx, pairAddr+"-0")
		require.NoError(t, err)
		assert.Equal(t, i, day.DailyTxns)
		assert.True(t, day.DailyVolumeUSD.GreaterThan(prevVolume))
		prevVolume = day.DailyVolumeUSD
	}
}

func TestApply_SeparateDays(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()
	stores := repo.Stores()

	_, err := applyEvent(t, repo, swapAt(100, "50"))
	require.NoError(t, err)
	_, err = applyEvent(t, repo, swapAt(86400+100, "30"))
	require.NoError(t, err)

	first, err := stores.UserPairDays.Get(ctx, userAddr+"-"+pairAddr+"-0")
	require.NoError(t, err)
	second, err := stores.UserPairDays.Get(ctx, userAddr+"-"+pairAddr+"-1")
	require.NoError(t, err)
	assert.True(t, first.DailyVolumeUSD.Equal(d("50")))
	assert.True(t, second.DailyVolumeUSD.Equal(d("30")))
	assert.Equal(t, int64(86400), second.Date)

	// The user counter spans days.
	user, err := stores.Users.Get(ctx, userAddr)
	require.NoError(t, err)
	assert.True(t, user.USDSwapped.Equal(d("80")))
}

func TestApply_MissingParents(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ctx context.Context, repo *memory.Repository) *domain.Event
		entity string
	}{
		{
			name: "pair",
			mutate: func(_ context.Context, _ *memory.Repository) *domain.Event {
				ev := swapAt(100, "1")
				ev.Pair = "0xunknown"
				return ev
			},
			entity: "pair",
		},
		{
			name: "token",
			mutate: func(ctx context.Context, repo *memory.Repository) *domain.Event {
				s := repo.Stores()
				p, _ := s.Pairs.Get(ctx, pairAddr)
				p.Token1 = "0xnotoken"
				_ = s.Pairs.Save(ctx, p)
				return mintAt(100)
			},
			entity: "token",
		},
		{
			name: "user",
			mutate: func(_ context.Context, _ *memory.Repository) *domain.Event {
				ev := swapAt(100, "1")
				ev.From = "0xnobody"
				return ev
			},
			entity: "user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seedRepo(t)
			ctx := context.Background()
			ev := tt.mutate(ctx, repo)

			_, err := applyEvent(t, repo, ev)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingParent)

			var mpe *MissingParentError
			require.True(t, errors.As(err, &mpe))
			assert.Equal(t, tt.entity, mpe.Entity)

			// Nothing was written.
			days, err := repo.Stores().DexDays.GetByTimeRange(ctx, 0, 86400)
			require.NoError(t, err)
			assert.Empty(t, days)
		})
	}
}

func TestApply_MintWithoutUserSucceeds(t *testing.T) {
	repo := seedRepo(t)

	ev := mintAt(100)
	ev.From = "0xnobody"
	_, err := applyEvent(t, repo, ev)
	assert.NoError(t, err)
}

func TestLoadSnapshot_Missing(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	_, err := LoadSnapshot(ctx, repo.Stores())
	var mpe *MissingParentError
	require.ErrorAs(t, err, &mpe)
	assert.Equal(t, "factory", mpe.Entity)

	require.NoError(t, repo.Stores().Factory.Save(ctx, &domain.DexFactory{ID: "0xf"}))
	_, err = LoadSnapshot(ctx, repo.Stores())
	require.ErrorAs(t, err, &mpe)
	assert.Equal(t, "bundle", mpe.Entity)
	assert.Contains(t, err.Error(), "bundle 1")
}

func TestApply_UnknownKind(t *testing.T) {
	repo := seedRepo(t)

	ev := mintAt(100)
	ev.Kind = "transfer"
	_, err := applyEvent(t, repo, ev)
	assert.ErrorIs(t, err, ErrUnknownEventKind)
}
