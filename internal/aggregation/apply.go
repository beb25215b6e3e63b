package aggregation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// Result lists every aggregate written for one event, in write order.
type Result struct {
	EventID string
	Kind    domain.EventKind
	Changes []storage.Change
}

// Created counts the records that did not exist before the event.
func (r *Result) Created() int {
	n := 0
	for _, c := range r.Changes {
		if c.Created {
			n++
		}
	}
	return n
}

// parents holds the entities an event references, loaded up front.
type parents struct {
	pair   *domain.Pair
	token0 *domain.Token
	token1 *domain.Token
	user   *domain.User // swap only
}

// loadParents checks that everything ev references exists before any
// handler writes.
func loadParents(ctx context.Context, s *storage.Stores, ev *domain.Event) (*parents, error) {
	pair, err := s.Pairs.Get(ctx, ev.Pair)
	if err != nil {
		return nil, parentErr(err, "pair", ev.Pair)
	}
	token0, err := s.Tokens.Get(ctx, pair.Token0)
	if err != nil {
		return nil, parentErr(err, "token", pair.Token0)
	}
	token1, err := s.Tokens.Get(ctx, pair.Token1)
	if err != nil {
		return nil, parentErr(err, "token", pair.Token1)
	}

	p := &parents{pair: pair, token0: token0, token1: token1}
	if ev.Kind == domain.EventSwap {
		user, err := s.Users.Get(ctx, ev.From)
		if err != nil {
			return nil, parentErr(err, "user", ev.From)
		}
		p.user = user
	}
	return p, nil
}

// Apply updates every bucket aggregate ev touches.
//
//   - swap: pair day, pair hour, dex day, token0 day, token1 day and the
//     sender's user-pair day, then the swap amounts are added to the
//     volume fields of all of them
//   - mint, burn: the same minus the user record, no volume
//
// s must be bound to one transaction; on error the caller rolls back.
func Apply(ctx context.Context, s *storage.Stores, snap Snapshot, ev *domain.Event) (*Result, error) {
	if !ev.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, ev.Kind)
	}

	p, err := loadParents(ctx, s, ev)
	if err != nil {
		return nil, err
	}

	res := &Result{EventID: ev.ID, Kind: ev.Kind}

	pairDay, c, err := UpdatePairDayData(ctx, s, p.pair, ev)
	if err != nil {
		return nil, err
	}
	res.Changes = append(res.Changes, c)

	pairHour, c, err := UpdatePairHourData(ctx, s, p.pair, ev)
	if err != nil {
		return nil, err
	}
	res.Changes = append(res.Changes, c)

	dexDay, c, err := UpdateDexDayData(ctx, s, snap, ev)
	if err != nil {
		return nil, err
	}
	res.Changes = append(res.Changes, c)

	token0Day, c, err := UpdateTokenDayData(ctx, s, snap, p.token0, ev)
	if err != nil {
		return nil, err
	}
	res.Changes = append(res.Changes, c)

	token1Day, c, err := UpdateTokenDayData(ctx, s, snap, p.token1, ev)
	if err != nil {
		return nil, err
	}
	res.Changes = append(res.Changes, c)

	if ev.Kind != domain.EventSwap {
		return res, nil
	}

	_, c, err = UpdateUserPairDayData(ctx, s, p.user, p.pair, ev, ev.AmountUSD)
	if err != nil {
		return nil, err
	}
	res.Changes = append(res.Changes, c)

	sv := swapVolumes{
		pairDay:   pairDay,
		pairHour:  pairHour,
		dexDay:    dexDay,
		token0Day: token0Day,
		token1Day: token1Day,
	}
	if err := sv.accumulate(ctx, s, snap, p, ev); err != nil {
		return nil, err
	}
	return res, nil
}

// swapVolumes are the records whose volume fields a swap adds to.
type swapVolumes struct {
	pairDay   *domain.PairDayData
	pairHour  *domain.PairHourData
	dexDay    *domain.DexDayData
	token0Day *domain.TokenDayData
	token1Day *domain.TokenDayData
}

func (v swapVolumes) accumulate(ctx context.Context, s *storage.Stores, snap Snapshot, p *parents, ev *domain.Event) error {
	ethPrice := snap.Bundle.ETHPrice

	v.pairDay.DailyVolumeToken0 = v.pairDay.DailyVolumeToken0.Add(ev.Amount0)
	v.pairDay.DailyVolumeToken1 = v.pairDay.DailyVolumeToken1.Add(ev.Amount1)
	v.pairDay.DailyVolumeUSD = v.pairDay.DailyVolumeUSD.Add(ev.AmountUSD)
	if err := s.PairDays.Save(ctx, v.pairDay); err != nil {
		return fmt.Errorf("save pair day %s: %w", v.pairDay.ID, err)
	}

	v.pairHour.HourlyVolumeToken0 = v.pairHour.HourlyVolumeToken0.Add(ev.Amount0)
	v.pairHour.HourlyVolumeToken1 = v.pairHour.HourlyVolumeToken1.Add(ev.Amount1)
	v.pairHour.HourlyVolumeUSD = v.pairHour.HourlyVolumeUSD.Add(ev.AmountUSD)
	if err := s.PairHours.Save(ctx, v.pairHour); err != nil {
		return fmt.Errorf("save pair hour %s: %w", v.pairHour.ID, err)
	}

	v.dexDay.DailyVolumeUSD = v.dexDay.DailyVolumeUSD.Add(ev.AmountUSD)
	v.dexDay.DailyVolumeETH = v.dexDay.DailyVolumeETH.Add(ev.AmountETH)
	v.dexDay.DailyVolumeUntracked = v.dexDay.DailyVolumeUntracked.Add(ev.UntrackedUSD)
	if err := s.DexDays.Save(ctx, v.dexDay); err != nil {
		return fmt.Errorf("save dex day %s: %w", v.dexDay.ID, err)
	}

	if err := addTokenVolume(ctx, s, v.token0Day, p.token0, ev.Amount0, ethPrice); err != nil {
		return err
	}
	return addTokenVolume(ctx, s, v.token1Day, p.token1, ev.Amount1, ethPrice)
}

func addTokenVolume(ctx context.Context, s *storage.Stores, d *domain.TokenDayData, token *domain.Token, amount, ethPrice decimal.Decimal) error {
	amountETH := amount.Mul(token.DerivedETH)
	d.DailyVolumeToken = d.DailyVolumeToken.Add(amount)
	d.DailyVolumeETH = d.DailyVolumeETH.Add(amountETH)
	d.DailyVolumeUSD = d.DailyVolumeUSD.Add(amountETH.Mul(ethPrice))
	if err := s.TokenDays.Save(ctx, d); err != nil {
		return fmt.Errorf("save token day %s: %w", d.ID, err)
	}
	return nil
}
