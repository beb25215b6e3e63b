package domain

import "github.com/shopspring/decimal"

// DexDayData is the exchange-wide daily aggregate, keyed by day index.
type DexDayData struct {
	ID                   string          `json:"id"`                   // day index
	Date                 int64           `json:"date"`                 // day start, unix seconds
	DailyVolumeUSD       decimal.Decimal `json:"dailyVolumeUSD"`       // tracked USD volume in day
	DailyVolumeETH       decimal.Decimal `json:"dailyVolumeETH"`       // tracked ETH volume in day
	DailyVolumeUntracked decimal.Decimal `json:"dailyVolumeUntracked"` // untracked USD volume in day
	TotalVolumeUSD       decimal.Decimal `json:"totalVolumeUSD"`       // zero-initialized, never accumulated here
	TotalVolumeETH       decimal.Decimal `json:"totalVolumeETH"`       // zero-initialized, never accumulated here
	TotalLiquidityUSD    decimal.Decimal `json:"totalLiquidityUSD"`    // snapshot of factory liquidity
	TotalLiquidityETH    decimal.Decimal `json:"totalLiquidityETH"`    // snapshot of factory liquidity
	TxCount              int64           `json:"txCount"`              // snapshot of factory tx count
}

// PairDayData is the per-pair daily aggregate, keyed by "<pair>-<day>".
type PairDayData struct {
	ID                string          `json:"id"`
	Date              int64           `json:"date"` // day start, unix seconds
	PairAddress       string          `json:"pairAddress"`
	Token0            string          `json:"token0"`
	Token1            string          `json:"token1"`
	Reserve0          decimal.Decimal `json:"reserve0"`
	Reserve1          decimal.Decimal `json:"reserve1"`
	TotalSupply       decimal.Decimal `json:"totalSupply"`
	ReserveUSD        decimal.Decimal `json:"reserveUSD"`
	DailyVolumeToken0 decimal.Decimal `json:"dailyVolumeToken0"`
	DailyVolumeToken1 decimal.Decimal `json:"dailyVolumeToken1"`
	DailyVolumeUSD    decimal.Decimal `json:"dailyVolumeUSD"`
	DailyTxns         int64           `json:"dailyTxns"`
}

// PairHourData is the per-pair hourly aggregate, keyed by "<pair>-<hour>".
type PairHourData struct {
	ID                 string          `json:"id"`
	HourStartUnix      int64           `json:"hourStartUnix"` // hour start, unix seconds
	Pair               string          `json:"pair"`
	Reserve0           decimal.Decimal `json:"reserve0"`
	Reserve1           decimal.Decimal `json:"reserve1"`
	ReserveUSD         decimal.Decimal `json:"reserveUSD"`
	HourlyVolumeToken0 decimal.Decimal `json:"hourlyVolumeToken0"`
	HourlyVolumeToken1 decimal.Decimal `json:"hourlyVolumeToken1"`
	HourlyVolumeUSD    decimal.Decimal `json:"hourlyVolumeUSD"`
	HourlyTxns         int64           `json:"hourlyTxns"`
}

// UserPairDayData is the per-user per-pair daily aggregate,
// keyed by "<user>-<pair>-<day>".
type UserPairDayData struct {
	ID             string          `json:"id"`
	Date           int64           `json:"date"` // day start, unix seconds
	User           string          `json:"user"`
	Pair           string          `json:"pair"`
	DailyVolumeUSD decimal.Decimal `json:"dailyVolumeUSD"`
}

// TokenDayData is the per-token daily aggregate, keyed by "<token>-<day>".
type TokenDayData struct {
	ID                  string          `json:"id"`
	Date                int64           `json:"date"` // day start, unix seconds
	Token               string          `json:"token"`
	DailyVolumeToken    decimal.Decimal `json:"dailyVolumeToken"`
	DailyVolumeETH      decimal.Decimal `json:"dailyVolumeETH"`
	DailyVolumeUSD      decimal.Decimal `json:"dailyVolumeUSD"`
	DailyTxns           int64           `json:"dailyTxns"`
	TotalLiquidityToken decimal.Decimal `json:"totalLiquidityToken"`
	TotalLiquidityETH   decimal.Decimal `json:"totalLiquidityETH"`
	TotalLiquidityUSD   decimal.Decimal `json:"totalLiquidityUSD"`
	PriceUSD            decimal.Decimal `json:"priceUSD"`
}

// AggregateKind names an aggregate record type.
type AggregateKind string

// Aggregate kinds, also used as sink and metric labels.
const (
	AggregateDexDay      AggregateKind = "dex_day"
	AggregatePairDay     AggregateKind = "pair_day"
	AggregatePairHour    AggregateKind = "pair_hour"
	AggregateUserPairDay AggregateKind = "user_pair_day"
	AggregateTokenDay    AggregateKind = "token_day"
)

// Valid reports whether k is a known aggregate kind.
func (k AggregateKind) Valid() bool {
	switch k {
	case AggregateDexDay, AggregatePairDay, AggregatePairHour, AggregateUserPairDay, AggregateTokenDay:
		return true
	}
	return false
}
