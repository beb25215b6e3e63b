package domain

import "github.com/shopspring/decimal"

// Pair is the current state of a liquidity pair.
// Maintained by upstream processing; aggregation only reads it.
type Pair struct {
	ID          string          `json:"id"`          // pair contract address
	Token0      string          `json:"token0"`      // token0 address
	Token1      string          `json:"token1"`      // token1 address
	Reserve0    decimal.Decimal `json:"reserve0"`    // token0 reserve
	Reserve1    decimal.Decimal `json:"reserve1"`    // token1 reserve
	TotalSupply decimal.Decimal `json:"totalSupply"` // LP token supply
	ReserveUSD  decimal.Decimal `json:"reserveUSD"`  // derived USD liquidity
}

// Token is the current state of an ERC20 token seen in a pair.
type Token struct {
	ID             string          `json:"id"`             // token contract address
	Symbol         string          `json:"symbol"`         // ticker symbol
	Name           string          `json:"name"`           // display name
	Decimals       int             `json:"decimals"`       // ERC20 decimals
	DerivedETH     decimal.Decimal `json:"derivedETH"`     // price in ETH
	TotalLiquidity decimal.Decimal `json:"totalLiquidity"` // liquidity across all pairs, token units
}

// User is a swapping account. Its counters are the only parent fields
// mutated by aggregation.
type User struct {
	ID               string          `json:"id"`               // account address
	USDSwapped       decimal.Decimal `json:"usdSwapped"`       // all-time tracked USD volume
	TransactionCount int64           `json:"transactionCount"` // all-time swap count
}

// DexFactory is the singleton global exchange state.
type DexFactory struct {
	ID                 string          `json:"id"`                 // factory address
	PairCount          int64           `json:"pairCount"`          // number of pairs created
	TotalVolumeUSD     decimal.Decimal `json:"totalVolumeUSD"`     // all-time tracked USD volume
	TotalVolumeETH     decimal.Decimal `json:"totalVolumeETH"`     // all-time tracked ETH volume
	UntrackedVolumeUSD decimal.Decimal `json:"untrackedVolumeUSD"` // all-time untracked USD volume
	TotalLiquidityUSD  decimal.Decimal `json:"totalLiquidityUSD"`  // current USD liquidity
	TotalLiquidityETH  decimal.Decimal `json:"totalLiquidityETH"`  // current ETH liquidity
	TxCount            int64           `json:"txCount"`            // all-time transaction count
}

// BundleID is the ID of the singleton price bundle.
const BundleID = "1"

// Bundle holds the reference ETH/USD price.
type Bundle struct {
	ID       string          `json:"id"`       // always BundleID
	ETHPrice decimal.Decimal `json:"ethPrice"` // USD per ETH
}
