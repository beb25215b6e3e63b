package domain

import "github.com/shopspring/decimal"

// EventKind identifies the on-chain event that triggered aggregation.
type EventKind string

// Event kinds.
const (
	EventSwap EventKind = "swap"
	EventMint EventKind = "mint"
	EventBurn EventKind = "burn"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventSwap, EventMint, EventBurn:
		return true
	}
	return false
}

// Event is the envelope of one decoded pair event.
// Timestamp is the block timestamp in unix seconds.
type Event struct {
	ID        string    `json:"id"`        // unique event id (tx hash + log index upstream)
	Kind      EventKind `json:"kind"`      // swap | mint | burn
	Timestamp int64     `json:"timestamp"` // block timestamp, unix seconds
	Pair      string    `json:"pair"`      // emitting pair contract address
	From      string    `json:"from"`      // transaction sender

	// Swap amounts, only meaningful for EventSwap.
	Amount0      decimal.Decimal `json:"amount0"`      // token0 in+out total
	Amount1      decimal.Decimal `json:"amount1"`      // token1 in+out total
	AmountUSD    decimal.Decimal `json:"amountUSD"`    // tracked USD amount
	AmountETH    decimal.Decimal `json:"amountETH"`    // tracked ETH amount
	UntrackedUSD decimal.Decimal `json:"untrackedUSD"` // derived USD amount, whitelist-agnostic
}
