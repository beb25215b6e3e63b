package storage

import (
	"context"
	"strings"

	"dex-daydata/internal/domain"
)

// Stores groups every store an event touches. A Transactor hands out a
// Stores bound to one unit of work.
type Stores struct {
	Pairs   PairStore
	Tokens  TokenStore
	Users   UserStore
	Factory FactoryStore
	Bundle  BundleStore

	Processed ProcessedEventStore

	DexDays      DexDayDataStore
	PairDays     PairDayDataStore
	PairHours    PairHourDataStore
	UserPairDays UserPairDayDataStore
	TokenDays    TokenDayDataStore
}

// Transactor runs fn against stores bound to a single transaction.
// If fn returns an error nothing fn wrote is committed.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s *Stores) error) error
}

// Change is one aggregate record written while processing an event.
type Change struct {
	Kind    domain.AggregateKind
	ID      string
	Start   int64 // bucket start, unix seconds
	Size    int64 // bucket size in seconds
	Created bool  // record did not exist before this event
	Record  any   // *domain.DexDayData, *domain.PairDayData, ...
}

// Entity returns the key prefix identifying the pair, token or user-pair
// the record belongs to. Dex day records have none.
func (c Change) Entity() string {
	if i := strings.LastIndex(c.ID, "-"); i >= 0 {
		return c.ID[:i]
	}
	return ""
}

// SnapshotSink receives committed aggregate changes for secondary storage.
type SnapshotSink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Publish writes the changes. Called after the owning transaction committed.
	Publish(ctx context.Context, changes []Change) error
}
