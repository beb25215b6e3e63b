package memory

import (
	"context"
	"sync"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// Repository is an in-memory implementation of storage.Transactor.
// All tables share one lock; InTx holds it for the whole call and stages
// writes so a failed fn leaves the tables untouched.
type Repository struct {
	mu sync.RWMutex

	pairs   map[string]*domain.Pair
	tokens  map[string]*domain.Token
	users   map[string]*domain.User
	factory map[string]*domain.DexFactory
	bundle  map[string]*domain.Bundle

	processed map[string]*processedEvent

	dexDays      map[string]*domain.DexDayData
	pairDays     map[string]*domain.PairDayData
	pairHours    map[string]*domain.PairHourData
	userPairDays map[string]*domain.UserPairDayData
	tokenDays    map[string]*domain.TokenDayData
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		pairs:        make(map[string]*domain.Pair),
		tokens:       make(map[string]*domain.Token),
		users:        make(map[string]*domain.User),
		factory:      make(map[string]*domain.DexFactory),
		bundle:       make(map[string]*domain.Bundle),
		processed:    make(map[string]*processedEvent),
		dexDays:      make(map[string]*domain.DexDayData),
		pairDays:     make(map[string]*domain.PairDayData),
		pairHours:    make(map[string]*domain.PairHourData),
		userPairDays: make(map[string]*domain.UserPairDayData),
		tokenDays:    make(map[string]*domain.TokenDayData),
	}
}

// Stores returns stores that lock per call, outside any transaction.
func (r *Repository) Stores() *storage.Stores {
	return r.bind(nil)
}

// InTx runs fn with transaction-scoped stores. Writes become visible only
// if fn returns nil.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, s *storage.Stores) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &txn{}
	if err := fn(ctx, r.bind(tx)); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (r *Repository) bind(tx *txn) *storage.Stores {
	return &storage.Stores{
		Pairs:        &PairStore{v: newView(&r.mu, r.pairs, tx)},
		Tokens:       &TokenStore{v: newView(&r.mu, r.tokens, tx)},
		Users:        &UserStore{v: newView(&r.mu, r.users, tx)},
		Factory:      &FactoryStore{v: newView(&r.mu, r.factory, tx)},
		Bundle:       &BundleStore{v: newView(&r.mu, r.bundle, tx)},
		Processed:    &ProcessedEventStore{v: newView(&r.mu, r.processed, tx)},
		DexDays:      &DexDayDataStore{v: newView(&r.mu, r.dexDays, tx)},
		PairDays:     &PairDayDataStore{v: newView(&r.mu, r.pairDays, tx)},
		PairHours:    &PairHourDataStore{v: newView(&r.mu, r.pairHours, tx)},
		UserPairDays: &UserPairDayDataStore{v: newView(&r.mu, r.userPairDays, tx)},
		TokenDays:    &TokenDayDataStore{v: newView(&r.mu, r.tokenDays, tx)},
	}
}

var _ storage.Transactor = (*Repository)(nil)

// txn collects the flush step of every view bound to one InTx call.
type txn struct {
	flushes []func()
}

func (t *txn) commit() {
	for _, f := range t.flushes {
		f()
	}
}

// view is one table seen either directly (pending == nil, locks per call)
// or through a transaction (pending != nil, lock already held by InTx).
type view[T any] struct {
	mu      *sync.RWMutex
	rows    map[string]*T
	pending map[string]*T
}

func newView[T any](mu *sync.RWMutex, rows map[string]*T, tx *txn) *view[T] {
	v := &view[T]{mu: mu, rows: rows}
	if tx != nil {
		v.pending = make(map[string]*T)
		tx.flushes = append(tx.flushes, func() {
			for k, row := range v.pending {
				v.rows[k] = row
			}
		})
	}
	return v
}

func (v *view[T]) get(key string) (*T, bool) {
	if v.pending == nil {
		v.mu.RLock()
		defer v.mu.RUnlock()
	} else if row, ok := v.pending[key]; ok {
		c := *row
		return &c, true
	}

	row, ok := v.rows[key]
	if !ok {
		return nil, false
	}
	c := *row
	return &c, true
}

func (v *view[T]) put(key string, row *T) {
	c := *row
	if v.pending != nil {
		v.pending[key] = &c
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows[key] = &c
}

// insert stores row only if key is absent and reports whether it did.
func (v *view[T]) insert(key string, row *T) bool {
	if v.pending == nil {
		v.mu.Lock()
		defer v.mu.Unlock()
	} else if _, ok := v.pending[key]; ok {
		return false
	}
	if _, ok := v.rows[key]; ok {
		return false
	}

	c := *row
	if v.pending != nil {
		v.pending[key] = &c
	} else {
		v.rows[key] = &c
	}
	return true
}

// filter returns copies of all rows matching keep, pending writes included.
func (v *view[T]) filter(keep func(*T) bool) []*T {
	if v.pending == nil {
		v.mu.RLock()
		defer v.mu.RUnlock()
	}

	var result []*T
	for k, row := range v.rows {
		if _, staged := v.pending[k]; staged {
			continue
		}
		if keep(row) {
			c := *row
			result = append(result, &c)
		}
	}
	for _, row := range v.pending {
		if keep(row) {
			c := *row
			result = append(result, &c)
		}
	}
	return result
}
