package stub

import (
	"context"
	"io"
	"sync"

	"dex-daydata/internal/ingestion"
	"dex-daydata/internal/storage"
)

// Source returns fixed in-memory messages in order, then io.EOF.
// Implements ingestion.Source and records commits for assertions.
type Source struct {
	mu        sync.Mutex
	values    [][]byte
	next      int
	committed []string
	closed    bool
}

// NewSource creates a stub source over values.
func NewSource(values ...[]byte) *Source {
	return &Source{values: values}
}

// Fetch returns the next value. Positions are 1-based indexes.
func (s *Source) Fetch(ctx context.Context) (*ingestion.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.values) {
		return nil, io.EOF
	}
	s.next++
	return ingestion.NewDelivery(s.values[s.next-1], int64(s.next)), nil
}

// Commit records the delivery position.
func (s *Source) Commit(_ context.Context, d *ingestion.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, d.Position)
	return nil
}

// Close marks the source closed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Committed returns the committed positions in commit order.
func (s *Source) Committed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.committed...)
}

// Publisher collects published values. Implements ingestion.Publisher.
type Publisher struct {
	mu      sync.Mutex
	batches [][][]byte
	err     error
}

// NewPublisher creates a publisher that fails every call with err, if set.
func NewPublisher(err error) *Publisher {
	return &Publisher{err: err}
}

// Publish records values as one batch.
func (p *Publisher) Publish(_ context.Context, values ...[]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([][]byte(nil), values...))
	return nil
}

// Values returns every published value in order.
func (p *Publisher) Values() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out [][]byte
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

// Batches returns the number of Publish calls that succeeded.
func (p *Publisher) Batches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

// Sink collects published changes. Implements storage.SnapshotSink.
type Sink struct {
	mu      sync.Mutex
	name    string
	calls   int
	changes []storage.Change
	err     error
}

// NewSink creates a sink named name that fails every call with err, if set.
func NewSink(name string, err error) *Sink {
	return &Sink{name: name, err: err}
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return s.name
}

// Publish records changes.
func (s *Sink) Publish(_ context.Context, changes []storage.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.changes = append(s.changes, changes...)
	return nil
}

// Calls returns the number of Publish calls, failed ones included.
func (s *Sink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Changes returns every recorded change.
func (s *Sink) Changes() []storage.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.Change(nil), s.changes...)
}

var (
	_ ingestion.Source     = (*Source)(nil)
	_ ingestion.Publisher  = (*Publisher)(nil)
	_ storage.SnapshotSink = (*Sink)(nil)
)
