package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"dex-daydata/internal/aggregation"
	"dex-daydata/internal/domain"
	"dex-daydata/internal/observability"
	"dex-daydata/internal/storage"
)

// Runner consumes messages from a Source and aggregates them one at a time.
// Each message is fully handled, sink fan-out included, before its offset
// is committed and the next one is fetched.
type Runner struct {
	source  Source
	repo    storage.Transactor
	sinks   []storage.SnapshotSink
	timeout time.Duration // per-sink publish timeout
	logger  logrus.FieldLogger
	now     func() time.Time

	order orderTracker
	stats Stats
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source      Source
	Transactor  storage.Transactor
	Sinks       []storage.SnapshotSink
	SinkTimeout time.Duration // Default: 5s
	Logger      logrus.FieldLogger
	Now         func() time.Time // Default: time.Now
}

// Stats counts what a Runner has handled since it was created.
type Stats struct {
	Messages   int64 // fetched
	Events     int64 // aggregated and committed
	Entities   int64 // parent upserts
	Skipped    int64 // undecodable or unknown kind
	Duplicates int64 // event ids already aggregated
	LateEvents int64 // older than a previously seen event
	SinkErrors int64
	Changes    int64 // aggregate records written
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	timeout := opts.SinkTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		source:  opts.Source,
		repo:    opts.Transactor,
		sinks:   opts.Sinks,
		timeout: timeout,
		logger:  logger.WithField("component", "runner"),
		now:     now,
	}
}

// Stats returns a copy of the counters.
func (r *Runner) Stats() Stats {
	return r.stats
}

// Run fetches and handles messages until the source is exhausted (returns
// nil), ctx is cancelled (returns ctx.Err()) or a message fails.
// A failed message is not committed, so a Kafka source redelivers it on
// restart.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Starting ingestion runner")

	for {
		d, err := r.source.Fetch(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.WithFields(r.statsFields()).Info("Source exhausted")
				return nil
			}
			if ctx.Err() != nil {
				r.logger.WithFields(r.statsFields()).Info("Runner stopping")
				return ctx.Err()
			}
			return err
		}
		r.stats.Messages++

		if err := r.Handle(ctx, d.Value); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !skippable(err) {
				return fmt.Errorf("message %s: %w", d.Position, err)
			}
			r.stats.Skipped++
			r.logger.WithError(err).WithField("position", d.Position).Warn("Skipping message")
		}

		if err := r.source.Commit(ctx, d); err != nil {
			return err
		}
	}
}

// skippable reports whether a message error should be committed past
// instead of stopping the runner.
func skippable(err error) bool {
	return errors.Is(err, ErrInvalidMessage) || errors.Is(err, aggregation.ErrUnknownEventKind)
}

// Handle decodes one raw message and applies it.
func (r *Runner) Handle(ctx context.Context, raw []byte) error {
	msg, err := DecodeMessage(raw)
	if err != nil {
		observability.RecordDecodeError()
		return err
	}
	observability.RecordMessage(string(msg.Type))

	if msg.Type == TypeEvent {
		return r.handleEvent(ctx, msg.Event)
	}
	if err := r.saveEntity(ctx, msg); err != nil {
		return err
	}
	r.stats.Entities++
	return nil
}

// saveEntity upserts the parent entity carried by msg.
func (r *Runner) saveEntity(ctx context.Context, msg *Message) error {
	return r.repo.InTx(ctx, func(ctx context.Context, s *storage.Stores) error {
		switch msg.Type {
		case TypePair:
			return s.Pairs.Save(ctx, msg.Pair)
		case TypeToken:
			return s.Tokens.Save(ctx, msg.Token)
		case TypeUser:
			// Counters belong to aggregation; an upstream user message only
			// creates the row.
			created, err := s.Users.Create(ctx, msg.User)
			if err == nil && !created {
				r.logger.WithField("user", msg.User.ID).Debug("User exists, keeping counters")
			}
			return err
		case TypeFactory:
			return s.Factory.Save(ctx, msg.Factory)
		case TypeBundle:
			return s.Bundle.Save(ctx, msg.Bundle)
		}
		return fmt.Errorf("%w: unexpected type %q", ErrInvalidMessage, msg.Type)
	})
}

// handleEvent runs aggregation for ev in one transaction, then publishes
// the committed changes to every sink. The event id is recorded in the same
// transaction; a redelivered event is a no-op.
func (r *Runner) handleEvent(ctx context.Context, ev *domain.Event) error {
	start := r.now()
	log := r.logger.WithFields(logrus.Fields{
		"event_id":  ev.ID,
		"kind":      ev.Kind,
		"pair":      ev.Pair,
		"timestamp": ev.Timestamp,
	})

	if !ev.Kind.Valid() {
		observability.RecordEventFailed("unknown_kind")
		return fmt.Errorf("event %s: %w: %q", ev.ID, aggregation.ErrUnknownEventKind, ev.Kind)
	}

	var (
		res       *aggregation.Result
		duplicate bool
	)
	err := r.repo.InTx(ctx, func(ctx context.Context, s *storage.Stores) error {
		fresh, err := s.Processed.Record(ctx, ev)
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			return nil
		}

		snap, err := aggregation.LoadSnapshot(ctx, s)
		if err != nil {
			return err
		}
		res, err = aggregation.Apply(ctx, s, snap, ev)
		return err
	})
	if err != nil {
		observability.RecordEventFailed(failureReason(err))
		if !errors.Is(err, aggregation.ErrUnknownEventKind) {
			log.WithError(err).Error("Event aggregation failed")
		}
		return fmt.Errorf("event %s: %w", ev.ID, err)
	}
	if duplicate {
		r.stats.Duplicates++
		observability.RecordDuplicateEvent()
		log.Info("Event already aggregated, skipping")
		return nil
	}

	end := r.now()
	observability.RecordEventProcessed(string(ev.Kind), ev.Timestamp, end.Sub(start).Seconds(), end.Unix())
	for _, c := range res.Changes {
		observability.RecordBucketWrite(string(c.Kind), c.Created)
	}
	r.stats.Events++
	r.stats.Changes += int64(len(res.Changes))

	if r.order.observe(ev.Timestamp) {
		r.stats.LateEvents++
		log.WithField("newest_seen", r.order.last).Warn("Event older than a previously aggregated event")
	}

	log.WithFields(logrus.Fields{
		"changes": len(res.Changes),
		"created": res.Created(),
	}).Debug("Event aggregated")

	r.publish(ctx, res.Changes)
	return nil
}

// publish fans changes out to every sink. Failures are logged and counted
// only; the store stays the source of truth.
func (r *Runner) publish(ctx context.Context, changes []storage.Change) {
	for _, sink := range r.sinks {
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		start := time.Now()
		err := sink.Publish(pctx, changes)
		cancel()

		observability.RecordSinkPublish(sink.Name(), time.Since(start).Seconds(), err)
		if err != nil {
			r.stats.SinkErrors++
			r.logger.WithError(err).WithField("sink", sink.Name()).Warn("Snapshot publish failed")
		}
	}
}

func failureReason(err error) string {
	var missing *aggregation.MissingParentError
	switch {
	case errors.As(err, &missing):
		return "missing_" + missing.Entity
	case errors.Is(err, aggregation.ErrUnknownEventKind):
		return "unknown_kind"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "storage"
}

func (r *Runner) statsFields() logrus.Fields {
	return logrus.Fields{
		"messages":    r.stats.Messages,
		"events":      r.stats.Events,
		"entities":    r.stats.Entities,
		"skipped":     r.stats.Skipped,
		"duplicates":  r.stats.Duplicates,
		"late_events": r.stats.LateEvents,
		"sink_errors": r.stats.SinkErrors,
	}
}
