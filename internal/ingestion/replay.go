package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Publisher writes raw messages to the ingestion stream, preserving order.
type Publisher interface {
	Publish(ctx context.Context, values ...[]byte) error
}

// Replayer copies a message log from a Source onto the ingestion stream.
// Messages are decoded and re-encoded first, so the stream carries
// lower-cased addresses and a fixed event id for every event.
type Replayer struct {
	source    Source
	publisher Publisher
	batchSize int
	strict    bool
	logger    logrus.FieldLogger
}

// ReplayerOptions contains configuration for creating a Replayer.
type ReplayerOptions struct {
	Source    Source
	Publisher Publisher
	BatchSize int  // Default: 500
	Strict    bool // fail on invalid or out-of-order messages instead of dropping/warning
	Logger    logrus.FieldLogger
}

// NewReplayer creates a new message log replayer.
func NewReplayer(opts ReplayerOptions) *Replayer {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Replayer{
		source:    opts.Source,
		publisher: opts.Publisher,
		batchSize: batchSize,
		strict:    opts.Strict,
		logger:    logger.WithField("component", "replay"),
	}
}

// ReplayResult contains statistics from a replay operation.
type ReplayResult struct {
	Published  int
	Events     int
	Invalid    int
	LateEvents int
	Duration   time.Duration
}

// Replay reads the source to the end and publishes every valid message.
func (r *Replayer) Replay(ctx context.Context) (*ReplayResult, error) {
	start := time.Now()
	result := &ReplayResult{}
	var order orderTracker
	batch := make([][]byte, 0, r.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.publisher.Publish(ctx, batch...); err != nil {
			return err
		}
		result.Published += len(batch)
		r.logger.WithField("published", result.Published).Debug("Published batch")
		batch = batch[:0]
		return nil
	}

	for {
		d, err := r.source.Fetch(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, err
		}

		msg, err := DecodeMessage(d.Value)
		if err != nil {
			if r.strict {
				return result, fmt.Errorf("line %s: %w", d.Position, err)
			}
			result.Invalid++
			r.logger.WithError(err).WithField("line", d.Position).Warn("Dropping invalid message")
			continue
		}

		if msg.Type == TypeEvent {
			result.Events++
			if order.observe(msg.Event.Timestamp) {
				if r.strict {
					return result, fmt.Errorf("line %s: %w: %d after %d", d.Position, ErrInvalidOrdering, msg.Event.Timestamp, order.last)
				}
				result.LateEvents++
				r.logger.WithField("line", d.Position).Warn("Event out of timestamp order")
			}
		}

		value, err := json.Marshal(msg)
		if err != nil {
			return result, fmt.Errorf("encode line %s: %w", d.Position, err)
		}
		batch = append(batch, value)
		if len(batch) >= r.batchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}

	if err := flush(); err != nil {
		return result, err
	}
	result.Duration = time.Since(start)

	r.logger.WithFields(logrus.Fields{
		"published":   result.Published,
		"events":      result.Events,
		"invalid":     result.Invalid,
		"late_events": result.LateEvents,
		"duration":    result.Duration,
	}).Info("Replay complete")
	return result, nil
}
