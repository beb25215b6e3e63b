package ingestion

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// Source yields raw ingestion messages one at a time.
// Fetch returns io.EOF once a finite source is exhausted.
type Source interface {
	// Fetch blocks until the next message is available.
	Fetch(ctx context.Context) (*Delivery, error)

	// Commit acknowledges d and every delivery fetched before it.
	Commit(ctx context.Context, d *Delivery) error

	Close() error
}

// Delivery is one fetched message.
type Delivery struct {
	Value    []byte
	Position string // human readable offset for logs

	msg kafka.Message // set by KafkaSource only
}

// NewDelivery wraps a raw value for sources that track position themselves.
func NewDelivery(value []byte, position int64) *Delivery {
	return &Delivery{Value: value, Position: strconv.FormatInt(position, 10)}
}
