package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaOptions configures KafkaSource and KafkaPublisher.
type KafkaOptions struct {
	Brokers []string
	Topic   string
	GroupID string // consumer group, source only
}

// KafkaSource consumes messages from a Kafka topic within a consumer group.
// Offsets are committed explicitly after a message has been handled.
type KafkaSource struct {
	reader *kafka.Reader
}

// NewKafkaSource creates a consumer group reader starting at the earliest
// uncommitted offset.
func NewKafkaSource(opts KafkaOptions) (*KafkaSource, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers")
	}
	if opts.Topic == "" || opts.GroupID == "" {
		return nil, errors.New("kafka: topic and group id are required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        opts.Brokers,
		Topic:          opts.Topic,
		GroupID:        opts.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0, // synchronous commits
		StartOffset:    kafka.FirstOffset,
	})
	return &KafkaSource{reader: reader}, nil
}

// Fetch reads the next message without committing it.
func (s *KafkaSource) Fetch(ctx context.Context) (*Delivery, error) {
	msg, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("kafka fetch: %w", err)
	}
	return &Delivery{
		Value:    msg.Value,
		Position: fmt.Sprintf("%s/%d@%d", msg.Topic, msg.Partition, msg.Offset),
		msg:      msg,
	}, nil
}

// Commit commits the offset of d.
func (s *KafkaSource) Commit(ctx context.Context, d *Delivery) error {
	if err := s.reader.CommitMessages(ctx, d.msg); err != nil {
		return fmt.Errorf("kafka commit %s: %w", d.Position, err)
	}
	return nil
}

// Close closes the reader.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

// KafkaPublisher writes raw messages to a topic. All messages share one
// key so they land on a single partition and keep their order.
type KafkaPublisher struct {
	writer *kafka.Writer
	key    []byte
}

// PartitionKey is the message key used for every published message.
const PartitionKey = "dex"

// NewKafkaPublisher creates a synchronous writer for opts.Topic.
func NewKafkaPublisher(opts KafkaOptions) (*KafkaPublisher, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers")
	}
	if opts.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Topic:                  opts.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, key: []byte(PartitionKey)}, nil
}

// Publish writes values in order as one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, values ...[]byte) error {
	if len(values) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(values))
	for i, v := range values {
		msgs[i] = kafka.Message{Key: p.key, Value: v}
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
