package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

// SnapshotSink appends every published aggregate to aggregate_snapshots,
// one row per record per committed event.
type SnapshotSink struct {
	conn *Conn
	now  func() time.Time
}

// NewSnapshotSink creates a new SnapshotSink.
func NewSnapshotSink(conn *Conn) *SnapshotSink {
	return &SnapshotSink{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.SnapshotSink = (*SnapshotSink)(nil)

// Name implements storage.SnapshotSink.
func (s *SnapshotSink) Name() string {
	return "clickhouse"
}

// Publish writes changes in one batch. All rows of a batch share a version.
func (s *SnapshotSink) Publish(ctx context.Context, changes []storage.Change) error {
	if len(changes) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO aggregate_snapshots (
			kind, id, entity, bucket_start, bucket_seconds, created, payload, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := uint64(s.now().UnixNano())
	for _, c := range changes {
		payload, err := json.Marshal(c.Record)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", c.Kind, c.ID, err)
		}

		var created uint8
		if c.Created {
			created = 1
		}

		err = batch.Append(
			string(c.Kind), c.ID, c.Entity(), c.Start, c.Size, created, string(payload), version,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// SnapshotRow is one stored version of an aggregate.
type SnapshotRow struct {
	Kind          domain.AggregateKind
	ID            string
	Entity        string
	BucketStart   int64
	BucketSeconds int64
	Created       bool
	Payload       string // JSON of the record
	Version       uint64
}

// History returns every stored version of one aggregate, oldest first.
func (s *SnapshotSink) History(ctx context.Context, kind domain.AggregateKind, id string) ([]SnapshotRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT kind, id, entity, bucket_start, bucket_seconds, created, payload, version
		FROM aggregate_snapshots
		WHERE kind = ? AND id = ?
		ORDER BY version ASC
	`, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var result []SnapshotRow
	for rows.Next() {
		var (
			r       SnapshotRow
			k       string
			created uint8
		)
		if err := rows.Scan(&k, &r.ID, &r.Entity, &r.BucketStart, &r.BucketSeconds, &created, &r.Payload, &r.Version); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		r.Kind = domain.AggregateKind(k)
		r.Created = created == 1
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}
