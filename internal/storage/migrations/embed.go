// Package migrations embeds and applies the schema for the Postgres
// aggregate store and the ClickHouse snapshot history.
package migrations

import "embed"

// PostgresFS holds entity and day data tables.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the aggregate_snapshots table.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
