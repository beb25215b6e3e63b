// Package bucket derives fixed-size time bucket identifiers and composite
// record keys.
package bucket

import (
	"strconv"
	"strings"
)

// Supported bucket sizes in seconds.
const (
	Hour int64 = 3600
	Day  int64 = 86400
)

// keySeparator joins key parts, e.g. "0xpair-19675".
const keySeparator = "-"

// Bucket identifies one time window for one entity.
type Bucket struct {
	Index int64  // floor(timestamp / size)
	Start int64  // Index * size, unix seconds
	Key   string // entity parts joined with Index
}

// Index returns floor(ts / size). Timestamps are non-negative unix seconds.
func Index(ts, size int64) int64 {
	return ts / size
}

// Start returns the unix start of the bucket with the given index.
func Start(index, size int64) int64 {
	return index * size
}

// Key joins the entity-scoped prefix parts and the bucket index.
// With no parts the key is the bare index.
func Key(index int64, parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p)
		b.WriteString(keySeparator)
	}
	b.WriteString(strconv.FormatInt(index, 10))
	return b.String()
}

// Derive computes index, start and key for ts in buckets of size.
func Derive(ts, size int64, parts ...string) Bucket {
	idx := Index(ts, size)
	return Bucket{
		Index: idx,
		Start: Start(idx, size),
		Key:   Key(idx, parts...),
	}
}

// DayOf is Derive with the day size.
func DayOf(ts int64, parts ...string) Bucket {
	return Derive(ts, Day, parts...)
}

// HourOf is Derive with the hour size.
func HourOf(ts int64, parts ...string) Bucket {
	return Derive(ts, Hour, parts...)
}
