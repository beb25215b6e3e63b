package ingestion

import (
	"errors"
	"fmt"

	"dex-daydata/internal/domain"
)

// ErrInvalidOrdering is returned when events are not in block order.
var ErrInvalidOrdering = errors.New("events are not in block timestamp order")

// ValidateEventOrdering checks that timestamps never decrease.
// Equal timestamps are allowed.
func ValidateEventOrdering(events []*domain.Event) error {
	var o orderTracker
	for i, ev := range events {
		if o.observe(ev.Timestamp) {
			return fmt.Errorf("%w: event %d (%s) at %d after %d", ErrInvalidOrdering, i, ev.ID, ev.Timestamp, o.last)
		}
	}
	return nil
}

// orderTracker remembers the newest block timestamp seen and reports
// events that arrive behind it.
type orderTracker struct {
	last int64
	seen bool
}

// observe records ts and reports whether it is older than the newest seen.
func (o *orderTracker) observe(ts int64) (late bool) {
	if o.seen && ts < o.last {
		return true
	}
	o.last = ts
	o.seen = true
	return false
}
