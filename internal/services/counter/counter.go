// Package counter reads how many loyalty purchases a user made today.
package counter

import (
	"context"
	"fmt"
	"time"

	"kudi/internal/models"
	"kudi/internal/repositories"
)

// Window is one calendar day [Start, End) in the operator's timezone.
type Window struct {
	Start time.Time
	End   time.Time
}

// DayWindow returns the calendar day containing t in loc. AddDate keeps the
// end correct on days with a DST shift.
func DayWindow(t time.Time, loc *time.Location) Window {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

type Reader struct {
	loc *time.Location
	now func() time.Time
}

// NewReader counts days in loc; nil means UTC.
func NewReader(loc *time.Location) *Reader {
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{loc: loc, now: time.Now}
}

func (r *Reader) WithClock(now func() time.Time) *Reader {
	r.now = now
	return r
}

// Today computes the current window. It is evaluated per request and never
// cached.
func (r *Reader) Today() Window {
	return DayWindow(r.now(), r.loc)
}

// CountToday counts pending and completed purchases of service made by userID
// in today's window. Pass the store transaction when the count must see
// uncommitted writes of the same flow.
func (r *Reader) CountToday(ctx context.Context, store repositories.Store, userID string, service models.Service) (int, error) {
	w := r.Today()
	n, err := store.Transactions().CountByService(ctx, userID, service, w.Start, w.End)
	if err != nil {
		return 0, fmt.Errorf("failed to count today's %s purchases: %w", service, err)
	}
	return int(n), nil
}

// CountThrough counts purchases of service made by userID on the day of at,
// up to and including at. Replaying a purchase later still sees the count it
// had when it was made.
func (r *Reader) CountThrough(ctx context.Context, store repositories.Store, userID string, service models.Service, at time.Time) (int, error) {
	w := DayWindow(at, r.loc)
	n, err := store.Transactions().CountByService(ctx, userID, service, w.Start, at.Add(time.Nanosecond))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s purchases through %s: %w", service, at.Format(time.RFC3339), err)
	}
	return int(n), nil
}
