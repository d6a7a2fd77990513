// Package availability decides whether a property is free for a requested timeslot.
//
// The storage layer narrows candidates with an indexed query; Resolve re-applies the exact
// rules in memory so the read path and the transactional write path share one definition.
package availability

import (
	"chalet/internal/domains/booking/interval"
	"chalet/internal/domains/booking/lifecycle"
	"time"
)

// Occupant is an existing booking as seen by the resolver.
type Occupant struct {
	BookingID int64
	Status    lifecycle.Status
	Interval  interval.Interval
}

// Result carries the verdict and the bookings that caused a refusal.
type Result struct {
	Available   bool
	ConflictIDs []int64
}

// Resolve reports whether [start, end) is free given the occupants of one property.
// A request with start >= end is never available. excludeID skips the booking being edited.
func Resolve(start, end time.Time, occupants []Occupant, excludeID *int64) Result {
	candidate, err := interval.NewTimeslot(start, end)
	if err != nil {
		return Result{}
	}

	res := Result{Available: true}

	for _, occupant := range occupants {
		if !occupant.Status.IsActive() || occupant.Interval.IsZero() {
			continue
		}

		if excludeID != nil && occupant.BookingID == *excludeID {
			continue
		}

		if occupant.Interval.ConflictsWith(candidate) {
			res.Available = false
			res.ConflictIDs = append(res.ConflictIDs, occupant.BookingID)
		}
	}

	return res
}

// IsAvailable is Resolve without the conflict details.
func IsAvailable(start, end time.Time, occupants []Occupant, excludeID *int64) bool {
	return Resolve(start, end, occupants, excludeID).Available
}

// LegacyDates are the calendar dates whose legacy bookings may block [start, end).
func LegacyDates(start, end time.Time, loc *time.Location) []string {
	first := start.In(loc).Format(time.DateOnly)
	last := end.In(loc).Format(time.DateOnly)

	if first == last {
		return []string{first}
	}

	return []string{first, last}
}
