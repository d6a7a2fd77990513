// Package interval models the time a booking occupies.
//
// A booking is stored either as a precise [start, end) timeslot or, for rows that predate
// timeslots, as a single calendar date that blocks the whole day. Interval wraps both shapes
// behind one value so callers never branch on nullable columns.
package interval

import (
	"chalet/shared/failure"
	"time"
)

type kind int

const (
	kindTimeslot kind = iota + 1
	kindLegacyDay
)

var (
	ErrZeroInstant = failure.Validation("start", "start and end must be set")
	ErrEmptyRange  = failure.Validation("end", "end must be after start")
)

type Interval struct {
	kind  kind
	start time.Time
	end   time.Time
	date  civilDate
	loc   *time.Location
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()

	return civilDate{year: y, month: m, day: d}
}

// NewTimeslot builds a precise half-open interval. Both instants must carry their zone.
func NewTimeslot(start, end time.Time) (Interval, error) {
	if start.IsZero() || end.IsZero() {
		return Interval{}, ErrZeroInstant
	}

	if !end.After(start) {
		return Interval{}, ErrEmptyRange
	}

	return Interval{kind: kindTimeslot, start: start, end: end}, nil
}

// NewLegacyDay builds a whole-day interval. Only the calendar fields of date are used,
// so a DATE column scanned at UTC midnight keeps its day in any loc.
func NewLegacyDay(date time.Time, loc *time.Location) Interval {
	if loc == nil {
		loc = time.UTC
	}

	return Interval{kind: kindLegacyDay, date: dateOf(date), loc: loc}
}

// FromColumns picks the representation a stored booking row carries.
func FromColumns(bookingDate time.Time, start, end *time.Time, loc *time.Location) (Interval, error) {
	if start != nil && end != nil {
		return NewTimeslot(*start, *end)
	}

	return NewLegacyDay(bookingDate, loc), nil
}

func (i Interval) IsLegacy() bool {
	return i.kind == kindLegacyDay
}

func (i Interval) IsZero() bool {
	return i.kind == 0
}

// Range returns the normalized half-open range. A legacy day spans local midnight to the
// next local midnight, which is not always 24h across a DST change.
func (i Interval) Range() (start, end time.Time) {
	if i.kind == kindLegacyDay {
		start = time.Date(i.date.year, i.date.month, i.date.day, 0, 0, 0, 0, i.loc)

		return start, start.AddDate(0, 0, 1)
	}

	return i.start, i.end
}

func (i Interval) Duration() time.Duration {
	start, end := i.Range()

	return end.Sub(start)
}

// Date returns the calendar date the interval starts on, at midnight in loc.
func (i Interval) Date(loc *time.Location) time.Time {
	if i.kind == kindLegacyDay {
		start, _ := i.Range()

		return start
	}

	local := i.start.In(loc)

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Overlaps is the half-open overlap test on normalized ranges. Touching ranges do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	aStart, aEnd := i.Range()
	bStart, bEnd := other.Range()

	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// ConflictsWith decides whether this existing interval blocks candidate.
//
// Timeslots use the half-open overlap test. A legacy day keeps its date-granularity rule:
// it blocks any candidate whose start or end falls on that calendar date in the legacy
// interval's zone, even a candidate ending exactly at midnight of that date.
func (i Interval) ConflictsWith(candidate Interval) bool {
	if i.kind != kindLegacyDay || candidate.kind != kindTimeslot {
		return i.Overlaps(candidate)
	}

	return dateOf(candidate.start.In(i.loc)) == i.date || dateOf(candidate.end.In(i.loc)) == i.date
}
