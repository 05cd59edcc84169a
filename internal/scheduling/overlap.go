// Package scheduling implements the booking conflict resolver: the decision
// of whether a proposed class booking may be committed given existing
// bookings, and the workflow that records accepted bookings and keeps the
// per-person schedule indexes consistent with the canonical booking records.
package scheduling

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share at least one instant.  Touching endpoints (one
// interval ending exactly when the other starts) do not overlap, so a
// class from 09:00 to 10:00 never conflicts with one from 10:00 to 11:00
// in the same room.  This predicate is the load-bearing correctness
// property of the whole system: getting it wrong silently double-books
// rooms.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
