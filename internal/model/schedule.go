package model

import "time"

// ScheduleEntry links a person (lecturer or class representative) to a
// booking they participate in.  The set of entries for a person forms
// their schedule index: an ordered list of booking identifiers that is
// derived state, rebuildable at any time from a full booking scan.
// Entries are appended when a booking is created and are intentionally
// kept when the booking is cancelled ("ever associated with", not
// "currently active"); callers filter by booking status when presenting
// a current schedule.
//
// Fields:
//  Position  – auto-increment insertion order within the table.
//  PersonID  – user the entry belongs to.
//  BookingID – booking referenced by the entry.
//  CreatedAt – timestamp the entry was appended.
type ScheduleEntry struct {
	Position  uint64    `json:"position"`
	PersonID  string    `json:"person_id"`
	BookingID string    `json:"booking_id"`
	CreatedAt time.Time `json:"created_at"`
}
