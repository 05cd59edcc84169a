package model

import "time"

// BookingStatus enumerates the lifecycle states of a class booking.
// A booking is never hard-deleted by the scheduling workflow; cancelling
// keeps the record (and its schedule index entries) for history.
type BookingStatus string

const (
	// BookingScheduled is the initial status assigned on creation.
	BookingScheduled BookingStatus = "scheduled"
	// BookingCancelled marks a booking that no longer occupies its room.
	BookingCancelled BookingStatus = "cancelled"
	// BookingRescheduled marks a booking that was moved to a new slot.
	BookingRescheduled BookingStatus = "rescheduled"
)

// ClassBooking represents a scheduled class occupying a room for a time
// interval.  It is the single source of truth for schedule membership:
// per-person schedule indexes are derived from these records.
//
// Fields:
//  ID            – opaque identifier assigned on creation (UUID).
//  CourseCode    – course the class belongs to (e.g. "CS101").
//  Title         – human readable class title.
//  Room          – name of the room occupied during [Start, End).
//  LecturerID    – identifier of the assigned lecturer.
//  LecturerEmail – contact address of the lecturer at booking time.
//  ClassRepID    – identifier of the class representative.
//  Start         – instant the class begins (UTC).
//  End           – instant the class ends (UTC, strictly after Start).
//  Status        – scheduled, cancelled or rescheduled.
//  PreviousRoom  – room before the last reschedule (nil if never moved).
//  PreviousStart – start before the last reschedule.
//  PreviousEnd   – end before the last reschedule.
//  StatusNotes   – free-text notes attached to a status override.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type ClassBooking struct {
	ID            string        `json:"id"`
	CourseCode    string        `json:"course_code"`
	Title         string        `json:"title"`
	Room          string        `json:"room"`
	LecturerID    string        `json:"lecturer_id"`
	LecturerEmail string        `json:"lecturer_email"`
	ClassRepID    string        `json:"class_rep_id"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	Status        BookingStatus `json:"status"`
	PreviousRoom  *string       `json:"previous_room,omitempty"`
	PreviousStart *time.Time    `json:"previous_start,omitempty"`
	PreviousEnd   *time.Time    `json:"previous_end,omitempty"`
	StatusNotes   string        `json:"status_notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Valid reports whether s is one of the known booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingScheduled, BookingCancelled, BookingRescheduled:
		return true
	}
	return false
}

// Active reports whether the booking still occupies its room.  Cancelled
// bookings are excluded from all overlap tests.
func (b ClassBooking) Active() bool {
	return b.Status != BookingCancelled
}
