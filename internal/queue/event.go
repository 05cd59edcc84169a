// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// BookingEvent is published whenever a booking is scheduled, rescheduled or
// cancelled.  It contains enough information for downstream consumers to
// log or trigger notifications without querying the primary database.
type BookingEvent struct {
    Kind          string `json:"kind"` // scheduled | rescheduled | cancelled
    BookingID     string `json:"booking_id"`
    CourseCode    string `json:"course_code"`
    Title         string `json:"title"`
    Room          string `json:"room"`
    PreviousRoom  string `json:"previous_room,omitempty"`
    LecturerID    string `json:"lecturer_id"`
    LecturerEmail string `json:"lecturer_email"`
    ClassRepID    string `json:"class_rep_id"`
    StartsAt      string `json:"starts_at"`
    EndsAt        string `json:"ends_at"`
    Status        string `json:"status"`
    OccurredAt    string `json:"occurred_at"`
}
