package model

import "time"

// Room is a physical teaching space.  Bookings reference rooms by Name;
// rooms own nothing beyond participating in the conflict-detection query.
//
// Fields:
//  ID        – opaque identifier (UUID).
//  Name      – unique room name (e.g. "A101"), used as the booking key.
//  Capacity  – number of seats.
//  Location  – building/floor hint for the UI (optional).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
