// Package repository contains the data access layer.  Sentinel errors
// defined here let higher layers (the scheduling resolver, HTTP handlers)
// distinguish failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrBookingNotFound is returned when a booking lookup fails.
var ErrBookingNotFound = errors.New("booking not found")

// ErrUserNotFound is returned when a user lookup fails.
var ErrUserNotFound = errors.New("user not found")

// ErrRoomNotFound is returned when a room lookup fails.
var ErrRoomNotFound = errors.New("room not found")

// ErrDuplicateRoom is returned when creating a room whose name is taken.
var ErrDuplicateRoom = errors.New("room name already exists")

// ErrDuplicateUser is returned when creating a user whose email is taken.
var ErrDuplicateUser = errors.New("email already exists")

// ErrRoomConflict is returned by the transactional booking write paths
// when the in-transaction overlap re-check finds a non-cancelled booking
// occupying the room.  It is the last line of defense against a double
// booking slipping past the resolver's locks.
var ErrRoomConflict = errors.New("room already booked")
