// This file defines the BookingRepo, which persists class bookings and
// keeps the schedule_entries index in step with them.  A booking row is
// the single source of truth; schedule_entries rows are a derived
// projection maintained in the same transaction as the booking write.
// All timestamp columns are stored in UTC (parseTime=true on the DSN).
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/unitimehq/unitime/internal/model"
)

// BookingRepo provides persistence for class bookings.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

const bookingColumns = `id, course_code, title, room, lecturer_id, lecturer_email, class_rep_id,
	starts_at, ends_at, status, previous_room, previous_starts_at, previous_ends_at,
	status_notes, created_at, updated_at`

// scanBooking reads one booking row.  The previous-slot columns are
// nullable: they are only populated after the first reschedule.
func scanBooking(row interface{ Scan(...any) error }) (*model.ClassBooking, error) {
	var (
		b         model.ClassBooking
		status    string
		prevRoom  sql.NullString
		prevStart sql.NullTime
		prevEnd   sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.CourseCode, &b.Title, &b.Room, &b.LecturerID, &b.LecturerEmail, &b.ClassRepID,
		&b.Start, &b.End, &status, &prevRoom, &prevStart, &prevEnd,
		&b.StatusNotes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	if prevRoom.Valid {
		room := prevRoom.String
		b.PreviousRoom = &room
	}
	if prevStart.Valid {
		t := prevStart.Time
		b.PreviousStart = &t
	}
	if prevEnd.Valid {
		t := prevEnd.Time
		b.PreviousEnd = &t
	}
	return &b, nil
}

// GetByID retrieves a booking by its ID.  It returns ErrBookingNotFound
// when there is no matching row.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.ClassBooking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// FindOverlapping finds all non-cancelled bookings in the specified room
// whose interval overlaps [start, end).  A booking overlaps when it starts
// before the proposed end and ends after the proposed start; touching
// endpoints do not overlap.  When excludeID is non-empty that booking is
// left out of the comparison set, which lets a reschedule overlap the
// booking's own previous slot.  Results are ordered by start time.
func (r *BookingRepo) FindOverlapping(ctx context.Context, room string, start, end time.Time, excludeID string) ([]model.ClassBooking, error) {
	// NOT (ends_at <= new start OR starts_at >= new end) is the half-open
	// overlap predicate; equality on either boundary is not a conflict.
	q := `SELECT ` + bookingColumns + `
	      FROM bookings
	      WHERE room = ? AND status <> 'cancelled' AND NOT (ends_at <= ? OR starts_at >= ?)`
	args := []any{room, start, end}
	if excludeID != "" {
		q += ` AND id <> ?`
		args = append(args, excludeID)
	}
	q += ` ORDER BY starts_at ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overlaps []model.ClassBooking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		overlaps = append(overlaps, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return overlaps, nil
}

// CreateScheduled inserts a new booking and appends a schedule_entries row
// for the lecturer and one for the class representative, all within a
// single transaction.  Before inserting it re-runs the overlap check with
// the room's rows locked, returning ErrRoomConflict when another booking
// committed in the meantime.  No caller can observe the booking without
// both index entries.
func (r *BookingRepo) CreateScheduled(ctx context.Context, b *model.ClassBooking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := checkRoomFreeTx(ctx, tx, b.Room, b.Start, b.End, ""); err != nil {
		return err
	}

	const ins = `INSERT INTO bookings
		(id, course_code, title, room, lecturer_id, lecturer_email, class_rep_id,
		 starts_at, ends_at, status, status_notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins,
		b.ID, b.CourseCode, b.Title, b.Room, b.LecturerID, b.LecturerEmail, b.ClassRepID,
		b.Start, b.End, string(b.Status), b.StatusNotes, b.CreatedAt, b.UpdatedAt,
	); err != nil {
		return err
	}

	const entry = `INSERT INTO schedule_entries (person_id, booking_id, created_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, entry, b.LecturerID, b.ID, b.CreatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, entry, b.ClassRepID, b.ID, b.CreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Reschedule persists a slot move prepared by the resolver: new
// room/start/end, previous-slot history and rescheduled status.  The
// target room's overlap check is re-run inside the transaction, excluding
// the booking itself.  Schedule index membership is untouched.
func (r *BookingRepo) Reschedule(ctx context.Context, b *model.ClassBooking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := checkRoomFreeTx(ctx, tx, b.Room, b.Start, b.End, b.ID); err != nil {
		return err
	}

	const q = `UPDATE bookings
		SET room = ?, starts_at = ?, ends_at = ?,
		    previous_room = ?, previous_starts_at = ?, previous_ends_at = ?,
		    status = ?, updated_at = ?
		WHERE id = ?`
	res, err := tx.ExecContext(ctx, q,
		b.Room, b.Start, b.End,
		b.PreviousRoom, b.PreviousStart, b.PreviousEnd,
		string(b.Status), b.UpdatedAt, b.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish "missing" from "values identical": re-applying the
		// same slot is a valid no-op reschedule.
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ? LIMIT 1`, b.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingNotFound
			}
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetStatus updates a booking's status and status notes.  It returns
// ErrBookingNotFound when the booking does not exist.
func (r *BookingRepo) SetStatus(ctx context.Context, id string, status model.BookingStatus, notes string, at time.Time) error {
	const q = `UPDATE bookings SET status = ?, status_notes = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, string(status), notes, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		return err
	}
	return nil // row exists, values were already identical
}

// ListByRoom returns all bookings for a room ordered by start time,
// cancelled ones included.  It backs the room detail endpoint; conflict
// decisions go through FindOverlapping instead.
func (r *BookingRepo) ListByRoom(ctx context.Context, room string) ([]model.ClassBooking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE room = ? ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.ClassBooking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// checkRoomFreeTx re-runs the overlap predicate inside an open transaction
// with FOR UPDATE, locking the matching rows so that two concurrent
// transactions for the same room serialize here even if the resolver's
// locks were bypassed.  Returns ErrRoomConflict when the room is taken.
func checkRoomFreeTx(ctx context.Context, tx *sql.Tx, room string, start, end time.Time, excludeID string) error {
	q := `SELECT COUNT(*) FROM bookings
	      WHERE room = ? AND status <> 'cancelled' AND NOT (ends_at <= ? OR starts_at >= ?)`
	args := []any{room, start, end}
	if excludeID != "" {
		q += ` AND id <> ?`
		args = append(args, excludeID)
	}
	q += ` FOR UPDATE`
	var count int
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrRoomConflict
	}
	return nil
}
