// This file defines the ScheduleRepo over the schedule_entries table: the
// per-person schedule index.  The index is derived state.  Membership is
// decided by the booking records themselves, so the repo can always
// reproduce a person's index from a full booking scan; on any suspected
// inconsistency Rebuild restores it exactly.
package repository

import (
	"context"
	"database/sql"

	"github.com/unitimehq/unitime/internal/model"
)

// ScheduleRepo provides read and rebuild access to schedule indexes.
// Appending entries happens inside BookingRepo.CreateScheduled so that the
// booking write and both index appends commit as one transaction.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo constructs a ScheduleRepo with the given DB handle.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// Entries returns a person's schedule index in append order.
func (r *ScheduleRepo) Entries(ctx context.Context, personID string) ([]model.ScheduleEntry, error) {
	const q = `SELECT position, person_id, booking_id, created_at
	           FROM schedule_entries WHERE person_id = ? ORDER BY position ASC`
	rows, err := r.db.QueryContext(ctx, q, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.ScheduleEntry
	for rows.Next() {
		var e model.ScheduleEntry
		if err := rows.Scan(&e.Position, &e.PersonID, &e.BookingID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// BookingsForPerson joins a person's index to the booking records and
// returns the bookings in index order.  Cancelled bookings are included
// ("ever associated with"); callers filter by status when presenting a
// current schedule.  The optional from/until bounds restrict by start
// time and may be zero to disable.
func (r *ScheduleRepo) BookingsForPerson(ctx context.Context, personID string, from, until sql.NullTime) ([]model.ClassBooking, error) {
	q := `SELECT b.id, b.course_code, b.title, b.room, b.lecturer_id, b.lecturer_email, b.class_rep_id,
	             b.starts_at, b.ends_at, b.status, b.previous_room, b.previous_starts_at, b.previous_ends_at,
	             b.status_notes, b.created_at, b.updated_at
	      FROM schedule_entries se
	      JOIN bookings b ON b.id = se.booking_id
	      WHERE se.person_id = ?`
	args := []any{personID}
	if from.Valid {
		q += ` AND b.starts_at >= ?`
		args = append(args, from.Time)
	}
	if until.Valid {
		q += ` AND b.starts_at < ?`
		args = append(args, until.Time)
	}
	q += ` ORDER BY se.position ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
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

// Rebuild drops and reproduces a person's schedule index from a full scan
// of the booking collection, inside one transaction.  The projection is
// idempotent: running it against a consistent index leaves the same set
// of entries.  It returns the number of entries written.
func (r *ScheduleRepo) Rebuild(ctx context.Context, personID string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_entries WHERE person_id = ?`, personID); err != nil {
		return 0, err
	}

	// Re-derive membership from the source of truth, preserving creation
	// order so rebuilt indexes match the original append order.
	const q = `INSERT INTO schedule_entries (person_id, booking_id, created_at)
	           SELECT ?, id, created_at FROM bookings
	           WHERE lecturer_id = ? OR class_rep_id = ?
	           ORDER BY created_at ASC, id ASC`
	res, err := tx.ExecContext(ctx, q, personID, personID, personID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return int(n), nil
}
