package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/unitimehq/unitime/internal/model"
)

// RoomRepo provides persistence for the room catalog.  Rooms participate
// in conflict detection by name only; they own no bookings.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomColumns = `id, name, capacity, location, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*model.Room, error) {
	var rm model.Room
	if err := row.Scan(&rm.ID, &rm.Name, &rm.Capacity, &rm.Location, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	return &rm, nil
}

// Create inserts a new room.  A duplicate name maps the unique-key
// violation to ErrDuplicateRoom.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	const q = `INSERT INTO rooms (id, name, capacity, location, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, rm.ID, rm.Name, rm.Capacity, rm.Location, rm.CreatedAt, rm.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateRoom
		}
		return err
	}
	return nil
}

// GetByName retrieves a room by its unique name.  It returns
// ErrRoomNotFound when no row matches.
func (r *RoomRepo) GetByName(ctx context.Context, name string) (*model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE name = ? LIMIT 1`
	rm, err := scanRoom(r.db.QueryRowContext(ctx, q, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

// List returns all rooms ordered by name.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListAvailable returns rooms with no non-cancelled booking overlapping
// [start, end), ordered by name.  The subquery mirrors the overlap
// predicate used by the booking repo.
func (r *RoomRepo) ListAvailable(ctx context.Context, start, end time.Time) ([]model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms
	           WHERE name NOT IN (
	               SELECT room FROM bookings
	               WHERE status <> 'cancelled' AND NOT (ends_at <= ? OR starts_at >= ?)
	           )
	           ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
