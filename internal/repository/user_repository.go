package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/unitimehq/unitime/internal/model"
)

// UserRepo provides persistence for user profiles: the identity directory
// used to resolve lecturers and class representatives, and the approval
// workflow for new accounts.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo constructs a UserRepo with the given DB handle.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, email, full_name, role, department, approved, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.UserProfile, error) {
	var (
		u    model.UserProfile
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &role, &u.Department, &u.Approved, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// Create inserts a new profile.  Email is normalized to lower case.  A
// duplicate email maps MySQL error 1062 to ErrDuplicateUser.
func (r *UserRepo) Create(ctx context.Context, u *model.UserProfile) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	const q = `INSERT INTO users (id, email, full_name, role, department, approved, password_hash, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.Email, u.FullName, string(u.Role), u.Department, u.Approved, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

// ProfileByID fetches a profile by id.  It returns ErrUserNotFound when no
// row matches, which the resolver folds into its unknown-participant
// error.
func (r *UserRepo) ProfileByID(ctx context.Context, id string) (*model.UserProfile, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ListByRole returns all approved profiles with the given role ordered by
// full name.  Dashboards use it to populate lecturer and class-rep
// pickers.
func (r *UserRepo) ListByRole(ctx context.Context, role model.Role) ([]model.UserProfile, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE role = ? AND approved = 1 ORDER BY full_name ASC`
	return r.list(ctx, q, string(role))
}

// ListPendingApproval returns all profiles awaiting admin approval,
// oldest first.
func (r *UserRepo) ListPendingApproval(ctx context.Context) ([]model.UserProfile, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE approved = 0 ORDER BY created_at ASC`
	return r.list(ctx, q)
}

// SetApproved flips the approval flag.  It returns ErrUserNotFound when
// the profile does not exist.
func (r *UserRepo) SetApproved(ctx context.Context, id string, approved bool, at time.Time) error {
	const q = `UPDATE users SET approved = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, approved, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (r *UserRepo) list(ctx context.Context, q string, args ...any) ([]model.UserProfile, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.UserProfile
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
