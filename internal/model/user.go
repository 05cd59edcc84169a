package model

import "time"

// Role identifies what kind of account a UserProfile is.  The source data
// store kept loosely-typed documents with ad-hoc fields per role; here the
// role is an explicit tagged value and code switches on it exhaustively.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleLecturer Role = "lecturer"
	RoleClassRep Role = "class_rep"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLecturer, RoleClassRep:
		return true
	}
	return false
}

// UserProfile represents an application user record as stored in the
// `users` table.  Lecturers must carry a contact email before they can be
// assigned to bookings.  New accounts start unapproved and only become
// usable after an admin approves them.
//
// Fields:
//  ID           – opaque identifier (UUID).
//  Email        – contact/login address; required for lecturers.
//  FullName     – display name.
//  Role         – admin, lecturer or class_rep.
//  Department   – owning department (optional).
//  Approved     – whether an admin has approved the account.
//  PasswordHash – bcrypt hash set when the account is created.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	Department   string    `json:"department,omitempty"`
	Approved     bool      `json:"approved"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
