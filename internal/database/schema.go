package database

import (
	"context"
	"database/sql"
)

// schemaStatements creates the tables the application needs.  Statements
// are idempotent so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL,
		email         VARCHAR(255) NOT NULL,
		full_name     VARCHAR(255) NOT NULL,
		role          VARCHAR(20)  NOT NULL,
		department    VARCHAR(255) NOT NULL DEFAULT '',
		approved      TINYINT(1)   NOT NULL DEFAULT 0,
		password_hash VARCHAR(255) NOT NULL,
		created_at    DATETIME     NOT NULL,
		updated_at    DATETIME     NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email),
		KEY idx_users_role (role, approved)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS rooms (
		id         CHAR(36)     NOT NULL,
		name       VARCHAR(100) NOT NULL,
		capacity   INT          NOT NULL DEFAULT 0,
		location   VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME     NOT NULL,
		updated_at DATETIME     NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_rooms_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id                 CHAR(36)     NOT NULL,
		course_code        VARCHAR(50)  NOT NULL,
		title              VARCHAR(255) NOT NULL,
		room               VARCHAR(100) NOT NULL,
		lecturer_id        CHAR(36)     NOT NULL,
		lecturer_email     VARCHAR(255) NOT NULL,
		class_rep_id       CHAR(36)     NOT NULL,
		starts_at          DATETIME     NOT NULL,
		ends_at            DATETIME     NOT NULL,
		status             VARCHAR(20)  NOT NULL,
		previous_room      VARCHAR(100) NULL,
		previous_starts_at DATETIME     NULL,
		previous_ends_at   DATETIME     NULL,
		status_notes       TEXT         NOT NULL,
		created_at         DATETIME     NOT NULL,
		updated_at         DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_bookings_room_interval (room, starts_at, ends_at),
		KEY idx_bookings_lecturer (lecturer_id),
		KEY idx_bookings_class_rep (class_rep_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS schedule_entries (
		position   BIGINT   NOT NULL AUTO_INCREMENT,
		person_id  CHAR(36) NOT NULL,
		booking_id CHAR(36) NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (position),
		KEY idx_schedule_person (person_id, position)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
