package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables the service needs.  Statements are idempotent
// so EnsureSchema can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role ENUM('GUEST','ADMIN') NOT NULL DEFAULT 'GUEST',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		number VARCHAR(32) NOT NULL UNIQUE,
		capacity INT NOT NULL,
		base_rate_cents BIGINT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_id BIGINT UNSIGNED NOT NULL,
		owner_id BIGINT UNSIGNED NOT NULL,
		guest_name VARCHAR(255) NOT NULL,
		guest_email VARCHAR(255) NOT NULL,
		guest_phone VARCHAR(64) NOT NULL DEFAULT '',
		guests INT NOT NULL,
		arrival_time CHAR(5) NOT NULL DEFAULT '',
		departure_time CHAR(5) NOT NULL DEFAULT '',
		check_in DATE NOT NULL,
		check_out DATE NOT NULL,
		food_plan ENUM('NONE','BREAKFAST','FULL_BOARD') NOT NULL DEFAULT 'NONE',
		gym TINYINT(1) NOT NULL DEFAULT 0,
		pool TINYINT(1) NOT NULL DEFAULT 0,
		total_price_cents BIGINT NOT NULL,
		status ENUM('CONFIRMED','PAID','CANCELLED') NOT NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		INDEX idx_room_status (room_id, status),
		INDEX idx_owner (owner_id),
		CONSTRAINT fk_reservations_room FOREIGN KEY (room_id) REFERENCES rooms(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		event_id CHAR(36) NOT NULL UNIQUE,
		event_type VARCHAR(64) NOT NULL,
		aggregate_id BIGINT UNSIGNED NOT NULL,
		payload JSON NOT NULL,
		status ENUM('PENDING','SENT') NOT NULL DEFAULT 'PENDING',
		created_at DATETIME(3) NOT NULL,
		sent_at DATETIME(3) NULL,
		INDEX idx_outbox_status (status, id)
	) ENGINE=InnoDB`,
}

// EnsureSchema applies every CREATE TABLE IF NOT EXISTS statement.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
