package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// schema is applied on every start.  Statements are executed one at a
// time because the DSN does not enable multiStatements.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		name          VARCHAR(255) NOT NULL DEFAULT '',
		role          ENUM('USER','ADMIN') NOT NULL DEFAULT 'USER',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		type        VARCHAR(100) NOT NULL,
		price       DECIMAL(10,2) NOT NULL,
		description TEXT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS hotels (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		description TEXT NULL,
		image_url   VARCHAR(500) NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS room_types (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		hotel_id        BIGINT UNSIGNED NOT NULL,
		name            VARCHAR(255) NOT NULL,
		description     TEXT NULL,
		price_per_night DECIMAL(10,2) NOT NULL,
		total_rooms     INT NOT NULL,
		CONSTRAINT fk_room_type_hotel FOREIGN KEY (hotel_id) REFERENCES hotels(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                 BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id            BIGINT UNSIGNED NOT NULL,
		booking_type       ENUM('ticket','hotel') NOT NULL,
		ticket_id          BIGINT UNSIGNED NULL,
		room_type_id       BIGINT UNSIGNED NULL,
		check_in           DATE NULL,
		check_out          DATE NULL,
		quantity           INT NOT NULL DEFAULT 1,
		status             ENUM('pending','confirmed','cancelled','completed') NOT NULL DEFAULT 'pending',
		total_price        DECIMAL(10,2) NOT NULL,
		payment_session_id VARCHAR(255) NULL,
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_booking_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_booking_ticket FOREIGN KEY (ticket_id) REFERENCES tickets(id),
		CONSTRAINT fk_booking_room_type FOREIGN KEY (room_type_id) REFERENCES room_types(id),
		INDEX idx_booking_occupancy (room_type_id, status, check_in, check_out),
		INDEX idx_booking_session (payment_session_id),
		INDEX idx_booking_user (user_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		name        VARCHAR(100) PRIMARY KEY,
		executed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

const seedMigration = "seed_catalog"

// seed fills an empty catalog once; the run is recorded in
// schema_migrations so admin edits are never overwritten.
var seed = []string{
	`INSERT INTO tickets (type, price, description) VALUES
		('Adult', 25.00, 'Admission for visitors aged 16 and over'),
		('Child', 15.00, 'Admission for visitors aged 3 to 15'),
		('Senior', 18.00, 'Admission for visitors aged 65 and over'),
		('Family', 70.00, 'Two adults and up to three children')`,
	`INSERT INTO hotels (name, description, image_url) VALUES
		('Safari Lodge', 'Lodge overlooking the savannah enclosure', NULL)`,
	`INSERT INTO room_types (hotel_id, name, description, price_per_night, total_rooms)
		SELECT id, 'Standard Room', 'Double bed, garden view', 120.00, 10 FROM hotels WHERE name = 'Safari Lodge'`,
	`INSERT INTO room_types (hotel_id, name, description, price_per_night, total_rooms)
		SELECT id, 'Family Suite', 'Sleeps four, enclosure view', 220.00, 4 FROM hotels WHERE name = 'Safari Lodge'`,
}

// Migrate applies the schema and, on first start, the catalog seed.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	var done int
	if err := db.GetContext(ctx, &done, `SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, seedMigration); err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	if done > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range seed {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, seedMigration); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	logrus.WithField("migration", seedMigration).Info("catalog seeded")
	return nil
}
