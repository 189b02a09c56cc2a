// Package database provides database access for the gateway emulator
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate creates all required tables
func (db *DB) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS payments (
		payment_id VARCHAR(64) PRIMARY KEY,
		transaction_id VARCHAR(64) UNIQUE NOT NULL,
		order_id VARCHAR(250) NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		currency VARCHAR(3) NOT NULL,
		description TEXT NOT NULL,
		redirect_url TEXT NOT NULL,
		webhook_url TEXT,
		email VARCHAR(80),
		country VARCHAR(2),
		transaction_type VARCHAR(32) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'prepared',
		rrn VARCHAR(32),
		rc VARCHAR(8),
		approval VARCHAR(32),
		card_mask VARCHAR(32),
		details TEXT,
		custom_data JSONB,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);
	CREATE INDEX IF NOT EXISTS idx_payments_order ON payments(order_id);
	CREATE INDEX IF NOT EXISTS idx_payments_created ON payments(created_at);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Reset drops all tables (for testing)
func (db *DB) Reset(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS payments CASCADE;`)
	return err
}

// CleanData truncates all tables without dropping them (for testing)
func (db *DB) CleanData(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `TRUNCATE TABLE payments;`)
	return err
}
