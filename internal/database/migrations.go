package database

import (
	"context"
	"fmt"
)

// Tables lists every table owned by the bot, parents first.
var Tables = []string{"users", "saved_offers", "loan_accounts"}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		username TEXT,
		first_name TEXT,
		last_name TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS saved_offers (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		destination TEXT NOT NULL,
		principal NUMERIC(14, 0) NOT NULL CHECK (principal >= 0),
		emi NUMERIC(14, 0) NOT NULL,
		annual_rate NUMERIC(6, 3) NOT NULL,
		tenure_months INTEGER NOT NULL CHECK (tenure_months BETWEEN 6 AND 60),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		reminded_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_saved_offers_user_id ON saved_offers(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_saved_offers_unreminded ON saved_offers(created_at) WHERE reminded_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS loan_accounts (
		id SERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_number TEXT NOT NULL UNIQUE,
		journey_id TEXT NOT NULL UNIQUE,
		destination TEXT NOT NULL,
		principal NUMERIC(14, 0) NOT NULL,
		tenure_months INTEGER NOT NULL,
		emi NUMERIC(14, 0) NOT NULL,
		annual_rate NUMERIC(6, 3) NOT NULL,
		disbursed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loan_accounts_user_id ON loan_accounts(user_id)`,
}

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
