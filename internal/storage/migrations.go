package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Accounts and sync jobs",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS mail_accounts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					email TEXT NOT NULL,
					provider TEXT NOT NULL,
					credentials TEXT NOT NULL,
					last_sync_at DATETIME,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					UNIQUE(user_id, provider, email)
				)`,
				`CREATE INDEX idx_mail_accounts_user ON mail_accounts(user_id)`,

				`CREATE TABLE IF NOT EXISTS sync_jobs (
					id TEXT PRIMARY KEY,
					account_id TEXT NOT NULL,
					status TEXT NOT NULL,
					error_message TEXT NOT NULL DEFAULT '',
					messages_found INTEGER NOT NULL DEFAULT 0,
					messages_processed INTEGER NOT NULL DEFAULT 0,
					receipts_found INTEGER NOT NULL DEFAULT 0,
					started_at DATETIME,
					completed_at DATETIME,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					FOREIGN KEY (account_id) REFERENCES mail_accounts(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_sync_jobs_account ON sync_jobs(account_id)`,
				`CREATE INDEX idx_sync_jobs_status ON sync_jobs(status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Receipts with duplicate suppression",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS receipts (
					id TEXT PRIMARY KEY,
					account_id TEXT NOT NULL,
					hash TEXT UNIQUE NOT NULL,
					date DATETIME NOT NULL,
					merchant TEXT NOT NULL,
					currency TEXT NOT NULL,
					total REAL NOT NULL,
					source TEXT NOT NULL,
					source_id TEXT NOT NULL,
					source_provider TEXT NOT NULL,
					line_items TEXT,
					created_at DATETIME NOT NULL,
					FOREIGN KEY (account_id) REFERENCES mail_accounts(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_receipts_account ON receipts(account_id)`,
				`CREATE INDEX idx_receipts_hash ON receipts(hash)`,
				`CREATE INDEX idx_receipts_date ON receipts(date)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Receipt categories",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE receipts ADD COLUMN category TEXT NOT NULL DEFAULT ''`,
				`CREATE INDEX idx_receipts_merchant ON receipts(merchant)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Description, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
