package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

// SaveAccount inserts or updates a mail account. Existing accounts keep
// their creation timestamp.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, account *model.MailAccount) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	credentials, err := json.Marshal(account.Credentials)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mail_accounts (id, user_id, email, provider, credentials, last_sync_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			email = excluded.email,
			provider = excluded.provider,
			credentials = excluded.credentials,
			updated_at = excluded.updated_at
	`,
		account.ID,
		account.UserID,
		account.Email,
		string(account.Provider),
		string(credentials),
		account.LastSyncAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.ID, err)
	}
	return nil
}

// GetAccount returns one account by id.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.MailAccount, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, email, provider, credentials, last_sync_at, created_at, updated_at
		FROM mail_accounts
		WHERE id = ?
	`, id)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return account, nil
}

// GetAccountsByUser returns all accounts linked by one user.
func (s *SQLiteStorage) GetAccountsByUser(ctx context.Context, userID string) ([]model.MailAccount, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, email, provider, credentials, last_sync_at, created_at, updated_at
		FROM mail_accounts
		WHERE user_id = ?
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts for user %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.MailAccount
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan account: %w", scanErr)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// UpdateAccountCredentials replaces an account's credential bundle, used
// after a token refresh.
func (s *SQLiteStorage) UpdateAccountCredentials(ctx context.Context, id string, creds model.Credentials) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	credentials, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE mail_accounts SET credentials = ?, updated_at = ? WHERE id = ?
	`, string(credentials), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update credentials for account %s: %w", id, err)
	}
	return requireRow(result, id)
}

// UpdateAccountLastSync stamps the account's last successful sync time.
func (s *SQLiteStorage) UpdateAccountLastSync(ctx context.Context, id string, syncedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE mail_accounts SET last_sync_at = ?, updated_at = ? WHERE id = ?
	`, syncedAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update last sync for account %s: %w", id, err)
	}
	return requireRow(result, id)
}

// DeleteAccount removes an account. Its sync jobs and receipts cascade.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM mail_accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	return requireRow(result, id)
}

// requireRow converts a zero-row update/delete into ErrNotFound.
func requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", id, common.ErrNotFound)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.MailAccount, error) {
	var account model.MailAccount
	var provider, credentials string
	var lastSync sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Email,
		&provider,
		&credentials,
		&lastSync,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Provider = model.ProviderType(provider)
	if lastSync.Valid {
		account.LastSyncAt = &lastSync.Time
	}
	if err := json.Unmarshal([]byte(credentials), &account.Credentials); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &account, nil
}
