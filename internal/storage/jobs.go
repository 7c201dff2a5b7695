package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

// CreateSyncJob inserts a new sync job row.
func (s *SQLiteStorage) CreateSyncJob(ctx context.Context, job *model.SyncJob) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSyncJob(job); err != nil {
		return err
	}

	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_jobs (
			id, account_id, status, error_message,
			messages_found, messages_processed, receipts_found,
			started_at, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		job.AccountID,
		string(job.Status),
		job.ErrorMessage,
		job.MessagesFound,
		job.MessagesProcessed,
		job.ReceiptsFound,
		job.StartedAt,
		job.CompletedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync job %s: %w", job.ID, err)
	}
	return nil
}

// GetSyncJob returns one job by id.
func (s *SQLiteStorage) GetSyncJob(ctx context.Context, id string) (*model.SyncJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, status, error_message,
			messages_found, messages_processed, receipts_found,
			started_at, completed_at, created_at, updated_at
		FROM sync_jobs
		WHERE id = ?
	`, id)

	job, err := scanSyncJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync job %s: %w", id, err)
	}
	return job, nil
}

// GetAccountSyncJobs returns an account's job history, newest first.
func (s *SQLiteStorage) GetAccountSyncJobs(ctx context.Context, accountID string) ([]model.SyncJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, status, error_message,
			messages_found, messages_processed, receipts_found,
			started_at, completed_at, created_at, updated_at
		FROM sync_jobs
		WHERE account_id = ?
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync jobs for account %s: %w", accountID, err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.SyncJob
	for rows.Next() {
		job, scanErr := scanSyncJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan sync job: %w", scanErr)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// GetActiveSyncJob returns the account's pending or processing job, or nil
// when the account is idle.
func (s *SQLiteStorage) GetActiveSyncJob(ctx context.Context, accountID string) (*model.SyncJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, status, error_message,
			messages_found, messages_processed, receipts_found,
			started_at, completed_at, created_at, updated_at
		FROM sync_jobs
		WHERE account_id = ? AND status IN (?, ?)
		ORDER BY created_at DESC
		LIMIT 1
	`, accountID, string(model.SyncStatusPending), string(model.SyncStatusProcessing))

	job, err := scanSyncJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active sync job for account %s: %w", accountID, err)
	}
	return job, nil
}

// UpdateSyncJobStatus transitions a job. Entering processing stamps the
// start time; terminal states stamp the completion time.
func (s *SQLiteStorage) UpdateSyncJobStatus(ctx context.Context, id string, status model.SyncJobStatus, errorMessage string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	now := time.Now()
	query := `UPDATE sync_jobs SET status = ?, error_message = ?, updated_at = ?`
	args := []any{string(status), errorMessage, now}

	if status == model.SyncStatusProcessing {
		query += `, started_at = COALESCE(started_at, ?)`
		args = append(args, now)
	}
	if status.Terminal() {
		query += `, completed_at = ?`
		args = append(args, now)
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update sync job %s status: %w", id, err)
	}
	return requireRow(result, id)
}

// UpdateSyncJobProgress flushes a job's counters.
func (s *SQLiteStorage) UpdateSyncJobProgress(ctx context.Context, id string, found, processed, receipts int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if processed > found {
		return fmt.Errorf("%w: processed %d exceeds found %d", ErrInvalidJob, processed, found)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sync_jobs
		SET messages_found = ?, messages_processed = ?, receipts_found = ?, updated_at = ?
		WHERE id = ?
	`, found, processed, receipts, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update sync job %s progress: %w", id, err)
	}
	return requireRow(result, id)
}

func scanSyncJob(row rowScanner) (*model.SyncJob, error) {
	var job model.SyncJob
	var status string
	var started, completed sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.AccountID,
		&status,
		&job.ErrorMessage,
		&job.MessagesFound,
		&job.MessagesProcessed,
		&job.ReceiptsFound,
		&started,
		&completed,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = model.SyncJobStatus(status)
	if started.Valid {
		job.StartedAt = &started.Time
	}
	if completed.Valid {
		job.CompletedAt = &completed.Time
	}
	return &job, nil
}
