// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Account operations
	SaveAccount(ctx context.Context, account *model.MailAccount) error
	GetAccount(ctx context.Context, id string) (*model.MailAccount, error)
	GetAccountsByUser(ctx context.Context, userID string) ([]model.MailAccount, error)
	UpdateAccountCredentials(ctx context.Context, id string, creds model.Credentials) error
	UpdateAccountLastSync(ctx context.Context, id string, syncedAt time.Time) error
	DeleteAccount(ctx context.Context, id string) error

	// Sync job operations
	CreateSyncJob(ctx context.Context, job *model.SyncJob) error
	GetSyncJob(ctx context.Context, id string) (*model.SyncJob, error)
	GetAccountSyncJobs(ctx context.Context, accountID string) ([]model.SyncJob, error)
	GetActiveSyncJob(ctx context.Context, accountID string) (*model.SyncJob, error)
	UpdateSyncJobStatus(ctx context.Context, id string, status model.SyncJobStatus, errorMessage string) error
	UpdateSyncJobProgress(ctx context.Context, id string, found, processed, receipts int) error

	// Receipt operations
	SaveReceipt(ctx context.Context, receipt *model.Receipt) (bool, error)
	GetReceiptsByAccount(ctx context.Context, accountID string) ([]model.Receipt, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// SyncSummary shows the results of one completed sync run.
type SyncSummary struct {
	JobID             string
	MessagesFound     int
	MessagesProcessed int
	ReceiptsFound     int
	Duration          time.Duration
}
