package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidAccount = errors.New("invalid account")
	ErrInvalidJob     = errors.New("invalid sync job")
	ErrInvalidReceipt = errors.New("invalid receipt")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateAccount validates a mail account before persistence.
func validateAccount(account *model.MailAccount) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if account.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidAccount)
	}
	if account.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidAccount)
	}
	if account.Provider == "" {
		return fmt.Errorf("%w: missing provider", ErrInvalidAccount)
	}
	return nil
}

// validateSyncJob validates a sync job before persistence.
func validateSyncJob(job *model.SyncJob) error {
	if job == nil {
		return fmt.Errorf("%w: job", ErrNilParameter)
	}
	if job.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidJob)
	}
	if job.AccountID == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidJob)
	}
	switch job.Status {
	case model.SyncStatusPending, model.SyncStatusProcessing, model.SyncStatusCompleted, model.SyncStatusFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, job.Status)
	}
	if job.MessagesProcessed > job.MessagesFound {
		return fmt.Errorf("%w: processed %d exceeds found %d", ErrInvalidJob, job.MessagesProcessed, job.MessagesFound)
	}
	return nil
}

// validateReceipt validates a receipt before persistence. Every persisted
// receipt carries a currency code and a non-negative total.
func validateReceipt(receipt *model.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("%w: receipt", ErrNilParameter)
	}
	if receipt.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidReceipt)
	}
	if receipt.AccountID == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidReceipt)
	}
	if len(receipt.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code, got %q", ErrInvalidReceipt, receipt.Currency)
	}
	if receipt.Total < 0 {
		return fmt.Errorf("%w: negative total", ErrInvalidReceipt)
	}
	if receipt.Hash == "" {
		return fmt.Errorf("%w: missing hash", ErrInvalidReceipt)
	}
	return nil
}
