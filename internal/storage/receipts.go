package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/paper-trail/internal/model"
)

// SaveReceipt inserts a receipt, reporting whether a new row was written.
// Re-syncing the same mailbox produces identical content hashes, and those
// duplicates are silently ignored.
func (s *SQLiteStorage) SaveReceipt(ctx context.Context, receipt *model.Receipt) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateReceipt(receipt); err != nil {
		return false, err
	}

	lineItems := ""
	if len(receipt.Items) > 0 {
		data, err := json.Marshal(receipt.Items)
		if err != nil {
			return false, fmt.Errorf("failed to marshal line items: %w", err)
		}
		lineItems = string(data)
	}

	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO receipts (
			id, account_id, hash, date, merchant, currency, total,
			source, source_id, source_provider, line_items, category, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		receipt.ID,
		receipt.AccountID,
		receipt.Hash,
		receipt.Date,
		receipt.Merchant,
		receipt.Currency,
		receipt.Total,
		string(receipt.Source),
		receipt.SourceID,
		receipt.SourceProvider,
		lineItems,
		receipt.Category,
		receipt.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save receipt %s: %w", receipt.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

// GetReceiptsByAccount returns an account's receipts, newest purchase first.
func (s *SQLiteStorage) GetReceiptsByAccount(ctx context.Context, accountID string) ([]model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, hash, date, merchant, currency, total,
			source, source_id, source_provider, line_items, category, created_at
		FROM receipts
		WHERE account_id = ?
		ORDER BY date DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts for account %s: %w", accountID, err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []model.Receipt
	for rows.Next() {
		var receipt model.Receipt
		var source, lineItems string

		scanErr := rows.Scan(
			&receipt.ID,
			&receipt.AccountID,
			&receipt.Hash,
			&receipt.Date,
			&receipt.Merchant,
			&receipt.Currency,
			&receipt.Total,
			&source,
			&receipt.SourceID,
			&receipt.SourceProvider,
			&lineItems,
			&receipt.Category,
			&receipt.CreatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", scanErr)
		}

		receipt.Source = model.SourceType(source)
		if lineItems != "" {
			if err := json.Unmarshal([]byte(lineItems), &receipt.Items); err != nil {
				return nil, fmt.Errorf("failed to unmarshal line items for receipt %s: %w", receipt.ID, err)
			}
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}
