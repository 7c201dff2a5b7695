package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/paper-trail/internal/classify"
	"github.com/Veraticus/paper-trail/internal/model"
)

// ExtractionResult is the outcome of processing one message manually.
type ExtractionResult struct {
	Receipt        *model.ExtractedReceipt
	Classification classify.Result
	Saved          bool
}

// ProcessSingleMessage runs the classify/extract/persist pipeline on one
// message outside of a sync job. Unlike the job loop, errors propagate to
// the caller; this is the debugging path.
func (e *Engine) ProcessSingleMessage(ctx context.Context, accountID, messageID string) (*ExtractionResult, error) {
	account, err := e.storage.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	adapter, err := e.registry.ForAccount(account)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve provider: %w", err)
	}

	creds, err := adapter.VerifyTokens(ctx, account.Credentials)
	if err != nil {
		return nil, fmt.Errorf("credential verification failed: %w", err)
	}
	if creds != account.Credentials {
		if err := e.storage.UpdateAccountCredentials(ctx, account.ID, creds); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed credentials: %w", err)
		}
	}

	msg, err := adapter.GetMessage(ctx, creds, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}

	result := &ExtractionResult{
		Classification: e.classifier.Classify(msg),
	}
	if !result.Classification.IsReceipt {
		return result, nil
	}

	receipt, err := e.extractor.Extract(ctx, adapter, creds, msg)
	if err != nil {
		return result, fmt.Errorf("extraction failed: %w", err)
	}
	result.Receipt = receipt
	result.Saved = e.saveReceipt(ctx, accountID, receipt)

	return result, nil
}
