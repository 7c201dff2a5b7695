// Package engine orchestrates mailbox sync jobs: enumerate candidate
// messages, classify each as receipt-or-not, extract structured data, and
// persist results. Failures are isolated per message; only errors outside
// the message loop fail the whole job.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/paper-trail/internal/classify"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/extract"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/provider"
	"github.com/Veraticus/paper-trail/internal/service"
)

// Engine drives sync jobs for linked mail accounts.
type Engine struct {
	storage    service.Storage
	registry   *provider.Registry
	classifier *classify.Classifier
	extractor  *extract.Extractor
	config     Config

	// startMu serializes the active-job check against job creation so two
	// concurrent StartSync calls cannot both slip past it.
	startMu sync.Mutex
	wg      sync.WaitGroup
}

// Config holds configuration options for the sync engine.
type Config struct {
	// Query overrides the provider's default receipt-biased search query.
	Query string
	// Workers bounds concurrent in-flight messages per job.
	Workers int
	// ProgressInterval is how many processed messages between durable
	// counter flushes.
	ProgressInterval int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:          4,
		ProgressInterval: 5,
	}
}

// New creates a sync engine with the default configuration.
func New(storage service.Storage, registry *provider.Registry, classifier *classify.Classifier, extractor *extract.Extractor) *Engine {
	return NewWithConfig(storage, registry, classifier, extractor, DefaultConfig())
}

// NewWithConfig creates a sync engine with custom configuration.
func NewWithConfig(storage service.Storage, registry *provider.Registry, classifier *classify.Classifier, extractor *extract.Extractor, config Config) *Engine {
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = DefaultConfig().ProgressInterval
	}
	return &Engine{
		storage:    storage,
		registry:   registry,
		classifier: classifier,
		extractor:  extractor,
		config:     config,
	}
}

// StartSync creates a sync job for the account and processes it in the
// background. Control returns to the caller as soon as the job row exists.
// Returns common.ErrSyncActive when the account already has a pending or
// processing job.
func (e *Engine) StartSync(ctx context.Context, accountID string) (*model.SyncJob, error) {
	job, account, err := e.createJob(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// The background run must outlive the triggering request.
	bg := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(bg, job, account)
	}()

	return job, nil
}

// RunSync creates a sync job and processes it synchronously, honoring ctx
// cancellation. Used by the CLI and by anything that wants to block on the
// result instead of polling.
func (e *Engine) RunSync(ctx context.Context, accountID string) (*model.SyncJob, error) {
	job, account, err := e.createJob(ctx, accountID)
	if err != nil {
		return nil, err
	}

	e.run(ctx, job, account)
	return e.storage.GetSyncJob(context.WithoutCancel(ctx), job.ID)
}

// Wait blocks until all background sync runs have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// GetSyncJob returns one job by id.
func (e *Engine) GetSyncJob(ctx context.Context, jobID string) (*model.SyncJob, error) {
	return e.storage.GetSyncJob(ctx, jobID)
}

// GetAccountSyncJobs returns an account's job history, newest first.
func (e *Engine) GetAccountSyncJobs(ctx context.Context, accountID string) ([]model.SyncJob, error) {
	return e.storage.GetAccountSyncJobs(ctx, accountID)
}

// createJob verifies the account has no active job and inserts a pending
// job row.
func (e *Engine) createJob(ctx context.Context, accountID string) (*model.SyncJob, *model.MailAccount, error) {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	account, err := e.storage.GetAccount(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load account: %w", err)
	}

	active, err := e.storage.GetActiveSyncJob(ctx, accountID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to check for active job: %w", err)
	}
	if active != nil {
		return nil, nil, fmt.Errorf("account %s already has job %s in state %s: %w",
			accountID, active.ID, active.Status, common.ErrSyncActive)
	}

	now := time.Now()
	job := &model.SyncJob{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Status:    model.SyncStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.storage.CreateSyncJob(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("failed to create sync job: %w", err)
	}

	slog.Info("Created sync job",
		"job_id", job.ID,
		"account_id", accountID,
		"provider", account.Provider)
	return job, account, nil
}

// run drives one job through the state machine. Errors outside the
// per-message loop mark the job failed; per-message errors are logged and
// skipped.
func (e *Engine) run(ctx context.Context, job *model.SyncJob, account *model.MailAccount) {
	start := time.Now()

	adapter, err := e.registry.ForAccount(account)
	if err != nil {
		e.fail(ctx, job.ID, fmt.Errorf("failed to resolve provider: %w", err))
		return
	}

	if err := e.storage.UpdateSyncJobStatus(ctx, job.ID, model.SyncStatusProcessing, ""); err != nil {
		e.fail(ctx, job.ID, fmt.Errorf("failed to mark job processing: %w", err))
		return
	}

	creds, err := adapter.VerifyTokens(ctx, account.Credentials)
	if err != nil {
		e.fail(ctx, job.ID, fmt.Errorf("credential verification failed: %w", err))
		return
	}
	if creds != account.Credentials {
		if err := e.storage.UpdateAccountCredentials(ctx, account.ID, creds); err != nil {
			e.fail(ctx, job.ID, fmt.Errorf("failed to persist refreshed credentials: %w", err))
			return
		}
		slog.Info("Refreshed account credentials", "account_id", account.ID)
	}

	var messages []model.CandidateMessage
	err = common.WithRetry(ctx, func() error {
		var searchErr error
		messages, searchErr = adapter.SearchEmails(ctx, creds, e.config.Query)
		return searchErr
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Second})
	if err != nil {
		e.fail(ctx, job.ID, fmt.Errorf("message search failed: %w", err))
		return
	}

	progress := &progress{found: len(messages)}
	if err := e.storage.UpdateSyncJobProgress(ctx, job.ID, len(messages), 0, 0); err != nil {
		e.fail(ctx, job.ID, fmt.Errorf("failed to record progress: %w", err))
		return
	}

	slog.Info("Processing candidate messages",
		"job_id", job.ID,
		"account_id", account.ID,
		"found", len(messages),
		"workers", e.config.Workers)

	g := new(errgroup.Group)
	g.SetLimit(e.config.Workers)
	for i := range messages {
		if ctx.Err() != nil {
			break
		}
		messageID := messages[i].ID
		g.Go(func() error {
			e.processMessage(ctx, adapter, creds, account.ID, job.ID, messageID, progress)
			return nil
		})
	}
	_ = g.Wait()

	e.flushProgress(ctx, job.ID, progress)

	if ctx.Err() != nil {
		e.fail(ctx, job.ID, fmt.Errorf("sync interrupted: %w", ctx.Err()))
		return
	}

	if err := e.storage.UpdateSyncJobStatus(ctx, job.ID, model.SyncStatusCompleted, ""); err != nil {
		slog.Error("Failed to mark job completed", "job_id", job.ID, "error", err)
		return
	}
	if err := e.storage.UpdateAccountLastSync(ctx, account.ID, time.Now()); err != nil {
		slog.Warn("Failed to update account last sync", "account_id", account.ID, "error", err)
	}

	found, processed, receipts := progress.snapshot()
	slog.Info("Sync job completed",
		"job_id", job.ID,
		"account_id", account.ID,
		"messages_found", found,
		"messages_processed", processed,
		"receipts_found", receipts,
		"duration", time.Since(start).Round(time.Millisecond))
}

// processMessage handles one candidate message end to end. Any failure is
// logged and swallowed so the rest of the job continues.
func (e *Engine) processMessage(ctx context.Context, adapter provider.Adapter, creds model.Credentials, accountID, jobID, messageID string, p *progress) {
	defer e.recordProcessed(ctx, jobID, p)

	if ctx.Err() != nil {
		return
	}

	msg, err := adapter.GetMessage(ctx, creds, messageID)
	if err != nil {
		slog.Warn("Skipping message: fetch failed",
			"job_id", jobID,
			"message_id", messageID,
			"error", err)
		return
	}

	verdict := e.classifier.Classify(msg)
	if !verdict.IsReceipt {
		slog.Debug("Message is not a receipt",
			"job_id", jobID,
			"message_id", messageID,
			"confidence", verdict.Confidence,
			"reason", verdict.Reason)
		return
	}

	receipt, err := e.extractor.Extract(ctx, adapter, creds, msg)
	if err != nil {
		if errors.Is(err, common.ErrNotExtractable) {
			slog.Debug("No extractable receipt data",
				"job_id", jobID,
				"message_id", messageID)
		} else {
			slog.Warn("Skipping message: extraction failed",
				"job_id", jobID,
				"message_id", messageID,
				"error", err)
		}
		return
	}

	if e.saveReceipt(ctx, accountID, receipt) {
		p.addReceipt()
	}
}

// saveReceipt persists an extracted receipt, reporting whether a new row
// was inserted. Duplicates (same content hash) are silently ignored.
func (e *Engine) saveReceipt(ctx context.Context, accountID string, extracted *model.ExtractedReceipt) bool {
	receipt := &model.Receipt{
		ID:             uuid.New().String(),
		AccountID:      accountID,
		Date:           extracted.Date,
		Merchant:       extracted.Merchant,
		Currency:       extracted.Currency,
		Category:       extracted.Category,
		SourceID:       extracted.SourceID,
		SourceProvider: extracted.SourceProvider,
		Source:         extracted.Source,
		Items:          extracted.Items,
		Total:          extracted.Total,
		CreatedAt:      time.Now(),
	}
	receipt.Hash = receipt.GenerateHash()

	inserted, err := e.storage.SaveReceipt(ctx, receipt)
	if err != nil {
		slog.Warn("Failed to save receipt",
			"account_id", accountID,
			"source_id", receipt.SourceID,
			"error", err)
		return false
	}
	if !inserted {
		slog.Debug("Duplicate receipt suppressed",
			"account_id", accountID,
			"source_id", receipt.SourceID,
			"hash", receipt.Hash)
	}
	return inserted
}

// recordProcessed bumps the processed counter and flushes it to storage on
// the configured cadence, so a crashed run shows partial progress.
func (e *Engine) recordProcessed(ctx context.Context, jobID string, p *progress) {
	processed := p.addProcessed()
	if processed%e.config.ProgressInterval == 0 {
		e.flushProgress(ctx, jobID, p)
	}
}

func (e *Engine) flushProgress(ctx context.Context, jobID string, p *progress) {
	found, processed, receipts := p.snapshot()
	// Progress writes must land even when the run was cancelled.
	if err := e.storage.UpdateSyncJobProgress(context.WithoutCancel(ctx), jobID, found, processed, receipts); err != nil {
		slog.Warn("Failed to flush progress", "job_id", jobID, "error", err)
	}
}

// fail flips the job to failed with the error recorded.
func (e *Engine) fail(ctx context.Context, jobID string, cause error) {
	slog.Error("Sync job failed", "job_id", jobID, "error", cause)
	if err := e.storage.UpdateSyncJobStatus(context.WithoutCancel(ctx), jobID, model.SyncStatusFailed, cause.Error()); err != nil {
		slog.Error("Failed to mark job failed", "job_id", jobID, "error", err)
	}
}

// progress holds one run's counters behind a mutex; workers update them
// concurrently.
type progress struct {
	mu        sync.Mutex
	found     int
	processed int
	receipts  int
}

func (p *progress) addProcessed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	return p.processed
}

func (p *progress) addReceipt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.receipts++
}

func (p *progress) snapshot() (found, processed, receipts int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.found, p.processed, p.receipts
}
