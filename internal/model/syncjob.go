package model

import "time"

// SyncJobStatus is the lifecycle state of a sync job.
type SyncJobStatus string

const (
	// SyncStatusPending means the job row exists but processing has not started.
	SyncStatusPending SyncJobStatus = "pending"
	// SyncStatusProcessing means the job is actively working through messages.
	SyncStatusProcessing SyncJobStatus = "processing"
	// SyncStatusCompleted means the job exhausted all messages without a fatal error.
	SyncStatusCompleted SyncJobStatus = "completed"
	// SyncStatusFailed means the job hit an error outside the per-message loop.
	SyncStatusFailed SyncJobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s SyncJobStatus) Terminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// Active reports whether a job in this status is still occupying its account.
func (s SyncJobStatus) Active() bool {
	return s == SyncStatusPending || s == SyncStatusProcessing
}

// SyncJob represents one sync run for one account.
// MessagesProcessed never exceeds MessagesFound.
type SyncJob struct {
	CreatedAt         time.Time
	UpdatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	ID                string
	AccountID         string
	Status            SyncJobStatus
	ErrorMessage      string
	MessagesFound     int
	MessagesProcessed int
	ReceiptsFound     int
}
