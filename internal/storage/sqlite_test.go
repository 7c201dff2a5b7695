package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testAccount(id string) *model.MailAccount {
	return &model.MailAccount{
		ID:       id,
		UserID:   "user-1",
		Email:    id + "@example.com",
		Provider: model.ProviderGmail,
		Credentials: model.Credentials{
			AccessToken:  "access-" + id,
			RefreshToken: "refresh-" + id,
			Expiry:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestAccountRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	account := testAccount("acct-1")
	require.NoError(t, store.SaveAccount(ctx, account))

	got, err := store.GetAccount(ctx, "acct-1")
	require.NoError(t, err)

	assert.Equal(t, account.ID, got.ID)
	assert.Equal(t, account.UserID, got.UserID)
	assert.Equal(t, account.Email, got.Email)
	assert.Equal(t, model.ProviderGmail, got.Provider)
	assert.Equal(t, "access-acct-1", got.Credentials.AccessToken)
	assert.Equal(t, "refresh-acct-1", got.Credentials.RefreshToken)
	assert.True(t, account.Credentials.Expiry.Equal(got.Credentials.Expiry))
	assert.Nil(t, got.LastSyncAt)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetAccountNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveAccountUpsert(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	account := testAccount("acct-1")
	require.NoError(t, store.SaveAccount(ctx, account))
	created := account.CreatedAt

	account.Email = "renamed@example.com"
	require.NoError(t, store.SaveAccount(ctx, account))

	got, err := store.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed@example.com", got.Email)
	assert.True(t, created.Equal(got.CreatedAt), "upsert should keep the original creation time")
}

func TestGetAccountsByUser(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))
	second := testAccount("acct-2")
	second.Provider = model.ProviderIMAP
	require.NoError(t, store.SaveAccount(ctx, second))

	other := testAccount("acct-3")
	other.UserID = "user-2"
	require.NoError(t, store.SaveAccount(ctx, other))

	accounts, err := store.GetAccountsByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestUpdateAccountCredentials(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))

	refreshed := model.Credentials{
		AccessToken:  "new-access",
		RefreshToken: "refresh-acct-1",
		Expiry:       time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.UpdateAccountCredentials(ctx, "acct-1", refreshed))

	got, err := store.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.Credentials.AccessToken)

	err = store.UpdateAccountCredentials(ctx, "missing", refreshed)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateAccountLastSync(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))

	syncedAt := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, store.UpdateAccountLastSync(ctx, "acct-1", syncedAt))

	got, err := store.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncAt)
	assert.True(t, syncedAt.Equal(*got.LastSyncAt))
}

func TestDeleteAccountCascades(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))
	require.NoError(t, store.CreateSyncJob(ctx, &model.SyncJob{
		ID:        "job-1",
		AccountID: "acct-1",
		Status:    model.SyncStatusCompleted,
	}))
	saved, err := store.SaveReceipt(ctx, testReceipt("r-1", "acct-1", "hash-1"))
	require.NoError(t, err)
	require.True(t, saved)

	require.NoError(t, store.DeleteAccount(ctx, "acct-1"))

	_, err = store.GetAccount(ctx, "acct-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetSyncJob(ctx, "job-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	receipts, err := store.GetReceiptsByAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Empty(t, receipts)
}

func TestSyncJobLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))

	job := &model.SyncJob{
		ID:        "job-1",
		AccountID: "acct-1",
		Status:    model.SyncStatusPending,
	}
	require.NoError(t, store.CreateSyncJob(ctx, job))

	// Pending jobs count as active.
	active, err := store.GetActiveSyncJob(ctx, "acct-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "job-1", active.ID)

	// Processing stamps the start time once.
	require.NoError(t, store.UpdateSyncJobStatus(ctx, "job-1", model.SyncStatusProcessing, ""))
	got, err := store.GetSyncJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusProcessing, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, store.UpdateSyncJobProgress(ctx, "job-1", 10, 5, 2))
	got, err = store.GetSyncJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.MessagesFound)
	assert.Equal(t, 5, got.MessagesProcessed)
	assert.Equal(t, 2, got.ReceiptsFound)

	// Completion stamps the end time and frees the account.
	require.NoError(t, store.UpdateSyncJobStatus(ctx, "job-1", model.SyncStatusCompleted, ""))
	got, err = store.GetSyncJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	active, err = store.GetActiveSyncJob(ctx, "acct-1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSyncJobFailureRecordsError(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))
	require.NoError(t, store.CreateSyncJob(ctx, &model.SyncJob{
		ID:        "job-1",
		AccountID: "acct-1",
		Status:    model.SyncStatusPending,
	}))

	require.NoError(t, store.UpdateSyncJobStatus(ctx, "job-1", model.SyncStatusFailed, "credential verification failed"))

	got, err := store.GetSyncJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusFailed, got.Status)
	assert.Equal(t, "credential verification failed", got.ErrorMessage)
	require.NotNil(t, got.CompletedAt)
}

func TestUpdateSyncJobProgressRejectsOverflow(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))
	require.NoError(t, store.CreateSyncJob(ctx, &model.SyncJob{
		ID:        "job-1",
		AccountID: "acct-1",
		Status:    model.SyncStatusPending,
	}))

	err := store.UpdateSyncJobProgress(ctx, "job-1", 5, 6, 0)
	assert.ErrorIs(t, err, ErrInvalidJob)
}

func TestGetAccountSyncJobsOrder(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))

	old := &model.SyncJob{
		ID:        "job-old",
		AccountID: "acct-1",
		Status:    model.SyncStatusCompleted,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.CreateSyncJob(ctx, old))
	require.NoError(t, store.CreateSyncJob(ctx, &model.SyncJob{
		ID:        "job-new",
		AccountID: "acct-1",
		Status:    model.SyncStatusPending,
	}))

	jobs, err := store.GetAccountSyncJobs(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-new", jobs[0].ID)
	assert.Equal(t, "job-old", jobs[1].ID)
}

func testReceipt(id, accountID, hash string) *model.Receipt {
	return &model.Receipt{
		ID:             id,
		AccountID:      accountID,
		Hash:           hash,
		Date:           time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Merchant:       "Corner Cafe",
		Currency:       "USD",
		Total:          4.50,
		Source:         model.SourceEmail,
		SourceID:       "msg-" + id,
		SourceProvider: "gmail",
		Category:       "dining",
		Items: []model.LineItem{
			{Name: "Flat White", Price: 4.50, Quantity: 1},
		},
	}
}

func TestSaveReceiptAndDuplicateSuppression(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))

	inserted, err := store.SaveReceipt(ctx, testReceipt("r-1", "acct-1", "hash-1"))
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same content hash, different row id: suppressed.
	duplicate := testReceipt("r-2", "acct-1", "hash-1")
	inserted, err = store.SaveReceipt(ctx, duplicate)
	require.NoError(t, err)
	assert.False(t, inserted)

	receipts, err := store.GetReceiptsByAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, receipts, 1)

	got := receipts[0]
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, "Corner Cafe", got.Merchant)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "dining", got.Category)
	assert.Equal(t, model.SourceEmail, got.Source)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Flat White", got.Items[0].Name)
}

func TestSaveReceiptValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))

	badCurrency := testReceipt("r-1", "acct-1", "hash-1")
	badCurrency.Currency = "dollars"
	_, err := store.SaveReceipt(ctx, badCurrency)
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	negative := testReceipt("r-2", "acct-1", "hash-2")
	negative.Total = -1
	_, err = store.SaveReceipt(ctx, negative)
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	noHash := testReceipt("r-3", "acct-1", "")
	_, err = store.SaveReceipt(ctx, noHash)
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestGetReceiptsByAccountOrder(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, testAccount("acct-1")))

	older := testReceipt("r-1", "acct-1", "hash-1")
	older.Date = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := testReceipt("r-2", "acct-1", "hash-2")
	newer.Date = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []*model.Receipt{older, newer} {
		inserted, err := store.SaveReceipt(ctx, r)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	receipts, err := store.GetReceiptsByAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, "r-2", receipts[0].ID)
	assert.Equal(t, "r-1", receipts[1].ID)
}
