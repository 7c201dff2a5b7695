package main

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/service"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <account-id>",
		Short: "Sync receipts from a linked mailbox",
		Long: `Sync receipts from a linked mailbox.

Searches the mailbox for receipt-like messages, classifies each one,
extracts structured receipt data, and stores the results. Messages that
fail to process are skipped; the sync continues.`,
		Args: cobra.ExactArgs(1),
		RunE: runSync,
	}

	cmd.Flags().Bool("wait", false, "show a progress bar while the sync runs")

	return cmd
}

type runOutcome struct {
	job *model.SyncJob
	err error
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	accountID := args[0]
	wait, _ := cmd.Flags().GetBool("wait")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng := buildEngine(store)

	done := make(chan runOutcome, 1)
	go func() {
		job, runErr := eng.RunSync(ctx, accountID)
		done <- runOutcome{job: job, err: runErr}
	}()

	var outcome runOutcome
	if wait {
		outcome = watchProgress(ctx, store, accountID, done)
	} else {
		outcome = <-done
	}
	if outcome.err != nil {
		return outcome.err
	}

	job := outcome.job
	if job.Status == model.SyncStatusFailed {
		fmt.Printf("%s %s\n", errStyle.Render("Sync failed:"), job.ErrorMessage)
		return fmt.Errorf("sync job %s failed", job.ID)
	}

	fmt.Printf("%s job %s: %d messages searched, %d processed, %d new receipts\n",
		okStyle.Render("Sync complete"),
		job.ID,
		job.MessagesFound,
		job.MessagesProcessed,
		job.ReceiptsFound)
	return nil
}

// watchProgress polls the active job row while the sync runs and renders
// a progress bar once the message count is known.
func watchProgress(ctx context.Context, store service.Storage, accountID string, done chan runOutcome) runOutcome {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var bar *progressbar.ProgressBar
	for {
		select {
		case outcome := <-done:
			if bar != nil && outcome.job != nil {
				_ = bar.Set(outcome.job.MessagesProcessed)
				_ = bar.Finish()
				fmt.Println()
			}
			return outcome
		case <-ticker.C:
		}

		job, err := store.GetActiveSyncJob(ctx, accountID)
		if err != nil || job == nil {
			continue
		}
		if bar == nil && job.MessagesFound > 0 {
			bar = progressbar.NewOptions(job.MessagesFound,
				progressbar.OptionSetDescription("Processing messages"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
				progressbar.OptionClearOnFinish(),
			)
		}
		if bar != nil {
			_ = bar.Set(job.MessagesProcessed)
		}
	}
}
