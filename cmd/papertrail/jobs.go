package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/model"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs <account-id>",
		Short: "List sync jobs for an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobs,
	}

	cmd.Flags().Int("limit", 10, "maximum number of jobs to show")

	return cmd
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	jobs, err := store.GetAccountSyncJobs(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list sync jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Println(dimStyle.Render("No sync jobs yet. Run 'papertrail sync " + args[0] + "' to start one."))
		return nil
	}
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	fmt.Println(headerStyle.Render("Sync Jobs"))
	for _, job := range jobs {
		fmt.Printf("  %s  %s  %s\n",
			job.ID,
			statusStyle(job.Status).Render(string(job.Status)),
			dimStyle.Render(job.CreatedAt.Format("2006-01-02 15:04")))
		fmt.Printf("    %d found / %d processed / %d receipts\n",
			job.MessagesFound, job.MessagesProcessed, job.ReceiptsFound)
		if job.ErrorMessage != "" {
			fmt.Printf("    %s %s\n", errStyle.Render("error:"), job.ErrorMessage)
		}
	}
	return nil
}

func statusStyle(status model.SyncJobStatus) lipgloss.Style {
	switch status {
	case model.SyncStatusCompleted:
		return okStyle
	case model.SyncStatusFailed:
		return errStyle
	default:
		return dimStyle
	}
}
