package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the extraction pipeline on a single message",
		Long: `Run the extraction pipeline on a single message.

Fetches one message by provider ID, classifies it, and extracts receipt
data if it looks like a receipt. Useful for debugging why a message was
or was not picked up by a sync.`,
		RunE: runProcess,
	}

	cmd.Flags().String("account", "", "account ID that owns the mailbox")
	cmd.Flags().String("message", "", "provider message ID to process")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	accountID, _ := cmd.Flags().GetString("account")
	messageID, _ := cmd.Flags().GetString("message")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng := buildEngine(store)

	result, err := eng.ProcessSingleMessage(ctx, accountID, messageID)
	if err != nil {
		return fmt.Errorf("failed to process message: %w", err)
	}

	fmt.Println(headerStyle.Render("Classification"))
	verdict := errStyle.Render("not a receipt")
	if result.Classification.IsReceipt {
		verdict = okStyle.Render("receipt")
	}
	fmt.Printf("  %s (confidence %.2f)\n", verdict, result.Classification.Confidence)
	fmt.Printf("  %s\n", dimStyle.Render(result.Classification.Reason))

	if result.Receipt == nil {
		return nil
	}

	r := result.Receipt
	fmt.Println(headerStyle.Render("Extracted Receipt"))
	fmt.Printf("  Merchant: %s\n", r.Merchant)
	fmt.Printf("  Total:    %.2f %s\n", r.Total, r.Currency)
	fmt.Printf("  Date:     %s\n", r.Date.Format("2006-01-02"))
	if r.Category != "" {
		fmt.Printf("  Category: %s\n", r.Category)
	}
	fmt.Printf("  Source:   %s\n", r.Source)
	for _, item := range r.Items {
		fmt.Printf("    - %s %.2f\n", item.Name, item.Price)
	}
	if result.Saved {
		fmt.Println(okStyle.Render("Saved."))
	} else {
		fmt.Println(dimStyle.Render("Already stored (duplicate)."))
	}
	return nil
}
