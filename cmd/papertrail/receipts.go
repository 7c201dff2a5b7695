package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func receiptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipts <account-id>",
		Short: "List receipts stored for an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runReceipts,
	}

	cmd.Flags().Bool("items", false, "show line items for each receipt")

	return cmd
}

func runReceipts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	showItems, _ := cmd.Flags().GetBool("items")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	receipts, err := store.GetReceiptsByAccount(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list receipts: %w", err)
	}
	if len(receipts) == 0 {
		fmt.Println(dimStyle.Render("No receipts yet. Run 'papertrail sync " + args[0] + "' to fetch some."))
		return nil
	}

	fmt.Println(headerStyle.Render("Receipts"))
	for _, r := range receipts {
		category := r.Category
		if category == "" {
			category = "uncategorized"
		}
		fmt.Printf("  %s  %-30s %10.2f %s  %s\n",
			r.Date.Format("2006-01-02"),
			r.Merchant,
			r.Total,
			r.Currency,
			dimStyle.Render(category+" · "+string(r.Source)))
		if showItems {
			for _, item := range r.Items {
				qty := ""
				if item.Quantity > 1 {
					qty = fmt.Sprintf("%dx ", item.Quantity)
				}
				fmt.Printf("      %s%s  %.2f\n", qty, item.Name, item.Price)
			}
		}
	}
	fmt.Printf("\n%d receipts\n", len(receipts))
	return nil
}
