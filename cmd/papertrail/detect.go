package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/currency"
	"github.com/Veraticus/paper-trail/internal/model"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Infer the currency of a receipt from its fields",
		Long: `Infer the currency of a receipt from its fields.

Combines price formatting, merchant and location hints, and any explicit
currency mention into a single guess with a confidence score. Handy for
checking how ambiguous receipt text will be resolved.

Examples:
  papertrail detect --merchant "Lidl GmbH" --total "5,70" --item "2,99" --item "1,50"
  papertrail detect --merchant "Corner Cafe" --notes "Paid with card ending 4242" --total "$12.50"`,
		RunE: runDetect,
	}

	cmd.Flags().String("merchant", "", "merchant name as it appears on the receipt")
	cmd.Flags().String("notes", "", "free-form receipt text (addresses, payment notes)")
	cmd.Flags().String("total", "", "receipt total as written, including any symbol")
	cmd.Flags().StringArray("item", nil, "line item price as written (repeatable)")
	cmd.Flags().String("hint", "", "externally supplied currency code hint")
	cmd.Flags().String("hint-evidence", "", "evidence backing the hint (e.g. 'currency symbol on image')")

	return cmd
}

func runDetect(cmd *cobra.Command, _ []string) error {
	merchant, _ := cmd.Flags().GetString("merchant")
	notes, _ := cmd.Flags().GetString("notes")
	total, _ := cmd.Flags().GetString("total")
	items, _ := cmd.Flags().GetStringArray("item")
	hint, _ := cmd.Flags().GetString("hint")
	hintEvidence, _ := cmd.Flags().GetString("hint-evidence")

	if merchant == "" && notes == "" && total == "" && len(items) == 0 && hint == "" {
		return fmt.Errorf("nothing to detect: provide at least one of --merchant, --notes, --total, --item, or --hint")
	}

	in := currency.Input{
		Merchant: merchant,
		Notes:    notes,
		Total:    total,
		Prices:   items,
	}
	if hint != "" {
		in.Prior = &model.CurrencyGuess{
			Code:       hint,
			Confidence: 0.6,
			Evidence:   hintEvidence,
		}
	}

	guess := currency.Detect(in)

	fmt.Println(headerStyle.Render("Currency"))
	fmt.Printf("  Code:       %s\n", guess.Code)
	fmt.Printf("  Confidence: %.2f\n", guess.Confidence)
	fmt.Printf("  Evidence:   %s\n", dimStyle.Render(guess.Evidence))
	return nil
}
