package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the receipt database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Printf("%s schema at version %d\n",
				okStyle.Render("Database ready:"),
				storage.ExpectedSchemaVersion)
			return nil
		},
	}
}
