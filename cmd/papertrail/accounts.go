package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/provider/imap"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage linked mail accounts",
	}

	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsAddIMAPCmd())
	cmd.AddCommand(accountsRemoveCmd())

	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List linked accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.GetAccountsByUser(ctx, currentUser())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if len(accounts) == 0 {
				fmt.Println(dimStyle.Render("No linked accounts. Run 'papertrail auth gmail' or 'papertrail accounts add-imap'."))
				return nil
			}

			fmt.Println(headerStyle.Render("Linked accounts"))
			for _, account := range accounts {
				fmt.Printf("  %s  %-8s %-35s last sync: %s\n",
					account.ID,
					account.Provider,
					account.Email,
					dimStyle.Render(formatTime(account.LastSyncAt)))
			}
			return nil
		},
	}
}

func accountsAddIMAPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-imap",
		Short: "Link a mailbox over IMAP",
		Long: `Link a mailbox over IMAP with host credentials.

IMAP accounts skip the OAuth handshake entirely; the given credentials are
verified with a login round-trip and stored.`,
		RunE: runAccountsAddIMAP,
	}

	cmd.Flags().String("host", "", "IMAP host with port, e.g. imap.example.com:993")
	cmd.Flags().String("username", "", "IMAP login username")
	cmd.Flags().String("password", "", "IMAP login password")
	cmd.Flags().String("email", "", "mailbox address (defaults to the username)")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runAccountsAddIMAP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	host, _ := cmd.Flags().GetString("host")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = username
	}

	creds := model.Credentials{
		Host:     host,
		Username: username,
		Password: password,
	}

	// Fail fast on bad credentials instead of at first sync.
	if _, err := imap.New().VerifyTokens(ctx, creds); err != nil {
		return fmt.Errorf("IMAP login failed: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	account := &model.MailAccount{
		ID:          uuid.New().String(),
		UserID:      currentUser(),
		Email:       email,
		Provider:    model.ProviderIMAP,
		Credentials: creds,
	}
	if err := store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	fmt.Printf("%s %s (account %s)\n", okStyle.Render("Linked"), email, account.ID)
	return nil
}

func accountsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <account-id>",
		Short: "Remove a linked account and its sync history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteAccount(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to remove account: %w", err)
			}

			fmt.Printf("Removed account %s\n", args[0])
			return nil
		},
	}
}
