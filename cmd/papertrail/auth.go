package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/provider/gmail"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Link a mailbox via OAuth",
	}

	cmd.AddCommand(authGmailCmd())

	return cmd
}

func authGmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gmail",
		Short: "Link a Gmail account",
		Long: `Link a Gmail account using OAuth.

This command will:
1. Start a local web server for the OAuth callback
2. Print an authorization URL to open in your browser
3. Exchange the returned code for tokens
4. Save the linked account for syncing`,
		RunE: runAuthGmail,
	}
}

// callbackResult carries the OAuth redirect parameters from the HTTP
// handler back to the command.
type callbackResult struct {
	err   error
	code  string
	state string
}

func runAuthGmail(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	adapter, err := gmail.New(gmailConfig())
	if err != nil {
		return fmt.Errorf("gmail credentials missing; add gmail.client_id and gmail.client_secret to the config file: %w", err)
	}

	userID := currentUser()
	authURL, err := adapter.GetAuthURL(userID)
	if err != nil {
		return fmt.Errorf("failed to build authorization URL: %w", err)
	}

	redirect, err := url.Parse(callbackURL())
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if errMsg := query.Get("error"); errMsg != "" {
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
			results <- callbackResult{err: fmt.Errorf("authorization denied: %s", errMsg)}
			return
		}
		fmt.Fprintln(w, "Mailbox linked. You can close this window.")
		results <- callbackResult{code: query.Get("code"), state: query.Get("state")}
	})

	server := &http.Server{
		Addr:              redirect.Host,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			results <- callbackResult{err: fmt.Errorf("callback server failed: %w", serveErr)}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Println("Open this URL in your browser to authorize access:")
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()

	var result callbackResult
	select {
	case result = <-results:
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timed out waiting for the OAuth callback")
	case <-ctx.Done():
		return ctx.Err()
	}
	if result.err != nil {
		return result.err
	}

	// The signed state ties the callback to the user who started the flow.
	stateUser, err := adapter.DecodeState(result.state)
	if err != nil {
		return fmt.Errorf("callback state verification failed: %w", err)
	}
	if stateUser != userID {
		return fmt.Errorf("callback state names user %q, expected %q", stateUser, userID)
	}

	creds, email, err := adapter.HandleCallback(ctx, result.code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	account := &model.MailAccount{
		ID:          uuid.New().String(),
		UserID:      userID,
		Email:       email,
		Provider:    model.ProviderGmail,
		Credentials: creds,
	}
	if err := store.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	slog.Info("Linked Gmail account", "account_id", account.ID, "email", email)
	fmt.Printf("Linked %s (account %s)\n", email, account.ID)
	return nil
}
