// Package provider defines the mail provider adapter contract and the
// registry that maps provider-type tags to adapter constructors. All
// provider-specific behavior lives behind the Adapter interface; nothing
// above this package branches on provider type by name.
package provider

import (
	"context"

	"github.com/Veraticus/paper-trail/internal/model"
)

// DefaultQueryWindowDays bounds the default search to a recent window so
// sync cost stays proportional to recent activity, not mailbox size.
const DefaultQueryWindowDays = 30

// Adapter is the contract every mail provider implementation satisfies.
//
// Failure semantics: network and auth failures propagate to the caller as
// errors; adapters never swallow them. Failure isolation is the sync
// orchestrator's job, not the adapter's.
type Adapter interface {
	// Type returns the provider tag this adapter serves.
	Type() model.ProviderType

	// GetAuthURL builds an authorization redirect embedding a signed state
	// blob containing the user id, so the callback can be correlated without
	// server-side session state.
	GetAuthURL(userID string) (string, error)

	// HandleCallback exchanges an authorization code for a credential bundle
	// and resolves the account's mailbox address.
	HandleCallback(ctx context.Context, code string) (model.Credentials, string, error)

	// VerifyTokens returns the bundle unchanged while it is still valid, and
	// refreshes it otherwise. Idempotent and safe to call before every
	// remote operation.
	VerifyTokens(ctx context.Context, creds model.Credentials) (model.Credentials, error)

	// SearchEmails lists message summaries matching a query. An empty query
	// applies a default biased toward receipt-like messages within the
	// recent window.
	SearchEmails(ctx context.Context, creds model.Credentials, query string) ([]model.CandidateMessage, error)

	// GetMessage fetches one message's full content and attachment
	// descriptors, decoding provider MIME structure into plain text.
	GetMessage(ctx context.Context, creds model.Credentials, messageID string) (*model.CandidateMessage, error)

	// GetAttachment fetches and decodes one attachment's binary payload.
	GetAttachment(ctx context.Context, creds model.Credentials, messageID, attachmentID string) ([]byte, error)
}
