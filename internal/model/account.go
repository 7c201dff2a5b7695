package model

import "time"

// ProviderType identifies which mail provider adapter serves an account.
type ProviderType string

const (
	// ProviderGmail is the Gmail REST API adapter.
	ProviderGmail ProviderType = "gmail"
	// ProviderIMAP is the generic IMAP adapter.
	ProviderIMAP ProviderType = "imap"
)

// Credentials is the opaque credential bundle for one mailbox.
// OAuth providers use the token fields; IMAP providers use host/username/password.
type Credentials struct {
	Expiry       time.Time
	AccessToken  string
	RefreshToken string
	Host         string
	Username     string
	Password     string
}

// Expired reports whether the access token is expired or expires within
// the next five minutes, so callers refresh before a remote call fails.
func (c Credentials) Expired(now time.Time) bool {
	if c.AccessToken == "" {
		return true
	}
	if c.Expiry.IsZero() {
		return false
	}
	return now.Add(5 * time.Minute).After(c.Expiry)
}

// MailAccount represents one linked mailbox.
type MailAccount struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastSyncAt  *time.Time
	ID          string
	UserID      string
	Email       string
	Provider    ProviderType
	Credentials Credentials
}
