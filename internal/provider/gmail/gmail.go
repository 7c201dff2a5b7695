// Package gmail implements the mail provider adapter for Gmail accounts via
// the Gmail REST API and OAuth 2.0.
package gmail

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/provider"
)

// DefaultQuery biases the search toward receipt-like messages in the recent
// window, so a sync run is bounded by recent activity rather than mailbox
// size.
const DefaultQuery = `{subject:receipt subject:order subject:invoice subject:purchase subject:payment subject:confirmation from:noreply from:orders} newer_than:30d -in:spam`

// maxSearchResults bounds one search page.
const maxSearchResults = 100

// Config holds the OAuth client settings for the Gmail adapter.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateSecret  string
}

// Adapter implements provider.Adapter for Gmail.
type Adapter struct {
	oauth       *oauth2.Config
	stateSecret []byte
}

// New creates a Gmail adapter from config.
func New(cfg Config) (*Adapter, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: gmail client id and secret are required", common.ErrMissingConfig)
	}
	if cfg.StateSecret == "" {
		return nil, fmt.Errorf("%w: gmail state secret is required", common.ErrMissingConfig)
	}

	return &Adapter{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gmailapi.GmailReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		stateSecret: []byte(cfg.StateSecret),
	}, nil
}

// Type returns the Gmail provider tag.
func (a *Adapter) Type() model.ProviderType {
	return model.ProviderGmail
}

// statePayload is the signed blob carried through the OAuth redirect.
type statePayload struct {
	UserID   string `json:"user_id"`
	IssuedAt int64  `json:"issued_at"`
}

// GetAuthURL builds the authorization redirect. The state parameter is a
// signed blob carrying the user id, so the callback can be correlated
// without server-side session state.
func (a *Adapter) GetAuthURL(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	state, err := a.encodeState(statePayload{
		UserID:   userID,
		IssuedAt: time.Now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}

	return a.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// DecodeState verifies a callback state blob and returns the user id.
func (a *Adapter) DecodeState(state string) (string, error) {
	payload, err := a.decodeState(state)
	if err != nil {
		return "", err
	}
	return payload.UserID, nil
}

// HandleCallback exchanges the authorization code for a credential bundle
// and resolves the mailbox address from the Gmail profile.
func (a *Adapter) HandleCallback(ctx context.Context, code string) (model.Credentials, string, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return model.Credentials{}, "", fmt.Errorf("%w: code exchange failed: %v", common.ErrAuthFailed, err)
	}

	creds := model.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}

	svc, err := a.service(ctx, creds)
	if err != nil {
		return model.Credentials{}, "", err
	}
	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return model.Credentials{}, "", fmt.Errorf("failed to resolve mailbox address: %w", err)
	}

	return creds, profile.EmailAddress, nil
}

// VerifyTokens returns the bundle unchanged while valid, and refreshes it
// otherwise. The refresh token is kept unless the server rotates it.
func (a *Adapter) VerifyTokens(ctx context.Context, creds model.Credentials) (model.Credentials, error) {
	if !creds.Expired(time.Now()) {
		return creds, nil
	}
	if creds.RefreshToken == "" {
		return model.Credentials{}, fmt.Errorf("%w: no refresh token", common.ErrTokenExpired)
	}

	source := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return model.Credentials{}, fmt.Errorf("%w: refresh failed: %v", common.ErrTokenExpired, err)
	}

	refreshed := model.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       token.Expiry,
	}
	if token.RefreshToken != "" && token.RefreshToken != creds.RefreshToken {
		refreshed.RefreshToken = token.RefreshToken
	}

	slog.Debug("Refreshed Gmail access token", "expiry", refreshed.Expiry)
	return refreshed, nil
}

// SearchEmails lists message summaries matching the query. An empty query
// falls back to the receipt-biased default.
func (a *Adapter) SearchEmails(ctx context.Context, creds model.Credentials, query string) ([]model.CandidateMessage, error) {
	if query == "" {
		query = DefaultQuery
	}

	svc, err := a.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	listResp, err := svc.Users.Messages.List("me").
		Q(query).
		MaxResults(maxSearchResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: message list failed: %v", common.ErrProviderConnection, err)
	}

	summaries := make([]model.CandidateMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		meta, err := svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("%w: metadata fetch for %s failed: %v", common.ErrProviderConnection, ref.Id, err)
		}

		summary := model.CandidateMessage{
			ID:      meta.Id,
			Snippet: meta.Snippet,
		}
		if meta.InternalDate > 0 {
			summary.Date = time.UnixMilli(meta.InternalDate)
		}
		if meta.Payload != nil {
			for _, header := range meta.Payload.Headers {
				switch header.Name {
				case "Subject":
					summary.Subject = header.Value
				case "From":
					summary.From = header.Value
				case "Date":
					if summary.Date.IsZero() {
						if parsed, perr := ParseEmailDate(header.Value); perr == nil {
							summary.Date = parsed
						}
					}
				}
			}
		}
		summaries = append(summaries, summary)
	}

	slog.Debug("Gmail search complete", "query", query, "found", len(summaries))
	return summaries, nil
}

// GetMessage fetches one message with full content and attachment
// descriptors, preferring plain-text parts and stripping HTML only as a
// fallback.
func (a *Adapter) GetMessage(ctx context.Context, creds model.Credentials, messageID string) (*model.CandidateMessage, error) {
	svc, err := a.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	full, err := svc.Users.Messages.Get("me", messageID).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: message fetch for %s failed: %v", common.ErrProviderConnection, messageID, err)
	}

	msg := &model.CandidateMessage{
		ID:      full.Id,
		Snippet: full.Snippet,
	}
	if full.InternalDate > 0 {
		msg.Date = time.UnixMilli(full.InternalDate)
	}

	if full.Payload != nil {
		for _, header := range full.Payload.Headers {
			switch header.Name {
			case "Subject":
				msg.Subject = header.Value
			case "From":
				msg.From = header.Value
			case "Date":
				if msg.Date.IsZero() {
					if parsed, perr := ParseEmailDate(header.Value); perr == nil {
						msg.Date = parsed
					}
				}
			}
		}

		var textPlain, textHTML string
		collectBodies(full.Payload, &textPlain, &textHTML)
		msg.BodyText = textPlain
		msg.BodyHTML = textHTML
		if msg.BodyText == "" && msg.BodyHTML != "" {
			msg.BodyText = provider.StripHTML(msg.BodyHTML)
		}

		collectAttachments(full.Payload, &msg.Attachments)
	}

	return msg, nil
}

// GetAttachment fetches and decodes one attachment's binary payload.
func (a *Adapter) GetAttachment(ctx context.Context, creds model.Credentials, messageID, attachmentID string) ([]byte, error) {
	svc, err := a.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	body, err := svc.Users.Messages.Attachments.Get("me", messageID, attachmentID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: attachment fetch failed: %v", common.ErrProviderConnection, err)
	}

	data, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}

// service builds a Gmail API client authenticated with the given bundle.
func (a *Adapter) service(ctx context.Context, creds model.Credentials) (*gmailapi.Service, error) {
	token := &oauth2.Token{
		AccessToken: creds.AccessToken,
		TokenType:   "Bearer",
	}
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return svc, nil
}

// collectBodies walks MIME parts recursively, keeping the first text/plain
// and text/html bodies found.
func collectBodies(part *gmailapi.MessagePart, textPlain, textHTML *string) {
	if part == nil {
		return
	}

	if part.Body != nil && part.Body.Data != "" {
		if decoded, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
			switch part.MimeType {
			case "text/plain":
				if *textPlain == "" {
					*textPlain = string(decoded)
				}
			case "text/html":
				if *textHTML == "" {
					*textHTML = string(decoded)
				}
			}
		}
	}

	for _, child := range part.Parts {
		collectBodies(child, textPlain, textHTML)
	}
}

// collectAttachments walks MIME parts recursively, collecting descriptors
// for parts that carry a filename.
func collectAttachments(part *gmailapi.MessagePart, attachments *[]model.Attachment) {
	if part == nil {
		return
	}

	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		*attachments = append(*attachments, model.Attachment{
			ID:       part.Body.AttachmentId,
			Filename: part.Filename,
			MimeType: part.MimeType,
			Size:     part.Body.Size,
		})
	}

	for _, child := range part.Parts {
		collectAttachments(child, attachments)
	}
}

// encodeState signs a state payload: base64(json).base64(hmac).
func (a *Adapter) encodeState(payload statePayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(data)
	mac := hmac.New(sha256.New, a.stateSecret)
	mac.Write([]byte(encoded))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return encoded + "." + signature, nil
}

// decodeState verifies the signature and unmarshals the payload.
func (a *Adapter) decodeState(state string) (*statePayload, error) {
	parts := strings.SplitN(state, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: malformed state", common.ErrAuthFailed)
	}

	mac := hmac.New(sha256.New, a.stateSecret)
	mac.Write([]byte(parts[0]))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return nil, fmt.Errorf("%w: state signature mismatch", common.ErrAuthFailed)
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable state", common.ErrAuthFailed)
	}

	var payload statePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed state payload", common.ErrAuthFailed)
	}
	return &payload, nil
}

// ParseEmailDate parses the common RFC-style date formats seen in email
// headers, tolerating the trailing timezone name some servers append.
func ParseEmailDate(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		time.RFC3339,
	}

	dateStr = strings.TrimSpace(dateStr)
	if idx := strings.Index(dateStr, " ("); idx != -1 {
		dateStr = dateStr[:idx]
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
