// Package imap implements the mail provider adapter for generic IMAP
// accounts. IMAP accounts are linked with host and password credentials
// rather than OAuth, so the OAuth operations report ErrOAuthUnsupported.
package imap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/provider"
)

// maxSearchResults bounds one search to the most recent messages.
const maxSearchResults = 100

// Adapter implements provider.Adapter over IMAP.
type Adapter struct{}

// New creates an IMAP adapter.
func New() *Adapter {
	return &Adapter{}
}

// Type returns the IMAP provider tag.
func (a *Adapter) Type() model.ProviderType {
	return model.ProviderIMAP
}

// GetAuthURL is not applicable: IMAP accounts are linked directly with
// credentials.
func (a *Adapter) GetAuthURL(_ string) (string, error) {
	return "", common.ErrOAuthUnsupported
}

// HandleCallback is not applicable for IMAP accounts.
func (a *Adapter) HandleCallback(_ context.Context, _ string) (model.Credentials, string, error) {
	return model.Credentials{}, "", common.ErrOAuthUnsupported
}

// VerifyTokens checks the credentials with a login round-trip. IMAP
// passwords do not expire on a schedule, so there is nothing to refresh;
// the bundle is returned unchanged when the login succeeds.
func (a *Adapter) VerifyTokens(ctx context.Context, creds model.Credentials) (model.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return model.Credentials{}, err
	}

	c, err := a.connect(creds)
	if err != nil {
		return model.Credentials{}, err
	}
	_ = c.Logout()
	return creds, nil
}

// SearchEmails lists message summaries from INBOX within the recent window.
// IMAP has no Gmail-style query language; a non-empty query becomes a TEXT
// search criterion, and subject bias is left to the classifier.
func (a *Adapter) SearchEmails(ctx context.Context, creds model.Credentials, query string) ([]model.CandidateMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := a.connect(creds)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Logout() }()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("%w: select INBOX failed: %v", common.ErrProviderConnection, err)
	}

	criteria := goimap.NewSearchCriteria()
	criteria.Since = time.Now().AddDate(0, 0, -provider.DefaultQueryWindowDays)
	if query != "" {
		criteria.Text = []string{query}
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", common.ErrProviderConnection, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > maxSearchResults {
		uids = uids[len(uids)-maxSearchResults:]
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *goimap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, []goimap.FetchItem{goimap.FetchEnvelope, goimap.FetchUid}, messages)
	}()

	var summaries []model.CandidateMessage
	for msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		summaries = append(summaries, model.CandidateMessage{
			ID:      strconv.FormatUint(uint64(msg.Uid), 10),
			Subject: msg.Envelope.Subject,
			From:    formatAddress(msg.Envelope.From),
			Date:    msg.Envelope.Date,
		})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: envelope fetch failed: %v", common.ErrProviderConnection, err)
	}

	slog.Debug("IMAP search complete", "host", creds.Host, "found", len(summaries))
	return summaries, nil
}

// GetMessage fetches one message body and decodes its MIME structure into
// plain text and attachment descriptors.
func (a *Adapter) GetMessage(ctx context.Context, creds model.Credentials, messageID string) (*model.CandidateMessage, error) {
	raw, envelope, err := a.fetchRaw(ctx, creds, messageID)
	if err != nil {
		return nil, err
	}

	msg := &model.CandidateMessage{ID: messageID}
	if envelope != nil {
		msg.Subject = envelope.Subject
		msg.From = formatAddress(envelope.From)
		msg.Date = envelope.Date
	}

	parsed, err := parseRawMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", messageID, err)
	}

	msg.BodyText = parsed.text
	msg.BodyHTML = parsed.html
	if msg.BodyText == "" && msg.BodyHTML != "" {
		msg.BodyText = provider.StripHTML(msg.BodyHTML)
	}
	for _, att := range parsed.attachments {
		msg.Attachments = append(msg.Attachments, model.Attachment{
			ID:       att.filename,
			Filename: att.filename,
			MimeType: att.mimeType,
			Size:     int64(len(att.data)),
		})
	}

	return msg, nil
}

// GetAttachment re-fetches the message and returns the payload of the
// attachment whose filename matches attachmentID.
func (a *Adapter) GetAttachment(ctx context.Context, creds model.Credentials, messageID, attachmentID string) ([]byte, error) {
	raw, _, err := a.fetchRaw(ctx, creds, messageID)
	if err != nil {
		return nil, err
	}

	parsed, err := parseRawMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", messageID, err)
	}

	for _, att := range parsed.attachments {
		if att.filename == attachmentID {
			return att.data, nil
		}
	}
	return nil, fmt.Errorf("attachment %s not found on message %s", attachmentID, messageID)
}

// connect dials the configured host and logs in.
func (a *Adapter) connect(creds model.Credentials) (*client.Client, error) {
	if creds.Host == "" || creds.Username == "" {
		return nil, fmt.Errorf("%w: imap host and username are required", common.ErrMissingConfig)
	}

	c, err := client.DialTLS(creds.Host, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s failed: %v", common.ErrProviderConnection, creds.Host, err)
	}

	if err := c.Login(creds.Username, creds.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("%w: imap login failed: %v", common.ErrAuthFailed, err)
	}
	return c, nil
}

// fetchRaw retrieves one message's raw RFC 822 body plus its envelope.
func (a *Adapter) fetchRaw(ctx context.Context, creds model.Credentials, messageID string) ([]byte, *goimap.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid imap message id %q: %w", messageID, err)
	}

	c, err := a.connect(creds)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = c.Logout() }()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, nil, fmt.Errorf("%w: select INBOX failed: %v", common.ErrProviderConnection, err)
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uint32(uid))

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{goimap.FetchEnvelope, goimap.FetchUid, section.FetchItem()}

	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var fetched *goimap.Message
	for msg := range messages {
		fetched = msg
	}
	if err := <-done; err != nil {
		return nil, nil, fmt.Errorf("%w: body fetch failed: %v", common.ErrProviderConnection, err)
	}
	if fetched == nil {
		return nil, nil, fmt.Errorf("message %s not found", messageID)
	}

	literal := fetched.GetBody(section)
	if literal == nil {
		return nil, nil, fmt.Errorf("message %s has no body section", messageID)
	}
	raw, err := io.ReadAll(literal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read message body: %w", err)
	}

	return raw, fetched.Envelope, nil
}

// formatAddress renders the first envelope address as "Name <box@host>".
func formatAddress(addrs []*goimap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	addr := addrs[0]
	email := addr.MailboxName + "@" + addr.HostName
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, email)
	}
	return email
}
