package model

import "time"

// Attachment describes one attachment on a candidate message. The binary
// payload is fetched separately through the provider adapter.
type Attachment struct {
	ID       string
	Filename string
	MimeType string
	Size     int64
}

// CandidateMessage is a mailbox message that has not yet been confirmed to
// contain a receipt. It is transient and scoped to one sync pass.
type CandidateMessage struct {
	Date        time.Time
	ID          string
	Subject     string
	From        string
	BodyText    string
	BodyHTML    string
	Snippet     string
	Attachments []Attachment
}

// HasAttachments reports whether the message carries any attachments.
func (m *CandidateMessage) HasAttachments() bool {
	return len(m.Attachments) > 0
}
