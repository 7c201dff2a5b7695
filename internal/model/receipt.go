package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// SourceType records which extraction path produced a receipt.
type SourceType string

const (
	// SourceEmail means the receipt was extracted from a message body.
	SourceEmail SourceType = "email"
	// SourceImage means the receipt was extracted from an attachment image/PDF.
	SourceImage SourceType = "image"
)

// LineItem is one purchased item on a receipt.
type LineItem struct {
	Name     string
	Price    float64
	Quantity int
}

// ExtractedReceipt is a candidate structured receipt prior to persistence.
// It is promoted to a persisted Receipt only after extraction succeeds.
type ExtractedReceipt struct {
	Date           time.Time
	Merchant       string
	Currency       string
	Category       string
	SourceID       string
	SourceProvider string
	Source         SourceType
	Items          []LineItem
	Total          float64
}

// Receipt is a persisted, currency-normalized purchase record.
// Currency is always a non-empty 3-letter code and Total is non-negative.
type Receipt struct {
	Date           time.Time
	CreatedAt      time.Time
	ID             string
	AccountID      string
	Merchant       string
	Currency       string
	Category       string
	SourceID       string
	SourceProvider string
	Hash           string
	Source         SourceType
	Items          []LineItem
	Total          float64
}

// GenerateHash creates a stable hash for duplicate suppression, so
// re-running a sync over the same mailbox does not duplicate receipts.
func (r *Receipt) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		r.Date.Format("2006-01-02"),
		r.Total,
		r.Merchant,
		r.SourceID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
