// Package extract turns a classified receipt message into a structured
// receipt. Attachment-based extraction is preferred when a usable image or
// PDF attachment is present; otherwise the message body is mined with
// pattern extraction. Either way the result's currency is decided by the
// fusion engine before it is returned.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/currency"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/provider"
	"github.com/Veraticus/paper-trail/internal/vision"
)

// Extractor pulls structured receipt fields out of candidate messages.
type Extractor struct {
	vision vision.Extractor
}

// New creates an extractor. The vision extractor may be nil, in which case
// only body-text extraction is available.
func New(v vision.Extractor) *Extractor {
	return &Extractor{vision: v}
}

// Extract produces a structured receipt from one message, or
// common.ErrNotExtractable when neither a merchant nor a total can be found.
func (e *Extractor) Extract(ctx context.Context, adapter provider.Adapter, creds model.Credentials, msg *model.CandidateMessage) (*model.ExtractedReceipt, error) {
	if msg == nil {
		return nil, fmt.Errorf("no message to extract")
	}

	if att := usableAttachment(msg); att != nil && e.vision != nil {
		receipt, err := e.fromAttachment(ctx, adapter, creds, msg, att)
		if err == nil {
			return receipt, nil
		}
		slog.Warn("Attachment extraction failed, falling back to body",
			"message_id", msg.ID,
			"attachment", att.Filename,
			"error", err)
	}

	return e.fromBody(msg, adapter.Type())
}

// usableAttachment returns the first attachment the image-extraction
// capability can handle.
func usableAttachment(msg *model.CandidateMessage) *model.Attachment {
	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		if strings.HasPrefix(att.MimeType, "image/") || att.MimeType == "application/pdf" {
			return att
		}
	}
	return nil
}

func (e *Extractor) fromAttachment(ctx context.Context, adapter provider.Adapter, creds model.Credentials, msg *model.CandidateMessage, att *model.Attachment) (*model.ExtractedReceipt, error) {
	data, err := adapter.GetAttachment(ctx, creds, msg.ID, att.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachment: %w", err)
	}

	result, err := e.vision.ExtractReceipt(ctx, data, att.MimeType)
	if err != nil {
		return nil, fmt.Errorf("image extraction failed: %w", err)
	}
	if result.Merchant == "" && result.Total == 0 {
		return nil, common.ErrNotExtractable
	}

	var prior *model.CurrencyGuess
	if result.Currency != "" {
		prior = &model.CurrencyGuess{
			Code:       result.Currency,
			Confidence: 0.6,
			Evidence:   result.Evidence,
		}
	}

	prices := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		prices = append(prices, fmt.Sprintf("%.2f", item.Price))
	}
	guess := currency.Detect(currency.Input{
		Prior:    prior,
		Merchant: result.Merchant,
		Notes:    msg.Subject,
		Total:    fmt.Sprintf("%.2f", result.Total),
		Prices:   prices,
	})

	date := result.Date
	if date.IsZero() {
		date = msg.Date
	}

	receipt := &model.ExtractedReceipt{
		Date:           date,
		Merchant:       result.Merchant,
		Currency:       guess.Code,
		Category:       categoryFor(result.Merchant + " " + msg.Subject),
		SourceID:       msg.ID,
		SourceProvider: string(adapter.Type()),
		Source:         model.SourceImage,
		Items:          result.Items,
		Total:          result.Total,
	}

	slog.Debug("Extracted receipt from attachment",
		"message_id", msg.ID,
		"merchant", receipt.Merchant,
		"total", receipt.Total,
		"currency", receipt.Currency,
		"currency_evidence", guess.Evidence)
	return receipt, nil
}

// categoryHints maps coarse spending categories to merchant keywords,
// checked in order with the first hit winning.
var categoryHints = []struct {
	category string
	keywords []string
}{
	{"grocery", []string{"grocery", "supermarket", "market", "lidl", "aldi", "tesco", "carrefour", "whole foods", "kroger", "safeway"}},
	{"dining", []string{"restaurant", "cafe", "coffee", "pizza", "burger", "starbucks", "mcdonald", "doordash", "grubhub", "deliveroo"}},
	{"transport", []string{"uber", "lyft", "taxi", "transit", "airline", "airways", "railways", "parking", "shell", "chevron"}},
	{"subscription", []string{"netflix", "spotify", "hulu", "subscription", "membership", "prime video", "icloud"}},
	{"shopping", []string{"amazon", "ebay", "etsy", "walmart", "target", "ikea", "store", "shop"}},
}

// categoryFor assigns a coarse category from merchant and subject text.
// Unknown merchants get an empty category.
func categoryFor(text string) string {
	lowered := strings.ToLower(text)
	for _, hint := range categoryHints {
		for _, keyword := range hint.keywords {
			if strings.Contains(lowered, keyword) {
				return hint.category
			}
		}
	}
	return ""
}
