package extract

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/provider"
	"github.com/Veraticus/paper-trail/internal/vision"
)

func TestExtract_AttachmentPath(t *testing.T) {
	msg := &model.CandidateMessage{
		ID:      "msg-1",
		Subject: "Your receipt",
		From:    "receipts@lidl.de",
		Date:    time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		Attachments: []model.Attachment{
			{ID: "att-1", Filename: "receipt.pdf", MimeType: "application/pdf", Size: 128},
		},
	}

	adapter := provider.NewMockAdapter([]model.CandidateMessage{*msg})
	adapter.Attachments["att-1"] = []byte("%PDF-1.4 fake")

	mockVision := vision.NewMockExtractor(&vision.Result{
		Date:     time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
		Merchant: "Lidl",
		Currency: "EUR",
		Evidence: "currency symbol € printed next to the total",
		Total:    23.45,
		Items: []model.LineItem{
			{Name: "Kaffee", Price: 3.5, Quantity: 2},
			{Name: "Brot", Price: 2.2, Quantity: 1},
		},
	})

	receipt, err := New(mockVision).Extract(context.Background(), adapter, model.Credentials{}, msg)
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, model.SourceImage, receipt.Source)
	assert.Equal(t, "Lidl", receipt.Merchant)
	assert.Equal(t, "EUR", receipt.Currency)
	assert.InDelta(t, 23.45, receipt.Total, 0.001)
	assert.Equal(t, "grocery", receipt.Category)
	assert.Equal(t, "msg-1", receipt.SourceID)
	assert.Equal(t, "mock", receipt.SourceProvider)
	assert.Equal(t, 2025, receipt.Date.Year())
	assert.Len(t, receipt.Items, 2)
	assert.Equal(t, 1, mockVision.CallCount())
}

func TestExtract_AttachmentFetchFailureFallsBackToBody(t *testing.T) {
	msg := &model.CandidateMessage{
		ID:       "msg-2",
		Subject:  "Order confirmation",
		From:     `"Acme Store" <orders@acme.com>`,
		BodyText: "Thanks for your order.\nOrder total: $24.99\n",
		Attachments: []model.Attachment{
			{ID: "missing", Filename: "receipt.png", MimeType: "image/png"},
		},
	}

	// No attachment bytes registered, so the fetch fails.
	adapter := provider.NewMockAdapter([]model.CandidateMessage{*msg})

	receipt, err := New(vision.NewMockExtractor(&vision.Result{Merchant: "ignored", Total: 1})).
		Extract(context.Background(), adapter, model.Credentials{}, msg)
	require.NoError(t, err)

	assert.Equal(t, model.SourceEmail, receipt.Source)
	assert.Equal(t, "Acme Store", receipt.Merchant)
	assert.InDelta(t, 24.99, receipt.Total, 0.001)
}

func TestExtract_VisionFailureFallsBackToBody(t *testing.T) {
	msg := &model.CandidateMessage{
		ID:       "msg-3",
		Subject:  "Your purchase",
		From:     "noreply@shop.example",
		BodyText: "Amount paid: $10.00",
		Attachments: []model.Attachment{
			{ID: "att-1", Filename: "scan.jpg", MimeType: "image/jpeg"},
		},
	}

	adapter := provider.NewMockAdapter([]model.CandidateMessage{*msg})
	adapter.Attachments["att-1"] = []byte("jpeg bytes")

	receipt, err := New(vision.NewFailingMockExtractor(fmt.Errorf("service overloaded"))).
		Extract(context.Background(), adapter, model.Credentials{}, msg)
	require.NoError(t, err)

	assert.Equal(t, model.SourceEmail, receipt.Source)
	assert.InDelta(t, 10.00, receipt.Total, 0.001)
}

func TestExtract_NilVisionUsesBodyPath(t *testing.T) {
	msg := &model.CandidateMessage{
		ID:       "msg-4",
		From:     "billing@netflix.com",
		Subject:  "Payment received",
		BodyText: "We received your payment of $15.49.",
		Attachments: []model.Attachment{
			{ID: "att-1", Filename: "logo.png", MimeType: "image/png"},
		},
	}
	adapter := provider.NewMockAdapter([]model.CandidateMessage{*msg})

	receipt, err := New(nil).Extract(context.Background(), adapter, model.Credentials{}, msg)
	require.NoError(t, err)

	assert.Equal(t, model.SourceEmail, receipt.Source)
	assert.Equal(t, "Netflix", receipt.Merchant)
	assert.Equal(t, "subscription", receipt.Category)
	assert.InDelta(t, 15.49, receipt.Total, 0.001)
}

func TestExtract_NotExtractable(t *testing.T) {
	msg := &model.CandidateMessage{
		ID:       "msg-5",
		Subject:  "Payment received",
		BodyText: "We will be in touch shortly.",
	}
	adapter := provider.NewMockAdapter([]model.CandidateMessage{*msg})

	receipt, err := New(nil).Extract(context.Background(), adapter, model.Credentials{}, msg)
	assert.Nil(t, receipt)
	assert.ErrorIs(t, err, common.ErrNotExtractable)
}

func TestExtract_AttachmentWithEmptyVisionResult(t *testing.T) {
	msg := &model.CandidateMessage{
		ID:      "msg-6",
		Subject: "Receipt",
		From:    `"Corner Cafe" <hello@cornercafe.example>`,
		BodyText: "Table 4\n" +
			"Flat White  $4.50\n" +
			"Total: $4.50\n",
		Attachments: []model.Attachment{
			{ID: "att-1", Filename: "blank.jpg", MimeType: "image/jpeg"},
		},
	}

	adapter := provider.NewMockAdapter([]model.CandidateMessage{*msg})
	adapter.Attachments["att-1"] = []byte("jpeg bytes")

	// Vision found nothing usable in the image.
	receipt, err := New(vision.NewMockExtractor(&vision.Result{})).
		Extract(context.Background(), adapter, model.Credentials{}, msg)
	require.NoError(t, err)

	assert.Equal(t, model.SourceEmail, receipt.Source)
	assert.Equal(t, "Corner Cafe", receipt.Merchant)
	assert.InDelta(t, 4.50, receipt.Total, 0.001)
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Lidl", "grocery"},
		{"Starbucks Coffee", "dining"},
		{"Uber Trip", "transport"},
		{"Netflix", "subscription"},
		{"Amazon.com", "shopping"},
		{"Quantum Widgets Inc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, categoryFor(tt.text))
		})
	}
}

func TestUsableAttachment(t *testing.T) {
	msg := &model.CandidateMessage{
		Attachments: []model.Attachment{
			{ID: "a", MimeType: "text/calendar"},
			{ID: "b", MimeType: "application/pdf"},
			{ID: "c", MimeType: "image/png"},
		},
	}

	att := usableAttachment(msg)
	require.NotNil(t, att)
	assert.Equal(t, "b", att.ID)

	assert.Nil(t, usableAttachment(&model.CandidateMessage{
		Attachments: []model.Attachment{{ID: "a", MimeType: "text/plain"}},
	}))
}
