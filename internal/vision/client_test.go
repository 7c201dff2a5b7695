package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{APIKey: "key"})
	assert.Error(t, err)

	_, err = NewClient(Config{Endpoint: "https://example.com/extract"})
	assert.Error(t, err)

	client, err := NewClient(Config{Endpoint: "https://example.com/extract", APIKey: "key"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestHTTPExtractor_ExtractReceipt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req extractionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/pdf", req.MimeType)
		assert.NotEmpty(t, req.Image)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"merchant": "Waitrose",
			"date":     "2026-03-14",
			"total":    23.50,
			"currency": "GBP",
			"evidence": "£ symbol printed next to total",
			"items": []map[string]any{
				{"name": "Milk", "price": 1.20, "quantity": 2},
				{"name": "Bread", "price": 2.10},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	result, err := client.ExtractReceipt(context.Background(), []byte("%PDF-fake"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "Waitrose", result.Merchant)
	assert.InDelta(t, 23.50, result.Total, 0.001)
	assert.Equal(t, "GBP", result.Currency)
	assert.Equal(t, 2026, result.Date.Year())
	require.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.Items[0].Quantity)
	// Missing quantity defaults to 1.
	assert.Equal(t, 1, result.Items[1].Quantity)
}

func TestHTTPExtractor_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	_, err = client.ExtractReceipt(context.Background(), []byte("data"), "image/png")
	assert.ErrorContains(t, err, "status 503")
}

func TestHTTPExtractor_EmptyData(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "https://example.com", APIKey: "key"})
	require.NoError(t, err)

	_, err = client.ExtractReceipt(context.Background(), nil, "image/png")
	assert.Error(t, err)
}
