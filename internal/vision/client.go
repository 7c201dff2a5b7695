// Package vision provides the client for the external receipt-image
// extraction capability. The service is opaque to us: we send attachment
// bytes and get structured receipt fields back, and its currency opinion is
// treated as just another guess for the fusion engine.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Result is the structured output of one image extraction.
type Result struct {
	Date     time.Time
	Merchant string
	Currency string
	Evidence string
	Items    []model.LineItem
	Total    float64
}

// Extractor is the contract for the image-extraction capability.
type Extractor interface {
	ExtractReceipt(ctx context.Context, data []byte, mimeType string) (*Result, error)
}

// Config holds the settings for the HTTP extraction client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// httpExtractor implements Extractor against an HTTP JSON extraction service.
type httpExtractor struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewClient creates an extraction client from config.
func NewClient(cfg Config) (Extractor, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("extraction endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extraction API key is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &httpExtractor{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type extractionRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mime_type"`
}

type extractionResponse struct {
	Merchant string  `json:"merchant"`
	Date     string  `json:"date"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
	Evidence string  `json:"evidence"`
	Items    []struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	} `json:"items"`
}

// ExtractReceipt sends attachment bytes to the extraction service and parses
// the structured response.
func (e *httpExtractor) ExtractReceipt(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no attachment data to extract")
	}

	payload := extractionRequest{
		Image:    base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed extractionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &Result{
		Merchant: parsed.Merchant,
		Total:    parsed.Total,
		Currency: parsed.Currency,
		Evidence: parsed.Evidence,
	}
	if parsed.Date != "" {
		if t, err := time.Parse("2006-01-02", parsed.Date); err == nil {
			result.Date = t
		}
	}
	for _, item := range parsed.Items {
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		result.Items = append(result.Items, model.LineItem{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: quantity,
		})
	}

	return result, nil
}
