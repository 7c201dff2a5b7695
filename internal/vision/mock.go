package vision

import (
	"context"
	"fmt"
	"sync"
)

// MockExtractor is a test double for the image-extraction capability.
type MockExtractor struct {
	result    *Result
	err       error
	mu        sync.Mutex
	callCount int
}

// NewMockExtractor creates a mock that returns the given result.
func NewMockExtractor(result *Result) *MockExtractor {
	return &MockExtractor{result: result}
}

// NewFailingMockExtractor creates a mock that always errors.
func NewFailingMockExtractor(err error) *MockExtractor {
	return &MockExtractor{err: err}
}

// ExtractReceipt returns the configured result or error.
func (m *MockExtractor) ExtractReceipt(_ context.Context, data []byte, _ string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++

	if m.err != nil {
		return nil, m.err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no attachment data to extract")
	}
	return m.result, nil
}

// CallCount returns how many times ExtractReceipt was invoked.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
