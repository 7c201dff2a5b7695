package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/paper-trail/internal/model"
)

// MockAdapter is a synthetic provider for tests. Messages are served from
// memory, and individual message IDs can be made to fail to exercise the
// orchestrator's failure isolation.
type MockAdapter struct {
	FailFetch       map[string]error
	Attachments     map[string][]byte
	VerifyErr       error
	SearchErr       error
	RefreshedCreds  *model.Credentials
	Messages        []model.CandidateMessage
	mu              sync.Mutex
	searchCalls     int
	getMessageCalls int
}

// NewMockAdapter creates a mock serving the given messages.
func NewMockAdapter(messages []model.CandidateMessage) *MockAdapter {
	return &MockAdapter{
		Messages:    messages,
		FailFetch:   make(map[string]error),
		Attachments: make(map[string][]byte),
	}
}

// Type returns a mock provider tag.
func (m *MockAdapter) Type() model.ProviderType {
	return model.ProviderType("mock")
}

// GetAuthURL returns a synthetic auth URL.
func (m *MockAdapter) GetAuthURL(userID string) (string, error) {
	return "https://mock.example.com/auth?state=" + userID, nil
}

// HandleCallback returns synthetic credentials.
func (m *MockAdapter) HandleCallback(_ context.Context, code string) (model.Credentials, string, error) {
	if code == "" {
		return model.Credentials{}, "", fmt.Errorf("empty authorization code")
	}
	return model.Credentials{AccessToken: "mock-token"}, "mock@example.com", nil
}

// VerifyTokens returns the refreshed bundle if one is configured.
func (m *MockAdapter) VerifyTokens(_ context.Context, creds model.Credentials) (model.Credentials, error) {
	if m.VerifyErr != nil {
		return model.Credentials{}, m.VerifyErr
	}
	if m.RefreshedCreds != nil {
		return *m.RefreshedCreds, nil
	}
	return creds, nil
}

// SearchEmails lists the configured message summaries.
func (m *MockAdapter) SearchEmails(_ context.Context, _ model.Credentials, _ string) ([]model.CandidateMessage, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	summaries := make([]model.CandidateMessage, len(m.Messages))
	for i, msg := range m.Messages {
		summaries[i] = model.CandidateMessage{
			ID:      msg.ID,
			Subject: msg.Subject,
			From:    msg.From,
			Date:    msg.Date,
			Snippet: msg.Snippet,
		}
	}
	return summaries, nil
}

// GetMessage returns the full message, or the configured per-message error.
func (m *MockAdapter) GetMessage(_ context.Context, _ model.Credentials, messageID string) (*model.CandidateMessage, error) {
	m.mu.Lock()
	m.getMessageCalls++
	m.mu.Unlock()

	if err, ok := m.FailFetch[messageID]; ok {
		return nil, err
	}
	for i := range m.Messages {
		if m.Messages[i].ID == messageID {
			msg := m.Messages[i]
			return &msg, nil
		}
	}
	return nil, fmt.Errorf("message %s not found", messageID)
}

// GetAttachment returns configured attachment bytes keyed by attachment ID.
func (m *MockAdapter) GetAttachment(_ context.Context, _ model.Credentials, _, attachmentID string) ([]byte, error) {
	data, ok := m.Attachments[attachmentID]
	if !ok {
		return nil, fmt.Errorf("attachment %s not found", attachmentID)
	}
	return data, nil
}

// SearchCalls returns how many times SearchEmails was invoked.
func (m *MockAdapter) SearchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls
}

// GetMessageCalls returns how many times GetMessage was invoked.
func (m *MockAdapter) GetMessageCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getMessageCalls
}
