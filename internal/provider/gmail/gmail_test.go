package gmail

import (
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/callback",
		StateSecret:  "test-state-secret",
	})
	require.NoError(t, err)
	return adapter
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Config{ClientSecret: "secret", StateSecret: "s"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = New(Config{ClientID: "id", ClientSecret: "secret"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestAdapter_StateRoundTrip(t *testing.T) {
	adapter := newTestAdapter(t)

	url, err := adapter.GetAuthURL("user-42")
	require.NoError(t, err)
	assert.Contains(t, url, "accounts.google.com")
	assert.Contains(t, url, "state=")

	// Pull the state parameter back out and verify it decodes to the user.
	idx := strings.Index(url, "state=")
	require.NotEqual(t, -1, idx)
	state := url[idx+len("state="):]
	if amp := strings.Index(state, "&"); amp != -1 {
		state = state[:amp]
	}

	userID, err := adapter.DecodeState(state)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestAdapter_StateTamperDetected(t *testing.T) {
	adapter := newTestAdapter(t)

	state, err := adapter.encodeState(statePayload{UserID: "user-42", IssuedAt: time.Now().Unix()})
	require.NoError(t, err)

	// Flip a character in the payload half.
	tampered := "x" + state[1:]
	_, err = adapter.DecodeState(tampered)
	assert.ErrorIs(t, err, common.ErrAuthFailed)

	_, err = adapter.DecodeState("not-even-a-state")
	assert.ErrorIs(t, err, common.ErrAuthFailed)
}

func TestAdapter_StateSecretMismatch(t *testing.T) {
	adapter := newTestAdapter(t)
	other, err := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		StateSecret:  "different-secret",
	})
	require.NoError(t, err)

	state, err := adapter.encodeState(statePayload{UserID: "user-42"})
	require.NoError(t, err)

	_, err = other.DecodeState(state)
	assert.ErrorIs(t, err, common.ErrAuthFailed)
}

func TestDefaultQuery_IsReceiptBiased(t *testing.T) {
	assert.Contains(t, DefaultQuery, "receipt")
	assert.Contains(t, DefaultQuery, "newer_than:30d")
	assert.Contains(t, DefaultQuery, "-in:spam")
}

func TestParseEmailDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "rfc1123z", input: "Mon, 02 Jan 2026 15:04:05 -0700"},
		{name: "single digit day", input: "Mon, 2 Jan 2026 15:04:05 -0700"},
		{name: "timezone name suffix", input: "Mon, 02 Jan 2026 15:04:05 -0700 (UTC)"},
		{name: "garbage", input: "not a date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseEmailDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2026, parsed.Year())
		})
	}
}
