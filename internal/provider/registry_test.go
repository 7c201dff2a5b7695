package provider

import (
	"testing"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	mock := NewMockAdapter(nil)
	registry.Register(model.ProviderType("mock"), func() (Adapter, error) {
		return mock, nil
	})

	adapter, err := registry.Get(model.ProviderType("mock"))
	require.NoError(t, err)
	assert.Same(t, mock, adapter.(*MockAdapter))
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get(model.ProviderGmail)
	assert.ErrorIs(t, err, common.ErrUnknownProvider)
}

func TestRegistry_ForAccount(t *testing.T) {
	registry := NewRegistry()
	registry.Register(model.ProviderType("mock"), func() (Adapter, error) {
		return NewMockAdapter(nil), nil
	})

	account := &model.MailAccount{ID: "acct-1", Provider: model.ProviderType("mock")}
	adapter, err := registry.ForAccount(account)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderType("mock"), adapter.Type())

	_, err = registry.ForAccount(nil)
	assert.Error(t, err)

	_, err = registry.ForAccount(&model.MailAccount{Provider: model.ProviderIMAP})
	assert.ErrorIs(t, err, common.ErrUnknownProvider)
}
