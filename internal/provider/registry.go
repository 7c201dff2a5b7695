package provider

import (
	"fmt"
	"sync"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

// Constructor builds a fresh adapter instance for one provider type.
type Constructor func() (Adapter, error)

// Registry maps provider-type tags to adapter constructors. New provider
// types are added by registering a constructor; no other component branches
// on provider type.
type Registry struct {
	constructors map[model.ProviderType]Constructor
	mu           sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[model.ProviderType]Constructor),
	}
}

// Register adds a constructor for a provider type, replacing any existing one.
func (r *Registry) Register(providerType model.ProviderType, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[providerType] = constructor
}

// Get returns an adapter for the given provider type.
func (r *Registry) Get(providerType model.ProviderType) (Adapter, error) {
	r.mu.RLock()
	constructor, ok := r.constructors[providerType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownProvider, providerType)
	}
	return constructor()
}

// ForAccount resolves the adapter for a persisted account.
func (r *Registry) ForAccount(account *model.MailAccount) (Adapter, error) {
	if account == nil {
		return nil, fmt.Errorf("account cannot be nil")
	}
	return r.Get(account.Provider)
}

// Types returns the registered provider types, for diagnostics.
func (r *Registry) Types() []model.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]model.ProviderType, 0, len(r.constructors))
	for t := range r.constructors {
		types = append(types, t)
	}
	return types
}
