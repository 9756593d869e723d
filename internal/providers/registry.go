package providers

import (
	"fmt"
	"sync"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/payment"
	"golang.org/x/sync/singleflight"
)

// builders is the closed set of supported adapters. The list is fixed at
// compile time; there is no plugin loading.
var builders = map[payment.ProviderType]func() Provider{
	payment.ProviderStripe:     func() Provider { return NewStripeProvider() },
	payment.ProviderPayPal:     func() Provider { return NewPayPalProvider() },
	payment.ProviderMollie:     func() Provider { return NewMollieProvider() },
	payment.ProviderGoCardless: func() Provider { return NewGoCardlessProvider() },
	payment.ProviderPayPlug:    func() Provider { return NewPayPlugProvider() },
}

// Registry constructs, initializes and caches adapter instances keyed by
// (provider type, tenant). It is an explicit value passed into call sites,
// never a package-level singleton, so tests can build isolated registries.
//
// The cache only avoids re-validating credentials on every call; it is not a
// correctness mechanism. Duplicate-side-effect guarantees belong to callers
// via idempotency keys.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Provider
	group    singleflight.Group
	builders map[payment.ProviderType]func() Provider
}

// NewRegistry creates an empty registry over the supported provider set.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Provider),
		builders: builders,
	}
}

func cacheKey(t payment.ProviderType, tenantID string) string {
	return fmt.Sprintf("%s/%s", t, tenantID)
}

// CreateProvider returns the cached, initialized adapter for the config's
// (type, tenant) key, building and initializing one when absent. Concurrent
// first-time builds for the same key collapse into a single construction.
// An unknown provider type fails with ErrUnsupportedProvider before
// Initialize is ever called.
func (r *Registry) CreateProvider(t payment.ProviderType, cfg payment.ProviderConfig) (Provider, error) {
	key := cacheKey(t, cfg.TenantID)

	r.mu.RLock()
	if p, ok := r.adapters[key]; ok && p.IsConfigured() {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.RLock()
		if p, ok := r.adapters[key]; ok && p.IsConfigured() {
			r.mu.RUnlock()
			return p, nil
		}
		r.mu.RUnlock()

		build, ok := r.builders[t]
		if !ok {
			return nil, fmt.Errorf("%q: %w", t, domainErrors.ErrUnsupportedProvider)
		}

		p := build()
		if err := p.Initialize(cfg); err != nil {
			// Initialize failures pass through unchanged.
			return nil, err
		}

		r.mu.Lock()
		r.adapters[key] = p
		r.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Provider), nil
}

// GetProvider looks up a cached adapter without constructing one.
func (r *Registry) GetProvider(t payment.ProviderType, tenantID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.adapters[cacheKey(t, tenantID)]
	return p, ok
}

// AvailableProviders returns the fixed list of supported provider types.
func (r *Registry) AvailableProviders() []payment.ProviderType {
	return payment.SupportedProviders
}

// ResetProvider evicts the cache entry for one (type, tenant) key, forcing
// the next CreateProvider to rebuild and re-initialize. Required whenever a
// tenant's stored credentials change.
func (r *Registry) ResetProvider(t payment.ProviderType, tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, cacheKey(t, tenantID))
}

// ResetAll evicts every cached adapter.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = make(map[string]Provider)
}

// register installs a custom builder, shadowing the default one. Test hook.
func (r *Registry) register(t payment.ProviderType, build func() Provider) {
	if r.builders == nil {
		r.builders = make(map[payment.ProviderType]func() Provider)
	}
	// Copy-on-write so the package-level builder table stays untouched.
	copied := make(map[payment.ProviderType]func() Provider, len(r.builders)+1)
	for k, v := range r.builders {
		copied[k] = v
	}
	copied[t] = build
	r.builders = copied
}
