package descriptor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownSeller is returned when no descriptor is registered for a seller ID.
var ErrUnknownSeller = errors.New("unknown seller")

// Registry holds store descriptors keyed by seller ID. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sellers map[string]*StoreDescriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sellers: make(map[string]*StoreDescriptor),
	}
}

// Register validates a descriptor and adds it to the registry. Registering
// a seller ID that already exists replaces the previous descriptor, so
// re-registration is idempotent.
func (r *Registry) Register(d StoreDescriptor) error {
	d.applyDefaults()
	if err := d.Validate(); err != nil {
		return err
	}

	clone := d.Clone()
	r.mu.Lock()
	r.sellers[d.SellerID] = &clone
	r.mu.Unlock()
	return nil
}

// Resolve returns a copy of the descriptor for the given seller ID. The
// returned value may be mutated freely without affecting the registry.
// Unknown seller IDs return an error wrapping ErrUnknownSeller.
func (r *Registry) Resolve(sellerID string) (StoreDescriptor, error) {
	r.mu.RLock()
	d, ok := r.sellers[sellerID]
	r.mu.RUnlock()

	if !ok {
		return StoreDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownSeller, sellerID)
	}
	return d.Clone(), nil
}

// Sellers returns all registered seller IDs in sorted order.
func (r *Registry) Sellers() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sellers))
	for id := range r.sellers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of registered sellers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sellers)
}

// MatchURL returns the descriptor whose base URL prefixes the given URL.
// It is a convenience for mapping a bare product URL back to its seller.
func (r *Registry) MatchURL(rawURL string) (StoreDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.sellers {
		if d.BaseURL != "" && strings.HasPrefix(rawURL, d.BaseURL) {
			return d.Clone(), true
		}
	}
	return StoreDescriptor{}, false
}
