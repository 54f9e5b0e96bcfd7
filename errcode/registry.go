package errcode

import (
	"fmt"
	"sort"
	"sync"
)

// Registry guards against two errors sharing one code
type Registry struct {
	mu     sync.RWMutex
	errors map[int]*LayeredError
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{errors: make(map[int]*LayeredError)}
}

var globalRegistry = NewRegistry()

// Register adds err to the global registry and returns it unchanged.
// Panics when the code is already taken by a different message key.
func Register(err *LayeredError) *LayeredError {
	return globalRegistry.Register(err)
}

// Register adds err to the registry. Re-registering the same code and key is a no-op.
func (r *Registry) Register(err *LayeredError) *LayeredError {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.errors[err.code]; ok {
		if existing.msgKey != err.msgKey {
			panic(fmt.Sprintf(
				"error code conflict: code %d is already registered as %s, cannot register as %s",
				err.code, existing.msgKey, err.msgKey,
			))
		}
		return existing
	}

	r.errors[err.code] = err
	return err
}

// Lookup returns the sentinel registered for code
func (r *Registry) Lookup(code int) (*LayeredError, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	err, ok := r.errors[code]
	return err, ok
}

// All returns the registered sentinels ordered by code
func (r *Registry) All() []*LayeredError {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*LayeredError, 0, len(r.errors))
	for _, err := range r.errors {
		all = append(all, err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].code < all[j].code })
	return all
}

// Lookup looks code up in the global registry
func Lookup(code int) (*LayeredError, bool) {
	return globalRegistry.Lookup(code)
}

// All every code known to the configuration core, ordered by code
func All() []*LayeredError {
	return globalRegistry.All()
}
