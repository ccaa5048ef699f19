// Package registry maps graph factory names to implementations, so hosts and
// config files can refer to a factory by name.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tether/pkg/render"
)

// ErrFactoryNotFound is returned by Get for unregistered names.
var ErrFactoryNotFound = errors.New("graph factory not found")

// Registry manages the available graph factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]render.GraphFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]render.GraphFactory),
	}
}

// Register adds a factory. A factory with the same name is overwritten.
func (r *Registry) Register(name string, f render.GraphFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get looks up a factory by name.
func (r *Registry) Get(name string) (render.GraphFactory, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFactoryNotFound, name)
	}
	return f, nil
}

// Names lists the registered names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
