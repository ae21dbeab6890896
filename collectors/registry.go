// Package collectors defines the collector contract and the name-to-collector
// registry the runner resolves against.
package collectors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"listings-aggregator/models"
)

var (
	// ErrUnknownCollector is returned when no collector is registered under a name.
	ErrUnknownCollector = errors.New("collectors: unknown collector")
	// ErrInvalidResult is returned when a collector produced no table at all.
	ErrInvalidResult = errors.New("collectors: invalid result")
)

// Collector fetches items from one source and returns them as a table.
// A collector that cannot produce data returns an error instead.
type Collector interface {
	Name() string
	Collect(ctx context.Context) (*models.Table, error)
}

// Func adapts a plain function to the Collector interface.
type Func struct {
	ID string
	Fn func(ctx context.Context) (*models.Table, error)
}

func (f Func) Name() string { return f.ID }

func (f Func) Collect(ctx context.Context) (*models.Table, error) {
	return f.Fn(ctx)
}

// Registry maps collector names to implementations. It is filled once at
// startup and read during runs.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{collectors: make(map[string]Collector)}
}

// Register adds c under c.Name(). Registering a name twice is an error.
func (r *Registry) Register(c Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if name == "" {
		return errors.New("collectors: empty collector name")
	}
	if _, exists := r.collectors[name]; exists {
		return fmt.Errorf("collectors: %q already registered", name)
	}
	r.collectors[name] = c
	return nil
}

// Lookup returns the collector registered under name.
func (r *Registry) Lookup(name string) (Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollector, name)
	}
	return c, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
