package ingest

import (
	"context"
	"sync"

	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
)

// Handler executes one job type. Handlers decode what they need from
// job.Source, update job.Progress as work proceeds, and must check ctx.Done()
// periodically so shutdown does not strand a half-ingested file.
type Handler interface {
	Execute(ctx context.Context, job *Job) error

	// Name routes jobs to this handler (e.g. "csv-day").
	Name() string
}

// Registry manages handlers by name. Thread-safe for concurrent registration
// and lookup.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler using its name.
// Panics if a handler is already registered with that name.
func (r *Registry) Register(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := handler.Name()
	if _, exists := r.handlers[name]; exists {
		panic("handler already registered for name: " + name)
	}
	r.handlers[name] = handler
}

// Get retrieves the handler for a name, nil if none is registered.
func (r *Registry) Get(name string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[name]
}

// Names returns all registered handler names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// execute dispatches a job to its registered handler.
func (r *Registry) execute(ctx context.Context, job *Job) error {
	if job.HandlerName == "" {
		return errors.New("job missing handler_name")
	}

	handler := r.Get(job.HandlerName)
	if handler == nil {
		return errors.Newf("no handler registered for name: %s", job.HandlerName)
	}
	return handler.Execute(ctx, job)
}
