// Package launcher defines the contract between the engine and the backends
// that actually start training jobs, whether through a cluster scheduler or
// as a local process.
package launcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/mediseg/gridrun/model"
)

// Service starts training runs and reports on them. Submit returns the
// backend job handle; Status maps the backend's view onto a run state.
type Service interface {
	Name() string

	// Submit starts the run and returns the scheduler job ID or process handle.
	Submit(ctx context.Context, run *model.Run) (string, error)

	// Status reports the current state of a previously submitted run.
	Status(ctx context.Context, run *model.Run) (model.RunState, error)

	// Cancel stops a queued or running job.
	Cancel(ctx context.Context, run *model.Run) error
}

// Registry holds the configured launchers by name.
type Registry struct {
	mux       sync.RWMutex
	launchers map[string]Service
}

func NewRegistry() *Registry {
	return &Registry{launchers: make(map[string]Service)}
}

func (r *Registry) Register(service Service) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.launchers[service.Name()] = service
}

func (r *Registry) Lookup(name string) (Service, error) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	service, ok := r.launchers[name]
	if !ok {
		return nil, fmt.Errorf("unknown launcher: %s", name)
	}
	return service, nil
}

func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	names := make([]string, 0, len(r.launchers))
	for name := range r.launchers {
		names = append(names, name)
	}
	return names
}
