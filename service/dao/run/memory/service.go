// Package memory provides an in-memory run store, used by tests and by
// short-lived CLI invocations that do not need durable history.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao"
	"github.com/mediseg/gridrun/service/dao/criteria"
)

// Service implements an in-memory, thread-safe store for runs. Save keeps a
// shallow copy so later mutation by the caller does not leak into the store.
type Service struct {
	runs map[string]*model.Run
	mux  sync.RWMutex
}

var _ dao.Service[string, model.Run] = (*Service)(nil)

func (s *Service) Save(_ context.Context, run *model.Run) error {
	if run == nil {
		return dao.ErrNilEntity
	}
	if run.ID == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	stored := *run
	s.runs[run.ID] = &stored
	return nil
}

func (s *Service) Load(_ context.Context, id string) (*model.Run, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mux.RLock()
	run, ok := s.runs[id]
	s.mux.RUnlock()

	if !ok {
		return nil, dao.ErrNotFound
	}
	out := *run
	return &out, nil
}

func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.runs[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.runs, id)
	return nil
}

func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*model.Run, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	out := make([]*model.Run, 0, len(s.runs))
	for _, run := range s.runs {
		if !criteria.Match(runAttributes(run), parameters) {
			continue
		}
		stored := *run
		out = append(out, &stored)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func runAttributes(run *model.Run) map[string]string {
	return map[string]string{
		"State":    string(run.State),
		"Launcher": run.Launcher,
	}
}

func New() *Service {
	return &Service{runs: map[string]*model.Run{}}
}
