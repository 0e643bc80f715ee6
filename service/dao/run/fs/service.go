// Package fs persists runs as JSON documents under the workspace so that
// history survives process restarts and can be inspected with plain tools.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao"
	"github.com/mediseg/gridrun/service/dao/criteria"
)

// Service implements a filesystem-based run store.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ dao.Service[string, model.Run] = (*Service)(nil)

// Save persists a run to the filesystem.
func (s *Service) Save(ctx context.Context, run *model.Run) error {
	if run == nil {
		return dao.ErrNilEntity
	}
	if run.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	filePath := s.runPath(run.ID)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save run to %s: %w", filePath, err)
	}
	return nil
}

// Load retrieves a run from the filesystem.
func (s *Service) Load(ctx context.Context, id string) (*model.Run, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.runPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check run %s: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", id, err)
	}
	var run model.Run
	if err = json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return &run, nil
}

// Delete removes a run from the filesystem.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.runPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check run %s: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err = s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}

// List returns all stored runs passing the supplied filters, oldest first.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runs []*model.Run
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			continue
		}
		var run model.Run
		if err = json.Unmarshal(data, &run); err != nil {
			continue
		}
		if !criteria.Match(runAttributes(&run), parameters) {
			continue
		}
		runs = append(runs, &run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
	return runs, nil
}

func runAttributes(run *model.Run) map[string]string {
	return map[string]string{
		"State":    string(run.State),
		"Launcher": run.Launcher,
	}
}

func (s *Service) runPath(id string) string {
	return path.Join(s.basePath, fmt.Sprintf("%s.json", id))
}

// New creates a filesystem run store rooted at basePath.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	fs := afs.New()
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	return &Service{basePath: basePath, fs: fs}, nil
}
