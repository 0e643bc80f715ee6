// Package watcher records checkpoint files as they appear, so a failed run
// can be resumed from its newest checkpoint without the user naming one.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mediseg/gridrun/internal/clock"
	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao"
)

// DefaultExtensions are the checkpoint file suffixes recognized out of the box.
var DefaultExtensions = []string{".pt", ".pth", ".ckpt"}

// Service watches checkpoint directories and stamps the newest checkpoint
// onto the owning run record.
type Service struct {
	runDAO     dao.Service[string, model.Run]
	extensions []string
	logger     *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	dirs    map[string]string // directory -> run ID
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// Option configures the watcher service.
type Option func(*Service)

// WithExtensions overrides the recognized checkpoint suffixes.
func WithExtensions(extensions ...string) Option {
	return func(s *Service) {
		s.extensions = extensions
	}
}

// WithLogger sets the logger; defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a checkpoint watcher.
func New(runDAO dao.Service[string, model.Run], opts ...Option) (*Service, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ret := &Service{
		runDAO:     runDAO,
		extensions: DefaultExtensions,
		watcher:    watcher,
		dirs:       make(map[string]string),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	return ret, nil
}

// Watch registers a run's checkpoint directory.
func (s *Service) Watch(run *model.Run, dir string) error {
	if dir == "" {
		return fmt.Errorf("checkpoint directory cannot be empty")
	}
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.mu.Lock()
	s.dirs[filepath.Clean(dir)] = run.ID
	s.mu.Unlock()
	return nil
}

// Unwatch removes a directory from the watch set.
func (s *Service) Unwatch(dir string) {
	_ = s.watcher.Remove(dir)
	s.mu.Lock()
	delete(s.dirs, filepath.Clean(dir))
	s.mu.Unlock()
}

// Start launches the event loop; non-blocking.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()
	go s.run(ctx)
	return nil
}

// Stop stops the event loop and closes the underlying watcher.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	_ = s.watcher.Close()
}

func (s *Service) run(ctx context.Context) {
	defer close(s.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !s.isCheckpoint(event.Name) {
		return
	}
	s.mu.Lock()
	runID, ok := s.dirs[filepath.Dir(event.Name)]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.recordCheckpoint(ctx, runID, event.Name); err != nil {
		s.logger.Warn("failed to record checkpoint", zap.String("run", runID), zap.Error(err))
	}
}

func (s *Service) isCheckpoint(name string) bool {
	for _, ext := range s.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (s *Service) recordCheckpoint(ctx context.Context, runID, path string) error {
	run, err := s.runDAO.Load(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if run.LastCheckpoint == path {
		return nil
	}
	run.LastCheckpoint = path
	run.UpdatedAt = clock.Now()
	if err := s.runDAO.Save(ctx, run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", runID, err)
	}
	return nil
}

// WaitForCheckpoint polls until the run records a checkpoint, used by tests
// and the resume command.
func (s *Service) WaitForCheckpoint(ctx context.Context, runID string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		run, err := s.runDAO.Load(ctx, runID)
		if err == nil && run.LastCheckpoint != "" {
			return run.LastCheckpoint, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("no checkpoint recorded for run %s within %s", runID, timeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}
