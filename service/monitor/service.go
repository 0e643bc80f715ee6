// Package monitor keeps run records in sync with the scheduler. A ticker
// publishes a poll message for every non-terminal run; a pool of workers
// consumes them, asks the run's launcher for its current state and persists
// and publishes any transition.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mediseg/gridrun/internal/clock"
	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao"
	"github.com/mediseg/gridrun/service/event"
	"github.com/mediseg/gridrun/service/launcher"
	"github.com/mediseg/gridrun/service/messaging"
	"github.com/mediseg/gridrun/tracing"
)

// Config represents monitor service configuration
type Config struct {
	// WorkerCount is the number of workers processing poll messages
	WorkerCount int

	// PollInterval is the time between scheduler sweeps
	PollInterval time.Duration
}

// DefaultConfig returns the default monitor configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount:  3,
		PollInterval: 15 * time.Second,
	}
}

// Poll asks a worker to refresh one run.
type Poll struct {
	RunID string `json:"runID"`
}

// Service tracks submitted runs until they reach a terminal state.
type Service struct {
	config    Config
	runDAO    dao.Service[string, model.Run]
	launchers *launcher.Registry
	queue     messaging.Queue[Poll]
	events    *event.Service
	logger    *zap.Logger

	workers    []*worker
	workerWg   sync.WaitGroup
	tickerWg   sync.WaitGroup
	shutdownCh chan struct{}
	cancelFns  []context.CancelFunc
	mux        sync.Mutex
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a monitor service
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.runDAO == nil {
		return nil, fmt.Errorf("run DAO is required")
	}
	if s.launchers == nil {
		return nil, fmt.Errorf("launcher registry is required")
	}
	if s.queue == nil {
		return nil, fmt.Errorf("poll queue is required")
	}
	return s, nil
}

// Start launches the sweep ticker and the worker pool.
func (s *Service) Start(ctx context.Context) error {
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		worker := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.mux.Lock()
		s.workers = append(s.workers, worker)
		s.cancelFns = append(s.cancelFns, cancel)
		s.mux.Unlock()
		s.workerWg.Add(1)
		go worker.run()
	}

	tickerCtx, cancel := context.WithCancel(ctx)
	s.mux.Lock()
	s.cancelFns = append(s.cancelFns, cancel)
	s.mux.Unlock()
	s.tickerWg.Add(1)
	go s.sweepLoop(tickerCtx)
	return nil
}

// Shutdown stops the ticker and workers and waits for them to drain.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
	s.mux.Lock()
	cancelFns := s.cancelFns
	s.mux.Unlock()
	for _, cancel := range cancelFns {
		cancel()
	}
	s.tickerWg.Wait()
	s.workerWg.Wait()
}

func (s *Service) sweepLoop(ctx context.Context) {
	defer s.tickerWg.Done()
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		if err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-s.shutdownCh:
			return
		case <-ticker.C:
		}
	}
}

// Sweep publishes a poll message for every non-terminal run.
func (s *Service) Sweep(ctx context.Context) (err error) {
	ctx, span := tracing.StartSpan(ctx, "monitor.sweep", "INTERNAL")
	defer tracing.EndSpan(span, err)

	runs, err := s.runDAO.List(ctx,
		dao.NewParameter("State",
			string(model.RunStateQueued),
			string(model.RunStateRunning)))
	if err != nil {
		return fmt.Errorf("failed to list active runs: %w", err)
	}
	span.WithAttributes(map[string]string{"runs.active": fmt.Sprintf("%d", len(runs))})
	for _, run := range runs {
		if err := s.queue.Publish(ctx, &Poll{RunID: run.ID}); err != nil {
			return fmt.Errorf("failed to publish poll for run %s: %w", run.ID, err)
		}
	}
	return nil
}

func (w *worker) run() {
	defer w.service.workerWg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := w.service.processPoll(w.ctx, msg); pErr != nil {
			w.service.logger.Warn("poll failed", zap.Int("worker", w.id), zap.Error(pErr))
		}
	}
}

func (s *Service) processPoll(ctx context.Context, msg messaging.Message[Poll]) error {
	poll := msg.T()
	if err := s.RefreshRun(ctx, poll.RunID); err != nil {
		if nackErr := msg.Nack(err); nackErr != nil {
			return fmt.Errorf("failed to nack poll for run %s: %w", poll.RunID, nackErr)
		}
		return err
	}
	return msg.Ack()
}

// RefreshRun queries the launcher for one run and persists any transition.
func (s *Service) RefreshRun(ctx context.Context, runID string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "monitor.refreshRun", "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"run.id": runID})

	run, err := s.runDAO.Load(ctx, runID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if run.State.IsTerminal() {
		return nil
	}

	service, err := s.launchers.Lookup(run.Launcher)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	state, err := service.Status(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to query %s for run %s: %w", run.Launcher, runID, err)
	}
	if state == run.State {
		return nil
	}
	if !run.State.CanTransition(state) {
		return fmt.Errorf("run %s: illegal transition %s -> %s", runID, run.State, state)
	}

	from := run.State
	run.Transition(state, clock.Now())
	if err := s.runDAO.Save(ctx, run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", runID, err)
	}
	s.publishTransition(ctx, run, from)
	return nil
}

func (s *Service) publishTransition(ctx context.Context, run *model.Run, from model.RunState) {
	if s.events == nil {
		return
	}
	publisher, err := event.PublisherOf[event.RunTransition](s.events)
	if err != nil {
		s.logger.Warn("failed to resolve transition publisher", zap.Error(err))
		return
	}
	if err := publisher.Publish(ctx, event.NewRunTransition(run, from)); err != nil {
		s.logger.Warn("failed to publish transition", zap.String("run", run.ID), zap.Error(err))
	}
}
