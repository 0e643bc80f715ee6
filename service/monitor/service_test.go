package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao/run/memory"
	"github.com/mediseg/gridrun/service/event"
	"github.com/mediseg/gridrun/service/launcher"
	"github.com/mediseg/gridrun/service/messaging"
	queuememory "github.com/mediseg/gridrun/service/messaging/memory"
)

// fakeLauncher reports a scripted state per job ID.
type fakeLauncher struct {
	mux    sync.Mutex
	states map[string]model.RunState
}

func (f *fakeLauncher) Name() string { return "fake" }

func (f *fakeLauncher) Submit(context.Context, *model.Run) (string, error) {
	return "job-1", nil
}

func (f *fakeLauncher) Status(_ context.Context, run *model.Run) (model.RunState, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	state, ok := f.states[run.JobID]
	if !ok {
		return model.RunStateCompleted, nil
	}
	return state, nil
}

func (f *fakeLauncher) Cancel(context.Context, *model.Run) error { return nil }

func (f *fakeLauncher) setState(jobID string, state model.RunState) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.states[jobID] = state
}

func newTestMonitor(t *testing.T, fake *fakeLauncher) (*Service, *memory.Service, *event.Service) {
	t.Helper()
	registry := launcher.NewRegistry()
	registry.Register(fake)

	runDAO := memory.New()
	events, err := event.New(messaging.VendorMemory)
	assert.NoError(t, err)

	queue := queuememory.NewQueue[Poll](queuememory.DefaultConfig())
	service, err := New(
		WithConfig(Config{WorkerCount: 2, PollInterval: 10 * time.Millisecond}),
		WithRunDAO(runDAO),
		WithLaunchers(registry),
		WithQueue(queue),
		WithEvents(events),
	)
	assert.NoError(t, err)
	return service, runDAO, events
}

func TestRefreshRunTransition(t *testing.T) {
	fake := &fakeLauncher{states: map[string]model.RunState{"job-7": model.RunStateRunning}}
	service, runDAO, events := newTestMonitor(t, fake)
	defer events.Shutdown()

	ctx := context.Background()
	run := &model.Run{
		ID:       "run-7",
		JobID:    "job-7",
		Launcher: "fake",
		State:    model.RunStateQueued,
	}
	assert.NoError(t, runDAO.Save(ctx, run))

	var mu sync.Mutex
	var transitions []event.RunTransition
	assert.NoError(t, event.SetListenerOf(events, func(e *event.Event[event.RunTransition]) {
		mu.Lock()
		transitions = append(transitions, e.Data)
		mu.Unlock()
	}))

	assert.NoError(t, service.RefreshRun(ctx, "run-7"))

	updated, err := runDAO.Load(ctx, "run-7")
	assert.NoError(t, err)
	assert.Equal(t, model.RunStateRunning, updated.State)
	assert.NotNil(t, updated.StartedAt)

	// scheduler no longer lists the job
	fake.setState("job-7", model.RunStateCompleted)
	assert.NoError(t, service.RefreshRun(ctx, "run-7"))
	updated, err = runDAO.Load(ctx, "run-7")
	assert.NoError(t, err)
	assert.Equal(t, model.RunStateCompleted, updated.State)
	assert.NotNil(t, updated.CompletedAt)

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(transitions)
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if assert.Len(t, transitions, 2) {
		assert.Equal(t, model.RunStateQueued, transitions[0].From)
		assert.Equal(t, model.RunStateRunning, transitions[0].To)
		assert.Equal(t, model.RunStateRunning, transitions[1].From)
		assert.Equal(t, model.RunStateCompleted, transitions[1].To)
	}
}

func TestRefreshRunSkipsTerminal(t *testing.T) {
	fake := &fakeLauncher{states: map[string]model.RunState{}}
	service, runDAO, events := newTestMonitor(t, fake)
	defer events.Shutdown()

	ctx := context.Background()
	run := &model.Run{ID: "run-done", JobID: "job-1", Launcher: "fake", State: model.RunStateCompleted}
	assert.NoError(t, runDAO.Save(ctx, run))
	assert.NoError(t, service.RefreshRun(ctx, "run-done"))
}

func TestRefreshRunMissingRun(t *testing.T) {
	fake := &fakeLauncher{states: map[string]model.RunState{}}
	service, _, events := newTestMonitor(t, fake)
	defer events.Shutdown()
	assert.NoError(t, service.RefreshRun(context.Background(), "no-such-run"))
}

func TestSweepAndWorkers(t *testing.T) {
	fake := &fakeLauncher{states: map[string]model.RunState{"job-9": model.RunStateRunning}}
	service, runDAO, events := newTestMonitor(t, fake)
	defer events.Shutdown()

	ctx := context.Background()
	assert.NoError(t, runDAO.Save(ctx, &model.Run{
		ID: "run-9", JobID: "job-9", Launcher: "fake", State: model.RunStateQueued,
	}))
	assert.NoError(t, runDAO.Save(ctx, &model.Run{
		ID: "run-done", JobID: "job-0", Launcher: "fake", State: model.RunStateCompleted,
	}))

	assert.NoError(t, service.Start(ctx))
	defer service.Shutdown()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		updated, err := runDAO.Load(ctx, "run-9")
		assert.NoError(t, err)
		if updated.State == model.RunStateRunning {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run-9 was not refreshed by the worker pool")
}
