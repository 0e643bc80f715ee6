package gridrun

import (
	"context"
	"fmt"
	"time"

	"github.com/mediseg/gridrun/internal/clock"
	"github.com/mediseg/gridrun/internal/idgen"
	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/policy"
	"github.com/mediseg/gridrun/progress"
	"github.com/mediseg/gridrun/service/dao"
	"github.com/mediseg/gridrun/service/dao/experiment"
	"github.com/mediseg/gridrun/service/event"
	"github.com/mediseg/gridrun/service/launcher"
	"github.com/mediseg/gridrun/service/launcher/gridengine"
	"github.com/mediseg/gridrun/service/monitor"
	"github.com/mediseg/gridrun/service/watcher"
	"github.com/mediseg/gridrun/tracing"
)

// Runtime represents a submission engine runtime
type Runtime struct {
	experimentDAO   *experiment.Service
	runDAO          dao.Service[string, model.Run]
	launchers       *launcher.Registry
	gridEngine      *gridengine.Service
	monitor         *monitor.Service
	events          *event.Service
	checkpoints     *watcher.Service
	defaultLauncher string
}

// ---------------------------------------------------------------------------
// Experiment hot-swap helpers
// ---------------------------------------------------------------------------

// RefreshExperiment discards any cached copy of the experiment document at
// the given location. The next LoadExperiment call reloads the file via the
// configured meta-service (one extra disk/cloud round-trip).
func (r *Runtime) RefreshExperiment(location string) error {
	if r == nil || r.experimentDAO == nil {
		return fmt.Errorf("runtime not fully initialised, experimentDAO missing")
	}
	r.experimentDAO.Refresh(location)
	return nil
}

// UpsertExperiment parses the supplied YAML bytes and stores the resulting
// experiment in the in-memory cache under the specified location. When data
// is nil the call falls back to RefreshExperiment, causing a lazy reload on
// next use.
func (r *Runtime) UpsertExperiment(location string, data []byte) error {
	if r == nil || r.experimentDAO == nil {
		return fmt.Errorf("runtime not fully initialised, experimentDAO missing")
	}
	if data == nil {
		return r.RefreshExperiment(location)
	}
	exp, err := r.experimentDAO.DecodeYAML(data)
	if err != nil {
		return fmt.Errorf("failed to decode experiment YAML: %w", err)
	}
	if exp.Source == nil {
		exp.Source = &model.Source{URL: location}
	} else {
		exp.Source.URL = location
	}
	r.experimentDAO.Upsert(location, exp)
	return nil
}

// LoadExperiment loads an experiment document
func (r *Runtime) LoadExperiment(ctx context.Context, location string) (*model.Experiment, error) {
	return r.experimentDAO.Load(ctx, location)
}

// DecodeYAMLExperiment decodes an experiment from YAML bytes
func (r *Runtime) DecodeYAMLExperiment(data []byte) (*model.Experiment, error) {
	return r.experimentDAO.DecodeYAML(data)
}

// RenderScript renders the grid-engine submission script for an experiment
// without submitting it.
func (r *Runtime) RenderScript(ctx context.Context, location string) (string, error) {
	location = r.experimentDAO.ResolveURL(location)
	exp, err := r.LoadExperiment(ctx, location)
	if err != nil {
		return "", err
	}
	run := &model.Run{
		ID:            idgen.New(),
		ExperimentURL: location,
		Experiment:    exp,
	}
	return r.gridEngine.Render(run)
}

// Submit loads, validates and submits an experiment on the named launcher
// (the configured default when launcherName is empty) and returns the
// persisted run record.
func (r *Runtime) Submit(ctx context.Context, location string, launcherName string) (*model.Run, error) {
	return r.submit(ctx, location, launcherName, 1)
}

func (r *Runtime) submit(ctx context.Context, location string, launcherName string, attempts int) (run *model.Run, err error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("runtime.Submit %s", location), "INTERNAL")
	defer tracing.EndSpan(span, err)

	// The run record carries the URL the job can open, not the shorthand the
	// caller typed.
	location = r.experimentDAO.ResolveURL(location)
	exp, err := r.LoadExperiment(ctx, location)
	if err != nil {
		return nil, err
	}
	if launcherName == "" {
		launcherName = r.defaultLauncher
	}
	span.WithAttributes(map[string]string{"experiment.name": exp.Name, "launcher": launcherName})

	if p := policy.FromContext(ctx); !p.Approve(ctx, exp.Name, launcherName) {
		return nil, fmt.Errorf("submission of %s rejected by policy", exp.Name)
	}

	service, err := r.launchers.Lookup(launcherName)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	run = &model.Run{
		ID:            idgen.New(),
		ExperimentURL: location,
		Experiment:    exp,
		Launcher:      launcherName,
		State:         model.RunStatePending,
		Attempts:      attempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	span.WithAttributes(map[string]string{"run.id": run.ID})
	if err = r.runDAO.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	jobID, err := service.Submit(ctx, run)
	if err != nil {
		run.Error = err.Error()
		run.Transition(model.RunStateFailed, clock.Now())
		_ = r.runDAO.Save(ctx, run)
		r.publishTransition(ctx, run, model.RunStatePending)
		return run, fmt.Errorf("failed to submit %s: %w", exp.Name, err)
	}
	run.JobID = jobID
	run.Transition(model.RunStateQueued, clock.Now())
	if err = r.runDAO.Save(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save run: %w", err)
	}
	progress.UpdateCtx(ctx, progress.Delta{Submitted: 1})
	r.publishTransition(ctx, run, model.RunStatePending)
	return run, nil
}

// Resume creates a new run for a failed or cancelled run's experiment,
// resuming from its newest recorded checkpoint.
func (r *Runtime) Resume(ctx context.Context, runID string) (*model.Run, error) {
	previous, err := r.runDAO.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !previous.State.IsTerminal() {
		return nil, fmt.Errorf("run %s is still %s, cancel it before resuming", runID, previous.State)
	}
	if previous.Experiment == nil {
		return nil, fmt.Errorf("run %s has no experiment snapshot", runID)
	}
	if previous.LastCheckpoint == "" {
		return nil, fmt.Errorf("run %s recorded no checkpoint to resume from", runID)
	}

	exp := *previous.Experiment
	exp.Checkpoint.Resume = true
	exp.Checkpoint.CheckpointPath = previous.LastCheckpoint
	r.experimentDAO.Upsert(previous.ExperimentURL, &exp)

	return r.submit(ctx, previous.ExperimentURL, previous.Launcher, previous.Attempts+1)
}

// Cancel stops a queued or running run.
func (r *Runtime) Cancel(ctx context.Context, runID string) (err error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("runtime.Cancel %s", runID), "INTERNAL")
	defer tracing.EndSpan(span, err)

	run, err := r.runDAO.Load(ctx, runID)
	if err != nil {
		return err
	}
	if run.State.IsTerminal() {
		return fmt.Errorf("run %s is already %s", runID, run.State)
	}
	service, err := r.launchers.Lookup(run.Launcher)
	if err != nil {
		return err
	}
	if err = service.Cancel(ctx, run); err != nil {
		return fmt.Errorf("failed to cancel run %s: %w", runID, err)
	}
	from := run.State
	run.Transition(model.RunStateCancelled, clock.Now())
	if err = r.runDAO.Save(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	r.publishTransition(ctx, run, from)
	return nil
}

// Run returns a run by ID
func (r *Runtime) Run(ctx context.Context, id string) (*model.Run, error) {
	return r.runDAO.Load(ctx, id)
}

// Runs returns runs matching the supplied filters
func (r *Runtime) Runs(ctx context.Context, parameter ...*dao.Parameter) ([]*model.Run, error) {
	return r.runDAO.List(ctx, parameter...)
}

// WatchCheckpoints registers a run's checkpoint directory with the
// checkpoint watcher.
func (r *Runtime) WatchCheckpoints(run *model.Run, dir string) error {
	if r.checkpoints == nil {
		return fmt.Errorf("checkpoint watcher not initialised")
	}
	return r.checkpoints.Watch(run, dir)
}

// WaitForRun blocks until the run reaches a terminal state or the timeout
// elapses.
func (r *Runtime) WaitForRun(ctx context.Context, runID string, timeout time.Duration) (*model.Run, error) {
	deadline := time.Now().Add(timeout)
	for {
		run, err := r.runDAO.Load(ctx, runID)
		if err != nil {
			return nil, err
		}
		if run.State.IsTerminal() {
			return run, nil
		}
		if time.Now().After(deadline) {
			return run, fmt.Errorf("timeout waiting for run %q", runID)
		}
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Events returns the event service so callers can subscribe to run
// transitions.
func (r *Runtime) Events() *event.Service {
	return r.events
}

// Start launches the monitor and checkpoint watcher. When the context
// carries a progress tracker, run transitions are mirrored into its
// counters.
func (r *Runtime) Start(ctx context.Context) error {
	if tracker, ok := progress.FromContext(ctx); ok {
		if err := event.SetListenerOf(r.events, func(e *event.Event[event.RunTransition]) {
			tracker.Update(transitionDelta(e.Data))
		}); err != nil {
			return err
		}
	}
	if r.checkpoints != nil {
		if err := r.checkpoints.Start(ctx); err != nil {
			return err
		}
	}
	if r.monitor != nil {
		return r.monitor.Start(ctx)
	}
	return nil
}

// Shutdown stops the monitor, watcher and event listeners.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r.monitor != nil {
		r.monitor.Shutdown()
	}
	if r.checkpoints != nil {
		r.checkpoints.Stop()
	}
	if r.events != nil {
		r.events.Shutdown()
	}
	return nil
}

func (r *Runtime) publishTransition(ctx context.Context, run *model.Run, from model.RunState) {
	if r.events == nil {
		return
	}
	publisher, err := event.PublisherOf[event.RunTransition](r.events)
	if err != nil {
		return
	}
	_ = publisher.Publish(ctx, event.NewRunTransition(run, from))
}

func transitionDelta(t event.RunTransition) progress.Delta {
	var d progress.Delta
	switch t.From {
	case model.RunStateQueued:
		d.Queued--
	case model.RunStateRunning:
		d.Running--
	}
	switch t.To {
	case model.RunStateQueued:
		d.Queued++
	case model.RunStateRunning:
		d.Running++
	case model.RunStateCompleted:
		d.Completed++
	case model.RunStateFailed:
		d.Failed++
	case model.RunStateCancelled:
		d.Cancelled++
	}
	return d
}
