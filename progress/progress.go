// Package progress provides a lightweight tracker that keeps aggregated run
// counters (submitted, running, completed, …) for an engine session. The
// tracker instance lives in the context, so every component that receives the
// context can atomically update the counters via the Delta helper without a
// global registry.

package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the engine or
// the monitor. The fields are signed and therefore can be either positive
// (increment) or negative (decrement).
type Delta struct {
	Submitted int
	Queued    int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

// Progress keeps aggregated run counters for one engine session. It is safe
// for concurrent use.
type Progress struct {
	// Identification, informative only.
	Workspace string
	StartedAt time.Time

	// Counters, modified via Update().
	SubmittedRuns int
	QueuedRuns    int
	RunningRuns   int
	CompletedRuns int
	FailedRuns    int
	CancelledRuns int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta to the tracker. It is safe to call from
// multiple goroutines. A registered onChange callback is invoked with a copy
// of the updated tracker outside the critical section so that it can perform
// slow operations (JSON encoding, terminal rendering) without blocking the
// engine.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.Lock()

	p.SubmittedRuns += d.Submitted
	p.QueuedRuns += d.Queued
	p.RunningRuns += d.Running
	p.CompletedRuns += d.Completed
	p.FailedRuns += d.Failed
	p.CancelledRuns += d.Cancelled

	// Value-copy for the callback while the lock is held, so the callback
	// never sees partially updated counters.
	snapshot := *p
	cb := p.onChange

	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return *p
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables the callback. Only one callback can be active; subsequent calls
// overwrite the previous value.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Progress tracker, embeds it in a derived
// context and returns both. The caller may optionally pass an onChange
// callback invoked after every counter update.
func WithNewTracker(ctx context.Context, workspace string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		Workspace: workspace,
		StartedAt: time.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Progress tracker from ctx. The second return
// value is false when the context carries no tracker.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// GetSnapshot combines FromContext and Snapshot. The boolean return value is
// false when the context does not carry a tracker.
func GetSnapshot(ctx context.Context) (Progress, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Progress{}, false
}

// UpdateCtx looks up the tracker in ctx (if any) and applies the supplied
// delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
