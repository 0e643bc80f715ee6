package model

import (
	"time"
)

// RunState captures where a run is in its lifecycle.
type RunState string

const (
	// RunStatePending indicates a run that has been created but not handed
	// to a launcher yet
	RunStatePending RunState = "pending"

	// RunStateQueued indicates the scheduler accepted the job but has not
	// started it
	RunStateQueued RunState = "queued"

	// RunStateRunning indicates the training process is executing
	RunStateRunning RunState = "running"

	// RunStateCompleted indicates the training process finished successfully
	RunStateCompleted RunState = "completed"

	// RunStateFailed indicates the training process exited with an error or
	// the scheduler reported an error state
	RunStateFailed RunState = "failed"

	// RunStateCancelled indicates the run was cancelled on request
	RunStateCancelled RunState = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed, RunStateCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving to the supplied state is legal.
// Re-entering the same state is allowed so that monitors can save refreshed
// records without checking for no-op transitions first.
func (s RunState) CanTransition(to RunState) bool {
	if s == to {
		return true
	}
	switch s {
	case RunStatePending:
		return to == RunStateQueued || to == RunStateRunning || to == RunStateFailed || to == RunStateCancelled
	case RunStateQueued:
		return to == RunStateRunning || to == RunStateCompleted || to == RunStateFailed || to == RunStateCancelled
	case RunStateRunning:
		return to == RunStateCompleted || to == RunStateFailed || to == RunStateCancelled
	}
	return false
}

// Run records a single submission of an experiment, either to the cluster
// scheduler or to the local launcher. The embedded experiment is a snapshot
// taken at submission time so later edits of the document do not rewrite
// history.
type Run struct {
	ID string `json:"id"`

	// ExperimentURL is the location the experiment document was loaded from
	ExperimentURL string      `json:"experimentURL"`
	Experiment    *Experiment `json:"experiment,omitempty"`

	// Launcher names the launcher that owns the job (gridengine, local)
	Launcher string `json:"launcher,omitempty"`

	// JobID is the launcher-assigned handle (grid-engine job number or
	// local process id)
	JobID string `json:"jobID,omitempty"`

	State RunState `json:"state"`

	// Error holds the failure reason when State == failed
	Error string `json:"error,omitempty"`

	// Attempts counts submissions of this run, including resumptions
	Attempts int `json:"attempts,omitempty"`

	// ScriptURL is where the rendered job script was written
	ScriptURL string `json:"scriptURL,omitempty"`

	// LogDir is where the run's stdout/stderr streams are collected
	LogDir string `json:"logDir,omitempty"`

	// LastCheckpoint is the newest checkpoint observed for this run; used to
	// satisfy resume without the caller naming a file
	LastCheckpoint string `json:"lastCheckpoint,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Transition moves the run to the supplied state, stamping the relevant
// timestamps. It returns false and leaves the run untouched when the
// transition is illegal.
func (r *Run) Transition(to RunState, at time.Time) bool {
	if !r.State.CanTransition(to) {
		return false
	}
	if r.State == to {
		r.UpdatedAt = at
		return true
	}
	r.State = to
	r.UpdatedAt = at
	switch to {
	case RunStateRunning:
		if r.StartedAt == nil {
			started := at
			r.StartedAt = &started
		}
	case RunStateCompleted, RunStateFailed, RunStateCancelled:
		completed := at
		r.CompletedAt = &completed
	}
	return true
}

// Elapsed returns how long the run has been (or was) executing; zero when the
// run never started.
func (r *Run) Elapsed(now time.Time) time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(*r.StartedAt)
	}
	return now.Sub(*r.StartedAt)
}
