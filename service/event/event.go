package event

import (
	"time"

	"github.com/mediseg/gridrun/model"
)

// Context carries the run-scoped attributes of an event.
type Context struct {
	RunID       string `json:"runID"`
	Experiment  string `json:"experiment"`
	Launcher    string `json:"launcher"`
	EventType   string `json:"eventType"`
	TimeTakenMs int    `json:"timeTakenMs"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}

// RunTransition is published whenever a run changes state.
type RunTransition struct {
	RunID string         `json:"runID"`
	From  model.RunState `json:"from"`
	To    model.RunState `json:"to"`
	JobID string         `json:"jobID,omitempty"`
	Error string         `json:"error,omitempty"`
}

// NewRunTransition builds the transition payload and its event context from a run.
func NewRunTransition(run *model.Run, from model.RunState) *Event[RunTransition] {
	ctx := &Context{
		RunID:     run.ID,
		Launcher:  run.Launcher,
		EventType: "run.transition",
	}
	if run.Experiment != nil {
		ctx.Experiment = run.Experiment.Name
	}
	return NewEvent(ctx, RunTransition{
		RunID: run.ID,
		From:  from,
		To:    run.State,
		JobID: run.JobID,
		Error: run.Error,
	})
}
