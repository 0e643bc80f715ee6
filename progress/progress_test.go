package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateAndSnapshot(t *testing.T) {
	ctx, tracker := WithNewTracker(context.Background(), "/tmp/gridrun", nil)

	UpdateCtx(ctx, Delta{Submitted: 1, Queued: 1})
	UpdateCtx(ctx, Delta{Queued: -1, Running: 1})
	UpdateCtx(ctx, Delta{Running: -1, Completed: 1})

	snapshot := tracker.Snapshot()
	assert.Equal(t, 1, snapshot.SubmittedRuns)
	assert.Equal(t, 0, snapshot.QueuedRuns)
	assert.Equal(t, 0, snapshot.RunningRuns)
	assert.Equal(t, 1, snapshot.CompletedRuns)
	assert.Equal(t, "/tmp/gridrun", snapshot.Workspace)
}

func TestOnChangeCallback(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	_, tracker := WithNewTracker(context.Background(), "", func(p Progress) {
		mu.Lock()
		seen = append(seen, p.SubmittedRuns)
		mu.Unlock()
	})

	tracker.Update(Delta{Submitted: 1})
	tracker.Update(Delta{Submitted: 1})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, seen)
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tracker *Progress
	tracker.Update(Delta{Submitted: 1})
	assert.Equal(t, Progress{}, tracker.Snapshot())

	UpdateCtx(context.Background(), Delta{Submitted: 1})
	_, ok := GetSnapshot(context.Background())
	assert.False(t, ok)
}
