package fs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := New("mem://localhost/gridrun-dao-" + uuid.New().String())
	assert.NoError(t, err)
	return service
}

func TestServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &model.Run{
		ID:            "r1",
		ExperimentURL: "mem://localhost/exp.yaml",
		Launcher:      "gridengine",
		JobID:         "4728195",
		State:         model.RunStateRunning,
		StartedAt:     &started,
		CreatedAt:     started.Add(-time.Minute),
		UpdatedAt:     started,
	}
	assert.NoError(t, service.Save(ctx, run))

	loaded, err := service.Load(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, run.JobID, loaded.JobID)
	assert.Equal(t, model.RunStateRunning, loaded.State)
	if assert.NotNil(t, loaded.StartedAt) {
		assert.True(t, started.Equal(*loaded.StartedAt))
	}

	_, err = service.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	assert.NoError(t, service.Delete(ctx, "r1"))
	_, err = service.Load(ctx, "r1")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestServiceListFiltered(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, state := range []model.RunState{model.RunStateQueued, model.RunStateRunning, model.RunStateFailed} {
		run := &model.Run{
			ID:        uuid.New().String(),
			State:     state,
			Launcher:  "gridengine",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		assert.NoError(t, service.Save(ctx, run))
	}

	all, err := service.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := service.List(ctx, dao.NewParameter("State", "queued", "running"))
	assert.NoError(t, err)
	assert.Len(t, active, 2)

	failed, err := service.List(ctx, dao.NewParameter("State", "failed"))
	assert.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestNewRequiresBasePath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
