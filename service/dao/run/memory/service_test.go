package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao"
)

func TestServiceCRUD(t *testing.T) {
	ctx := context.Background()
	service := New()

	err := service.Save(ctx, nil)
	assert.ErrorIs(t, err, dao.ErrNilEntity)

	err = service.Save(ctx, &model.Run{})
	assert.ErrorIs(t, err, dao.ErrInvalidID)

	run := &model.Run{ID: "r1", State: model.RunStateQueued, Launcher: "gridengine", CreatedAt: time.Now()}
	assert.NoError(t, service.Save(ctx, run))

	loaded, err := service.Load(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, model.RunStateQueued, loaded.State)

	// the store holds a copy, not the caller's pointer
	run.State = model.RunStateFailed
	loaded, err = service.Load(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, model.RunStateQueued, loaded.State)

	_, err = service.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	assert.NoError(t, service.Delete(ctx, "r1"))
	assert.ErrorIs(t, service.Delete(ctx, "r1"), dao.ErrNotFound)
}

func TestServiceList(t *testing.T) {
	ctx := context.Background()
	service := New()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	runs := []*model.Run{
		{ID: "a", State: model.RunStateQueued, Launcher: "gridengine", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "b", State: model.RunStateRunning, Launcher: "local", CreatedAt: base.Add(time.Minute)},
		{ID: "c", State: model.RunStateCompleted, Launcher: "gridengine", CreatedAt: base},
	}
	for _, run := range runs {
		assert.NoError(t, service.Save(ctx, run))
	}

	all, err := service.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 3)
	// oldest first
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	active, err := service.List(ctx, dao.NewParameter("State", "queued", "running"))
	assert.NoError(t, err)
	assert.Len(t, active, 2)

	gridengine, err := service.List(ctx, dao.NewParameter("Launcher", "gridengine"))
	assert.NoError(t, err)
	assert.Len(t, gridengine, 2)
}
