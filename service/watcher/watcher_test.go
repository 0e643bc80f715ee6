package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao/run/memory"
)

func TestRecordsNewestCheckpoint(t *testing.T) {
	runDAO := memory.New()
	ctx := context.Background()
	run := &model.Run{ID: "run-w1", State: model.RunStateRunning}
	assert.NoError(t, runDAO.Save(ctx, run))

	service, err := New(runDAO)
	assert.NoError(t, err)
	assert.NoError(t, service.Start(ctx))
	defer service.Stop()

	dir := t.TempDir()
	assert.NoError(t, service.Watch(run, dir))

	checkpoint := filepath.Join(dir, "iter_1000.pt")
	assert.NoError(t, os.WriteFile(checkpoint, []byte("weights"), 0o644))

	recorded, err := service.WaitForCheckpoint(ctx, "run-w1", 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, checkpoint, recorded)
}

func TestIgnoresUnrelatedFiles(t *testing.T) {
	runDAO := memory.New()
	ctx := context.Background()
	run := &model.Run{ID: "run-w2", State: model.RunStateRunning}
	assert.NoError(t, runDAO.Save(ctx, run))

	service, err := New(runDAO)
	assert.NoError(t, err)
	assert.NoError(t, service.Start(ctx))
	defer service.Stop()

	dir := t.TempDir()
	assert.NoError(t, service.Watch(run, dir))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "train.log"), []byte("..."), 0o644))

	time.Sleep(100 * time.Millisecond)
	loaded, err := runDAO.Load(ctx, "run-w2")
	assert.NoError(t, err)
	assert.Empty(t, loaded.LastCheckpoint)
}

func TestWatchRequiresDirectory(t *testing.T) {
	service, err := New(memory.New())
	assert.NoError(t, err)
	defer func() { _ = service.watcher.Close() }()
	assert.Error(t, service.Watch(&model.Run{ID: "r"}, ""))
}
