package experiment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/mediseg/gridrun/service/meta"
)

const sampleDocument = `dataset:
  name: Task01_BrainTumour
  num_workers: 4
  data_dir: /data/Task01_BrainTumour
  data_format: nii
logger:
  tag: ssl-baseline
seed: 1024
model:
  input_dim: 1
  output_dim: 2
  width: 8
  depth: 3
train:
  transpose_dim: 1
  l2: 0.0005
  lr: 0.001
  iterations: 10000
  batch: 2
  temp: 2.0
  contrast: true
  crop_aug: true
  gaussian: false
  new_size_d: 32
  new_size_w: 128
  new_size_h: 128
  batch_u: 4
  pri_mu: 0.7
  pri_std: 0.15
  flag_post_mu: 0
  flag_post_std: 1
  flag_pri_mu: 0
  flag_pri_std: 0
  alpha: 1.0
  warmup: 0.1
  warmup_start: 0.0
  beta: 1.0
  conf_lower: 0.5
checkpoint:
  resume: false
  checkpoint_path: ""
`

func newTestService(t *testing.T, documents map[string]string) *Service {
	t.Helper()
	fs := afs.New()
	ctx := context.Background()
	for name, content := range documents {
		err := fs.Upload(ctx, "mem://localhost/experiments/"+name, file.DefaultFileOsMode, strings.NewReader(content))
		assert.NoError(t, err)
	}
	return New(meta.New(fs, "mem://localhost/experiments"))
}

func TestServiceLoad(t *testing.T) {
	service := newTestService(t, map[string]string{"brats.yaml": sampleDocument})

	experiment, err := service.Load(context.Background(), "brats")
	assert.NoError(t, err)
	assert.Equal(t, "brats", experiment.Name)
	assert.Equal(t, "Task01_BrainTumour", experiment.Dataset.Name)
	assert.Equal(t, "ssl-baseline", experiment.Logger.Tag)
	assert.Equal(t, 1024, experiment.Seed)
	assert.Equal(t, 8, experiment.Model.Width)
	assert.Equal(t, 10000, experiment.Train.Iterations)
	assert.InDelta(t, 0.0005, experiment.Train.L2, 1e-9)
	assert.True(t, experiment.Train.Contrast)
	assert.False(t, experiment.Train.Gaussian)
	assert.Equal(t, 4, experiment.Train.BatchUnlabelled)
	assert.InDelta(t, 0.7, experiment.Train.PriMu, 1e-9)
	assert.Equal(t, 1, experiment.Train.FlagPostStd)
	assert.True(t, experiment.SemiSupervised())
	assert.False(t, experiment.Checkpoint.Resume)

	// second load is served from the cache
	again, err := service.Load(context.Background(), "brats.yaml")
	assert.NoError(t, err)
	assert.Same(t, experiment, again)
}

func TestServiceResolveURL(t *testing.T) {
	service := newTestService(t, nil)
	assert.Equal(t, "mem://localhost/experiments/brats.yaml", service.ResolveURL("brats"))
	assert.Equal(t, "mem://localhost/experiments/brats.yaml", service.ResolveURL("brats.yaml"))
	assert.Equal(t, "mem://localhost/other/brats.yaml", service.ResolveURL("mem://localhost/other/brats"))
	// resolution is idempotent
	resolved := service.ResolveURL("brats")
	assert.Equal(t, resolved, service.ResolveURL(resolved))
}

func TestServiceDecodeYAMLUnknownKey(t *testing.T) {
	service := newTestService(t, nil)

	mistyped := strings.Replace(sampleDocument, "batch_u:", "batch_v:", 1)
	_, err := service.DecodeYAML([]byte(mistyped))
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "batch_v")
	}

	_, err = service.DecodeYAML([]byte("unknown_section:\n  a: 1\n"))
	assert.Error(t, err)
}

func TestServiceDecodeYAMLInvalid(t *testing.T) {
	service := newTestService(t, nil)

	// structurally sound but semantically invalid (pri_mu out of range)
	broken := strings.Replace(sampleDocument, "pri_mu: 0.7", "pri_mu: 1.7", 1)
	_, err := service.DecodeYAML([]byte(broken))
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "pri_mu")
	}
}

func TestServiceRefresh(t *testing.T) {
	fs := afs.New()
	ctx := context.Background()
	err := fs.Upload(ctx, "mem://localhost/refresh/exp.yaml", file.DefaultFileOsMode, strings.NewReader(sampleDocument))
	assert.NoError(t, err)
	service := New(meta.New(fs, "mem://localhost/refresh"))

	first, err := service.Load(ctx, "exp")
	assert.NoError(t, err)
	assert.Equal(t, 1024, first.Seed)

	updated := strings.Replace(sampleDocument, "seed: 1024", "seed: 7", 1)
	err = fs.Upload(ctx, "mem://localhost/refresh/exp.yaml", file.DefaultFileOsMode, strings.NewReader(updated))
	assert.NoError(t, err)

	// still cached
	cached, err := service.Load(ctx, "exp")
	assert.NoError(t, err)
	assert.Equal(t, 1024, cached.Seed)

	service.Refresh("exp")
	reloaded, err := service.Load(ctx, "exp")
	assert.NoError(t, err)
	assert.Equal(t, 7, reloaded.Seed)
}
