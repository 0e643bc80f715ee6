package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

const sampleExperiment = `dataset:
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
  batch_u: 0
checkpoint:
  resume: false
  checkpoint_path: ""
`

const semiSupervisedSection = `  batch_u: 4
  pri_mu: 0.7
  pri_std: 0.1
  flag_post_mu: 0
  flag_post_std: 1
  flag_pri_mu: 0
  flag_pri_std: 0
  alpha: 1.0
  beta: 1.0
  warmup: 0.1
  warmup_start: 0.0
  conf_lower: 0.5
`

func uploadExperiment(t *testing.T, name string) string {
	return uploadDocument(t, name, sampleExperiment)
}

func uploadDocument(t *testing.T, name, document string) string {
	t.Helper()
	baseURL := "mem://localhost/cli-" + uuid.New().String()
	err := afs.New().Upload(context.Background(), baseURL+"/"+name+".yaml",
		file.DefaultFileOsMode, strings.NewReader(document))
	assert.NoError(t, err)
	return baseURL
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	baseURL := uploadExperiment(t, "unet-sup")
	_, err := runCommand(t, "validate", "unet-sup",
		"--experiments", baseURL, "--workspace", t.TempDir())
	assert.NoError(t, err)
}

func TestValidateCommandSemiSupervised(t *testing.T) {
	document := strings.Replace(sampleExperiment, "  batch_u: 0\n", semiSupervisedSection, 1)
	baseURL := uploadDocument(t, "unet-ssl", document)
	_, err := runCommand(t, "validate", "unet-ssl",
		"--experiments", baseURL, "--workspace", t.TempDir())
	assert.NoError(t, err)
}

func TestValidateCommandMissingExperiment(t *testing.T) {
	baseURL := uploadExperiment(t, "unet-sup")
	_, err := runCommand(t, "validate", "no-such-experiment",
		"--experiments", baseURL, "--workspace", t.TempDir())
	assert.Error(t, err)
}

func TestScriptCommand(t *testing.T) {
	baseURL := uploadExperiment(t, "unet-sup")
	out, err := runCommand(t, "script", "unet-sup",
		"--experiments", baseURL, "--workspace", t.TempDir())
	assert.NoError(t, err)
	assert.Contains(t, out, "#$ -N unet-sup")
	assert.Contains(t, out, "#$ -l tmem=14G")
	assert.Contains(t, out, "--config")
}

func TestListCommandEmpty(t *testing.T) {
	out, err := runCommand(t, "list", "--workspace", t.TempDir())
	assert.NoError(t, err)
	assert.Contains(t, out, "RUN")
}

func TestRejectsUnknownLauncher(t *testing.T) {
	_, err := runCommand(t, "list", "--workspace", t.TempDir(), "--launcher", "slurm")
	assert.Error(t, err)
}
