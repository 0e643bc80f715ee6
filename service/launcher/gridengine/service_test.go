package gridengine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	"github.com/viant/gosh/runner"

	"github.com/mediseg/gridrun/model"
)

// fakeShell replays canned scheduler output keyed by command prefix.
type fakeShell struct {
	outputs  map[string]string
	statuses map[string]int
	commands []string
}

func (f *fakeShell) Run(_ context.Context, command string, _ ...runner.Option) (string, int, error) {
	f.commands = append(f.commands, command)
	for prefix, output := range f.outputs {
		if strings.HasPrefix(command, prefix) {
			return output, f.statuses[prefix], nil
		}
	}
	return "", 1, fmt.Errorf("unexpected command: %s", command)
}

func newTestService(sh *fakeShell) *Service {
	config := Config{
		ScriptBaseURL: "mem://localhost/scripts-" + uuid.New().String(),
		WorkDir:       "/home/jdoe/experiments",
		SourceFiles:   []string{"/share/apps/source_files/cuda/cuda-11.0.source"},
		VirtualEnv:    "/home/jdoe/envs/mediseg",
	}
	return New(afs.New(), config, WithShell(sh))
}

func testRun() *model.Run {
	return &model.Run{
		ID:            "run-1",
		ExperimentURL: "/home/jdoe/configs/unet-ssl.yaml",
		Launcher:      Name,
		Experiment:    &model.Experiment{Name: "unet-ssl"},
	}
}

func TestSubmit(t *testing.T) {
	sh := &fakeShell{outputs: map[string]string{
		"qsub": `Your job 4728195 ("unet-ssl") has been submitted` + "\n",
	}}
	service := newTestService(sh)
	run := testRun()

	jobID, err := service.Submit(context.Background(), run)
	assert.NoError(t, err)
	assert.Equal(t, "4728195", jobID)
	assert.NotEmpty(t, run.ScriptURL)

	// the rendered script was stored
	data, err := service.fs.DownloadWithURL(context.Background(), run.ScriptURL)
	assert.NoError(t, err)
	script := string(data)
	assert.Contains(t, script, "#$ -N unet-ssl")
	assert.Contains(t, script, "#$ -l tmem=14G")
	assert.Contains(t, script, "#$ -l gpu=true")
	assert.Contains(t, script, "#$ -l h_rt=72:0:0")
	assert.Contains(t, script, "#$ -j y")
	assert.Contains(t, script, "#$ -R y")
	assert.Contains(t, script, "#$ -wd /home/jdoe/experiments")
	assert.Contains(t, script, "source /share/apps/source_files/cuda/cuda-11.0.source")
	assert.Contains(t, script, "source /home/jdoe/envs/mediseg/bin/activate")
	assert.Contains(t, script, "python Main.py --config /home/jdoe/configs/unet-ssl.yaml")
}

func TestSubmitRejectsBadConfirmation(t *testing.T) {
	sh := &fakeShell{outputs: map[string]string{"qsub": "Unable to run job: denied"}}
	service := newTestService(sh)
	_, err := service.Submit(context.Background(), testRun())
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	header := "job-ID  prior   name       user  state submit/start at     queue\n" +
		"--------------------------------------------------------------------\n"
	testCases := []struct {
		description string
		qstat       string
		runError    string
		expected    model.RunState
	}{
		{
			description: "waiting in queue",
			qstat:       header + "4728195 0.00000 unet-ssl   jdoe  qw    08/30/2026 10:00:00\n",
			expected:    model.RunStateQueued,
		},
		{
			description: "running",
			qstat:       header + "4728195 0.55500 unet-ssl   jdoe  r     08/30/2026 10:05:00 gpu.q@node01\n",
			expected:    model.RunStateRunning,
		},
		{
			description: "scheduler error state",
			qstat:       header + "4728195 0.00000 unet-ssl   jdoe  Eqw   08/30/2026 10:00:00\n",
			expected:    model.RunStateFailed,
		},
		{
			description: "deletion in progress",
			qstat:       header + "4728195 0.55500 unet-ssl   jdoe  dr    08/30/2026 10:05:00 gpu.q@node01\n",
			expected:    model.RunStateCancelled,
		},
		{
			description: "absent job means finished",
			qstat:       header,
			expected:    model.RunStateCompleted,
		},
		{
			description: "absent job with recorded failure",
			qstat:       header,
			runError:    "CUDA out of memory",
			expected:    model.RunStateFailed,
		},
	}

	for _, testCase := range testCases {
		sh := &fakeShell{outputs: map[string]string{"qstat": testCase.qstat}}
		service := newTestService(sh)
		run := testRun()
		run.JobID = "4728195"
		run.Error = testCase.runError

		state, err := service.Status(context.Background(), run)
		assert.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expected, state, testCase.description)
	}
}

func TestCancel(t *testing.T) {
	sh := &fakeShell{outputs: map[string]string{
		"qdel": "jdoe has registered the job 4728195 for deletion",
	}}
	service := newTestService(sh)
	run := testRun()
	run.JobID = "4728195"

	assert.NoError(t, service.Cancel(context.Background(), run))
	assert.Equal(t, []string{"qdel 4728195"}, sh.commands)
}

func TestCancelWithoutJobID(t *testing.T) {
	service := newTestService(&fakeShell{})
	assert.Error(t, service.Cancel(context.Background(), testRun()))
}
