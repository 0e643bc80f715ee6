// Package local runs the training entry point as a child process on the
// current machine, for development and small experiments that do not need
// the cluster.
package local

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/viant/afs/url"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/launcher"
)

// Name identifies this launcher in run records and configuration.
const Name = "local"

var _ launcher.Service = (*Service)(nil)

// Config controls the local process launcher.
type Config struct {
	Python     string            `yaml:"python" json:"python"`
	EntryPoint string            `yaml:"entryPoint" json:"entryPoint"`
	WorkDir    string            `yaml:"workDir" json:"workDir"`
	LogDir     string            `yaml:"logDir" json:"logDir"`
	Env        map[string]string `yaml:"env" json:"env"`
}

// Init applies defaults.
func (c *Config) Init() {
	if c.Python == "" {
		c.Python = "python"
	}
	if c.EntryPoint == "" {
		c.EntryPoint = "Main.py"
	}
	if c.LogDir == "" {
		c.LogDir = os.TempDir()
	}
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Service launches and tracks local training processes keyed by run ID.
type Service struct {
	config Config
	mux    sync.Mutex
	procs  map[string]*process
}

// New creates a local launcher.
func New(config Config) *Service {
	config.Init()
	return &Service{
		config: config,
		procs:  make(map[string]*process),
	}
}

func (s *Service) Name() string {
	return Name
}

// Submit starts the training process with stdout and stderr merged into a
// per-run log file. The returned handle is the process ID.
func (s *Service) Submit(_ context.Context, run *model.Run) (string, error) {
	if run.Experiment == nil {
		return "", fmt.Errorf("run %s has no experiment snapshot", run.ID)
	}
	logDir := run.LogDir
	if logDir == "" {
		logDir = s.config.LogDir
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}
	logPath := filepath.Join(logDir, run.ID+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create log file %s: %w", logPath, err)
	}

	cmd := exec.Command(s.config.Python, s.config.EntryPoint, "--config", url.Path(run.ExperimentURL))
	cmd.Dir = s.config.WorkDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = os.Environ()
	for key, value := range s.config.Env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return "", fmt.Errorf("failed to start %s: %w", s.config.EntryPoint, err)
	}
	run.LogDir = logDir

	proc := &process{cmd: cmd, done: make(chan struct{})}
	s.mux.Lock()
	s.procs[run.ID] = proc
	s.mux.Unlock()

	go func() {
		proc.err = cmd.Wait()
		_ = logFile.Close()
		close(proc.done)
	}()
	return strconv.Itoa(cmd.Process.Pid), nil
}

// Status reports on the tracked process. A run submitted by an earlier
// incarnation of this service falls back to signalling the recorded PID.
func (s *Service) Status(_ context.Context, run *model.Run) (model.RunState, error) {
	if run.JobID == "" {
		return run.State, fmt.Errorf("run %s has no process ID", run.ID)
	}
	s.mux.Lock()
	proc, ok := s.procs[run.ID]
	s.mux.Unlock()
	if !ok {
		return s.checkPID(run)
	}
	select {
	case <-proc.done:
		if proc.err != nil {
			return model.RunStateFailed, nil
		}
		return model.RunStateCompleted, nil
	default:
		return model.RunStateRunning, nil
	}
}

// Cancel kills the training process.
func (s *Service) Cancel(_ context.Context, run *model.Run) error {
	s.mux.Lock()
	proc, ok := s.procs[run.ID]
	s.mux.Unlock()
	if ok {
		select {
		case <-proc.done:
			return nil
		default:
		}
		return proc.cmd.Process.Kill()
	}
	pid, err := strconv.Atoi(run.JobID)
	if err != nil {
		return fmt.Errorf("run %s has malformed process ID %q", run.ID, run.JobID)
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return process.Kill()
}

func (s *Service) checkPID(run *model.Run) (model.RunState, error) {
	pid, err := strconv.Atoi(run.JobID)
	if err != nil {
		return run.State, fmt.Errorf("run %s has malformed process ID %q", run.ID, run.JobID)
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return s.finished(run), nil
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return s.finished(run), nil
	}
	return model.RunStateRunning, nil
}

func (s *Service) finished(run *model.Run) model.RunState {
	if run.Error != "" {
		return model.RunStateFailed
	}
	return model.RunStateCompleted
}
