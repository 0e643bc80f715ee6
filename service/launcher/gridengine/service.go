// Package gridengine submits training runs to an SGE style cluster scheduler.
// It renders a #$ annotated job script, hands it to qsub over a local or SSH
// shell and tracks the job through qstat until it leaves the queue.
package gridengine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
	"github.com/viant/scy/cred/secret"
	"golang.org/x/crypto/ssh"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/launcher"
)

// Name identifies this launcher in run records and configuration.
const Name = "gridengine"

var _ launcher.Service = (*Service)(nil)

// shell abstracts the gosh session so tests can substitute scheduler output.
type shell interface {
	Run(ctx context.Context, command string, options ...runner.Option) (string, int, error)
}

// Service submits and tracks grid-engine jobs.
type Service struct {
	fs     afs.Service
	config Config

	mux     sync.Mutex
	session shell
}

// Option customizes the service.
type Option func(*Service)

// WithShell replaces the scheduler shell, used by tests.
func WithShell(s shell) Option {
	return func(service *Service) {
		service.session = s
	}
}

// New creates a grid-engine launcher.
func New(fs afs.Service, config Config, opts ...Option) *Service {
	config.Init()
	ret := &Service{fs: fs, config: config}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Service) Name() string {
	return Name
}

// Submit renders the job script, stores it under the script base URL and
// submits it with qsub. The returned handle is the scheduler job ID.
func (s *Service) Submit(ctx context.Context, run *model.Run) (string, error) {
	if run.Experiment == nil {
		return "", fmt.Errorf("run %s has no experiment snapshot", run.ID)
	}
	script, err := s.Render(run)
	if err != nil {
		return "", err
	}
	scriptURL := url.Join(s.config.ScriptBaseURL, run.ID+".sh")
	if err := s.fs.Upload(ctx, scriptURL, file.DefaultFileOsMode, strings.NewReader(script)); err != nil {
		return "", fmt.Errorf("failed to write job script %s: %w", scriptURL, err)
	}
	run.ScriptURL = scriptURL

	output, err := s.run(ctx, fmt.Sprintf("%s %s", s.config.Qsub, url.Path(scriptURL)))
	if err != nil {
		return "", fmt.Errorf("qsub failed: %w", err)
	}
	jobID, _, err := ParseSubmission(output)
	if err != nil {
		return "", err
	}
	return jobID, nil
}

// Status polls qstat. A job no longer listed has left the scheduler and is
// reported completed unless a failure was already recorded on the run.
func (s *Service) Status(ctx context.Context, run *model.Run) (model.RunState, error) {
	if run.JobID == "" {
		return run.State, fmt.Errorf("run %s has no job ID", run.ID)
	}
	output, err := s.run(ctx, s.config.Qstat)
	if err != nil {
		return run.State, fmt.Errorf("qstat failed: %w", err)
	}
	jobs, err := ParseJobList(output)
	if err != nil {
		return run.State, err
	}
	for _, job := range jobs {
		if job.JobID == run.JobID {
			return MapState(job.State), nil
		}
	}
	if run.Error != "" {
		return model.RunStateFailed, nil
	}
	return model.RunStateCompleted, nil
}

// Cancel removes the job from the scheduler with qdel.
func (s *Service) Cancel(ctx context.Context, run *model.Run) error {
	if run.JobID == "" {
		return fmt.Errorf("run %s has no job ID", run.ID)
	}
	if _, err := s.run(ctx, fmt.Sprintf("%s %s", s.config.Qdel, run.JobID)); err != nil {
		return fmt.Errorf("qdel %s failed: %w", run.JobID, err)
	}
	return nil
}

// Render produces the submission script for a run without submitting it.
func (s *Service) Render(run *model.Run) (string, error) {
	if run.Experiment == nil {
		return "", fmt.Errorf("run %s has no experiment snapshot", run.ID)
	}
	job := &Job{
		Name:        run.Experiment.Name,
		WorkDir:     s.config.WorkDir,
		Resources:   s.config.Resources,
		SourceFiles: s.config.SourceFiles,
		VirtualEnv:  s.config.VirtualEnv,
		Command: fmt.Sprintf("%s %s --config %s",
			s.config.Python, s.config.EntryPoint, url.Path(run.ExperimentURL)),
	}
	return RenderScript(job)
}

func (s *Service) run(ctx context.Context, command string) (string, error) {
	session, err := s.getSession(ctx)
	if err != nil {
		return "", err
	}
	stdout, status, err := session.Run(ctx, command, runner.WithTimeout(s.config.CommandTimeoutMs))
	if err != nil {
		return stdout, err
	}
	if status != 0 {
		return stdout, fmt.Errorf("command %q exited with status %d: %s", command, status, strings.TrimSpace(stdout))
	}
	return stdout, nil
}

func (s *Service) getSession(ctx context.Context) (shell, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.session != nil {
		return s.session, nil
	}

	envOptions := []runner.Option{}
	if len(s.config.Env) > 0 {
		envOptions = append(envOptions, runner.WithEnvironment(s.config.Env))
	}

	var service *gosh.Service
	var err error
	host := s.config.SubmitHost
	if host == "" || host == "localhost" || strings.HasPrefix(host, "localhost:") {
		service, err = gosh.New(ctx, local.New(envOptions...))
	} else {
		var config *ssh.ClientConfig
		config, err = s.sshConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get SSH config: %w", err)
		}
		if !strings.Contains(host, ":") {
			host += ":22"
		}
		service, err = gosh.New(ctx, rssh.New(host, config, envOptions...))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open shell to %q: %w", s.config.SubmitHost, err)
	}
	s.session = service
	return s.session, nil
}

func (s *Service) sshConfig(ctx context.Context) (*ssh.ClientConfig, error) {
	credentials := s.config.Credentials
	if credentials == "" {
		credentials = "localhost"
	}
	secrets := secret.New()
	generic, err := secrets.GetCredentials(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return generic.SSH.Config(ctx)
}
