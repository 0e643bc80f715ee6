package gridrun

import (
	"path/filepath"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"go.uber.org/zap"

	"github.com/mediseg/gridrun/service/dao/experiment"
	runfs "github.com/mediseg/gridrun/service/dao/run/fs"
	runmemory "github.com/mediseg/gridrun/service/dao/run/memory"
	"github.com/mediseg/gridrun/service/event"
	"github.com/mediseg/gridrun/service/launcher"
	"github.com/mediseg/gridrun/service/launcher/gridengine"
	"github.com/mediseg/gridrun/service/launcher/local"
	"github.com/mediseg/gridrun/service/messaging"
	messagingfs "github.com/mediseg/gridrun/service/messaging/fs"
	"github.com/mediseg/gridrun/service/meta"
	"github.com/mediseg/gridrun/service/monitor"
	"github.com/mediseg/gridrun/service/watcher"
)

// Service wires the experiment store, launchers, monitor and event bus into
// a ready-to-use engine.
type Service struct {
	runtime        *Runtime
	config         *Config
	fs             afs.Service
	metaService    *meta.Service
	metaBaseURL    string
	metaFsOptions  []storage.Option
	extraLaunchers []launcher.Service
	logger         *zap.Logger
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	registry := s.runtime.launchers
	gridEngineConfig := s.config.GridEngine
	if gridEngineConfig.ScriptBaseURL == "" && s.config.Workspace != "" {
		gridEngineConfig.ScriptBaseURL = filepath.Join(s.config.Workspace, "scripts")
	}
	s.runtime.gridEngine = gridengine.New(s.fs, gridEngineConfig)
	registry.Register(s.runtime.gridEngine)
	registry.Register(local.New(s.config.Local))
	for _, extra := range s.extraLaunchers {
		registry.Register(extra)
	}

	pollQueue, err := event.QueueOf[monitor.Poll](s.runtime.events, "monitor.poll")
	if err != nil {
		s.logger.Error("failed to create poll queue", zap.Error(err))
		return
	}
	s.runtime.monitor, err = monitor.New(
		monitor.WithConfig(monitor.Config{
			WorkerCount:  s.config.Monitor.Workers,
			PollInterval: s.config.Monitor.PollInterval,
		}),
		monitor.WithRunDAO(s.runtime.runDAO),
		monitor.WithLaunchers(registry),
		monitor.WithQueue(pollQueue),
		monitor.WithEvents(s.runtime.events),
		monitor.WithLogger(s.logger),
	)
	if err != nil {
		s.logger.Error("failed to create monitor", zap.Error(err))
	}

	s.runtime.checkpoints, err = watcher.New(s.runtime.runDAO, watcher.WithLogger(s.logger))
	if err != nil {
		s.logger.Error("failed to create checkpoint watcher", zap.Error(err))
	}
}

// Runtime returns the engine runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.metaService == nil {
		s.metaService = meta.New(s.fs, s.metaBaseURL, s.metaFsOptions...)
	}
	if s.runtime.experimentDAO == nil {
		s.runtime.experimentDAO = experiment.New(s.metaService)
	}
	if s.runtime.runDAO == nil {
		if s.config.Workspace != "" {
			runDAO, err := runfs.New(filepath.Join(s.config.Workspace, "runs"))
			if err == nil {
				s.runtime.runDAO = runDAO
			} else {
				s.logger.Warn("failed to open run store, falling back to memory", zap.Error(err))
			}
		}
		if s.runtime.runDAO == nil {
			s.runtime.runDAO = runmemory.New()
		}
	}
	if s.runtime.launchers == nil {
		s.runtime.launchers = launcher.NewRegistry()
	}
	if s.runtime.events == nil {
		var eventOptions []event.Option
		if s.config.QueueVendor == messaging.VendorFs {
			workspace := s.config.Workspace
			eventOptions = append(eventOptions, event.WithNewFsQueueConfig(func(name string) messagingfs.Config {
				return messagingfs.DefaultConfig(filepath.Join(workspace, "queues", name))
			}))
		}
		events, err := event.New(s.config.QueueVendor, eventOptions...)
		if err != nil {
			s.logger.Warn("failed to create event service, falling back to memory queues", zap.Error(err))
			events, _ = event.New(messaging.VendorMemory)
		}
		s.runtime.events = events
	}
	s.runtime.defaultLauncher = s.config.Launcher
}

// New creates an engine service.
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}
