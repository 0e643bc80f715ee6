package monitor

import (
	"go.uber.org/zap"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao"
	"github.com/mediseg/gridrun/service/event"
	"github.com/mediseg/gridrun/service/launcher"
	"github.com/mediseg/gridrun/service/messaging"
)

// Option configures the monitor service
type Option func(*Service)

// WithConfig sets the monitor configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		if config.WorkerCount > 0 {
			s.config.WorkerCount = config.WorkerCount
		}
		if config.PollInterval > 0 {
			s.config.PollInterval = config.PollInterval
		}
	}
}

// WithRunDAO sets the run store
func WithRunDAO(runDAO dao.Service[string, model.Run]) Option {
	return func(s *Service) {
		s.runDAO = runDAO
	}
}

// WithLaunchers sets the launcher registry
func WithLaunchers(registry *launcher.Registry) Option {
	return func(s *Service) {
		s.launchers = registry
	}
}

// WithQueue sets the poll message queue
func WithQueue(queue messaging.Queue[Poll]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithEvents sets the event service used to publish run transitions
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithLogger sets the logger; defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
