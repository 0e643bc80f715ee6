package gridrun

import (
	"github.com/viant/afs"
	"github.com/viant/afs/storage"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/dao"
	"github.com/mediseg/gridrun/service/event"
	"github.com/mediseg/gridrun/service/launcher"
	"github.com/mediseg/gridrun/service/meta"
	"github.com/mediseg/gridrun/tracing"
)

// Option customizes the engine service.
type Option func(s *Service)

// WithConfig sets the engine configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithFileService sets the abstract file storage service
func WithFileService(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithMetaService sets the meta service
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) {
		s.metaService = service
	}
}

// WithMetaBaseURL sets the base URL experiment locations resolve against
func WithMetaBaseURL(url string) Option {
	return func(s *Service) {
		s.metaBaseURL = url
	}
}

// WithMetaFsOptions sets meta file system options
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.metaFsOptions = options
	}
}

// WithRunDAO sets the run store
func WithRunDAO(runDAO dao.Service[string, model.Run]) Option {
	return func(s *Service) {
		s.runtime.runDAO = runDAO
	}
}

// WithEventService sets the event service
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.runtime.events = service
	}
}

// WithLaunchers registers additional launchers alongside the built-in ones
func WithLaunchers(launchers ...launcher.Service) Option {
	return func(s *Service) {
		s.extraLaunchers = append(s.extraLaunchers, launchers...)
	}
}

// WithLogger sets the logger shared by the monitor and the checkpoint
// watcher; defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path. Safe to call multiple times; the first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, enabling integrations beyond the built-in stdout exporter,
// for example OTLP, Jaeger or Zipkin. Safe to call multiple times; the first
// successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
