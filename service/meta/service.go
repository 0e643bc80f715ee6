// Package meta provides read access to configuration documents. Documents are
// fetched through the abstract file storage layer, so locations may be plain
// paths or any URL scheme afs understands, and ${env.KEY} expressions are
// expanded before decoding.
package meta

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service loads YAML documents relative to an optional base URL.
type Service struct {
	fs        afs.Service
	baseURL   string
	fsOptions []storage.Option
}

// New creates a meta service. baseURL may be empty, in which case locations
// are used verbatim.
func New(fs afs.Service, baseURL string, options ...storage.Option) *Service {
	return &Service{fs: fs, baseURL: baseURL, fsOptions: options}
}

// Resolve turns a location into an absolute URL using the configured base.
func (s *Service) Resolve(location string) string {
	if s.baseURL == "" || !url.IsRelative(location) {
		return location
	}
	return url.Join(s.baseURL, location)
}

// Exists reports whether the document at the supplied location is present.
func (s *Service) Exists(ctx context.Context, location string) (bool, error) {
	return s.fs.Exists(ctx, s.Resolve(location), s.fsOptions...)
}

// Load fetches the document at the supplied location, expands ${env.KEY}
// expressions and decodes the result into target.
func (s *Service) Load(ctx context.Context, location string, target interface{}) error {
	URL := s.Resolve(location)
	data, err := s.fs.DownloadWithURL(ctx, URL, s.fsOptions...)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", URL, err)
	}
	expanded := expandEnvExpr(string(data))
	if err = yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", URL, err)
	}
	return nil
}
