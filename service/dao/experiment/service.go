// Package experiment loads, decodes and caches experiment documents.
//
// Decoding is strict: a key the trainer would silently ignore is almost
// always a typo that burns a multi-day cluster allocation, so unknown keys
// are reported as errors instead.
package experiment

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mediseg/gridrun/internal/yml"
	"github.com/mediseg/gridrun/model"
	"github.com/mediseg/gridrun/service/meta"
)

// Service resolves experiment documents through the meta service and keeps a
// per-location cache so repeated submissions do not re-read the source.
type Service struct {
	metaService *meta.Service
	cache       map[string]*model.Experiment
	mux         sync.RWMutex
}

// New creates an experiment DAO backed by the supplied meta service.
func New(metaService *meta.Service) *Service {
	return &Service{
		metaService: metaService,
		cache:       map[string]*model.Experiment{},
	}
}

// ResolveURL normalizes the location the way Load does (a missing extension
// defaults to .yaml) and resolves it against the meta base URL. The result is
// the URL the trainer can open from inside the job, so callers stamp it on
// run records instead of the shorthand the user typed.
func (s *Service) ResolveURL(location string) string {
	if filepath.Ext(location) == "" {
		location += ".yaml"
	}
	return s.metaService.Resolve(location)
}

// Load returns the experiment at the supplied location, reading it at most
// once until Refresh discards the cached copy. A missing extension defaults
// to .yaml.
func (s *Service) Load(ctx context.Context, URL string) (*model.Experiment, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	s.mux.RLock()
	cached, ok := s.cache[URL]
	s.mux.RUnlock()
	if ok {
		return cached, nil
	}

	var node yaml.Node
	if err := s.metaService.Load(ctx, URL, &node); err != nil {
		return nil, fmt.Errorf("failed to load experiment from %s: %w", URL, err)
	}
	experiment, err := s.parse(URL, &node)
	if err != nil {
		return nil, err
	}

	s.mux.Lock()
	s.cache[URL] = experiment
	s.mux.Unlock()
	return experiment, nil
}

// DecodeYAML decodes an experiment from raw YAML without caching it.
func (s *Service) DecodeYAML(encoded []byte) (*model.Experiment, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	return s.parse("", &node)
}

// Refresh discards any cached copy for the supplied location; the next Load
// re-reads the source.
func (s *Service) Refresh(location string) {
	if filepath.Ext(location) == "" {
		location += ".yaml"
	}
	s.mux.Lock()
	delete(s.cache, location)
	s.mux.Unlock()
}

// Upsert stores the supplied experiment in the cache under location so that
// callers can inject documents built in memory.
func (s *Service) Upsert(location string, experiment *model.Experiment) {
	if filepath.Ext(location) == "" {
		location += ".yaml"
	}
	s.mux.Lock()
	s.cache[location] = experiment
	s.mux.Unlock()
}

func (s *Service) parse(URL string, node *yaml.Node) (*model.Experiment, error) {
	experiment := &model.Experiment{}
	if URL != "" {
		experiment.Source = &model.Source{URL: URL}
		experiment.Name = nameFromURL(URL)
	}

	root := yml.Root(node)
	if !root.IsMapping() {
		return nil, fmt.Errorf("experiment document must be a mapping")
	}
	err := root.Pairs(func(key string, value *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			experiment.Name = value.Text()
		case "dataset":
			return parseDataset(value, &experiment.Dataset)
		case "logger":
			return parseLogger(value, &experiment.Logger)
		case "seed":
			experiment.Seed = value.Int()
		case "model":
			return parseNetwork(value, &experiment.Model)
		case "train":
			return parseTrain(value, &experiment.Train)
		case "checkpoint":
			return parseCheckpoint(value, &experiment.Checkpoint)
		default:
			return fmt.Errorf("unknown section %q", key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse experiment from %s: %w", URL, err)
	}
	if issues := experiment.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid experiment %s: %w", URL, issues[0])
	}
	return experiment, nil
}

func parseDataset(node *yml.Node, out *model.Dataset) error {
	return node.Pairs(func(key string, value *yml.Node) error {
		switch key {
		case "name":
			out.Name = value.Text()
		case "num_workers":
			out.NumWorkers = value.Int()
		case "data_dir":
			out.DataDir = value.Text()
		case "data_format":
			out.DataFormat = value.Text()
		default:
			return fmt.Errorf("unknown dataset key %q", key)
		}
		return nil
	})
}

func parseLogger(node *yml.Node, out *model.Logger) error {
	return node.Pairs(func(key string, value *yml.Node) error {
		switch key {
		case "tag":
			out.Tag = value.Text()
		default:
			return fmt.Errorf("unknown logger key %q", key)
		}
		return nil
	})
}

func parseNetwork(node *yml.Node, out *model.Network) error {
	return node.Pairs(func(key string, value *yml.Node) error {
		switch key {
		case "input_dim":
			out.InputDim = value.Int()
		case "output_dim":
			out.OutputDim = value.Int()
		case "width":
			out.Width = value.Int()
		case "depth":
			out.Depth = value.Int()
		default:
			return fmt.Errorf("unknown model key %q", key)
		}
		return nil
	})
}

func parseTrain(node *yml.Node, out *model.Train) error {
	return node.Pairs(func(key string, value *yml.Node) error {
		switch key {
		case "transpose_dim":
			out.TransposeDim = value.Int()
		case "l2":
			out.L2 = value.Float()
		case "lr":
			out.LR = value.Float()
		case "iterations":
			out.Iterations = value.Int()
		case "batch":
			out.Batch = value.Int()
		case "temp":
			out.Temp = value.Float()
		case "contrast":
			out.Contrast = value.Bool()
		case "crop_aug":
			out.CropAug = value.Bool()
		case "gaussian":
			out.Gaussian = value.Bool()
		case "new_size_d":
			out.NewSizeD = value.Int()
		case "new_size_w":
			out.NewSizeW = value.Int()
		case "new_size_h":
			out.NewSizeH = value.Int()
		case "batch_u":
			out.BatchUnlabelled = value.Int()
		case "pri_mu":
			out.PriMu = value.Float()
		case "pri_std":
			out.PriStd = value.Float()
		case "flag_post_mu":
			out.FlagPostMu = value.Int()
		case "flag_post_std":
			out.FlagPostStd = value.Int()
		case "flag_pri_mu":
			out.FlagPriMu = value.Int()
		case "flag_pri_std":
			out.FlagPriStd = value.Int()
		case "alpha":
			out.Alpha = value.Float()
		case "warmup":
			out.Warmup = value.Float()
		case "warmup_start":
			out.WarmupStart = value.Float()
		case "beta":
			out.Beta = value.Float()
		case "conf_lower":
			out.ConfLower = value.Float()
		default:
			return fmt.Errorf("unknown train key %q", key)
		}
		return nil
	})
}

func parseCheckpoint(node *yml.Node, out *model.Checkpoint) error {
	return node.Pairs(func(key string, value *yml.Node) error {
		switch key {
		case "resume":
			out.Resume = value.Bool()
		case "checkpoint_path":
			out.CheckpointPath = value.Text()
		default:
			return fmt.Errorf("unknown checkpoint key %q", key)
		}
		return nil
	})
}

func nameFromURL(URL string) string {
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
