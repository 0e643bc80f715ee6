package model

import (
	"fmt"

	"github.com/mediseg/gridrun/model/prior"
	"github.com/mediseg/gridrun/model/schedule"
)

// Experiment is the hyper-parameter document driving a single segmentation
// training run. It mirrors the YAML configuration consumed by the external
// training entry point section by section, so a file accepted here is accepted
// verbatim by the trainer.
type Experiment struct {

	// Source provides information about the origin of the experiment document
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`

	// Name is the unique identifier for the experiment, derived from the
	// document location when the file itself does not carry one
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Dataset Dataset `json:"dataset" yaml:"dataset"`

	Logger Logger `json:"logger" yaml:"logger"`

	// Seed is the global random seed forwarded to the trainer
	Seed int `json:"seed" yaml:"seed"`

	Model Network `json:"model" yaml:"model"`

	Train Train `json:"train" yaml:"train"`

	Checkpoint Checkpoint `json:"checkpoint" yaml:"checkpoint"`
}

// Source describes where an experiment document was loaded from.
type Source struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Dataset identifies the training corpus and how it is read.
type Dataset struct {
	Name       string `json:"name" yaml:"name"`
	NumWorkers int    `json:"num_workers" yaml:"num_workers"`
	DataDir    string `json:"data_dir" yaml:"data_dir"`
	DataFormat string `json:"data_format" yaml:"data_format"`
}

// Logger carries the free-text tag used by experiment tracking.
type Logger struct {
	Tag string `json:"tag" yaml:"tag"`
}

// Network describes the segmentation model geometry.
type Network struct {
	InputDim  int `json:"input_dim" yaml:"input_dim"`
	OutputDim int `json:"output_dim" yaml:"output_dim"`
	Width     int `json:"width" yaml:"width"`
	Depth     int `json:"depth" yaml:"depth"`
}

// Train groups the optimisation, augmentation and semi-supervised settings.
// BatchUnlabelled == 0 selects the purely supervised code path of the trainer;
// any positive value activates the pseudo-label branch and with it the
// prior/posterior fields below.
type Train struct {
	TransposeDim int     `json:"transpose_dim" yaml:"transpose_dim"`
	L2           float64 `json:"l2" yaml:"l2"`
	LR           float64 `json:"lr" yaml:"lr"`
	Iterations   int     `json:"iterations" yaml:"iterations"`
	Batch        int     `json:"batch" yaml:"batch"`

	// Temp is the output softmax temperature
	Temp float64 `json:"temp" yaml:"temp"`

	Contrast bool `json:"contrast" yaml:"contrast"`
	CropAug  bool `json:"crop_aug" yaml:"crop_aug"`
	Gaussian bool `json:"gaussian" yaml:"gaussian"`

	NewSizeD int `json:"new_size_d" yaml:"new_size_d"`
	NewSizeW int `json:"new_size_w" yaml:"new_size_w"`
	NewSizeH int `json:"new_size_h" yaml:"new_size_h"`

	BatchUnlabelled int `json:"batch_u" yaml:"batch_u"`

	// PriMu and PriStd parameterise the prior over the pseudo-label
	// confidence threshold; the four flags select how the posterior and
	// prior statistics are obtained (see model/prior)
	PriMu       float64 `json:"pri_mu" yaml:"pri_mu"`
	PriStd      float64 `json:"pri_std" yaml:"pri_std"`
	FlagPostMu  int     `json:"flag_post_mu" yaml:"flag_post_mu"`
	FlagPostStd int     `json:"flag_post_std" yaml:"flag_post_std"`
	FlagPriMu   int     `json:"flag_pri_mu" yaml:"flag_pri_mu"`
	FlagPriStd  int     `json:"flag_pri_std" yaml:"flag_pri_std"`

	// Alpha weights the unsupervised consistency term, Beta the pseudo-label
	// term; both are ramped according to the warmup ratios
	Alpha       float64 `json:"alpha" yaml:"alpha"`
	Warmup      float64 `json:"warmup" yaml:"warmup"`
	WarmupStart float64 `json:"warmup_start" yaml:"warmup_start"`
	Beta        float64 `json:"beta" yaml:"beta"`

	// ConfLower is the floor applied to the sampled confidence threshold
	ConfLower float64 `json:"conf_lower" yaml:"conf_lower"`
}

// Checkpoint controls resumption from a previous run.
type Checkpoint struct {
	Resume         bool   `json:"resume" yaml:"resume"`
	CheckpointPath string `json:"checkpoint_path" yaml:"checkpoint_path"`
}

// SemiSupervised reports whether this experiment activates the pseudo-label
// branch of the trainer.
func (e *Experiment) SemiSupervised() bool {
	return e.Train.BatchUnlabelled > 0
}

// Validate performs structural validation of the experiment. The returned
// slice is empty when the document is sound; otherwise it contains
// human-readable error descriptions. Semi-supervised fields are only checked
// when batch_u activates them.
func (e *Experiment) Validate() []error {
	var issues []error

	if e.Dataset.Name == "" {
		issues = append(issues, fmt.Errorf("dataset.name is required"))
	}
	if e.Dataset.DataDir == "" {
		issues = append(issues, fmt.Errorf("dataset.data_dir is required"))
	}
	if e.Dataset.NumWorkers < 0 {
		issues = append(issues, fmt.Errorf("dataset.num_workers must be >= 0, had %d", e.Dataset.NumWorkers))
	}
	if e.Seed < 0 {
		issues = append(issues, fmt.Errorf("seed must be >= 0, had %d", e.Seed))
	}

	issues = append(issues, e.Model.validate()...)
	issues = append(issues, e.Train.validate(e.SemiSupervised())...)

	if e.Checkpoint.Resume && e.Checkpoint.CheckpointPath == "" {
		issues = append(issues, fmt.Errorf("checkpoint.resume requires checkpoint.checkpoint_path"))
	}
	return issues
}

func (n *Network) validate() []error {
	var issues []error
	if n.InputDim <= 0 {
		issues = append(issues, fmt.Errorf("model.input_dim must be > 0, had %d", n.InputDim))
	}
	if n.OutputDim <= 0 {
		issues = append(issues, fmt.Errorf("model.output_dim must be > 0, had %d", n.OutputDim))
	}
	if n.Width <= 0 {
		issues = append(issues, fmt.Errorf("model.width must be > 0, had %d", n.Width))
	}
	if n.Depth <= 0 {
		issues = append(issues, fmt.Errorf("model.depth must be > 0, had %d", n.Depth))
	}
	return issues
}

func (t *Train) validate(semiSupervised bool) []error {
	var issues []error
	if t.LR <= 0 {
		issues = append(issues, fmt.Errorf("train.lr must be > 0, had %v", t.LR))
	}
	if t.L2 < 0 {
		issues = append(issues, fmt.Errorf("train.l2 must be >= 0, had %v", t.L2))
	}
	if t.Iterations <= 0 {
		issues = append(issues, fmt.Errorf("train.iterations must be > 0, had %d", t.Iterations))
	}
	if t.Batch <= 0 {
		issues = append(issues, fmt.Errorf("train.batch must be > 0, had %d", t.Batch))
	}
	if t.BatchUnlabelled < 0 {
		issues = append(issues, fmt.Errorf("train.batch_u must be >= 0, had %d", t.BatchUnlabelled))
	}
	if t.Temp <= 0 {
		issues = append(issues, fmt.Errorf("train.temp must be > 0, had %v", t.Temp))
	}
	if t.CropAug {
		if t.NewSizeD <= 0 || t.NewSizeW <= 0 || t.NewSizeH <= 0 {
			issues = append(issues, fmt.Errorf("train.crop_aug requires positive new_size_d/w/h, had %d/%d/%d",
				t.NewSizeD, t.NewSizeW, t.NewSizeH))
		}
	}
	if !semiSupervised {
		return issues
	}

	if t.PriMu <= 0 || t.PriMu >= 1 {
		issues = append(issues, fmt.Errorf("train.pri_mu must be in (0, 1), had %v", t.PriMu))
	}
	if t.PriStd <= 0 || t.PriStd > 0.5 {
		issues = append(issues, fmt.Errorf("train.pri_std must be in (0, 0.5], had %v", t.PriStd))
	}
	if err := t.ThresholdModes().Validate(); err != nil {
		issues = append(issues, fmt.Errorf("train: %w", err))
	}
	if t.Alpha < 0 {
		issues = append(issues, fmt.Errorf("train.alpha must be >= 0, had %v", t.Alpha))
	}
	if t.Beta < 0 {
		issues = append(issues, fmt.Errorf("train.beta must be >= 0, had %v", t.Beta))
	}
	if t.Warmup < 0 || t.Warmup > 1 {
		issues = append(issues, fmt.Errorf("train.warmup must be in [0, 1], had %v", t.Warmup))
	}
	if t.WarmupStart < 0 || t.WarmupStart > 1 {
		issues = append(issues, fmt.Errorf("train.warmup_start must be in [0, 1], had %v", t.WarmupStart))
	}
	if t.WarmupStart > t.Warmup {
		issues = append(issues, fmt.Errorf("train.warmup_start (%v) must not exceed train.warmup (%v)", t.WarmupStart, t.Warmup))
	}
	if t.ConfLower < 0 || t.ConfLower >= 1 {
		issues = append(issues, fmt.Errorf("train.conf_lower must be in [0, 1), had %v", t.ConfLower))
	}
	return issues
}

// ThresholdModes returns the flag_* selectors as typed threshold modes.
func (t *Train) ThresholdModes() prior.Modes {
	return prior.Modes{
		PostMu:  t.FlagPostMu,
		PostStd: t.FlagPostStd,
		PriMu:   t.FlagPriMu,
		PriStd:  t.FlagPriStd,
	}
}

// ThresholdPrior returns the configured prior over the pseudo-label
// confidence threshold.
func (t *Train) ThresholdPrior() prior.Gaussian {
	return prior.Gaussian{Mu: t.PriMu, Std: t.PriStd}
}

// AlphaRamp returns the warmup schedule of the consistency loss weight.
func (t *Train) AlphaRamp() (*schedule.Ramp, error) {
	return schedule.NewRamp(t.Iterations, t.WarmupStart, t.Warmup, t.Alpha)
}

// BetaRamp returns the warmup schedule of the pseudo-label loss weight.
func (t *Train) BetaRamp() (*schedule.Ramp, error) {
	return schedule.NewRamp(t.Iterations, t.WarmupStart, t.Warmup, t.Beta)
}
