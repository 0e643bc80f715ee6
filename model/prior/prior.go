// Package prior implements the scalar prior/posterior semantics of the
// pseudo-label confidence threshold. The trainer models the binarisation
// threshold as a univariate Gaussian; the experiment's flag_* fields select
// how each statistic is obtained (fixed, learned, or derived from the current
// prediction confidence). This package mirrors those modes so that
// configurations can be validated and reported on without the trainer.
package prior

import (
	"fmt"
	"math"
)

// rangeSigmas is the number of standard deviations that must fit between the
// mean and the [0, 1] bounds when a std is derived from a mean.
const rangeSigmas = 2.0

// Mean modes for the posterior distribution.
const (
	// PostMuLearned: the trainer learns the posterior mean directly
	PostMuLearned = 0
	// PostMuFromPrediction: the posterior mean is the mean prediction confidence
	PostMuFromPrediction = 1
	// PostMuFromPrior: the posterior mean copies the prior mean
	PostMuFromPrior = 2
)

// Std modes for the posterior distribution.
const (
	// PostStdLearned: the trainer learns the posterior log-variance directly
	PostStdLearned = 0
	// PostStdFromMean: derived from the mean under the two-sigma range constraint
	PostStdFromMean = 1
	// PostStdFromPrior: the posterior std copies the prior std
	PostStdFromPrior = 2
)

// Mean modes for the prior distribution.
const (
	// PriMuFixed: predefined mean (pri_mu)
	PriMuFixed = 0
	// PriMuFromPrediction: dynamic mean from the current prediction confidence
	PriMuFromPrediction = 1
)

// Std modes for the prior distribution.
const (
	// PriStdFixed: predefined standard deviation (pri_std)
	PriStdFixed = 0
	// PriStdFromMean: derived from the mean under the two-sigma range constraint
	PriStdFromMean = 1
)

// Gaussian is a univariate normal distribution over the confidence threshold.
type Gaussian struct {
	Mu  float64
	Std float64
}

// StdFromMean derives a standard deviation from a mean in [0, 1] so that
// mu +/- 2*sigma stays within the unit interval.
func StdFromMean(mu float64) float64 {
	upper := (1 - mu) / rangeSigmas
	lower := mu / rangeSigmas
	return math.Min(lower, upper)
}

// KL returns the Kullback-Leibler divergence KL(p || q) between two
// univariate Gaussians in closed form.
func KL(p, q Gaussian) float64 {
	varP := p.Std * p.Std
	varQ := q.Std * q.Std
	return math.Log(q.Std) - math.Log(p.Std) + (varP+(p.Mu-q.Mu)*(p.Mu-q.Mu))/(2*varQ) - 0.5
}

// Modes groups the four selector flags of an experiment.
type Modes struct {
	PostMu  int
	PostStd int
	PriMu   int
	PriStd  int
}

// Validate returns an error naming the first flag outside its legal range.
func (m Modes) Validate() error {
	if m.PostMu < PostMuLearned || m.PostMu > PostMuFromPrior {
		return fmt.Errorf("posterior mean mode must be 0, 1 or 2, had %d", m.PostMu)
	}
	if m.PostStd < PostStdLearned || m.PostStd > PostStdFromPrior {
		return fmt.Errorf("posterior std mode must be 0, 1 or 2, had %d", m.PostStd)
	}
	if m.PriMu < PriMuFixed || m.PriMu > PriMuFromPrediction {
		return fmt.Errorf("prior mean mode must be 0 or 1, had %d", m.PriMu)
	}
	if m.PriStd < PriStdFixed || m.PriStd > PriStdFromMean {
		return fmt.Errorf("prior std mode must be 0 or 1, had %d", m.PriStd)
	}
	return nil
}

// LearnsPosterior reports whether any posterior statistic is learned by the
// trainer as opposed to being fixed or derived.
func (m Modes) LearnsPosterior() bool {
	return m.PostMu == PostMuLearned || m.PostStd == PostStdLearned
}

// ResolvePrior returns the effective prior distribution for a fixed
// configuration. confidence is only consulted in the dynamic-mean mode, where
// it stands in for the trainer's mean prediction confidence.
func (m Modes) ResolvePrior(fixed Gaussian, confidence float64) Gaussian {
	out := fixed
	if m.PriMu == PriMuFromPrediction {
		out.Mu = confidence
	}
	if m.PriStd == PriStdFromMean {
		out.Std = StdFromMean(out.Mu)
	}
	return out
}

// ResolvePosterior returns the effective posterior distribution given the
// resolved prior. In learned modes the supplied learned statistics are used
// unchanged; otherwise the mode's derivation applies.
func (m Modes) ResolvePosterior(learned Gaussian, prior Gaussian, confidence float64) Gaussian {
	out := learned
	switch m.PostMu {
	case PostMuFromPrediction:
		out.Mu = confidence
	case PostMuFromPrior:
		out.Mu = prior.Mu
	}
	switch m.PostStd {
	case PostStdFromMean:
		out.Std = StdFromMean(out.Mu)
	case PostStdFromPrior:
		out.Std = prior.Std
	}
	return out
}

// ClampThreshold forces a sampled threshold into [lower, 1). Values at or
// above one would suppress every pseudo-label, values below the floor would
// accept noise.
func ClampThreshold(threshold, lower float64) float64 {
	if threshold < lower {
		return lower
	}
	if threshold >= 1 {
		return math.Nextafter(1, 0)
	}
	return threshold
}
