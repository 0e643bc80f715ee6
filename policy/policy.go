// Package policy provides an optional approval layer for cluster submissions
// that can be attached via context. It is deliberately decoupled from the
// engine so that using it is entirely opt-in: sessions that do not embed a
// Policy in their context keep the default "auto" behaviour.

package policy

import (
	"context"
	"strings"
)

// Submission modes recognised by the engine.
const (
	ModeAsk  = "ask"  // ask before every submission
	ModeAuto = "auto" // submit automatically (default)
	ModeDeny = "deny" // block submissions
)

// AskFunc is invoked when Mode==ask. Returning true approves the submission,
// false rejects it. Implementations MAY mutate the policy (for example,
// switching to ModeAuto after the first approval).
type AskFunc func(
	ctx context.Context,
	experiment string, // experiment name about to be submitted
	launcher string, // target launcher
	p *Policy,
) bool

// Policy represents the approval settings for the current session.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList filter by experiment name regardless of Mode.
//   - Ask is only used when Mode==ask.
//
// A nil *Policy means "submit everything automatically" and is therefore the
// zero-cost default.
type Policy struct {
	Mode      string   // ask / auto / deny      (default = auto)
	AllowList []string // whitelist (empty => all)
	BlockList []string // blacklist
	Ask       AskFunc  // used only when Mode==ask
}

// ---------------------------------------------------------------------------
// Config <-> Policy converters (Config is the serialisable subset used when a
// Policy with AskFunc cannot be persisted).
// ---------------------------------------------------------------------------

// Config represents the declarative, serialisable part of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without
// AskFunc).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates AllowList / BlockList. Both lists match by exact,
// case-insensitive comparison of the experiment name.
func (p *Policy) IsAllowed(experiment string) bool {
	if p == nil {
		return true
	}

	normalized := strings.ToLower(experiment)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}

	// AllowList: empty allows everything, otherwise only the listed entries.
	if len(p.AllowList) == 0 {
		return true
	}

	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}

	return false
}

// Approve runs the full gate for one submission: list filters first, then the
// mode. It returns false when the submission must not proceed.
func (p *Policy) Approve(ctx context.Context, experiment, launcher string) bool {
	if p == nil {
		return true
	}
	if !p.IsAllowed(experiment) {
		return false
	}
	switch p.Mode {
	case ModeDeny:
		return false
	case ModeAsk:
		if p.Ask == nil {
			return false
		}
		return p.Ask(ctx, experiment, launcher, p)
	}
	return true
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy, nil when absent.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
