// Package schedule implements the loss-weight warmup ramps encoded by the
// experiment's warmup/warmup_start ratios.
package schedule

import "fmt"

// Ramp linearly increases a weight from zero to Target over a window of the
// total iteration count. The window starts at StartRatio*Total and ends at
// EndRatio*Total; before the window the weight is zero, after it the weight
// stays at Target. A zero-width window degenerates to a step function.
type Ramp struct {
	Total      int
	StartRatio float64
	EndRatio   float64
	Target     float64
}

// NewRamp builds a ramp for the supplied iteration budget and ratios.
func NewRamp(total int, startRatio, endRatio, target float64) (*Ramp, error) {
	if total <= 0 {
		return nil, fmt.Errorf("total iterations must be > 0, had %d", total)
	}
	if startRatio < 0 || startRatio > 1 {
		return nil, fmt.Errorf("start ratio must be in [0, 1], had %v", startRatio)
	}
	if endRatio < startRatio || endRatio > 1 {
		return nil, fmt.Errorf("end ratio must be in [%v, 1], had %v", startRatio, endRatio)
	}
	return &Ramp{Total: total, StartRatio: startRatio, EndRatio: endRatio, Target: target}, nil
}

// Value returns the weight at the supplied iteration.
func (r *Ramp) Value(iteration int) float64 {
	start := r.StartRatio * float64(r.Total)
	end := r.EndRatio * float64(r.Total)
	at := float64(iteration)
	if at < start {
		return 0
	}
	if at >= end {
		return r.Target
	}
	// end > start here, the degenerate window is handled above
	return r.Target * (at - start) / (end - start)
}

// FullFrom returns the first iteration at which the ramp reaches Target.
func (r *Ramp) FullFrom() int {
	return int(r.EndRatio * float64(r.Total))
}
