package gridengine

import (
	"strings"

	"github.com/mediseg/gridrun/model"
)

// MapState translates grid-engine state letters onto a run state. Error
// states (Eqw) take priority over the queue-wait letters they contain, and
// deletion (dr, dt) over the running ones.
func MapState(letters string) model.RunState {
	switch {
	case strings.Contains(letters, "E"):
		return model.RunStateFailed
	case strings.Contains(letters, "d"):
		return model.RunStateCancelled
	case strings.Contains(letters, "r"), strings.Contains(letters, "t"):
		return model.RunStateRunning
	case strings.Contains(letters, "q"), strings.Contains(letters, "w"),
		strings.Contains(letters, "h"), strings.Contains(letters, "s"):
		return model.RunStateQueued
	}
	return model.RunStateQueued
}
