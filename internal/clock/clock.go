// Package clock is the time source for run timestamps, overridable so tests
// can freeze transition times.
package clock

import "time"

// NowFunc supplies the current time.
var NowFunc = time.Now

// Now returns the current time via NowFunc.
func Now() time.Time { return NowFunc() }
