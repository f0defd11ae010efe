package detector

import "errors"

// ErrNotRunning is reported whenever a live managed process cannot be
// resolved: the handle file is absent or unreadable, the recorded PID does
// not correspond to a live process, or the PID has been reused. Callers
// treat all of these identically.
var ErrNotRunning = errors.New("castd is not running")

// Detector resolves the PID of the managed castd worker.
// Implementations must be safe for concurrent use.
type Detector interface {
	// Probe returns the live PID, or an error wrapping ErrNotRunning.
	// A signal-0 probe cannot tell "gone" from "owned by another user";
	// both resolve the same way.
	Probe() (int, error)
	// Describe returns a human-readable description of the detection method.
	Describe() string
}
