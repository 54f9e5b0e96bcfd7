package status

import "fmt"

// Reporter emits statuses tagged with a fixed origin. A nil Manager discards everything.
type Reporter struct {
	mgr    *Manager
	origin string
}

// NewReporter creates a Reporter for origin
func NewReporter(mgr *Manager, origin string) Reporter {
	return Reporter{mgr: mgr, origin: origin}
}

// Manager returns the underlying Manager
func (r Reporter) Manager() *Manager {
	return r.mgr
}

// Info records an info status
func (r Reporter) Info(msg string) {
	r.add(LevelInfo, msg, nil)
}

// Infof records a formatted info status
func (r Reporter) Infof(format string, args ...interface{}) {
	r.add(LevelInfo, fmt.Sprintf(format, args...), nil)
}

// Warn records a warning status
func (r Reporter) Warn(msg string) {
	r.add(LevelWarn, msg, nil)
}

// Error records an error status with an optional cause
func (r Reporter) Error(msg string, cause error) {
	r.add(LevelError, msg, cause)
}

func (r Reporter) add(level Level, msg string, cause error) {
	if r.mgr == nil {
		return
	}
	r.mgr.Add(New(level, r.origin, msg, cause))
}
