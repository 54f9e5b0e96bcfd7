package status

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Recorder keeps every status it sees in memory, for tests and the CLI.
// Usage:
//
//	rec := status.NewRecorder()
//	mgr.Subscribe(rec)
//	assert.True(t, rec.Has(status.LevelError, "banana"))
type Recorder struct {
	mu       sync.RWMutex
	statuses []Status
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnStatus implements Listener
func (r *Recorder) OnStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

// Statuses returns a copy of the recorded statuses
func (r *Recorder) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// Has reports whether a status of level contains substr in its message or cause
func (r *Recorder) Has(level Level, substr string) bool {
	return r.Count(level, substr) > 0
}

// Count counts statuses of level whose message or cause contains substr
func (r *Recorder) Count(level Level, substr string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.statuses {
		if s.Level != level {
			continue
		}
		text := s.Message
		if s.Cause != nil {
			text += " " + s.Cause.Error()
		}
		if strings.Contains(text, substr) {
			n++
		}
	}
	return n
}

// CountLevel counts statuses of level
func (r *Recorder) CountLevel(level Level) int {
	return r.Count(level, "")
}

// Reset forgets everything recorded
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = nil
}

// Print writes statuses to w, one per line
func Print(w io.Writer, statuses []Status) {
	for _, s := range statuses {
		fmt.Fprintln(w, s.String())
	}
}
