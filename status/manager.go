package status

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// maxHead statuses kept from the start of the process
	maxHead = 150
	// maxTail most recent statuses kept after the head is full
	maxTail = 150
)

// Listener receives every status added to a Manager
type Listener interface {
	OnStatus(s Status)
}

// ListenerFunc functional listener adapter
type ListenerFunc func(s Status)

// OnStatus implements Listener
func (f ListenerFunc) OnStatus(s Status) {
	f(s)
}

// UnsubscribeFunc detaches a listener
type UnsubscribeFunc func()

type listenerEntry struct {
	id       uint64
	listener Listener
}

// Manager bounded status store with synchronous listener fan-out
type Manager struct {
	mu        sync.RWMutex
	head      []Status
	tail      []Status // ring buffer
	tailNext  int
	count     int
	listeners []listenerEntry
	nextID    uint64
}

// NewManager creates an empty Manager
func NewManager() *Manager {
	return &Manager{
		head: make([]Status, 0, maxHead),
		tail: make([]Status, 0, maxTail),
	}
}

// Add stores s and notifies listeners. Listener panics are swallowed.
func (m *Manager) Add(s Status) {
	if s.Time.IsZero() {
		s.Time = time.Now()
	}

	m.mu.Lock()
	m.count++
	if len(m.head) < maxHead {
		m.head = append(m.head, s)
	} else if len(m.tail) < maxTail {
		m.tail = append(m.tail, s)
	} else {
		m.tail[m.tailNext] = s
		m.tailNext = (m.tailNext + 1) % maxTail
	}
	listeners := make([]listenerEntry, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, entry := range listeners {
		notify(entry.listener, s)
	}
}

func notify(l Listener, s Status) {
	defer func() {
		_ = recover()
	}()
	l.OnStatus(s)
}

// List returns the retained statuses in arrival order
func (m *Manager) List() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked()
}

func (m *Manager) listLocked() []Status {
	out := make([]Status, 0, len(m.head)+len(m.tail))
	out = append(out, m.head...)
	if len(m.tail) < maxTail {
		out = append(out, m.tail...)
		return out
	}
	out = append(out, m.tail[m.tailNext:]...)
	out = append(out, m.tail[:m.tailNext]...)
	return out
}

// Count total statuses ever added, including evicted ones
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// HighestLevel returns the most severe level among retained statuses at or after since
func (m *Manager) HighestLevel(since time.Time) Level {
	highest := LevelInfo
	for _, s := range m.List() {
		if s.Time.Before(since) {
			continue
		}
		if s.Level > highest {
			highest = s.Level
		}
	}
	return highest
}

// Since returns retained statuses at or after t
func (m *Manager) Since(t time.Time) []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sinceLocked(t)
}

func (m *Manager) sinceLocked(t time.Time) []Status {
	var out []Status
	for _, s := range m.listLocked() {
		if !s.Time.Before(t) {
			out = append(out, s)
		}
	}
	return out
}

// Subscribe attaches l and returns a function detaching it
func (m *Manager) Subscribe(l Listener) UnsubscribeFunc {
	if l == nil {
		return func() {}
	}
	id := atomic.AddUint64(&m.nextID, 1)

	m.mu.Lock()
	m.listeners = append(m.listeners, listenerEntry{id: id, listener: l})
	m.mu.Unlock()

	return func() {
		m.unsubscribe(id)
	}
}

// SubscribeSince attaches l and returns the retained statuses at or after t, taken
// under the same lock. Every status is either in the backlog or delivered to l, never both.
func (m *Manager) SubscribeSince(l Listener, t time.Time) ([]Status, UnsubscribeFunc) {
	id := atomic.AddUint64(&m.nextID, 1)

	m.mu.Lock()
	m.listeners = append(m.listeners, listenerEntry{id: id, listener: l})
	backlog := m.sinceLocked(t)
	m.mu.Unlock()

	return backlog, func() {
		m.unsubscribe(id)
	}
}

func (m *Manager) unsubscribe(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.listeners {
		if e.id == id {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns the attached listeners
func (m *Manager) Listeners() []Listener {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Listener, 0, len(m.listeners))
	for _, e := range m.listeners {
		out = append(out, e.listener)
	}
	return out
}

// Clear drops retained statuses; listeners stay attached
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.head = m.head[:0]
	m.tail = m.tail[:0]
	m.tailNext = 0
	m.count = 0
}
