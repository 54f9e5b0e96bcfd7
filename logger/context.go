// src/pkg/logger/context.go
package logger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/status"
	"go.uber.org/zap/zapcore"
)

// Options per-context record enrichment
type Options struct {
	AppName string // injected as app_name when set

	// Trace ID configuration
	EnableTraceID    bool
	TraceIDKey       string // the key in context (default "trace_id")
	TraceIDFieldName string // Log field name (default "trace_id")

	// stack configuration
	EnableStacktrace bool
	StacktraceLevel  zapcore.Level
	StacktraceDepth  int // 0 = default depth
}

// DefaultOptions trace ids on, stacks from error level, 5 frames deep
func DefaultOptions() Options {
	return Options{
		EnableTraceID:    true,
		TraceIDKey:       "trace_id",
		TraceIDFieldName: "trace_id",
		EnableStacktrace: true,
		StacktraceLevel:  zapcore.ErrorLevel,
		StacktraceDepth:  5,
	}
}

// Option configures a Context
type Option func(*Context)

// WithStatusManager shares mgr instead of a private status manager
func WithStatusManager(mgr *status.Manager) Option {
	return func(c *Context) {
		if mgr != nil {
			c.statusMgr = mgr
		}
	}
}

// WithOptions replaces the record enrichment options
func WithOptions(opts Options) Option {
	return func(c *Context) {
		c.options = opts
	}
}

// Context is the live logging configuration shared by every handler of a pass.
// Its identity survives reconfigurations; only the State pointer is replaced.
type Context struct {
	birth     time.Time
	statusMgr *status.Manager
	report    status.Reporter
	options   Options

	state    atomic.Pointer[State]
	draft    atomic.Pointer[Draft]
	mu       sync.Mutex       // serializes configuration passes
	released []*rollingWriter // files of the previous State, guarded by mu

	propsMu sync.RWMutex
	props   map[string]string

	sinksMu sync.Mutex
	sinks   map[string]*MemorySink
}

// NewContext creates a context running the basic console configuration
func NewContext(name string, opts ...Option) *Context {
	c := &Context{
		birth:   time.Now(),
		options: DefaultOptions(),
		props:   make(map[string]string),
		sinks:   make(map[string]*MemorySink),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.statusMgr == nil {
		c.statusMgr = status.NewManager()
	}
	c.report = status.NewReporter(c.statusMgr, "LoggerContext")
	c.state.Store(newBasicState(name))
	return c
}

// Name current context name
func (c *Context) Name() string {
	return c.state.Load().name
}

// BirthTime creation time of the context
func (c *Context) BirthTime() time.Time {
	return c.birth
}

// StatusManager the status channel of this context
func (c *Context) StatusManager() *status.Manager {
	return c.statusMgr
}

// State the configuration currently in effect
func (c *Context) State() *State {
	return c.state.Load()
}

// Generation number of configurations committed so far
func (c *Context) Generation() uint64 {
	return c.state.Load().seq
}

// Monitors monitors carried by the current configuration
func (c *Context) Monitors() []Monitor {
	return c.state.Load().Monitors()
}

// PutProperty sets a property that survives reconfigurations
func (c *Context) PutProperty(key, value string) {
	c.propsMu.Lock()
	defer c.propsMu.Unlock()
	c.props[key] = value
}

// Property looks key up in the current configuration, then in the properties
// set with PutProperty.
func (c *Context) Property(key string) (string, bool) {
	if v, ok := c.state.Load().Property(key); ok {
		return v, true
	}
	c.propsMu.RLock()
	defer c.propsMu.RUnlock()
	v, ok := c.props[key]
	return v, ok
}

// Properties merged view of both property sets
func (c *Context) Properties() map[string]string {
	c.propsMu.RLock()
	out := make(map[string]string, len(c.props))
	for k, v := range c.props {
		out[k] = v
	}
	c.propsMu.RUnlock()
	for k, v := range c.state.Load().properties {
		out[k] = v
	}
	return out
}

// MemorySink returns the sink memory appenders called name write to
func (c *Context) MemorySink(name string) *MemorySink {
	c.sinksMu.Lock()
	defer c.sinksMu.Unlock()
	sink, ok := c.sinks[name]
	if !ok {
		sink = NewMemorySink()
		c.sinks[name] = sink
	}
	return sink
}

// Draft returns the pending configuration of the pass in progress
func (c *Context) Draft() (*Draft, error) {
	d := c.draft.Load()
	if d == nil {
		return nil, errcode.ErrNoDraft
	}
	return d, nil
}

// Configure runs fn as an exclusive configuration pass, waiting for any pass in
// progress. The draft fn fills in is committed only if fn succeeds.
func (c *Context) Configure(ctx context.Context, fn func(*Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configureLocked(ctx, fn)
}

// TryConfigure is Configure without waiting: it fails with
// errcode.ErrConfigureInProgress when another pass holds the context.
func (c *Context) TryConfigure(ctx context.Context, fn func(*Draft) error) error {
	if !c.mu.TryLock() {
		return errcode.ErrConfigureInProgress
	}
	defer c.mu.Unlock()
	return c.configureLocked(ctx, fn)
}

func (c *Context) configureLocked(ctx context.Context, fn func(*Draft) error) error {
	prev := c.state.Load()
	d := newDraft(prev.name)
	c.draft.Store(d)
	defer c.draft.Store(nil)

	if err := fn(d); err != nil {
		d.discard()
		return err
	}

	next, err := d.build(c, prev.seq+1, c.report)
	if err != nil {
		d.discard()
		return err
	}

	c.state.Store(next)
	c.retire(ctx, prev, next)
	return nil
}

// retire stops the monitors next no longer carries and releases prev's writers.
// The monitor that started this pass is left to retire itself.
func (c *Context) retire(ctx context.Context, prev, next *State) {
	initiator := InitiatorFrom(ctx)
	for _, m := range prev.monitors {
		if m == initiator || next.Carries(m) {
			continue
		}
		m.Stop()
	}
	c.closeReopened()
	c.released = prev.release()
}

// closeReopened closes the released files that late writes reopened
func (c *Context) closeReopened() {
	for _, w := range c.released {
		if w.lateWrites() > 0 {
			_ = w.Close()
			c.report.Info("Closed [" + w.Filename + "] reopened by a late write")
		}
	}
	c.released = nil
}

// Stop halts every monitor of the current configuration and flushes its appenders.
// Loggers stay usable afterwards.
func (c *Context) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state.Load()
	for _, m := range st.monitors {
		m.Stop()
	}
	c.state.Store(st.withoutMonitors())
	for _, ba := range st.appenders {
		_ = ba.core.Sync()
	}
	c.closeReopened()
}

// Logger returns a handle bound to name. Handles follow reconfigurations.
func (c *Context) Logger(name string) *CtxZapLogger {
	return &CtxZapLogger{lc: c, name: name}
}
