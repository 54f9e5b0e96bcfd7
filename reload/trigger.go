// Package reload watches a configuration source and reconfigures the logger context
// when the source changes.
package reload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/logger"
	"github.com/KOMKZ/go-yogan-logconf/source"
	"github.com/KOMKZ/go-yogan-logconf/status"
	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPeriod interval between two change checks
const DefaultPeriod = 60 * time.Second

// TracerName instrumentation scope of reconfiguration spans
const TracerName = "yogan-logconf/reload"

// Phase lifecycle of a Trigger
type Phase int32

const (
	PhaseIdle Phase = iota
	PhasePolling
	PhaseReconfiguring
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePolling:
		return "polling"
	case PhaseReconfiguring:
		return "reconfiguring"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// ReconfigureFunc re-reads and applies the configuration described by snap.
// ctx carries the trigger as initiator (logger.WithInitiator).
type ReconfigureFunc func(ctx context.Context, snap source.Snapshot) error

// Option configures a Trigger
type Option func(*Trigger)

// WithMetrics records checks and reconfigurations on m instead of the global meter
func WithMetrics(m *Metrics) Option {
	return func(t *Trigger) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithTracer wraps each reconfiguration in a span from tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(t *Trigger) {
		if tracer != nil {
			t.tracer = tracer
		}
	}
}

// WithFSNotify checks immediately when the file behind a source.FileSource changes.
// Polling keeps running; other sources ignore the option.
func WithFSNotify() Option {
	return func(t *Trigger) {
		t.watchFS = true
	}
}

// Trigger polls a source for changes and calls back into the configurator when the
// marker moves. At most one check runs at a time; a check that finds another one
// underway returns errcode.ErrCheckInFlight at once.
type Trigger struct {
	id          uuid.UUID
	lc          *logger.Context
	src         source.Source
	reconfigure ReconfigureFunc
	report      status.Reporter
	metrics     *Metrics
	tracer      trace.Tracer
	watchFS     bool

	mu        sync.Mutex
	phase     Phase
	period    time.Duration
	marker    source.Marker
	scheduler gocron.Scheduler
	watcher   *fsnotify.Watcher

	busy     atomic.Bool
	inflight sync.WaitGroup
}

// New creates an idle trigger for snap. snap.Marker is the revision already applied.
func New(lc *logger.Context, snap source.Snapshot, fn ReconfigureFunc, opts ...Option) *Trigger {
	t := &Trigger{
		id:          uuid.New(),
		lc:          lc,
		src:         snap.Source,
		marker:      snap.Marker,
		reconfigure: fn,
		report:      status.NewReporter(lc.StatusManager(), "ReconfigureOnChangeFilter"),
		tracer:      otel.Tracer(TracerName),
		period:      DefaultPeriod,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		t.metrics = defaultMetrics()
	}
	return t
}

// ID unique id, also used as the scheduler job identifier
func (t *Trigger) ID() uuid.UUID {
	return t.id
}

// Name implements logger.Monitor
func (t *Trigger) Name() string {
	return "ReconfigureOnChangeFilter[" + t.src.Identity() + "]"
}

// Source watched source
func (t *Trigger) Source() source.Source {
	return t.src
}

// Phase current lifecycle phase
func (t *Trigger) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Period interval between checks
func (t *Trigger) Period() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// Marker last revision successfully applied
func (t *Trigger) Marker() source.Marker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.marker
}

// SetPeriod changes the check interval. It is only honoured before Start.
func (t *Trigger) SetPeriod(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != PhaseIdle || d <= 0 {
		return false
	}
	t.period = d
	return true
}

// Start schedules periodic checks
func (t *Trigger) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.phase {
	case PhaseStopped:
		return errcode.ErrTriggerStopped
	case PhaseIdle:
	default:
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(t.period),
		gocron.NewTask(t.tick),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(t.Name()),
		gocron.WithIdentifier(t.id),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule change checks: %w", err)
	}

	if t.watchFS {
		if fs, ok := t.src.(*source.FileSource); ok {
			if err := t.watch(fs.Path()); err != nil {
				t.report.Warn(fmt.Sprintf("Failed to watch [%s], relying on polling: %v", fs.Path(), err))
			}
		}
	}

	scheduler.Start()
	t.scheduler = scheduler
	t.phase = PhasePolling
	return nil
}

// watch nudges a check on every write, create or rename of path. The directory is
// watched so that editors replacing the file are noticed. Called with mu held.
func (t *Trigger) watch(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}
	t.watcher = watcher
	path = filepath.Clean(path)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					_ = t.Check(context.Background())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				t.report.Warn(fmt.Sprintf("File watcher error: %v", err))
			}
		}
	}()
	return nil
}

func (t *Trigger) tick() {
	_ = t.Check(context.Background())
}

// Check compares the source marker with the last applied one and reconfigures on
// change. Failures are recorded as statuses and returned; the previous configuration
// stays in effect and the next check retries.
func (t *Trigger) Check(ctx context.Context) error {
	t.mu.Lock()
	if t.phase == PhaseStopped {
		t.mu.Unlock()
		return errcode.ErrTriggerStopped
	}
	if !t.busy.CompareAndSwap(false, true) {
		t.mu.Unlock()
		return errcode.ErrCheckInFlight
	}
	t.inflight.Add(1)
	last := t.marker
	t.mu.Unlock()

	defer func() {
		t.busy.Store(false)
		t.inflight.Done()
	}()

	identity := t.src.Identity()
	t.metrics.recordCheck(ctx, identity)

	current, err := t.src.Marker(ctx)
	if err != nil {
		t.report.Error(fmt.Sprintf("Failed to check [%s] for changes", identity), err)
		return err
	}
	if current == last {
		return nil
	}

	t.setPhase(PhaseReconfiguring)
	t.report.Info(fmt.Sprintf("Detected change in [%s]", identity))

	start := time.Now()
	spanCtx, span := t.tracer.Start(ctx, "logconf.reconfigure",
		trace.WithAttributes(attribute.String("logconf.source", identity)))
	err = t.reconfigure(logger.WithInitiator(spanCtx, t), source.Snapshot{Source: t.src, Marker: current})
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		t.setPhase(PhasePolling)

		if errors.Is(err, errcode.ErrConfigureInProgress) {
			t.metrics.recordReload(ctx, identity, ResultDeferred, elapsed)
			t.report.Info(fmt.Sprintf("Another configuration pass is running, [%s] will be checked again", identity))
			return err
		}
		t.metrics.recordReload(ctx, identity, ResultFailure, elapsed)
		t.report.Error(fmt.Sprintf("Reconfiguration from [%s] failed, keeping the previous configuration", identity), err)
		return err
	}
	span.End()
	t.metrics.recordReload(ctx, identity, ResultSuccess, elapsed)

	t.mu.Lock()
	t.marker = current
	t.mu.Unlock()

	if t.lc.State().Carries(t) {
		t.setPhase(PhasePolling)
		return nil
	}
	t.retire()
	return nil
}

// setPhase moves between polling and reconfiguring; an idle or stopped trigger
// keeps its phase so that Start and Stop stay authoritative.
func (t *Trigger) setPhase(p Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == PhasePolling || t.phase == PhaseReconfiguring {
		t.phase = p
	}
}

// markStopped moves to PhaseStopped and detaches the scheduler and watcher.
// Only the first call gets them.
func (t *Trigger) markStopped() (gocron.Scheduler, *fsnotify.Watcher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == PhaseStopped {
		return nil, nil
	}
	t.phase = PhaseStopped
	scheduler, watcher := t.scheduler, t.watcher
	t.scheduler, t.watcher = nil, nil
	return scheduler, watcher
}

// retire stops a trigger that the configuration it installed no longer carries.
// It runs inside the trigger's own check, so the scheduler, which waits for running
// jobs, is shut down in the background.
func (t *Trigger) retire() {
	scheduler, watcher := t.markStopped()
	if watcher != nil {
		_ = watcher.Close()
	}
	if scheduler != nil {
		go func() { _ = scheduler.Shutdown() }()
	}
}

// Stop implements logger.Monitor. It returns once no check is running; afterwards the
// trigger never touches the context again.
func (t *Trigger) Stop() {
	scheduler, watcher := t.markStopped()
	if watcher != nil {
		_ = watcher.Close()
	}
	if scheduler != nil {
		_ = scheduler.Shutdown()
	}
	t.inflight.Wait()
}
