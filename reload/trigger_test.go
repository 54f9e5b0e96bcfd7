package reload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/logger"
	"github.com/KOMKZ/go-yogan-logconf/source"
	"github.com/KOMKZ/go-yogan-logconf/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeSource struct {
	mu     sync.Mutex
	marker source.Marker
	err    error
}

func (s *fakeSource) Identity() string { return "fake:test" }

func (s *fakeSource) set(m source.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = m
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSource) Marker(ctx context.Context) (source.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marker, s.err
}

func (s *fakeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("<configuration/>")), nil
}

type fixture struct {
	lc     *logger.Context
	src    *fakeSource
	rec    *status.Recorder
	passes atomic.Int32
	seen   []source.Marker
	mu     sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{lc: logger.NewContext("test"), src: &fakeSource{marker: "m0"}, rec: status.NewRecorder()}
	f.lc.StatusManager().Subscribe(f.rec)
	return f
}

// apply runs a real pass on the context; carry decides which monitors the new state keeps
func (f *fixture) apply(carry ...logger.Monitor) ReconfigureFunc {
	return func(ctx context.Context, snap source.Snapshot) error {
		f.passes.Add(1)
		f.mu.Lock()
		f.seen = append(f.seen, snap.Marker)
		f.mu.Unlock()
		return f.lc.TryConfigure(ctx, func(d *logger.Draft) error {
			for _, m := range carry {
				d.AddMonitor(m)
			}
			return nil
		})
	}
}

func (f *fixture) trigger(fn ReconfigureFunc, opts ...Option) *Trigger {
	return New(f.lc, source.Snapshot{Source: f.src, Marker: "m0"}, fn, opts...)
}

func TestTrigger_PeriodOnlyWhileIdle(t *testing.T) {
	f := newFixture(t)
	trg := f.trigger(f.apply())

	assert.Equal(t, DefaultPeriod, trg.Period())
	assert.Equal(t, PhaseIdle, trg.Phase())
	assert.False(t, trg.SetPeriod(0))
	assert.True(t, trg.SetPeriod(10*time.Second))

	require.NoError(t, trg.Start())
	assert.Equal(t, PhasePolling, trg.Phase())
	assert.False(t, trg.SetPeriod(time.Second))
	assert.Equal(t, 10*time.Second, trg.Period())

	trg.Stop()
	assert.Equal(t, PhaseStopped, trg.Phase())
	assert.True(t, errors.Is(trg.Start(), errcode.ErrTriggerStopped))
	trg.Stop()
}

func TestTrigger_UnchangedSourceIsNoop(t *testing.T) {
	f := newFixture(t)
	trg := f.trigger(f.apply())

	require.NoError(t, trg.Check(context.Background()))
	require.NoError(t, trg.Check(context.Background()))

	assert.Equal(t, int32(0), f.passes.Load())
	assert.Equal(t, uint64(0), f.lc.Generation())
}

func TestTrigger_ChangeReconfiguresAndRetires(t *testing.T) {
	f := newFixture(t)
	trg := f.trigger(f.apply())
	require.NoError(t, trg.Start())
	defer trg.Stop()

	f.src.set("m1")
	require.NoError(t, trg.Check(context.Background()))

	assert.Equal(t, int32(1), f.passes.Load())
	assert.Equal(t, []source.Marker{"m1"}, f.seen)
	assert.Equal(t, source.Marker("m1"), trg.Marker())
	assert.Equal(t, uint64(1), f.lc.Generation())
	assert.Equal(t, PhaseStopped, trg.Phase())
	assert.True(t, f.rec.Has(status.LevelInfo, "Detected change in [fake:test]"))

	f.src.set("m2")
	assert.True(t, errors.Is(trg.Check(context.Background()), errcode.ErrTriggerStopped))
	assert.Equal(t, int32(1), f.passes.Load())
}

func TestTrigger_InitiatorNotStoppedBySupersedingPass(t *testing.T) {
	f := newFixture(t)
	var trg *Trigger
	trg = f.trigger(func(ctx context.Context, snap source.Snapshot) error {
		assert.Same(t, trg, logger.InitiatorFrom(ctx))
		return f.lc.TryConfigure(ctx, func(d *logger.Draft) error { return nil })
	})
	require.NoError(t, f.lc.Configure(context.Background(), func(d *logger.Draft) error {
		d.AddMonitor(trg)
		return trg.Start()
	}))

	f.src.set("m1")
	require.NoError(t, trg.Check(context.Background()))

	assert.Equal(t, PhaseStopped, trg.Phase())
	assert.Empty(t, f.lc.Monitors())
}

func TestTrigger_CarriedTriggerKeepsPolling(t *testing.T) {
	f := newFixture(t)
	var trg *Trigger
	trg = f.trigger(func(ctx context.Context, snap source.Snapshot) error {
		return f.apply(trg)(ctx, snap)
	})
	require.NoError(t, trg.Start())
	defer trg.Stop()

	f.src.set("m1")
	require.NoError(t, trg.Check(context.Background()))

	assert.Equal(t, PhasePolling, trg.Phase())
	assert.Equal(t, source.Marker("m1"), trg.Marker())
}

func TestTrigger_FailureKeepsPreviousConfiguration(t *testing.T) {
	f := newFixture(t)
	var broken atomic.Bool
	broken.Store(true)
	var trg *Trigger
	trg = f.trigger(func(ctx context.Context, snap source.Snapshot) error {
		if broken.Load() {
			return f.lc.TryConfigure(ctx, func(d *logger.Draft) error {
				return errcode.ErrMalformedConfig.WithMsg("unexpected EOF")
			})
		}
		return f.apply(trg)(ctx, snap)
	})
	require.NoError(t, trg.Start())
	defer trg.Stop()

	f.src.set("m1")
	err := trg.Check(context.Background())
	assert.True(t, errors.Is(err, errcode.ErrMalformedConfig))
	assert.Equal(t, source.Marker("m0"), trg.Marker())
	assert.Equal(t, PhasePolling, trg.Phase())
	assert.Equal(t, uint64(0), f.lc.Generation())
	assert.Equal(t, 1, f.rec.Count(status.LevelError, "Reconfiguration from [fake:test] failed"))

	broken.Store(false)
	require.NoError(t, trg.Check(context.Background()))
	assert.Equal(t, source.Marker("m1"), trg.Marker())
	assert.Equal(t, uint64(1), f.lc.Generation())
}

func TestTrigger_UnreadableSource(t *testing.T) {
	f := newFixture(t)
	trg := f.trigger(f.apply())

	f.src.fail(errcode.ErrSourceUnreadable.WithMsg("connection refused"))
	err := trg.Check(context.Background())

	assert.True(t, errors.Is(err, errcode.ErrSourceUnreadable))
	assert.True(t, f.rec.Has(status.LevelError, "connection refused"))
	assert.Equal(t, int32(0), f.passes.Load())
}

func TestTrigger_DeferredWhilePassRunning(t *testing.T) {
	f := newFixture(t)
	trg := f.trigger(f.apply())

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- f.lc.Configure(context.Background(), func(d *logger.Draft) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	f.src.set("m1")
	err := trg.Check(context.Background())
	assert.True(t, errors.Is(err, errcode.ErrConfigureInProgress))
	assert.Equal(t, source.Marker("m0"), trg.Marker())
	assert.True(t, f.rec.Has(status.LevelInfo, "will be checked again"))

	close(release)
	require.NoError(t, <-done)
}

func TestTrigger_ConcurrentChecksRunOnePass(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	var trg *Trigger
	trg = f.trigger(func(ctx context.Context, snap source.Snapshot) error {
		close(entered)
		<-release
		return f.apply(trg)(ctx, snap)
	})

	f.src.set("m1")
	first := make(chan error, 1)
	go func() { first <- trg.Check(context.Background()) }()
	<-entered

	const n = 16
	var wg sync.WaitGroup
	var inFlight atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if errors.Is(trg.Check(context.Background()), errcode.ErrCheckInFlight) {
				inFlight.Add(1)
			}
		}()
	}
	wg.Wait()
	close(release)

	require.NoError(t, <-first)
	assert.Equal(t, int32(n), inFlight.Load())
	assert.Equal(t, int32(1), f.passes.Load())
	assert.Equal(t, uint64(1), f.lc.Generation())
}

func TestTrigger_StopWaitsForInFlightCheck(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	trg := f.trigger(func(ctx context.Context, snap source.Snapshot) error {
		close(entered)
		<-release
		return nil
	})
	require.NoError(t, trg.Start())

	f.src.set("m1")
	go func() { _ = trg.Check(context.Background()) }()
	<-entered

	stopped := make(chan struct{})
	go func() {
		trg.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a check was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	f.src.set("m2")
	assert.True(t, errors.Is(trg.Check(context.Background()), errcode.ErrTriggerStopped))
	assert.Equal(t, uint64(0), f.lc.Generation())
}

func TestTrigger_SecondChangeDuringSlowPassIsPickedUp(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	var trg *Trigger
	trg = f.trigger(func(ctx context.Context, snap source.Snapshot) error {
		entered <- struct{}{}
		<-release
		return f.apply(trg)(ctx, snap)
	})

	f.src.set("m1")
	first := make(chan error, 1)
	go func() { first <- trg.Check(context.Background()) }()
	<-entered

	f.src.set("m2")
	close(release)
	require.NoError(t, <-first)
	assert.Equal(t, source.Marker("m1"), trg.Marker())

	require.NoError(t, trg.Check(context.Background()))
	assert.Equal(t, source.Marker("m2"), trg.Marker())
	assert.Equal(t, []source.Marker{"m1", "m2"}, f.seen)
	assert.Equal(t, uint64(2), f.lc.Generation())
}

func TestTrigger_ScheduledChecks(t *testing.T) {
	f := newFixture(t)
	var trg *Trigger
	trg = f.trigger(func(ctx context.Context, snap source.Snapshot) error {
		return f.apply(trg)(ctx, snap)
	})
	require.True(t, trg.SetPeriod(20*time.Millisecond))
	require.NoError(t, trg.Start())
	defer trg.Stop()

	f.src.set("m1")
	require.Eventually(t, func() bool { return trg.Marker() == "m1" }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, PhasePolling, trg.Phase())
}

func TestTrigger_FSNotifyNudge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logconf.xml")
	require.NoError(t, os.WriteFile(path, []byte("<configuration/>"), 0644))
	src := source.NewFileSource(path)
	snap, err := source.Take(context.Background(), src)
	require.NoError(t, err)

	lc := logger.NewContext("test")
	var calls atomic.Int32
	var trg *Trigger
	trg = New(lc, snap, func(ctx context.Context, s source.Snapshot) error {
		calls.Add(1)
		return lc.TryConfigure(ctx, func(d *logger.Draft) error {
			d.AddMonitor(trg)
			return nil
		})
	}, WithFSNotify())
	require.NoError(t, trg.Start())
	defer trg.Stop()

	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte("<configuration debug=\"true\"/>"), 0644))
	require.NoError(t, os.Chtimes(path, later, later))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestTrigger_MetricsAndSpans(t *testing.T) {
	f := newFixture(t)
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	spans := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)).Tracer(TracerName)

	var trg *Trigger
	trg = f.trigger(func(ctx context.Context, snap source.Snapshot) error {
		return f.apply(trg)(ctx, snap)
	}, WithMetrics(metrics), WithTracer(tracer))

	require.NoError(t, trg.Check(context.Background()))
	f.src.set("m1")
	require.NoError(t, trg.Check(context.Background()))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					key := m.Name
					if result, ok := dp.Attributes.Value(attribute.Key("result")); ok {
						key += "/" + result.AsString()
					}
					sums[key] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["logconf_reload_checks_total"])
	assert.Equal(t, int64(1), sums["logconf_reloads_total/success"])

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "logconf.reconfigure", ended[0].Name())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "polling", PhasePolling.String())
	assert.Equal(t, "reconfiguring", PhaseReconfiguring.String())
	assert.Equal(t, "stopped", PhaseStopped.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}
