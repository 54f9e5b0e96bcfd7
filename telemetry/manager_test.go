package telemetry

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func restoreGlobals(t *testing.T) {
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(noop.NewMeterProvider())
	})
}

func TestManager_Disabled(t *testing.T) {
	m := NewManager(Config{}, logger.NewContext("test").Logger("telemetry"))

	require.NoError(t, m.Start(context.Background()))
	assert.False(t, m.IsEnabled())
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_ExportsSpansAndMetrics(t *testing.T) {
	restoreGlobals(t)
	out := &lockedBuffer{}
	m := NewManager(Config{
		Enabled:        true,
		ServiceName:    "logconf-test",
		ExportInterval: time.Hour,
		Writer:         out,
	}, logger.NewContext("test").Logger("telemetry"))
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	_, span := otel.Tracer("test").Start(ctx, "logconf.reconfigure")
	span.End()
	counter, err := otel.Meter("test").Int64Counter("logconf_reload_checks_total")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	require.NoError(t, m.Shutdown(ctx))
	assert.Contains(t, out.String(), "logconf.reconfigure")
	assert.Contains(t, out.String(), "logconf_reload_checks_total")
	assert.Contains(t, out.String(), "logconf-test")
}
