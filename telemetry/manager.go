// Package telemetry installs stdout metric and trace exporters as the global otel
// providers, so reload checks and reconfiguration spans can be inspected from a shell.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
)

// Config telemetry settings
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	ExportInterval time.Duration
	Writer         io.Writer // stdout when nil
}

// Manager owns the tracer and meter providers
type Manager struct {
	config         Config
	logger         *logger.CtxZapLogger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	mu             sync.Mutex
}

// NewManager creates a manager; nothing is installed until Start
func NewManager(config Config, log *logger.CtxZapLogger) *Manager {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ExportInterval <= 0 {
		config.ExportInterval = time.Minute
	}
	return &Manager{config: config, logger: log}
}

// Start creates the providers and sets them as the otel globals
func (m *Manager) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.DebugCtx(ctx, "Telemetry disabled, skipping initialization")
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(m.config.ServiceName),
			semconv.ServiceVersion(m.config.ServiceVersion),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return fmt.Errorf("create resource failed: %w", err)
	}

	spanExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(m.config.Writer),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create stdout trace exporter: %w", err)
	}
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(m.config.Writer))
	if err != nil {
		return fmt.Errorf("failed to create stdout metrics exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSyncer(spanExporter),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(m.config.ExportInterval))),
	)
	m.mu.Lock()
	m.tracerProvider, m.meterProvider = tp, mp
	m.mu.Unlock()
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		m.logger.Warn("OpenTelemetry export failed", zap.Error(err))
	}))

	m.logger.InfoCtx(ctx, "Telemetry started",
		zap.String("service_name", m.config.ServiceName),
		zap.Duration("export_interval", m.config.ExportInterval),
	)
	return nil
}

// Shutdown flushes pending spans and metrics. Later calls do nothing.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	tp, mp := m.tracerProvider, m.meterProvider
	m.tracerProvider, m.meterProvider = nil, nil
	m.mu.Unlock()

	var errs []error
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider failed: %w", err))
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsEnabled reports whether telemetry export is on
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled
}
