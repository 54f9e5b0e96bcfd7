package main

import (
	"context"
	"fmt"
	"io"

	"github.com/KOMKZ/go-yogan-logconf/classic"
	"github.com/KOMKZ/go-yogan-logconf/config"
	"github.com/KOMKZ/go-yogan-logconf/logger"
	"github.com/KOMKZ/go-yogan-logconf/reload"
	"github.com/KOMKZ/go-yogan-logconf/source"
	"github.com/KOMKZ/go-yogan-logconf/telemetry"
	"github.com/samber/do/v2"
)

// provideLoggerContext *logger.Context named after the application
func provideLoggerContext(i do.Injector) (*logger.Context, error) {
	b, err := do.Invoke[*config.Bootstrap](i)
	if err != nil {
		return nil, err
	}
	opts := logger.DefaultOptions()
	opts.AppName = b.AppName
	return logger.NewContext(b.AppName, logger.WithOptions(opts)), nil
}

// provideTelemetry stdout exporters, started before any trigger reads the globals
func provideTelemetry(i do.Injector) (*telemetry.Manager, error) {
	b, err := do.Invoke[*config.Bootstrap](i)
	if err != nil {
		return nil, err
	}
	lc, err := do.Invoke[*logger.Context](i)
	if err != nil {
		return nil, err
	}

	m := telemetry.NewManager(telemetry.Config{
		Enabled:        b.Telemetry.Enabled,
		ServiceName:    b.AppName,
		ExportInterval: b.Telemetry.ExportInterval,
	}, lc.Logger("logconf.telemetry"))
	if err := m.Start(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

// provideConfigurator wires fsnotify nudges when the bootstrap asks for them
func provideConfigurator(i do.Injector) (*classic.Configurator, error) {
	b, err := do.Invoke[*config.Bootstrap](i)
	if err != nil {
		return nil, err
	}
	lc, err := do.Invoke[*logger.Context](i)
	if err != nil {
		return nil, err
	}
	if _, err := do.Invoke[*telemetry.Manager](i); err != nil {
		return nil, err
	}

	var opts []classic.Option
	if b.Watch {
		opts = append(opts, classic.WithTriggerOptions(reload.WithFSNotify()))
	}
	return classic.NewConfigurator(lc, opts...), nil
}

// configSource the chosen source plus the client it holds, closed on injector shutdown
type configSource struct {
	source.Source
	closer io.Closer
}

func (s *configSource) Shutdown() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func provideSource(i do.Injector) (*configSource, error) {
	b, err := do.Invoke[*config.Bootstrap](i)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()

	switch b.Source.Kind {
	case config.KindEtcd:
		client, err := source.DialEtcd(ctx, b.Etcd)
		if err != nil {
			return nil, err
		}
		return &configSource{Source: source.NewEtcdSource(client, b.Source.Key), closer: client}, nil

	case config.KindRedis:
		client, err := source.NewRedisClient(ctx, b.Redis)
		if err != nil {
			return nil, err
		}
		return &configSource{Source: source.NewRedisSource(client, b.Source.Key), closer: client}, nil

	case config.KindFile:
		return &configSource{Source: source.NewFileSource(b.Source.Path)}, nil

	default:
		return nil, fmt.Errorf("unsupported source kind %q", b.Source.Kind)
	}
}

// newInjector registers every provider of the run command
func newInjector(opts config.LoadOptions) *do.RootScope {
	injector := do.New()
	do.Provide(injector, config.ProvideBootstrap(opts))
	do.Provide(injector, provideLoggerContext)
	do.Provide(injector, provideTelemetry)
	do.Provide(injector, provideConfigurator)
	do.Provide(injector, provideSource)
	return injector
}
