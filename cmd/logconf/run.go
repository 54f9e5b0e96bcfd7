package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/classic"
	"github.com/KOMKZ/go-yogan-logconf/config"
	"github.com/KOMKZ/go-yogan-logconf/logger"
	"github.com/KOMKZ/go-yogan-logconf/telemetry"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runFlagBindings flag name -> bootstrap key
var runFlagBindings = map[string]string{
	"app-name":  "app_name",
	"source":    "source.kind",
	"path":      "source.path",
	"key":       "source.key",
	"watch":     "watch",
	"heartbeat": "heartbeat",
	"etcd":      "etcd.endpoints",
	"redis":     "redis.addrs",
	"telemetry": "telemetry.enabled",
}

func newRunCmd() *cobra.Command {
	var settingsFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Configure a logger context and follow its source until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			injector := newInjector(config.LoadOptions{
				File:         settingsFile,
				Flags:        cmd.Flags(),
				FlagBindings: runFlagBindings,
			})
			return run(ctx, injector)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&settingsFile, "config", "", "bootstrap settings file (yaml, json or toml)")
	flags.String("app-name", "", "application name, also the logger context name")
	flags.String("source", "", "configuration source kind: file, etcd or redis")
	flags.String("path", "", "configuration file for the file source")
	flags.String("key", "", "configuration key for the etcd and redis sources")
	flags.Bool("watch", false, "also react to file system events for the file source")
	flags.String("heartbeat", "", "interval between heartbeat records, e.g. \"30 seconds\"")
	flags.StringSlice("etcd", nil, "etcd endpoints")
	flags.StringSlice("redis", nil, "redis addresses")
	flags.Bool("telemetry", false, "print reload metrics and spans to stdout")
	return cmd
}

func run(ctx context.Context, injector *do.RootScope) error {
	defer func() {
		if err := injector.Shutdown(); err != nil {
			fmt.Fprintln(os.Stderr, "injector shutdown:", err)
		}
	}()

	b, err := do.Invoke[*config.Bootstrap](injector)
	if err != nil {
		return err
	}
	lc, err := do.Invoke[*logger.Context](injector)
	if err != nil {
		return err
	}
	defer lc.Stop()

	cfg, err := do.Invoke[*classic.Configurator](injector)
	if err != nil {
		return err
	}
	src, err := do.Invoke[*configSource](injector)
	if err != nil {
		return err
	}
	log := lc.Logger("logconf")

	if err := cfg.DoConfigure(ctx, src.Source); err != nil {
		return fmt.Errorf("initial configuration from %s: %w", src.Identity(), err)
	}
	log.InfoCtx(ctx, "Logger context configured",
		zap.String("bootstrap", b.Describe()),
		zap.Int("monitors", len(lc.Monitors())),
	)

	heartbeat(ctx, lc, b.Heartbeat.Duration)

	log.InfoCtx(context.Background(), "Shutting down", zap.Uint64("generation", lc.Generation()))
	if tm, err := do.Invoke[*telemetry.Manager](injector); err == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tm.Shutdown(shutdownCtx); err != nil {
			log.WarnCtx(shutdownCtx, "Telemetry shutdown failed", zap.Error(err))
		}
	}
	return nil
}

// heartbeat logs one record per interval through the live configuration until ctx ends
func heartbeat(ctx context.Context, lc *logger.Context, interval time.Duration) {
	log := lc.Logger("logconf.heartbeat")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for beat := 1; ; beat++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.InfoCtx(ctx, "heartbeat",
				zap.Int("beat", beat),
				zap.Uint64("generation", lc.Generation()),
				zap.String("context", lc.State().Name()),
			)
		}
	}
}
