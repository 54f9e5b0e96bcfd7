package logger

import "context"

// Monitor is a background component registered with a configuration, such as a
// reload trigger. Monitors live and die with the State that carries them: when a
// newer State is installed, monitors it does not carry are stopped.
type Monitor interface {
	// Name identifies the monitor in statuses
	Name() string
	// Stop halts the monitor and waits for its in-flight work. Must be idempotent.
	Stop()
}

type initiatorKey struct{}

// WithInitiator marks ctx as carrying a configuration pass started by m. When that
// pass supersedes m, the context does not call m.Stop; m is expected to retire itself.
func WithInitiator(ctx context.Context, m Monitor) context.Context {
	return context.WithValue(ctx, initiatorKey{}, m)
}

// InitiatorFrom returns the monitor recorded by WithInitiator, or nil
func InitiatorFrom(ctx context.Context) Monitor {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(initiatorKey{}).(Monitor)
	return m
}
