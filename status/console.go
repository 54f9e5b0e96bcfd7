package status

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleListener prints every status on a console through zap
type ConsoleListener struct {
	log *zap.Logger
}

// NewConsoleListener creates a listener writing to w (stdout when nil)
func NewConsoleListener(w zapcore.WriteSyncer) *ConsoleListener {
	if w == nil {
		w = zapcore.Lock(os.Stdout)
	}
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), w, zapcore.DebugLevel)
	return &ConsoleListener{log: zap.New(core).Named("status")}
}

// OnStatus implements Listener
func (l *ConsoleListener) OnStatus(s Status) {
	fields := make([]zap.Field, 0, 2)
	if s.Origin != "" {
		fields = append(fields, zap.String("origin", s.Origin))
	}
	if s.Cause != nil {
		fields = append(fields, zap.Error(s.Cause))
	}

	ce := l.log.Check(zapLevel(s.Level), s.Message)
	if ce == nil {
		return
	}
	ce.Time = s.Time
	ce.Write(fields...)
}

// Sync flushes the underlying writer
func (l *ConsoleListener) Sync() error {
	return l.log.Sync()
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// AddConsoleListener attaches a new ConsoleListener to mgr and replays the retained
// statuses recorded at or after since. Existing listeners are kept.
func AddConsoleListener(mgr *Manager, w zapcore.WriteSyncer, since time.Time) *ConsoleListener {
	l := NewConsoleListener(w)
	backlog, _ := mgr.SubscribeSince(l, since)
	for _, s := range backlog {
		l.OnStatus(s)
	}
	return l
}

// EnsureConsoleListener returns the ConsoleListener already attached to mgr, or
// attaches one through AddConsoleListener. attached reports which happened.
func EnsureConsoleListener(mgr *Manager, w zapcore.WriteSyncer, since time.Time) (l *ConsoleListener, attached bool) {
	for _, existing := range mgr.Listeners() {
		if cl, ok := existing.(*ConsoleListener); ok {
			return cl, false
		}
	}
	return AddConsoleListener(mgr, w, since), true
}

// ConsoleListenerCount counts the ConsoleListeners attached to mgr
func ConsoleListenerCount(mgr *Manager) int {
	n := 0
	for _, l := range mgr.Listeners() {
		if _, ok := l.(*ConsoleListener); ok {
			n++
		}
	}
	return n
}
