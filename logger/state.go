// src/pkg/logger/state.go
package logger

import (
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// State is one immutable, fully built configuration. Readers obtain it with a
// single atomic load and never see a partially applied configuration.
type State struct {
	seq        uint64
	name       string
	appenders  map[string]builtAppender
	loggers    map[string]*LoggerSpec
	root       *LoggerSpec
	monitors   []Monitor
	properties map[string]string

	cache sync.Map // logger name -> *zap.Logger
}

type stateInit struct {
	seq        uint64
	name       string
	appenders  map[string]builtAppender
	loggers    map[string]*LoggerSpec
	root       *LoggerSpec
	monitors   []Monitor
	properties map[string]string
}

func newState(in stateInit) *State {
	return &State{
		seq:        in.seq,
		name:       in.name,
		appenders:  in.appenders,
		loggers:    in.loggers,
		root:       in.root,
		monitors:   in.monitors,
		properties: in.properties,
	}
}

// newBasicState is the configuration in effect before anything was loaded:
// root at debug writing to a console appender on stdout.
func newBasicState(name string) *State {
	spec := DefaultAppenderSpec("CONSOLE", ClassConsole)
	spec.Encoding = "console"
	core := zapcore.NewCore(createEncoder(spec.Encoding), zapcore.Lock(os.Stdout), zapcore.DebugLevel)

	return newState(stateInit{
		name:       name,
		appenders:  map[string]builtAppender{spec.Name: {spec: spec, core: core}},
		loggers:    map[string]*LoggerSpec{},
		root:       &LoggerSpec{Name: RootLoggerName, Level: "debug", Additive: true, AppenderRefs: []string{spec.Name}},
		properties: map[string]string{},
	})
}

// Seq increases by one with every committed configuration
func (s *State) Seq() uint64 { return s.seq }

// Name context name in effect for this configuration
func (s *State) Name() string { return s.name }

// Monitors returns the monitors carried by this configuration
func (s *State) Monitors() []Monitor {
	out := make([]Monitor, len(s.monitors))
	copy(out, s.monitors)
	return out
}

// Carries reports whether m belongs to this configuration
func (s *State) Carries(m Monitor) bool {
	for _, own := range s.monitors {
		if own == m {
			return true
		}
	}
	return false
}

// Property context-scoped property defined by the configuration
func (s *State) Property(key string) (string, bool) {
	v, ok := s.properties[key]
	return v, ok
}

// AppenderNames returns the configured appender names, sorted
func (s *State) AppenderNames() []string {
	names := make([]string, 0, len(s.appenders))
	for name := range s.appenders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// chain returns the specs that apply to name, nearest first, root last
func (s *State) chain(name string) []*LoggerSpec {
	var specs []*LoggerSpec
	for n := name; n != "" && !strings.EqualFold(n, RootLoggerName); {
		if spec, ok := s.loggers[n]; ok {
			specs = append(specs, spec)
		}
		idx := strings.LastIndexByte(n, '.')
		if idx < 0 {
			break
		}
		n = n[:idx]
	}
	return append(specs, s.root)
}

// EffectiveLevel level of the nearest ancestor that sets one
func (s *State) EffectiveLevel(name string) zapcore.Level {
	for _, spec := range s.chain(name) {
		if IsInherited(spec.Level) {
			continue
		}
		if lvl, ok := ParseLevel(spec.Level); ok {
			return lvl
		}
	}
	return zapcore.DebugLevel
}

// EffectiveAppenders appender names a record logged on name reaches
func (s *State) EffectiveAppenders(name string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, spec := range s.chain(name) {
		for _, ref := range spec.AppenderRefs {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
		if !spec.Additive {
			break
		}
	}
	return refs
}

// zapLogger returns the compiled logger for name, building it on first use
func (s *State) zapLogger(name string) *zap.Logger {
	if l, ok := s.cache.Load(name); ok {
		return l.(*zap.Logger)
	}

	refs := s.EffectiveAppenders(name)
	cores := make([]zapcore.Core, 0, len(refs))
	for _, ref := range refs {
		cores = append(cores, s.appenders[ref].core)
	}

	core := leveledCore{Core: zapcore.NewTee(cores...), level: s.EffectiveLevel(name)}
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
	if name != "" && !strings.EqualFold(name, RootLoggerName) {
		l = l.Named(name)
	}

	actual, _ := s.cache.LoadOrStore(name, l)
	return actual.(*zap.Logger)
}

// release flushes and closes the writers owned by this configuration and returns
// the file writers. A record still in flight reopens its file, so the caller keeps
// them until the next release to close them for good.
func (s *State) release() []*rollingWriter {
	var files []*rollingWriter
	for _, ba := range s.appenders {
		_ = ba.core.Sync()
		if ba.file != nil {
			_ = ba.file.release()
			files = append(files, ba.file)
		}
	}
	return files
}

// withoutMonitors copy of s that carries no monitors
func (s *State) withoutMonitors() *State {
	return newState(stateInit{
		seq:        s.seq,
		name:       s.name,
		appenders:  s.appenders,
		loggers:    s.loggers,
		root:       s.root,
		properties: s.properties,
	})
}

// leveledCore drops records below the logger's effective level before they reach
// the appenders, which keep their own thresholds.
type leveledCore struct {
	zapcore.Core
	level zapcore.Level
}

func (c leveledCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.level && c.Core.Enabled(lvl)
}

func (c leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return leveledCore{Core: c.Core.With(fields), level: c.level}
}

func (c leveledCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level < c.level {
		return ce
	}
	return c.Core.Check(ent, ce)
}
