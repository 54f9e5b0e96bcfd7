package logger

import (
	"fmt"
	"strings"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/status"
	"github.com/KOMKZ/go-yogan-logconf/validator"
)

// RootLoggerName name of the root logger
const RootLoggerName = "ROOT"

// LoggerSpec level and appenders of one named logger
type LoggerSpec struct {
	Name         string
	Level        string // empty or "inherited" to use the parent's level
	Additive     bool
	AppenderRefs []string
}

// NewLoggerSpec returns an additive spec with an inherited level
func NewLoggerSpec(name string) *LoggerSpec {
	return &LoggerSpec{Name: name, Additive: true}
}

// AddAppenderRef attaches the named appender
func (s *LoggerSpec) AddAppenderRef(ref string) {
	for _, r := range s.AppenderRefs {
		if r == ref {
			return
		}
	}
	s.AppenderRefs = append(s.AppenderRefs, ref)
}

// Draft is the pending configuration filled in by one interpretation pass.
// It is owned by the goroutine running the pass and is never shared with readers.
type Draft struct {
	name       string
	appenders  map[string]AppenderSpec
	order      []string
	loggers    map[string]*LoggerSpec
	root       *LoggerSpec
	monitors   []Monitor
	properties map[string]string
}

func newDraft(name string) *Draft {
	return &Draft{
		name:       name,
		appenders:  make(map[string]AppenderSpec),
		loggers:    make(map[string]*LoggerSpec),
		properties: make(map[string]string),
	}
}

// SetContextName renames the context once the draft is committed
func (d *Draft) SetContextName(name string) {
	if name != "" {
		d.name = name
	}
}

// AddAppender validates and registers spec. Names must be unique within a draft.
func (d *Draft) AddAppender(spec AppenderSpec) error {
	if err := validator.Validate(spec, errcode.ErrInvalidAppender); err != nil {
		return err
	}
	if _, exists := d.appenders[spec.Name]; exists {
		return errcode.ErrInvalidAppender.WithMsgf("appender [%s] defined twice", spec.Name)
	}
	d.appenders[spec.Name] = spec
	d.order = append(d.order, spec.Name)
	return nil
}

// Appender returns a registered spec
func (d *Draft) Appender(name string) (AppenderSpec, bool) {
	spec, ok := d.appenders[name]
	return spec, ok
}

// PutLogger registers spec; a later spec for the same name replaces the earlier one
func (d *Draft) PutLogger(spec *LoggerSpec) {
	if spec.Name == "" || strings.EqualFold(spec.Name, RootLoggerName) {
		d.root = spec
		return
	}
	d.loggers[spec.Name] = spec
}

// Logger returns the spec registered for name
func (d *Draft) Logger(name string) (*LoggerSpec, bool) {
	if strings.EqualFold(name, RootLoggerName) {
		return d.root, d.root != nil
	}
	spec, ok := d.loggers[name]
	return spec, ok
}

// AddMonitor registers m with the pending configuration
func (d *Draft) AddMonitor(m Monitor) {
	d.monitors = append(d.monitors, m)
}

// Monitors returns the monitors registered so far
func (d *Draft) Monitors() []Monitor {
	out := make([]Monitor, len(d.monitors))
	copy(out, d.monitors)
	return out
}

// PutProperty sets a context-scoped property
func (d *Draft) PutProperty(key, value string) {
	d.properties[key] = value
}

// Property returns a context-scoped property set during this pass
func (d *Draft) Property(key string) (string, bool) {
	v, ok := d.properties[key]
	return v, ok
}

// discard stops every monitor started during an abandoned pass
func (d *Draft) discard() {
	for _, m := range d.monitors {
		m.Stop()
	}
	d.monitors = nil
}

// build compiles the draft into an immutable State. Unknown appender references are
// reported and skipped rather than failing the whole configuration.
func (d *Draft) build(c *Context, seq uint64, report status.Reporter) (*State, error) {
	built := make(map[string]builtAppender, len(d.appenders))
	for _, name := range d.order {
		ba, err := d.appenders[name].build(c)
		if err != nil {
			closeAppenders(built)
			return nil, err
		}
		built[name] = ba
	}

	check := func(spec *LoggerSpec) *LoggerSpec {
		if spec == nil {
			return nil
		}
		cp := *spec
		cp.AppenderRefs = cp.AppenderRefs[:0:0]
		for _, ref := range spec.AppenderRefs {
			if _, ok := built[ref]; !ok {
				report.Warn(fmt.Sprintf("Could not find an appender named [%s] for logger [%s]", ref, cp.Name))
				continue
			}
			cp.AppenderRefs = append(cp.AppenderRefs, ref)
		}
		return &cp
	}

	loggers := make(map[string]*LoggerSpec, len(d.loggers))
	for name, spec := range d.loggers {
		loggers[name] = check(spec)
	}

	root := check(d.root)
	if root == nil {
		root = &LoggerSpec{Name: RootLoggerName, Level: "debug", Additive: true}
	}
	if IsInherited(root.Level) {
		root.Level = "debug"
	}
	root.Name = RootLoggerName

	properties := make(map[string]string, len(d.properties))
	for k, v := range d.properties {
		properties[k] = v
	}

	return newState(stateInit{
		seq:        seq,
		name:       d.name,
		appenders:  built,
		loggers:    loggers,
		root:       root,
		monitors:   d.Monitors(),
		properties: properties,
	}), nil
}

func closeAppenders(built map[string]builtAppender) {
	for _, ba := range built {
		_ = ba.core.Sync()
		if ba.file != nil {
			_ = ba.file.Close()
		}
	}
}
