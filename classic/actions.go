package classic

import (
	"fmt"
	"strings"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/joran"
	"github.com/KOMKZ/go-yogan-logconf/logger"
	"github.com/magiconair/properties"
	"github.com/spf13/cast"
)

// PropertyAction handles <property name="" value=""/> and <property file=""/>.
// scope="context" stores the property with the logger context, otherwise it only
// lives for the current pass.
type PropertyAction struct {
	lc *logger.Context
}

func (a *PropertyAction) Begin(ic *joran.InterpretationContext, name string, attrs joran.Attributes) error {
	report := ic.Reporter("PropertyAction")

	put := ic.PutProperty
	if strings.EqualFold(attrs.Get("scope"), "context") {
		draft, err := a.lc.Draft()
		if err != nil {
			return errcode.ErrElementSkipped.Wrap(err)
		}
		put = draft.PutProperty
	}

	if file := attrs.Get("file"); file != "" {
		props, err := properties.LoadFile(file, properties.UTF8)
		if err != nil {
			return errcode.ErrElementSkipped.Wrapf(err, "could not read properties file [%s]", file)
		}
		for k, v := range props.Map() {
			put(k, v)
		}
		report.Info(fmt.Sprintf("Loaded %d properties from [%s]", props.Len(), file))
		return nil
	}

	key := attrs.Get("name")
	if key == "" {
		return errcode.ErrElementSkipped.WithMsgf("property at %s has no name", ic.Location())
	}
	put(key, attrs.Get("value"))
	return nil
}

func (a *PropertyAction) End(ic *joran.InterpretationContext, name string) error {
	return nil
}

// AppenderAction handles <appender name="" class="">; the nested simple elements
// fill in the spec, which is added to the draft at the end tag.
type AppenderAction struct {
	lc *logger.Context
}

func (a *AppenderAction) Begin(ic *joran.InterpretationContext, name string, attrs joran.Attributes) error {
	appenderName, class := attrs.Get("name"), strings.ToLower(attrs.Get("class"))
	if appenderName == "" {
		return errcode.ErrElementSkipped.WithMsgf("appender at %s has no name", ic.Location())
	}
	if class == "" {
		return errcode.ErrElementSkipped.WithMsgf("appender [%s] has no class", appenderName)
	}

	spec := logger.DefaultAppenderSpec(appenderName, class)
	ic.Push(&spec)
	return nil
}

func (a *AppenderAction) End(ic *joran.InterpretationContext, name string) error {
	top, err := ic.Peek()
	if err != nil {
		return err
	}
	spec, ok := top.(*logger.AppenderSpec)
	if !ok {
		return errcode.ErrStackMismatch.WithMsgf("expected *logger.AppenderSpec on top of interpretation stack, found %T", top)
	}
	if err := ic.PopExpect(spec); err != nil {
		return err
	}

	draft, err := a.lc.Draft()
	if err != nil {
		return err
	}
	if err := draft.AddAppender(*spec); err != nil {
		ic.Reporter("AppenderAction").Error(fmt.Sprintf("Appender [%s] dropped", spec.Name), err)
		return nil
	}
	ic.Reporter("AppenderAction").Info(fmt.Sprintf("Added %s appender [%s]", spec.Class, spec.Name))
	return nil
}

// AppenderParamAction sets one field of the enclosing appender from element text,
// e.g. <file>logs/app.log</file>
type AppenderParamAction struct{}

func (AppenderParamAction) Begin(ic *joran.InterpretationContext, name string, attrs joran.Attributes) error {
	return nil
}

func (AppenderParamAction) Body(ic *joran.InterpretationContext, name string, body string) error {
	spec, ok := joran.Nearest[*logger.AppenderSpec](ic)
	if !ok {
		return errcode.ErrStackEmpty.WithMsgf("<%s> outside an appender", name)
	}

	report := ic.Reporter("AppenderParamAction")
	bad := func(err error) error {
		report.Error(fmt.Sprintf("Invalid value [%s] for <%s> of appender [%s]", body, name, spec.Name), err)
		return nil
	}

	switch strings.ToLower(name) {
	case "file":
		spec.File = body
	case "encoding", "encoder":
		spec.Encoding = strings.ToLower(body)
	case "target":
		spec.Target = strings.ToLower(body)
	case "level", "threshold":
		spec.Threshold = body
	case "maxsize":
		v, err := cast.ToIntE(body)
		if err != nil {
			return bad(err)
		}
		spec.MaxSize = v
	case "maxbackups", "maxhistory":
		v, err := cast.ToIntE(body)
		if err != nil {
			return bad(err)
		}
		spec.MaxBackups = v
	case "maxage":
		v, err := cast.ToIntE(body)
		if err != nil {
			return bad(err)
		}
		spec.MaxAge = v
	case "compress":
		v, err := cast.ToBoolE(body)
		if err != nil {
			return bad(err)
		}
		spec.Compress = v
	default:
		report.Warn(fmt.Sprintf("Appender [%s] has no parameter <%s>", spec.Name, name))
	}
	return nil
}

func (AppenderParamAction) End(ic *joran.InterpretationContext, name string) error {
	return nil
}

// LoggerAction handles <logger name="" level="" additivity=""> and, with root set,
// <root level="">.
type LoggerAction struct {
	lc   *logger.Context
	root bool
}

func (a *LoggerAction) Begin(ic *joran.InterpretationContext, name string, attrs joran.Attributes) error {
	report := ic.Reporter("LoggerAction")

	loggerName := logger.RootLoggerName
	if !a.root {
		loggerName = attrs.Get("name")
		if loggerName == "" {
			return errcode.ErrElementSkipped.WithMsgf("logger at %s has no name", ic.Location())
		}
	}

	spec := logger.NewLoggerSpec(loggerName)
	if level := attrs.Get("level"); !logger.IsInherited(level) {
		if lvl, ok := logger.ParseLevel(level); ok {
			spec.Level = level
			report.Info(fmt.Sprintf("Setting level of logger [%s] to %s", loggerName, logger.LevelName(lvl)))
		} else {
			report.Error(fmt.Sprintf("Unknown level [%s] for logger [%s], inheriting", level, loggerName), nil)
		}
	}
	if raw := attrs.Get("additivity"); raw != "" {
		additive, err := cast.ToBoolE(raw)
		if err != nil {
			report.Error(fmt.Sprintf("Invalid additivity [%s] for logger [%s]", raw, loggerName), err)
		} else {
			spec.Additive = additive
		}
	}

	ic.Push(spec)
	return nil
}

func (a *LoggerAction) End(ic *joran.InterpretationContext, name string) error {
	top, err := ic.Peek()
	if err != nil {
		return err
	}
	spec, ok := top.(*logger.LoggerSpec)
	if !ok {
		return errcode.ErrStackMismatch.WithMsgf("expected *logger.LoggerSpec on top of interpretation stack, found %T", top)
	}
	if err := ic.PopExpect(spec); err != nil {
		return err
	}

	draft, err := a.lc.Draft()
	if err != nil {
		return err
	}
	draft.PutLogger(spec)
	return nil
}

// AppenderRefAction handles <appender-ref ref=""/> inside a logger or root
type AppenderRefAction struct{}

func (AppenderRefAction) Begin(ic *joran.InterpretationContext, name string, attrs joran.Attributes) error {
	ref := attrs.Get("ref")
	if ref == "" {
		return errcode.ErrElementSkipped.WithMsgf("appender-ref at %s has no ref", ic.Location())
	}
	spec, ok := joran.Nearest[*logger.LoggerSpec](ic)
	if !ok {
		return errcode.ErrElementSkipped.WithMsgf("appender-ref [%s] at %s is not inside a logger", ref, ic.Location())
	}
	spec.AddAppenderRef(ref)
	return nil
}

func (AppenderRefAction) End(ic *joran.InterpretationContext, name string) error {
	return nil
}

// ContextNameAction handles <contextName>name</contextName>
type ContextNameAction struct {
	lc *logger.Context
}

func (a *ContextNameAction) Begin(ic *joran.InterpretationContext, name string, attrs joran.Attributes) error {
	return nil
}

func (a *ContextNameAction) Body(ic *joran.InterpretationContext, name string, body string) error {
	draft, err := a.lc.Draft()
	if err != nil {
		return err
	}
	draft.SetContextName(body)
	ic.Reporter("ContextNameAction").Info(fmt.Sprintf("Setting logger context name as [%s]", body))
	return nil
}

func (a *ContextNameAction) End(ic *joran.InterpretationContext, name string) error {
	return nil
}
