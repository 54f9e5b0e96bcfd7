// Package classic wires the element actions of a logging configuration document and
// runs configuration passes against a logger.Context.
package classic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/joran"
	"github.com/KOMKZ/go-yogan-logconf/logger"
	"github.com/KOMKZ/go-yogan-logconf/reload"
	"github.com/KOMKZ/go-yogan-logconf/source"
	"github.com/KOMKZ/go-yogan-logconf/status"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/singleflight"
)

// Option configures a Configurator
type Option func(*Configurator)

// WithTriggerOptions applies opts to every reload trigger armed by scan="true"
func WithTriggerOptions(opts ...reload.Option) Option {
	return func(c *Configurator) {
		c.triggerOpts = append(c.triggerOpts, opts...)
	}
}

// WithStatusOutput sends debug="true" status printing to w instead of stdout
func WithStatusOutput(w zapcore.WriteSyncer) Option {
	return func(c *Configurator) {
		c.statusOut = w
	}
}

// Configurator plays configuration documents into a logger.Context. The element
// rules are built once; passes are serialized by the context.
type Configurator struct {
	lc          *logger.Context
	interpreter *joran.Interpreter
	triggerOpts []reload.Option
	statusOut   zapcore.WriteSyncer
	report      status.Reporter
	group       singleflight.Group
}

// NewConfigurator creates a Configurator for lc
func NewConfigurator(lc *logger.Context, opts ...Option) *Configurator {
	c := &Configurator{
		lc:     lc,
		report: status.NewReporter(lc.StatusManager(), "Configurator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.interpreter = joran.NewInterpreter(c.rules())
	return c
}

func (c *Configurator) rules() *joran.RuleStore {
	rules := joran.NewRuleStore()
	rules.AddRule("configuration", &ConfigurationAction{cfg: c})
	rules.AddRule("configuration/contextName", &ContextNameAction{lc: c.lc})
	rules.AddRule("configuration/property", &PropertyAction{lc: c.lc})
	rules.AddRule("configuration/appender", &AppenderAction{lc: c.lc})
	rules.AddRule("configuration/appender/*", AppenderParamAction{})
	rules.AddRule("configuration/logger", &LoggerAction{lc: c.lc})
	rules.AddRule("configuration/root", &LoggerAction{lc: c.lc, root: true})
	rules.AddRule("*/appender-ref", AppenderRefAction{})
	return rules
}

// Context the logger context being configured
func (c *Configurator) Context() *logger.Context {
	return c.lc
}

// DoConfigure configures from src, waiting for any pass in progress. The marker is
// read before the content so a change racing with the read is seen by the next check.
// An unreachable marker is recorded and the first check retries it.
func (c *Configurator) DoConfigure(ctx context.Context, src source.Source) error {
	snap, err := source.Take(ctx, src)
	if err != nil {
		c.report.Warn(fmt.Sprintf("Could not read the change marker of [%s]: %v", src.Identity(), err))
		snap = source.Snapshot{Source: src}
	}
	return c.lc.Configure(ctx, func(d *logger.Draft) error {
		return c.playSnapshot(ctx, d, snap)
	})
}

// DoConfigureReader configures from a document that cannot be re-read; scan="true"
// is ignored with a warning.
func (c *Configurator) DoConfigureReader(ctx context.Context, r io.Reader) error {
	return c.lc.Configure(ctx, func(d *logger.Draft) error {
		return c.play(d, r, source.Snapshot{})
	})
}

// Reconfigure is the reload.ReconfigureFunc of triggers armed by this configurator.
// It never waits: a pass already running yields errcode.ErrConfigureInProgress.
func (c *Configurator) Reconfigure(ctx context.Context, snap source.Snapshot) error {
	return c.lc.TryConfigure(ctx, func(d *logger.Draft) error {
		return c.playSnapshot(ctx, d, snap)
	})
}

// ReconfigureNow reloads src on demand. Concurrent callers for the same source share
// one pass and its result.
func (c *Configurator) ReconfigureNow(ctx context.Context, src source.Source) error {
	_, err, _ := c.group.Do(src.Identity(), func() (interface{}, error) {
		return nil, c.DoConfigure(ctx, src)
	})
	return err
}

func (c *Configurator) playSnapshot(ctx context.Context, d *logger.Draft, snap source.Snapshot) error {
	data, err := source.ReadAll(ctx, snap.Source)
	if err != nil {
		c.report.Error(fmt.Sprintf("Could not read configuration from [%s]", snap.Identity()), err)
		return err
	}
	return c.play(d, bytes.NewReader(data), snap)
}

func (c *Configurator) play(d *logger.Draft, r io.Reader, snap source.Snapshot) error {
	ic := joran.NewInterpretationContext(passProperties{draft: d, lc: c.lc}, c.lc.StatusManager(), snap)
	ic.PutObject(passStartKey, time.Now())

	if err := c.interpreter.Play(ic, r); err != nil {
		where := snap.Identity()
		if where == "" {
			where = "input stream"
		}
		c.report.Error(fmt.Sprintf("Failed to configure from [%s]", where), err)
		return err
	}
	return nil
}

// passProperties resolves context properties against the pending draft first, so
// that scope="context" properties are visible later in the same document.
type passProperties struct {
	draft *logger.Draft
	lc    *logger.Context
}

func (p passProperties) Property(key string) (string, bool) {
	if v, ok := p.draft.Property(key); ok {
		return v, true
	}
	return p.lc.Property(key)
}

// IsConfigureInProgress reports whether err only means another pass was running
func IsConfigureInProgress(err error) bool {
	return errcode.ErrConfigureInProgress.Is(err)
}
