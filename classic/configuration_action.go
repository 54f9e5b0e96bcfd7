package classic

import (
	"fmt"
	"strings"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/duration"
	"github.com/KOMKZ/go-yogan-logconf/joran"
	"github.com/KOMKZ/go-yogan-logconf/logger"
	"github.com/KOMKZ/go-yogan-logconf/reload"
	"github.com/KOMKZ/go-yogan-logconf/status"
)

// Root element attributes
const (
	DebugAttr      = "debug"
	ScanAttr       = "scan"
	ScanPeriodAttr = "scanPeriod"
)

// passStartKey object key under which the configurator stores the pass start time
const passStartKey = "logconf.passStart"

// ConfigurationAction handles the root <configuration> element. It turns on status
// printing for debug="true", arms a reload trigger for scan="true" and keeps the
// logger context on the stack for the nested elements.
type ConfigurationAction struct {
	cfg       *Configurator
	threshold time.Time
}

// Begin implements joran.Action. It never fails: bad attributes are recorded as
// statuses and the context is pushed regardless.
func (a *ConfigurationAction) Begin(ic *joran.InterpretationContext, name string, attrs joran.Attributes) error {
	report := ic.Reporter("ConfigurationAction")
	a.threshold = time.Now()

	if debug := attrs.Get(DebugAttr); isDisabled(debug) {
		report.Info(DebugAttr + " attribute not set")
	} else {
		since := a.threshold
		if start, ok := ic.Object(passStartKey); ok {
			since = start.(time.Time)
		}
		status.EnsureConsoleListener(ic.StatusManager(), a.cfg.statusOut, since)
	}

	a.processScanAttrib(ic, attrs, report)

	ic.Push(a.cfg.lc)
	return nil
}

func (a *ConfigurationAction) processScanAttrib(ic *joran.InterpretationContext, attrs joran.Attributes, report status.Reporter) {
	scan := attrs.Get(ScanAttr)
	if isEmpty(scan) || strings.EqualFold(scan, "false") {
		return
	}

	snap := ic.Snapshot()
	if !snap.Valid() {
		report.Warn("Due to missing top level configuration source, reconfiguration on change will be disabled.")
		return
	}

	draft, err := a.cfg.lc.Draft()
	if err != nil {
		report.Error("Cannot arm ReconfigureOnChangeFilter outside a configuration pass", err)
		return
	}

	trigger := reload.New(a.cfg.lc, snap, a.cfg.Reconfigure, a.cfg.triggerOpts...)
	if raw := attrs.Get(ScanPeriodAttr); !isEmpty(raw) {
		d, err := duration.Parse(raw)
		switch {
		case err != nil:
			report.Error(fmt.Sprintf("Error while converting [%s] to a scanning period, keeping the default of %s",
				raw, reload.DefaultPeriod), err)
		case !trigger.SetPeriod(d.Duration):
			report.Error(fmt.Sprintf("Scanning period [%s] must be positive, keeping the default of %s",
				raw, reload.DefaultPeriod), nil)
		default:
			report.Info("Setting ReconfigureOnChangeFilter scanning period to " + d.String())
		}
	}

	if err := trigger.Start(); err != nil {
		report.Error("Failed to start ReconfigureOnChangeFilter", err)
		return
	}
	draft.AddMonitor(trigger)
	report.Info("Adding ReconfigureOnChangeFilter as a turbo filter")
}

// End implements joran.Action
func (a *ConfigurationAction) End(ic *joran.InterpretationContext, name string) error {
	ic.Reporter("ConfigurationAction").Info(fmt.Sprintf("End of configuration. Took %s", time.Since(a.threshold).Round(time.Microsecond)))
	return ic.PopExpect(a.cfg.lc)
}

// isDisabled empty, "false" and "null" all switch a flag attribute off
func isDisabled(v string) bool {
	return isEmpty(v) || strings.EqualFold(v, "false") || strings.EqualFold(v, "null")
}

func isEmpty(v string) bool {
	return strings.TrimSpace(v) == ""
}

var (
	_ joran.Action     = (*ConfigurationAction)(nil)
	_ joran.BodyAction = AppenderParamAction{}
	_ joran.BodyAction = (*ContextNameAction)(nil)
	_ logger.Monitor   = (*reload.Trigger)(nil)
)
