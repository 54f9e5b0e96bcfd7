package joran

import (
	"errors"
	"strings"
	"testing"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/source"
	"github.com/KOMKZ/go-yogan-logconf/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapContainer map[string]string

func (m mapContainer) Property(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func newTestContext(t *testing.T) (*InterpretationContext, *status.Recorder) {
	t.Helper()
	mgr := status.NewManager()
	rec := status.NewRecorder()
	mgr.Subscribe(rec)
	return NewInterpretationContext(mapContainer{"app": "billing"}, mgr, source.Snapshot{}), rec
}

func TestStack_PushPopPeek(t *testing.T) {
	ic, _ := newTestContext(t)

	_, err := ic.Pop()
	assert.True(t, errors.Is(err, errcode.ErrStackEmpty))
	_, err = ic.Peek()
	assert.True(t, errors.Is(err, errcode.ErrStackEmpty))

	a, b := &struct{ n int }{1}, &struct{ n int }{2}
	ic.Push(a)
	ic.Push(b)
	assert.Equal(t, 2, ic.Depth())

	top, err := ic.Peek()
	require.NoError(t, err)
	assert.Same(t, b, top)

	err = ic.PopExpect(a)
	assert.True(t, errors.Is(err, errcode.ErrStackMismatch))
	assert.Equal(t, 2, ic.Depth())

	require.NoError(t, ic.PopExpect(b))
	require.NoError(t, ic.PopExpect(a))
	assert.True(t, errors.Is(ic.PopExpect(a), errcode.ErrStackEmpty))
}

type named struct{ name string }

func TestStack_PopExpectMismatchMessage(t *testing.T) {
	ic, _ := newTestContext(t)
	want, other := &named{"root"}, &struct{ n int }{1}
	ic.Push(want)
	ic.Push(other)

	err := ic.PopExpect(want)
	require.Error(t, err)
	var coded *errcode.LayeredError
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, errcode.ErrStackMismatch.Code(), coded.Code())
	assert.Equal(t, "expected *joran.named on top of interpretation stack, found *struct { n int } (depth 2)", coded.Message())
	assert.Same(t, other, ic.stack[len(ic.stack)-1])
}

func TestNearest(t *testing.T) {
	ic, _ := newTestContext(t)
	outer, inner := &named{"outer"}, &named{"inner"}

	_, ok := Nearest[*named](ic)
	assert.False(t, ok)

	ic.Push(outer)
	ic.Push("text")
	ic.Push(inner)
	ic.Push(42)

	got, ok := Nearest[*named](ic)
	require.True(t, ok)
	assert.Same(t, inner, got)

	s, ok := Nearest[string](ic)
	require.True(t, ok)
	assert.Equal(t, "text", s)
}

func TestSubst(t *testing.T) {
	ic, _ := newTestContext(t)
	ic.PutProperty("dir", "/var/log")
	t.Setenv("LOGCONF_TEST_ENV", "from-env")

	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"${dir}/app.log", "/var/log/app.log"},
		{"${app}-${dir}", "billing-/var/log"},
		{"${LOGCONF_TEST_ENV}", "from-env"},
		{"${missing:-fallback}", "fallback"},
		{"${missing:-}", ""},
		{"${dir:-unused}", "/var/log"},
		{"${missing}", "missing_IS_UNDEFINED"},
		{"${unterminated", "${unterminated"},
		{"a ${dir} b ${", "a /var/log b ${"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ic.Subst(c.in), c.in)
	}
}

func TestRuleStore_Precedence(t *testing.T) {
	rules := NewRuleStore()
	exact, suffix, child := &recordingAction{}, &recordingAction{}, &recordingAction{}
	rules.AddRule("configuration/appender/appender-ref", exact)
	rules.AddRule("*/appender-ref", suffix)
	rules.AddRule("configuration/appender/*", child)

	assert.Same(t, exact, rules.Lookup([]string{"configuration", "appender", "appender-ref"}))
	assert.Same(t, suffix, rules.Lookup([]string{"configuration", "logger", "appender-ref"}))
	assert.Same(t, child, rules.Lookup([]string{"configuration", "appender", "file"}))
	assert.Nil(t, rules.Lookup([]string{"configuration", "appender", "file", "deeper"}))
	assert.Nil(t, rules.Lookup(nil))
}

// recordingAction pushes itself in Begin, pops in End and logs every call
type recordingAction struct {
	calls    *[]string
	beginErr error
	endPops  int
	noPush   bool
}

func (a *recordingAction) record(s string) {
	if a.calls != nil {
		*a.calls = append(*a.calls, s)
	}
}

func (a *recordingAction) Begin(ic *InterpretationContext, name string, attrs Attributes) error {
	a.record("begin:" + name + ":" + attrs.Get("id"))
	if a.beginErr != nil {
		ic.Push(a)
		return a.beginErr
	}
	if !a.noPush {
		ic.Push(a)
	}
	return nil
}

func (a *recordingAction) End(ic *InterpretationContext, name string) error {
	a.record("end:" + name)
	if a.noPush {
		return nil
	}
	pops := a.endPops
	if pops == 0 {
		pops = 1
	}
	for i := 0; i < pops; i++ {
		if _, err := ic.Pop(); err != nil {
			return err
		}
	}
	return nil
}

type bodyAction struct {
	recordingAction
	bodies []string
}

func (a *bodyAction) Body(ic *InterpretationContext, name, body string) error {
	a.bodies = append(a.bodies, body)
	return nil
}

func TestInterpreter_DispatchOrder(t *testing.T) {
	var calls []string
	rules := NewRuleStore()
	rules.AddRule("configuration", &recordingAction{calls: &calls})
	rules.AddRule("configuration/appender", &recordingAction{calls: &calls})
	rules.AddRule("*/appender-ref", &recordingAction{calls: &calls})
	body := &bodyAction{recordingAction: recordingAction{calls: &calls}}
	rules.AddRule("configuration/appender/*", body)

	ic, rec := newTestContext(t)
	ic.PutProperty("file", "out.log")
	doc := `<configuration id="root">
  <appender id="${app}">
    <file>  ${file}  </file>
    <appender-ref id="x"/>
  </appender>
</configuration>`

	require.NoError(t, NewInterpreter(rules).Play(ic, strings.NewReader(doc)))

	assert.Equal(t, []string{
		"begin:configuration:root",
		"begin:appender:billing",
		"begin:file:",
		"end:file",
		"begin:appender-ref:x",
		"end:appender-ref",
		"end:appender",
		"end:configuration",
	}, calls)
	assert.Equal(t, []string{"out.log"}, body.bodies)
	assert.Equal(t, 0, ic.Depth())
	assert.Equal(t, 0, rec.CountLevel(status.LevelWarn))
}

func TestInterpreter_UnknownElementSkipsSubtree(t *testing.T) {
	var calls []string
	rules := NewRuleStore()
	rules.AddRule("configuration", &recordingAction{calls: &calls})
	rules.AddRule("*/appender-ref", &recordingAction{calls: &calls})

	ic, rec := newTestContext(t)
	doc := `<configuration><mystery><appender-ref id="hidden"/></mystery><appender-ref id="seen"/></configuration>`

	require.NoError(t, NewInterpreter(rules).Play(ic, strings.NewReader(doc)))

	assert.Equal(t, []string{
		"begin:configuration:",
		"begin:appender-ref:seen",
		"end:appender-ref",
		"end:configuration",
	}, calls)
	assert.True(t, rec.Has(status.LevelWarn, "no applicable action for [mystery]"))
	assert.True(t, rec.Has(status.LevelWarn, "[configuration/mystery]"))
}

func TestInterpreter_SkippedElementUnwinds(t *testing.T) {
	var calls []string
	rules := NewRuleStore()
	rules.AddRule("configuration", &recordingAction{calls: &calls})
	rules.AddRule("configuration/appender", &recordingAction{
		calls:    &calls,
		beginErr: errcode.ErrElementSkipped.WithMsg("missing class"),
	})
	rules.AddRule("*/appender-ref", &recordingAction{calls: &calls})

	ic, rec := newTestContext(t)
	doc := `<configuration><appender><appender-ref id="child"/></appender></configuration>`

	require.NoError(t, NewInterpreter(rules).Play(ic, strings.NewReader(doc)))

	assert.Equal(t, []string{"begin:configuration:", "begin:appender:", "end:configuration"}, calls)
	assert.Equal(t, 1, rec.Count(status.LevelError, "missing class"))
	assert.Equal(t, 0, ic.Depth())
}

func TestInterpreter_BeginFailureAbortsAndUnwinds(t *testing.T) {
	rules := NewRuleStore()
	rules.AddRule("configuration", &recordingAction{})
	rules.AddRule("configuration/appender", &recordingAction{beginErr: errors.New("boom")})

	ic, _ := newTestContext(t)
	err := NewInterpreter(rules).Play(ic, strings.NewReader(`<configuration><appender/></configuration>`))

	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, 0, ic.Depth())
}

func TestInterpreter_EndThatPopsTooMuch(t *testing.T) {
	rules := NewRuleStore()
	rules.AddRule("configuration", &recordingAction{})
	rules.AddRule("configuration/logger", &recordingAction{endPops: 2})

	ic, _ := newTestContext(t)
	err := NewInterpreter(rules).Play(ic, strings.NewReader(`<configuration><logger/></configuration>`))

	assert.True(t, errors.Is(err, errcode.ErrStackUnbalanced))
	assert.Equal(t, 0, ic.Depth())
}

func TestInterpreter_EndThatForgetsToPop(t *testing.T) {
	rules := NewRuleStore()
	rules.AddRule("configuration", &leakyAction{})

	ic, _ := newTestContext(t)
	err := NewInterpreter(rules).Play(ic, strings.NewReader(`<configuration/>`))

	assert.True(t, errors.Is(err, errcode.ErrStackUnbalanced))
	assert.Equal(t, 0, ic.Depth())
}

type leakyAction struct{}

func (leakyAction) Begin(ic *InterpretationContext, name string, attrs Attributes) error {
	ic.Push(&named{name})
	return nil
}

func (leakyAction) End(ic *InterpretationContext, name string) error { return nil }

func TestInterpreter_MalformedDocument(t *testing.T) {
	rules := NewRuleStore()
	rules.AddRule("configuration", &recordingAction{})
	in := NewInterpreter(rules)

	ic, _ := newTestContext(t)
	err := in.Play(ic, strings.NewReader(`<configuration><appender></configuration>`))
	assert.True(t, errors.Is(err, errcode.ErrMalformedConfig))
	assert.Equal(t, 0, ic.Depth())

	ic, _ = newTestContext(t)
	err = in.Play(ic, strings.NewReader("   "))
	assert.True(t, errors.Is(err, errcode.ErrMalformedConfig))
}
