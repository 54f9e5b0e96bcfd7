// Package joran plays XML configuration documents through a table of element actions.
// Actions share state through an InterpretationContext whose object stack follows
// the element nesting.
package joran

import (
	"fmt"
	"strings"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/source"
	"github.com/KOMKZ/go-yogan-logconf/status"
)

// PropertyContainer is where context-scoped properties live, usually a *logger.Context
type PropertyContainer interface {
	Property(key string) (string, bool)
}

// InterpretationContext state of one interpretation pass. Not safe for concurrent use;
// a pass runs on a single goroutine.
type InterpretationContext struct {
	stack     []any
	props     map[string]string
	container PropertyContainer
	snapshot  source.Snapshot
	statusMgr *status.Manager
	objects   map[string]any
	path      []string
}

// NewInterpretationContext creates a context for one pass. snapshot may be the zero
// value when the document does not come from a re-readable source.
func NewInterpretationContext(container PropertyContainer, mgr *status.Manager, snapshot source.Snapshot) *InterpretationContext {
	return &InterpretationContext{
		props:     make(map[string]string),
		container: container,
		snapshot:  snapshot,
		statusMgr: mgr,
		objects:   make(map[string]any),
	}
}

// Push places obj on top of the stack
func (ic *InterpretationContext) Push(obj any) {
	ic.stack = append(ic.stack, obj)
}

// Pop removes and returns the top object
func (ic *InterpretationContext) Pop() (any, error) {
	if len(ic.stack) == 0 {
		return nil, errcode.ErrStackEmpty
	}
	top := ic.stack[len(ic.stack)-1]
	ic.stack[len(ic.stack)-1] = nil
	ic.stack = ic.stack[:len(ic.stack)-1]
	return top, nil
}

// Peek returns the top object without removing it
func (ic *InterpretationContext) Peek() (any, error) {
	if len(ic.stack) == 0 {
		return nil, errcode.ErrStackEmpty
	}
	return ic.stack[len(ic.stack)-1], nil
}

// PopExpect pops the top object, which must be obj (compared with ==, so push
// pointers). On mismatch the stack is left untouched.
func (ic *InterpretationContext) PopExpect(obj any) error {
	top, err := ic.Peek()
	if err != nil {
		return err
	}
	if top != obj {
		return errcode.ErrStackMismatch.
			WithMsgf("expected %T on top of interpretation stack, found %T (depth %d)", obj, top, len(ic.stack))
	}
	_, err = ic.Pop()
	return err
}

// Depth number of objects on the stack
func (ic *InterpretationContext) Depth() int {
	return len(ic.stack)
}

// unwind drops objects above depth
func (ic *InterpretationContext) unwind(depth int) {
	for len(ic.stack) > depth {
		_, _ = ic.Pop()
	}
}

// Nearest returns the object of type T closest to the top of the stack
func Nearest[T any](ic *InterpretationContext) (T, bool) {
	for i := len(ic.stack) - 1; i >= 0; i-- {
		if v, ok := ic.stack[i].(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// PutProperty sets a pass-local property
func (ic *InterpretationContext) PutProperty(key, value string) {
	ic.props[key] = value
}

// Property looks key up in pass-local properties, then in the container
func (ic *InterpretationContext) Property(key string) (string, bool) {
	if v, ok := ic.props[key]; ok {
		return v, true
	}
	if ic.container != nil {
		return ic.container.Property(key)
	}
	return "", false
}

// Snapshot source and marker of the document being played
func (ic *InterpretationContext) Snapshot() source.Snapshot {
	return ic.snapshot
}

// StatusManager status channel of the pass
func (ic *InterpretationContext) StatusManager() *status.Manager {
	return ic.statusMgr
}

// Reporter returns a status emitter tagged with origin
func (ic *InterpretationContext) Reporter(origin string) status.Reporter {
	return status.NewReporter(ic.statusMgr, origin)
}

// PutObject stores a named object for later elements of the pass
func (ic *InterpretationContext) PutObject(key string, obj any) {
	ic.objects[key] = obj
}

// Object returns a named object stored with PutObject
func (ic *InterpretationContext) Object(key string) (any, bool) {
	obj, ok := ic.objects[key]
	return obj, ok
}

// Path slash separated path of the element being processed
func (ic *InterpretationContext) Path() string {
	return strings.Join(ic.path, "/")
}

// Location path for statuses, e.g. "[configuration/appender]"
func (ic *InterpretationContext) Location() string {
	return fmt.Sprintf("[%s]", ic.Path())
}
