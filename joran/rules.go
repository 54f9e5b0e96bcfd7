package joran

import "strings"

// Attributes of one element, already substituted
type Attributes map[string]string

// Get returns the named attribute or ""
func (a Attributes) Get(name string) string {
	return a[name]
}

// Action handles one kind of element. Begin runs at the start tag, End at the end
// tag. Whatever Begin pushes, End must pop.
//
// Begin may return an error wrapping errcode.ErrElementSkipped to reject the element
// without failing the pass: the error is recorded, the stack is unwound, and neither
// the children nor End are processed. Any other error aborts the pass.
type Action interface {
	Begin(ic *InterpretationContext, name string, attrs Attributes) error
	End(ic *InterpretationContext, name string) error
}

// BodyAction is an Action that also wants the element's trimmed, substituted text.
// Body runs before End and only when the text is not empty.
type BodyAction interface {
	Action
	Body(ic *InterpretationContext, name string, body string) error
}

// RuleStore maps element path patterns to actions. Patterns are
//
//	configuration/appender   exact path
//	*/appender-ref           any path ending with the element
//	configuration/appender/* any direct child of the prefix
//
// Exact patterns win over suffix patterns, which win over child patterns.
// A store is filled once and read-only afterwards.
type RuleStore struct {
	exact  map[string]Action
	suffix map[string]Action
	child  map[string]Action
}

// NewRuleStore creates an empty store
func NewRuleStore() *RuleStore {
	return &RuleStore{
		exact:  make(map[string]Action),
		suffix: make(map[string]Action),
		child:  make(map[string]Action),
	}
}

// AddRule binds pattern to action
func (r *RuleStore) AddRule(pattern string, action Action) {
	switch {
	case strings.HasPrefix(pattern, "*/"):
		r.suffix[pattern[2:]] = action
	case strings.HasSuffix(pattern, "/*"):
		r.child[pattern[:len(pattern)-2]] = action
	default:
		r.exact[pattern] = action
	}
}

// Lookup returns the action for an element path, or nil
func (r *RuleStore) Lookup(path []string) Action {
	if len(path) == 0 {
		return nil
	}
	if a, ok := r.exact[strings.Join(path, "/")]; ok {
		return a
	}
	if a, ok := r.suffix[path[len(path)-1]]; ok {
		return a
	}
	if len(path) > 1 {
		if a, ok := r.child[strings.Join(path[:len(path)-1], "/")]; ok {
			return a
		}
	}
	return nil
}
