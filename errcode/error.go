// Package errcode provides the error codes of the logging configuration core.
// Code format: MMBBBB (MM = ModuleLogconf, BBBB = business code)
package errcode

import (
	"fmt"
	"sort"
	"strings"
)

// ModuleLogconf module code shared by every package of the configuration core
const ModuleLogconf = 20

// LayeredError coded error. Sentinels are never modified; every With/Wrap returns a copy,
// and errors.Is matches copies against their sentinel by code.
type LayeredError struct {
	code   int               // MMBBBB, e.g. 200101
	msgKey string            // e.g. "error.logconf.duration_format"
	msg    string            // default message
	fields map[string]string // offending field -> reason, set by validation
	cause  error
}

// New creates a sentinel for businessCode (0001-9999)
func New(businessCode int, msgKey, msg string) *LayeredError {
	return &LayeredError{
		code:   ModuleLogconf*10000 + businessCode,
		msgKey: msgKey,
		msg:    msg,
	}
}

// Error implements error
func (e *LayeredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Code full MMBBBB code
func (e *LayeredError) Code() int {
	return e.code
}

// MsgKey message key
func (e *LayeredError) MsgKey() string {
	return e.msgKey
}

// Message returns the message without the cause
func (e *LayeredError) Message() string {
	return e.msg
}

// Fields returns the offending fields recorded by WithFields, sorted by name
func (e *LayeredError) Fields() []string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reason why field was rejected
func (e *LayeredError) Reason(field string) string {
	return e.fields[field]
}

// Unwrap supports errors.Is/As on the cause
func (e *LayeredError) Unwrap() error {
	return e.cause
}

// WithMsg replaces the message
func (e *LayeredError) WithMsg(msg string) *LayeredError {
	clone := *e
	clone.msg = msg
	return &clone
}

// WithMsgf replaces the message
func (e *LayeredError) WithMsgf(format string, args ...interface{}) *LayeredError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// WithFields records rejected fields and appends them to the message as
// "name: reason; name: reason".
func (e *LayeredError) WithFields(fields map[string]string) *LayeredError {
	clone := *e
	clone.fields = make(map[string]string, len(e.fields)+len(fields))
	for k, v := range e.fields {
		clone.fields[k] = v
	}
	for k, v := range fields {
		clone.fields[k] = v
	}

	names := clone.Fields()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+clone.fields[name])
	}
	if len(parts) > 0 {
		clone.msg = e.msg + ": " + strings.Join(parts, "; ")
	}
	return &clone
}

// Wrap attaches cause
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	clone := *e
	clone.cause = cause
	return &clone
}

// Wrapf attaches cause and replaces the message
func (e *LayeredError) Wrapf(cause error, format string, args ...interface{}) *LayeredError {
	clone := e.WithMsgf(format, args...)
	clone.cause = cause
	return clone
}

// Is implements errors.Is by code equality
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	if !ok {
		return false
	}
	return e.code == t.code
}

// String renders "[200101 error.logconf.duration_format] message"
func (e *LayeredError) String() string {
	return fmt.Sprintf("[%d %s] %s", e.code, e.msgKey, e.Error())
}
