// src/pkg/logger/level.go
package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// OffLevel disables every record
const OffLevel = zapcore.FatalLevel + 1

// ParseLevel parses a level name (case-insensitive). ok is false for unknown names,
// and for "inherited"/"null", which mean "use the parent's level".
func ParseLevel(level string) (lvl zapcore.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "fatal":
		return zapcore.FatalLevel, true
	case "off":
		return OffLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// IsInherited reports whether level asks to inherit from the parent logger
func IsInherited(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "inherited", "null":
		return true
	}
	return false
}

// LevelName renders a level for statuses
func LevelName(l zapcore.Level) string {
	if l == OffLevel {
		return "OFF"
	}
	return l.CapitalString()
}
