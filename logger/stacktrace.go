// src/yogan/logger/stacktrace.go
package logger

import (
	"fmt"
	"runtime"
	"strings"
)

// CaptureStacktrace formats the caller stack, at most depth frames.
// skip counts runtime.Callers itself as frame 0; depth <= 0 means 32 frames.
// Frames are rendered as "function\n\tfile:line", one per line pair.
func CaptureStacktrace(skip int, depth int) string {
	if depth <= 0 {
		depth = 32
	}

	pcs := make([]uintptr, depth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\n\t%s:%d", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}
