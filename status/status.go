// Package status is the process-wide diagnostic channel of the configuration core.
//
// Components report leveled, human readable records to a Manager; listeners attached
// to the Manager see every record as it is added. Adding a status never fails.
package status

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
)

// Level severity of a status record
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// String returns the upper-case level name
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// Status a single diagnostic record
type Status struct {
	Level   Level
	Origin  string
	Message string
	Cause   error
	Time    time.Time
}

// New builds a status stamped with the current time
func New(level Level, origin, msg string, cause error) Status {
	return Status{
		Level:   level,
		Origin:  origin,
		Message: msg,
		Cause:   cause,
		Time:    time.Now(),
	}
}

// String renders "15:04:05.000 |-INFO in origin - message[: [code] cause]"
func (s Status) String() string {
	var b strings.Builder
	b.WriteString(s.Time.Format("15:04:05.000"))
	b.WriteString(" |-")
	b.WriteString(s.Level.String())
	if s.Origin != "" {
		b.WriteString(" in ")
		b.WriteString(s.Origin)
	}
	b.WriteString(" - ")
	b.WriteString(s.Message)
	if s.Cause != nil {
		b.WriteString(": ")
		var coded *errcode.LayeredError
		if errors.As(s.Cause, &coded) {
			fmt.Fprintf(&b, "[%d] ", coded.Code())
		}
		b.WriteString(s.Cause.Error())
	}
	return b.String()
}
