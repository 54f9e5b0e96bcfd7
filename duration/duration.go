// Package duration parses human readable intervals such as "30 seconds" or "2.5 minutes".
//
// A bare number is read as milliseconds. Go duration syntax ("1m30s") is accepted as
// a fallback so values copied from Go configuration keep working.
package duration

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
)

const (
	Millisecond = time.Millisecond
	Second      = time.Second
	Minute      = time.Minute
	Hour        = time.Hour
	Day         = 24 * time.Hour
)

var pattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?|\.\d+)\s*([A-Za-z]*)\s*$`)

// units maps every accepted (lowercase) unit token to its length
var units = map[string]time.Duration{
	"":             Millisecond,
	"ms":           Millisecond,
	"milli":        Millisecond,
	"millis":       Millisecond,
	"millisecond":  Millisecond,
	"milliseconds": Millisecond,
	"s":            Second,
	"sec":          Second,
	"secs":         Second,
	"second":       Second,
	"seconds":      Second,
	"seconde":      Second,
	"secondes":     Second,
	"m":            Minute,
	"min":          Minute,
	"mins":         Minute,
	"minute":       Minute,
	"minutes":      Minute,
	"h":            Hour,
	"hr":           Hour,
	"hrs":          Hour,
	"hour":         Hour,
	"hours":        Hour,
	"d":            Day,
	"day":          Day,
	"days":         Day,
}

// Duration is a parsed interval
type Duration struct {
	time.Duration
}

// Parse parses s into a Duration
func Parse(s string) (Duration, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return parseGo(s, "does not match <number><unit>")
	}

	unit, ok := units[strings.ToLower(m[2])]
	if !ok {
		return parseGo(s, "unrecognized unit ["+m[2]+"]")
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Duration{}, errcode.ErrDurationFormat.Wrapf(err, "malformed duration [%s]", s)
	}

	// float64(math.MaxInt64) is 2^63, itself out of range
	total := math.Round(value * float64(unit))
	if total >= math.MaxInt64 {
		return Duration{}, errcode.ErrDurationFormat.WithMsgf("duration [%s] overflows", s)
	}
	return Duration{time.Duration(total)}, nil
}

// MustParse is Parse for constants known to be valid
func MustParse(s string) Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// parseGo is the Go syntax fallback; reason describes why the primary grammar failed
func parseGo(s, reason string) (Duration, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Duration{}, errcode.ErrDurationFormat.WithMsg("empty duration")
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return Duration{}, errcode.ErrDurationFormat.WithMsgf("malformed duration [%s]: %s", s, reason)
	}
	if d < 0 {
		return Duration{}, errcode.ErrDurationFormat.WithMsgf("negative duration [%s] not allowed", s)
	}
	return Duration{d}, nil
}

// FromMilliseconds builds a Duration from a millisecond count
func FromMilliseconds(ms int64) Duration {
	return Duration{time.Duration(ms) * time.Millisecond}
}

// Milliseconds returns the interval in whole milliseconds
func (d Duration) Milliseconds() int64 {
	return d.Duration.Milliseconds()
}

// String renders the interval in its largest fitting unit, e.g. "10 seconds"
func (d Duration) String() string {
	switch {
	case d.Duration < Second:
		return format(float64(d.Duration)/float64(Millisecond), "milliseconds")
	case d.Duration < Minute:
		return format(float64(d.Duration)/float64(Second), "seconds")
	case d.Duration < Hour:
		return format(float64(d.Duration)/float64(Minute), "minutes")
	case d.Duration < Day:
		return format(float64(d.Duration)/float64(Hour), "hours")
	default:
		return format(float64(d.Duration)/float64(Day), "days")
	}
}

func format(v float64, unit string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
