// src/pkg/logger/appender.go
package logger

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/validator"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Appender classes
const (
	ClassConsole = "console"
	ClassFile    = "file"
	ClassMemory  = "memory"
)

// AppenderSpec describes one named output
//
// The json tags carry the configuration element names; validation errors report them.
type AppenderSpec struct {
	Name      string `json:"name"`
	Class     string `json:"class"`
	Encoding  string `json:"encoding"`  // json or console
	Target    string `json:"target"`    // console only: stdout or stderr
	Threshold string `json:"threshold"` // minimum level accepted by the appender

	// file only
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"` // MB
	MaxBackups int    `json:"maxBackups"`
	MaxAge     int    `json:"maxAge"` // days
	Compress   bool   `json:"compress"`
}

// DefaultAppenderSpec returns a spec with the file rolling defaults filled in
func DefaultAppenderSpec(name, class string) AppenderSpec {
	return AppenderSpec{
		Name:       name,
		Class:      class,
		Encoding:   "json",
		Target:     "stdout",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// Validate implements validator.Validatable
func (s AppenderSpec) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Class, validation.Required, validation.In(ClassConsole, ClassFile, ClassMemory)),
		validation.Field(&s.File, validation.When(s.Class == ClassFile, validation.Required)),
		validation.Field(&s.Encoding, validation.In("json", "console")),
		validation.Field(&s.Target, validation.In("stdout", "stderr")),
		validation.Field(&s.Threshold, validation.By(validLevel)),
		validation.Field(&s.MaxSize, validation.Min(0), validation.Max(10000)),
		validation.Field(&s.MaxBackups, validation.Min(0), validation.Max(1000)),
		validation.Field(&s.MaxAge, validation.Min(0), validation.Max(3650)),
	)
}

func validLevel(value interface{}) error {
	s, _ := value.(string)
	if IsInherited(s) {
		return nil
	}
	if _, ok := ParseLevel(s); !ok {
		return validation.NewError("validation_level", "must be a valid level")
	}
	return nil
}

// builtAppender a spec turned into a zap core plus the file it writes, if any
type builtAppender struct {
	spec AppenderSpec
	core zapcore.Core
	file *rollingWriter
}

// build turns the spec into a core. Memory appenders write to the context's sink of the same name.
func (s AppenderSpec) build(c *Context) (builtAppender, error) {
	if err := validator.Validate(s, errcode.ErrInvalidAppender); err != nil {
		return builtAppender{}, err
	}

	threshold := zapcore.DebugLevel
	if !IsInherited(s.Threshold) {
		threshold, _ = ParseLevel(s.Threshold)
	}

	switch s.Class {
	case ClassMemory:
		return builtAppender{spec: s, core: c.MemorySink(s.Name).core(threshold)}, nil

	case ClassFile:
		file, err := createFileWriter(s)
		if err != nil {
			return builtAppender{}, errcode.ErrInvalidAppender.Wrapf(err, "appender [%s]: cannot prepare %s", s.Name, s.File)
		}
		return builtAppender{
			spec: s,
			core: zapcore.NewCore(createEncoder(s.Encoding), zapcore.AddSync(file), threshold),
			file: file,
		}, nil

	default:
		out := zapcore.Lock(os.Stdout)
		if s.Target == "stderr" {
			out = zapcore.Lock(os.Stderr)
		}
		return builtAppender{spec: s, core: zapcore.NewCore(createEncoder(s.Encoding), out, threshold)}, nil
	}
}

// createEncoder json unless encoding is "console"
func createEncoder(encoding string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	if encoding == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// createFileWriter creates the rolling writer of a file appender; the file opens on first write
func createFileWriter(s AppenderSpec) (*rollingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(s.File), 0755); err != nil {
		return nil, err
	}

	return &rollingWriter{Logger: &lumberjack.Logger{
		Filename:   s.File,
		MaxSize:    s.MaxSize,
		MaxBackups: s.MaxBackups,
		MaxAge:     s.MaxAge,
		Compress:   s.Compress,
		LocalTime:  true,
	}}, nil
}

// rollingWriter is a lumberjack writer that counts writes arriving after release.
// lumberjack reopens its file on such a write, so the file needs closing again.
type rollingWriter struct {
	*lumberjack.Logger
	released atomic.Bool
	late     atomic.Int64
}

func (w *rollingWriter) Write(p []byte) (int, error) {
	if w.released.Load() {
		w.late.Add(1)
	}
	return w.Logger.Write(p)
}

// release closes the file at the end of its configuration's life
func (w *rollingWriter) release() error {
	w.released.Store(true)
	return w.Logger.Close()
}

// lateWrites writes received since release
func (w *rollingWriter) lateWrites() int64 {
	return w.late.Load()
}
