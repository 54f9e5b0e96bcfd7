// src/pkg/logger/memory.go
package logger

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// LogEntry one captured record
type LogEntry struct {
	Time    time.Time
	Level   string
	Logger  string
	Message string
	Fields  map[string]interface{}
}

// MemorySink keeps records in memory. A sink belongs to a Context and outlives
// reconfigurations, so every "memory" appender with the same name writes here.
// Usage:
//
//	sink := ctx.MemorySink("MEM")
//	ctx.Logger("order").Info("Order creation")
//	assert.True(t, sink.HasLog("INFO", "Order creation"))
type MemorySink struct {
	mu   sync.RWMutex
	logs []LogEntry
}

// NewMemorySink creates an empty sink
func NewMemorySink() *MemorySink {
	return &MemorySink{logs: make([]LogEntry, 0)}
}

func (s *MemorySink) append(e LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, e)
}

// HasLog reports whether a record with level and message was captured
func (s *MemorySink) HasLog(level, message string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, log := range s.logs {
		if log.Level == level && log.Message == message {
			return true
		}
	}
	return false
}

// HasLogWithField is HasLog that also requires fieldKey to equal fieldValue
func (s *MemorySink) HasLogWithField(level, message, fieldKey string, fieldValue interface{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, log := range s.logs {
		if log.Level == level && log.Message == message {
			if val, exists := log.Fields[fieldKey]; exists && val == fieldValue {
				return true
			}
		}
	}
	return false
}

// CountLogs counts records at level
func (s *MemorySink) CountLogs(level string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, log := range s.logs {
		if log.Level == level {
			count++
		}
	}
	return count
}

// Logs returns a copy of the captured records
func (s *MemorySink) Logs() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]LogEntry, len(s.logs))
	copy(logs, s.logs)
	return logs
}

func (s *MemorySink) core(enab zapcore.LevelEnabler) zapcore.Core {
	return &memoryCore{LevelEnabler: enab, sink: s}
}

// memoryCore zapcore.Core backed by a MemorySink
type memoryCore struct {
	zapcore.LevelEnabler
	sink   *MemorySink
	fields []zapcore.Field
}

func (c *memoryCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &memoryCore{LevelEnabler: c.LevelEnabler, sink: c.sink, fields: merged}
}

func (c *memoryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *memoryCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	c.sink.append(LogEntry{
		Time:    ent.Time,
		Level:   strings.ToUpper(ent.Level.String()),
		Logger:  ent.LoggerName,
		Message: ent.Message,
		Fields:  enc.Fields,
	})
	return nil
}

func (c *memoryCore) Sync() error {
	return nil
}
