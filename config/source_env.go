package config

import (
	"os"
	"strings"
)

// EnvSource reads LOGCONF_* style environment variables.
//
// With bindings only the bound variables are read; without, every variable carrying
// the prefix is mapped by lowercasing and turning "_" into ".", so LOGCONF_SOURCE_KIND
// becomes "source.kind". Keys that themselves contain "_" need a binding.
type EnvSource struct {
	prefix   string
	priority int
	bindings map[string]string // config key -> variable, e.g. "etcd.dial_timeout" -> "ETCD_DIAL_TIMEOUT"
}

// NewEnvSource creates an EnvSource for prefix ("" reads nothing unless bound)
func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{prefix: prefix, priority: priority, bindings: map[string]string{}}
}

// AddBinding maps key to envKey; the prefix is added unless envKey already has it
func (s *EnvSource) AddBinding(key, envKey string) {
	s.bindings[key] = s.qualify(envKey)
}

// Name implements ConfigSource
func (s *EnvSource) Name() string { return "env:" + s.prefix }

// Priority implements ConfigSource
func (s *EnvSource) Priority() int { return s.priority }

// Load implements ConfigSource. Empty variables count as unset.
func (s *EnvSource) Load() (map[string]interface{}, error) {
	if len(s.bindings) > 0 {
		return s.loadBound(), nil
	}
	return s.scan(), nil
}

func (s *EnvSource) qualify(envKey string) string {
	if s.prefix == "" || strings.HasPrefix(envKey, s.prefix+"_") {
		return envKey
	}
	return s.prefix + "_" + envKey
}

func (s *EnvSource) loadBound() map[string]interface{} {
	out := make(map[string]interface{}, len(s.bindings))
	for key, envKey := range s.bindings {
		if value := os.Getenv(envKey); value != "" {
			out[key] = value
		}
	}
	return out
}

func (s *EnvSource) scan() map[string]interface{} {
	out := make(map[string]interface{})
	if s.prefix == "" {
		return out
	}
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		rest, ok := strings.CutPrefix(name, s.prefix+"_")
		if !ok || value == "" {
			continue
		}
		out[strings.ReplaceAll(strings.ToLower(rest), "_", ".")] = value
	}
	return out
}
