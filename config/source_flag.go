package config

import (
	"github.com/spf13/pflag"
)

// FlagSource command line flags that were set explicitly. Flags left at their
// default do not override lower layers.
type FlagSource struct {
	flags    *pflag.FlagSet
	bindings map[string]string // flag name -> config key
	priority int
}

// NewFlagSource reads the changed flags of fs. bindings maps flag names to config
// keys; unbound flags are ignored.
func NewFlagSource(fs *pflag.FlagSet, bindings map[string]string, priority int) *FlagSource {
	return &FlagSource{flags: fs, bindings: bindings, priority: priority}
}

// Name implements ConfigSource
func (s *FlagSource) Name() string {
	return "flags"
}

// Priority implements ConfigSource
func (s *FlagSource) Priority() int {
	return s.priority
}

// Load returns the flags the user changed
func (s *FlagSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})
	if s.flags == nil {
		return result, nil
	}

	s.flags.Visit(func(f *pflag.Flag) {
		key, ok := s.bindings[f.Name]
		if !ok {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			result[key] = sv.GetSlice()
			return
		}
		result[key] = f.Value.String()
	})
	return result, nil
}
