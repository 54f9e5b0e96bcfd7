package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// FileSource settings file in any format viper reads (yaml, json, toml, properties)
type FileSource struct {
	path     string
	priority int
}

// NewFileSource creates a FileSource
func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{path: path, priority: priority}
}

// Name implements ConfigSource
func (s *FileSource) Name() string { return "file:" + s.path }

// Priority implements ConfigSource
func (s *FileSource) Priority() int { return s.priority }

// Load reads the file. A missing file contributes nothing and is not an error.
// Nested settings come back as dotted keys ("etcd.endpoints").
func (s *FileSource) Load() (map[string]interface{}, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	keys := v.AllKeys()
	settings := make(map[string]interface{}, len(keys))
	for _, key := range keys {
		settings[key] = v.Get(key)
	}
	return settings, nil
}
