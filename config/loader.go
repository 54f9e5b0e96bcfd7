package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Loader merges layered ConfigSources; a key set by a higher priority source wins
type Loader struct {
	sources []ConfigSource
	v       *viper.Viper
	origin  map[string]string // key -> name of the source that set it
	files   []string
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{
		v:      viper.New(),
		origin: make(map[string]string),
	}
}

// AddSource adds a layer; order does not matter, priority does
func (l *Loader) AddSource(source ConfigSource) {
	l.sources = append(l.sources, source)
}

// Load reads every source, lowest priority first. Keys are case-insensitive and
// dotted keys address nested settings ("etcd.dial_timeout").
func (l *Loader) Load() error {
	sort.SliceStable(l.sources, func(i, j int) bool {
		return l.sources[i].Priority() < l.sources[j].Priority()
	})

	merged := make(map[string]interface{})
	origin := make(map[string]string)
	var files []string
	for _, source := range l.sources {
		data, err := source.Load()
		if err != nil {
			return fmt.Errorf("load source %s: %w", source.Name(), err)
		}
		if fs, ok := source.(*FileSource); ok && len(data) > 0 {
			files = append(files, fs.path)
		}
		for key, value := range data {
			key = strings.ToLower(strings.Trim(key, "."))
			if key == "" {
				continue
			}
			merged[key] = value
			origin[key] = source.Name()
		}
	}

	v := viper.New()
	for key, value := range merged {
		v.Set(key, value)
	}
	l.v, l.origin, l.files = v, origin, files
	return nil
}

// Unmarshal decodes the merged configuration into v. Besides viper's duration and
// comma separated slice conversions, fields implementing encoding.TextUnmarshaler
// (duration.Duration) are decoded from their text form.
func (l *Loader) Unmarshal(v interface{}) error {
	return l.v.Unmarshal(v, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
}

// Get configuration value
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString Get string configuration
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// GetBool Get boolean configuration
func (l *Loader) GetBool(key string) bool {
	return l.v.GetBool(key)
}

// IsSet reports whether any source set key
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// Origin name of the source whose value for key won, empty when no source set it
func (l *Loader) Origin(key string) string {
	return l.origin[strings.ToLower(key)]
}

// AllSettings returns the merged configuration as nested maps
func (l *Loader) AllSettings() map[string]interface{} {
	return l.v.AllSettings()
}

// LoadedFiles files that contributed settings, in load order
func (l *Loader) LoadedFiles() []string {
	return l.files
}
