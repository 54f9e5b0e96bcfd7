package config

// ConfigSource one layer of bootstrap settings (defaults, file, environment, flags)
type ConfigSource interface {
	// Name for logs and errors
	Name() string

	// Priority higher values override lower ones. Conventions:
	// defaults 1, file 10, environment 50, command line 100
	Priority() int

	// Load returns flat, dot separated keys such as "etcd.dial_timeout"
	Load() (map[string]interface{}, error)
}

// Priorities of the built-in layers
const (
	PriorityDefaults = 1
	PriorityFile     = 10
	PriorityEnv      = 50
	PriorityFlags    = 100
)

// MapSource fixed values, used for defaults
type MapSource struct {
	name     string
	data     map[string]interface{}
	priority int
}

// NewMapSource creates a MapSource over flat keys
func NewMapSource(name string, data map[string]interface{}, priority int) *MapSource {
	return &MapSource{name: name, data: data, priority: priority}
}

func (s *MapSource) Name() string { return s.name }

func (s *MapSource) Priority() int { return s.priority }

func (s *MapSource) Load() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out, nil
}
