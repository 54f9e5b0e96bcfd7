package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/duration"
	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/KOMKZ/go-yogan-logconf/source"
	"github.com/KOMKZ/go-yogan-logconf/validator"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/pflag"
)

// EnvPrefix prefix of every bootstrap environment variable
const EnvPrefix = "LOGCONF"

// Source kinds
const (
	KindFile  = "file"
	KindEtcd  = "etcd"
	KindRedis = "redis"
)

// SourceConfig where the logging configuration document lives
type SourceConfig struct {
	Kind string `mapstructure:"kind"`
	Path string `mapstructure:"path"` // file
	Key  string `mapstructure:"key"`  // etcd, redis
}

// TelemetryConfig stdout exporters for reload metrics and spans
type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

// Bootstrap settings the CLI needs before any logging configuration is loaded
type Bootstrap struct {
	AppName   string             `mapstructure:"app_name"`
	Source    SourceConfig       `mapstructure:"source"`
	Etcd      source.EtcdConfig  `mapstructure:"etcd"`
	Redis     source.RedisConfig `mapstructure:"redis"`
	Watch     bool               `mapstructure:"watch"` // fsnotify nudges for file sources
	Heartbeat duration.Duration  `mapstructure:"heartbeat"`
	Telemetry TelemetryConfig    `mapstructure:"telemetry"`
}

// Validate implements validator.Validatable
func (b Bootstrap) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.AppName, validation.Required),
		validation.Field(&b.Source),
		validation.Field(&b.Etcd, validation.Skip.When(b.Source.Kind != KindEtcd)),
		validation.Field(&b.Redis, validation.Skip.When(b.Source.Kind != KindRedis)),
		validation.Field(&b.Heartbeat, validation.By(positiveDuration)),
		validation.Field(&b.Telemetry),
	)
}

// Validate implements validation.Validatable
func (s SourceConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Kind, validation.Required, validation.In(KindFile, KindEtcd, KindRedis)),
		validation.Field(&s.Path, validation.When(s.Kind == KindFile, validation.Required)),
		validation.Field(&s.Key, validation.When(s.Kind == KindEtcd || s.Kind == KindRedis, validation.Required)),
	)
}

// Validate implements validation.Validatable
func (t TelemetryConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ExportInterval, validation.When(t.Enabled, validation.Min(time.Second))),
	)
}

func positiveDuration(value interface{}) error {
	d, _ := value.(duration.Duration)
	if d.Duration <= 0 {
		return validation.NewError("validation_positive_duration", "must be a positive duration")
	}
	return nil
}

// Defaults values used when no layer sets a key
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"app_name":                  "logconf",
		"source.kind":               KindFile,
		"source.path":               "logconf.xml",
		"watch":                     false,
		"heartbeat":                 "30 seconds",
		"etcd.endpoints":            []string{"127.0.0.1:2379"},
		"etcd.dial_timeout":         "5s",
		"redis.addrs":               []string{"127.0.0.1:6379"},
		"redis.dial_timeout":        "5s",
		"telemetry.enabled":         false,
		"telemetry.export_interval": "1m",
	}
}

// EnvBindings config key -> variable name without the LOGCONF_ prefix
func EnvBindings() map[string]string {
	keys := []string{
		"app_name", "source.kind", "source.path", "source.key", "watch", "heartbeat",
		"etcd.endpoints", "etcd.dial_timeout", "etcd.username", "etcd.password",
		"redis.addrs", "redis.password", "redis.db", "redis.dial_timeout",
		"telemetry.enabled", "telemetry.export_interval",
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = strings.ToUpper(strings.ReplaceAll(k, ".", "_"))
	}
	return out
}

// LoadOptions inputs of LoadBootstrap; every field is optional
type LoadOptions struct {
	File         string            // settings file, yaml or json
	Flags        *pflag.FlagSet    // explicitly set flags override everything
	FlagBindings map[string]string // flag name -> config key
}

// NewBootstrapLoader layers defaults, the settings file, LOGCONF_* variables and flags
func NewBootstrapLoader(opts LoadOptions) *Loader {
	loader := NewLoader()
	loader.AddSource(NewMapSource("defaults", Defaults(), PriorityDefaults))
	if opts.File != "" {
		loader.AddSource(NewFileSource(opts.File, PriorityFile))
	}

	env := NewEnvSource(EnvPrefix, PriorityEnv)
	for key, envKey := range EnvBindings() {
		env.AddBinding(key, envKey)
	}
	loader.AddSource(env)

	if opts.Flags != nil {
		loader.AddSource(NewFlagSource(opts.Flags, opts.FlagBindings, PriorityFlags))
	}
	return loader
}

// LoadBootstrap loads and validates the bootstrap settings
func LoadBootstrap(opts LoadOptions) (*Bootstrap, error) {
	loader := NewBootstrapLoader(opts)
	if err := loader.Load(); err != nil {
		return nil, errcode.ErrLoadBootstrap.Wrap(err)
	}

	var b Bootstrap
	if err := loader.Unmarshal(&b); err != nil {
		return nil, errcode.ErrLoadBootstrap.Wrapf(err, "decode bootstrap settings")
	}
	if err := validator.Validate(b, errcode.ErrInvalidBootstrap); err != nil {
		return nil, err
	}
	return &b, nil
}

// Describe one line summary for startup logs
func (b Bootstrap) Describe() string {
	switch b.Source.Kind {
	case KindFile:
		return fmt.Sprintf("%s source %s (watch=%t)", b.Source.Kind, b.Source.Path, b.Watch)
	default:
		return fmt.Sprintf("%s source %s", b.Source.Kind, b.Source.Key)
	}
}
