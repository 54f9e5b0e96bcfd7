package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"
)

// RedisConfig Redis client settings
type RedisConfig struct {
	// Addrs one address for a single node, several for a cluster
	Addrs       []string      `mapstructure:"addrs"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"` // single node only
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Validate implements validator.Validatable
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addrs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.DB, validation.Min(0), validation.When(len(c.Addrs) > 1, validation.Empty)),
		validation.Field(&c.DialTimeout, validation.Min(time.Duration(0))),
	)
}

// NewRedisClient connects and pings
func NewRedisClient(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if len(cfg.Addrs) == 0 {
		cfg.Addrs = []string{"127.0.0.1:6379"}
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       cfg.Addrs,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisSource a configuration document stored as a redis string
type RedisSource struct {
	client redis.Cmdable
	key    string
}

// NewRedisSource reads key through client
func NewRedisSource(client redis.Cmdable, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

// Identity implements Source
func (s *RedisSource) Identity() string {
	return "redis:" + s.key
}

// Marker is the SHA-256 of the stored value
func (s *RedisSource) Marker(ctx context.Context) (Marker, error) {
	data, err := s.get(ctx)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(data))
	return Marker(hex.EncodeToString(sum[:])), nil
}

// Open implements Source
func (s *RedisSource) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (s *RedisSource) get(ctx context.Context) (string, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errcode.ErrSourceUnreadable.WithMsgf("redis key not found: %s", s.key)
	}
	if err != nil {
		return "", errcode.ErrSourceUnreadable.Wrapf(err, "redis get %s", s.key)
	}
	return data, nil
}
