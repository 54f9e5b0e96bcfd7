package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdConfig etcd client configuration
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
}

// Validate implements validator.Validatable
func (c EtcdConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Endpoints, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.DialTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Password, validation.When(c.Username == "", validation.Empty)),
	)
}

// DialEtcd connects to etcd and checks the first endpoint
func DialEtcd(ctx context.Context, cfg EtcdConfig) (*clientv3.Client, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = []string{"127.0.0.1:2379"}
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	}
	if cfg.Username != "" {
		clientCfg.Username = cfg.Username
		clientCfg.Password = cfg.Password
	}

	client, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	statusCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if _, err := client.Status(statusCtx, cfg.Endpoints[0]); err != nil {
		client.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}
	return client, nil
}

// EtcdSource a configuration document stored under one etcd key
type EtcdSource struct {
	kv  clientv3.KV
	key string
}

// NewEtcdSource reads key through kv (usually a *clientv3.Client)
func NewEtcdSource(kv clientv3.KV, key string) *EtcdSource {
	return &EtcdSource{kv: kv, key: key}
}

// Identity implements Source
func (s *EtcdSource) Identity() string {
	return "etcd:" + s.key
}

// Marker is the key's mod revision. Only the revision travels over the wire.
func (s *EtcdSource) Marker(ctx context.Context) (Marker, error) {
	resp, err := s.kv.Get(ctx, s.key, clientv3.WithKeysOnly())
	if err != nil {
		return "", errcode.ErrSourceUnreadable.Wrapf(err, "etcd get %s", s.key)
	}
	if len(resp.Kvs) == 0 {
		return "", errcode.ErrSourceUnreadable.WithMsgf("etcd key not found: %s", s.key)
	}
	return Marker(strconv.FormatInt(resp.Kvs[0].ModRevision, 10)), nil
}

// Open implements Source
func (s *EtcdSource) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, errcode.ErrSourceUnreadable.Wrapf(err, "etcd get %s", s.key)
	}
	if len(resp.Kvs) == 0 {
		return nil, errcode.ErrSourceUnreadable.WithMsgf("etcd key not found: %s", s.key)
	}
	return io.NopCloser(bytes.NewReader(resp.Kvs[0].Value)), nil
}
