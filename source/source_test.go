package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

func TestFileSource_MarkerFollowsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logconf.xml")
	require.NoError(t, os.WriteFile(path, []byte("<configuration/>"), 0644))
	ctx := context.Background()

	src := NewFileSource(path)
	assert.Equal(t, "file:"+path, src.Identity())

	first, err := src.Marker(ctx)
	require.NoError(t, err)
	again, err := src.Marker(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, os.WriteFile(path, []byte("<configuration debug=\"true\"/>"), 0644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	changed, err := src.Marker(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	data, err := ReadAll(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "<configuration debug=\"true\"/>", string(data))
}

func TestFileSource_Missing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.xml"))

	_, err := src.Marker(context.Background())
	assert.True(t, errors.Is(err, errcode.ErrSourceUnreadable))

	_, err = src.Open(context.Background())
	assert.True(t, errors.Is(err, errcode.ErrSourceUnreadable))

	_, err = Take(context.Background(), src)
	assert.Error(t, err)
}

func TestRedisSource(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Unable to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	src := NewRedisSource(client, "logconf:app")
	assert.Equal(t, "redis:logconf:app", src.Identity())

	_, err = src.Marker(ctx)
	assert.True(t, errors.Is(err, errcode.ErrSourceUnreadable))

	require.NoError(t, mr.Set("logconf:app", "<configuration/>"))
	snap, err := Take(ctx, src)
	require.NoError(t, err)
	assert.True(t, snap.Valid())
	assert.Len(t, string(snap.Marker), 64)

	same, err := src.Marker(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Marker, same)

	require.NoError(t, mr.Set("logconf:app", "<configuration scan=\"true\"/>"))
	changed, err := src.Marker(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, snap.Marker, changed)

	data, err := ReadAll(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "<configuration scan=\"true\"/>", string(data))
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	addr := mr.Addr()

	client, err := NewRedisClient(context.Background(), RedisConfig{Addrs: []string{addr}})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), RedisConfig{Addrs: []string{addr}, DialTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

// fakeKV serves one key from memory
type fakeKV struct {
	clientv3.KV

	mu    sync.Mutex
	value []byte
	rev   int64
	err   error
}

func (f *fakeKV) put(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = []byte(value)
	f.rev++
}

func (f *fakeKV) Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.value == nil {
		return &clientv3.GetResponse{}, nil
	}
	return &clientv3.GetResponse{
		Kvs: []*mvccpb.KeyValue{{Key: []byte(key), Value: f.value, ModRevision: f.rev}},
	}, nil
}

func TestEtcdSource(t *testing.T) {
	kv := &fakeKV{}
	src := NewEtcdSource(kv, "/logconf/app")
	ctx := context.Background()
	assert.Equal(t, "etcd:/logconf/app", src.Identity())

	_, err := src.Marker(ctx)
	assert.True(t, errors.Is(err, errcode.ErrSourceUnreadable))

	kv.put("<configuration/>")
	m1, err := src.Marker(ctx)
	require.NoError(t, err)
	assert.Equal(t, Marker("1"), m1)

	kv.put("<configuration debug=\"true\"/>")
	m2, err := src.Marker(ctx)
	require.NoError(t, err)
	assert.Equal(t, Marker("2"), m2)

	data, err := ReadAll(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "<configuration debug=\"true\"/>", string(data))

	kv.err = errors.New("connection refused")
	_, err = src.Open(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSnapshot_Invalid(t *testing.T) {
	var snap Snapshot
	assert.False(t, snap.Valid())
	assert.Equal(t, "", snap.Identity())
}
