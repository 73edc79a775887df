package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"github.com/redis/go-redis/v9"
)

// fakeRedis implements the handful of commands RedisStore uses.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore_Key(t *testing.T) {
	tests := map[string]struct {
		prefix string
		exp    string
	}{
		"with prefix":    {prefix: "mcmmo", exp: "mcmmo:abc"},
		"without prefix": {prefix: "", exp: "abc"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := NewRedisStore[*mockStoreSpec](nil, tt.prefix)
			testutil.AssertEqual(t, "key", s.key("abc"), tt.exp)
		})
	}
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client := &fakeRedis{data: map[string]string{}}
	store := NewRedisStore[*mockStoreSpec](client, "mcmmo")

	_, err := store.Load(ctx, "item-1")
	testutil.AssertEqual(t, "missing not found", errors.Is(err, ErrNotFound), true)

	err = store.Save(ctx, "item-1", &mockStoreSpec{Name: "First", Value: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok := client.data["mcmmo:item-1"]
	testutil.AssertEqual(t, "stored under prefixed key", ok, true)

	got, err := store.Load(ctx, "item-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "name", got.Name, "First")
	testutil.AssertEqual(t, "value", got.Value, 7)

	err = store.Delete(ctx, "item-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "deleted", len(client.data), 0)
}
