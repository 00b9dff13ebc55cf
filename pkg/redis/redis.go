package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

// RedisAdapter is the subset of redis operations the service needs. Keys
// are transparently prefixed so several deployments can share an instance.
type RedisAdapter interface {
	Set(key string, value []byte, ttl time.Duration) error
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
	Get(key string) ([]byte, error)
	Del(key string) error
	Exist(key string) (int64, error)
	Close() error
}

type adapter struct {
	name   string
	prefix string
	client goredis.UniversalClient
}

var (
	adaptersMu sync.Mutex
	adapters   = make(map[string]*adapter)
)

// NewRedisAdapter creates (or returns the cached) adapter for the given
// connection name.
func NewRedisAdapter(name string, prefix string, options *Options) (RedisAdapter, error) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()

	if a, ok := adapters[name]; ok {
		return a, nil
	}

	client := goredis.NewUniversalClient(options)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	a := &adapter{name: name, prefix: prefix, client: client}
	adapters[name] = a
	return a, nil
}

func (a *adapter) key(k string) string {
	if a.prefix == "" {
		return k
	}
	return a.prefix + ":" + k
}

func (a *adapter) Set(key string, value []byte, ttl time.Duration) error {
	return a.client.Set(context.Background(), a.key(key), value, ttl).Err()
}

func (a *adapter) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	return a.client.SetNX(context.Background(), a.key(key), value, ttl).Result()
}

func (a *adapter) Get(key string) ([]byte, error) {
	return a.client.Get(context.Background(), a.key(key)).Bytes()
}

func (a *adapter) Del(key string) error {
	return a.client.Del(context.Background(), a.key(key)).Err()
}

func (a *adapter) Exist(key string) (int64, error) {
	return a.client.Exists(context.Background(), a.key(key)).Result()
}

func (a *adapter) Close() error {
	adaptersMu.Lock()
	delete(adapters, a.name)
	adaptersMu.Unlock()
	return a.client.Close()
}
