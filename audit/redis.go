package audit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/netrixframework/interop/types"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultRedisKey is the list events are pushed to when no key is configured
const DefaultRedisKey = "interop_events"

// RedisSink pushes msgpack encoded events onto a redis list
type RedisSink struct {
	client *redis.Client
	key    string
	owned  bool
}

// NewRedisSink creates a sink using an existing client. The client is not closed by the sink.
func NewRedisSink(client *redis.Client, key string) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{client: client, key: key}
}

// DialRedisSink connects to the redis server at addr
func DialRedisSink(ctx context.Context, addr, key string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("audit: connect to redis at %s: %w", addr, err)
	}
	s := NewRedisSink(client, key)
	s.owned = true
	return s, nil
}

// Record implements Sink
func (r *RedisSink) Record(ctx context.Context, event *types.InteropEvent) error {
	b, err := msgpack.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: encode event: %w", err)
	}
	if err := r.client.RPush(ctx, r.key, b).Err(); err != nil {
		return fmt.Errorf("audit: push event to %s: %w", r.key, err)
	}
	return nil
}

// Close closes the client if the sink created it
func (r *RedisSink) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}
