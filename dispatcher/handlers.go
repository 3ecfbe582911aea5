package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

func newID() string {
	return uuid.NewString()
}

// HTTPHandler posts deliveries as JSON to a downstream service
type HTTPHandler struct {
	url    string
	client *http.Client
}

// NewHTTPHandler creates a handler posting to http://addr/path over a keep-alive client
func NewHTTPHandler(addr, path string) *HTTPHandler {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return &HTTPHandler{
		url: url + path,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				MaxConnsPerHost:     4,
			},
		},
	}
}

// URL the deliveries are posted to
func (h *HTTPHandler) URL() string {
	return h.url
}

// Handle implements Handler. The response body is returned as is.
func (h *HTTPHandler) Handle(ctx context.Context, delivery *Delivery) (json.RawMessage, error) {
	b, err := json.Marshal(delivery)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFailedMarshal, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewBuffer(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseReadFail, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return body, nil
}

// Close drops idle connections
func (h *HTTPHandler) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// RedisHandler queues msgpack encoded deliveries on a redis list
type RedisHandler struct {
	client *redis.Client
	queue  string
	owned  bool
}

// NewRedisHandler creates a handler pushing to queue through client
func NewRedisHandler(client *redis.Client, queue string) *RedisHandler {
	return &RedisHandler{client: client, queue: queue}
}

// DialRedisHandler connects to the redis server at addr
func DialRedisHandler(ctx context.Context, addr, queue string) (*RedisHandler, error) {
	if queue == "" {
		return nil, fmt.Errorf("%w: redis destination without queue", ErrSendFailed)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisHandler{client: client, queue: queue, owned: true}, nil
}

// Handle implements Handler. The response acknowledges the queued delivery.
func (r *RedisHandler) Handle(ctx context.Context, delivery *Delivery) (json.RawMessage, error) {
	b, err := msgpack.Marshal(delivery)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFailedMarshal, err)
	}
	n, err := r.client.RPush(ctx, r.queue, b).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return json.Marshal(map[string]interface{}{
		"queued":      true,
		"queue":       r.queue,
		"delivery_id": delivery.ID,
		"length":      n,
	})
}

// Close closes the client when it was dialed by the handler
func (r *RedisHandler) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}

// EchoHandler acknowledges deliveries without forwarding them
type EchoHandler struct{}

// Handle implements Handler
func (EchoHandler) Handle(_ context.Context, delivery *Delivery) (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{
		"acknowledged": true,
		"destination":  delivery.Destination,
		"delivery_id":  delivery.ID,
		"data":         delivery.Data,
	})
}
