package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/custodia/internal/core"
)

const keyPrefix = "import:"

// Redis is a core.SessionStore backed by Redis, shared between replicas.
// Updates on one token are serialized within this process only.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	locks  *core.KeyedMutex
}

// OpenRedis parses a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedis(client, ttl), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Redis{client: client, ttl: ttl, locks: core.NewKeyedMutex()}
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func sidKey(sessionID string) string { return keyPrefix + "sid:" + sessionID }

func flowKey(token, flow string) string { return keyPrefix + "tok:" + token + ":" + flow }

// GetOrCreateToken implements core.SessionStore.
func (r *Redis) GetOrCreateToken(ctx context.Context, sessionID string) (string, error) {
	key := sidKey(sessionID)

	token, err := r.client.Get(ctx, key).Result()
	if err == nil {
		r.client.Expire(ctx, key, r.ttl)
		return token, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get session token: %w", err)
	}

	token = newToken()
	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("set session token: %w", err)
	}
	if ok {
		return token, nil
	}

	// Another request bound the session first.
	token, err = r.client.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("get session token: %w", err)
	}
	return token, nil
}

func (r *Redis) load(ctx context.Context, token, flow string) (core.FlowState, error) {
	key := flowKey(token, flow)
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.FlowState{}, nil
	}
	if err != nil {
		return core.FlowState{}, fmt.Errorf("load flow state: %w", err)
	}

	var state core.FlowState
	if err := json.Unmarshal(raw, &state); err != nil {
		return core.FlowState{}, fmt.Errorf("decode flow state: %w", err)
	}
	r.client.Expire(ctx, key, r.ttl)
	return state, nil
}

// Load implements core.SessionStore.
func (r *Redis) Load(ctx context.Context, token, flow string) (core.FlowState, error) {
	return r.load(ctx, token, flow)
}

// Update implements core.SessionStore.
func (r *Redis) Update(ctx context.Context, token, flow string, fn func(*core.FlowState) error) error {
	unlock := r.locks.Lock(token)
	defer unlock()

	state, err := r.load(ctx, token, flow)
	if err != nil {
		return err
	}
	if err := fn(&state); err != nil {
		return err
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode flow state: %w", err)
	}
	if err := r.client.Set(ctx, flowKey(token, flow), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save flow state: %w", err)
	}
	return nil
}

// Clear implements core.SessionStore.
func (r *Redis) Clear(ctx context.Context, token, flow string) error {
	unlock := r.locks.Lock(token)
	defer unlock()

	if flow != "" {
		if err := r.client.Del(ctx, flowKey(token, flow)).Err(); err != nil {
			return fmt.Errorf("clear flow state: %w", err)
		}
		return nil
	}

	var keys []string
	it := r.client.Scan(ctx, 0, flowKey(token, "*"), 100).Iterator()
	for it.Next(ctx) {
		keys = append(keys, it.Val())
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("scan flow state: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear flow state: %w", err)
	}
	return nil
}

// Sweep is a no-op; Redis expires keys on its own.
func (r *Redis) Sweep(context.Context) (int, error) { return 0, nil }
