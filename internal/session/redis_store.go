package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStore shares session carts between several till processes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (domain.CartState, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CartState{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("redis get failed: %w", err)
	}

	var state domain.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.CartState{}, fmt.Errorf("unmarshal cart state failed: %w", err)
	}
	return state, nil
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, state domain.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart state failed: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("pos:session:%s", sessionID)
}
