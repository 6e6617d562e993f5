package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:session:"

// redisState is the stored representation. Field names match the durable
// storage keys so sessions written by the web storefront and by this SDK
// stay interchangeable.
type redisState struct {
	Token     string `json:"auth-token,omitempty"`
	LoggedOut bool   `json:"user-logged-out,omitempty"`
}

// RedisStore is a Store backed by Redis, for the SDK embedded in a
// server-side process where several replicas share one user session.
type RedisStore struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

// NewRedisStore creates a Redis-backed session store for the given session
// ID. A zero ttl means the session key never expires.
func NewRedisStore(client *redis.Client, sessionID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		sessionID: sessionID,
		ttl:       ttl,
	}
}

func (s *RedisStore) key() string {
	return redisKeyPrefix + s.sessionID
}

func (s *RedisStore) load(ctx context.Context) (redisState, error) {
	data, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return redisState{}, nil
		}
		return redisState{}, fmt.Errorf("redis get session: %w", err)
	}

	var state redisState
	if err := json.Unmarshal(data, &state); err != nil {
		return redisState{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return state, nil
}

func (s *RedisStore) save(ctx context.Context, state redisState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	state, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return state.Token, nil
}

func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	return s.save(ctx, redisState{Token: token, LoggedOut: false})
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.save(ctx, redisState{LoggedOut: true})
}

func (s *RedisStore) LoggedOut(ctx context.Context) (bool, error) {
	state, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return state.LoggedOut, nil
}
