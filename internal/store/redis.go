package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ringsight/ringsight/internal/domain"
)

// RedisStore keeps sessions in Redis so results survive restarts and
// can be shared across replicas. TTL enforcement is delegated to
// Redis key expiry; the MaxItems cap does not apply here.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const keyPrefix = "ringsight:session:"

func NewRedisStore(cfg domain.StoreConfig) (*RedisStore, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis store requires an address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisStore{client: client, ttl: cfg.TTL()}, nil
}

func (s *RedisStore) Put(ctx context.Context, summary *domain.ValidationSummary, result *domain.ForensicResult) (string, error) {
	token := newToken()
	now := time.Now()

	entry := &domain.SessionEntry{
		Token:             token,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.ttl),
		ValidationSummary: summary,
		Result:            result,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+token, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*domain.SessionEntry, error) {
	data, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}

	var entry domain.SessionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &entry, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
