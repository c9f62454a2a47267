package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	domainrepo "github.com/johnquangdev/persona-panel/internal/domain/repositories"
)

// RedisProgressStore keeps snapshots in Redis. The key TTL only reclaims
// space; freshness is decided from the saved timestamp on read.
type RedisProgressStore struct {
	client *redis.Client
	key    string
	maxAge time.Duration
	now    func() time.Time
}

// NewRedisProgressStore creates a store for one scope
func NewRedisProgressStore(client *redis.Client, scope string, maxAge time.Duration) *RedisProgressStore {
	return &RedisProgressStore{
		client: client,
		key:    progressKey(scope),
		maxAge: maxAgeOrDefault(maxAge),
		now:    time.Now,
	}
}

// NewRedisProgressProvider hands out redis stores sharing one client
func NewRedisProgressProvider(client *redis.Client, maxAge time.Duration) domainrepo.ProgressStoreProvider {
	return ProgressStoreFunc(func(scope string) domainrepo.ProgressStore {
		return NewRedisProgressStore(client, scope, maxAge)
	})
}

func (s *RedisProgressStore) Save(ctx context.Context, p *entities.JobProgress) error {
	data, err := encodeProgress(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 2*s.maxAge).Err(); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) Load(ctx context.Context) (*entities.JobProgress, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return decodeProgress(data, s.now(), s.maxAge)
}

func (s *RedisProgressStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
