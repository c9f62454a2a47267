package repository

import (
	"context"
	"time"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	domainrepo "github.com/johnquangdev/persona-panel/internal/domain/repositories"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/cache"
)

// MemoryProgressStore keeps snapshots in the process-local cache
type MemoryProgressStore struct {
	cache  *cache.MemoryStore
	key    string
	maxAge time.Duration
	now    func() time.Time
}

// NewMemoryProgressStore creates a store for one scope
func NewMemoryProgressStore(c *cache.MemoryStore, scope string, maxAge time.Duration) *MemoryProgressStore {
	return &MemoryProgressStore{
		cache:  c,
		key:    progressKey(scope),
		maxAge: maxAgeOrDefault(maxAge),
		now:    time.Now,
	}
}

// NewMemoryProgressProvider hands out memory stores sharing one cache
func NewMemoryProgressProvider(c *cache.MemoryStore, maxAge time.Duration) domainrepo.ProgressStoreProvider {
	return ProgressStoreFunc(func(scope string) domainrepo.ProgressStore {
		return NewMemoryProgressStore(c, scope, maxAge)
	})
}

func (s *MemoryProgressStore) Save(_ context.Context, p *entities.JobProgress) error {
	data, err := encodeProgress(p)
	if err != nil {
		return err
	}
	s.cache.Set(s.key, data, s.maxAge)
	return nil
}

func (s *MemoryProgressStore) Load(_ context.Context) (*entities.JobProgress, error) {
	data, ok := s.cache.Get(s.key)
	if !ok {
		return nil, nil
	}
	return decodeProgress(data, s.now(), s.maxAge)
}

func (s *MemoryProgressStore) Clear(_ context.Context) error {
	s.cache.Delete(s.key)
	return nil
}
