package db

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore serves repeated reads of the same case from memory. Writes go
// through to the wrapped store first.
type CachedStore struct {
	CaseStore
	cache *expirable.LRU[string, Case]
}

func NewCachedStore(inner CaseStore, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		CaseStore: inner,
		cache:     expirable.NewLRU[string, Case](size, nil, ttl),
	}
}

func (s *CachedStore) PutCase(ctx context.Context, c Case) error {
	if err := s.CaseStore.PutCase(ctx, c); err != nil {
		s.cache.Remove(c.ID)
		return err
	}
	s.cache.Add(c.ID, c)
	return nil
}

func (s *CachedStore) ResolveCase(ctx context.Context, id, resolution string) error {
	defer s.cache.Remove(id)
	return s.CaseStore.ResolveCase(ctx, id, resolution)
}

func (s *CachedStore) GetCase(ctx context.Context, id string) (Case, error) {
	if c, ok := s.cache.Get(id); ok {
		return c, nil
	}
	c, err := s.CaseStore.GetCase(ctx, id)
	if err != nil {
		return Case{}, err
	}
	s.cache.Add(id, c)
	return c, nil
}
