package leaderboard

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/cache"
)

const (
	// Rankings tolerate short staleness; the clan module also invalidates
	// the leaderboard keys on XP writes.
	cacheTTL = 60 * time.Second

	DefaultTopLimit = 10
	maxTopLimit     = 100
)

// Service serves rankings cache-first, with singleflight guarding the
// database on concurrent misses.
type Service struct {
	repo    *Repository
	sfGroup singleflight.Group

	mu    sync.RWMutex
	cache *cache.Cache
}

// NewService creates the leaderboard service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// SetCache wires the shared Redis cache. Without it every read goes to
// the database.
func (s *Service) SetCache(c *cache.Cache) {
	s.mu.Lock()
	s.cache = c
	s.mu.Unlock()
}

func (s *Service) getCache() *cache.Cache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

// TopClans returns the national ranking, at most limit rows.
func (s *Service) TopClans(ctx context.Context, limit int) ([]TopClanEntry, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	cacheKey := fmt.Sprintf("leaderboard:top:%d", limit)
	if c := s.getCache(); c != nil {
		var cached []TopClanEntry
		found, err := c.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("[leaderboard] cache error for %s: %v", cacheKey, err)
		}
		if found {
			return cached, nil
		}
	}

	val, err, _ := s.sfGroup.Do(cacheKey, func() (any, error) {
		return s.repo.TopClans(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	entries := val.([]TopClanEntry)

	if c := s.getCache(); c != nil {
		if err := c.SetWithTTL(ctx, cacheKey, entries, cacheTTL); err != nil {
			log.Printf("[leaderboard] failed to cache %s: %v", cacheKey, err)
		}
	}
	return entries, nil
}

// Regional returns the per-region ranking.
func (s *Service) Regional(ctx context.Context) ([]RegionalEntry, error) {
	const cacheKey = "leaderboard:regional"
	if c := s.getCache(); c != nil {
		var cached []RegionalEntry
		found, err := c.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("[leaderboard] cache error for %s: %v", cacheKey, err)
		}
		if found {
			return cached, nil
		}
	}

	val, err, _ := s.sfGroup.Do(cacheKey, func() (any, error) {
		return s.repo.Regional(ctx)
	})
	if err != nil {
		return nil, err
	}
	entries := val.([]RegionalEntry)

	if c := s.getCache(); c != nil {
		if err := c.SetWithTTL(ctx, cacheKey, entries, cacheTTL); err != nil {
			log.Printf("[leaderboard] failed to cache %s: %v", cacheKey, err)
		}
	}
	return entries, nil
}
