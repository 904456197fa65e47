package lunch

import (
	"context"

	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/repository"
)

// PersistedCache is the database-backed tier.
type PersistedCache struct {
	repo repository.LunchCacheRepository
}

// NewPersistedCache wraps the lunch cache repository.
func NewPersistedCache(repo repository.LunchCacheRepository) *PersistedCache {
	return &PersistedCache{repo: repo}
}

func (p *PersistedCache) Tier() Tier { return TierPersisted }

func (p *PersistedCache) Lookup(ctx context.Context, req Request) (models.LunchData, bool, error) {
	return p.repo.Get(ctx, req.Key)
}

func (p *PersistedCache) Store(ctx context.Context, key string, data models.LunchData) error {
	return p.repo.Put(ctx, key, data)
}
