package lunch

import (
	"context"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"

	"github.com/noah-isme/dismissal-api/internal/models"
)

// MemoryCache is the in-process tier. Entries never expire; the size bound
// may evict old dates.
type MemoryCache struct {
	cache *freecache.Cache
}

// NewMemoryCache allocates a cache of sizeMB megabytes.
func NewMemoryCache(sizeMB int) *MemoryCache {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &MemoryCache{cache: freecache.NewCache(sizeMB * 1024 * 1024)}
}

func (m *MemoryCache) Tier() Tier { return TierMemory }

func (m *MemoryCache) Lookup(_ context.Context, req Request) (models.LunchData, bool, error) {
	raw, err := m.cache.Get([]byte(req.Key))
	if err == freecache.ErrNotFound {
		return models.LunchData{}, false, nil
	}
	if err != nil {
		return models.LunchData{}, false, err
	}

	var data models.LunchData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.LunchData{}, false, err
	}
	return data, true, nil
}

func (m *MemoryCache) Store(_ context.Context, key string, data models.LunchData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return m.cache.Set([]byte(key), payload, 0)
}
