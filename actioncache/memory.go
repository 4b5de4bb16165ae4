package actioncache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// MemoryCache is an in-process action cache bounded by entry count rather
// than by total byte size: golang-lru's fixed-size cache evicts the least
// recently used rule key once the cap is reached. It exists for tests and
// single-process demo runs where the overhead of a disk-backed cache
// isn't worth it.
type MemoryCache struct {
	lock *sync.RWMutex
	l    *lru.Cache
}

// NewMemoryCache constructs an in-memory cache holding at most maxEntries
// rule keys.
func NewMemoryCache(maxEntries int) (*MemoryCache, error) {
	l, err := lru.New(maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lock: &sync.RWMutex{}, l: l}, nil
}

func (c *MemoryCache) Fetch(ctx context.Context, ruleKey string) (ArtifactSet, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	v, ok := c.l.Get(ruleKey)
	if !ok {
		return ArtifactSet{}, false
	}
	set, ok := v.(ArtifactSet)
	return set, ok
}

func (c *MemoryCache) Store(ctx context.Context, ruleKey string, set ArtifactSet) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.l.Add(ruleKey, set)
	return nil
}
