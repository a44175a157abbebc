package translation

import "sync"

// CacheKey identifies one memoised translation.
type CacheKey struct {
	Text       string
	TargetLang string
}

func (k CacheKey) String() string {
	return k.TargetLang + "\x00" + k.Text
}

// CacheStats counts lookups since the cache was created.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Cache memoises translations for the lifetime of the process. Entries are
// never evicted.
type Cache struct {
	mu      sync.RWMutex
	entries map[CacheKey]string
	hits    int64
	misses  int64
}

func NewCache() *Cache {
	return &Cache{entries: make(map[CacheKey]string)}
}

func (c *Cache) Get(key CacheKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

// Put stores value under key, overwriting any previous value.
func (c *Cache) Put(key CacheKey, value string) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
