package mappingcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/score"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/rs/zerolog"
)

// Key identifies one cache entry by template layout and source-data shape.
// Values are deliberately excluded: mapping structure depends on which
// fields are present and their types, not on patient data, so entries are
// shared across orders for the same manufacturer form.
type Key struct {
	Manufacturer      string
	TemplateSignature string
	SourceShape       string
}

// NewKey builds a cache key from the template identity and the sorted
// name:type shape of the available source fields.
func NewKey(manufacturer, templateSignature string, sources []source.SourceField) Key {
	shapes := make([]string, 0, len(sources))
	for _, field := range sources {
		shapes = append(shapes, field.ShapeKey())
	}
	sort.Strings(shapes)

	return Key{
		Manufacturer:      manufacturer,
		TemplateSignature: templateSignature,
		SourceShape:       strings.Join(shapes, ","),
	}
}

// Hash returns the stable hashed form of the key.
func (k Key) Hash() string {
	hasher := sha256.New()
	hasher.Write([]byte(k.Manufacturer + "|" + k.TemplateSignature + "|" + k.SourceShape))
	return hex.EncodeToString(hasher.Sum(nil))
}

type cacheEntry struct {
	Result    []score.ScoredMapping
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Config controls the in-memory cache tier.
type Config struct {
	// Enabled determines if caching is active. When false every lookup is
	// a miss and writes are dropped.
	Enabled bool

	// DefaultTTL is how long entries stay valid. Expired entries are
	// treated as misses and evicted lazily on lookup.
	DefaultTTL time.Duration

	// MaxSize caps the number of cached result sets; oldest entries are
	// removed first. Zero means unlimited.
	MaxSize int

	// CleanupInterval is how often the background sweep runs.
	CleanupInterval time.Duration
}

// DefaultConfig returns the production cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultTTL:      30 * time.Minute,
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
}

// Cache memoizes aggregation results per (template, source shape). It has a
// mandatory in-memory tier and an optional Redis tier for sharing across
// processes. Redis failures degrade to misses.
type Cache struct {
	entries  sync.Map // map[string]*cacheEntry
	config   Config
	redis    *RedisTier
	log      zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates the cache and starts its cleanup routine. redisTier may be
// nil when no shared tier is configured.
func New(config Config, redisTier *RedisTier, log zerolog.Logger) *Cache {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 30 * time.Minute
	}

	cache := &Cache{
		config:   config,
		redis:    redisTier,
		log:      log.With().Str("component", "mapping_cache").Logger(),
		stopChan: make(chan struct{}),
	}

	if config.Enabled && config.CleanupInterval > 0 {
		go cache.startCleanupRoutine()
		cache.log.Info().
			Dur("interval", config.CleanupInterval).
			Int("max_size", config.MaxSize).
			Dur("ttl", config.DefaultTTL).
			Msg("Started mapping cache cleanup routine")
	}

	return cache
}

// Get returns the cached aggregation results for a key, or a miss. Expired
// entries are evicted on the way out.
func (c *Cache) Get(ctx context.Context, key Key) ([]score.ScoredMapping, bool) {
	if !c.config.Enabled {
		return nil, false
	}

	hash := key.Hash()
	if value, ok := c.entries.Load(hash); ok {
		entry := value.(*cacheEntry)
		if time.Now().After(entry.ExpiresAt) {
			c.entries.Delete(hash)
		} else {
			c.log.Debug().Str("key", hash).Msg("Mapping cache hit (memory)")
			return entry.Result, true
		}
	}

	if c.redis != nil {
		if result, ok := c.redis.Get(ctx, hash); ok {
			c.storeLocal(hash, result)
			c.log.Debug().Str("key", hash).Msg("Mapping cache hit (redis)")
			return result, true
		}
	}

	return nil, false
}

// Put stores aggregation results under the key in all configured tiers.
func (c *Cache) Put(ctx context.Context, key Key, result []score.ScoredMapping) {
	if !c.config.Enabled {
		return
	}

	hash := key.Hash()
	c.storeLocal(hash, result)
	if c.redis != nil {
		c.redis.Put(ctx, hash, result, c.config.DefaultTTL)
	}

	c.log.Debug().
		Str("key", hash).
		Int("fields", len(result)).
		Msg("Stored mapping result set in cache")
}

// Bust removes the entry for a key, e.g. after a template's field list
// changes.
func (c *Cache) Bust(ctx context.Context, key Key) {
	hash := key.Hash()
	c.entries.Delete(hash)
	if c.redis != nil {
		c.redis.Delete(ctx, hash)
	}
}

func (c *Cache) storeLocal(hash string, result []score.ScoredMapping) {
	now := time.Now()
	c.entries.Store(hash, &cacheEntry{
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(c.config.DefaultTTL),
	})
}

func (c *Cache) startCleanupRoutine() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Cache) cleanup() {
	var (
		total   int
		expired int
		removed int
		now     = time.Now()
		kept    = make([]*cacheEntry, 0)
	)

	c.entries.Range(func(key, value interface{}) bool {
		total++
		entry := value.(*cacheEntry)
		if now.After(entry.ExpiresAt) {
			c.entries.Delete(key)
			expired++
		} else {
			kept = append(kept, entry)
		}
		return true
	})

	if c.config.MaxSize > 0 && len(kept) > c.config.MaxSize {
		sort.Slice(kept, func(i, j int) bool {
			return kept[i].CreatedAt.Before(kept[j].CreatedAt)
		})

		toRemove := len(kept) - c.config.MaxSize
		cutoff := kept[toRemove-1].CreatedAt
		c.entries.Range(func(key, value interface{}) bool {
			if removed >= toRemove {
				return false
			}
			if !value.(*cacheEntry).CreatedAt.After(cutoff) {
				c.entries.Delete(key)
				removed++
			}
			return true
		})
	}

	c.log.Debug().
		Int("total_entries", total).
		Int("expired_removed", expired).
		Int("size_limit_removed", removed).
		Msg("Completed mapping cache cleanup")
}

// Stop shuts down the cleanup routine and clears all entries.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.entries.Range(func(key, _ interface{}) bool {
		c.entries.Delete(key)
		return true
	})
}
