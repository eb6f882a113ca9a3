package translator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mevdschee/tqmemory/pkg/tqmemory"
)

// translationTTL is generous: a (sql, paramOids) pair translates to the same
// result for as long as the gateway binary runs, so the only reason to evict
// is memory pressure, which ShardedCache handles via its own LRU/size policy.
const translationTTL = 24 * time.Hour

// Cache memoizes Translate results keyed by (sql text, parameter OID list),
// avoiding re-running the tokenizer and rewrite stages for statements a
// connection pool of clients sends repeatedly (spec §4.2 perf note; grounded
// on mevdschee-tqdbproxy/cache.Cache's use of tqmemory.ShardedCache).
type Cache struct {
	store *tqmemory.ShardedCache
}

// NewCache constructs a translation cache with the given memory budget. A
// zero maxMemory selects the library default.
func NewCache(maxMemory int64, workers int) (*Cache, error) {
	cfg := tqmemory.DefaultConfig()
	if maxMemory > 0 {
		cfg.MaxMemory = maxMemory
	}
	if workers <= 0 {
		workers = 4
	}
	store, err := tqmemory.NewSharded(cfg, workers)
	if err != nil {
		return nil, err
	}
	return &Cache{store: store}, nil
}

// Key derives a cache key from the raw SQL text and the client-declared
// parameter type OIDs (two statements with identical text but different
// bound types can translate differently once vector-literal inlining is in
// play, so the OIDs are part of the key).
func Key(sql string, paramOIDs []uint32) string {
	var b strings.Builder
	b.WriteString(sql)
	b.WriteByte(0)
	for i, oid := range paramOIDs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(oid), 10))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns a previously cached TranslationResult, if present.
func (c *Cache) Get(key string) (*TranslationResult, bool) {
	raw, _, flags, err := c.store.Get(key)
	if err != nil || raw == nil || flags == 1 {
		return nil, false
	}
	var result TranslationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// Put stores a TranslationResult under key.
func (c *Cache) Put(key string, result *TranslationResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.store.Set(key, raw, translationTTL)
}

// Close releases the cache's worker goroutines and backing memory.
func (c *Cache) Close() error {
	return c.store.Close()
}
