// Package catalog synthesizes answers to PostgreSQL system-catalog and
// information_schema probes that client drivers and tools (psql, JDBC,
// ORMs) issue on connect, without ever forwarding them to IRIS (spec §4.2
// ClassCatalogProbe, §6).
package catalog

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/mevdschee/tqmemory/pkg/tqmemory"
)

// oidCacheTTL is long rather than unbounded: a synthetic OID is only ever
// recomputed identically, so eviction only matters for memory pressure, not
// correctness.
const oidCacheTTL = 24 * time.Hour

// SyntheticOID deterministically derives a stable, collision-resistant
// PostgreSQL OID for an IRIS (schema, name) pair that has no natural
// PostgreSQL OID of its own (a table, a column, an index). Determinism
// matters because a client may ask for the same relation's OID on every
// connection and expects the same answer across Describe round trips
// within one session and across reconnects.
//
// OIDs below 16384 are reserved for PostgreSQL's own bootstrap catalog
// (spec §6); synthetic OIDs are folded into the user range above it.
func SyntheticOID(schema, name string) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s.%s", schema, name)
	return 16384 + (h.Sum32() % (1<<32 - 16384))
}

// OIDCache memoizes SyntheticOID lookups so repeated Describe calls for the
// same relation are O(1) after the first probe. One cache is created per
// process and shared by every session; it is not scoped to a session. Grounded on
// mevdschee-tqdbproxy/cache.Cache's tqmemory-backed key/value store.
type OIDCache struct {
	store *tqmemory.ShardedCache
}

func NewOIDCache() (*OIDCache, error) {
	store, err := tqmemory.NewSharded(tqmemory.DefaultConfig(), 2)
	if err != nil {
		return nil, err
	}
	return &OIDCache{store: store}, nil
}

func (c *OIDCache) Lookup(schema, name string) uint32 {
	key := schema + "." + name
	if raw, _, _, err := c.store.Get(key); err == nil && len(raw) == 4 {
		return beUint32(raw)
	}
	oid := SyntheticOID(schema, name)
	c.store.Set(key, beBytes(oid), oidCacheTTL)
	return oid
}

func (c *OIDCache) Close() error { return c.store.Close() }

func beBytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
