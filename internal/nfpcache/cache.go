// Package nfpcache implements the NFP/IFP cache: a map keyed by (idA,
// idB, relative-rotation-mod-360) scoped to exactly one GA run,
// append-only during that run, and discarded when the run ends.
//
// It is a plain Go map guarded by a mutex, not an eviction-based
// caching library: a value, once written, must never be evicted for
// the lifetime of a run (a placement-time miss is a fatal bug), which
// rules out admission/eviction caches like the ristretto instance the
// shape extractor uses.
package nfpcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/workerpool"
)

// BinShapeID is the reserved shape_id identifying the bin.
const BinShapeID = 0

// Key identifies one cached NFP/IFP: the no-fit polygon of shape IDB
// against shape IDA, at the relative rotation (IDB's rotation minus
// IDA's rotation, mod 360) the two were at when computed. Bin entries
// use IDA = BinShapeID and RelRotation = IDB's rotation mod 360 (the
// bin is never rotated).
type Key struct {
	IDA         int
	IDB         int
	RelRotation float64
}

// NewKey canonicalizes relRotation to [0, 360) before constructing the key.
func NewKey(idA, idB int, relRotation float64) Key {
	return Key{IDA: idA, IDB: idB, RelRotation: geometry.NormalizeDegrees(relRotation)}
}

// Entry is a cached NFP/IFP result. Valid is false when the pair has no
// valid NFP/IFP (e.g. B cannot fit inside bin A at this rotation);
// Polygon is meaningless in that case.
type Entry struct {
	Polygon geometry.Polygon
	Valid   bool
}

// ErrCacheMiss indicates a key was read at placement time without
// having been computed first — a contract violation (the NFP
// precompute pass must run for the whole population before placement
// runs), treated as a fatal internal error.
var ErrCacheMiss = errors.New("nfpcache: cache miss at placement time")

// Cache is the append-only NFP/IFP cache for one GA run.
type Cache struct {
	mu sync.RWMutex
	m  map[Key]Entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{m: make(map[Key]Entry)}
}

// Get returns the cached entry for k, if any.
func (c *Cache) Get(k Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[k]
	return e, ok
}

// MustGet returns the cached entry for k, or ErrCacheMiss wrapped with
// the offending key.
func (c *Cache) MustGet(k Key) (Entry, error) {
	e, ok := c.Get(k)
	if !ok {
		return Entry{}, fmt.Errorf("%w: idA=%d idB=%d relRotation=%g", ErrCacheMiss, k.IDA, k.IDB, k.RelRotation)
	}
	return e, nil
}

// Len returns the number of cached entries (used by tests asserting
// cache-reuse properties).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// missingKeys returns the subset of keys not yet cached, deduplicated.
func (c *Cache) missingKeys(keys []Key) []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[Key]struct{}, len(keys))
	missing := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := c.m[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// merge writes computed results into the cache. Called only by the
// coordinator after a fan-out barrier completes.
func (c *Cache) merge(results map[Key]Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range results {
		c.m[k] = v
	}
}

// ComputeFunc computes the NFP/IFP entry for a single key.
type ComputeFunc func(Key) Entry

// Fill collects every key in keys not already cached, partitions the
// missing set across pool's workers, computes each missing entry via
// compute, and merges the results back into the cache — "at most one
// computation per key". Keys already present are left
// untouched; keys appearing more than once in the input are
// deduplicated before dispatch.
func (c *Cache) Fill(ctx context.Context, pool *workerpool.Pool, keys []Key, compute ComputeFunc) error {
	missing := c.missingKeys(keys)
	if len(missing) == 0 {
		return nil
	}

	var mu sync.Mutex
	results := make(map[Key]Entry, len(missing))

	err := workerpool.RunBatch(ctx, pool, missing, func(_ context.Context, chunk []Key) error {
		local := make(map[Key]Entry, len(chunk))
		for _, k := range chunk {
			local[k] = compute(k)
		}
		mu.Lock()
		for k, v := range local {
			results[k] = v
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	c.merge(results)
	return nil
}
