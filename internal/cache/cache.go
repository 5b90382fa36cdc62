// Package cache provides a content-addressed, capacity-bounded, disk-persisted
// cache of generated answers.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Key derives the cache key for a request. Two requests share a key iff all
// four fields match byte-for-byte; there is no semantic matching. Fields are
// length-prefixed before hashing so no pair of inputs can collide by shifting
// bytes across field boundaries. The mode selector stands in for the full
// prompt template, which is fixed per mode.
func Key(query, mode, context, model string) string {
	h := sha256.New()
	for _, field := range []string{query, mode, context, model} {
		fmt.Fprintf(h, "%d:", len(field))
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// entry is one cached answer. The snapshot file is a JSON array of entries in
// insertion order, so order survives restarts.
type entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ResponseCache maps cache keys to generated answers. The mapping never
// exceeds capacity: when an insert would, the oldest-inserted entries are
// evicted in a batch first. Eviction is by insertion order, not access order;
// a frequently-read entry can be evicted before a stale one. That trade is
// deliberate, it costs no per-access bookkeeping.
//
// The whole mapping is persisted after every mutation via a temp-file-and-
// rename write, so a crash can lose the latest mutation but never leaves a
// torn snapshot. Persistence failures are absorbed: the in-memory mapping
// stays authoritative for the process lifetime.
type ResponseCache struct {
	mu         sync.RWMutex
	path       string
	capacity   int
	evictCount int
	values     map[string]string
	order      []string
	logger     *zap.Logger
}

// New creates a cache persisting to path, holding at most capacity entries
// and evicting evictCount oldest entries per overflow. The snapshot at path
// is loaded if present; a missing or malformed snapshot silently yields an
// empty cache, never a startup failure.
func New(path string, capacity, evictCount int, logger *zap.Logger) *ResponseCache {
	if capacity < 1 {
		capacity = 1
	}
	if evictCount < 1 {
		evictCount = 1
	}
	c := &ResponseCache{
		path:       path,
		capacity:   capacity,
		evictCount: evictCount,
		values:     make(map[string]string),
		logger:     logger,
	}
	c.load()
	return c
}

func (c *ResponseCache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cache snapshot unreadable, starting empty", zap.Error(err))
		}
		return
	}
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("cache snapshot malformed, starting empty", zap.Error(err))
		return
	}
	for _, e := range entries {
		if _, exists := c.values[e.Key]; !exists {
			c.order = append(c.order, e.Key)
		}
		c.values[e.Key] = e.Value
	}
	c.logger.Info("cache snapshot loaded", zap.Int("entries", len(c.values)))
}

// Get returns the cached answer for the request, if present. Never mutates.
func (c *ResponseCache) Get(query, mode, context, model string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[Key(query, mode, context, model)]
	return v, ok
}

// Put stores the answer for the request, evicting the oldest-inserted entries
// first when the mapping is at capacity, then persists the snapshot.
func (c *ResponseCache) Put(query, mode, context, model, value string) {
	key := Key(query, mode, context, model)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.values[key]; !exists {
		if len(c.order) >= c.capacity {
			c.evictLocked()
		}
		c.order = append(c.order, key)
	}
	c.values[key] = value
	c.persistLocked()
}

// evictLocked drops the evictCount oldest-inserted entries. Caller holds c.mu.
func (c *ResponseCache) evictLocked() {
	n := c.evictCount
	if n > len(c.order) {
		n = len(c.order)
	}
	for _, key := range c.order[:n] {
		delete(c.values, key)
	}
	c.order = append(c.order[:0], c.order[n:]...)
	c.logger.Debug("cache entries evicted", zap.Int("count", n))
}

// persistLocked writes the full mapping to disk atomically. Failures are
// logged, never raised. Caller holds c.mu.
func (c *ResponseCache) persistLocked() {
	entries := make([]entry, len(c.order))
	for i, key := range c.order {
		entries[i] = entry{Key: key, Value: c.values[key]}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("failed to marshal cache snapshot", zap.Error(err))
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".tmp")
	if err != nil {
		c.logger.Warn("failed to persist cache snapshot", zap.Error(err))
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		c.logger.Warn("failed to persist cache snapshot", zap.Error(err))
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		c.logger.Warn("failed to persist cache snapshot", zap.Error(err))
		return
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		_ = os.Remove(tmp.Name())
		c.logger.Warn("failed to persist cache snapshot", zap.Error(err))
	}
}

// Len returns the number of cached entries.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
