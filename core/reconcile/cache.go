package reconcile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"farm-agent/core/checkpoint"

	"go.uber.org/zap"
)

var digestPattern = regexp.MustCompile(`^[0-9A-F]+$`)

// Cache is the persisted checksum cache. Mutations come from a single
// Reconciler; the lock only makes concurrent readers such as the status
// endpoints safe.
type Cache struct {
	mu      sync.RWMutex
	backend checkpoint.Backend
	logger  *zap.Logger
	records map[string]Record
	// version counts mutations; saved is the version last persisted.
	version uint64
	saved   uint64
}

// NewCache creates an empty cache persisted through backend.
func NewCache(backend checkpoint.Backend, logger *zap.Logger) *Cache {
	return &Cache{
		backend: backend,
		logger:  logger,
		records: make(map[string]Record),
	}
}

// Load replaces the in-memory contents with the persisted store. A missing
// store yields an empty cache. Any malformed line fails with ErrCorruptStore
// and leaves the cache untouched.
func (c *Cache) Load(ctx context.Context) error {
	data, err := c.backend.Read(ctx)
	if errors.Is(err, checkpoint.ErrNotFound) {
		c.logger.Info("No checksum cache found, starting empty", zap.String("location", c.backend.Location()))
		c.mu.Lock()
		c.records = make(map[string]Record)
		c.saved = c.version
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load checksum cache: %w", err)
	}

	records := make(map[string]Record)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if _, dup := records[rec.Key()]; dup {
			return fmt.Errorf("line %d: %w: duplicate record %s", i+1, ErrCorruptStore, rec.Key())
		}
		records[rec.Key()] = rec
	}

	c.mu.Lock()
	c.records = records
	c.saved = c.version
	c.mu.Unlock()

	c.logger.Info("Loaded checksum cache",
		zap.String("location", c.backend.Location()),
		zap.Int("records", len(records)),
	)
	return nil
}

// Save writes every record, sorted by key, when the cache changed since the
// last Load or Save. It is a no-op otherwise.
func (c *Cache) Save(ctx context.Context) error {
	c.mu.RLock()
	if c.version == c.saved {
		c.mu.RUnlock()
		return nil
	}
	version := c.version
	records := c.sortedLocked()
	c.mu.RUnlock()

	var b strings.Builder
	for _, rec := range records {
		b.WriteString(FormatRecord(rec))
		b.WriteString("\n")
	}
	if err := c.backend.Write(ctx, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to save checksum cache: %w", err)
	}

	c.mu.Lock()
	c.saved = version
	c.mu.Unlock()

	c.logger.Debug("Saved checksum cache",
		zap.String("location", c.backend.Location()),
		zap.Int("records", len(records)),
	)
	return nil
}

// Dirty reports whether the cache has unsaved mutations.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version != c.saved
}

// IsNew reports whether no record exists for (category, id).
func (c *Cache) IsNew(category Category, id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.records[cacheKey(category, id)]
	return !ok
}

// IsUpdated reports whether no record exists for (category, id) or the cached
// digest differs from digest.
func (c *Cache) IsUpdated(category Category, id, digest string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[cacheKey(category, id)]
	return !ok || rec.Digest != digest
}

// Put inserts or replaces a record and marks the cache dirty.
func (c *Cache) Put(rec Record) error {
	if !rec.Category.Cacheable() {
		return fmt.Errorf("category %q cannot be cached", rec.Category)
	}
	if err := validateID(rec.ID); err != nil {
		return err
	}
	if !digestPattern.MatchString(rec.Digest) {
		return fmt.Errorf("invalid digest %q for %s", rec.Digest, rec.Key())
	}
	rec.LastUpdated = rec.LastUpdated.UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.Key()] = rec
	c.version++
	return nil
}

// Remove deletes the record for (category, id) and marks the cache dirty.
// Removing a missing record changes nothing.
func (c *Cache) Remove(category Category, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(category, id)
	if _, ok := c.records[key]; !ok {
		return
	}
	delete(c.records, key)
	c.version++
}

// IdentifiersOf returns the sorted identifiers cached under category.
func (c *Cache) IdentifiersOf(category Category) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []string
	for _, rec := range c.records {
		if rec.Category == category {
			ids = append(ids, rec.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Get returns the record for (category, id).
func (c *Cache) Get(category Category, id string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[cacheKey(category, id)]
	return rec, ok
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Records returns every record sorted by key.
func (c *Cache) Records() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedLocked()
}

// Counts returns the number of records per category.
func (c *Cache) Counts() map[Category]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[Category]int)
	for _, rec := range c.records {
		counts[rec.Category]++
	}
	return counts
}

// Reset clears the cache and removes the persisted store. It is used when the
// farm state can no longer be trusted.
func (c *Cache) Reset(ctx context.Context) error {
	if err := c.backend.Remove(ctx); err != nil {
		return fmt.Errorf("failed to reset checksum cache: %w", err)
	}

	c.mu.Lock()
	c.records = make(map[string]Record)
	c.saved = c.version
	c.mu.Unlock()

	c.logger.Warn("Checksum cache reset", zap.String("location", c.backend.Location()))
	return nil
}

func (c *Cache) sortedLocked() []Record {
	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}
