// Package cache holds read-through copies of remote collections keyed by
// query, with tag-based invalidation, request de-duplication and
// reversible optimistic patches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// maxStaleRetries bounds how often Fetch re-requests a key that was
// invalidated while its request was in flight.
const maxStaleRetries = 3

// Fetcher loads the data for one key and reports the tags it provides.
type Fetcher func(ctx context.Context) (data any, tags []Tag, err error)

// Snapshot is the observable state of one entry.
type Snapshot struct {
	Data      any
	Loaded    bool
	Loading   bool
	Stale     bool
	Err       error
	UpdatedAt time.Time
}

type entry struct {
	data      any
	loaded    bool
	inflight  int
	stale     bool
	err       error
	tags      []Tag
	updatedAt time.Time

	// gen advances on every invalidation. A response is only stored if the
	// generation it was requested under is still current.
	gen uint64

	// version advances on every write to data, so an undo can tell whether
	// the patch it reverses is still the latest write.
	version uint64
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Data:      e.data,
		Loaded:    e.loaded,
		Loading:   e.inflight > 0,
		Stale:     e.stale,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
	}
}

// Cache is the shared store of fetched collections. Entries live for the
// lifetime of the Cache; there is no TTL or eviction. It is safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	changes chan Key
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an empty cache.
func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		entries: make(map[Key]*entry),
		changes: make(chan Key, 64),
		logger:  logger,
		now:     time.Now,
	}
}

// Changes delivers the key of every entry whose snapshot changed. Sends
// never block; a slow reader misses notifications, not data.
func (c *Cache) Changes() <-chan Key {
	return c.changes
}

func (c *Cache) notify(key Key) {
	select {
	case c.changes <- key:
	default:
	}
}

// entryLocked returns the entry for key, creating it. c.mu must be held.
func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// Peek returns the current snapshot for key without fetching.
func (c *Cache) Peek(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.snapshot()
	}
	return Snapshot{}
}

// Fetch returns the cached data for key when it is loaded and not stale.
// Otherwise it calls fetch, sharing one in-flight call among concurrent
// callers for the same key, and stores the result. If the entry is
// invalidated while the call is in flight, the response is discarded and
// the key is requested again.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	for attempt := 0; ; attempt++ {
		c.mu.Lock()
		e := c.entryLocked(key)
		if e.loaded && !e.stale && e.err == nil {
			data := e.data
			c.mu.Unlock()
			return data, nil
		}
		gen := e.gen
		c.mu.Unlock()

		v, err, shared := c.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
			return c.load(ctx, key, gen, fetch)
		})
		if shared {
			c.logger.Debug("cache fetch shared", "key", key.String())
		}
		var superseded *supersededError
		switch {
		case errors.As(err, &superseded):
			if attempt < maxStaleRetries {
				continue
			}
			if superseded.err != nil {
				return nil, superseded.err
			}
			return v, nil
		case err != nil:
			return nil, err
		}
		return v, nil
	}
}

// supersededError marks a response that arrived after its entry was
// invalidated. err is the fetch's own failure, if it had one.
type supersededError struct {
	err error
}

func (e *supersededError) Error() string {
	if e.err != nil {
		return "cache: response superseded by invalidation: " + e.err.Error()
	}
	return "cache: response superseded by invalidation"
}

func (c *Cache) load(ctx context.Context, key Key, gen uint64, fetch Fetcher) (any, error) {
	c.mu.Lock()
	c.entryLocked(key).inflight++
	c.mu.Unlock()
	c.notify(key)

	data, tags, err := fetch(ctx)

	c.mu.Lock()
	e := c.entryLocked(key)
	e.inflight--
	current := e.gen == gen
	switch {
	case !current:
		c.logger.Debug("cache dropped stale response", "key", key.String(), "gen", gen, "current", e.gen)
	case err != nil:
		e.err = err
		e.stale = false
		if e.tags == nil {
			e.tags = withListTag(key, nil)
		}
	default:
		e.data = data
		e.tags = withListTag(key, tags)
		e.loaded = true
		e.stale = false
		e.err = nil
		e.updatedAt = c.now()
		e.version++
	}
	c.mu.Unlock()
	c.notify(key)

	// A superseded response is retried whether or not it failed.
	if !current {
		return data, &supersededError{err: err}
	}
	if err != nil {
		c.logger.Warn("cache fetch failed", "key", key.String(), "error", err)
		return nil, err
	}
	return data, nil
}

// Set stores data for key as freshly loaded.
func (c *Cache) Set(key Key, data any, tags ...Tag) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.data = data
	e.tags = withListTag(key, tags)
	e.loaded = true
	e.stale = false
	e.err = nil
	e.updatedAt = c.now()
	e.version++
	c.mu.Unlock()
	c.notify(key)
}

// Invalidate marks every entry providing any of tags as stale, so the next
// Fetch re-requests it. It returns the affected keys.
func (c *Cache) Invalidate(tags ...Tag) []Key {
	c.mu.Lock()
	var keys []Key
	for key, e := range c.entries {
		if !providesAny(e.tags, tags) {
			continue
		}
		e.stale = true
		e.gen++
		keys = append(keys, key)
	}
	c.mu.Unlock()

	for _, k := range keys {
		c.notify(k)
	}
	if len(keys) > 0 {
		c.logger.Debug("cache invalidated", "tags", fmt.Sprint(tags), "entries", len(keys))
	}
	return keys
}

// InvalidateKey marks a single entry stale.
func (c *Cache) InvalidateKey(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.stale = true
		e.gen++
	}
	c.mu.Unlock()
	if ok {
		c.notify(key)
	}
}

// Drop removes the entry for key.
func (c *Cache) Drop(key Key) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if ok {
		c.notify(key)
	}
}

// Patch is a reversible local change to one cache entry.
type Patch struct {
	cache   *Cache
	key     Key
	prev    any
	version uint64
	applied bool
}

// Update applies fn to the data held for key and returns a Patch that can
// restore the previous data. If the entry holds no data the returned Patch
// does nothing.
func (c *Cache) Update(key Key, fn func(any) any) *Patch {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || !e.loaded {
		c.mu.Unlock()
		return &Patch{cache: c, key: key}
	}
	prev := e.data
	e.data = fn(prev)
	e.version++
	p := &Patch{cache: c, key: key, prev: prev, version: e.version, applied: true}
	c.mu.Unlock()

	c.notify(key)
	return p
}

// Undo restores the data the patch replaced. If the entry was written again
// after the patch, restoring would drop that write, so the entry is
// invalidated instead. Undo is idempotent.
func (p *Patch) Undo() {
	if p == nil || !p.applied {
		return
	}
	c := p.cache

	c.mu.Lock()
	p.applied = false
	e, ok := c.entries[p.key]
	if !ok {
		c.mu.Unlock()
		return
	}
	if e.version == p.version {
		e.data = p.prev
		e.version++
	} else {
		e.stale = true
		e.gen++
	}
	c.mu.Unlock()

	c.notify(p.key)
}

func withListTag(key Key, tags []Tag) []Tag {
	out := make([]Tag, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, ListTag(key.Resource))
}
