package main

import (
	"sync"
	"time"
)

type referenceEntry struct {
	doc      ReferenceDocument
	storedAt time.Time
}

// ReferenceCache provides thread-safe caching of fetched reference pages
type ReferenceCache struct {
	mu      sync.RWMutex
	entries map[string]referenceEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewReferenceCache creates a new cache with the specified TTL
func NewReferenceCache(ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{
		entries: make(map[string]referenceEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a page from cache if not expired.
// Returns a copy, so callers may modify it freely.
func (c *ReferenceCache) Get(url string) (*ReferenceDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[url]
	if !ok || c.now().Sub(entry.storedAt) > c.ttl {
		return nil, false
	}

	doc := entry.doc
	return &doc, true
}

// Set stores a page under its URL
func (c *ReferenceCache) Set(doc *ReferenceDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[doc.URL] = referenceEntry{doc: *doc, storedAt: c.now()}
}

// PurgeExpired drops expired pages and returns how many were removed
func (c *ReferenceCache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for url, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, url)
			removed++
		}
	}
	return removed
}

// Clear removes everything from the cache
func (c *ReferenceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]referenceEntry)
}

// Size returns the number of cached pages, expired ones included
func (c *ReferenceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
