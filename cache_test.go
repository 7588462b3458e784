package main

import (
	"sync"
	"testing"
	"time"
)

func TestReferenceCache(t *testing.T) {
	now := testTime()
	cache := NewReferenceCache(time.Minute)
	cache.now = func() time.Time { return now }

	if _, ok := cache.Get("https://a.example"); ok {
		t.Error("Empty cache should miss")
	}

	cache.Set(&ReferenceDocument{URL: "https://a.example", Content: "A"})
	doc, ok := cache.Get("https://a.example")
	if !ok || doc.Content != "A" {
		t.Fatalf("Get = %+v, %v", doc, ok)
	}

	// Callers get a copy
	doc.Content = "changed"
	if again, _ := cache.Get("https://a.example"); again.Content != "A" {
		t.Error("Cached document was modified through a returned copy")
	}

	now = now.Add(time.Minute)
	if _, ok := cache.Get("https://a.example"); !ok {
		t.Error("Entry exactly at TTL should still be served")
	}

	now = now.Add(time.Second)
	if _, ok := cache.Get("https://a.example"); ok {
		t.Error("Expired entry should miss")
	}
	if cache.Size() != 1 {
		t.Errorf("Size = %d, expired entries stay until purged", cache.Size())
	}
	if removed := cache.PurgeExpired(); removed != 1 || cache.Size() != 0 {
		t.Errorf("PurgeExpired removed %d, size %d", removed, cache.Size())
	}

	cache.Set(&ReferenceDocument{URL: "https://b.example"})
	cache.Clear()
	if cache.Size() != 0 {
		t.Error("Clear should empty the cache")
	}
}

func TestReferenceCacheConcurrentAccess(t *testing.T) {
	cache := NewReferenceCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Set(&ReferenceDocument{URL: "https://shared.example", Content: "x"})
			cache.Get("https://shared.example")
			cache.PurgeExpired()
		}()
	}
	wg.Wait()

	if cache.Size() != 1 {
		t.Errorf("Size = %d, want 1", cache.Size())
	}
}
