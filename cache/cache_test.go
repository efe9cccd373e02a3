package cache

import (
	"testing"
	"time"

	"github.com/nickyhof/MandukyaDB/core"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 2})

	c.Put("a", 1)
	c.Put("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Expected hit for a")
	}
	c.Put("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("Expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Expected a=1, got %d, %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Expected c=3, got %d, %v", v, ok)
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions)
	}
	if stats.Hits != 3 || stats.Misses != 1 {
		t.Errorf("Expected 3 hits and 1 miss, got %d and %d", stats.Hits, stats.Misses)
	}
	if stats.Size != 2 || stats.MaxSize != 2 {
		t.Errorf("Unexpected size %d/%d", stats.Size, stats.MaxSize)
	}
}

func TestLRUPutUpdatesExisting(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 2})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 10)
	c.Put("c", 3)

	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Errorf("Expected a=10, got %d, %v", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Expected b to be evicted after a was refreshed")
	}
}

func TestLRUZeroCapacityDisablesCache(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 0})
	c.Put("a", 1)

	if _, ok := c.Get("a"); ok {
		t.Error("Expected miss with zero capacity")
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", c.Len())
	}
}

func TestLRUTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewLRUCache[string, int](Config{
		MaxSize: 10,
		TTL:     time.Minute,
		Now:     func() time.Time { return now },
	})

	c.Put("a", 1)
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Expected hit before TTL")
	}

	now = now.Add(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("Expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Error("Expected expired entry to be removed")
	}
}

func TestLRURemoveFunc(t *testing.T) {
	var evicted []string
	c := NewLRUCache[string, int](Config{
		MaxSize: 10,
		OnEvict: func(key, _ any) { evicted = append(evicted, key.(string)) },
	})
	c.Put("a1", 1)
	c.Put("b1", 2)
	c.Put("a2", 3)

	removed := c.RemoveFunc(func(key string, _ int) bool { return key[0] == 'a' })
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
	if len(evicted) != 2 {
		t.Errorf("Expected OnEvict twice, got %v", evicted)
	}
	if _, ok := c.Get("b1"); !ok {
		t.Error("Expected b1 to survive")
	}
	if got := c.Stats().Invalidations; got != 2 {
		t.Errorf("Expected 2 invalidations, got %d", got)
	}
}

func TestResultCacheInvalidation(t *testing.T) {
	rc := NewResultCache(Config{MaxSize: 10})
	heroes := NewKey("heroes", nil, "")
	named := NewKey("heroes", []string{"name"}, "strength > 90")
	other := NewKey("villains", nil, "")

	result := Result{Columns: []string{"id"}, Rows: []core.Row{{core.Integer(1)}}}
	rc.Put(heroes, result)
	rc.Put(named, result)
	rc.Put(other, result)

	if n := rc.Invalidate("heroes"); n != 2 {
		t.Errorf("Expected 2 entries invalidated, got %d", n)
	}
	if _, ok := rc.Get(heroes); ok {
		t.Error("Expected heroes entry to be gone")
	}
	if _, ok := rc.Get(named); ok {
		t.Error("Expected projected heroes entry to be gone")
	}
	if _, ok := rc.Get(other); !ok {
		t.Error("Expected villains entry to survive")
	}
	if rc.Generation("heroes") != 1 || rc.Generation("villains") != 0 {
		t.Error("Unexpected generations after invalidation")
	}
}

func TestResultCacheReturnsCopies(t *testing.T) {
	rc := NewResultCache(Config{MaxSize: 10})
	key := NewKey("t", []string{"b"}, "")
	rows := []core.Row{{core.Blob([]byte{1, 2})}}
	rc.Put(key, Result{Columns: []string{"b"}, Rows: rows})

	rows[0][0].Bytes()[0] = 9

	got, ok := rc.Get(key)
	if !ok {
		t.Fatal("Expected hit")
	}
	if got.Rows[0][0].Bytes()[0] != 1 {
		t.Error("Cached result shares storage with the caller's rows")
	}

	got.Rows[0] = core.Row{core.Integer(7)}
	again, _ := rc.Get(key)
	if again.Rows[0][0].Type() != core.BlobType {
		t.Error("Mutating a returned result changed the cached entry")
	}
}

func TestNewKey(t *testing.T) {
	if k := NewKey("t", []string{}, ""); k.Projection != "*" {
		t.Errorf("Expected * projection, got %q", k.Projection)
	}
	if NewKey("t", []string{"a", "b"}, "") == NewKey("t", []string{"b", "a"}, "") {
		t.Error("Projection order must be part of the key")
	}
}
