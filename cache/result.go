package cache

import (
	"strings"
	"sync"

	"github.com/nickyhof/MandukyaDB/core"
)

// Key identifies a cacheable query shape: the table scanned, the projected
// columns and the rendered predicate.
type Key struct {
	Table      string
	Projection string
	Predicate  string
}

// NewKey builds a Key. An empty projection stands for every column.
func NewKey(table string, columns []string, predicate string) Key {
	projection := "*"
	if len(columns) > 0 {
		projection = strings.Join(columns, ",")
	}
	return Key{Table: table, Projection: projection, Predicate: predicate}
}

// Result is a cached query result.
type Result struct {
	Columns []string
	Rows    []core.Row
}

func (r Result) clone() Result {
	out := Result{
		Columns: append([]string(nil), r.Columns...),
		Rows:    make([]core.Row, len(r.Rows)),
	}
	for i, row := range r.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

type stamped struct {
	generation uint64
	result     Result
}

// ResultCache memoizes query results per Key. Every table carries a
// generation counter; Invalidate bumps it and drops the table's entries, and
// an entry whose stamp does not match its table's generation is never served.
type ResultCache struct {
	mu          sync.Mutex
	lru         Cache[Key, stamped]
	generations map[string]uint64
}

func NewResultCache(config Config) *ResultCache {
	return &ResultCache{
		lru:         NewLRUCache[Key, stamped](config),
		generations: make(map[string]uint64),
	}
}

// Get returns a copy of the cached result for key.
func (c *ResultCache) Get(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		return Result{}, false
	}
	if entry.generation != c.generations[key.Table] {
		c.lru.Remove(key)
		return Result{}, false
	}
	return entry.result.clone(), true
}

// Put stores a copy of result under key, stamped with the table's current
// generation.
func (c *ResultCache) Put(key Key, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Put(key, stamped{
		generation: c.generations[key.Table],
		result:     result.clone(),
	})
}

// Invalidate discards every entry that references table.
func (c *ResultCache) Invalidate(table string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[table]++
	return c.lru.RemoveFunc(func(key Key, _ stamped) bool {
		return key.Table == table
	})
}

// Generation reports the current generation of table.
func (c *ResultCache) Generation(table string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[table]
}

func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
}

func (c *ResultCache) Len() int {
	return c.lru.Len()
}

func (c *ResultCache) Stats() Stats {
	return c.lru.Stats()
}
