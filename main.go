package mandukyadb

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"

	"github.com/nickyhof/MandukyaDB/cache"
	"github.com/nickyhof/MandukyaDB/core"
	"github.com/nickyhof/MandukyaDB/db"
	"github.com/nickyhof/MandukyaDB/op"
	"github.com/nickyhof/MandukyaDB/ps"
)

// MemoryTarget opens a database that lives only in memory.
const MemoryTarget = ":memory:"

type Config struct {
	// CacheSize bounds the number of cached SELECT results.
	CacheSize int `yaml:"cache_size"`
	// CacheTTL expires cached results after the given age. Zero keeps them
	// until evicted or invalidated.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// DisableCache makes every SELECT scan the table.
	DisableCache bool `yaml:"disable_cache"`
	// Fanout is the maximum number of entries per B+ tree node.
	Fanout int `yaml:"fanout"`
	// CompactEvery is the number of log records the file may hold before it
	// is rewritten as one snapshot.
	CompactEvery int `yaml:"compact_every"`
	// Compress xz-compresses snapshots in the database file.
	Compress bool         `yaml:"compress"`
	Logger   *slog.Logger `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		CacheSize:    cache.DefaultConfig().MaxSize,
		Fanout:       ps.DefaultFanout,
		CompactEvery: ps.DefaultCompactEvery,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.CacheSize <= 0 {
		c.CacheSize = defaults.CacheSize
	}
	if c.Fanout <= 0 {
		c.Fanout = defaults.Fanout
	}
	if c.CompactEvery <= 0 {
		c.CompactEvery = defaults.CompactEvery
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) storageOptions() ps.Options {
	return ps.Options{
		Fanout:       c.Fanout,
		CompactEvery: c.CompactEvery,
		Compress:     c.Compress,
		Logger:       c.Logger,
	}
}

func (c Config) resultCache() *cache.ResultCache {
	config := cache.DefaultConfig()
	config.MaxSize = c.CacheSize
	config.TTL = c.CacheTTL
	if c.DisableCache {
		config.MaxSize = 0
	}
	return cache.NewResultCache(config)
}

// DB is a handle on one database. Execute calls are serialized.
type DB struct {
	mu      sync.Mutex
	engine  *db.Engine
	storage *ps.Storage
	target  string
	closed  bool
}

// Stats combines storage and engine counters.
type Stats struct {
	Storage ps.Stats `json:"storage"`
	Engine  db.Stats `json:"engine"`
}

// Open opens target with the default configuration. target is either
// MemoryTarget or the path of a database file, created if missing.
func Open(target string) (*DB, error) {
	return OpenConfig(target, DefaultConfig())
}

func OpenConfig(target string, config Config) (*DB, error) {
	config = config.withDefaults()

	if target == MemoryTarget {
		storage := ps.NewMemoryStorage(config.storageOptions())
		return newDB(target, storage, config), nil
	}

	dir, name := filepath.Split(target)
	if dir == "" {
		dir = "."
	}
	return OpenFS(osfs.New(dir), name, config)
}

// OpenFS opens the database file name on fs.
func OpenFS(fs billy.Filesystem, name string, config Config) (*DB, error) {
	config = config.withDefaults()

	storage, err := ps.NewFileStorage(fs, name, config.storageOptions())
	if err != nil {
		return nil, err
	}
	return newDB(name, storage, config), nil
}

func newDB(target string, storage *ps.Storage, config Config) *DB {
	return &DB{
		engine:  db.NewEngine(storage, config.resultCache(), config.Logger),
		storage: storage,
		target:  target,
	}
}

// Execute runs exactly one SQL statement. Every error it returns is one of
// the core error types.
func (d *DB) Execute(query string) (db.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, core.NewStorageError("execute", d.target, core.ErrClosed)
	}
	return d.engine.Execute(query)
}

// Tables lists table names in creation order.
func (d *DB) Tables() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return op.GetDatabase(d.storage).TableNames()
}

// Schemas returns every table definition in creation order.
func (d *DB) Schemas() []core.Table {
	d.mu.Lock()
	defer d.mu.Unlock()

	return op.GetDatabase(d.storage).Schemas()
}

func (d *DB) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Stats{
		Storage: op.GetDatabase(d.storage).Stats(),
		Engine:  d.engine.Stats(),
	}
}

// Close flushes the database file and releases it. Closing twice is a no-op.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.engine.Cache != nil {
		d.engine.Cache.Clear()
	}
	return d.storage.Close()
}
