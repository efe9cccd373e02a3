// Package db provides the SQL execution engine for MandukyaDB.
//
// The Engine type is the main entry point for executing SQL statements.
// It parses SQL, runs the statement against a ps.Storage and returns a
// typed result. Repeated SELECTs are answered from a cache.ResultCache
// until a write to the same table invalidates them.
//
// # Engine Usage
//
//	storage := ps.NewMemoryStorage(ps.Options{})
//	engine := db.NewEngine(storage, cache.NewResultCache(cache.DefaultConfig()), nil)
//	result, err := engine.Execute("SELECT name FROM heroes WHERE id = 1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display(os.Stdout)
//
// # Result Types
//
// There are two result types:
//   - QueryResult: Returned by SELECT, DESCRIBE and SHOW TABLES
//   - CommitResult: Returned by INSERT, DELETE, CREATE TABLE and DROP TABLE
//
// QueryResult contains columns, typed rows, and execution metrics.
// CommitResult contains counts of affected objects and the last row id.
package db
