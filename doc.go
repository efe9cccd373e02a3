// Package mandukyadb provides an embeddable single-file SQL database.
//
// Tables live in B+ trees keyed by row id, so a plain SELECT returns rows in
// insertion order. A file-backed database appends every change to its file
// before the statement returns and rebuilds all tables when reopened.
// Repeated SELECTs are answered from an LRU result cache that each write
// invalidates for its table.
//
// # Quick Start
//
// Create an in-memory database:
//
//	handle, _ := mandukyadb.Open(mandukyadb.MemoryTarget)
//	defer handle.Close()
//
//	handle.Execute("CREATE TABLE heroes (id INTEGER, name TEXT, strength INTEGER);")
//	handle.Execute("INSERT INTO heroes VALUES (1, 'Arjuna', 95);")
//
//	result, _ := handle.Execute("SELECT name FROM heroes WHERE strength > 90;")
//	result.Display(os.Stdout)
//
// Pass a file path instead of MemoryTarget to persist the database.
//
// # Supported SQL
//
// MandukyaDB supports a small subset of SQL:
//   - CREATE TABLE with INTEGER, TEXT, REAL and BLOB columns
//   - DROP TABLE, DESCRIBE, SHOW TABLES
//   - INSERT INTO ... VALUES
//   - SELECT with a column list or *, and an optional WHERE
//   - DELETE with an optional WHERE
//   - WHERE with one comparison: =, !=, <, >, <=, >=
//
// Literals are integers, reals, 'text' with a doubled '' for a quote, and X'hex' blobs.
package mandukyadb
