// Package ps provides the storage layer for MandukyaDB.
//
// Every table is an in-memory B+ tree keyed by an insertion-order row id.
// A Storage either lives purely in memory or is backed by a single database
// file on a go-billy filesystem.
//
// # Memory Storage
//
// For tests or ephemeral databases:
//
//	storage := ps.NewMemoryStorage(ps.Options{})
//
// # File Storage
//
// For persistent storage:
//
//	storage, err := ps.NewFileStorage(osfs.New("/path/to/data"), "heroes.db", ps.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer storage.Close()
//
// # File Format
//
// The file starts with a 28 byte header (magic "MDKYADB\x00", format
// version, flags, database UUID) followed by records framed as
// uvarint(length) | body | BLAKE3-256(body). Each mutation appends and syncs
// one record before the in-memory tree changes. Opening the file replays the
// records; a torn or corrupt tail is truncated with a warning. Once the file
// holds more than CompactEvery records, and again on Close, it is rewritten
// through a temporary file as one snapshot record, optionally xz-compressed.
package ps
