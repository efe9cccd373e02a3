package mandukyadb

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/util"

	"github.com/nickyhof/MandukyaDB/core"
	"github.com/nickyhof/MandukyaDB/db"
)

// target opens and reopens one kind of database location.
type target struct {
	name       string
	persistent bool
	open       func(t *testing.T) *DB
}

func testTargets(t *testing.T) []target {
	config := DefaultConfig()
	config.Fanout = 4
	config.CompactEvery = 16

	fs := memfs.New()
	dir := t.TempDir()

	return []target{
		{
			name: "Memory",
			open: func(t *testing.T) *DB {
				handle, err := OpenConfig(MemoryTarget, config)
				if err != nil {
					t.Fatalf("Failed to open memory database: %v", err)
				}
				return handle
			},
		},
		{
			name:       "MemFS",
			persistent: true,
			open: func(t *testing.T) *DB {
				handle, err := OpenFS(fs, "data/test.mdb", config)
				if err != nil {
					t.Fatalf("Failed to open memfs database: %v", err)
				}
				return handle
			},
		},
		{
			name:       "File",
			persistent: true,
			open: func(t *testing.T) *DB {
				handle, err := OpenConfig(filepath.Join(dir, "test.mdb"), config)
				if err != nil {
					t.Fatalf("Failed to open file database: %v", err)
				}
				return handle
			},
		},
	}
}

// runWithAllTargets runs a test function against every storage target
func runWithAllTargets(t *testing.T, testFunc func(t *testing.T, tg target)) {
	for _, tg := range testTargets(t) {
		t.Run(tg.name, func(t *testing.T) {
			testFunc(t, tg)
		})
	}
}

func mustExecute(t *testing.T, handle *DB, query string) db.Result {
	t.Helper()
	result, err := handle.Execute(query)
	if err != nil {
		t.Fatalf("Failed to execute %q: %v", query, err)
	}
	return result
}

func selectData(t *testing.T, handle *DB, query string) [][]string {
	t.Helper()
	return mustExecute(t, handle, query).(db.QueryResult).Data()
}

func TestIntegrationWorkflow(t *testing.T) {
	runWithAllTargets(t, func(t *testing.T, tg target) {
		handle := tg.open(t)
		defer handle.Close()

		result := mustExecute(t, handle, "CREATE TABLE heroes (id INTEGER, name TEXT, strength INTEGER);")
		if result.(db.CommitResult).TablesCreated != 1 {
			t.Error("Expected 1 table created")
		}

		for _, values := range []string{"(1, 'Arjuna', 95)", "(2, 'Krishna', 98)", "(3, 'Bhima', 87)"} {
			result := mustExecute(t, handle, "INSERT INTO heroes VALUES "+values+";")
			if result.(db.CommitResult).RowsAffected() != 1 {
				t.Errorf("Expected 1 row inserted for %s", values)
			}
		}

		data := selectData(t, handle, "SELECT * FROM heroes;")
		expected := [][]string{{"1", "Arjuna", "95"}, {"2", "Krishna", "98"}, {"3", "Bhima", "87"}}
		if !reflect.DeepEqual(data, expected) {
			t.Errorf("Expected %v, got %v", expected, data)
		}

		data = selectData(t, handle, "SELECT name FROM heroes WHERE strength > 90;")
		expected = [][]string{{"Arjuna"}, {"Krishna"}}
		if !reflect.DeepEqual(data, expected) {
			t.Errorf("Expected %v, got %v", expected, data)
		}

		result = mustExecute(t, handle, "DELETE FROM heroes WHERE name = 'Krishna';")
		if result.(db.CommitResult).RecordsDeleted != 1 {
			t.Error("Expected 1 record deleted")
		}

		data = selectData(t, handle, "SELECT name FROM heroes WHERE strength > 90;")
		expected = [][]string{{"Arjuna"}}
		if !reflect.DeepEqual(data, expected) {
			t.Errorf("Expected %v after delete, got %v", expected, data)
		}

		if tables := handle.Tables(); !reflect.DeepEqual(tables, []string{"heroes"}) {
			t.Errorf("Expected [heroes], got %v", tables)
		}
	})
}

func TestIntegrationReopen(t *testing.T) {
	runWithAllTargets(t, func(t *testing.T, tg target) {
		if !tg.persistent {
			t.Skip("memory databases do not survive close")
		}

		handle := tg.open(t)
		mustExecute(t, handle, "CREATE TABLE items (k INTEGER, label TEXT, weight REAL, tag BLOB)")
		mustExecute(t, handle, "CREATE TABLE scratch (k INTEGER)")
		for i := range 40 {
			mustExecute(t, handle, fmt.Sprintf("INSERT INTO items VALUES (%d, 'item''%d', %d.25, X'%04X')", i, i, i, i))
		}
		mustExecute(t, handle, "DELETE FROM items WHERE k >= 30")
		mustExecute(t, handle, "DROP TABLE scratch")
		before := selectData(t, handle, "SELECT * FROM items")

		if err := handle.Close(); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}

		reopened := tg.open(t)
		defer reopened.Close()

		after := selectData(t, reopened, "SELECT * FROM items")
		if !reflect.DeepEqual(before, after) {
			t.Errorf("Rows changed across reopen:\n%v\n%v", before, after)
		}
		if tables := reopened.Tables(); !reflect.DeepEqual(tables, []string{"items"}) {
			t.Errorf("Expected [items], got %v", tables)
		}

		// Row ids keep increasing after reopen
		result := mustExecute(t, reopened, "INSERT INTO items VALUES (99, 'new', 0.5, X'00')")
		if id := result.(db.CommitResult).LastInsertID; id != 41 {
			t.Errorf("Expected row id 41, got %d", id)
		}
	})
}

func TestIntegrationReopenWithoutClose(t *testing.T) {
	fs := memfs.New()
	config := DefaultConfig()

	handle, err := OpenFS(fs, "crash.mdb", config)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	mustExecute(t, handle, "CREATE TABLE t (k INTEGER)")
	mustExecute(t, handle, "INSERT INTO t VALUES (1)")
	mustExecute(t, handle, "INSERT INTO t VALUES (2)")

	// Every statement is durable before Execute returns, so a copy of the
	// file taken now holds all of it.
	copied := copyDatabase(t, fs, "crash.mdb")
	handle.Close()

	reopened, err := OpenFS(copied, "crash.mdb", config)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer reopened.Close()

	data := selectData(t, reopened, "SELECT * FROM t")
	if !reflect.DeepEqual(data, [][]string{{"1"}, {"2"}}) {
		t.Errorf("Unexpected rows after reopen: %v", data)
	}
}

func TestIntegrationCompressedSnapshots(t *testing.T) {
	fs := memfs.New()
	config := DefaultConfig()
	config.Compress = true
	config.CompactEvery = 8

	handle, err := OpenFS(fs, "packed.mdb", config)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	mustExecute(t, handle, "CREATE TABLE t (k INTEGER, v TEXT)")
	for i := range 30 {
		mustExecute(t, handle, fmt.Sprintf("INSERT INTO t VALUES (%d, 'value %d')", i, i))
	}
	if compactions := handle.Stats().Storage.Compactions; compactions == 0 {
		t.Error("Expected automatic compaction")
	}
	handle.Close()

	reopened, err := OpenFS(fs, "packed.mdb", config)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer reopened.Close()

	if data := selectData(t, reopened, "SELECT v FROM t WHERE k = 29"); !reflect.DeepEqual(data, [][]string{{"value 29"}}) {
		t.Errorf("Unexpected rows after reopen: %v", data)
	}
}

func TestIntegrationFailedStatementsKeepState(t *testing.T) {
	runWithAllTargets(t, func(t *testing.T, tg target) {
		handle := tg.open(t)
		defer handle.Close()

		mustExecute(t, handle, "CREATE TABLE t (k INTEGER, v TEXT)")
		mustExecute(t, handle, "INSERT INTO t VALUES (1, 'one')")

		failures := []struct {
			query    string
			expected error
		}{
			{"INSERT INTO t VALUES ('x', 'one')", core.ErrType},
			{"INSERT INTO t VALUES (2)", core.ErrArity},
			{"INSERT INTO missing VALUES (2)", core.ErrSchema},
			{"CREATE TABLE t (k INTEGER)", core.ErrSchema},
			{"DELETE FROM t WHERE v = 1", core.ErrType},
			{"INSERT INTO t VALUES (2, 'two'); INSERT", core.ErrSyntax},
			{"", core.ErrSyntax},
		}

		for _, f := range failures {
			_, err := handle.Execute(f.query)
			if !errors.Is(err, f.expected) {
				t.Errorf("%q: expected %v, got %v", f.query, f.expected, err)
			}
		}

		data := selectData(t, handle, "SELECT * FROM t")
		if !reflect.DeepEqual(data, [][]string{{"1", "one"}}) {
			t.Errorf("Failed statements changed the table: %v", data)
		}

		stats := handle.Stats()
		if stats.Engine.Failures != int64(len(failures)) {
			t.Errorf("Expected %d failures, got %d", len(failures), stats.Engine.Failures)
		}
		if stats.Storage.Rows["t"] != 1 {
			t.Errorf("Expected 1 row in stats, got %d", stats.Storage.Rows["t"])
		}
	})
}

func TestIntegrationCacheTransparency(t *testing.T) {
	workload := []string{
		"CREATE TABLE t (k INTEGER, v TEXT)",
		"INSERT INTO t VALUES (1, 'a')",
		"SELECT * FROM t WHERE k >= 1",
		"INSERT INTO t VALUES (2, 'b')",
		"SELECT * FROM t WHERE k >= 1",
		"DELETE FROM t WHERE v = 'a'",
		"SELECT * FROM t WHERE k >= 1",
		"DELETE FROM t WHERE v = 'zzz'",
		"SELECT * FROM t WHERE k >= 1",
	}

	run := func(config Config) []string {
		handle, err := OpenConfig(MemoryTarget, config)
		if err != nil {
			t.Fatalf("Failed to open database: %v", err)
		}
		defer handle.Close()

		var out []string
		for _, query := range workload {
			switch r := mustExecute(t, handle, query).(type) {
			case db.QueryResult:
				out = append(out, fmt.Sprint(r.Data()))
			case db.CommitResult:
				out = append(out, fmt.Sprint(r.RowsAffected()))
			}
		}
		return out
	}

	cached := DefaultConfig()
	uncached := DefaultConfig()
	uncached.DisableCache = true

	if a, b := run(cached), run(uncached); !reflect.DeepEqual(a, b) {
		t.Errorf("Cache changed results:\n%v\n%v", a, b)
	}
}

func TestIntegrationClose(t *testing.T) {
	runWithAllTargets(t, func(t *testing.T, tg target) {
		handle := tg.open(t)
		mustExecute(t, handle, "CREATE TABLE t (k INTEGER)")

		if err := handle.Close(); err != nil {
			t.Fatalf("Failed to close: %v", err)
		}
		if err := handle.Close(); err != nil {
			t.Errorf("Second close failed: %v", err)
		}

		_, err := handle.Execute("SELECT * FROM t")
		if !errors.Is(err, core.ErrClosed) || !errors.Is(err, core.ErrStorage) {
			t.Errorf("Expected closed storage error, got %v", err)
		}
	})
}

func copyDatabase(t *testing.T, fs billy.Filesystem, name string) billy.Filesystem {
	t.Helper()
	data, err := util.ReadFile(fs, name)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}

	dst := memfs.New()
	if err := util.WriteFile(dst, name, data, 0o644); err != nil {
		t.Fatalf("Failed to write copy: %v", err)
	}
	return dst
}
