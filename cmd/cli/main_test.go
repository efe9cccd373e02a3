package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	mandukyadb "github.com/nickyhof/MandukyaDB"
	"github.com/nickyhof/MandukyaDB/db"
)

func setupTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	handle, err := mandukyadb.Open(mandukyadb.MemoryTarget)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	var buf bytes.Buffer
	return &CLI{
		db:      handle,
		out:     &buf,
		history: make([]string, 0),
	}, &buf
}

func writeSQLFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "script.sql")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write SQL file: %v", err)
	}
	return path
}

func TestCLIRunAccumulatesLines(t *testing.T) {
	cli, buf := setupTestCLI(t)

	input := strings.Join([]string{
		"CREATE TABLE heroes (",
		"  id INTEGER, name TEXT, strength INTEGER",
		");",
		"INSERT INTO heroes VALUES (1, 'Arjuna', 95);",
		"SELECT name",
		"FROM heroes;",
		".quit",
		"SELECT * FROM never;",
	}, "\n")
	cli.run(strings.NewReader(input))

	output := buf.String()
	for _, want := range []string{"1 table(s) created", "1 record(s) written", "| Arjuna |", "1 rows (", "Goodbye!"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "never") {
		t.Error("Expected input after .quit to be ignored")
	}
	if len(cli.history) != 3 {
		t.Errorf("Expected 3 history entries, got %v", cli.history)
	}
}

func TestCLIRunReportsErrors(t *testing.T) {
	cli, buf := setupTestCLI(t)

	cli.run(strings.NewReader("SELECT * FROM missing;\nCREATE TABLE t (k INTEGER);\n"))

	output := buf.String()
	if !strings.Contains(output, "✗ Error: ") || !strings.Contains(output, "missing") {
		t.Errorf("Expected error for missing table, got:\n%s", output)
	}
	if tables := cli.db.Tables(); !reflect.DeepEqual(tables, []string{"t"}) {
		t.Errorf("Expected CLI to continue after an error, tables %v", tables)
	}
}

func TestCLIRunSplitsStatementsOnALine(t *testing.T) {
	cli, buf := setupTestCLI(t)

	input := strings.Join([]string{
		"CREATE TABLE notes (id INTEGER, body TEXT);",
		"INSERT INTO notes VALUES (1, 'a'); INSERT INTO notes VALUES (2, 'b;c');",
		"INSERT INTO notes VALUES (3, 'first;",
		"second'); SELECT id",
		"FROM notes WHERE id = 3;",
	}, "\n")
	cli.run(strings.NewReader(input))

	if output := buf.String(); strings.Contains(output, "Error") {
		t.Fatalf("Expected every statement to succeed, got:\n%s", output)
	}

	result, err := cli.db.Execute("SELECT body FROM notes;")
	if err != nil {
		t.Fatalf("Failed to query notes: %v", err)
	}
	qr := result.(db.QueryResult)
	expected := [][]string{{"a"}, {"b;c"}, {"first;\nsecond"}}
	if got := qr.Data(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected bodies %q, got %q", expected, got)
	}
	if len(cli.history) != 5 {
		t.Errorf("Expected 5 history entries, got %q", cli.history)
	}
	for _, entry := range cli.history {
		if strings.Contains(entry, "\n") {
			t.Errorf("Expected single-line history entry, got %q", entry)
		}
	}
}

func TestCLIAddToHistory(t *testing.T) {
	cli, _ := setupTestCLI(t)

	cli.addToHistory("SELECT * FROM test;")
	cli.addToHistory("INSERT INTO test VALUES (1);")

	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(cli.history))
	}

	// Adding duplicate of last command should not increase count
	cli.addToHistory("INSERT INTO test VALUES (1);")
	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries after duplicate, got %d", len(cli.history))
	}
}

func TestCLIHistoryLimit(t *testing.T) {
	cli, _ := setupTestCLI(t)

	for i := 0; i < 1100; i++ {
		cli.addToHistory("SELECT " + string(rune(i)))
	}

	if len(cli.history) > 1000 {
		t.Errorf("Expected history to be limited to 1000, got %d", len(cli.history))
	}
}

func TestCLIGetPrompt(t *testing.T) {
	cli, _ := setupTestCLI(t)

	if prompt := cli.getPrompt(false); prompt != "mandukya> " {
		t.Errorf("Unexpected prompt %q", prompt)
	}
	if prompt := cli.getPrompt(true); !strings.Contains(prompt, "...>") {
		t.Error("Expected multi-line prompt to contain '...>'")
	}

	cli.color = true
	if prompt := cli.getPrompt(false); !strings.HasPrefix(prompt, PromptColor) {
		t.Errorf("Expected colored prompt, got %q", prompt)
	}
}

func TestCLIHandleCommand(t *testing.T) {
	cli, _ := setupTestCLI(t)

	tests := []struct {
		command  string
		expected bool // false means the CLI exits
	}{
		{".help", true},
		{".version", true},
		{".history", true},
		{".tables", true},
		{".schema", true},
		{".stats", true},
		{".import", true},
		{".unknown", true},
		{".quit", false},
		{".EXIT", false},
	}

	for _, test := range tests {
		result := cli.handleCommand(test.command)
		if result != test.expected {
			t.Errorf("handleCommand(%s) = %v, expected %v", test.command, result, test.expected)
		}
	}
}

func TestCLITablesAndSchema(t *testing.T) {
	cli, buf := setupTestCLI(t)

	cli.handleCommand(".tables")
	if !strings.Contains(buf.String(), "No tables") {
		t.Errorf("Expected empty table list, got %q", buf.String())
	}

	cli.execute("CREATE TABLE heroes (id INTEGER, name TEXT);")
	cli.execute("CREATE TABLE relics (sigil BLOB, weight REAL);")
	buf.Reset()

	cli.handleCommand(".tables")
	if buf.String() != "heroes\nrelics\n" {
		t.Errorf("Unexpected table list %q", buf.String())
	}

	buf.Reset()
	cli.handleCommand(".schema relics")
	if buf.String() != "CREATE TABLE relics (sigil BLOB, weight REAL);\n" {
		t.Errorf("Unexpected schema %q", buf.String())
	}

	buf.Reset()
	cli.handleCommand(".stats")
	if !strings.Contains(buf.String(), `"statements": 2`) {
		t.Errorf("Expected statement count in stats, got:\n%s", buf.String())
	}
}

func TestVersionVariable(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single statement", "SELECT * FROM test", []string{"SELECT * FROM test"}},
		{"two statements", "SELECT * FROM a; SELECT * FROM b", []string{"SELECT * FROM a", "SELECT * FROM b"}},
		{"with semicolons", "INSERT INTO t VALUES (1); INSERT INTO t VALUES (2);", []string{"INSERT INTO t VALUES (1)", "INSERT INTO t VALUES (2)"}},
		{"with comments", "-- comment\nSELECT * FROM test", []string{"SELECT * FROM test"}},
		{"multiline", "CREATE TABLE t (\n  id INTEGER,\n  name TEXT\n);", []string{"CREATE TABLE t (\n  id INTEGER,\n  name TEXT\n)"}},
		{"empty", "", nil},
		{"only semicolons", ";;;", nil},
		{"string with semicolon", "INSERT INTO t VALUES ('a;b')", []string{"INSERT INTO t VALUES ('a;b')"}},
		{"escaped quote", "INSERT INTO t VALUES ('it''s;'); SELECT * FROM t", []string{"INSERT INTO t VALUES ('it''s;')", "SELECT * FROM t"}},
		{"dashes in string", "INSERT INTO t VALUES ('a--b')", []string{"INSERT INTO t VALUES ('a--b')"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := splitStatements(test.input)
			if !reflect.DeepEqual(result, test.expected) {
				t.Errorf("splitStatements(%q) = %q, expected %q", test.input, result, test.expected)
			}
		})
	}
}

func TestScanStatementsRemainder(t *testing.T) {
	tests := []struct {
		input      string
		statements []string
		rest       string
	}{
		{"SELECT * FROM a", nil, "SELECT * FROM a"},
		{"SELECT * FROM a; SELECT", []string{"SELECT * FROM a"}, " SELECT"},
		{"INSERT INTO t VALUES ('x;\n", nil, "INSERT INTO t VALUES ('x;\n"},
		{"SELECT * FROM a -- trailing", nil, "SELECT * FROM a "},
		{"SELECT * FROM a;", []string{"SELECT * FROM a"}, ""},
	}

	for _, test := range tests {
		statements, rest := scanStatements(test.input)
		if !reflect.DeepEqual(statements, test.statements) || rest != test.rest {
			t.Errorf("scanStatements(%q) = %q, %q, expected %q, %q", test.input, statements, rest, test.statements, test.rest)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is..."},
		{"exact", 5, "exact"},
		{"ab", 10, "ab"},
	}

	for _, test := range tests {
		result := truncate(test.input, test.max)
		if result != test.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q", test.input, test.max, result, test.expected)
		}
	}
}

func TestImportFile(t *testing.T) {
	cli, buf := setupTestCLI(t)

	path := writeSQLFile(t, `
-- heroes of the epic
CREATE TABLE heroes (id INTEGER, name TEXT, strength INTEGER);
INSERT INTO heroes VALUES (1, 'Arjuna', 95);
INSERT INTO heroes VALUES (2, 'Krishna', 98);
INSERT INTO heroes VALUES (3, 'Bhima', 87);
INSERT INTO heroes VALUES ('four', 'Karna', 90);
DELETE FROM heroes WHERE strength < 90;
`)

	failed, err := cli.importFile(path)
	if err != nil {
		t.Fatalf("importFile failed: %v", err)
	}
	if failed != 1 {
		t.Errorf("Expected 1 failed statement, got %d", failed)
	}
	if !strings.Contains(buf.String(), "5 succeeded, 1 failed") {
		t.Errorf("Unexpected import summary:\n%s", buf.String())
	}

	result, err := cli.db.Execute("SELECT name FROM heroes;")
	if err != nil {
		t.Fatalf("SELECT failed: %v", err)
	}
	qr := result.(db.QueryResult)
	expected := [][]string{{"Arjuna"}, {"Krishna"}}
	if !reflect.DeepEqual(qr.Data(), expected) {
		t.Errorf("Expected %v, got %v", expected, qr.Data())
	}
}

func TestImportFileNotFound(t *testing.T) {
	cli, _ := setupTestCLI(t)

	if _, err := cli.importFile("nonexistent.sql"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mandukya.yaml")
	content := "cache_size: 50\ncache_ttl: 5m\nfanout: 8\ncompress: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := loadConfig(Flags{Config: path})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.CacheSize != 50 || config.Fanout != 8 || config.CacheTTL.Minutes() != 5 {
		t.Errorf("Unexpected config %+v", config)
	}
	if config.CompactEvery != mandukyadb.DefaultConfig().CompactEvery {
		t.Errorf("Expected default CompactEvery, got %d", config.CompactEvery)
	}

	config, err = loadConfig(Flags{Config: path, CacheSize: 7, Compress: true})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.CacheSize != 7 || !config.Compress {
		t.Errorf("Expected flags to override file, got %+v", config)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("cache_size: [1, 2"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := loadConfig(Flags{Config: path}); err == nil {
		t.Error("Expected error for malformed config")
	}
}
