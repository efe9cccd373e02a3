package ps

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/go-git/go-billy/v6"

	"github.com/nickyhof/MandukyaDB/core"
)

const DefaultCompactEvery = 1024

type Options struct {
	// Fanout is the maximum number of entries per B+ tree node.
	Fanout int
	// CompactEvery is the number of records the file may hold before it is
	// rewritten as a single snapshot.
	CompactEvery int
	// Compress xz-compresses snapshot records.
	Compress bool
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Fanout == 0 {
		o.Fanout = DefaultFanout
	}
	if o.Fanout < MinFanout {
		o.Fanout = MinFanout
	}
	if o.CompactEvery <= 0 {
		o.CompactEvery = DefaultCompactEvery
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Storage is the registry of tables for one database handle. In memory mode
// nothing touches a file; in file mode every mutation is appended to the
// database file and synced before the in-memory tables change.
type Storage struct {
	mu          sync.RWMutex
	tables      map[string]*Table
	order       []string
	options     Options
	log         *fileLog
	closed      bool
	compactions int
}

type Stats struct {
	DatabaseID  string         `json:"database_id,omitempty"`
	Path        string         `json:"path,omitempty"`
	Tables      int            `json:"tables"`
	Rows        map[string]int `json:"rows"`
	LogRecords  int            `json:"log_records"`
	FileSize    int64          `json:"file_size"`
	Compactions int            `json:"compactions"`
}

func NewMemoryStorage(options Options) *Storage {
	return &Storage{
		tables:  make(map[string]*Table),
		options: options.withDefaults(),
	}
}

// NewFileStorage opens the database file name on fs, creating it if needed,
// and rebuilds every table from its records.
func NewFileStorage(fs billy.Filesystem, name string, options Options) (*Storage, error) {
	storage := NewMemoryStorage(options)
	logger := storage.options.Logger

	log, records, err := openLog(fs, name, storage.options.Compress, logger)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if err := storage.apply(rec); err != nil {
			log.close()
			return nil, core.NewStorageError("replay", name, fmt.Errorf("%w: %w", core.ErrCorrupt, err))
		}
	}
	storage.log = log

	logger.Info("Opened database file",
		"path", name,
		"database_id", log.id.String(),
		"tables", len(storage.order),
		"records", len(records))

	return storage, nil
}

// apply replays one record against the in-memory tables.
func (s *Storage) apply(rec record) error {
	switch rec.kind {
	case snapshotRecord:
		s.tables = make(map[string]*Table, len(rec.tables))
		s.order = s.order[:0]
		for _, td := range rec.tables {
			t := newTable(td.schema, s.options.Fanout)
			for i, id := range td.ids {
				t.put(id, td.rows[i])
			}
			t.nextID = max(t.nextID, td.nextID)
			s.tables[td.schema.Name] = t
			s.order = append(s.order, td.schema.Name)
		}
	case createRecord:
		if _, ok := s.tables[rec.schema.Name]; ok {
			return fmt.Errorf("table %s created twice", rec.schema.Name)
		}
		s.tables[rec.schema.Name] = newTable(rec.schema, s.options.Fanout)
		s.order = append(s.order, rec.schema.Name)
	case insertRecord:
		t, ok := s.tables[rec.table]
		if !ok {
			return fmt.Errorf("insert into unknown table %s", rec.table)
		}
		if len(rec.row) != len(t.schema.Columns) {
			return fmt.Errorf("insert into %s has %d values", rec.table, len(rec.row))
		}
		t.put(rec.id, rec.row)
	case deleteRecord:
		t, ok := s.tables[rec.table]
		if !ok {
			return fmt.Errorf("delete from unknown table %s", rec.table)
		}
		for _, id := range rec.ids {
			t.tree.Delete(id)
		}
	case dropRecord:
		if _, ok := s.tables[rec.table]; !ok {
			return fmt.Errorf("drop of unknown table %s", rec.table)
		}
		s.removeTable(rec.table)
	}
	return nil
}

func (s *Storage) checkOpen() error {
	if s.closed {
		return core.NewStorageError("execute", s.path(), core.ErrClosed)
	}
	return nil
}

func (s *Storage) path() string {
	if s.log == nil {
		return ""
	}
	return s.log.path
}

func (s *Storage) table(name string) (*Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, core.NewSchemaError(name, "table does not exist")
	}
	return t, nil
}

func (s *Storage) removeTable(name string) {
	delete(s.tables, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
}

// write appends body to the database file when there is one.
func (s *Storage) write(body []byte) error {
	if s.log == nil {
		return nil
	}
	return s.log.appendRecord(body)
}

// afterWrite compacts the file once it holds more than CompactEvery records.
// The statement has already been made durable, so a failed compaction is
// only logged.
func (s *Storage) afterWrite() {
	if s.log == nil || s.log.records <= s.options.CompactEvery {
		return
	}
	if err := s.compact(); err != nil {
		s.options.Logger.Warn("Compaction failed", "path", s.log.path, "error", err)
	}
}

func (s *Storage) CreateTable(schema core.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.tables[schema.Name]; ok {
		return core.NewSchemaError(schema.Name, "table already exists")
	}
	if len(schema.Columns) == 0 {
		return core.NewSchemaError(schema.Name, "table must have at least one column")
	}
	seen := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		if seen[col.Name] {
			return &core.SchemaError{Table: schema.Name, Column: col.Name, Message: "duplicate column"}
		}
		seen[col.Name] = true
	}

	schema = schema.Clone()
	if err := s.write(encodeCreate(schema)); err != nil {
		return err
	}

	s.tables[schema.Name] = newTable(schema, s.options.Fanout)
	s.order = append(s.order, schema.Name)
	s.afterWrite()
	return nil
}

func (s *Storage) DropTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, err := s.table(name); err != nil {
		return err
	}
	if err := s.write(encodeDrop(name)); err != nil {
		return err
	}

	s.removeTable(name)
	s.afterWrite()
	return nil
}

// Insert appends row to the named table and returns its row id.
func (s *Storage) Insert(name string, row core.Row) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	t, err := s.table(name)
	if err != nil {
		return 0, err
	}
	if len(row) != len(t.schema.Columns) {
		return 0, &core.ArityError{Table: name, Expected: len(t.schema.Columns), Got: len(row)}
	}

	id := t.nextID
	row = row.Clone()
	if err := s.write(encodeInsert(name, id, row)); err != nil {
		return 0, err
	}

	t.put(id, row)
	s.afterWrite()
	return id, nil
}

// Delete removes the given row ids from the named table as one durable
// operation and returns how many rows were removed. Unknown ids are ignored.
func (s *Storage) Delete(name string, ids ...uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	t, err := s.table(name)
	if err != nil {
		return 0, err
	}

	present := make([]uint64, 0, len(ids))
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if _, ok := t.tree.Get(id); ok && !seen[id] {
			present = append(present, id)
			seen[id] = true
		}
	}
	if len(present) == 0 {
		return 0, nil
	}

	if err := s.write(encodeDelete(name, present)); err != nil {
		return 0, err
	}

	for _, id := range present {
		t.tree.Delete(id)
	}
	s.afterWrite()
	return len(present), nil
}

// GetAll yields every row of the named table in insertion order. The table
// must not be modified while the sequence is being consumed.
func (s *Storage) GetAll(name string) (iter.Seq2[uint64, core.Row], error) {
	t, err := s.Table(name)
	if err != nil {
		return nil, err
	}
	return t.Scan(), nil
}

func (s *Storage) Table(name string) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.table(name)
}

func (s *Storage) TableExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tables[name]
	return ok
}

func (s *Storage) GetSchema(name string) (core.Table, error) {
	t, err := s.Table(name)
	if err != nil {
		return core.Table{}, err
	}
	return t.Schema(), nil
}

// Tables returns the table names in creation order.
func (s *Storage) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.order)
}

func (s *Storage) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Tables:      len(s.order),
		Rows:        make(map[string]int, len(s.order)),
		Compactions: s.compactions,
	}
	for _, name := range s.order {
		stats.Rows[name] = s.tables[name].Len()
	}
	if s.log != nil {
		stats.DatabaseID = s.log.id.String()
		stats.Path = s.log.path
		stats.LogRecords = s.log.records
		stats.FileSize = s.log.size
	}
	return stats
}

// Compact rewrites the database file as a single snapshot record. It is a
// no-op in memory mode.
func (s *Storage) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.log == nil {
		return nil
	}
	return s.compact()
}

func (s *Storage) compact() error {
	tables := make([]tableData, 0, len(s.order))
	rows := 0
	for _, name := range s.order {
		td := s.tables[name].data()
		rows += len(td.ids)
		tables = append(tables, td)
	}

	body, err := encodeSnapshot(tables, s.options.Compress)
	if err != nil {
		return core.NewStorageError("compact", s.log.path, err)
	}
	before := s.log.size
	if err := s.log.compact(body); err != nil {
		return err
	}
	s.compactions++

	s.options.Logger.Info("Compacted database file",
		"path", s.log.path,
		"tables", len(tables),
		"rows", rows,
		"bytes_before", before,
		"bytes_after", s.log.size)
	return nil
}

// Close compacts a file-backed database that changed since it was opened and
// releases the file. Closing twice is a no-op.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.log != nil {
		if s.log.appended > 0 {
			err = s.compact()
			if errors.Is(err, errRecordTooLarge) {
				s.options.Logger.Warn("Kept record log on close, snapshot too large", "path", s.log.path, "error", err)
				err = nil
			}
		}
		if closeErr := s.log.close(); err == nil {
			err = closeErr
		}
	}
	s.tables = map[string]*Table{}
	s.order = nil
	return err
}
