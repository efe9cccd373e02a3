package ps

import (
	"iter"

	"github.com/nickyhof/MandukyaDB/core"
)

// Table owns one schema and the B+ tree holding its rows, keyed by a row id
// that starts at 1 and only ever grows.
type Table struct {
	schema core.Table
	tree   *BTree
	nextID uint64
}

func newTable(schema core.Table, fanout int) *Table {
	return &Table{
		schema: schema,
		tree:   NewBTree(fanout),
		nextID: 1,
	}
}

// Schema returns a copy of the table definition.
func (t *Table) Schema() core.Table {
	return t.schema.Clone()
}

func (t *Table) Name() string {
	return t.schema.Name
}

// NextID is the id the next inserted row will receive.
func (t *Table) NextID() uint64 {
	return t.nextID
}

func (t *Table) Len() int {
	return t.tree.Len()
}

func (t *Table) Height() int {
	return t.tree.Height()
}

func (t *Table) Get(id uint64) (core.Row, bool) {
	return t.tree.Get(id)
}

// Scan yields rows in ascending id order, which is insertion order. The
// yielded rows are owned by the table and must not be modified.
func (t *Table) Scan() iter.Seq2[uint64, core.Row] {
	return t.tree.All()
}

// ScanWithFilter yields only the rows accepted by filterExpr.
func (t *Table) ScanWithFilter(filterExpr func(id uint64, row core.Row) bool) iter.Seq2[uint64, core.Row] {
	return func(yield func(uint64, core.Row) bool) {
		for id, row := range t.tree.All() {
			if !filterExpr(id, row) {
				continue
			}
			if !yield(id, row) {
				return
			}
		}
	}
}

func (t *Table) put(id uint64, row core.Row) {
	t.tree.Insert(id, row)
	if id >= t.nextID {
		t.nextID = id + 1
	}
}

func (t *Table) data() tableData {
	d := tableData{schema: t.schema, nextID: t.nextID}
	for id, row := range t.tree.All() {
		d.ids = append(d.ids, id)
		d.rows = append(d.rows, row)
	}
	return d
}
