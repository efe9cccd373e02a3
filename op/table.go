package op

import (
	"iter"

	"github.com/nickyhof/MandukyaDB/core"
	"github.com/nickyhof/MandukyaDB/ps"
)

type TableOp struct {
	Table   core.Table
	Storage *ps.Storage
}

func CreateTable(table core.Table, storage *ps.Storage) (*TableOp, error) {
	if err := storage.CreateTable(table); err != nil {
		return nil, err
	}

	return &TableOp{
		Table:   table.Clone(),
		Storage: storage,
	}, nil
}

func GetTable(tableName string, storage *ps.Storage) (*TableOp, error) {
	table, err := storage.GetSchema(tableName)
	if err != nil {
		return nil, err
	}

	return &TableOp{
		Table:   table,
		Storage: storage,
	}, nil
}

func (op *TableOp) DropTable() error {
	return op.Storage.DropTable(op.Table.Name)
}

// Column resolves a column name to its position and definition.
func (op *TableOp) Column(name string) (int, core.Column, error) {
	idx := op.Table.ColumnIndex(name)
	if idx < 0 {
		return -1, core.Column{}, &core.SchemaError{Table: op.Table.Name, Column: name, Message: "no such column"}
	}
	return idx, op.Table.Columns[idx], nil
}

// Insert checks values against the schema, coerces each to its column type
// and stores the row. It returns the new row id.
func (op *TableOp) Insert(values []core.Value) (uint64, error) {
	if len(values) != len(op.Table.Columns) {
		return 0, &core.ArityError{Table: op.Table.Name, Expected: len(op.Table.Columns), Got: len(values)}
	}

	row := make(core.Row, len(values))
	for i, col := range op.Table.Columns {
		v, err := Coerce(col, values[i])
		if err != nil {
			return 0, err
		}
		row[i] = v
	}

	return op.Storage.Insert(op.Table.Name, row)
}

// Coerce converts a literal to the declared column type. INTEGER accepts
// only integers, REAL accepts integers and reals, TEXT accepts only text and
// BLOB accepts blobs or text taken as its UTF-8 bytes.
func Coerce(col core.Column, v core.Value) (core.Value, error) {
	switch col.Type {
	case core.IntegerType:
		if v.Type() == core.IntegerType {
			return v, nil
		}
	case core.RealType:
		if v.IsNumeric() {
			return core.Real(v.AsFloat()), nil
		}
	case core.TextType:
		if v.Type() == core.TextType {
			return v, nil
		}
	case core.BlobType:
		switch v.Type() {
		case core.BlobType:
			return v, nil
		case core.TextType:
			return core.Blob([]byte(v.Str())), nil
		}
	}
	return core.Value{}, &core.TypeError{Column: col.Name, Expected: col.Type, Got: v.Type()}
}

// Delete removes the given rows in one durable step.
func (op *TableOp) Delete(ids ...uint64) (int, error) {
	return op.Storage.Delete(op.Table.Name, ids...)
}

func (op *TableOp) Count() int {
	t, err := op.Storage.Table(op.Table.Name)
	if err != nil {
		return 0
	}
	return t.Len()
}

// Scan yields rows in insertion order. An error (the table was dropped or
// the storage closed) yields nothing.
func (op *TableOp) Scan() iter.Seq2[uint64, core.Row] {
	t, err := op.Storage.Table(op.Table.Name)
	if err != nil {
		return func(func(uint64, core.Row) bool) {}
	}
	return t.Scan()
}

func (op *TableOp) ScanWithFilter(filterExpr func(id uint64, row core.Row) bool) iter.Seq2[uint64, core.Row] {
	t, err := op.Storage.Table(op.Table.Name)
	if err != nil {
		return func(func(uint64, core.Row) bool) {}
	}
	return t.ScanWithFilter(filterExpr)
}
