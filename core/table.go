package core

import "strings"

type ColumnType int

const (
	IntegerType ColumnType = iota
	TextType
	RealType
	BlobType
)

func (t ColumnType) String() string {
	switch t {
	case IntegerType:
		return "INTEGER"
	case TextType:
		return "TEXT"
	case RealType:
		return "REAL"
	case BlobType:
		return "BLOB"
	default:
		return "UNKNOWN"
	}
}

// ParseColumnType maps a declared SQL type name to a ColumnType. Common
// aliases (INT, BIGINT, VARCHAR, STRING, FLOAT, DOUBLE) are accepted.
func ParseColumnType(name string) (ColumnType, bool) {
	switch strings.ToUpper(name) {
	case "INTEGER", "INT", "BIGINT":
		return IntegerType, true
	case "TEXT", "STRING", "VARCHAR":
		return TextType, true
	case "REAL", "FLOAT", "DOUBLE":
		return RealType, true
	case "BLOB":
		return BlobType, true
	}
	return 0, false
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// ColumnIndex returns the position of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Clone returns a copy of the schema that shares no slices with t.
func (t Table) Clone() Table {
	cols := make([]Column, len(t.Columns))
	copy(cols, t.Columns)
	return Table{Name: t.Name, Columns: cols}
}
