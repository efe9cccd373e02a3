package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the statement error taxonomy
var (
	// ErrSyntax indicates the statement text does not match the grammar
	ErrSyntax = errors.New("syntax error")
	// ErrSchema indicates an unknown or duplicate table or column
	ErrSchema = errors.New("schema error")
	// ErrType indicates a literal that cannot be coerced to a column type
	ErrType = errors.New("type error")
	// ErrArity indicates an INSERT value count that differs from the column count
	ErrArity = errors.New("arity error")
	// ErrStorage indicates an I/O failure on a file-backed database
	ErrStorage = errors.New("storage error")
	// ErrClosed indicates use of a database handle after Close
	ErrClosed = errors.New("database is closed")
	// ErrCorrupt indicates a database file that cannot be decoded
	ErrCorrupt = errors.New("corrupt database file")
)

// SyntaxError reports a parse failure at a byte offset in the statement.
type SyntaxError struct {
	Pos     int    // Byte offset of the offending token
	Token   string // Offending token text, empty at end of input
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Message)
	}
	return fmt.Sprintf("syntax error at position %d near %q: %s", e.Pos, e.Token, e.Message)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// SchemaError reports an unknown or duplicate table or column.
type SchemaError struct {
	Table   string
	Column  string
	Message string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("schema error: %s: column %s.%s", e.Message, e.Table, e.Column)
	case e.Table != "":
		return fmt.Sprintf("schema error: %s: %s", e.Message, e.Table)
	}
	return "schema error: " + e.Message
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// TypeError reports a literal that cannot be coerced to its column's type.
type TypeError struct {
	Column   string
	Expected ColumnType
	Got      ColumnType
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: column %s expects %s, got %s", e.Column, e.Expected, e.Got)
}

func (e *TypeError) Unwrap() error { return ErrType }

// ArityError reports an INSERT whose value count differs from the schema.
type ArityError struct {
	Table    string
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("arity error: table %s has %d columns, got %d values", e.Table, e.Expected, e.Got)
}

func (e *ArityError) Unwrap() error { return ErrArity }

// StorageError reports a failed file operation. It matches both ErrStorage
// and its cause under errors.Is.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// NewSchemaError is shorthand for a table-level SchemaError.
func NewSchemaError(table, message string) error {
	return &SchemaError{Table: table, Message: message}
}

// NewStorageError wraps err unless it already is a StorageError.
func NewStorageError(op, path string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Path: path, Err: err}
}

// IsDatabaseError reports whether err belongs to the statement error taxonomy.
func IsDatabaseError(err error) bool {
	for _, target := range []error{ErrSyntax, ErrSchema, ErrType, ErrArity, ErrStorage} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
