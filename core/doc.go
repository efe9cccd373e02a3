// Package core provides core types used throughout MandukyaDB.
//
// The package defines the table schema types, the tagged Value used for
// every stored cell, and the error taxonomy surfaced by DB.Execute.
//
// # Column Types
//
// Supported column types:
//   - IntegerType: 64-bit signed integers
//   - TextType: UTF-8 text
//   - RealType: double-precision floats
//   - BlobType: opaque byte sequences
//
// # Table Definition
//
//	table := core.Table{
//	    Name: "heroes",
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.IntegerType},
//	        {Name: "name", Type: core.TextType},
//	        {Name: "strength", Type: core.IntegerType},
//	    },
//	}
//
// # Errors
//
// Every error returned from statement execution wraps one of ErrSyntax,
// ErrSchema, ErrType, ErrArity or ErrStorage and can be tested with
// errors.Is; the concrete types carry position, table and column context
// for errors.As.
package core
