// Package op provides high-level operations for working with MandukyaDB tables.
//
// The op package sits between the SQL engine (db/) and the storage layer (ps/),
// checking values against the table schema before they reach storage.
//
// # DatabaseOp
//
// DatabaseOp wraps operations over all tables:
//
//	dbOp := op.GetDatabase(storage)
//	tables := dbOp.TableNames()           // List all tables
//	schemas := dbOp.Schemas()             // Table definitions
//
// # TableOp
//
// TableOp wraps table-level operations:
//
//	tableOp, err := op.GetTable("heroes", storage)
//
//	id, err := tableOp.Insert([]core.Value{core.Integer(1), core.Text("Arjuna"), core.Integer(95)})
//	n, err := tableOp.Delete(id)
//	count := tableOp.Count()
//
//	// Scanning with optional filter
//	for id, row := range tableOp.Scan() {
//	    // rows in insertion order
//	}
//	for id, row := range tableOp.ScanWithFilter(func(id uint64, row core.Row) bool {
//	    return row[2].Int() > 90
//	}) {
//	    // process filtered rows
//	}
//
// # Architecture
//
// The layering is:
//
//	SQL Parser (sql/)
//	     ↓
//	SQL Engine (db/)   ←→   Result cache (cache/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Storage (ps/)
//	     ↓
//	B+ tree tables + database file (go-billy)
package op
