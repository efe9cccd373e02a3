package op

import (
	"github.com/nickyhof/MandukyaDB/core"
	"github.com/nickyhof/MandukyaDB/ps"
)

// DatabaseOp wraps operations that span every table of one storage.
type DatabaseOp struct {
	Storage *ps.Storage
}

func GetDatabase(storage *ps.Storage) *DatabaseOp {
	return &DatabaseOp{Storage: storage}
}

// TableNames lists tables in creation order.
func (op *DatabaseOp) TableNames() []string {
	return op.Storage.Tables()
}

// Schemas returns every table definition in creation order.
func (op *DatabaseOp) Schemas() []core.Table {
	names := op.Storage.Tables()
	schemas := make([]core.Table, 0, len(names))
	for _, name := range names {
		if schema, err := op.Storage.GetSchema(name); err == nil {
			schemas = append(schemas, schema)
		}
	}
	return schemas
}

func (op *DatabaseOp) Stats() ps.Stats {
	return op.Storage.Stats()
}
