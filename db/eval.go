package db

import (
	"github.com/nickyhof/MandukyaDB/core"
	"github.com/nickyhof/MandukyaDB/op"
	"github.com/nickyhof/MandukyaDB/sql"
)

// rowFilter reports whether a stored row satisfies a WHERE clause.
type rowFilter func(id uint64, row core.Row) bool

func matchAll(uint64, core.Row) bool { return true }

// compileCondition resolves the WHERE column against the schema and checks
// the literal against its declared type once, before any row is read.
func compileCondition(tableOp *op.TableOp, where *sql.WhereCondition) (rowFilter, error) {
	if where == nil {
		return matchAll, nil
	}

	idx, column, err := tableOp.Column(where.Column)
	if err != nil {
		return nil, err
	}

	literal, err := coercePredicate(column, where.Value)
	if err != nil {
		return nil, err
	}

	operator := where.Operator
	return func(_ uint64, row core.Row) bool {
		return evaluateCondition(row[idx], operator, literal)
	}, nil
}

// coercePredicate checks a comparison literal against a column. Numeric
// columns compare with any numeric literal, TEXT needs text and BLOB takes
// a blob or the bytes of a text literal.
func coercePredicate(column core.Column, v core.Value) (core.Value, error) {
	switch column.Type {
	case core.IntegerType, core.RealType:
		if v.IsNumeric() {
			return v, nil
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
	return core.Value{}, &core.TypeError{Column: column.Name, Expected: column.Type, Got: v.Type()}
}

func evaluateCondition(value core.Value, operator sql.WhereOperator, literal core.Value) bool {
	c, ok := core.Compare(value, literal)
	if !ok {
		return false
	}

	switch operator {
	case sql.EqualsOperator:
		return c == 0
	case sql.NotEqualsOperator:
		return c != 0
	case sql.LessThanOperator:
		return c < 0
	case sql.GreaterThanOperator:
		return c > 0
	case sql.LessThanOrEqualOperator:
		return c <= 0
	case sql.GreaterThanOrEqualOperator:
		return c >= 0
	default:
		return false
	}
}
