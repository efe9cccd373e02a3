package db

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nickyhof/MandukyaDB/cache"
	"github.com/nickyhof/MandukyaDB/core"
	"github.com/nickyhof/MandukyaDB/op"
	"github.com/nickyhof/MandukyaDB/ps"
	"github.com/nickyhof/MandukyaDB/sql"
)

// Engine executes parsed statements against one storage, serving repeated
// SELECTs from the result cache. An Engine is not safe for concurrent use;
// callers serialize Execute.
type Engine struct {
	Storage *ps.Storage
	Cache   *cache.ResultCache
	Logger  *slog.Logger

	statements atomic.Int64
	failures   atomic.Int64
}

// Stats counts executed statements alongside the cache counters.
type Stats struct {
	Statements int64       `json:"statements"`
	Failures   int64       `json:"failures"`
	Cache      cache.Stats `json:"cache"`
}

// NewEngine builds an engine. A nil cache disables result caching.
func NewEngine(storage *ps.Storage, resultCache *cache.ResultCache, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Storage: storage,
		Cache:   resultCache,
		Logger:  logger,
	}
}

func (engine *Engine) Execute(query string) (Result, error) {
	statement, err := sql.Parse(query)
	if err != nil {
		engine.statements.Add(1)
		engine.failures.Add(1)
		engine.Logger.Debug("Statement rejected", "error", err)
		return nil, err
	}
	return engine.ExecuteStatement(statement)
}

func (engine *Engine) ExecuteStatement(statement sql.Statement) (Result, error) {
	startTime := time.Now()
	engine.statements.Add(1)

	result, err := engine.dispatch(statement)
	if err != nil {
		engine.failures.Add(1)
		engine.Logger.Debug("Statement failed", "statement", statement.Type().String(), "error", err)
		return nil, err
	}

	engine.Logger.Debug("Statement executed", "statement", statement.Type().String(), "duration", time.Since(startTime))
	return result, nil
}

func (engine *Engine) dispatch(statement sql.Statement) (Result, error) {
	switch statement.Type() {
	case sql.SelectStatementType:
		return engine.executeSelectStatement(statement.(sql.SelectStatement))
	case sql.InsertStatementType:
		return engine.executeInsertStatement(statement.(sql.InsertStatement))
	case sql.DeleteStatementType:
		return engine.executeDeleteStatement(statement.(sql.DeleteStatement))
	case sql.CreateTableStatementType:
		return engine.executeCreateTableStatement(statement.(sql.CreateTableStatement))
	case sql.DropTableStatementType:
		return engine.executeDropTableStatement(statement.(sql.DropTableStatement))
	case sql.DescribeStatementType:
		return engine.executeDescribeStatement(statement.(sql.DescribeStatement))
	case sql.ShowTablesStatementType:
		return engine.executeShowTablesStatement(statement.(sql.ShowTablesStatement))
	default:
		return nil, fmt.Errorf("unsupported statement type: %s", statement.Type())
	}
}

func (engine *Engine) Stats() Stats {
	stats := Stats{
		Statements: engine.statements.Load(),
		Failures:   engine.failures.Load(),
	}
	if engine.Cache != nil {
		stats.Cache = engine.Cache.Stats()
	}
	return stats
}

func (engine *Engine) invalidate(table string) {
	if engine.Cache == nil {
		return
	}
	if n := engine.Cache.Invalidate(table); n > 0 {
		engine.Logger.Debug("Invalidated cached results", "table", table, "entries", n)
	}
}

func (engine *Engine) executeSelectStatement(statement sql.SelectStatement) (QueryResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.Storage)
	if err != nil {
		return QueryResult{}, err
	}

	// Resolve the projection before touching any row
	columns := tableOp.Table.ColumnNames()
	indexes := make([]int, len(columns))
	for i := range indexes {
		indexes[i] = i
	}
	if len(statement.Columns) > 0 {
		columns = append([]string(nil), statement.Columns...)
		indexes = indexes[:0]
		for _, name := range statement.Columns {
			idx, _, err := tableOp.Column(name)
			if err != nil {
				return QueryResult{}, err
			}
			indexes = append(indexes, idx)
		}
	}

	filter, err := compileCondition(tableOp, statement.Where)
	if err != nil {
		return QueryResult{}, err
	}

	predicate := ""
	if statement.Where != nil {
		predicate = statement.Where.String()
	}
	key := cache.NewKey(statement.Table, statement.Columns, predicate)

	if engine.Cache != nil {
		if cached, ok := engine.Cache.Get(key); ok {
			executionTime := time.Since(startTime).Seconds()
			return QueryResult{
				Columns:          cached.Columns,
				Rows:             cached.Rows,
				CacheHit:         true,
				ExecutionTimeSec: executionTime,
				ExecutionOps:     len(cached.Rows),
			}, nil
		}
	}

	rowsScanned := 0
	rows := []core.Row{}
	for _, row := range tableOp.Scan() {
		rowsScanned++
		if !filter(0, row) {
			continue
		}
		projected := make(core.Row, len(indexes))
		for i, idx := range indexes {
			projected[i] = row[idx].Clone()
		}
		rows = append(rows, projected)
	}

	if engine.Cache != nil {
		engine.Cache.Put(key, cache.Result{Columns: columns, Rows: rows})
	}

	executionTime := time.Since(startTime).Seconds()
	return QueryResult{
		Columns:          columns,
		Rows:             rows,
		RecordsRead:      rowsScanned,
		ExecutionTimeSec: executionTime,
		ExecutionOps:     rowsScanned,
	}, nil
}

func (engine *Engine) executeInsertStatement(statement sql.InsertStatement) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.Storage)
	if err != nil {
		return CommitResult{}, err
	}

	id, err := tableOp.Insert(statement.Values)
	if err != nil {
		return CommitResult{}, err
	}

	engine.invalidate(statement.Table)

	executionTime := time.Since(startTime).Seconds()
	return CommitResult{
		RecordsWritten:   1,
		LastInsertID:     id,
		ExecutionTimeSec: executionTime,
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDeleteStatement(statement sql.DeleteStatement) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.Storage)
	if err != nil {
		return CommitResult{}, err
	}

	filter, err := compileCondition(tableOp, statement.Where)
	if err != nil {
		return CommitResult{}, err
	}

	var ids []uint64
	for id := range tableOp.ScanWithFilter(filter) {
		ids = append(ids, id)
	}

	deleted, err := tableOp.Delete(ids...)
	if err != nil {
		return CommitResult{}, err
	}

	if deleted > 0 {
		engine.invalidate(statement.Table)
	}

	executionTime := time.Since(startTime).Seconds()
	return CommitResult{
		RecordsDeleted:   deleted,
		ExecutionTimeSec: executionTime,
		ExecutionOps:     deleted,
	}, nil
}

func (engine *Engine) executeCreateTableStatement(statement sql.CreateTableStatement) (CommitResult, error) {
	startTime := time.Now()

	table := core.Table{
		Name:    statement.Table,
		Columns: statement.Columns,
	}

	if _, err := op.CreateTable(table, engine.Storage); err != nil {
		return CommitResult{}, err
	}

	engine.Logger.Info("Created table", "table", statement.Table, "columns", len(statement.Columns))

	executionTime := time.Since(startTime).Seconds()
	return CommitResult{
		TablesCreated:    1,
		ExecutionTimeSec: executionTime,
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDropTableStatement(statement sql.DropTableStatement) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.Storage)
	if err != nil {
		return CommitResult{}, err
	}

	if err := tableOp.DropTable(); err != nil {
		return CommitResult{}, err
	}

	engine.invalidate(statement.Table)
	engine.Logger.Info("Dropped table", "table", statement.Table)

	executionTime := time.Since(startTime).Seconds()
	return CommitResult{
		TablesDeleted:    1,
		ExecutionTimeSec: executionTime,
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDescribeStatement(statement sql.DescribeStatement) (QueryResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(statement.Table, engine.Storage)
	if err != nil {
		return QueryResult{}, err
	}

	rows := make([]core.Row, 0, len(tableOp.Table.Columns))
	for _, col := range tableOp.Table.Columns {
		rows = append(rows, core.Row{core.Text(col.Name), core.Text(col.Type.String())})
	}

	executionTime := time.Since(startTime).Seconds()
	return QueryResult{
		Columns:          []string{"column", "type"},
		Rows:             rows,
		RecordsRead:      len(rows),
		ExecutionTimeSec: executionTime,
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeShowTablesStatement(statement sql.ShowTablesStatement) (QueryResult, error) {
	startTime := time.Now()

	names := op.GetDatabase(engine.Storage).TableNames()
	rows := make([]core.Row, 0, len(names))
	for _, name := range names {
		rows = append(rows, core.Row{core.Text(name)})
	}

	executionTime := time.Since(startTime).Seconds()
	return QueryResult{
		Columns:          []string{"table"},
		Rows:             rows,
		RecordsRead:      len(rows),
		ExecutionTimeSec: executionTime,
		ExecutionOps:     1,
	}, nil
}
