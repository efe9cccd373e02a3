package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/MandukyaDB/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
)

type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

// QueryResult holds the rows of a SELECT, DESCRIBE or SHOW TABLES in
// projected-column order.
type QueryResult struct {
	Columns          []string
	Rows             []core.Row
	RecordsRead      int
	CacheHit         bool
	ExecutionTimeSec float64
	ExecutionOps     int
}

// CommitResult acknowledges a statement that changed the database.
type CommitResult struct {
	TablesCreated    int
	TablesDeleted    int
	RecordsWritten   int
	RecordsDeleted   int
	LastInsertID     uint64
	ExecutionTimeSec float64
	ExecutionOps     int
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

// Data renders every value with its display form.
func (result QueryResult) Data() [][]string {
	data := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		data[i] = row.Strings()
	}
	return data
}

// RowsAffected is the count reported for INSERT and DELETE.
func (result CommitResult) RowsAffected() int {
	return result.RecordsWritten + result.RecordsDeleted
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

// formatThroughput renders ops per second, or nothing when unmeasurable.
func formatThroughput(ops int, secs float64) string {
	if secs <= 0 || ops <= 0 {
		return ""
	}
	rate := float64(ops) / secs
	if rate >= 1000000 {
		return fmt.Sprintf(", %.1fM ops/s", rate/1000000)
	} else if rate >= 1000 {
		return fmt.Sprintf(", %.1fK ops/s", rate/1000)
	}
	return fmt.Sprintf(", %.0f ops/s", rate)
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display(w io.Writer) {
	if len(result.Rows) > 0 {
		data := NewTable(w)
		data.Header(result.Columns)
		for _, row := range result.Rows {
			data.Row(row)
		}
		data.Render()
	}

	cached := ""
	if result.CacheHit {
		cached = ", cached"
	}
	fmt.Fprintf(w, "%d rows (%s%s%s)\n", len(result.Rows), result.ExecutionTime(), cached,
		formatThroughput(result.ExecutionOps, result.ExecutionTimeSec))
}

func (result CommitResult) Display(w io.Writer) {
	var parts []string

	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.TablesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) deleted", result.TablesDeleted))
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}

	stats := result.ExecutionTime() + formatThroughput(result.ExecutionOps, result.ExecutionTimeSec)
	if len(parts) == 0 {
		fmt.Fprintf(w, "OK (%s)\n", stats)
	} else {
		fmt.Fprintf(w, "%s (%s)\n", strings.Join(parts, ", "), stats)
	}
}
