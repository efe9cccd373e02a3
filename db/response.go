package db

import (
	"encoding/json"
	"errors"

	"github.com/nickyhof/MandukyaDB/core"
)

// Response is the JSON envelope the network server and the C binding return
// for one request.
type Response struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"` // "syntax", "schema", "type", "arity", "storage"
	Type      string          `json:"type,omitempty"`       // "query", "commit", "error", or a front-end specific type
	Result    json.RawMessage `json:"result,omitempty"`
}

// QueryResponse contains tabular query results. Values keep their JSON
// type; blobs are base64 strings.
type QueryResponse struct {
	Columns     []string `json:"columns"`
	Rows        [][]any  `json:"rows"`
	RecordsRead int      `json:"records_read"`
	CacheHit    bool     `json:"cache_hit,omitempty"`
	TimeMs      float64  `json:"time_ms"`
}

// CommitResponse contains mutation operation results.
type CommitResponse struct {
	TablesCreated  int     `json:"tables_created,omitempty"`
	TablesDeleted  int     `json:"tables_deleted,omitempty"`
	RecordsWritten int     `json:"records_written,omitempty"`
	RecordsDeleted int     `json:"records_deleted,omitempty"`
	LastInsertID   uint64  `json:"last_insert_id,omitempty"`
	TimeMs         float64 `json:"time_ms"`
}

// NewResponse wraps a statement result in its envelope.
func NewResponse(result Result) Response {
	var (
		respType string
		payload  any
	)

	switch r := result.(type) {
	case QueryResult:
		respType = "query"
		payload = QueryResponse{
			Columns:     r.Columns,
			Rows:        nativeRows(r.Rows),
			RecordsRead: r.RecordsRead,
			CacheHit:    r.CacheHit,
			TimeMs:      r.ExecutionTimeSec * 1000,
		}
	case CommitResult:
		respType = "commit"
		payload = CommitResponse{
			TablesCreated:  r.TablesCreated,
			TablesDeleted:  r.TablesDeleted,
			RecordsWritten: r.RecordsWritten,
			RecordsDeleted: r.RecordsDeleted,
			LastInsertID:   r.LastInsertID,
			TimeMs:         r.ExecutionTimeSec * 1000,
		}
	default:
		return Response{Success: true, Type: "unknown"}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return ErrorResponse("error", err)
	}
	return Response{Success: true, Type: respType, Result: data}
}

// ErrorResponse reports err as a failed response of the given type.
func ErrorResponse(respType string, err error) Response {
	return Response{
		Success:   false,
		Type:      respType,
		Error:     err.Error(),
		ErrorKind: ErrorKind(err),
	}
}

// ErrorKind maps an execution error to its protocol name, or "" for errors
// outside the taxonomy.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, core.ErrSyntax):
		return "syntax"
	case errors.Is(err, core.ErrSchema):
		return "schema"
	case errors.Is(err, core.ErrType):
		return "type"
	case errors.Is(err, core.ErrArity):
		return "arity"
	case errors.Is(err, core.ErrStorage):
		return "storage"
	default:
		return ""
	}
}

func nativeRows(rows []core.Row) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = v.Native()
		}
	}
	return out
}
