// Package main provides a TCP SQL server for MandukyaDB.
package main

import (
	"encoding/json"

	"github.com/nickyhof/MandukyaDB/db"
)

// Request represents a SQL query from the client. Clients may also send the
// bare statement text as the whole line.
type Request struct {
	Query string `json:"query"`
}

// AuthResponse acknowledges a successful AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// EncodeResponse serializes a db.Response to JSON with a newline.
func EncodeResponse(resp db.Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses one request line. A line that is not a JSON object
// is taken as the statement itself.
func DecodeRequest(line string) (Request, error) {
	if len(line) == 0 || line[0] != '{' {
		return Request{Query: line}, nil
	}
	var req Request
	err := json.Unmarshal([]byte(line), &req)
	return req, err
}
