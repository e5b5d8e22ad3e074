// Package main provides a TCP server speaking newline-delimited JSON
// requests against a SheetDB instance.
package main

import (
	"errors"

	"github.com/goccy/go-json"

	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/db"
	"github.com/nickyhof/SheetDB/query"
)

// opAuth is the only request op handled by the server itself.
const opAuth db.Op = "auth"

// Request is one line sent by a client: a db.Request, or an auth request
// carrying Token.
type Request struct {
	db.Request
	Token string `json:"token,omitempty"`
}

// Response is one line sent back to the client.
type Response struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Type      string          `json:"type,omitempty"` // query, commit, upsert or auth
	Result    json.RawMessage `json:"result,omitempty"`
}

const (
	typeQuery  = "query"
	typeCommit = "commit"
	typeUpsert = "upsert"
	typeAuth   = "auth"
)

const (
	codeTableNotFound  = "table_not_found"
	codeInvalidPattern = "invalid_pattern"
	codeInvalidRequest = "invalid_request"
	codeUnauthorized   = "unauthorized"
	codeInternal       = "internal"
)

// QueryResponse carries selected rows. Each row holds the document fields
// plus its sheet position under "_row".
type QueryResponse struct {
	Table       string           `json:"table,omitempty"`
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	RecordsRead int              `json:"records_read"`
	TimeMs      float64          `json:"time_ms"`
}

type CommitResponse struct {
	Table          string         `json:"table,omitempty"`
	TablesCreated  int            `json:"tables_created,omitempty"`
	RecordsWritten int            `json:"records_written,omitempty"`
	RecordsUpdated int            `json:"records_updated,omitempty"`
	RecordsDeleted int            `json:"records_deleted,omitempty"`
	Document       map[string]any `json:"document,omitempty"`
	TimeMs         float64        `json:"time_ms"`
}

type UpsertResponse struct {
	Kind     db.UpsertKind  `json:"kind"`
	Count    int            `json:"count"`
	Document map[string]any `json:"document,omitempty"`
	TimeMs   float64        `json:"time_ms"`
}

type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"` // seconds
}

// EncodeResponse serializes a Response followed by a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}

// errorCode classifies err for clients.
func errorCode(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, core.ErrTableNotFound):
		return codeTableNotFound
	case errors.Is(err, core.ErrInvalidPattern):
		return codeInvalidPattern
	case errors.Is(err, db.ErrInvalidRequest),
		errors.Is(err, query.ErrUnknownOperator),
		errors.Is(err, query.ErrInvalidCondition),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return codeInvalidRequest
	case errors.Is(err, ErrAuthRequired), errors.Is(err, ErrInvalidToken):
		return codeUnauthorized
	default:
		return codeInternal
	}
}

func errorResponse(typ string, err error) Response {
	return Response{
		Success:   false,
		Error:     err.Error(),
		ErrorCode: errorCode(err),
		Type:      typ,
	}
}

func resultResponse(typ string, v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResponse(typ, err)
	}
	return Response{Success: true, Type: typ, Result: data}
}

func documentFields(doc *core.Document) map[string]any {
	if doc == nil {
		return nil
	}
	return doc.Fields
}

// toResponse converts an engine result to its wire form.
func toResponse(result db.Result) Response {
	switch r := result.(type) {
	case db.QueryResult:
		return resultResponse(typeQuery, QueryResponse{
			Table:       r.Table,
			Columns:     r.Columns,
			Rows:        r.Rows(),
			RecordsRead: len(r.Documents),
			TimeMs:      r.ExecutionTimeSec * 1000,
		})
	case db.CommitResult:
		return resultResponse(typeCommit, CommitResponse{
			Table:          r.Table,
			TablesCreated:  r.TablesCreated,
			RecordsWritten: r.RecordsWritten,
			RecordsUpdated: r.RecordsUpdated,
			RecordsDeleted: r.RecordsDeleted,
			Document:       documentFields(r.Document),
			TimeMs:         r.ExecutionTimeSec * 1000,
		})
	case db.UpsertResult:
		return resultResponse(typeUpsert, UpsertResponse{
			Kind:     r.Kind,
			Count:    r.Count,
			Document: documentFields(r.Document),
			TimeMs:   r.ExecutionTimeSec * 1000,
		})
	default:
		return Response{Success: true, Type: "unknown"}
	}
}
