package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"errors"
	"sync"
	"unsafe"

	"github.com/goccy/go-json"

	"github.com/nickyhof/SheetDB"
	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/db"
	"github.com/nickyhof/SheetDB/ps"
	"github.com/nickyhof/SheetDB/query"
)

var bindingIdentity = core.Identity{
	Name:  "SheetDB Bindings",
	Email: "bindings@sheetdb.local",
}

// Handle is one open instance. Calls on a handle run one at a time.
type Handle struct {
	mu     sync.Mutex
	engine *db.Engine
}

var (
	handlesMu  sync.Mutex
	handles    = make(map[int]*Handle)
	nextHandle = 1
)

// Response mirrors the server protocol.
type Response struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Type      string          `json:"type,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

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

func register(persistence *ps.Persistence) C.int {
	engine := SheetDB.Open(persistence).Engine(bindingIdentity)

	handlesMu.Lock()
	defer handlesMu.Unlock()
	handle := nextHandle
	nextHandle++
	handles[handle] = &Handle{engine: engine}
	return C.int(handle)
}

func lookup(handle C.int) (*Handle, bool) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	h, ok := handles[int(handle)]
	return h, ok
}

//export sheetdb_open_memory
func sheetdb_open_memory() C.int {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		return -1
	}
	return register(persistence)
}

//export sheetdb_open_file
func sheetdb_open_file(path *C.char) C.int {
	persistence, err := ps.NewFilePersistence(C.GoString(path), nil)
	if err != nil {
		return -1
	}
	return register(persistence)
}

//export sheetdb_close
func sheetdb_close(handle C.int) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	delete(handles, int(handle))
}

// sheetdb_execute runs one JSON request and returns a JSON response that
// the caller must release with sheetdb_free.
//
//export sheetdb_execute
func sheetdb_execute(handle C.int, request *C.char) *C.char {
	h, ok := lookup(handle)
	if !ok {
		return encode(Response{Success: false, Error: "invalid handle", ErrorCode: "invalid_request"})
	}
	return encode(execute(h, C.GoString(request)))
}

//export sheetdb_free
func sheetdb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func execute(h *Handle, line string) Response {
	var req db.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return errorResponse(errors.Join(db.ErrInvalidRequest, err))
	}

	h.mu.Lock()
	result, err := h.engine.Do(context.Background(), req)
	h.mu.Unlock()
	if err != nil {
		return errorResponse(err)
	}

	switch r := result.(type) {
	case db.QueryResult:
		return resultResponse("query", QueryResponse{
			Table:       r.Table,
			Columns:     r.Columns,
			Rows:        r.Rows(),
			RecordsRead: len(r.Documents),
			TimeMs:      r.ExecutionTimeSec * 1000,
		})
	case db.CommitResult:
		cr := CommitResponse{
			Table:          r.Table,
			TablesCreated:  r.TablesCreated,
			RecordsWritten: r.RecordsWritten,
			RecordsUpdated: r.RecordsUpdated,
			RecordsDeleted: r.RecordsDeleted,
			TimeMs:         r.ExecutionTimeSec * 1000,
		}
		if r.Document != nil {
			cr.Document = r.Document.Fields
		}
		return resultResponse("commit", cr)
	case db.UpsertResult:
		ur := UpsertResponse{Kind: r.Kind, Count: r.Count, TimeMs: r.ExecutionTimeSec * 1000}
		if r.Document != nil {
			ur.Document = r.Document.Fields
		}
		return resultResponse("upsert", ur)
	default:
		return Response{Success: true, Type: "unknown"}
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrTableNotFound):
		return "table_not_found"
	case errors.Is(err, core.ErrInvalidPattern):
		return "invalid_pattern"
	case errors.Is(err, db.ErrInvalidRequest),
		errors.Is(err, query.ErrUnknownOperator),
		errors.Is(err, query.ErrInvalidCondition):
		return "invalid_request"
	default:
		return "internal"
	}
}

func errorResponse(err error) Response {
	return Response{Success: false, Error: err.Error(), ErrorCode: errorCode(err)}
}

func resultResponse(typ string, v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResponse(err)
	}
	return Response{Success: true, Type: typ, Result: data}
}

func encode(resp Response) *C.char {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"success":false,"error":"failed to encode response","error_code":"internal"}`)
	}
	return C.CString(string(data))
}

func main() {}
