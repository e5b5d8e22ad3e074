package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/query"
)

// Op names a request operation.
type Op string

const (
	OpCreateTable Op = "create_table"
	OpTables      Op = "tables"
	OpSelect      Op = "select"
	OpInsert      Op = "insert"
	OpUpdate      Op = "update"
	OpDelete      Op = "delete"
	OpUpsert      Op = "upsert"
	OpImport      Op = "import"
	OpExport      Op = "export"
)

var ErrInvalidRequest = errors.New("invalid request")

// Request is the serialisable form of one engine call, as read by the
// server, the shell and the C bindings.
type Request struct {
	Op      Op             `json:"op"`
	Table   string         `json:"table,omitempty"`
	Columns []string       `json:"columns,omitempty"`
	Where   query.Query    `json:"where,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Options core.Options   `json:"options,omitempty"`
	URL     string         `json:"url,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func (req Request) validate() error {
	switch req.Op {
	case OpTables:
		return nil
	case OpCreateTable, OpSelect, OpInsert, OpDelete:
	case OpUpdate, OpUpsert:
		if len(req.Data) == 0 {
			return invalid("%s requires data", req.Op)
		}
	case OpImport, OpExport:
		if req.URL == "" {
			return invalid("%s requires url", req.Op)
		}
	case "":
		return invalid("missing op")
	default:
		return invalid("unknown op %q", req.Op)
	}
	if req.Table == "" {
		return invalid("%s requires table", req.Op)
	}
	return nil
}

// Do runs one request against the engine.
func (engine *Engine) Do(ctx context.Context, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	startTime := time.Now()
	elapsed := func() float64 { return time.Since(startTime).Seconds() }

	switch req.Op {
	case OpCreateTable:
		table, created, err := engine.CreateTable(req.Table, req.Columns)
		if err != nil {
			return nil, err
		}
		result := CommitResult{Table: table.Name, ExecutionTimeSec: elapsed()}
		if created {
			result.TablesCreated = 1
		}
		return result, nil

	case OpTables:
		names, err := engine.Tables()
		if err != nil {
			return nil, err
		}
		docs := make([]core.Document, len(names))
		for i, name := range names {
			docs[i] = core.NewDocument(map[string]any{"table": name})
		}
		return QueryResult{Columns: []string{"table"}, Documents: docs, ExecutionTimeSec: elapsed()}, nil

	case OpSelect:
		table, err := engine.store.GetTable(req.Table)
		if err != nil {
			return nil, err
		}
		docs, err := engine.Select(req.Table, req.Where, req.Options)
		if err != nil {
			return nil, err
		}
		return QueryResult{
			Table:            req.Table,
			Columns:          table.Headers,
			Documents:        docs,
			ExecutionTimeSec: elapsed(),
		}, nil

	case OpInsert:
		doc, err := engine.Insert(req.Table, req.Data)
		if err != nil {
			return nil, err
		}
		return CommitResult{Table: req.Table, RecordsWritten: 1, Document: &doc, ExecutionTimeSec: elapsed()}, nil

	case OpUpdate:
		n, err := engine.Update(req.Table, req.Where, req.Data)
		if err != nil {
			return nil, err
		}
		return CommitResult{Table: req.Table, RecordsUpdated: n, ExecutionTimeSec: elapsed()}, nil

	case OpDelete:
		n, err := engine.DeleteRow(req.Table, req.Where)
		if err != nil {
			return nil, err
		}
		return CommitResult{Table: req.Table, RecordsDeleted: n, ExecutionTimeSec: elapsed()}, nil

	case OpUpsert:
		result, err := engine.Upsert(req.Table, req.Where, req.Data)
		if err != nil {
			return nil, err
		}
		result.ExecutionTimeSec = elapsed()
		return result, nil

	case OpImport, OpExport:
		transfer := engine.Import
		if req.Op == OpExport {
			transfer = engine.Export
		}
		result, err := transfer(ctx, req.Table, req.URL)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, invalid("unknown op %q", req.Op)
}
