// Package db provides the document engine for SheetDB.
//
// The Engine type runs selects and mutations against any op.Store. Rows are
// decoded to documents, filtered with the query package and written back by
// physical position.
//
// # Engine Usage
//
//	engine := db.NewEngine(persistence.Sheets(identity))
//	engine.CreateTable("tasks", []string{"status", "score"})
//	engine.Insert("tasks", map[string]any{"status": "OPEN", "score": 85})
//	docs, err := engine.Select("tasks", query.Query{"score": ">= 80"}, core.Options{OrderBy: "score"})
//
// # Requests
//
// Do accepts a Request, the JSON shape used by the server, the shell and the
// C bindings, and returns one of three result types:
//   - QueryResult: returned by select and tables
//   - CommitResult: returned by create_table, insert, update, delete, import and export
//   - UpsertResult: returned by upsert; Kind tells whether rows were updated or one was inserted
//
// # Concurrency
//
// Each scanning call reads one snapshot and then writes by position. A
// second writer changing the same table between the read and the writes can
// make Update or DeleteRow touch the wrong row. Run one writer at a time.
package db
