// Package op provides table-level operations for SheetDB.
//
// The op package sits between the engine (db/) and a storage provider
// (ps/ or any other Store implementation). It converts raw rows into
// Documents and back, and turns a Document's recorded position into the
// positional writes a grid store understands.
//
// # Store
//
// Store is the contract a backing grid must satisfy: look up and create
// tables, read every row at once, append a row, write one cell and delete
// one row by position. Positions are 1-based and count the header row, so
// the first data row is at position 2.
//
// # Row Codec
//
//	doc := op.Decode(headers, []any{"1", "OPEN"}, 2)  // doc.Row == 2
//	raw := op.Encode(headers, doc.Fields)            // aligned to headers
//
// # TableOp
//
//	tableOp, err := op.GetTable("tasks", store)
//	docs, err := tableOp.Snapshot()                  // every row, tagged
//	err = tableOp.Append(fields)
//	err = tableOp.WriteCell(doc.Row, "status", "CLOSED")
//	err = tableOp.DeleteAt(doc.Row)
//
// # Architecture
//
// The layering is:
//
//	Predicate Engine (query/)
//	     ↓
//	CRUD Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Store (ps/ git-backed sheets)
//
// A snapshot's positions are only valid until the table is next modified
// by someone else; callers must re-read before positional writes.
package op
