// Package core provides core types used throughout SheetDB.
//
// The package defines fundamental types like Identity, Table, Document and
// Options, and the sentinel errors shared by every layer.
//
// # Identity
//
// Identity identifies the author of writes (Git commit author):
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
//
// # Tables and Documents
//
// A Table is a named grid whose first row holds the column headers. The id
// column always exists and comes first unless the caller placed it:
//
//	table := core.NewTable("tasks", []string{"status", "score"})
//	// table.Headers == []string{"id", "status", "score"}
//
// A Document is one data row keyed by header. Row carries the physical
// position the document was read from (header row = 1, first data row = 2)
// and is only meaningful for the snapshot that produced it.
package core
