package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/query"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
	UpsertResultType
)

type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

// QueryResult holds the documents returned by a select, or the table names
// returned by a listing.
type QueryResult struct {
	Table            string
	Columns          []string
	Documents        []core.Document
	ExecutionTimeSec float64
}

type CommitResult struct {
	Table            string
	TablesCreated    int
	RecordsWritten   int
	RecordsUpdated   int
	RecordsDeleted   int
	Document         *core.Document // set by insert
	ExecutionTimeSec float64
}

// UpsertKind tells which path an upsert took.
type UpsertKind string

const (
	Updated  UpsertKind = "updated"
	Inserted UpsertKind = "inserted"
)

// UpsertResult is the outcome of an upsert. Count is the number of updated
// rows for Updated and 1 for Inserted; Document is set only for Inserted.
type UpsertResult struct {
	Kind             UpsertKind
	Count            int
	Document         *core.Document
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

func (result UpsertResult) Type() ResultType {
	return UpsertResultType
}

// RowPositionField is the name under which a document's row position is
// rendered in output.
const RowPositionField = "_row"

// Rows renders the documents as plain maps, each tagged with its row
// position under RowPositionField.
func (result QueryResult) Rows() []map[string]any {
	rows := make([]map[string]any, len(result.Documents))
	for i, doc := range result.Documents {
		row := make(map[string]any, len(doc.Fields)+1)
		for k, v := range doc.Fields {
			row[k] = v
		}
		if doc.Row > 0 {
			row[RowPositionField] = doc.Row
		}
		rows[i] = row
	}
	return rows
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 1:
		return fmt.Sprintf("%dms", int(secs*1000))
	case secs < 10:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 60:
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	if rem := int(secs) % 60; rem != 0 {
		return fmt.Sprintf("%dm%ds", mins, rem)
	}
	return fmt.Sprintf("%dm", mins)
}

func (result QueryResult) Display(w io.Writer) {
	if len(result.Documents) > 0 {
		table := NewTable(w)
		table.Header(result.Columns)
		for _, doc := range result.Documents {
			cells := make([]string, len(result.Columns))
			for i, column := range result.Columns {
				cells[i] = query.Stringify(doc.Fields[column])
			}
			table.Row(cells)
		}
		table.Render()
	}

	fmt.Fprintf(w, "%d rows (%s)\n", len(result.Documents), formatDuration(result.ExecutionTimeSec))
}

func (result CommitResult) Display(w io.Writer) {
	var parts []string

	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsUpdated > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) updated", result.RecordsUpdated))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}
	if result.Document != nil {
		parts = append(parts, fmt.Sprintf("id %s", query.Stringify(result.Document.ID())))
	}

	if len(parts) == 0 {
		fmt.Fprintf(w, "OK (%s)\n", formatDuration(result.ExecutionTimeSec))
		return
	}
	fmt.Fprintf(w, "%s (%s)\n", strings.Join(parts, ", "), formatDuration(result.ExecutionTimeSec))
}

func (result UpsertResult) Display(w io.Writer) {
	switch result.Kind {
	case Inserted:
		id := ""
		if result.Document != nil {
			id = query.Stringify(result.Document.ID())
		}
		fmt.Fprintf(w, "1 record(s) inserted, id %s (%s)\n", id, formatDuration(result.ExecutionTimeSec))
	default:
		fmt.Fprintf(w, "%d record(s) updated (%s)\n", result.Count, formatDuration(result.ExecutionTimeSec))
	}
}
