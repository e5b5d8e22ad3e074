package core

import "slices"

// IDColumn is the reserved column that identifies a document within its table.
const IDColumn = "id"

// HeaderRow is the physical position of the header row. Data rows start at
// HeaderRow+1.
const HeaderRow = 1

type Table struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
}

// NewTable builds a table definition, injecting the id column at the front
// when the caller did not declare it.
func NewTable(name string, columns []string) Table {
	headers := make([]string, 0, len(columns)+1)
	if !slices.Contains(columns, IDColumn) {
		headers = append(headers, IDColumn)
	}
	headers = append(headers, columns...)

	return Table{
		Name:    name,
		Headers: headers,
	}
}

// ColumnIndex returns the 0-based index of a header, or -1.
func (table Table) ColumnIndex(column string) int {
	return slices.Index(table.Headers, column)
}

// Document is one logical row. Row is the 1-based physical position at the
// time of the read that produced it; zero for documents that were never read
// from a store.
type Document struct {
	Fields map[string]any `json:"fields"`
	Row    int            `json:"-"`
}

// NewDocument wraps a field map without a position.
func NewDocument(fields map[string]any) Document {
	if fields == nil {
		fields = make(map[string]any)
	}
	return Document{Fields: fields}
}

// Get returns the value stored under column. Absent columns report false.
func (doc Document) Get(column string) (any, bool) {
	value, ok := doc.Fields[column]
	return value, ok
}

// ID returns the document's id value.
func (doc Document) ID() any {
	return doc.Fields[IDColumn]
}

// Clone returns a copy with its own field map.
func (doc Document) Clone() Document {
	fields := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = v
	}
	return Document{Fields: fields, Row: doc.Row}
}

// Options controls post-filter ordering and truncation of a select.
type Options struct {
	OrderBy string `json:"orderBy,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}
