package op

import "github.com/nickyhof/SheetDB/core"

// Store is a backing grid of named tables. Row and column positions are
// 1-based; row 1 is the header row.
type Store interface {
	// GetTable returns the table, or an error wrapping core.ErrTableNotFound.
	GetTable(name string) (core.Table, error)
	// CreateTable creates a table with the given header row. It returns
	// false when the table already exists.
	CreateTable(name string, headers []string) (bool, error)
	// ReadAll returns the header row and every data row.
	ReadAll(table core.Table) (headers []string, rows [][]any, err error)
	AppendRow(table core.Table, values []any) error
	WriteCell(table core.Table, row, column int, value any) error
	DeleteRowAt(table core.Table, row int) error
	ListTables() ([]string, error)
}

// Batcher is implemented by stores that can record the writes made by fn as
// one change. Nothing fn wrote is kept when it returns an error.
type Batcher interface {
	Batch(message string, fn func(Store) error) error
}
