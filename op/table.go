package op

import (
	"fmt"

	"github.com/nickyhof/SheetDB/core"
)

type TableOp struct {
	Table core.Table
	Store Store
}

func CreateTable(name string, columns []string, store Store) (*TableOp, bool, error) {
	table := core.NewTable(name, columns)

	created, err := store.CreateTable(table.Name, table.Headers)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Keep whatever header the existing table has.
		existing, err := store.GetTable(name)
		if err != nil {
			return nil, false, err
		}
		table = existing
	}

	return &TableOp{
		Table: table,
		Store: store,
	}, created, nil
}

func GetTable(name string, store Store) (*TableOp, error) {
	table, err := store.GetTable(name)
	if err != nil {
		return nil, err
	}

	return &TableOp{
		Table: table,
		Store: store,
	}, nil
}

// Snapshot reads every data row and decodes it, tagging each document with
// its physical position. The header row read alongside replaces the cached
// one.
func (op *TableOp) Snapshot() ([]core.Document, error) {
	headers, rows, err := op.Store.ReadAll(op.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", op.Table.Name, err)
	}
	op.Table.Headers = headers

	docs := make([]core.Document, len(rows))
	for i, row := range rows {
		docs[i] = Decode(headers, row, Position(i))
	}
	return docs, nil
}

func (op *TableOp) Append(fields map[string]any) error {
	return op.Store.AppendRow(op.Table, Encode(op.Table.Headers, fields))
}

// WriteCell sets one column of the row at position. Unknown columns are an
// error.
func (op *TableOp) WriteCell(position int, column string, value any) error {
	index := op.Table.ColumnIndex(column)
	if index < 0 {
		return fmt.Errorf("table %s has no column %q", op.Table.Name, column)
	}
	return op.Store.WriteCell(op.Table, position, index+1, value)
}

func (op *TableOp) DeleteAt(position int) error {
	return op.Store.DeleteRowAt(op.Table, position)
}

func (op *TableOp) Headers() []string {
	return op.Table.Headers
}
