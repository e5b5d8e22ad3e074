package ps

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/op"
)

var (
	ErrBatchClosed = errors.New("batch already committed or rolled back")
	ErrEmptyBatch  = errors.New("no operations to commit")
)

var (
	_ op.Store   = (*Batch)(nil)
	_ op.Batcher = (*SheetStore)(nil)
)

// Batch collects sheet writes and records them as a single commit. Each
// sheet is read from HEAD on first use and edited in memory; reads through
// the batch see its own pending writes. Commit writes every touched sheet
// whole, so changes made to those sheets outside the batch in the meantime
// are overwritten.
type Batch struct {
	persistence *Persistence
	identity    core.Identity
	sheets      map[string]*Sheet
	dirty       map[string]bool
	operations  int
	started     bool
}

// BeginBatch starts a batch whose commit is authored by identity.
func (p *Persistence) BeginBatch(identity core.Identity) (*Batch, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	return &Batch{
		persistence: p,
		identity:    identity,
		sheets:      make(map[string]*Sheet),
		dirty:       make(map[string]bool),
		started:     true,
	}, nil
}

func (b *Batch) sheet(name string) (*Sheet, error) {
	if !b.started {
		return nil, ErrBatchClosed
	}
	if sheet, ok := b.sheets[name]; ok {
		if sheet == nil {
			return nil, core.TableNotFound(name)
		}
		return sheet, nil
	}

	sheet, err := b.persistence.ReadSheet(name)
	if errors.Is(err, core.ErrTableNotFound) {
		b.sheets[name] = nil
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	sheet = sheet.clone()
	b.sheets[name] = sheet
	return sheet, nil
}

func (b *Batch) mutate(name string, fn func(*Sheet) error) error {
	sheet, err := b.sheet(name)
	if err != nil {
		return err
	}
	if err := fn(sheet); err != nil {
		return err
	}
	b.dirty[name] = true
	b.operations++
	return nil
}

// Commit writes every sheet the batch changed in one commit. An empty
// message is replaced with a count of the operations.
func (b *Batch) Commit(message string) (Transaction, error) {
	if !b.started {
		return Transaction{}, ErrBatchClosed
	}
	if b.operations == 0 {
		return Transaction{}, ErrEmptyBatch
	}
	if message == "" {
		message = fmt.Sprintf("Batch transaction: %d operation(s)", b.operations)
	}

	p := b.persistence
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.headTreeHash()
	if err != nil {
		return Transaction{}, err
	}

	names := make([]string, 0, len(b.dirty))
	for name := range b.dirty {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := b.sheets[name].encode()
		if err != nil {
			return Transaction{}, err
		}
		blob, err := p.createBlob(data)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", name, err)
		}
		tree, err = p.setPath(tree, sheetPath(name), blob)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
		}
	}

	txn, err := p.commitTree(tree, b.identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}
	b.Rollback()
	return txn, nil
}

// Rollback discards all pending writes.
func (b *Batch) Rollback() {
	b.started = false
	b.sheets = nil
	b.dirty = nil
	b.operations = 0
}

// OperationCount returns the number of pending writes.
func (b *Batch) OperationCount() int {
	return b.operations
}

func (b *Batch) GetTable(name string) (core.Table, error) {
	sheet, err := b.sheet(name)
	if err != nil {
		return core.Table{}, err
	}
	return core.Table{Name: sheet.Name, Headers: sheet.Headers}, nil
}

func (b *Batch) CreateTable(name string, headers []string) (bool, error) {
	if err := validateSheetName(name); err != nil {
		return false, err
	}
	_, err := b.sheet(name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, core.ErrTableNotFound) {
		return false, err
	}

	b.sheets[name] = &Sheet{Name: name, Headers: append([]string(nil), headers...)}
	b.dirty[name] = true
	b.operations++
	return true, nil
}

func (b *Batch) ReadAll(table core.Table) ([]string, [][]any, error) {
	sheet, err := b.sheet(table.Name)
	if err != nil {
		return nil, nil, err
	}
	return sheet.Headers, sheet.Rows, nil
}

func (b *Batch) AppendRow(table core.Table, values []any) error {
	return b.mutate(table.Name, func(sheet *Sheet) error {
		sheet.appendRow(values)
		return nil
	})
}

func (b *Batch) WriteCell(table core.Table, row, column int, value any) error {
	return b.mutate(table.Name, func(sheet *Sheet) error {
		return sheet.writeCell(row, column, value)
	})
}

func (b *Batch) DeleteRowAt(table core.Table, row int) error {
	return b.mutate(table.Name, func(sheet *Sheet) error {
		return sheet.deleteRow(row)
	})
}

// ListTables lists the sheets at HEAD plus those created in the batch.
func (b *Batch) ListTables() ([]string, error) {
	if !b.started {
		return nil, ErrBatchClosed
	}
	names, err := b.persistence.ListSheets()
	if err != nil {
		return nil, err
	}
	for name, sheet := range b.sheets {
		if sheet != nil && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Batch runs fn against a batch and commits whatever it wrote. Nothing is
// committed when fn fails or writes nothing.
func (s *SheetStore) Batch(message string, fn func(op.Store) error) error {
	batch, err := s.persistence.BeginBatch(s.identity)
	if err != nil {
		return err
	}
	if err := fn(batch); err != nil {
		batch.Rollback()
		return err
	}
	if batch.OperationCount() == 0 {
		batch.Rollback()
		return nil
	}
	_, err = batch.Commit(message)
	return err
}
