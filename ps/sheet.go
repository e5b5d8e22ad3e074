package ps

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/goccy/go-json"
	"github.com/nickyhof/SheetDB/core"
)

const sheetExt = ".sheet"

var (
	ErrRowOutOfRange    = errors.New("row out of range")
	ErrColumnOutOfRange = errors.New("column out of range")
	ErrInvalidSheetName = errors.New("invalid sheet name")
)

// Sheet is the stored form of a table: a header row followed by data rows.
// Row position p (1-based, header at 1) lives at Rows[p-2].
type Sheet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

func (sheet *Sheet) rowIndex(position int) (int, error) {
	index := position - core.HeaderRow - 1
	if index < 0 || index >= len(sheet.Rows) {
		return 0, fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, sheet.Name, position)
	}
	return index, nil
}

func (sheet *Sheet) appendRow(values []any) {
	sheet.Rows = append(sheet.Rows, append([]any(nil), values...))
}

func (sheet *Sheet) writeCell(row, column int, value any) error {
	index, err := sheet.rowIndex(row)
	if err != nil {
		return err
	}
	if column < 1 || column > len(sheet.Headers) {
		return fmt.Errorf("%w: %s column %d", ErrColumnOutOfRange, sheet.Name, column)
	}

	cells := sheet.Rows[index]
	for len(cells) < column {
		cells = append(cells, "")
	}
	cells[column-1] = value
	sheet.Rows[index] = cells
	return nil
}

func (sheet *Sheet) deleteRow(row int) error {
	index, err := sheet.rowIndex(row)
	if err != nil {
		return err
	}
	sheet.Rows = append(sheet.Rows[:index], sheet.Rows[index+1:]...)
	return nil
}

// clone copies the row slices so edits do not reach the original.
func (sheet *Sheet) clone() *Sheet {
	rows := make([][]any, len(sheet.Rows))
	for i, row := range sheet.Rows {
		rows[i] = append([]any(nil), row...)
	}
	return &Sheet{Name: sheet.Name, Headers: append([]string(nil), sheet.Headers...), Rows: rows}
}

func (sheet *Sheet) encode() ([]byte, error) {
	if sheet.Rows == nil {
		sheet.Rows = [][]any{}
	}
	data, err := json.Marshal(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sheet %s: %w", sheet.Name, err)
	}
	return data, nil
}

func sheetPath(name string) string {
	return name + sheetExt
}

func validateSheetName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidSheetName, name)
	}
	return nil
}

func (p *Persistence) readSheet(name string) (*Sheet, error) {
	if err := validateSheetName(name); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if errors.Is(err, errNoCommits) {
		return nil, core.TableNotFound(name)
	}
	if err != nil {
		return nil, err
	}

	file, err := tree.File(sheetPath(name))
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, core.TableNotFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet %s: %w", name, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}

	var sheet Sheet
	if err := json.Unmarshal([]byte(content), &sheet); err != nil {
		return nil, fmt.Errorf("failed to decode sheet %s: %w", name, err)
	}
	return &sheet, nil
}

func (p *Persistence) writeSheet(sheet *Sheet, identity core.Identity, message string) (Transaction, error) {
	data, err := sheet.encode()
	if err != nil {
		return Transaction{}, err
	}
	return p.WriteFileDirect(sheetPath(sheet.Name), data, identity, message)
}

// CreateSheet stores an empty sheet with the given header row. It reports
// false, without committing, when the sheet already exists.
func (p *Persistence) CreateSheet(name string, headers []string, identity core.Identity) (bool, error) {
	if err := p.ensureInitialized(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.readSheet(name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, core.ErrTableNotFound) {
		return false, err
	}

	sheet := &Sheet{Name: name, Headers: append([]string(nil), headers...)}
	if _, err := p.writeSheet(sheet, identity, fmt.Sprintf("Creating sheet %s", name)); err != nil {
		return false, err
	}
	return true, nil
}

// ReadSheet returns the sheet as of HEAD.
func (p *Persistence) ReadSheet(name string) (*Sheet, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.readSheet(name)
}

// DropSheet removes a sheet in one commit.
func (p *Persistence) DropSheet(name string, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.readSheet(name); err != nil {
		return Transaction{}, err
	}
	return p.DeletePathDirect([]string{sheetPath(name)}, identity, fmt.Sprintf("Dropping sheet %s", name))
}

// ListSheets returns the names of all sheets, sorted.
func (p *Persistence) ListSheets() ([]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := p.ListEntriesDirect("")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir && strings.HasSuffix(entry.Name, sheetExt) {
			names = append(names, strings.TrimSuffix(entry.Name, sheetExt))
		}
	}
	sort.Strings(names)
	return names, nil
}

// AppendRow adds a row after the last data row.
func (p *Persistence) AppendRow(name string, values []any, identity core.Identity) (Transaction, error) {
	return p.mutateSheet(name, identity, fmt.Sprintf("Appending row to %s", name), func(sheet *Sheet) error {
		sheet.appendRow(values)
		return nil
	})
}

// WriteCell overwrites the cell at a 1-based row and column. Rows shorter
// than the column are padded with empty strings.
func (p *Persistence) WriteCell(name string, row, column int, value any, identity core.Identity) (Transaction, error) {
	message := fmt.Sprintf("Writing %s R%dC%d", name, row, column)
	return p.mutateSheet(name, identity, message, func(sheet *Sheet) error {
		return sheet.writeCell(row, column, value)
	})
}

// DeleteRow removes the data row at a 1-based position; later rows shift up
// by one.
func (p *Persistence) DeleteRow(name string, row int, identity core.Identity) (Transaction, error) {
	message := fmt.Sprintf("Deleting row %d from %s", row, name)
	return p.mutateSheet(name, identity, message, func(sheet *Sheet) error {
		return sheet.deleteRow(row)
	})
}

func (p *Persistence) mutateSheet(name string, identity core.Identity, message string, mutate func(*Sheet) error) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	sheet, err := p.readSheet(name)
	if err != nil {
		return Transaction{}, err
	}
	if err := mutate(sheet); err != nil {
		return Transaction{}, err
	}
	return p.writeSheet(sheet, identity, message)
}

// SheetStore adapts a Persistence to the table store used by the engine.
// Every write is committed as identity.
type SheetStore struct {
	persistence *Persistence
	identity    core.Identity
}

// Sheets returns a store whose commits are authored by identity.
func (p *Persistence) Sheets(identity core.Identity) *SheetStore {
	return &SheetStore{persistence: p, identity: identity}
}

func (s *SheetStore) Persistence() *Persistence {
	return s.persistence
}

func (s *SheetStore) Identity() core.Identity {
	return s.identity
}

func (s *SheetStore) GetTable(name string) (core.Table, error) {
	sheet, err := s.persistence.ReadSheet(name)
	if err != nil {
		return core.Table{}, err
	}
	return core.Table{Name: sheet.Name, Headers: sheet.Headers}, nil
}

func (s *SheetStore) CreateTable(name string, headers []string) (bool, error) {
	return s.persistence.CreateSheet(name, headers, s.identity)
}

func (s *SheetStore) ReadAll(table core.Table) ([]string, [][]any, error) {
	sheet, err := s.persistence.ReadSheet(table.Name)
	if err != nil {
		return nil, nil, err
	}
	return sheet.Headers, sheet.Rows, nil
}

func (s *SheetStore) AppendRow(table core.Table, values []any) error {
	_, err := s.persistence.AppendRow(table.Name, values, s.identity)
	return err
}

func (s *SheetStore) WriteCell(table core.Table, row, column int, value any) error {
	_, err := s.persistence.WriteCell(table.Name, row, column, value, s.identity)
	return err
}

func (s *SheetStore) DeleteRowAt(table core.Table, row int) error {
	_, err := s.persistence.DeleteRow(table.Name, row, s.identity)
	return err
}

func (s *SheetStore) ListTables() ([]string, error) {
	return s.persistence.ListSheets()
}
