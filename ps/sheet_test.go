package ps

import (
	"errors"
	"testing"

	"github.com/nickyhof/SheetDB/core"
)

func setupSheet(t *testing.T, rows ...[]any) *Persistence {
	t.Helper()

	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	created, err := p.CreateSheet("tasks", []string{"id", "status", "score"}, testIdentity)
	if err != nil {
		t.Fatalf("Failed to create sheet: %v", err)
	}
	if !created {
		t.Fatal("Expected sheet to be created")
	}
	for _, row := range rows {
		if _, err := p.AppendRow("tasks", row, testIdentity); err != nil {
			t.Fatalf("Failed to append row: %v", err)
		}
	}
	return p
}

func TestCreateSheetTwice(t *testing.T) {
	p := setupSheet(t)
	before := p.LatestTransaction()

	created, err := p.CreateSheet("tasks", []string{"other"}, testIdentity)
	if err != nil {
		t.Fatalf("CreateSheet failed: %v", err)
	}
	if created {
		t.Error("Expected existing sheet not to be recreated")
	}
	if p.LatestTransaction().Id != before.Id {
		t.Error("Expected no commit for an existing sheet")
	}

	sheet, _ := p.ReadSheet("tasks")
	if len(sheet.Headers) != 3 || sheet.Headers[1] != "status" {
		t.Errorf("Expected original headers, got %v", sheet.Headers)
	}
}

func TestReadMissingSheet(t *testing.T) {
	p, _ := NewMemoryPersistence()

	if _, err := p.ReadSheet("nope"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound on empty repo, got %v", err)
	}

	p = setupSheet(t)
	if _, err := p.ReadSheet("nope"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
	if _, err := p.AppendRow("nope", []any{"1"}, testIdentity); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound from AppendRow, got %v", err)
	}
}

func TestInvalidSheetName(t *testing.T) {
	p, _ := NewMemoryPersistence()

	for _, name := range []string{"", "a/b", ".hidden"} {
		if _, err := p.CreateSheet(name, []string{"id"}, testIdentity); !errors.Is(err, ErrInvalidSheetName) {
			t.Errorf("Expected ErrInvalidSheetName for %q, got %v", name, err)
		}
	}
}

func TestAppendAndReadRows(t *testing.T) {
	p := setupSheet(t, []any{"1", "OPEN", 85}, []any{"2", "CLOSED", 95})

	sheet, err := p.ReadSheet("tasks")
	if err != nil {
		t.Fatalf("ReadSheet failed: %v", err)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(sheet.Rows))
	}
	// Numbers come back as JSON numbers.
	if sheet.Rows[1][2] != float64(95) {
		t.Errorf("Expected score 95, got %v (%T)", sheet.Rows[1][2], sheet.Rows[1][2])
	}
}

func TestWriteCell(t *testing.T) {
	p := setupSheet(t, []any{"1", "OPEN", 85}, []any{"2"})

	if _, err := p.WriteCell("tasks", 2, 2, "DONE", testIdentity); err != nil {
		t.Fatalf("WriteCell failed: %v", err)
	}
	// Short rows are padded up to the written column.
	if _, err := p.WriteCell("tasks", 3, 3, 10, testIdentity); err != nil {
		t.Fatalf("WriteCell on short row failed: %v", err)
	}

	sheet, _ := p.ReadSheet("tasks")
	if sheet.Rows[0][1] != "DONE" {
		t.Errorf("Expected DONE, got %v", sheet.Rows[0][1])
	}
	if len(sheet.Rows[1]) != 3 || sheet.Rows[1][1] != "" || sheet.Rows[1][2] != float64(10) {
		t.Errorf("Unexpected padded row: %v", sheet.Rows[1])
	}

	for _, pos := range []int{0, 1, 4} {
		if _, err := p.WriteCell("tasks", pos, 1, "x", testIdentity); !errors.Is(err, ErrRowOutOfRange) {
			t.Errorf("Expected ErrRowOutOfRange for row %d, got %v", pos, err)
		}
	}
	for _, col := range []int{0, 4} {
		if _, err := p.WriteCell("tasks", 2, col, "x", testIdentity); !errors.Is(err, ErrColumnOutOfRange) {
			t.Errorf("Expected ErrColumnOutOfRange for column %d, got %v", col, err)
		}
	}
}

func TestDeleteRow(t *testing.T) {
	p := setupSheet(t, []any{"1"}, []any{"2"}, []any{"3"})

	if _, err := p.DeleteRow("tasks", 3, testIdentity); err != nil {
		t.Fatalf("DeleteRow failed: %v", err)
	}

	sheet, _ := p.ReadSheet("tasks")
	if len(sheet.Rows) != 2 || sheet.Rows[0][0] != "1" || sheet.Rows[1][0] != "3" {
		t.Errorf("Unexpected rows after delete: %v", sheet.Rows)
	}

	if _, err := p.DeleteRow("tasks", 4, testIdentity); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("Expected ErrRowOutOfRange, got %v", err)
	}
}

func TestListAndDropSheets(t *testing.T) {
	p := setupSheet(t)
	if _, err := p.CreateSheet("people", []string{"id"}, testIdentity); err != nil {
		t.Fatalf("CreateSheet failed: %v", err)
	}
	if _, err := p.WriteFileDirect("notes.txt", []byte("x"), testIdentity, "notes"); err != nil {
		t.Fatalf("WriteFileDirect failed: %v", err)
	}

	names, err := p.ListSheets()
	if err != nil {
		t.Fatalf("ListSheets failed: %v", err)
	}
	if len(names) != 2 || names[0] != "people" || names[1] != "tasks" {
		t.Errorf("Expected [people tasks], got %v", names)
	}

	if _, err := p.DropSheet("people", testIdentity); err != nil {
		t.Fatalf("DropSheet failed: %v", err)
	}
	names, _ = p.ListSheets()
	if len(names) != 1 || names[0] != "tasks" {
		t.Errorf("Expected [tasks], got %v", names)
	}
	if _, err := p.DropSheet("people", testIdentity); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound dropping twice, got %v", err)
	}
}

func TestSheetStore(t *testing.T) {
	p, _ := NewMemoryPersistence()
	alice := core.Identity{Name: "alice", Email: "alice@example.com"}
	store := p.Sheets(alice)

	if _, err := store.GetTable("tasks"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}

	created, err := store.CreateTable("tasks", []string{"id", "status"})
	if err != nil || !created {
		t.Fatalf("CreateTable failed: created=%v err=%v", created, err)
	}

	table, err := store.GetTable("tasks")
	if err != nil {
		t.Fatalf("GetTable failed: %v", err)
	}
	if table.Name != "tasks" || len(table.Headers) != 2 {
		t.Errorf("Unexpected table: %+v", table)
	}

	if err := store.AppendRow(table, []any{"1", "OPEN"}); err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}
	if err := store.WriteCell(table, 2, 2, "CLOSED"); err != nil {
		t.Fatalf("WriteCell failed: %v", err)
	}

	headers, rows, err := store.ReadAll(table)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(headers) != 2 || len(rows) != 1 || rows[0][1] != "CLOSED" {
		t.Errorf("Unexpected contents: %v %v", headers, rows)
	}

	if err := store.DeleteRowAt(table, 2); err != nil {
		t.Fatalf("DeleteRowAt failed: %v", err)
	}
	_, rows, _ = store.ReadAll(table)
	if len(rows) != 0 {
		t.Errorf("Expected no rows, got %v", rows)
	}

	tables, _ := store.ListTables()
	if len(tables) != 1 || tables[0] != "tasks" {
		t.Errorf("Expected [tasks], got %v", tables)
	}

	if author := p.LatestTransaction().Author; author != alice.String() {
		t.Errorf("Expected commits authored by %s, got %s", alice, author)
	}
}
