package ps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nickyhof/SheetDB/core"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func TestNewMemoryPersistence(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create memory persistence: %v", err)
	}

	if !persistence.IsInitialized() {
		t.Error("Expected persistence to be initialized")
	}
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence Persistence

	if persistence.IsInitialized() {
		t.Error("Expected uninitialized persistence to return false")
	}

	if err := persistence.ensureInitialized(); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}

	if _, err := persistence.ReadSheet("tasks"); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized from ReadSheet, got %v", err)
	}
}

func TestFilePersistenceReopen(t *testing.T) {
	dir := t.TempDir()

	persistence, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	if _, err := persistence.CreateSheet("tasks", []string{"id", "status"}, testIdentity); err != nil {
		t.Fatalf("Failed to create sheet: %v", err)
	}
	if _, err := persistence.AppendRow("tasks", []any{"1", "OPEN"}, testIdentity); err != nil {
		t.Fatalf("Failed to append row: %v", err)
	}

	// The worktree is kept in sync with HEAD.
	if _, err := os.Stat(filepath.Join(dir, "tasks.sheet")); err != nil {
		t.Errorf("Expected tasks.sheet in worktree: %v", err)
	}

	reopened, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to reopen persistence: %v", err)
	}

	sheet, err := reopened.ReadSheet("tasks")
	if err != nil {
		t.Fatalf("Failed to read sheet after reopen: %v", err)
	}
	if len(sheet.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(sheet.Rows))
	}
	if sheet.Rows[0][1] != "OPEN" {
		t.Errorf("Expected status OPEN, got %v", sheet.Rows[0][1])
	}
}

func TestLatestTransactionAndLog(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	if txn := persistence.LatestTransaction(); txn.Id != "" {
		t.Errorf("Expected empty transaction before first write, got %v", txn)
	}
	log, err := persistence.Log(0)
	if err != nil {
		t.Fatalf("Failed to read empty log: %v", err)
	}
	if len(log) != 0 {
		t.Errorf("Expected empty log, got %d entries", len(log))
	}

	if _, err := persistence.CreateSheet("tasks", []string{"id"}, testIdentity); err != nil {
		t.Fatalf("Failed to create sheet: %v", err)
	}
	txn, err := persistence.AppendRow("tasks", []any{"1"}, testIdentity)
	if err != nil {
		t.Fatalf("Failed to append row: %v", err)
	}

	latest := persistence.LatestTransaction()
	if latest.Id != txn.Id {
		t.Errorf("Expected latest %s, got %s", txn.Id, latest.Id)
	}
	if latest.Author != "test <test@test.com>" {
		t.Errorf("Unexpected author: %s", latest.Author)
	}
	if latest.Message != "Appending row to tasks" {
		t.Errorf("Unexpected message: %q", latest.Message)
	}

	log, err = persistence.Log(0)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("Expected 2 commits, got %d", len(log))
	}
	if log[1].Message != "Creating sheet tasks" {
		t.Errorf("Expected oldest commit to create the sheet, got %q", log[1].Message)
	}

	limited, err := persistence.Log(1)
	if err != nil {
		t.Fatalf("Failed to read limited log: %v", err)
	}
	if len(limited) != 1 || limited[0].Id != txn.Id {
		t.Errorf("Expected only the newest commit, got %v", limited)
	}

	since, err := persistence.TransactionsSince(log[1].When)
	if err != nil {
		t.Fatalf("Failed to read transactions since: %v", err)
	}
	if len(since) != 2 {
		t.Errorf("Expected 2 transactions since first commit, got %d", len(since))
	}
}
