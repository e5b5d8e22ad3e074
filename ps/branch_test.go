package ps

import (
	"errors"
	"slices"
	"testing"
)

func rowCount(t *testing.T, p *Persistence, name string) int {
	t.Helper()
	sheet, err := p.ReadSheet(name)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return len(sheet.Rows)
}

func TestBranch(t *testing.T) {
	p := setupSheet(t, []any{"1", "OPEN", 10})

	if err := p.Branch("feature", nil); err != nil {
		t.Fatalf("Branch failed: %v", err)
	}
	branches, err := p.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches failed: %v", err)
	}
	if !slices.Equal(branches, []string{"feature", "master"}) {
		t.Errorf("Unexpected branches: %v", branches)
	}

	if err := p.Branch("feature", nil); !errors.Is(err, ErrBranchExists) {
		t.Errorf("Expected ErrBranchExists, got %v", err)
	}
	if current, _ := p.CurrentBranch(); current != "master" {
		t.Errorf("Expected master to stay checked out, got %s", current)
	}
}

func TestBranchBeforeFirstCommit(t *testing.T) {
	p, _ := NewMemoryPersistence()
	if err := p.Branch("feature", nil); !errors.Is(err, errNoCommits) {
		t.Errorf("Expected errNoCommits, got %v", err)
	}
}

func TestBranchFromTransaction(t *testing.T) {
	p := setupSheet(t)
	created := p.LatestTransaction()

	p.AppendRow("tasks", []any{"1", "OPEN", 10}, testIdentity)
	if rowCount(t, p, "tasks") != 1 {
		t.Fatal("Expected one row on master")
	}

	if err := p.Branch("old-state", &created); err != nil {
		t.Fatalf("Branch from transaction failed: %v", err)
	}
	if err := p.Checkout("old-state"); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if rowCount(t, p, "tasks") != 0 {
		t.Error("Expected the empty sheet on old-state")
	}

	if err := p.Checkout("master"); err != nil {
		t.Fatalf("Checkout master failed: %v", err)
	}
	if rowCount(t, p, "tasks") != 1 {
		t.Error("Expected the row back on master")
	}

	missing := Transaction{Id: "0123456789012345678901234567890123456789"}
	if err := p.Branch("bad", &missing); err == nil {
		t.Error("Expected branching from an unknown transaction to fail")
	}
}

func TestCheckoutWritesToBranch(t *testing.T) {
	p := setupSheet(t, []any{"1", "OPEN", 10})
	p.Branch("feature", nil)

	if err := p.Checkout("feature"); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if current, _ := p.CurrentBranch(); current != "feature" {
		t.Errorf("Expected feature checked out, got %s", current)
	}
	if _, err := p.AppendRow("tasks", []any{"2", "OPEN", 20}, testIdentity); err != nil {
		t.Fatalf("Append on branch failed: %v", err)
	}
	if rowCount(t, p, "tasks") != 2 {
		t.Error("Expected 2 rows on feature")
	}

	p.Checkout("master")
	if rowCount(t, p, "tasks") != 1 {
		t.Error("Expected branch write not to reach master")
	}

	if err := p.Checkout("nope"); !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("Expected ErrBranchNotFound, got %v", err)
	}
}

func TestMergeFastForward(t *testing.T) {
	p := setupSheet(t, []any{"1", "OPEN", 10})
	p.Branch("feature", nil)
	p.Checkout("feature")
	p.AppendRow("tasks", []any{"2", "OPEN", 20}, testIdentity)
	tip := p.LatestTransaction()
	p.Checkout("master")

	txn, err := p.Merge("feature")
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if txn.Id != tip.Id {
		t.Errorf("Expected master at %s, got %s", tip.Id, txn.Id)
	}
	if rowCount(t, p, "tasks") != 2 {
		t.Error("Expected merged row on master")
	}

	again, err := p.Merge("feature")
	if err != nil || again.Id != tip.Id {
		t.Errorf("Expected repeated merge to be a no-op, got %v %v", again, err)
	}
}

func TestMergeDiverged(t *testing.T) {
	p := setupSheet(t)
	p.Branch("feature", nil)
	p.Checkout("feature")
	p.AppendRow("tasks", []any{"f", "OPEN", 1}, testIdentity)
	p.Checkout("master")
	p.AppendRow("tasks", []any{"m", "OPEN", 2}, testIdentity)

	if _, err := p.Merge("feature"); !errors.Is(err, ErrDiverged) {
		t.Errorf("Expected ErrDiverged, got %v", err)
	}
	if _, err := p.Merge("nope"); !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("Expected ErrBranchNotFound, got %v", err)
	}
}

func TestDeleteBranch(t *testing.T) {
	p := setupSheet(t)
	p.Branch("feature", nil)

	if err := p.DeleteBranch("master"); err == nil {
		t.Error("Expected deleting the checked out branch to fail")
	}
	if err := p.DeleteBranch("feature"); err != nil {
		t.Fatalf("DeleteBranch failed: %v", err)
	}
	if branches, _ := p.ListBranches(); !slices.Equal(branches, []string{"master"}) {
		t.Errorf("Expected only master, got %v", branches)
	}
	if err := p.DeleteBranch("feature"); !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("Expected ErrBranchNotFound, got %v", err)
	}
}

func TestBranchFilePersistence(t *testing.T) {
	p, err := NewFilePersistence(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	p.CreateSheet("tasks", []string{"id"}, testIdentity)
	p.Branch("feature", nil)
	p.Checkout("feature")
	p.AppendRow("tasks", []any{"1"}, testIdentity)

	if err := p.Checkout("master"); err != nil {
		t.Fatalf("Checkout master failed: %v", err)
	}
	if rowCount(t, p, "tasks") != 0 {
		t.Error("Expected master to have no rows")
	}
	if _, err := p.Merge("feature"); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rowCount(t, p, "tasks") != 1 {
		t.Error("Expected merged row on master")
	}
}
