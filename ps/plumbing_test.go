package ps

import (
	"testing"
)

func TestPlumbingWriteAndReadFile(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	txn, err := p.WriteFileDirect("a.txt", []byte("one"), testIdentity, "write a")
	if err != nil {
		t.Fatalf("WriteFileDirect failed: %v", err)
	}
	if txn.Id == "" {
		t.Error("Transaction ID should not be empty")
	}

	data, err := p.ReadFileDirect("a.txt")
	if err != nil {
		t.Fatalf("ReadFileDirect failed: %v", err)
	}
	if string(data) != "one" {
		t.Errorf("Data mismatch: got %s", string(data))
	}

	// Overwrite keeps a single entry.
	if _, err := p.WriteFileDirect("a.txt", []byte("two"), testIdentity, "rewrite a"); err != nil {
		t.Fatalf("WriteFileDirect failed: %v", err)
	}
	data, _ = p.ReadFileDirect("a.txt")
	if string(data) != "two" {
		t.Errorf("Expected overwritten data, got %s", string(data))
	}

	entries, err := p.ListEntriesDirect("")
	if err != nil {
		t.Fatalf("ListEntriesDirect failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
}

func TestPlumbingNestedPaths(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	for _, path := range []string{"dir/b.txt", "dir/a.txt", "root.txt"} {
		if _, err := p.WriteFileDirect(path, []byte(path), testIdentity, "write "+path); err != nil {
			t.Fatalf("WriteFileDirect %s failed: %v", path, err)
		}
	}

	entries, err := p.ListEntriesDirect("dir")
	if err != nil {
		t.Fatalf("ListEntriesDirect failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a.txt" || entries[1].Name != "b.txt" {
		t.Errorf("Unexpected dir entries: %v", entries)
	}

	root, _ := p.ListEntriesDirect("")
	var sawDir bool
	for _, e := range root {
		if e.Name == "dir" && e.IsDir {
			sawDir = true
		}
	}
	if !sawDir {
		t.Errorf("Expected dir entry at root, got %v", root)
	}

	if _, err := p.DeletePathDirect([]string{"dir/a.txt", "dir/b.txt"}, testIdentity, "delete dir"); err != nil {
		t.Fatalf("DeletePathDirect failed: %v", err)
	}

	root, _ = p.ListEntriesDirect("")
	if len(root) != 1 || root[0].Name != "root.txt" {
		t.Errorf("Expected empty directory to be pruned, got %v", root)
	}
	if _, err := p.ReadFileDirect("dir/a.txt"); err == nil {
		t.Error("Expected deleted file to be gone")
	}
}

func TestPlumbingEmptyRepository(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	entries, err := p.ListEntriesDirect("")
	if err != nil {
		t.Fatalf("ListEntriesDirect on empty repo failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %v", entries)
	}

	if _, err := p.DeletePathDirect([]string{"x"}, testIdentity, "delete"); err == nil {
		t.Error("Expected delete on empty repository to fail")
	}
}
