package ps

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/SheetDB/core"
)

var errNoCommits = errors.New("no commits yet")

// createBlob stores data as a blob object without touching the worktree.
func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// headTree returns the tree of the HEAD commit, or errNoCommits on a fresh
// repository.
func (p *Persistence) headTree() (*object.Tree, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return nil, errNoCommits
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get head commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return tree, nil
}

func (p *Persistence) headTreeHash() (plumbing.Hash, error) {
	tree, err := p.headTree()
	if errors.Is(err, errNoCommits) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return tree.Hash, nil
}

func (p *Persistence) treeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(p.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}
	return entries, nil
}

// storeTree writes a tree built from entries. An empty entry set yields
// ZeroHash so the parent can drop the directory.
func (p *Persistence) storeTree(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	list := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		list = append(list, entry)
	}
	// Git orders directories as if their name ended in a slash.
	sortKey := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(list, func(i, j int) bool {
		return sortKey(list[i]) < sortKey(list[j])
	})

	obj := p.repo.Storer.NewEncodedObject()
	if err := (&object.Tree{Entries: list}).Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}
	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// setPath returns a new root tree with filePath pointing at blobHash, or
// removed when blobHash is ZeroHash.
func (p *Persistence) setPath(treeHash plumbing.Hash, filePath string, blobHash plumbing.Hash) (plumbing.Hash, error) {
	return p.setPathParts(treeHash, strings.Split(filePath, "/"), blobHash)
}

func (p *Persistence) setPathParts(treeHash plumbing.Hash, parts []string, blobHash plumbing.Hash) (plumbing.Hash, error) {
	if len(parts) == 0 || parts[0] == "" {
		return plumbing.ZeroHash, fmt.Errorf("empty path")
	}

	entries, err := p.treeEntries(treeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	name := parts[0]
	if len(parts) == 1 {
		if blobHash == plumbing.ZeroHash {
			delete(entries, name)
		} else {
			entries[name] = object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: blobHash}
		}
		return p.storeTree(entries)
	}

	subTree := plumbing.ZeroHash
	if existing, ok := entries[name]; ok && existing.Mode == filemode.Dir {
		subTree = existing.Hash
	}

	newSubTree, err := p.setPathParts(subTree, parts[1:], blobHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if newSubTree == plumbing.ZeroHash {
		delete(entries, name)
	} else {
		entries[name] = object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: newSubTree}
	}
	return p.storeTree(entries)
}

// commitTree records treeHash as a new commit on the current branch and
// brings the worktree in line with it.
func (p *Persistence) commitTree(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if treeHash == plumbing.ZeroHash {
		obj := p.repo.Storer.NewEncodedObject()
		if err := (&object.Tree{}).Encode(obj); err != nil {
			return Transaction{}, fmt.Errorf("failed to encode empty tree: %w", err)
		}
		var err error
		treeHash, err = p.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to store empty tree: %w", err)
		}
	}

	var parents []plumbing.Hash
	headRef, err := p.repo.Head()
	if err == nil {
		parents = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  time.Now(),
	}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}

	obj := p.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}
	commitHash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	branch := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branch = headRef.Name()
	} else if unborn, err := p.repo.Storer.Reference(plumbing.HEAD); err == nil && unborn.Type() == plumbing.SymbolicReference {
		branch = unborn.Target()
	}
	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, commitHash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	if err := p.syncWorktree(commitHash); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return Transaction{
		Id:      commitHash.String(),
		When:    sig.When,
		Author:  identity.String(),
		Message: message,
	}, nil
}

// syncWorktree makes the checked-out files match commitHash. Memory mode
// reads straight from the object store, so there is nothing to sync.
func (p *Persistence) syncWorktree(commitHash plumbing.Hash) error {
	if p.isMemoryMode {
		return nil
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}

	tree, err := p.headTree()
	if err != nil {
		return err
	}

	// Resetting to an empty tree fails with "base dir cannot be removed".
	if len(tree.Entries) == 0 {
		entries, err := wt.Filesystem.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			if entry.Name() != ".git" {
				wt.Filesystem.Remove(entry.Name())
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: commitHash,
	})
}

// WriteFileDirect writes one file and commits it.
func (p *Persistence) WriteFileDirect(filePath string, data []byte, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	current, err := p.headTreeHash()
	if err != nil {
		return Transaction{}, err
	}

	blobHash, err := p.createBlob(data)
	if err != nil {
		return Transaction{}, err
	}

	newTree, err := p.setPath(current, filePath, blobHash)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	return p.commitTree(newTree, identity, message)
}

// DeletePathDirect removes one or more paths in a single commit.
func (p *Persistence) DeletePathDirect(paths []string, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	tree, err := p.headTreeHash()
	if err != nil {
		return Transaction{}, err
	}
	if tree == plumbing.ZeroHash {
		return Transaction{}, fmt.Errorf("no content exists")
	}

	for _, filePath := range paths {
		tree, err = p.setPath(tree, filePath, plumbing.ZeroHash)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to delete %s: %w", filePath, err)
		}
	}

	return p.commitTree(tree, identity, message)
}

// ReadFileDirect reads a file from the HEAD tree, bypassing the worktree.
func (p *Persistence) ReadFileDirect(filePath string) ([]byte, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if err != nil {
		return nil, err
	}

	file, err := tree.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}
	return []byte(content), nil
}

// TreeEntry represents a directory entry from the Git tree
type TreeEntry struct {
	Name  string
	IsDir bool
}

// ListEntriesDirect lists a directory of the HEAD tree. A missing directory
// or an empty repository lists nothing.
func (p *Persistence) ListEntriesDirect(dirPath string) ([]TreeEntry, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if errors.Is(err, errNoCommits) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if dirPath != "" && dirPath != "." {
		tree, err = tree.Tree(dirPath)
		if err != nil {
			return nil, nil
		}
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		entries = append(entries, TreeEntry{
			Name:  entry.Name,
			IsDir: entry.Mode == filemode.Dir,
		})
	}
	return entries, nil
}
