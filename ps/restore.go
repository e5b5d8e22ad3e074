package ps

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/SheetDB/core"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot tags HEAD, or asof when given, under name.
func (p *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var hash plumbing.Hash
	if asof != nil {
		hash = plumbing.NewHash(asof.Id)
	} else {
		head, err := p.repo.Head()
		if err != nil {
			return errNoCommits
		}
		hash = head.Hash()
	}

	if _, err := p.repo.CreateTag(name, hash, nil); err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", name, err)
	}
	return nil
}

// ListSnapshots returns every snapshot name, sorted.
func (p *Persistence) ListSnapshots() ([]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	tags, err := p.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer tags.Close()

	var names []string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Recover makes the current branch hold exactly the sheets of snapshot
// name. The change is a new commit, so the history in between is kept.
func (p *Persistence) Recover(name string, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ref, err := p.repo.Tag(name)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	commit, err := p.repo.CommitObject(ref.Hash())
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	return p.commitTree(commit.TreeHash, identity, fmt.Sprintf("Recovering snapshot %s", name))
}

// RestoreSheet writes sheet name back to its state as of asof, as a new
// commit. A sheet that did not exist at asof is dropped.
func (p *Persistence) RestoreSheet(name string, asof Transaction, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	if err := validateSheetName(name); err != nil {
		return Transaction{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	commit, err := p.repo.CommitObject(plumbing.NewHash(asof.Id))
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s not found: %w", asof.Id, err)
	}
	then, err := commit.Tree()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get tree: %w", err)
	}

	blob := plumbing.ZeroHash
	entry, err := then.FindEntry(sheetPath(name))
	switch {
	case err == nil:
		blob = entry.Hash
	case !errors.Is(err, object.ErrEntryNotFound) && !errors.Is(err, object.ErrFileNotFound):
		return Transaction{}, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}

	current, err := p.headTreeHash()
	if err != nil {
		return Transaction{}, err
	}
	tree, err := p.setPath(current, sheetPath(name), blob)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	short := asof.Id
	if len(short) > 8 {
		short = short[:8]
	}
	return p.commitTree(tree, identity, fmt.Sprintf("Restoring sheet %s to %s", name, short))
}
