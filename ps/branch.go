package ps

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v6/plumbing"
)

var (
	ErrBranchNotFound = errors.New("branch not found")
	ErrBranchExists   = errors.New("branch already exists")
	ErrDiverged       = errors.New("branches have diverged")
)

// Branch creates a branch at HEAD, or at from when given. The current
// branch is left checked out.
func (p *Persistence) Branch(name string, from *Transaction) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if name == "" || strings.ContainsAny(name, " ~^:?*[\\") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid branch name %q", name)
	}
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := p.repo.Reference(refName, false); err == nil {
		return fmt.Errorf("%w: %s", ErrBranchExists, name)
	}

	var hash plumbing.Hash
	if from != nil {
		hash = plumbing.NewHash(from.Id)
		if _, err := p.repo.CommitObject(hash); err != nil {
			return fmt.Errorf("transaction %s not found: %w", from.Id, err)
		}
	} else {
		head, err := p.repo.Head()
		if err != nil {
			return errNoCommits
		}
		hash = head.Hash()
	}

	return p.repo.Storer.SetReference(plumbing.NewHashReference(refName, hash))
}

// Checkout points HEAD at an existing branch. Later reads and writes use
// that branch's sheets.
func (p *Persistence) Checkout(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ref, err := p.branchRef(name)
	if err != nil {
		return err
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD, ref.Name())
	if err := p.repo.Storer.SetReference(head); err != nil {
		return fmt.Errorf("failed to update HEAD: %w", err)
	}
	return p.syncWorktree(ref.Hash())
}

// Merge fast-forwards the current branch to source. It is a no-op when
// source is already contained in the current branch, and fails with
// ErrDiverged when neither contains the other.
func (p *Persistence) Merge(source string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	head, err := p.repo.Head()
	if err != nil {
		return Transaction{}, errNoCommits
	}
	sourceRef, err := p.branchRef(source)
	if err != nil {
		return Transaction{}, err
	}

	headCommit, err := p.repo.CommitObject(head.Hash())
	if err != nil {
		return Transaction{}, err
	}
	sourceCommit, err := p.repo.CommitObject(sourceRef.Hash())
	if err != nil {
		return Transaction{}, err
	}

	merged, err := sourceCommit.IsAncestor(headCommit)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if merged || sourceCommit.Hash == headCommit.Hash {
		return fromCommit(headCommit), nil
	}

	canFastForward, err := headCommit.IsAncestor(sourceCommit)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if !canFastForward {
		return Transaction{}, fmt.Errorf("%w: %s and %s", ErrDiverged, head.Name().Short(), source)
	}

	target := plumbing.NewHashReference(head.Name(), sourceRef.Hash())
	if err := p.repo.Storer.SetReference(target); err != nil {
		return Transaction{}, fmt.Errorf("failed to update branch ref: %w", err)
	}
	if err := p.syncWorktree(sourceRef.Hash()); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}
	return fromCommit(sourceCommit), nil
}

// ListBranches returns every local branch name, sorted.
func (p *Persistence) ListBranches() ([]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	refs, err := p.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	defer refs.Close()

	var branches []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(branches)
	return branches, nil
}

// DeleteBranch removes a branch other than the current one.
func (p *Persistence) DeleteBranch(name string) error {
	current, err := p.CurrentBranch()
	if err != nil {
		return err
	}
	if current == name {
		return fmt.Errorf("cannot delete the checked out branch %q", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ref, err := p.branchRef(name)
	if err != nil {
		return err
	}
	return p.repo.Storer.RemoveReference(ref.Name())
}

func (p *Persistence) branchRef(name string) (*plumbing.Reference, error) {
	ref, err := p.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}
	return ref, nil
}
