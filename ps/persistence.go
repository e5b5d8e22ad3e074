package ps

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
	ErrRepoNotFound   = errors.New("repository not found")
)

// Persistence is a git repository holding one blob per sheet. Every write is
// a commit on the current branch.
type Persistence struct {
	repo         *git.Repository
	isMemoryMode bool
	mu           sync.RWMutex
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// NewMemoryPersistence returns an in-memory repository for tests and
// throwaway databases.
func NewMemoryPersistence() (*Persistence, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return &Persistence{
		repo:         repo,
		isMemoryMode: true,
	}, nil
}

// NewFilePersistence opens the repository under baseDir, initialising it when
// absent. A non-nil gitUrl clones that remote instead.
func NewFilePersistence(baseDir string, gitUrl *string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository

	switch {
	case gitUrl != nil:
		repo, err = git.Clone(storer, wt, &git.CloneOptions{
			URL: *gitUrl,
		})
	case !exists(fs.Root()):
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	default:
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}

	return &Persistence{
		repo: repo,
	}, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
