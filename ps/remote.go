package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
)

const defaultRemote = "origin"

// AuthType selects how a remote is authenticated.
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth holds credentials for push, pull and fetch.
type RemoteAuth struct {
	Type       AuthType
	Token      string
	KeyPath    string // defaults to ~/.ssh/id_rsa
	Passphrase string
	Username   string
	Password   string
}

type Remote struct {
	Name string   `json:"name"`
	URLs []string `json:"urls"`
}

func (auth *RemoteAuth) method() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case AuthTypeNone, "":
		return nil, nil
	case AuthTypeToken:
		// Hosts accept any non-empty user name alongside a token.
		return &http.BasicAuth{Username: "git", Password: auth.Token}, nil
	case AuthTypeBasic:
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil
	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, _ := os.UserHomeDir()
			keyPath = filepath.Join(home, ".ssh", "id_rsa")
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)
	default:
		return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
	}
}

func orDefaultRemote(name string) string {
	if name == "" {
		return defaultRemote
	}
	return name
}

// ignoreUpToDate treats "already up-to-date" as success.
func ignoreUpToDate(err error) error {
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// CurrentBranch returns the short name of the checked-out branch.
func (p *Persistence) CurrentBranch() (string, error) {
	if err := p.ensureInitialized(); err != nil {
		return "", err
	}
	head, err := p.repo.Head()
	if err != nil {
		// Unborn HEAD still names its branch.
		ref, refErr := p.repo.Storer.Reference(plumbing.HEAD)
		if refErr != nil {
			return "", fmt.Errorf("failed to read HEAD: %w", err)
		}
		return ref.Target().Short(), nil
	}
	return head.Name().Short(), nil
}

func (p *Persistence) AddRemote(name, url string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote '%s': %w", name, err)
	}
	return nil
}

func (p *Persistence) ListRemotes() ([]Remote, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	remotes, err := p.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	result := make([]Remote, len(remotes))
	for i, r := range remotes {
		cfg := r.Config()
		result[i] = Remote{Name: cfg.Name, URLs: cfg.URLs}
	}
	return result, nil
}

func (p *Persistence) RemoveRemote(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.repo.DeleteRemote(name); err != nil {
		return fmt.Errorf("failed to remove remote '%s': %w", name, err)
	}
	return nil
}

// Push sends branch (the current branch when empty) to the remote (origin
// when empty).
func (p *Persistence) Push(remoteName, branch string, auth *RemoteAuth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	remoteName = orDefaultRemote(remoteName)

	if branch == "" {
		current, err := p.CurrentBranch()
		if err != nil {
			return fmt.Errorf("failed to get current branch: %w", err)
		}
		branch = current
	}

	authMethod, err := auth.method()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = ignoreUpToDate(p.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       authMethod,
	}))
	if err != nil {
		return fmt.Errorf("failed to push to '%s': %w", remoteName, err)
	}
	return nil
}

// Pull fetches the remote and fast-forwards the current branch.
func (p *Persistence) Pull(remoteName, branch string, auth *RemoteAuth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	remoteName = orDefaultRemote(remoteName)

	authMethod, err := auth.method()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	opts := &git.PullOptions{
		RemoteName: remoteName,
		Auth:       authMethod,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	if err := ignoreUpToDate(wt.Pull(opts)); err != nil {
		return fmt.Errorf("failed to pull from '%s': %w", remoteName, err)
	}
	return nil
}

// Fetch updates remote-tracking refs without touching the current branch.
func (p *Persistence) Fetch(remoteName string, auth *RemoteAuth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	remoteName = orDefaultRemote(remoteName)

	authMethod, err := auth.method()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = ignoreUpToDate(p.repo.Fetch(&git.FetchOptions{
		RemoteName: remoteName,
		Auth:       authMethod,
	}))
	if err != nil {
		return fmt.Errorf("failed to fetch from '%s': %w", remoteName, err)
	}
	return nil
}
