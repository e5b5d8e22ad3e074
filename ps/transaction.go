package ps

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
)

// Transaction is one commit in the sheet history.
type Transaction struct {
	Id      string    `json:"id"`
	When    time.Time `json:"when"`
	Author  string    `json:"author"` // "Name <email>" format
	Message string    `json:"message"`
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s, Message: %s}",
		transaction.Id, transaction.When, transaction.Author, transaction.Message)
}

func fromCommit(c *object.Commit) Transaction {
	author := ""
	if c.Author.Name != "" || c.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	}
	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  author,
		Message: strings.TrimSpace(c.Message),
	}
}

// LatestTransaction returns the HEAD commit, or the zero Transaction before
// the first write.
func (persistence *Persistence) LatestTransaction() Transaction {
	if !persistence.IsInitialized() {
		return Transaction{}
	}
	persistence.mu.RLock()
	defer persistence.mu.RUnlock()

	headRef, err := persistence.repo.Head()
	if err != nil || headRef == nil {
		return Transaction{}
	}

	commit, err := persistence.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}
	return fromCommit(commit)
}

// Log returns up to limit commits, newest first. A limit of zero or less
// returns the whole history.
func (persistence *Persistence) Log(limit int) ([]Transaction, error) {
	return persistence.walk(&git.LogOptions{}, limit)
}

// TransactionsSince returns the commits made at or after asof, newest first.
func (persistence *Persistence) TransactionsSince(asof time.Time) ([]Transaction, error) {
	return persistence.walk(&git.LogOptions{Since: &asof}, 0)
}

func (persistence *Persistence) walk(opts *git.LogOptions, limit int) ([]Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}
	persistence.mu.RLock()
	defer persistence.mu.RUnlock()

	if _, err := persistence.repo.Head(); err != nil {
		// No commits yet
		return nil, nil
	}

	cIter, err := persistence.repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, fromCommit(c))
		if limit > 0 && len(transactions) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to walk log: %w", err)
	}
	return transactions, nil
}
