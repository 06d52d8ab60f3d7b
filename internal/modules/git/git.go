// Package git provides a module that mines repository history with go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

// Mode selects what Commits produces.
type Mode string

const (
	// ModeMetadata adds a Commits list to each input in the repository.
	ModeMetadata Mode = "metadata"
	// ModeDocuments replaces the inputs with one document per commit.
	ModeDocuments Mode = "documents"
)

// Commit metadata keys.
const (
	KeySha     = "Sha"
	KeyAuthor  = "Author"
	KeyEmail   = "Email"
	KeyDate    = "Date"
	KeyMessage = "Message"
	KeyFiles   = "Files"
)

// Commit is one entry of the repository history.
type Commit struct {
	Sha     string
	Author  string
	Email   string
	Date    time.Time
	Message string
	Files   []string
}

// Metadata returns the commit as a metadata map.
func (c Commit) Metadata() map[string]any {
	return map[string]any{
		KeySha:     c.Sha,
		KeyAuthor:  c.Author,
		KeyEmail:   c.Email,
		KeyDate:    c.Date,
		KeyMessage: c.Message,
		KeyFiles:   c.Files,
	}
}

func (c Commit) touches(rel string) bool {
	for _, f := range c.Files {
		if f == rel {
			return true
		}
	}
	return false
}

// Commits reads the history reachable from HEAD of Repository, newest first.
type Commits struct {
	// Repository is resolved against the input directory; empty means the
	// input directory itself. Parent directories are searched for .git.
	Repository string
	Mode       Mode
}

func (m *Commits) Execute(ctx context.Context, ec *engine.ExecutionContext, inputs []*document.Document) ([]*document.Document, error) {
	repoPath := m.Repository
	if !filepath.IsAbs(repoPath) {
		repoPath = filepath.Join(ec.InputDir(), repoPath)
	}
	root, history, err := ReadHistory(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	ec.Logger().Debug("Read git history", "repository", root, "commits", len(history))

	if m.Mode == ModeDocuments {
		out := make([]*document.Document, 0, len(history))
		for _, c := range history {
			d, err := ec.NewDocumentString(c.Message, c.Metadata())
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, nil
	}

	return ec.Map(ctx, inputs, func(_ context.Context, d *document.Document) (*document.Document, error) {
		rel, ok := relativeTo(root, d.Source())
		if !ok {
			return d, nil
		}
		commits := []map[string]any{}
		for _, c := range history {
			if c.touches(rel) {
				commits = append(commits, c.Metadata())
			}
		}
		return ec.Clone(d, document.WithMeta(document.KeyCommits, commits))
	})
}

// ReadHistory opens the repository containing path and returns its worktree
// root and the commits reachable from HEAD ordered by committer time, newest
// first. Each commit lists the files it changed relative to its first parent.
func ReadHistory(ctx context.Context, path string) (string, []Commit, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", nil, serrors.GitError(path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", nil, serrors.GitError(path, err)
	}
	root := wt.Filesystem.Root()

	head, err := repo.Head()
	if err != nil {
		return "", nil, serrors.GitError(root, fmt.Errorf("resolve HEAD: %w", err))
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return "", nil, serrors.GitError(root, err)
	}
	defer iter.Close()

	var history []Commit
	errStop := errors.New("stop")
	err = iter.ForEach(func(c *object.Commit) error {
		if ctx.Err() != nil {
			return errStop
		}
		files, err := changedFiles(c)
		if err != nil {
			return err
		}
		history = append(history, Commit{
			Sha:     c.Hash.String(),
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			Date:    c.Author.When.UTC(),
			Message: strings.TrimSpace(c.Message),
			Files:   files,
		})
		return nil
	})
	if errors.Is(err, errStop) {
		return "", nil, ctx.Err()
	}
	if err != nil {
		return "", nil, serrors.GitError(root, err)
	}
	return root, history, nil
}

func changedFiles(c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, err
		}
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(changes))
	for _, ch := range changes {
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		files = append(files, name)
	}
	return files, nil
}

// relativeTo returns source as a slash path relative to root when it lies
// inside root.
func relativeTo(root, source string) (string, bool) {
	if source == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, source)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
