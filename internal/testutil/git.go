package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// GitRepo is a throwaway repository for tests.
type GitRepo struct {
	t    *testing.T
	Dir  string
	Repo *git.Repository
	tree *git.Worktree
	when time.Time
}

// SetupGitRepo initializes a repository in a temp directory.
func SetupGitRepo(t *testing.T) *GitRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	w, err := repo.Worktree()
	require.NoError(t, err)
	return &GitRepo{t: t, Dir: dir, Repo: repo, tree: w, when: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Commit writes files and commits them. Each commit is an hour after the
// previous one so history order is deterministic.
func (g *GitRepo) Commit(message, author string, files map[string]string) string {
	g.t.Helper()
	for rel, content := range files {
		path := filepath.Join(g.Dir, filepath.FromSlash(rel))
		require.NoError(g.t, os.MkdirAll(filepath.Dir(path), dirPerm))
		require.NoError(g.t, os.WriteFile(path, []byte(content), filePerm))
		_, err := g.tree.Add(rel)
		require.NoError(g.t, err)
	}
	g.when = g.when.Add(time.Hour)
	hash, err := g.tree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: author, Email: author + "@example.com", When: g.when},
	})
	require.NoError(g.t, err)
	return hash.String()
}
