package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, dir, name, content string) {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, dir, "README.md", "hello\n")

	rev, err := Resolve(dir)
	require.NoError(t, err)
	require.Len(t, rev.Short, 7)
	require.False(t, rev.Dirty)
	require.Equal(t, rev.Short, rev.String())

	// A subdirectory resolves via DetectDotGit.
	sub := filepath.Join(dir, "frontend")
	require.NoError(t, os.Mkdir(sub, 0o755))
	rev2, err := Resolve(sub)
	require.NoError(t, err)
	require.Equal(t, rev.Hash, rev2.Hash)
}

func TestResolve_Dirty(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, dir, "README.md", "hello\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed\n"), 0o644))

	rev, err := Resolve(dir)
	require.NoError(t, err)
	require.True(t, rev.Dirty)
	require.Equal(t, rev.Short+"-dirty", rev.String())
}

func TestResolve_NoRepository(t *testing.T) {
	_, err := Resolve(t.TempDir())
	require.Error(t, err)
}
