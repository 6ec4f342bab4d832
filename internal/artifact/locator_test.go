package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocateSkipsExcludedSubtrees(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "out", "pkg", "server.js"), "real")
	writeFile(t, filepath.Join(root, "out", "pkg", "node_modules", "x", "server.js"), "vendored")

	rule := NewGlobRule(root, "server.js", []string{"node_modules"}, "", false)

	got, err := Locate(rule)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "out", "pkg", "server.js"), got)
}

func TestLocateDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	// Both match; "aaa" sorts before "zzz" at the same level, so the walk
	// must pick the aaa subtree every time.
	writeFile(t, filepath.Join(root, "zzz", "app.bin"), "late")
	writeFile(t, filepath.Join(root, "aaa", "app.bin"), "early")

	rule := NewGlobRule(root, "app.bin", nil, "", false)
	first, err := Locate(rule)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "aaa", "app.bin"), first)

	for i := 0; i < 5; i++ {
		again, err := Locate(rule)
		require.NoError(t, err)
		assert.Equal(t, first, again, "repeated runs must pick the same artifact")
	}
}

func TestLocateNotFound(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "other.txt"), "x")

	_, err := Locate(NewGlobRule(root, "missing.bin", nil, "", false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestApplyFlattensContainingDirectory(t *testing.T) {
	root := t.TempDir()
	// PyInstaller-style nested onedir layout.
	writeFile(t, filepath.Join(root, "dist", "main_entry", "main_entry"), "exe")
	writeFile(t, filepath.Join(root, "dist", "main_entry", "_internal", "lib.so"), "lib")

	dest := filepath.Join(t.TempDir(), "build", "backend")
	writeFile(t, filepath.Join(dest, "stale.txt"), "previous run")

	rule := NewGlobRule(filepath.Join(root, "dist"), "main_entry", []string{"_internal"}, dest, true)
	match, err := Apply(rule)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "dist", "main_entry", "main_entry"), match)

	// Whole containing directory copied, including excluded-from-search parts.
	assert.FileExists(t, filepath.Join(dest, "main_entry"))
	assert.FileExists(t, filepath.Join(dest, "_internal", "lib.so"))

	// Pre-existing destination content replaced.
	assert.NoFileExists(t, filepath.Join(dest, "stale.txt"))
}

func TestApplyWithoutDestinationReturnsMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.dmg"), "img")

	match, err := Apply(NewGlobRule(root, "*.dmg", nil, "", false))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a.dmg"), match)
}

func TestApplyPropagatesNotFound(t *testing.T) {
	root := t.TempDir()
	_, err := Apply(NewGlobRule(root, "*.dmg", nil, filepath.Join(root, "dest"), false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoDirExists(t, filepath.Join(root, "dest"), "destination must not be touched on no-match")
}
