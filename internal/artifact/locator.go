package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound reports that a rule matched nothing. Callers decide whether
// this is a warning or a failure (Rule.Required).
var ErrNotFound = errors.New("no matching artifact found")

// errFound stops the walk at the first match.
var errFound = errors.New("artifact found")

// Locate walks the rule's search root depth-first, entries at each level in
// lexicographically ascending name order (fs.WalkDir guarantees this), and
// returns the path of the first matching file. Given an unchanged
// filesystem, repeated calls return the same path.
func Locate(rule Rule) (string, error) {
	if rule.Match == nil {
		return "", fmt.Errorf("artifact rule has no match predicate")
	}

	var found string
	err := filepath.WalkDir(rule.SearchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == rule.SearchRoot {
			return nil
		}
		rel, relErr := filepath.Rel(rule.SearchRoot, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if rule.Exclude != nil && rule.Exclude(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		// Directories are traversal structure, not artifacts; a frozen onedir
		// layout typically names the directory after the executable inside it.
		if d.IsDir() {
			return nil
		}
		if rule.Match(rel) {
			found = path
			return errFound
		}
		return nil
	})

	switch {
	case errors.Is(err, errFound):
		return found, nil
	case err != nil:
		return "", fmt.Errorf("search %s: %w", rule.SearchRoot, err)
	default:
		return "", fmt.Errorf("%w under %s", ErrNotFound, rule.SearchRoot)
	}
}

// Apply locates the rule's artifact and, when a destination is set, replaces
// any pre-existing destination content with a full copy of the matched
// entry's containing directory tree. Copy failures are returned as-is and are
// fatal to the requesting stage; a no-match result wraps ErrNotFound.
func Apply(rule Rule) (string, error) {
	match, err := Locate(rule)
	if err != nil {
		return "", err
	}
	if rule.Destination == "" {
		return match, nil
	}

	src := filepath.Dir(match)
	if err := os.RemoveAll(rule.Destination); err != nil {
		return "", fmt.Errorf("clear destination %s: %w", rule.Destination, err)
	}
	if err := copyTree(src, rule.Destination); err != nil {
		return "", fmt.Errorf("copy %s to %s: %w", src, rule.Destination, err)
	}
	return match, nil
}

// copyTree recursively copies a directory tree, preserving relative structure
// and file modes.
func copyTree(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
