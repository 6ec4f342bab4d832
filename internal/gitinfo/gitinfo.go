// Package gitinfo resolves the project's VCS state so runs can be stamped
// with the revision they were built from.
package gitinfo

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// Revision identifies the checked-out commit at build time.
type Revision struct {
	Hash  string
	Short string
	Dirty bool
}

// String renders the conventional short form, with a dirty suffix.
func (r Revision) String() string {
	if r.Short == "" {
		return ""
	}
	if r.Dirty {
		return r.Short + "-dirty"
	}
	return r.Short
}

// Resolve inspects the repository containing dir. A missing repository is an
// error the caller is expected to tolerate: builds from exported tarballs are
// legitimate, they just go unstamped.
func Resolve(dir string) (Revision, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Revision{}, fmt.Errorf("open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return Revision{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	hash := head.Hash().String()
	rev := Revision{Hash: hash, Short: hash[:7]}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repository; no dirty state to report.
		return rev, nil
	}
	status, err := wt.Status()
	if err != nil {
		return rev, nil
	}
	rev.Dirty = !status.IsClean()
	return rev, nil
}
