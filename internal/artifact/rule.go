// Package artifact locates build outputs whose exact location varies between
// tool versions and normalizes them into a stable path before packaging.
package artifact

import (
	"path/filepath"
	"strings"
)

// Rule describes one artifact search. Predicates receive the entry's path
// relative to SearchRoot (slash-separated). Exclusion takes precedence over
// matching; an excluded directory's subtree is never visited.
type Rule struct {
	SearchRoot  string
	Match       func(rel string) bool
	Exclude     func(rel string) bool
	Destination string
	Required    bool
}

// NewGlobRule builds a Rule matching entry base names against a glob pattern,
// excluding any path containing one of the given substrings. This covers the
// common cases: picking a frozen executable out of a nested onedir layout, or
// an installer image out of the packager's output.
func NewGlobRule(searchRoot, pattern string, excludes []string, destination string, required bool) Rule {
	return Rule{
		SearchRoot: searchRoot,
		Match: func(rel string) bool {
			ok, err := filepath.Match(pattern, filepath.Base(rel))
			return err == nil && ok
		},
		Exclude: func(rel string) bool {
			for _, sub := range excludes {
				if sub != "" && strings.Contains(rel, sub) {
					return true
				}
			}
			return false
		},
		Destination: destination,
		Required:    required,
	}
}
