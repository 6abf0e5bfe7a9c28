package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// GitRoot returns the top-level directory of the git work tree containing
// dir.
func GitRoot(fs billy.Filesystem, dir string) (string, bool) {
	dir = filepath.Clean(dir)
	for {
		if _, err := fs.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// CheckGitInclusion reports whether path lies inside a git work tree
// without being ignored by it, which would let credentials be committed.
func CheckGitInclusion(fs billy.Filesystem, path string) (included bool, root string, err error) {
	root, ok := GitRoot(fs, filepath.Dir(path))
	if !ok {
		return false, "", nil
	}
	tree, err := fs.Chroot(root)
	if err != nil {
		return false, root, fmt.Errorf("open work tree %s: %w", root, err)
	}
	patterns, err := gitignore.ReadPatterns(tree, nil)
	if err != nil {
		return false, root, fmt.Errorf("read gitignore: %w", err)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false, root, err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return !gitignore.NewMatcher(patterns).Match(parts, false), root, nil
}

// ensureGitignore adds entry to the .gitignore at root if not already present.
func ensureGitignore(fs billy.Filesystem, root, entry string) error {
	p := filepath.Join(root, ".gitignore")

	data, err := util.ReadFile(fs, p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	data = append(data, entry+"\n"...)
	return util.WriteFile(fs, p, data, 0o644)
}
