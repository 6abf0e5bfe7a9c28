// Package ignore decides which local paths are excluded from sync. Patterns
// use gitignore syntax: a built-in list scoped to the project root, plus the
// nearest .hsignore file found walking up from it.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the per-project ignore file.
const FileName = ".hsignore"

// defaultPatterns are always applied under the project root.
var defaultPatterns = []string{
	"fields.output.json",
	"cms.config.yml",
	"cms.config.yaml",
	"node_modules",
	".*",
	"*.log",
	"*.swp",
	"__MACOSX",
	"~",
	"*~",
	"Thumbs.db",
	"ehthumbs.db",
	"Desktop.ini",
	"@eaDir",
}

// Filter applies compiled ignore patterns. A nil Filter ignores nothing.
type Filter struct {
	matcher gitignore.Matcher
	source  string // path of the .hsignore file, if one was loaded
}

// New compiles a Filter from already-parsed patterns.
func New(patterns []gitignore.Pattern) *Filter {
	return &Filter{matcher: gitignore.NewMatcher(patterns)}
}

// Load builds the Filter for a project rooted at root: the default patterns
// plus those of the nearest .hsignore in root or any of its parents.
func Load(fs billy.Filesystem, root string) (*Filter, error) {
	root = filepath.Clean(root)
	patterns := Parse(strings.Join(defaultPatterns, "\n"), root)

	path, ok := find(fs, root)
	if !ok {
		return New(patterns), nil
	}
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	patterns = append(patterns, Parse(string(data), filepath.Dir(path))...)

	f := New(patterns)
	f.source = path
	return f, nil
}

// Source returns the path of the loaded .hsignore file, or "".
func (f *Filter) Source() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Ignored reports whether the absolute path matches an ignore rule.
func (f *Filter) Ignored(path string, isDir bool) bool {
	if f == nil || f.matcher == nil {
		return false
	}
	return f.matcher.Match(Split(path), isDir)
}

// Parse compiles gitignore-syntax lines scoped to dir. Blank lines and
// comments are skipped.
func Parse(text, dir string) []gitignore.Pattern {
	domain := Split(dir)
	var patterns []gitignore.Pattern
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, domain))
	}
	return patterns
}

// Split breaks an absolute path into the component form the matcher expects.
func Split(path string) []string {
	path = filepath.ToSlash(filepath.Clean(path))
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// find walks up from dir looking for FileName.
func find(fs billy.Filesystem, dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := fs.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		} else if err != nil && !os.IsNotExist(err) {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
