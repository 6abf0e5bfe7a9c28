package plan

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/sonnes/cmsync/core"
)

// Resolve returns p as an absolute, cleaned path, resolving relative paths
// against cwd.
func Resolve(p, cwd string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(cwd, p)
}

// Classify resolves p against cwd and reports whether it is an existing
// regular file or directory. Any stat failure, including permission and I/O
// errors, classifies as KindInvalid.
func Classify(fs billy.Filesystem, p, cwd string) (core.Kind, string) {
	abs := Resolve(p, cwd)
	info, err := fs.Stat(abs)
	if err != nil {
		return core.KindInvalid, abs
	}
	switch {
	case info.Mode().IsRegular():
		return core.KindFile, abs
	case info.IsDir():
		return core.KindDirectory, abs
	default:
		return core.KindInvalid, abs
	}
}

// ToUnixPath normalizes a destination path to forward slashes. It is
// idempotent.
func ToUnixPath(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}
