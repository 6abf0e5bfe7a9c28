// Package modules checks that a local source and a Design Manager destination
// are structurally compatible, in particular around ".module" folders, which
// the backend treats as atomic units.
package modules

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/sonnes/cmsync/core"
)

// Extension marks a module folder.
const Extension = ".module"

const invalidChars = `:*?"<>|`

// Source is the local side of an upload.
type Source struct {
	Path string // as typed by the user, used in messages
	Abs  string // absolute local path
	Kind core.Kind
}

// Validate runs every rule and returns all issues found, so the user can fix
// them at once.
func Validate(src Source, dest string) []core.SyncIssue {
	var issues []core.SyncIssue
	add := func(format string, args ...any) {
		issues = append(issues, core.SyncIssue{Code: core.IssueSrcDest, Message: fmt.Sprintf(format, args...)})
	}

	destParts := split(dest)
	srcParts := split(filepath.ToSlash(src.Abs))

	for _, p := range destParts {
		if p == ".." {
			add(`The destination path "%s" cannot contain ".." segments`, dest)
			break
		}
	}
	if strings.ContainsAny(dest, invalidChars) || strings.IndexFunc(dest, unicode.IsControl) >= 0 {
		add(`The destination path "%s" contains invalid characters`, dest)
	}

	if src.Kind == core.KindDirectory && isModuleFolder(srcParts) {
		if isModuleFolderChild(destParts) {
			add(`"%s" is a module folder and cannot be nested within another module folder ("%s")`, src.Path, dest)
		}
		if !isModuleFolder(destParts) {
			add(`"%s" is a module folder and must be uploaded to a path ending in "%s"`, src.Path, Extension)
		}
	}
	if isModuleFolderChild(srcParts) && !isModuleFolderChild(destParts) {
		add(`"%s" is inside a module folder and must be uploaded into a module folder`, src.Path)
	}

	return issues
}

func isModuleFolder(parts []string) bool {
	return len(parts) > 0 && isModuleName(parts[len(parts)-1])
}

func isModuleFolderChild(parts []string) bool {
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts[:len(parts)-1] {
		if isModuleName(p) {
			return true
		}
	}
	return false
}

func isModuleName(s string) bool {
	return strings.HasSuffix(s, Extension) && len(s) > len(Extension)
}

func split(p string) []string {
	p = strings.ReplaceAll(p, `\`, "/")
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			parts = append(parts, s)
		}
	}
	return parts
}
