// Package plan turns an upload request into a validated UploadPlan or the
// list of issues that prevent it.
package plan

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/sonnes/cmsync/core"
	"github.com/sonnes/cmsync/modules"
)

// Ignorer reports whether an absolute path is excluded from sync.
type Ignorer interface {
	Ignored(path string, isDir bool) bool
}

// Request is one upload invocation.
type Request struct {
	Src  string
	Dest string
	Mode core.Mode
	Env  core.Env
	Cwd  string
}

// Planner validates upload requests against the local filesystem.
type Planner struct {
	FS     billy.Filesystem
	Ignore Ignorer

	// Validate checks structural src/dest compatibility. Defaults to
	// modules.Validate.
	Validate func(src modules.Source, dest string) []core.SyncIssue
}

// New creates a Planner backed by fs.
func New(fs billy.Filesystem, ig Ignorer) *Planner {
	return &Planner{FS: fs, Ignore: ig}
}

// Plan validates req. Exactly one of the results is set: a plan, or at least
// one issue. The destination presence check runs before the filesystem is
// touched; the src/dest structural check reports every problem it finds;
// all other checks stop at the first failure.
func (p *Planner) Plan(req Request) (core.UploadPlan, []core.SyncIssue) {
	if req.Dest == "" {
		return nil, single(core.IssueMissingDest, "A destination path needs to be passed")
	}

	kind, abs := Classify(p.FS, req.Src, req.Cwd)
	if kind == core.KindInvalid {
		return nil, single(core.IssueInvalidSource, fmt.Sprintf(`The path "%s" is not a path to a file or folder`, req.Src))
	}

	target := core.SyncTarget{Kind: kind, LocalPath: abs, RemotePath: ToUnixPath(req.Dest)}

	validate := p.Validate
	if validate == nil {
		validate = modules.Validate
	}
	if issues := validate(modules.Source{Path: req.Src, Abs: abs, Kind: kind}, req.Dest); len(issues) > 0 {
		return nil, issues
	}

	if kind == core.KindDirectory {
		return &core.FolderPlan{
			Target: target,
			Source: req.Src,
			Mode:   req.Mode,
			Cwd:    req.Cwd,
		}, nil
	}

	if !AllowedExtension(abs) {
		return nil, single(core.IssueExtension, fmt.Sprintf(`The file "%s" does not have a valid extension`, req.Src))
	}
	if p.Ignore != nil && p.Ignore.Ignored(abs, false) {
		return nil, single(core.IssueIgnored, fmt.Sprintf(`The file "%s" is being ignored via an .hsignore rule`, req.Src))
	}

	return &core.SingleFilePlan{
		Target: target,
		Source: req.Src,
		Query:  core.QueryFromMode(req.Mode, req.Env),
	}, nil
}

func single(code core.IssueCode, msg string) []core.SyncIssue {
	return []core.SyncIssue{{Code: code, Message: msg}}
}
