// Package core defines the values passed between the sync planner, the upload
// executor, the remote clients and the log renderer.
package core

import "fmt"

// Kind classifies a local path.
type Kind int

const (
	KindInvalid Kind = iota
	KindFile
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "folder"
	default:
		return "invalid"
	}
}

// SyncTarget pairs a local path with its destination in the Design Manager.
type SyncTarget struct {
	Kind       Kind
	LocalPath  string // absolute
	RemotePath string // always forward-slash separated
}

// IssueCode identifies which check produced a SyncIssue.
type IssueCode string

const (
	IssueInvalidSource IssueCode = "invalid-source"
	IssueMissingDest   IssueCode = "missing-dest"
	IssueSrcDest       IssueCode = "src-dest"
	IssueExtension     IssueCode = "extension"
	IssueIgnored       IssueCode = "ignored"
)

// SyncIssue is a user-facing validation problem. Any issue aborts the sync
// before a network call is made.
type SyncIssue struct {
	Code    IssueCode
	Message string
}

func (i SyncIssue) String() string { return i.Message }

// Mode selects whether uploads land in the draft buffer or go live.
type Mode string

const (
	ModeDraft   Mode = "draft"
	ModePublish Mode = "publish"
)

// Modes lists every valid Mode.
var Modes = []Mode{ModePublish, ModeDraft}

// ParseMode validates s. An empty string yields def.
func ParseMode(s string, def Mode) (Mode, error) {
	if s == "" {
		return def, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("the mode %q is invalid; valid values are %q or %q", s, ModePublish, ModeDraft)
}

// Env names the backend environment an account lives in.
type Env string

const (
	EnvProd Env = "prod"
	EnvQA   Env = "qa"
)

// QueryParams are the upload query parameters derived from a Mode.
type QueryParams struct {
	Buffer        bool
	EnvironmentID int
}

// QueryFromMode returns the upload query for mode in env.
func QueryFromMode(mode Mode, env Env) QueryParams {
	q := QueryParams{Buffer: mode == ModeDraft, EnvironmentID: 1}
	if env == EnvQA {
		q.EnvironmentID = 2
	}
	return q
}

// UploadPlan is a validated, ready-to-execute sync operation. It is either a
// *SingleFilePlan or a *FolderPlan.
type UploadPlan interface {
	// SyncTarget returns the root target of the plan.
	SyncTarget() SyncTarget
	plan()
}

// SingleFilePlan uploads one file.
type SingleFilePlan struct {
	Target SyncTarget
	Source string // src as the user typed it
	Query  QueryParams
}

// FolderPlan uploads a directory tree. Per-file ignore and extension
// filtering happens during the walk.
type FolderPlan struct {
	Target SyncTarget
	Source string
	Mode   Mode
	Cwd    string // root for relative-path resolution during the walk
}

func (p *SingleFilePlan) SyncTarget() SyncTarget { return p.Target }
func (p *FolderPlan) SyncTarget() SyncTarget     { return p.Target }

func (*SingleFilePlan) plan() {}
func (*FolderPlan) plan()     {}

// FolderOptions configures a recursive folder upload.
type FolderOptions struct {
	Mode Mode
	Cwd  string
}
