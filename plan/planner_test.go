package plan

import (
	"os"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sonnes/cmsync/core"
	"github.com/sonnes/cmsync/ignore"
	"github.com/sonnes/cmsync/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProject builds an in-memory project under /project.
func newProject(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("/project", 0o755))
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func newPlanner(t *testing.T, fs billy.Filesystem) *Planner {
	t.Helper()
	f, err := ignore.Load(fs, "/project")
	require.NoError(t, err)
	return New(fs, f)
}

// statCounter records Stat calls so tests can assert ordering.
type statCounter struct {
	billy.Filesystem
	calls int
}

func (s *statCounter) Stat(name string) (os.FileInfo, error) {
	s.calls++
	return s.Filesystem.Stat(name)
}

type ignoreCounter struct{ calls int }

func (i *ignoreCounter) Ignored(string, bool) bool {
	i.calls++
	return false
}

func TestPlanSingleFile(t *testing.T) {
	fs := newProject(t, map[string]string{"/project/site.css": "body{}"})
	p := newPlanner(t, fs)

	got, issues := p.Plan(Request{Src: "./site.css", Dest: "/css/site.css", Mode: core.ModePublish, Cwd: "/project"})
	require.Empty(t, issues)

	sp, ok := got.(*core.SingleFilePlan)
	require.True(t, ok, "want *SingleFilePlan, got %T", got)
	assert.Equal(t, core.SyncTarget{Kind: core.KindFile, LocalPath: "/project/site.css", RemotePath: "/css/site.css"}, sp.Target)
	assert.Equal(t, "./site.css", sp.Source)
	assert.Equal(t, core.QueryParams{Buffer: false, EnvironmentID: 1}, sp.Query)
}

func TestPlanDraftQuery(t *testing.T) {
	fs := newProject(t, map[string]string{"/project/site.css": "body{}"})
	p := newPlanner(t, fs)

	got, issues := p.Plan(Request{Src: "site.css", Dest: "css/site.css", Mode: core.ModeDraft, Env: core.EnvQA, Cwd: "/project"})
	require.Empty(t, issues)
	assert.Equal(t, core.QueryParams{Buffer: true, EnvironmentID: 2}, got.(*core.SingleFilePlan).Query)
}

func TestPlanFolder(t *testing.T) {
	fs := newProject(t, map[string]string{
		"/project/assets/app.js":       "",
		"/project/assets/.DS_Store":    "",
		"/project/assets/notes.docx":   "",
		"/project/assets/img/logo.png": "",
	})
	p := newPlanner(t, fs)

	got, issues := p.Plan(Request{Src: "./assets", Dest: `theme\assets`, Mode: core.ModeDraft, Cwd: "/project"})
	require.Empty(t, issues)

	fp, ok := got.(*core.FolderPlan)
	require.True(t, ok, "want *FolderPlan, got %T", got)
	assert.Equal(t, core.KindDirectory, fp.Target.Kind)
	assert.Equal(t, "/project/assets", fp.Target.LocalPath)
	assert.Equal(t, "theme/assets", fp.Target.RemotePath)
	assert.Equal(t, core.ModeDraft, fp.Mode)
	assert.Equal(t, "/project", fp.Cwd)
}

func TestPlanFolderSkipsFilePrechecks(t *testing.T) {
	fs := newProject(t, map[string]string{"/project/.hidden/app.js": ""})
	ic := &ignoreCounter{}
	p := New(fs, ic)

	got, issues := p.Plan(Request{Src: ".hidden", Dest: "hidden", Cwd: "/project"})
	require.Empty(t, issues)
	assert.IsType(t, &core.FolderPlan{}, got)
	assert.Zero(t, ic.calls)
}

func TestPlanInvalidSource(t *testing.T) {
	fs := newProject(t, nil)
	p := newPlanner(t, fs)

	for _, src := range []string{"missing.css", "/nowhere/at/all", "project/../nope"} {
		got, issues := p.Plan(Request{Src: src, Dest: "/css", Cwd: "/project"})
		assert.Nil(t, got)
		require.Len(t, issues, 1, "src %q", src)
		assert.Equal(t, core.IssueInvalidSource, issues[0].Code)
		assert.Equal(t, `The path "`+src+`" is not a path to a file or folder`, issues[0].Message)
	}
}

func TestPlanMissingDestBeforeFilesystem(t *testing.T) {
	sc := &statCounter{Filesystem: newProject(t, map[string]string{"/project/site.css": ""})}
	ic := &ignoreCounter{}
	p := New(sc, ic)

	got, issues := p.Plan(Request{Src: "site.css", Dest: "", Cwd: "/project"})
	assert.Nil(t, got)
	require.Len(t, issues, 1)
	assert.Equal(t, core.IssueMissingDest, issues[0].Code)
	assert.Equal(t, "A destination path needs to be passed", issues[0].Message)
	assert.Zero(t, sc.calls)
	assert.Zero(t, ic.calls)
}

func TestPlanInvalidExtension(t *testing.T) {
	fs := newProject(t, map[string]string{"/project/report.docx": ""})
	p := newPlanner(t, fs)

	_, issues := p.Plan(Request{Src: "report.docx", Dest: "files/report.docx", Cwd: "/project"})
	require.Len(t, issues, 1)
	assert.Equal(t, core.IssueExtension, issues[0].Code)
	assert.Contains(t, issues[0].Message, "does not have a valid extension")
}

func TestPlanIgnoredFile(t *testing.T) {
	fs := newProject(t, map[string]string{
		"/project/.hsignore":    "drafts/\n",
		"/project/drafts/a.css": "",
	})
	p := newPlanner(t, fs)

	got, issues := p.Plan(Request{Src: "drafts/a.css", Dest: "a.css", Cwd: "/project"})
	assert.Nil(t, got)
	require.Len(t, issues, 1)
	assert.Equal(t, core.IssueIgnored, issues[0].Code)
	assert.Contains(t, issues[0].Message, ".hsignore")
}

func TestPlanCollectsAllSrcDestIssues(t *testing.T) {
	fs := newProject(t, map[string]string{"/project/hero.module/module.css": ""})
	p := newPlanner(t, fs)

	_, issues := p.Plan(Request{Src: "hero.module/module.css", Dest: "../bad|name.css", Cwd: "/project"})
	require.Len(t, issues, 3)
	for _, is := range issues {
		assert.Equal(t, core.IssueSrcDest, is.Code)
	}
}

func TestPlanCustomValidator(t *testing.T) {
	fs := newProject(t, map[string]string{"/project/site.css": ""})
	p := newPlanner(t, fs)

	var gotSrc modules.Source
	var gotDest string
	p.Validate = func(src modules.Source, dest string) []core.SyncIssue {
		gotSrc, gotDest = src, dest
		return nil
	}

	_, issues := p.Plan(Request{Src: "site.css", Dest: `css\site.css`, Cwd: "/project"})
	require.Empty(t, issues)
	assert.Equal(t, modules.Source{Path: "site.css", Abs: "/project/site.css", Kind: core.KindFile}, gotSrc)
	assert.Equal(t, `css\site.css`, gotDest)
}
