package upload

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/sonnes/cmsync/apierr"
	"github.com/sonnes/cmsync/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadCall struct {
	accountID int
	local     string
	remote    string
	query     core.QueryParams
}

type folderCall struct {
	accountID int
	local     string
	remote    string
	opts      core.FolderOptions
}

type fakeClient struct {
	err     error
	uploads []uploadCall
	folders []folderCall
}

func (f *fakeClient) Upload(_ context.Context, accountID int, local, remote string, q core.QueryParams) error {
	f.uploads = append(f.uploads, uploadCall{accountID, local, remote, q})
	return f.err
}

func (f *fakeClient) UploadFolder(_ context.Context, accountID int, local, remote string, opts core.FolderOptions) error {
	f.folders = append(f.folders, folderCall{accountID, local, remote, opts})
	return f.err
}

type report struct {
	err error
	ctx apierr.Context
}

type fakeReporter struct {
	upload  []report
	generic []report
}

func (r *fakeReporter) ReportUpload(err error, ctx apierr.Context) {
	r.upload = append(r.upload, report{err, ctx})
}

func (r *fakeReporter) Report(err error, ctx apierr.Context) {
	r.generic = append(r.generic, report{err, ctx})
}

func newExecutor(c Client) (*Executor, *fakeReporter, *bytes.Buffer) {
	var buf bytes.Buffer
	rep := &fakeReporter{}
	return New(c, 123456, log.New(&buf), rep), rep, &buf
}

var filePlan = &core.SingleFilePlan{
	Target: core.SyncTarget{Kind: core.KindFile, LocalPath: "/project/site.css", RemotePath: "/css/site.css"},
	Source: "./site.css",
	Query:  core.QueryParams{EnvironmentID: 1},
}

var folderPlan = &core.FolderPlan{
	Target: core.SyncTarget{Kind: core.KindDirectory, LocalPath: "/project/assets", RemotePath: "theme/assets"},
	Source: "./assets",
	Mode:   core.ModeDraft,
	Cwd:    "/project",
}

func TestExecuteSingleFile(t *testing.T) {
	c := &fakeClient{}
	e, rep, buf := newExecutor(c)

	require.NoError(t, e.Execute(context.Background(), filePlan))

	require.Len(t, c.uploads, 1)
	assert.Equal(t, uploadCall{123456, "/project/site.css", "/css/site.css", core.QueryParams{EnvironmentID: 1}}, c.uploads[0])
	assert.Empty(t, c.folders)

	out := buf.String()
	assert.Contains(t, out, "./site.css")
	assert.Contains(t, out, "/css/site.css")
	assert.Contains(t, out, "123456")
	assert.Empty(t, rep.upload)
	assert.Empty(t, rep.generic)
}

func TestExecuteSingleFileFailure(t *testing.T) {
	c := &fakeClient{err: &apierr.Error{StatusCode: 400}}
	e, rep, buf := newExecutor(c)

	err := e.Execute(context.Background(), filePlan)
	assert.Error(t, err)

	assert.Contains(t, buf.String(), `Uploading file "./site.css" to "/css/site.css" failed`)
	require.Len(t, rep.upload, 1)
	assert.Empty(t, rep.generic)
	assert.Equal(t, apierr.Context{AccountID: 123456, Request: "/css/site.css", Payload: "./site.css"}, rep.upload[0].ctx)
}

func TestExecuteFolder(t *testing.T) {
	c := &fakeClient{}
	e, rep, buf := newExecutor(c)

	require.NoError(t, e.Execute(context.Background(), folderPlan))

	require.Len(t, c.folders, 1)
	assert.Equal(t, folderCall{123456, "/project/assets", "theme/assets", core.FolderOptions{Mode: core.ModeDraft, Cwd: "/project"}}, c.folders[0])
	assert.Empty(t, c.uploads)
	assert.Contains(t, buf.String(), `Uploading files to "theme/assets" in the Design Manager is complete`)
	assert.Empty(t, rep.generic)
}

func TestExecuteFolderFailureUsesGenericReporter(t *testing.T) {
	boom := errors.New("boom")
	c := &fakeClient{err: boom}
	e, rep, buf := newExecutor(c)

	err := e.Execute(context.Background(), folderPlan)
	assert.ErrorIs(t, err, boom)

	require.Len(t, rep.generic, 1)
	assert.Empty(t, rep.upload)
	assert.Equal(t, apierr.Context{AccountID: 123456}, rep.generic[0].ctx)
	assert.Contains(t, buf.String(), "Uploading failed")
}

func TestExecuteNilPlan(t *testing.T) {
	e, _, _ := newExecutor(&fakeClient{})
	assert.Error(t, e.Execute(context.Background(), nil))
}
