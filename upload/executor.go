// Package upload executes validated upload plans against a remote client.
package upload

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/sonnes/cmsync/apierr"
	"github.com/sonnes/cmsync/core"
)

// Client is the part of the remote content store the executor needs.
type Client interface {
	Upload(ctx context.Context, accountID int, localPath, remotePath string, q core.QueryParams) error
	UploadFolder(ctx context.Context, accountID int, localPath, remoteDir string, opts core.FolderOptions) error
}

// Executor performs one upload plan and reports the outcome.
type Executor struct {
	Client    Client
	AccountID int
	Logger    *log.Logger
	Reporter  apierr.Reporter
}

// New creates an Executor. A nil logger uses the default logger and a nil
// reporter logs through it.
func New(c Client, accountID int, logger *log.Logger, r apierr.Reporter) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	if r == nil {
		r = apierr.NewLogReporter(logger)
	}
	return &Executor{Client: c, AccountID: accountID, Logger: logger, Reporter: r}
}

// Execute blocks until the transfer has completed or failed. Failures are
// reported before Execute returns; the error is returned for callers that
// want it.
func (e *Executor) Execute(ctx context.Context, p core.UploadPlan) error {
	switch p := p.(type) {
	case *core.SingleFilePlan:
		return e.uploadFile(ctx, p)
	case *core.FolderPlan:
		return e.uploadFolder(ctx, p)
	default:
		return fmt.Errorf("unsupported plan %T", p)
	}
}

func (e *Executor) uploadFile(ctx context.Context, p *core.SingleFilePlan) error {
	dest := p.Target.RemotePath
	if err := e.Client.Upload(ctx, e.AccountID, p.Target.LocalPath, dest, p.Query); err != nil {
		e.Logger.Errorf("Uploading file %q to %q failed", p.Source, dest)
		e.Reporter.ReportUpload(err, apierr.Context{
			AccountID: e.AccountID,
			Request:   dest,
			Payload:   p.Source,
		})
		return err
	}
	e.Logger.Infof("Uploaded file from %q to %q in the Design Manager of account %d", p.Source, dest, e.AccountID)
	return nil
}

func (e *Executor) uploadFolder(ctx context.Context, p *core.FolderPlan) error {
	dest := p.Target.RemotePath
	e.Logger.Infof("Uploading files from %q to %q in the Design Manager of account %d", p.Source, dest, e.AccountID)

	opts := core.FolderOptions{Mode: p.Mode, Cwd: p.Cwd}
	if err := e.Client.UploadFolder(ctx, e.AccountID, p.Target.LocalPath, dest, opts); err != nil {
		e.Logger.Error("Uploading failed")
		e.Reporter.Report(err, apierr.Context{AccountID: e.AccountID})
		return err
	}
	e.Logger.Infof("Uploading files to %q in the Design Manager is complete", dest)
	return nil
}
