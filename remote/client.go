// Package remote implements the content store clients the CLI uploads to and
// reads execution logs from.
package remote

import (
	"context"

	"github.com/sonnes/cmsync/core"
)

// DefaultConcurrency bounds parallel file uploads during a folder walk.
const DefaultConcurrency = 10

// Client is a remote content store.
type Client interface {
	// Upload stores one local file at remotePath.
	Upload(ctx context.Context, accountID int, localPath, remotePath string, q core.QueryParams) error

	// UploadFolder uploads every eligible file below localPath into
	// remoteDir, preserving relative paths. Ignored files and files with a
	// disallowed extension are skipped.
	UploadFolder(ctx context.Context, accountID int, localPath, remoteDir string, opts core.FolderOptions) error

	// Logs returns the execution logs of the function served at route.
	Logs(ctx context.Context, accountID int, route string, latest bool) (*core.LogResponse, error)
}
