package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/sonnes/cmsync/core"
)

const (
	draftDir = "@draft"
	logsDir  = "@logs"
)

// Local is a content store mirrored into a filesystem, laid out as
// <account>/<remote path> for published files, <account>/@draft/<remote path>
// for drafts and <account>/@logs/<route>.json for execution logs. It serves
// development and offline use.
type Local struct {
	// Source reads local files. Paths passed to Local are absolute.
	Source billy.Filesystem
	// Store receives uploaded files.
	Store billy.Filesystem

	Concurrency int
	Logger      *log.Logger
}

// NewLocal creates a Local store.
func NewLocal(source, store billy.Filesystem, logger *log.Logger) *Local {
	return &Local{Source: source, Store: store, Logger: logger}
}

func (l *Local) Upload(ctx context.Context, accountID int, localPath, remotePath string, q core.QueryParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := util.ReadFile(l.Source, localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}

	dst := l.storePath(accountID, remotePath, q.Buffer)
	if err := l.Store.MkdirAll(path.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", path.Dir(dst), err)
	}
	if err := util.WriteFile(l.Store, dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

func (l *Local) UploadFolder(ctx context.Context, accountID int, localPath, remoteDir string, opts core.FolderOptions) error {
	u := folderUploader{fs: l.Source, concurrency: l.Concurrency, logger: l.Logger}
	q := core.QueryFromMode(opts.Mode, core.EnvProd)
	return u.upload(ctx, localPath, remoteDir, opts, func(ctx context.Context, f FileUpload) error {
		return l.Upload(ctx, accountID, f.LocalPath, f.RemotePath, q)
	})
}

// Logs reads <account>/@logs/<route>.json. A missing file yields an empty
// response.
func (l *Local) Logs(ctx context.Context, accountID int, route string, latest bool) (*core.LogResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := path.Join("/", strconv.Itoa(accountID), logsDir, cleanRemote(route)+".json")
	data, err := util.ReadFile(l.Store, p)
	if errors.Is(err, os.ErrNotExist) {
		return &core.LogResponse{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	resp, err := core.DecodeLogResponse(data)
	if err != nil {
		return nil, err
	}
	if latest {
		return resp.Latest(), nil
	}
	return resp, nil
}

func (l *Local) storePath(accountID int, remotePath string, draft bool) string {
	base := path.Join("/", strconv.Itoa(accountID))
	if draft {
		base = path.Join(base, draftDir)
	}
	return path.Join(base, cleanRemote(remotePath))
}

// cleanRemote roots p so that ".." segments cannot climb out of the account
// directory.
func cleanRemote(p string) string {
	return strings.TrimPrefix(path.Join("/", p), "/")
}
