package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"

	"github.com/sonnes/cmsync/core"
	"github.com/sonnes/cmsync/ignore"
	"github.com/sonnes/cmsync/plan"
)

// FileUpload is one file of a folder walk.
type FileUpload struct {
	LocalPath  string
	RemotePath string
}

// ListFolder returns the files below localDir that a folder upload would
// transfer, in walk order. Ignored files and directories and files with a
// disallowed extension are skipped without notice.
func ListFolder(fs billy.Filesystem, localDir, remoteDir string, filter *ignore.Filter) ([]FileUpload, error) {
	localDir = filepath.Clean(localDir)
	var files []FileUpload

	err := util.Walk(fs, localDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == localDir {
			return nil
		}
		if info.IsDir() {
			if filter.Ignored(p, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || filter.Ignored(p, false) || !plan.AllowedExtension(p) {
			return nil
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		files = append(files, FileUpload{
			LocalPath:  p,
			RemotePath: path.Join(remoteDir, filepath.ToSlash(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", localDir, err)
	}
	return files, nil
}

// folderUploader runs the shared folder walk for a Client implementation.
type folderUploader struct {
	fs          billy.Filesystem
	concurrency int
	logger      *log.Logger
}

// upload walks localDir and sends each eligible file through fn. Individual
// failures are logged and do not stop the remaining uploads; all of them are
// returned joined.
func (u folderUploader) upload(ctx context.Context, localDir, remoteDir string, opts core.FolderOptions, fn func(ctx context.Context, f FileUpload) error) error {
	root := opts.Cwd
	if root == "" {
		root = localDir
	}
	filter, err := ignore.Load(u.fs, root)
	if err != nil {
		return err
	}

	files, err := ListFolder(u.fs, localDir, remoteDir, filter)
	if err != nil {
		return err
	}

	logger := u.logger
	if logger == nil {
		logger = log.Default()
	}
	limit := u.concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(limit)
	for _, f := range files {
		g.Go(func() error {
			if err := fn(ctx, f); err != nil {
				logger.Errorf("Uploading file %q to %q failed", f.LocalPath, f.RemotePath)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", f.RemotePath, err))
				mu.Unlock()
				return nil
			}
			logger.Debugf("Uploaded file %q to %q", f.LocalPath, f.RemotePath)
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d files failed to upload: %w", len(errs), len(files), errors.Join(errs...))
	}
	return nil
}
