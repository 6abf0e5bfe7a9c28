package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/urfave/cli/v3"

	"github.com/sonnes/cmsync/config"
	"github.com/sonnes/cmsync/core"
	"github.com/sonnes/cmsync/ignore"
	"github.com/sonnes/cmsync/upload"
	"github.com/sonnes/cmsync/watch"
)

// fileWatcher is the part of *watch.Watcher the command uses.
type fileWatcher interface {
	Add(root string) error
	Run(ctx context.Context, fn watch.Handler) error
}

func newFileWatcher(fs billy.Filesystem, filter *ignore.Filter, logger *log.Logger) (fileWatcher, error) {
	w, err := watch.New(fs, filter, logger)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func watchCmd() *cli.Command {
	flags := append(accountFlags(),
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "Upload mode: publish or draft (default: the config's defaultMode)",
		},
		&cli.BoolFlag{
			Name:  "initial-upload",
			Usage: "Upload the whole folder before watching",
		},
	)

	return &cli.Command{
		Name:      "watch",
		Usage:     "Upload files in a local folder as they change",
		ArgsUsage: "<src> <dest>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(cmd.String("config"), cmd.Bool("use-env"))
			if err != nil {
				return a.exitErr(err)
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.runWatch(ctx, cfg, watchInput{
				uploadInput: uploadInput{
					Src:     cmd.Args().Get(0),
					Dest:    cmd.Args().Get(1),
					Account: cmd.String("account"),
					Mode:    cmd.String("mode"),
				},
				Initial: cmd.Bool("initial-upload"),
			})
		},
	}
}

type watchInput struct {
	uploadInput
	Initial bool
}

// runWatch uploads every change below a folder until ctx is done. Local
// removals are reported but the remote copy is kept.
func (a *app) runWatch(ctx context.Context, cfg *config.Config, in watchInput) error {
	s, err := a.prepare(cfg, in.uploadInput)
	if err != nil || s == nil {
		return err
	}
	folder, ok := s.plan.(*core.FolderPlan)
	if !ok {
		return a.exitErr(fmt.Errorf("the path %q is not a folder; use upload for single files", in.Src))
	}

	exec := upload.New(s.client, s.acct.AccountID, a.logger, nil)
	if in.Initial {
		if err := exec.Execute(ctx, folder); errors.Is(err, context.Canceled) {
			return err
		}
	}

	newWatcher := a.watchers
	if newWatcher == nil {
		newWatcher = newFileWatcher
	}
	w, err := newWatcher(a.fs, s.filter, a.logger)
	if err != nil {
		return err
	}
	root := folder.Target.LocalPath
	if err := w.Add(root); err != nil {
		return err
	}

	query := core.QueryFromMode(s.mode, s.acct.Env)
	a.logger.Infof("Watching %q for changes, uploading to %q in the Design Manager of account %d",
		in.Src, folder.Target.RemotePath, s.acct.AccountID)

	return w.Run(ctx, func(ctx context.Context, e watch.Event) {
		rel, err := filepath.Rel(root, e.Path)
		if err != nil {
			a.logger.Error("Unable to map changed file", "path", e.Path, "err", err)
			return
		}
		rel = filepath.ToSlash(rel)

		if e.Op == watch.OpRemove {
			a.logger.Warn("File removed locally; the remote copy is kept", "path", rel)
			return
		}
		if ctx.Err() != nil {
			a.logger.Warn("Shutting down; change not uploaded", "path", rel)
			return
		}
		// Transfer failures are reported by the executor.
		err = exec.Execute(ctx, &core.SingleFilePlan{
			Target: core.SyncTarget{
				Kind:       core.KindFile,
				LocalPath:  e.Path,
				RemotePath: path.Join(folder.Target.RemotePath, rel),
			},
			Source: rel,
			Query:  query,
		})
		if errors.Is(err, context.Canceled) {
			a.logger.Warn("Shutting down; change not uploaded", "path", rel)
		}
	})
}
