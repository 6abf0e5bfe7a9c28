package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/sonnes/cmsync/config"
	"github.com/sonnes/cmsync/core"
	"github.com/sonnes/cmsync/ignore"
	"github.com/sonnes/cmsync/plan"
	"github.com/sonnes/cmsync/remote"
	"github.com/sonnes/cmsync/upload"
)

func uploadCmd() *cli.Command {
	flags := append(accountFlags(),
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "Upload mode: publish or draft (default: the config's defaultMode)",
		},
	)

	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a local file or folder to the Design Manager",
		ArgsUsage: "<src> <dest>",
		Description: `src is a local path relative to the current directory. dest is the
path in the Design Manager and may be new.

Files matched by .hsignore rules or without an allowed extension are
rejected when uploaded directly and skipped inside folders.`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(cmd.String("config"), cmd.Bool("use-env"))
			if err != nil {
				return a.exitErr(err)
			}
			return a.runUpload(ctx, cfg, uploadInput{
				Src:     cmd.Args().Get(0),
				Dest:    cmd.Args().Get(1),
				Account: cmd.String("account"),
				Mode:    cmd.String("mode"),
			})
		},
	}
}

type uploadInput struct {
	Src     string
	Dest    string
	Account string
	Mode    string
}

// runUpload plans and executes one upload. It returns an exit status of 1
// for configuration problems, a missing destination and src/dest conflicts.
// Other rejected requests and transfer failures are only logged.
func (a *app) runUpload(ctx context.Context, cfg *config.Config, in uploadInput) error {
	s, err := a.prepare(cfg, in)
	if err != nil || s == nil {
		return err
	}

	err = upload.New(s.client, s.acct.AccountID, a.logger, nil).Execute(ctx, s.plan)
	if errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// session is a validated upload request bound to its account and client.
type session struct {
	acct   config.Account
	mode   core.Mode
	client remote.Client
	filter *ignore.Filter
	plan   core.UploadPlan
}

// prepare resolves the account, mode and remote for in and plans it. A nil
// session with a nil error means the request was rejected without a
// non-zero exit status.
func (a *app) prepare(cfg *config.Config, in uploadInput) (*session, error) {
	acct, err := cfg.Account(in.Account)
	if err != nil {
		return nil, a.exitErr(err)
	}
	mode, err := core.ParseMode(in.Mode, cfg.Mode())
	if err != nil {
		return nil, a.exitErr(err)
	}
	client, err := a.remote(cfg, acct)
	if err != nil {
		return nil, a.exitErr(err)
	}

	filter, err := ignore.Load(a.fs, a.cwd)
	if err != nil {
		return nil, fmt.Errorf("load ignore rules: %w", err)
	}
	if src := filter.Source(); src != "" {
		a.logger.Debug("Loaded ignore rules", "path", src)
	}

	p, issues := plan.New(a.fs, filter).Plan(plan.Request{
		Src:  in.Src,
		Dest: in.Dest,
		Mode: mode,
		Env:  acct.Env,
		Cwd:  a.cwd,
	})
	if len(issues) > 0 {
		fatal := false
		for _, issue := range issues {
			a.logger.Error(issue.Message)
			if issue.Code == core.IssueMissingDest || issue.Code == core.IssueSrcDest {
				fatal = true
			}
		}
		if fatal {
			return nil, cli.Exit("", 1)
		}
		return nil, nil
	}

	t := p.SyncTarget()
	a.logger.Debug("Planned upload", "kind", t.Kind, "local", t.LocalPath, "remote", t.RemotePath,
		"mode", mode, "account", acct.AccountID)
	return &session{acct: acct, mode: mode, client: client, filter: filter, plan: p}, nil
}
