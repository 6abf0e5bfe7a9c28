package main

import (
	"context"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/sonnes/cmsync/config"
	"github.com/sonnes/cmsync/core"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a cms.config.yml in the current directory",
		Description: `Writes a config file with a single account. When the directory is
inside a git repository the file is added to .gitignore so access keys
are not committed.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Account name",
				Value: "default",
			},
			&cli.IntFlag{
				Name:     "account-id",
				Usage:    "Numeric account id",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "access-key",
				Usage:   "Personal access key",
				Sources: cli.EnvVars("CMS_ACCESS_KEY"),
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Account environment: prod or qa",
				Value: string(core.EnvProd),
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Default upload mode: publish or draft",
				Value: string(core.ModePublish),
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "Remote backend: http or local",
				Value: config.RemoteHTTP,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			cfg := &config.Config{
				DefaultAccount: cmd.String("name"),
				DefaultMode:    core.Mode(cmd.String("mode")),
				Remote:         cmd.String("remote"),
				Accounts: []config.Account{{
					Name:      cmd.String("name"),
					AccountID: int(cmd.Int("account-id")),
					AccessKey: cmd.String("access-key"),
					Env:       core.Env(cmd.String("env")),
				}},
			}
			return a.runInit(cfg)
		},
	}
}

func (a *app) runInit(cfg *config.Config) error {
	p, err := config.Init(a.fs, a.cwd, cfg)
	if err != nil {
		return a.exitErr(err)
	}
	rel, err := filepath.Rel(a.cwd, p)
	if err != nil {
		rel = p
	}
	a.logger.Info("Created config file", "path", rel)
	return nil
}
