package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/go-git/go-billy/v5/util"
	"github.com/urfave/cli/v3"

	"github.com/sonnes/cmsync/core"
	"github.com/sonnes/cmsync/redact"
	logrender "github.com/sonnes/cmsync/render/logs"
)

func logsCmd() *cli.Command {
	flags := append(accountFlags(),
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Read a saved logs response instead of fetching (- for stdin)",
		},
		&cli.BoolFlag{
			Name:  "latest",
			Usage: "Show only the most recent execution",
		},
		&cli.BoolFlag{
			Name:  "compact",
			Usage: "Show only the header line of each execution",
		},
		&cli.StringFlag{
			Name:  "label",
			Usage: "Extra text shown in each header line",
		},
		&cli.BoolFlag{
			Name:  "no-redact",
			Usage: "Disable redaction of secrets and PII",
		},
		&cli.StringSliceFlag{
			Name:  "redact",
			Usage: "Allowlist of rules to redact. Example: --redact=secrets,pii",
		},
	)

	return &cli.Command{
		Name:      "logs",
		Usage:     "Show execution logs of a serverless function",
		ArgsUsage: "[route]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			redactor, err := newRedactor(cmd)
			if err != nil {
				return a.exitErr(err)
			}

			in := logsInput{
				Route:    cmd.Args().First(),
				File:     cmd.String("file"),
				Latest:   cmd.Bool("latest"),
				Redactor: redactor,
				Options: core.RenderOptions{
					Compact:    cmd.Bool("compact"),
					Insertions: core.Insertions{Header: cmd.String("label")},
				},
				Plain: !term.IsTerminal(os.Stdout.Fd()),
			}
			if in.File == "" {
				if in.Route == "" {
					return a.exitErr(fmt.Errorf("a route or --file is required"))
				}
				cfg, err := a.loadConfig(cmd.String("config"), cmd.Bool("use-env"))
				if err != nil {
					return a.exitErr(err)
				}
				in.fetch = func(ctx context.Context) (*core.LogResponse, error) {
					acct, err := cfg.Account(cmd.String("account"))
					if err != nil {
						return nil, err
					}
					client, err := a.remote(cfg, acct)
					if err != nil {
						return nil, err
					}
					return client.Logs(ctx, acct.AccountID, in.Route, in.Latest)
				}
			}
			return a.runLogs(ctx, in, os.Stdout)
		},
	}
}

type logsInput struct {
	Route    string
	File     string
	Latest   bool
	Redactor *redact.Redactor
	Options  core.RenderOptions
	Plain    bool

	fetch func(ctx context.Context) (*core.LogResponse, error)
}

func (a *app) runLogs(ctx context.Context, in logsInput, w io.Writer) error {
	resp, err := a.readLogs(ctx, in)
	if err != nil {
		return a.exitErr(err)
	}

	if in.Redactor != nil {
		if err := core.Chain(resp, in.Redactor); err != nil {
			return fmt.Errorf("redact: %w", err)
		}
	}

	r := logrender.New(a.logger)
	r.Plain = in.Plain
	_, err = fmt.Fprintln(w, r.Render(resp, in.Options))
	return err
}

func (a *app) readLogs(ctx context.Context, in logsInput) (*core.LogResponse, error) {
	if in.File == "" {
		if in.fetch == nil {
			return nil, fmt.Errorf("no log source")
		}
		return in.fetch(ctx)
	}

	var data []byte
	var err error
	if in.File == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = util.ReadFile(a.fs, a.abs(in.File))
	}
	if err != nil {
		return nil, fmt.Errorf("read logs: %w", err)
	}
	resp, err := core.DecodeLogResponse(data)
	if err != nil {
		return nil, err
	}
	if in.Latest {
		return resp.Latest(), nil
	}
	return resp, nil
}
