package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/urfave/cli/v3"

	"github.com/sonnes/cmsync/config"
	"github.com/sonnes/cmsync/ignore"
	"github.com/sonnes/cmsync/redact"
	"github.com/sonnes/cmsync/remote"
)

// clientFactory builds the remote client for an account.
type clientFactory func(a *app, cfg *config.Config, acct config.Account) (remote.Client, error)

// app holds the filesystem, logger and remote registry used by CLI commands.
type app struct {
	fs      billy.Filesystem
	cwd     string
	stdin   io.Reader
	logger  *log.Logger
	remotes map[string]clientFactory

	// watchers overrides the file watcher used by the watch command.
	watchers func(fs billy.Filesystem, filter *ignore.Filter, logger *log.Logger) (fileWatcher, error)
}

func newApp() (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return &app{
		fs:     osfs.New("/"),
		cwd:    cwd,
		stdin:  os.Stdin,
		logger: log.Default(),
		remotes: map[string]clientFactory{
			config.RemoteHTTP:  newHTTPRemote,
			config.RemoteLocal: newLocalRemote,
		},
	}, nil
}

func newHTTPRemote(a *app, _ *config.Config, acct config.Account) (remote.Client, error) {
	if acct.AccessKey == "" {
		return nil, fmt.Errorf("the account %q has no access key", acct.Name)
	}
	return remote.NewHTTPClient(a.fs, acct.Env, acct.AccessKey, a.logger), nil
}

func newLocalRemote(a *app, cfg *config.Config, _ config.Account) (remote.Client, error) {
	root := cfg.StoreRoot(a.cwd)
	if err := a.fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}
	store, err := a.fs.Chroot(root)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return remote.NewLocal(a.fs, store, a.logger), nil
}

func (a *app) remote(cfg *config.Config, acct config.Account) (remote.Client, error) {
	name := cfg.Remote
	if name == "" {
		name = config.RemoteHTTP
	}
	fn, ok := a.remotes[name]
	if !ok {
		return nil, fmt.Errorf("unknown remote %q", name)
	}
	return fn(a, cfg, acct)
}

// loadConfig reads the config named by --config, the nearest config file, or
// the environment when useEnv is set.
func (a *app) loadConfig(path string, useEnv bool) (*config.Config, error) {
	if useEnv {
		return config.FromEnv()
	}

	if path == "" {
		p, err := config.Find(a.fs, a.cwd)
		if err != nil {
			return nil, fmt.Errorf("no %s found in %s or its parents; run 'cms init' to create one", config.FileName, a.cwd)
		}
		path = p
	} else {
		path = a.abs(path)
	}

	cfg, err := config.ReadFile(a.fs, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	a.warnGitInclusion(cfg.Path)
	return cfg, nil
}

func (a *app) warnGitInclusion(path string) {
	included, root, err := config.CheckGitInclusion(a.fs, path)
	if err != nil {
		a.logger.Debug("Unable to check git inclusion of config", "path", path, "err", err)
		return
	}
	if included {
		a.logger.Warn("The config file is inside a git repository but is not ignored; it may expose access keys",
			"path", path, "repo", root)
	}
}

func (a *app) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.cwd, p)
}

// exitErr logs err and returns an exit status of 1.
func (a *app) exitErr(err error) error {
	a.logger.Error(err.Error())
	return cli.Exit("", 1)
}

// newRedactor builds a Redactor from CLI flags. Returns nil when --no-redact is set.
func newRedactor(cmd *cli.Command) (*redact.Redactor, error) {
	if cmd.Bool("no-redact") {
		return nil, nil
	}
	rules := cmd.StringSlice("redact")
	if len(rules) == 0 {
		return redact.New(redact.DefaultConfig()), nil
	}
	cfg, err := redact.ParseKinds(strings.Join(rules, ","))
	if err != nil {
		return nil, err
	}
	return redact.New(cfg), nil
}

func accountFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "account",
			Aliases: []string{"a"},
			Usage:   "Account name or id from the config file",
			Sources: cli.EnvVars("CMS_ACCOUNT"),
		},
		&cli.BoolFlag{
			Name:  "use-env",
			Usage: "Read the account from CMS_ACCOUNT_ID, CMS_ACCESS_KEY and CMS_ENV instead of the config file",
		},
	}
}
