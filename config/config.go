// Package config loads account configuration from cms.config.yml or the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/sonnes/cmsync/core"
)

// File names searched for, in order.
const (
	FileName    = "cms.config.yml"
	AltFileName = "cms.config.yaml"
)

// Remote backends.
const (
	RemoteHTTP  = "http"
	RemoteLocal = "local"
)

// Environment variables read by FromEnv.
const (
	EnvAccountID = "CMS_ACCOUNT_ID"
	EnvAccessKey = "CMS_ACCESS_KEY"
	EnvEnv       = "CMS_ENV"
)

// ErrNotFound is returned by Find when no config file exists.
var ErrNotFound = errors.New("config file not found")

// Account is one CMS account the CLI can talk to.
type Account struct {
	Name      string   `yaml:"name"`
	AccountID int      `yaml:"accountId"`
	AccessKey string   `yaml:"accessKey,omitempty"`
	Env       core.Env `yaml:"env,omitempty"`
}

// Config is the contents of a config file.
type Config struct {
	DefaultAccount string    `yaml:"defaultAccount,omitempty"`
	DefaultMode    core.Mode `yaml:"defaultMode,omitempty"`
	Remote         string    `yaml:"remote,omitempty"`
	LocalRoot      string    `yaml:"localRoot,omitempty"`
	Accounts       []Account `yaml:"accounts"`

	// Path is the file the config was read from.
	Path string `yaml:"-"`
}

// Parse decodes YAML config data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// ReadFile reads and parses the config file at path.
func ReadFile(fs billy.Filesystem, path string) (*Config, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Find returns the path of the nearest config file in dir or any of its
// parents.
func Find(fs billy.Filesystem, dir string) (string, error) {
	dir = filepath.Clean(dir)
	for {
		for _, name := range []string{FileName, AltFileName} {
			p := filepath.Join(dir, name)
			if fi, err := fs.Stat(p); err == nil && !fi.IsDir() {
				return p, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// FromEnv builds a single-account Config from CMS_ACCOUNT_ID, CMS_ACCESS_KEY
// and CMS_ENV.
func FromEnv() (*Config, error) {
	raw := os.Getenv(EnvAccountID)
	if raw == "" {
		return nil, fmt.Errorf("%s is not set", EnvAccountID)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not an account id", EnvAccountID, raw)
	}
	env := core.Env(os.Getenv(EnvEnv))
	if env == "" {
		env = core.EnvProd
	}
	acct := Account{Name: raw, AccountID: id, AccessKey: os.Getenv(EnvAccessKey), Env: env}
	cfg := &Config{DefaultAccount: acct.Name, Accounts: []Account{acct}}
	return cfg, cfg.Validate()
}

// Validate checks the config for structural problems. All of them are
// returned joined.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Accounts) == 0 {
		errs = append(errs, errors.New("no accounts configured"))
	}
	if c.DefaultMode != "" {
		if _, err := core.ParseMode(string(c.DefaultMode), core.ModePublish); err != nil {
			errs = append(errs, fmt.Errorf("defaultMode: %w", err))
		}
	}
	switch c.Remote {
	case "", RemoteHTTP, RemoteLocal:
	default:
		errs = append(errs, fmt.Errorf("remote %q is invalid; valid values are %q or %q", c.Remote, RemoteHTTP, RemoteLocal))
	}

	seen := make(map[string]bool)
	for i, a := range c.Accounts {
		if a.AccountID <= 0 {
			errs = append(errs, fmt.Errorf("accounts[%d]: accountId must be a positive number", i))
		}
		if a.Name != "" {
			if seen[a.Name] {
				errs = append(errs, fmt.Errorf("accounts[%d]: duplicate name %q", i, a.Name))
			}
			seen[a.Name] = true
		}
		switch a.Env {
		case "", core.EnvProd, core.EnvQA:
		default:
			errs = append(errs, fmt.Errorf("accounts[%d]: env %q is invalid", i, a.Env))
		}
	}
	if c.DefaultAccount != "" && len(c.Accounts) > 0 {
		if _, err := c.Account(c.DefaultAccount); err != nil {
			errs = append(errs, fmt.Errorf("defaultAccount: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Account resolves a name or numeric id to an account. An empty string
// selects the default account, or the only account when there is one.
func (c *Config) Account(nameOrID string) (Account, error) {
	if nameOrID == "" {
		nameOrID = c.DefaultAccount
	}
	if nameOrID == "" {
		if len(c.Accounts) == 1 {
			return c.normalize(c.Accounts[0]), nil
		}
		return Account{}, errors.New("no account specified and no defaultAccount configured")
	}

	for _, a := range c.Accounts {
		if a.Name == nameOrID {
			return c.normalize(a), nil
		}
	}
	if id, err := strconv.Atoi(nameOrID); err == nil {
		for _, a := range c.Accounts {
			if a.AccountID == id {
				return c.normalize(a), nil
			}
		}
	}
	return Account{}, fmt.Errorf("the account %q could not be found in the config", nameOrID)
}

func (c *Config) normalize(a Account) Account {
	if a.Env == "" {
		a.Env = core.EnvProd
	}
	return a
}

// Mode returns the configured default sync mode, falling back to publish.
func (c *Config) Mode() core.Mode {
	if c.DefaultMode == "" {
		return core.ModePublish
	}
	return c.DefaultMode
}

// StoreRoot returns the directory used by the local remote. Relative roots
// are resolved against the config file's directory.
func (c *Config) StoreRoot(cwd string) string {
	root := c.LocalRoot
	if root == "" {
		root = ".cms"
	}
	if filepath.IsAbs(root) {
		return root
	}
	base := cwd
	if c.Path != "" {
		base = filepath.Dir(c.Path)
	}
	return filepath.Join(base, root)
}
