package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"
)

// Init writes cfg as a new config file in dir and, when dir is inside a git
// work tree, adds the file to the root .gitignore. It returns the path
// written.
func Init(fs billy.Filesystem, dir string, cfg *Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	p := filepath.Join(dir, FileName)
	if _, err := fs.Stat(p); err == nil {
		return "", fmt.Errorf("%s already exists", p)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"write config", func() error { return WriteFile(fs, p, cfg) }},
		{"update .gitignore", func() error {
			root, ok := GitRoot(fs, dir)
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			return ensureGitignore(fs, root, "/"+filepath.ToSlash(rel))
		}},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return "", fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return p, nil
}

// WriteFile writes cfg to path atomically through a temporary file and
// rename. The file is private to the user since it holds access keys.
func WriteFile(fs billy.Filesystem, path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := util.TempFile(fs, dir, ".cms-config-")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpPath)
		return err
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		fs.Remove(tmpPath)
		return err
	}
	return nil
}
