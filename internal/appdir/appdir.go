// Package appdir locates mailprobe's files under the per-user config root,
// e.g. $XDG_CONFIG_HOME/mailprobe on Linux.
package appdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Name is the directory name below the OS config root.
const Name = "mailprobe"

// Files mailprobe reads from its config directory.
const (
	ConfigFileName   = "config.yaml"
	PatternsFileName = "providers.yaml"
)

// ConfigDir returns the mailprobe config directory. It is not created.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config dir: %w", err)
	}
	return filepath.Join(base, Name), nil
}

// Path joins name onto ConfigDir.
func Path(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) { return Path(ConfigFileName) }

// PatternsFile returns the path of the optional provider rules override.
func PatternsFile() (string, error) { return Path(PatternsFileName) }

// EnsureFile creates an empty path (0600), and its parent directories
// (0700), unless it already exists. A directory at path is an error.
func EnsureFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return fmt.Errorf("config file %q is a directory", path)
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("checking config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // path is mailprobe's own config file
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	return f.Close()
}
