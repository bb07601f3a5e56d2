// Package dotdir manages the .recall/ and ~/.recall directories.
//
// The directory holds config.toml, credentials.toml, the default SQLite
// databases, and the CLI session (the owner and conversation that client
// commands act on when no flag is given).
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the recall directory.
	dirName = ".recall"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .recall/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.recall/ dir
//  3. Home ~/.recall/ dir
//  4. If none found, attempt to create ~/.recall/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating recall directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// localDirExists checks whether a .recall/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
