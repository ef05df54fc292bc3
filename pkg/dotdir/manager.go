// Package dotdir manages the .docq/ and ~/.docq directories that hold the
// configuration file and the default SQLite database.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the docq directory.
	DirName = ".docq"

	// DatabaseFile is the default SQLite database file name inside the
	// docq directory.
	DatabaseFile = "docq.db"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .docq/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.docq/ dir
//  3. Home ~/.docq/ dir
//
// The resolved directory is created when missing.
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
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating docq directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DatabasePath returns the default SQLite database path inside the resolved
// docq directory.
func (m *Manager) DatabasePath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFile), nil
}

// localDirExists checks whether a .docq/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
