// Package dotdir manages the .paideia/ and ~/.paideia directories.
//
// The dotdir holds the service configuration (config.toml) and the persona
// roster (personas.toml). Resolution prefers an explicit override, then a
// local ./.paideia/ directory, then ~/.paideia/.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the paideia directory.
	dirName = ".paideia"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .paideia/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.paideia/ dir
//  3. Home ~/.paideia/ dir
//
// Returns an empty string when no override is given and neither directory
// exists; callers treat that as "defaults only".
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating paideia directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, dirName)
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			return filepath.Abs(local)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	homeDir := filepath.Join(home, dirName)
	if info, err := os.Stat(homeDir); err == nil && info.IsDir() {
		return filepath.Abs(homeDir)
	}

	return "", nil
}
