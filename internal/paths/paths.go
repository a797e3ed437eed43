// Package paths knows the layout of the per-project .abicompat directory.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DirName is the project-local state directory.
	DirName = ".abicompat"

	ConfigFile  = "config.json"
	HistoryFile = "history.db"
	LogsSubdir  = "logs"
	LogFile     = "abicompat.log"
)

// StateDir returns <root>/.abicompat.
func StateDir(root string) string {
	return filepath.Join(root, DirName)
}

// EnsureStateDir creates <root>/.abicompat if needed.
func EnsureStateDir(root string) (string, error) {
	dir := StateDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigPath returns <root>/.abicompat/config.json.
func ConfigPath(root string) string {
	return filepath.Join(StateDir(root), ConfigFile)
}

// HistoryPath returns the default run history database path.
func HistoryPath(root string) string {
	return filepath.Join(StateDir(root), HistoryFile)
}

// LogPath returns the default log file path.
func LogPath(root string) string {
	return filepath.Join(StateDir(root), LogsSubdir, LogFile)
}

// Resolve makes a configured path absolute against root. Absolute paths
// are returned unchanged and an empty path yields fallback.
func Resolve(root, path, fallback string) string {
	if path == "" {
		return fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return JoinRepoPath(root, path)
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks where the path exists.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relativePath), nil
}

// IsWithinRepo checks if a path is within root.
func IsWithinRepo(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(canonical, "..")
}

// JoinRepoPath joins root with a forward-slash relative path.
func JoinRepoPath(root string, canonicalPath string) string {
	normalizedPath := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalizedPath, "/")
	return filepath.Join(append([]string{root}, parts...)...)
}
