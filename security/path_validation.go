package security

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrPathNotAllowed is returned for paths outside every allowed directory.
var ErrPathNotAllowed = errors.New("file path is not allowed")

// GetCleanAbsPath validates and returns a clean absolute path.
func GetCleanAbsPath(path string) (string, error) {
	if path == "" || path == "." {
		return "", errors.New("path cannot be empty or current directory")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.Wrap(err, "invalid file path")
	}
	return absPath, nil
}

// IsWithinAllowedDirectory checks if a path is baseDir or below it.
// Parent directories are never within their children.
func IsWithinAllowedDirectory(path, baseDir string) bool {
	absBase, _ := filepath.Abs(baseDir)
	absPath, _ := filepath.Abs(path)

	cleanBase := filepath.Clean(absBase)
	cleanPath := filepath.Clean(absPath)

	if cleanPath == cleanBase {
		return true
	}
	return strings.HasPrefix(cleanPath, strings.TrimSuffix(cleanBase, string(filepath.Separator))+string(filepath.Separator))
}

// ValidateConfigPath checks that a server configuration file lies in
// one of the allowed directories or the working directory, and returns
// its absolute path.
func ValidateConfigPath(path string, allowedDirectories []string) (string, error) {
	cleanPath, err := GetCleanAbsPath(path)
	if err != nil {
		return "", errors.Wrap(err, "invalid config path")
	}

	if !slices.Contains(allowedDirectories, ".") {
		allowedDirectories = append(allowedDirectories, ".")
	}

	for _, allowedDir := range allowedDirectories {
		if IsWithinAllowedDirectory(cleanPath, allowedDir) {
			return cleanPath, nil
		}
	}

	return "", errors.Wrapf(ErrPathNotAllowed, "%s", cleanPath)
}

// GetConfigAllowedDirectories returns the directories where config
// files are allowed.
func GetConfigAllowedDirectories(configDir, workingDir string) []string {
	allowedDirs := []string{}

	if configDir != "" {
		allowedDirs = append(allowedDirs, configDir)
	}
	if workingDir != "" {
		allowedDirs = append(allowedDirs, workingDir)
	}

	return append(allowedDirs, ".")
}
